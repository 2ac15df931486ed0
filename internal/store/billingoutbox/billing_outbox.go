package billingoutbox

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type store struct{}

func New() IStore {
	return &store{}
}

func (s *store) Enqueue(db *gorm.DB, entry *model.BillingOutbox) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(entry).Error
}

func (s *store) ClaimDue(db *gorm.DB, limit int, leaseTimeout time.Duration) ([]model.BillingOutbox, error) {
	var claimed []model.BillingOutbox

	err := db.Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var due []model.BillingOutbox
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("dispatched_at IS NULL AND next_attempt_at <= ?", now).
			Where("claimed_at IS NULL OR claimed_at < ?", now.Add(-leaseTimeout)).
			Order("id asc").
			Limit(limit).
			Find(&due).Error
		if err != nil {
			return err
		}

		for i := range due {
			entry := &due[i]
			err := tx.Model(&model.BillingOutbox{}).
				Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"claimed_at": now,
					"attempts":   gorm.Expr("attempts + 1"),
				}).Error
			if err != nil {
				return err
			}
			entry.ClaimedAt = &now
			entry.Attempts++
		}

		claimed = due
		return nil
	})
	if err != nil {
		return nil, err
	}

	return claimed, nil
}

func (s *store) MarkDispatched(db *gorm.DB, id int64) error {
	return db.Model(&model.BillingOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"dispatched_at": time.Now(),
			"claimed_at":    nil,
		}).Error
}

func (s *store) ScheduleRetry(db *gorm.DB, id int64, nextAttemptAt time.Time) error {
	return db.Model(&model.BillingOutbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"next_attempt_at": nextAttemptAt,
			"claimed_at":      nil,
		}).Error
}

func (s *store) PendingCount(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&model.BillingOutbox{}).
		Where("dispatched_at IS NULL AND next_attempt_at <= ?", time.Now()).
		Count(&count).Error
	return count, err
}

func (s *store) GetByTransactionID(db *gorm.DB, transactionID string) (*model.BillingOutbox, error) {
	var entry model.BillingOutbox
	err := db.Where("transaction_id = ?", transactionID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
