package observeddeposit

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

func (s *store) CreateIfAbsent(db *gorm.DB, deposit *model.ObservedDeposit) (bool, error) {
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "block_number"}, {Name: "event_index"}},
		DoNothing: true,
	}).Create(deposit)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *store) ListFinalized(db *gorm.DB, limit int) ([]model.ObservedDeposit, error) {
	var deposits []model.ObservedDeposit
	err := db.
		Where("status = ?", model.DepositStatusFinalized).
		Order("block_number asc, event_index asc").
		Limit(limit).
		Find(&deposits).Error
	if err != nil {
		return nil, err
	}
	return deposits, nil
}

func (s *store) MarkCredited(db *gorm.DB, blockNumber int64, eventIndex int, creditedAt time.Time) (bool, error) {
	result := db.Model(&model.ObservedDeposit{}).
		Where("block_number = ? AND event_index = ? AND status = ?",
			blockNumber, eventIndex, model.DepositStatusFinalized).
		Updates(map[string]interface{}{
			"status":      model.DepositStatusCredited,
			"credited_at": creditedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *store) MarkDust(db *gorm.DB, blockNumber int64, eventIndex int) (bool, error) {
	result := db.Model(&model.ObservedDeposit{}).
		Where("block_number = ? AND event_index = ? AND status = ?",
			blockNumber, eventIndex, model.DepositStatusFinalized).
		Update("status", model.DepositStatusDust)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *store) SetBillingCreditID(db *gorm.DB, transactionID, creditID string) error {
	// transaction_id is derived, not stored; match on the same derivation.
	return db.Exec(
		`UPDATE observed_deposits
		 SET billing_credit_id = ?
		 WHERE ('b' || block_number::text || '#e' || event_index::text || '#' || to_account) = ?`,
		creditID, transactionID,
	).Error
}

func (s *store) GetByKey(db *gorm.DB, blockNumber int64, eventIndex int) (*model.ObservedDeposit, error) {
	var deposit model.ObservedDeposit
	err := db.
		Where("block_number = ? AND event_index = ?", blockNumber, eventIndex).
		First(&deposit).Error
	if err != nil {
		return nil, err
	}
	return &deposit, nil
}

func (s *store) ListByUser(db *gorm.DB, userID string, limit, offset int) ([]model.ObservedDeposit, error) {
	var deposits []model.ObservedDeposit
	err := db.
		Where("to_account IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&model.DepositAccount{}).
				Select("account_id").
				Where("user_id = ?", userID),
		).
		Order("block_number desc, event_index desc").
		Limit(limit).
		Offset(offset).
		Find(&deposits).Error
	if err != nil {
		return nil, err
	}
	return deposits, nil
}
