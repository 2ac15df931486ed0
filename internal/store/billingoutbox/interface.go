package billingoutbox

import (
	"time"

	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type IStore interface {
	// Enqueue inserts the outbox entry; a transaction_id conflict is dropped
	// silently so a promoter retry cannot double-enqueue a credit.
	Enqueue(db *gorm.DB, entry *model.BillingOutbox) error

	// ClaimDue leases up to limit entries that are undelivered, due, and not
	// held by a live lease, oldest first. Claimed rows get claimed_at stamped
	// and attempts incremented in the same statement batch.
	ClaimDue(db *gorm.DB, limit int, leaseTimeout time.Duration) ([]model.BillingOutbox, error)

	MarkDispatched(db *gorm.DB, id int64) error

	// ScheduleRetry releases the lease and sets the next attempt time.
	ScheduleRetry(db *gorm.DB, id int64, nextAttemptAt time.Time) error

	PendingCount(db *gorm.DB) (int64, error)
	GetByTransactionID(db *gorm.DB, transactionID string) (*model.BillingOutbox, error)
}
