package observeddeposit

import (
	"time"

	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type IStore interface {
	// CreateIfAbsent inserts the deposit unless its (block_number,
	// event_index) key already exists. Returns whether a row was inserted;
	// a conflict is the expected idempotent-redelivery case, not an error.
	CreateIfAbsent(db *gorm.DB, deposit *model.ObservedDeposit) (bool, error)

	ListFinalized(db *gorm.DB, limit int) ([]model.ObservedDeposit, error)

	// MarkCredited flips a FINALIZED deposit to CREDITED. Returns false when
	// the row was not in FINALIZED state, which means a concurrent promoter
	// pass already credited it.
	MarkCredited(db *gorm.DB, blockNumber int64, eventIndex int, creditedAt time.Time) (bool, error)

	// MarkDust flips a FINALIZED deposit to DUST so it leaves the
	// ListFinalized scan window.
	MarkDust(db *gorm.DB, blockNumber int64, eventIndex int) (bool, error)

	// SetBillingCreditID records billing's credit id against the deposit the
	// given transaction id was derived from.
	SetBillingCreditID(db *gorm.DB, transactionID, creditID string) error

	GetByKey(db *gorm.DB, blockNumber int64, eventIndex int) (*model.ObservedDeposit, error)
	ListByUser(db *gorm.DB, userID string, limit, offset int) ([]model.ObservedDeposit, error)
}
