package model

import "time"

// BillingOutbox is one credit that must reach the billing service. Rows are
// created in the same transaction that marks the deposit CREDITED and are
// retained after dispatch for audit.
type BillingOutbox struct {
	ID     int64  `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"column:user_id;type:varchar(255);not null"`
	// Amount is the on-chain amount in smallest units, kept for audit.
	Amount string `json:"amount" gorm:"column:amount;type:numeric(39,0);not null"`
	// CreditAmount is the fiat credit computed once by the promoter; the
	// dispatcher forwards it verbatim.
	CreditAmount  string     `json:"credit_amount" gorm:"column:credit_amount;type:numeric(20,6);not null"`
	TransactionID string     `json:"transaction_id" gorm:"column:transaction_id;type:varchar(255);not null;uniqueIndex"`
	Attempts      int        `json:"attempts" gorm:"column:attempts;not null;default:0"`
	ClaimedAt     *time.Time `json:"claimed_at" gorm:"column:claimed_at"`
	NextAttemptAt time.Time  `json:"next_attempt_at" gorm:"column:next_attempt_at;not null"`
	CreatedAt     time.Time  `json:"created_at"`
	DispatchedAt  *time.Time `json:"dispatched_at" gorm:"column:dispatched_at"`
}

func (BillingOutbox) TableName() string {
	return "billing_outbox"
}
