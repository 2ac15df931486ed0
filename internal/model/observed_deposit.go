package model

import "time"

type DepositStatus string

const (
	DepositStatusFinalized DepositStatus = "FINALIZED"
	DepositStatusCredited  DepositStatus = "CREDITED"
	// Below the dust threshold. Kept on record but out of the crediting scan,
	// so accumulated dust can never crowd newer deposits out of a batch.
	DepositStatusDust DepositStatus = "DUST"
)

// ObservedDeposit is one finalized on-chain transfer into a registered
// deposit account. (block_number, event_index) is the natural key that makes
// re-delivery of a block a no-op.
type ObservedDeposit struct {
	BlockNumber     int64         `json:"block_number" gorm:"column:block_number;primaryKey;autoIncrement:false"`
	EventIndex      int           `json:"event_index" gorm:"column:event_index;primaryKey;autoIncrement:false"`
	ToAccount       string        `json:"to_account" gorm:"column:to_account;type:varchar(64);not null;index"`
	FromAccount     string        `json:"from_account" gorm:"column:from_account;type:varchar(64);not null"`
	Amount          string        `json:"amount" gorm:"column:amount;type:numeric(39,0);not null"`
	Status          DepositStatus `json:"status" gorm:"column:status;type:varchar(20);not null;default:'FINALIZED'"`
	ObservedAt      time.Time     `json:"observed_at" gorm:"column:observed_at;not null;autoCreateTime"`
	CreditedAt      *time.Time    `json:"credited_at" gorm:"column:credited_at"`
	BillingCreditID *string       `json:"billing_credit_id" gorm:"column:billing_credit_id;type:varchar(255)"`
}

func (ObservedDeposit) TableName() string {
	return "observed_deposits"
}
