package model

import "time"

// DepositAccount is the owned keypair a user's on-chain deposits arrive at.
// The mnemonic is stored AEAD-encrypted and never leaves the signing path
// that created it.
type DepositAccount struct {
	ID                int       `json:"id" gorm:"primaryKey"`
	UserID            string    `json:"user_id" gorm:"column:user_id;type:varchar(255);not null;uniqueIndex"`
	Address           string    `json:"address" gorm:"column:address;type:varchar(255);not null;uniqueIndex"`
	AccountID         string    `json:"account_id" gorm:"column:account_id;type:varchar(64);not null;uniqueIndex"`
	PublicKey         string    `json:"public_key" gorm:"column:public_key;type:varchar(64);not null"`
	EncryptedMnemonic string    `json:"-" gorm:"column:encrypted_mnemonic;type:text;not null"`
	CreatedAt         time.Time `json:"created_at"`
}

func (DepositAccount) TableName() string {
	return "deposit_accounts"
}
