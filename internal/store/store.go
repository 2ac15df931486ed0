package store

import (
	"github.com/dwarvesf/payments-backend/internal/store/billingoutbox"
	"github.com/dwarvesf/payments-backend/internal/store/chaincursor"
	"github.com/dwarvesf/payments-backend/internal/store/depositaccount"
	"github.com/dwarvesf/payments-backend/internal/store/observeddeposit"
)

type Store struct {
	DepositAccount  depositaccount.IStore
	ObservedDeposit observeddeposit.IStore
	BillingOutbox   billingoutbox.IStore
	ChainCursor     chaincursor.IStore
}

func New() *Store {
	return &Store{
		DepositAccount:  depositaccount.New(),
		ObservedDeposit: observeddeposit.New(),
		BillingOutbox:   billingoutbox.New(),
		ChainCursor:     chaincursor.New(),
	}
}
