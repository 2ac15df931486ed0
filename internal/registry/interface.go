package registry

import "github.com/dwarvesf/payments-backend/internal/model"

// IRegistry issues and looks up per-user deposit accounts.
type IRegistry interface {
	// GetOrCreate returns the user's deposit account, deriving and persisting
	// a fresh one when none exists yet.
	GetOrCreate(userID string) (*model.DepositAccount, error)

	GetByUserID(userID string) (*model.DepositAccount, error)
}
