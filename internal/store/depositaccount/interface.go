package depositaccount

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type IStore interface {
	Create(db *gorm.DB, account *model.DepositAccount) (*model.DepositAccount, error)
	GetByUserID(db *gorm.DB, userID string) (*model.DepositAccount, error)
	GetByAccountID(db *gorm.DB, accountID string) (*model.DepositAccount, error)
	ListAccountIDs(db *gorm.DB) ([]string, error)
}
