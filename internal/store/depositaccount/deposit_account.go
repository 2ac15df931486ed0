package depositaccount

import (
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
)

type store struct{}

func New() IStore {
	return &store{}
}

func (s *store) Create(db *gorm.DB, account *model.DepositAccount) (*model.DepositAccount, error) {
	return account, db.Create(account).Error
}

func (s *store) GetByUserID(db *gorm.DB, userID string) (*model.DepositAccount, error) {
	var account model.DepositAccount
	err := db.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *store) GetByAccountID(db *gorm.DB, accountID string) (*model.DepositAccount, error) {
	var account model.DepositAccount
	err := db.Where("account_id = ?", accountID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *store) ListAccountIDs(db *gorm.DB) ([]string, error) {
	var accountIDs []string
	err := db.Model(&model.DepositAccount{}).Pluck("account_id", &accountIDs).Error
	if err != nil {
		return nil, err
	}
	return accountIDs, nil
}
