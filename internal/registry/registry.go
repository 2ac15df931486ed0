package registry

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/keyvault"
	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/treasury"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// accountListener is notified when a new deposit account is persisted, so
// the observer can start watching it without waiting for a refresh.
type accountListener interface {
	AddKnownAccount(accountID string)
}

type registry struct {
	db       *gorm.DB
	store    *store.Store
	treasury treasury.ITreasury
	aead     *keyvault.Aead
	logger   *logger.Logger
	listener accountListener

	doInTx func(fn func(tx *gorm.DB) error) error
}

func New(db *gorm.DB, s *store.Store, t treasury.ITreasury, aead *keyvault.Aead, logger *logger.Logger, listener accountListener) IRegistry {
	r := &registry{
		db:       db,
		store:    s,
		treasury: t,
		aead:     aead,
		logger:   logger,
		listener: listener,
	}
	r.doInTx = func(fn func(tx *gorm.DB) error) error {
		return store.DoInTx(db, fn)
	}
	return r
}

func (r *registry) GetOrCreate(userID string) (*model.DepositAccount, error) {
	account, err := r.store.DepositAccount.GetByUserID(r.db, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "failed to look up deposit account")
	}

	key, err := r.treasury.Generate()
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive deposit key")
	}

	encryptedMnemonic, err := r.aead.Encrypt(key.Mnemonic)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encrypt mnemonic")
	}

	account = &model.DepositAccount{
		UserID:            userID,
		Address:           key.Address,
		AccountID:         key.AccountID,
		PublicKey:         key.PublicKey,
		EncryptedMnemonic: encryptedMnemonic,
	}

	err = r.doInTx(func(tx *gorm.DB) error {
		_, err := r.store.DepositAccount.Create(tx, account)
		return err
	})
	if err != nil {
		// A concurrent request for the same user hit the unique index first.
		// Their row is the canonical one.
		existing, lookupErr := r.store.DepositAccount.GetByUserID(r.db, userID)
		if lookupErr == nil {
			return existing, nil
		}
		return nil, errors.Wrap(err, "failed to create deposit account")
	}

	if r.listener != nil {
		r.listener.AddKnownAccount(account.AccountID)
	}

	r.logger.Info("[GetOrCreate][Create] issued deposit account", map[string]string{
		"userID":  userID,
		"address": account.Address,
	})
	return account, nil
}

func (r *registry) GetByUserID(userID string) (*model.DepositAccount, error) {
	return r.store.DepositAccount.GetByUserID(r.db, userID)
}
