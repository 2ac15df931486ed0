package registry

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/keyvault"
	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/treasury"
	"github.com/dwarvesf/payments-backend/internal/types/environments"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type fakeAccountStore struct {
	byUserID  map[string]*model.DepositAccount
	createErr error
}

func (f *fakeAccountStore) Create(db *gorm.DB, account *model.DepositAccount) (*model.DepositAccount, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.byUserID == nil {
		f.byUserID = map[string]*model.DepositAccount{}
	}
	f.byUserID[account.UserID] = account
	return account, nil
}
func (f *fakeAccountStore) GetByUserID(db *gorm.DB, userID string) (*model.DepositAccount, error) {
	account, ok := f.byUserID[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return account, nil
}
func (f *fakeAccountStore) GetByAccountID(db *gorm.DB, accountID string) (*model.DepositAccount, error) {
	for _, account := range f.byUserID {
		if account.AccountID == accountID {
			return account, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountStore) ListAccountIDs(db *gorm.DB) ([]string, error) {
	ids := make([]string, 0, len(f.byUserID))
	for _, account := range f.byUserID {
		ids = append(ids, account.AccountID)
	}
	return ids, nil
}

type recordingListener struct {
	added []string
}

func (r *recordingListener) AddKnownAccount(accountID string) {
	r.added = append(r.added, accountID)
}

func newTestRegistry(t *testing.T, accounts *fakeAccountStore, listener accountListener) *registry {
	t.Helper()

	aead, err := keyvault.New(testKeyHex)
	require.NoError(t, err)

	r := &registry{
		store:    &store.Store{DepositAccount: accounts},
		treasury: treasury.New(42),
		aead:     aead,
		logger:   logger.New(environments.Test),
		listener: listener,
	}
	r.doInTx = func(fn func(tx *gorm.DB) error) error {
		return fn(nil)
	}
	return r
}

func TestGetOrCreate_IssuesNewAccount(t *testing.T) {
	accounts := &fakeAccountStore{}
	listener := &recordingListener{}
	r := newTestRegistry(t, accounts, listener)

	account, err := r.GetOrCreate("user-1")
	require.NoError(t, err)

	assert.Equal(t, "user-1", account.UserID)
	assert.Len(t, account.AccountID, 64)
	assert.Equal(t, account.AccountID, account.PublicKey)
	assert.NotEmpty(t, account.Address)
	assert.NotEmpty(t, account.EncryptedMnemonic)
	assert.Equal(t, []string{account.AccountID}, listener.added)

	// The stored mnemonic decrypts and re-derives the same key material.
	aead, err := keyvault.New(testKeyHex)
	require.NoError(t, err)
	mnemonic, err := aead.Decrypt(account.EncryptedMnemonic)
	require.NoError(t, err)

	rederived, err := treasury.New(42).FromMnemonic(mnemonic)
	require.NoError(t, err)
	assert.Equal(t, account.AccountID, rederived.AccountID)
	assert.Equal(t, account.Address, rederived.Address)
}

func TestGetOrCreate_IsStablePerUser(t *testing.T) {
	accounts := &fakeAccountStore{}
	r := newTestRegistry(t, accounts, nil)

	first, err := r.GetOrCreate("user-1")
	require.NoError(t, err)
	second, err := r.GetOrCreate("user-1")
	require.NoError(t, err)

	assert.Equal(t, first.Address, second.Address)
	assert.Len(t, accounts.byUserID, 1)
}

func TestGetOrCreate_DistinctUsersGetDistinctAccounts(t *testing.T) {
	accounts := &fakeAccountStore{}
	r := newTestRegistry(t, accounts, nil)

	a, err := r.GetOrCreate("user-1")
	require.NoError(t, err)
	b, err := r.GetOrCreate("user-2")
	require.NoError(t, err)

	assert.NotEqual(t, a.Address, b.Address)
	assert.NotEqual(t, a.AccountID, b.AccountID)
}

func TestGetOrCreate_CreateRaceFallsBackToWinner(t *testing.T) {
	winner := &model.DepositAccount{UserID: "user-1", AccountID: "winner", Address: "addr"}
	accounts := &fakeAccountStore{createErr: errors.New("duplicate key value violates unique constraint")}
	r := newTestRegistry(t, accounts, nil)

	// Simulate the concurrent writer landing between lookup and insert.
	lookedUp := false
	r.doInTx = func(fn func(tx *gorm.DB) error) error {
		lookedUp = true
		accounts.byUserID = map[string]*model.DepositAccount{"user-1": winner}
		return fn(nil)
	}

	account, err := r.GetOrCreate("user-1")
	require.NoError(t, err)
	assert.True(t, lookedUp)
	assert.Equal(t, "winner", account.AccountID)
}

func TestGetByUserID(t *testing.T) {
	accounts := &fakeAccountStore{byUserID: map[string]*model.DepositAccount{
		"user-1": {UserID: "user-1", AccountID: "acct"},
	}}
	r := newTestRegistry(t, accounts, nil)

	account, err := r.GetByUserID("user-1")
	require.NoError(t, err)
	assert.Equal(t, "acct", account.AccountID)

	_, err = r.GetByUserID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
