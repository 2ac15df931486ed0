package promoter

import (
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/types/environments"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

const testAccount = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

type fakeOracle struct {
	snapshot *model.PriceSnapshot
	err      error
}

func (f *fakeOracle) GetRate() (*model.PriceSnapshot, error) { return f.snapshot, f.err }
func (f *fakeOracle) Refresh() error                         { return nil }

type fakeAccountStore struct{}

func (f *fakeAccountStore) Create(db *gorm.DB, account *model.DepositAccount) (*model.DepositAccount, error) {
	return account, nil
}
func (f *fakeAccountStore) GetByUserID(db *gorm.DB, userID string) (*model.DepositAccount, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountStore) GetByAccountID(db *gorm.DB, accountID string) (*model.DepositAccount, error) {
	if accountID != testAccount {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.DepositAccount{UserID: "user-1", AccountID: accountID}, nil
}
func (f *fakeAccountStore) ListAccountIDs(db *gorm.DB) ([]string, error) { return nil, nil }

type fakeDepositStore struct {
	finalized []model.ObservedDeposit
	credited  map[string]bool
}

func (f *fakeDepositStore) CreateIfAbsent(db *gorm.DB, deposit *model.ObservedDeposit) (bool, error) {
	return false, nil
}
func (f *fakeDepositStore) ListFinalized(db *gorm.DB, limit int) ([]model.ObservedDeposit, error) {
	var out []model.ObservedDeposit
	for _, d := range f.finalized {
		if d.Status != model.DepositStatusFinalized {
			continue
		}
		out = append(out, d)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
func (f *fakeDepositStore) MarkCredited(db *gorm.DB, blockNumber int64, eventIndex int, creditedAt time.Time) (bool, error) {
	if f.credited == nil {
		f.credited = map[string]bool{}
	}
	key := TransactionID(blockNumber, eventIndex, "")
	if f.credited[key] {
		return false, nil
	}
	f.credited[key] = true
	return true, nil
}
func (f *fakeDepositStore) MarkDust(db *gorm.DB, blockNumber int64, eventIndex int) (bool, error) {
	for i := range f.finalized {
		d := &f.finalized[i]
		if d.BlockNumber == blockNumber && d.EventIndex == eventIndex && d.Status == model.DepositStatusFinalized {
			d.Status = model.DepositStatusDust
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeDepositStore) SetBillingCreditID(db *gorm.DB, transactionID, creditID string) error {
	return nil
}
func (f *fakeDepositStore) GetByKey(db *gorm.DB, blockNumber int64, eventIndex int) (*model.ObservedDeposit, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDepositStore) ListByUser(db *gorm.DB, userID string, limit, offset int) ([]model.ObservedDeposit, error) {
	return nil, nil
}

type fakeOutboxStore struct {
	entries []*model.BillingOutbox
}

func (f *fakeOutboxStore) Enqueue(db *gorm.DB, entry *model.BillingOutbox) error {
	for _, existing := range f.entries {
		if existing.TransactionID == entry.TransactionID {
			return nil
		}
	}
	f.entries = append(f.entries, entry)
	return nil
}
func (f *fakeOutboxStore) ClaimDue(db *gorm.DB, limit int, leaseTimeout time.Duration) ([]model.BillingOutbox, error) {
	return nil, nil
}
func (f *fakeOutboxStore) MarkDispatched(db *gorm.DB, id int64) error { return nil }
func (f *fakeOutboxStore) ScheduleRetry(db *gorm.DB, id int64, nextAttemptAt time.Time) error {
	return nil
}
func (f *fakeOutboxStore) PendingCount(db *gorm.DB) (int64, error) { return 0, nil }
func (f *fakeOutboxStore) GetByTransactionID(db *gorm.DB, transactionID string) (*model.BillingOutbox, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeCursorStore struct{}

func (f *fakeCursorStore) Get(db *gorm.DB, name string) (*model.ChainCursor, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeCursorStore) Upsert(db *gorm.DB, name string, height uint64) error { return nil }

func newTestPromoter(deposits *fakeDepositStore, outbox *fakeOutboxStore, oracle *fakeOracle, dustThreshold string) *promoter {
	s := &store.Store{
		DepositAccount:  &fakeAccountStore{},
		ObservedDeposit: deposits,
		BillingOutbox:   outbox,
		ChainCursor:     &fakeCursorStore{},
	}
	appConfig := &config.AppConfig{
		Chain: config.ChainConfig{TokenDecimals: 9},
		PriceOracle: config.PriceOracleConfig{
			MaxPriceAge: time.Minute,
		},
		Promoter: config.PromoterConfig{
			BatchSize:     100,
			FiatPrecision: 6,
			DustThreshold: dustThreshold,
		},
	}
	dust, _ := new(big.Int).SetString(dustThreshold, 10)
	p := &promoter{
		store:         s,
		oracle:        oracle,
		appConfig:     appConfig,
		logger:        logger.New(environments.Test),
		metrics:       monitoring.NewPipelineMetrics(),
		dustThreshold: dust,
	}
	p.doInTx = func(fn func(tx *gorm.DB) error) error {
		return fn(nil)
	}
	return p
}

func freshSnapshot(rate string) *model.PriceSnapshot {
	return &model.PriceSnapshot{
		Rate:      decimal.RequireFromString(rate),
		FetchedAt: time.Now(),
	}
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "b100#e3#"+testAccount, TransactionID(100, 3, testAccount))
}

func TestPromoteOnce(t *testing.T) {
	deposits := &fakeDepositStore{
		finalized: []model.ObservedDeposit{
			{BlockNumber: 100, EventIndex: 3, ToAccount: testAccount, Amount: "1000000000", Status: model.DepositStatusFinalized},
		},
	}
	outbox := &fakeOutboxStore{}

	p := newTestPromoter(deposits, outbox, &fakeOracle{snapshot: freshSnapshot("5.00")}, "0")
	require.NoError(t, p.PromoteOnce())

	require.Len(t, outbox.entries, 1)
	entry := outbox.entries[0]
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "1000000000", entry.Amount)
	assert.Equal(t, "5", entry.CreditAmount)
	assert.Equal(t, "b100#e3#"+testAccount, entry.TransactionID)
}

func TestPromoteOnce_TruncatesTowardZero(t *testing.T) {
	deposits := &fakeDepositStore{
		finalized: []model.ObservedDeposit{
			// 0.333333333 tokens at 1.00 rounds down at 6 decimals.
			{BlockNumber: 1, EventIndex: 0, ToAccount: testAccount, Amount: "333333333", Status: model.DepositStatusFinalized},
		},
	}
	outbox := &fakeOutboxStore{}

	p := newTestPromoter(deposits, outbox, &fakeOracle{snapshot: freshSnapshot("1.00")}, "0")
	require.NoError(t, p.PromoteOnce())

	require.Len(t, outbox.entries, 1)
	assert.Equal(t, "0.333333", outbox.entries[0].CreditAmount)
}

func TestPromoteOnce_StalePriceDefersWholePass(t *testing.T) {
	deposits := &fakeDepositStore{
		finalized: []model.ObservedDeposit{
			{BlockNumber: 1, EventIndex: 0, ToAccount: testAccount, Amount: "1000000000", Status: model.DepositStatusFinalized},
		},
	}
	outbox := &fakeOutboxStore{}
	stale := &fakeOracle{snapshot: &model.PriceSnapshot{
		Rate:      decimal.RequireFromString("5.00"),
		FetchedAt: time.Now().Add(-time.Hour),
	}}

	p := newTestPromoter(deposits, outbox, stale, "0")
	require.NoError(t, p.PromoteOnce())

	assert.Empty(t, outbox.entries)
	assert.Empty(t, deposits.credited)
}

func TestPromoteOnce_NoSnapshotDefersWholePass(t *testing.T) {
	outbox := &fakeOutboxStore{}
	p := newTestPromoter(&fakeDepositStore{}, outbox, &fakeOracle{err: errors.New("no snapshot")}, "0")
	require.NoError(t, p.PromoteOnce())
	assert.Empty(t, outbox.entries)
}

func TestPromoteOnce_DustIsParkedNotCredited(t *testing.T) {
	deposits := &fakeDepositStore{
		finalized: []model.ObservedDeposit{
			{BlockNumber: 1, EventIndex: 0, ToAccount: testAccount, Amount: "999", Status: model.DepositStatusFinalized},
			{BlockNumber: 1, EventIndex: 1, ToAccount: testAccount, Amount: "1000", Status: model.DepositStatusFinalized},
		},
	}
	outbox := &fakeOutboxStore{}

	p := newTestPromoter(deposits, outbox, &fakeOracle{snapshot: freshSnapshot("5.00")}, "1000")
	require.NoError(t, p.PromoteOnce())

	require.Len(t, outbox.entries, 1)
	assert.Equal(t, "1000", outbox.entries[0].Amount)
	assert.Equal(t, model.DepositStatusDust, deposits.finalized[0].Status)
}

func TestPromoteOnce_DustCannotStarveLaterDeposits(t *testing.T) {
	// More dust rows than one batch holds, then a real deposit behind them.
	var rows []model.ObservedDeposit
	for i := 0; i < 100; i++ {
		rows = append(rows, model.ObservedDeposit{
			BlockNumber: 1, EventIndex: i, ToAccount: testAccount, Amount: "1", Status: model.DepositStatusFinalized,
		})
	}
	rows = append(rows, model.ObservedDeposit{
		BlockNumber: 2, EventIndex: 0, ToAccount: testAccount, Amount: "1000000000", Status: model.DepositStatusFinalized,
	})
	deposits := &fakeDepositStore{finalized: rows}
	outbox := &fakeOutboxStore{}

	p := newTestPromoter(deposits, outbox, &fakeOracle{snapshot: freshSnapshot("5.00")}, "1000")
	require.NoError(t, p.PromoteOnce())
	require.NoError(t, p.PromoteOnce())

	require.Len(t, outbox.entries, 1)
	assert.Equal(t, "b2#e0#"+testAccount, outbox.entries[0].TransactionID)
}

func TestPromoteOnce_RepeatPassDoesNotDoubleEnqueue(t *testing.T) {
	deposits := &fakeDepositStore{
		finalized: []model.ObservedDeposit{
			{BlockNumber: 100, EventIndex: 3, ToAccount: testAccount, Amount: "1000000000", Status: model.DepositStatusFinalized},
		},
	}
	outbox := &fakeOutboxStore{}

	p := newTestPromoter(deposits, outbox, &fakeOracle{snapshot: freshSnapshot("5.00")}, "0")
	require.NoError(t, p.PromoteOnce())
	require.NoError(t, p.PromoteOnce())

	assert.Len(t, outbox.entries, 1)
}
