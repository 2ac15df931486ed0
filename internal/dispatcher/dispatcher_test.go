package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/types/environments"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/utils/webhook"
)

type countingBillingClient struct {
	creditID string
	failures int
	calls    map[string]int
}

func (c *countingBillingClient) ApplyCredit(ctx context.Context, userID, amount, transactionID string) (string, error) {
	if c.calls == nil {
		c.calls = map[string]int{}
	}
	c.calls[transactionID]++
	if c.failures > 0 {
		c.failures--
		return "", errors.New("billing unavailable")
	}
	return c.creditID, nil
}

type fakeOutboxStore struct {
	due         []model.BillingOutbox
	dispatched  []int64
	retries     map[int64]time.Time
	claimCalls  int
	pendingRows int64
}

func (f *fakeOutboxStore) Enqueue(db *gorm.DB, entry *model.BillingOutbox) error { return nil }
func (f *fakeOutboxStore) ClaimDue(db *gorm.DB, limit int, leaseTimeout time.Duration) ([]model.BillingOutbox, error) {
	f.claimCalls++
	if limit < len(f.due) {
		return f.due[:limit], nil
	}
	return f.due, nil
}
func (f *fakeOutboxStore) MarkDispatched(db *gorm.DB, id int64) error {
	f.dispatched = append(f.dispatched, id)
	return nil
}
func (f *fakeOutboxStore) ScheduleRetry(db *gorm.DB, id int64, nextAttemptAt time.Time) error {
	if f.retries == nil {
		f.retries = map[int64]time.Time{}
	}
	f.retries[id] = nextAttemptAt
	return nil
}
func (f *fakeOutboxStore) PendingCount(db *gorm.DB) (int64, error) { return f.pendingRows, nil }
func (f *fakeOutboxStore) GetByTransactionID(db *gorm.DB, transactionID string) (*model.BillingOutbox, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeDepositStore struct {
	creditIDs map[string]string
}

func (f *fakeDepositStore) CreateIfAbsent(db *gorm.DB, deposit *model.ObservedDeposit) (bool, error) {
	return false, nil
}
func (f *fakeDepositStore) ListFinalized(db *gorm.DB, limit int) ([]model.ObservedDeposit, error) {
	return nil, nil
}
func (f *fakeDepositStore) MarkCredited(db *gorm.DB, blockNumber int64, eventIndex int, creditedAt time.Time) (bool, error) {
	return false, nil
}
func (f *fakeDepositStore) MarkDust(db *gorm.DB, blockNumber int64, eventIndex int) (bool, error) {
	return false, nil
}
func (f *fakeDepositStore) SetBillingCreditID(db *gorm.DB, transactionID, creditID string) error {
	if f.creditIDs == nil {
		f.creditIDs = map[string]string{}
	}
	f.creditIDs[transactionID] = creditID
	return nil
}
func (f *fakeDepositStore) GetByKey(db *gorm.DB, blockNumber int64, eventIndex int) (*model.ObservedDeposit, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeDepositStore) ListByUser(db *gorm.DB, userID string, limit, offset int) ([]model.ObservedDeposit, error) {
	return nil, nil
}

type fakeAccountStore struct{}

func (f *fakeAccountStore) Create(db *gorm.DB, account *model.DepositAccount) (*model.DepositAccount, error) {
	return account, nil
}
func (f *fakeAccountStore) GetByUserID(db *gorm.DB, userID string) (*model.DepositAccount, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountStore) GetByAccountID(db *gorm.DB, accountID string) (*model.DepositAccount, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAccountStore) ListAccountIDs(db *gorm.DB) ([]string, error) { return nil, nil }

type fakeCursorStore struct{}

func (f *fakeCursorStore) Get(db *gorm.DB, name string) (*model.ChainCursor, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeCursorStore) Upsert(db *gorm.DB, name string, height uint64) error { return nil }

func newTestDispatcher(outbox *fakeOutboxStore, deposits *fakeDepositStore, client *countingBillingClient) *dispatcher {
	s := &store.Store{
		DepositAccount:  &fakeAccountStore{},
		ObservedDeposit: deposits,
		BillingOutbox:   outbox,
		ChainCursor:     &fakeCursorStore{},
	}
	appConfig := &config.AppConfig{
		Dispatcher: config.DispatcherConfig{
			PollInterval:   10 * time.Millisecond,
			BatchSize:      100,
			LeaseTimeout:   5 * time.Minute,
			BackoffBase:    2 * time.Second,
			BackoffCap:     5 * time.Minute,
			AlertThreshold: 10,
		},
	}
	log := logger.New(environments.Test)
	d := &dispatcher{
		store:         s,
		billingClient: client,
		appConfig:     appConfig,
		logger:        log,
		metrics:       monitoring.NewPipelineMetrics(),
		webhookClient: webhook.New(log),
		now:           time.Now,
	}
	d.doInTx = func(fn func(tx *gorm.DB) error) error {
		return fn(nil)
	}
	return d
}

func TestDispatchOnce_DeliversAndRecordsCreditID(t *testing.T) {
	outbox := &fakeOutboxStore{
		due: []model.BillingOutbox{
			{ID: 1, UserID: "user-1", CreditAmount: "5", TransactionID: "tx-1", Attempts: 1},
		},
	}
	deposits := &fakeDepositStore{}
	client := &countingBillingClient{creditID: "cr_1"}

	d := newTestDispatcher(outbox, deposits, client)
	require.NoError(t, d.DispatchOnce(context.Background()))

	assert.Equal(t, []int64{1}, outbox.dispatched)
	assert.Equal(t, "cr_1", deposits.creditIDs["tx-1"])
	assert.Equal(t, 1, client.calls["tx-1"])
}

func TestDispatchOnce_FailureSchedulesRetry(t *testing.T) {
	outbox := &fakeOutboxStore{
		due: []model.BillingOutbox{
			{ID: 1, UserID: "user-1", CreditAmount: "5", TransactionID: "tx-1", Attempts: 1},
		},
	}
	deposits := &fakeDepositStore{}
	client := &countingBillingClient{creditID: "cr_1", failures: 1}

	d := newTestDispatcher(outbox, deposits, client)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	require.NoError(t, d.DispatchOnce(context.Background()))

	assert.Empty(t, outbox.dispatched)
	require.Contains(t, outbox.retries, int64(1))

	next := outbox.retries[1]
	assert.False(t, next.Before(base.Add(2*time.Second)), "retry waits at least the base backoff")
	assert.False(t, next.After(base.Add(3*time.Second)), "jitter stays within a quarter of the backoff")
}

func TestDispatchOnce_RedeliveryUsesSameTransactionID(t *testing.T) {
	entry := model.BillingOutbox{ID: 1, UserID: "user-1", CreditAmount: "5", TransactionID: "tx-1", Attempts: 1}
	outbox := &fakeOutboxStore{due: []model.BillingOutbox{entry}}
	deposits := &fakeDepositStore{}
	client := &countingBillingClient{creditID: "cr_1", failures: 1}

	d := newTestDispatcher(outbox, deposits, client)
	require.NoError(t, d.DispatchOnce(context.Background()))

	// The retry run re-claims and this time billing accepts.
	entry.Attempts = 2
	outbox.due = []model.BillingOutbox{entry}
	require.NoError(t, d.DispatchOnce(context.Background()))

	assert.Equal(t, 2, client.calls["tx-1"], "both attempts present the same idempotency key")
	assert.Equal(t, []int64{1}, outbox.dispatched)
}

func TestNextBackoff(t *testing.T) {
	base := 2 * time.Second
	cap := 5 * time.Minute

	assert.Equal(t, 2*time.Second, nextBackoff(base, cap, 1))
	assert.Equal(t, 4*time.Second, nextBackoff(base, cap, 2))
	assert.Equal(t, 8*time.Second, nextBackoff(base, cap, 3))
	assert.Equal(t, cap, nextBackoff(base, cap, 20))
	assert.Equal(t, base, nextBackoff(base, cap, 0))

	// Monotonic until the cap.
	prev := time.Duration(0)
	for attempts := 1; attempts <= 20; attempts++ {
		backoff := nextBackoff(base, cap, attempts)
		assert.GreaterOrEqual(t, backoff, prev)
		prev = backoff
	}
}

func TestJitter_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		j := jitter(4 * time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.LessOrEqual(t, j, time.Second)
	}
	assert.Zero(t, jitter(0))
}
