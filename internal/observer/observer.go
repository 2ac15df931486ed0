package observer

import (
	"context"
	"strconv"
	"sync"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/chainrpc"
	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// CursorName identifies the observer's durable position in chain_cursors.
const CursorName = "deposit_observer"

type observer struct {
	db        *gorm.DB
	store     *store.Store
	chainRpc  chainrpc.IChainRpc
	appConfig *config.AppConfig
	logger    *logger.Logger
	metrics   *monitoring.PipelineMetrics

	doInTx        func(fn func(tx *gorm.DB) error) error
	retryAttempts uint
	retryDelay    time.Duration

	mu            sync.RWMutex
	knownAccounts map[string]struct{}
	loaded        bool
}

func New(db *gorm.DB, s *store.Store, chainRpc chainrpc.IChainRpc, appConfig *config.AppConfig, logger *logger.Logger, metrics *monitoring.PipelineMetrics) IObserver {
	o := &observer{
		db:            db,
		store:         s,
		chainRpc:      chainRpc,
		appConfig:     appConfig,
		logger:        logger,
		metrics:       metrics,
		knownAccounts: make(map[string]struct{}),
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
	o.doInTx = func(fn func(tx *gorm.DB) error) error {
		return store.DoInTx(db, fn)
	}
	return o
}

func (o *observer) Run(ctx context.Context) {
	if err := o.RefreshKnownAccounts(); err != nil {
		o.logger.Error("[Run][RefreshKnownAccounts]", map[string]string{"error": err.Error()})
	}

	ticker := time.NewTicker(o.appConfig.Chain.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("[Run][Done] observer stopped", nil)
			return
		case <-ticker.C:
			if err := o.ObserveOnce(ctx); err != nil {
				o.logger.Error("[Run][ObserveOnce]", map[string]string{"error": err.Error()})
			}
		}
	}
}

// ObserveOnce walks every finalized block between the durable cursor and the
// feed head. Each block's deposits and the cursor advance commit in one
// transaction so a crash never skips or replays a block's effects.
//
// The cursor must never move while the known-account set is unloaded, or a
// deposit arriving in that window would be filtered out and skipped for good.
func (o *observer) ObserveOnce(ctx context.Context) error {
	if !o.accountsLoaded() {
		if err := o.RefreshKnownAccounts(); err != nil {
			return errors.Wrap(err, "known accounts not loaded")
		}
	}

	cursor, err := o.cursorHeight()
	if err != nil {
		return errors.Wrap(err, "failed to load cursor")
	}

	head, err := o.chainRpc.GetFinalizedHeight()
	if err != nil {
		return errors.Wrap(err, "failed to get finalized height")
	}
	if head <= cursor {
		return nil
	}

	for block := cursor + 1; block <= head; block++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := o.observeBlock(block); err != nil {
			return errors.Wrapf(err, "failed to observe block %d", block)
		}
	}

	return nil
}

func (o *observer) observeBlock(block uint64) error {
	var events []chainrpc.TransferEvent
	err := retry.Do(
		func() error {
			var err error
			events, err = o.chainRpc.GetTransferEvents(block)
			return err
		},
		retry.Attempts(o.retryAttempts),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			o.logger.Info("[observeBlock][Retry]", map[string]string{
				"block": strconv.FormatUint(block, 10),
				"error": err.Error(),
			})
		}),
	)
	if err != nil {
		return errors.Wrap(err, "failed to fetch transfer events")
	}

	deposits := make([]*model.ObservedDeposit, 0, len(events))
	for _, event := range events {
		if err := event.Validate(); err != nil {
			o.metrics.RecordMalformedEvent()
			o.logger.Error("[observeBlock][Validate] skipping malformed event", map[string]string{
				"block":      strconv.FormatUint(block, 10),
				"eventIndex": strconv.Itoa(event.EventIndex),
				"error":      err.Error(),
			})
			continue
		}
		if !o.isKnownAccount(event.To) {
			continue
		}

		deposits = append(deposits, &model.ObservedDeposit{
			BlockNumber: int64(event.BlockNumber),
			EventIndex:  event.EventIndex,
			ToAccount:   event.To,
			FromAccount: event.From,
			Amount:      event.Amount,
			Status:      model.DepositStatusFinalized,
		})
	}

	return o.doInTx(func(tx *gorm.DB) error {
		for _, deposit := range deposits {
			inserted, err := o.store.ObservedDeposit.CreateIfAbsent(tx, deposit)
			if err != nil {
				return err
			}
			if inserted {
				o.metrics.RecordDepositObserved()
				o.logger.Info("[observeBlock][CreateIfAbsent] recorded deposit", map[string]string{
					"block":      strconv.FormatInt(deposit.BlockNumber, 10),
					"eventIndex": strconv.Itoa(deposit.EventIndex),
					"toAccount":  deposit.ToAccount,
					"amount":     deposit.Amount,
				})
			}
		}
		return o.store.ChainCursor.Upsert(tx, CursorName, block)
	})
}

func (o *observer) cursorHeight() (uint64, error) {
	cursor, err := o.store.ChainCursor.Get(o.db, CursorName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if o.appConfig.Chain.StartBlock > 0 {
				return o.appConfig.Chain.StartBlock - 1, nil
			}
			return 0, nil
		}
		return 0, err
	}
	return cursor.Height, nil
}

func (o *observer) RefreshKnownAccounts() error {
	accountIDs, err := o.store.DepositAccount.ListAccountIDs(o.db)
	if err != nil {
		return errors.Wrap(err, "failed to list account ids")
	}

	next := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		next[id] = struct{}{}
	}

	o.mu.Lock()
	o.knownAccounts = next
	o.loaded = true
	o.mu.Unlock()
	return nil
}

func (o *observer) accountsLoaded() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.loaded
}

func (o *observer) AddKnownAccount(accountID string) {
	o.mu.Lock()
	o.knownAccounts[accountID] = struct{}{}
	o.mu.Unlock()
}

func (o *observer) isKnownAccount(accountID string) bool {
	o.mu.RLock()
	_, ok := o.knownAccounts[accountID]
	o.mu.RUnlock()
	return ok
}
