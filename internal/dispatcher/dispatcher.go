package dispatcher

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/billing"
	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
	"github.com/dwarvesf/payments-backend/internal/utils/webhook"
)

type dispatcher struct {
	db            *gorm.DB
	store         *store.Store
	billingClient billing.IBillingClient
	appConfig     *config.AppConfig
	logger        *logger.Logger
	metrics       *monitoring.PipelineMetrics
	webhookClient *webhook.Client

	doInTx func(fn func(tx *gorm.DB) error) error
	now    func() time.Time
}

func New(db *gorm.DB, s *store.Store, billingClient billing.IBillingClient, appConfig *config.AppConfig, logger *logger.Logger, metrics *monitoring.PipelineMetrics, webhookClient *webhook.Client) IDispatcher {
	d := &dispatcher{
		db:            db,
		store:         s,
		billingClient: billingClient,
		appConfig:     appConfig,
		logger:        logger,
		metrics:       metrics,
		webhookClient: webhookClient,
		now:           time.Now,
	}
	d.doInTx = func(fn func(tx *gorm.DB) error) error {
		return store.DoInTx(db, fn)
	}
	return d
}

func (d *dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.appConfig.Dispatcher.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("[Run][Done] dispatcher stopped", nil)
			return
		case <-ticker.C:
			if err := d.DispatchOnce(ctx); err != nil {
				d.logger.Error("[Run][DispatchOnce]", map[string]string{"error": err.Error()})
			}
		}
	}
}

// DispatchOnce claims one batch of due outbox rows and delivers them.
// Delivery is at-least-once; billing deduplicates on transaction_id, so a
// crash between the billing call and MarkDispatched only costs a redundant
// re-send.
func (d *dispatcher) DispatchOnce(ctx context.Context) error {
	claimed, err := d.store.BillingOutbox.ClaimDue(d.db, d.appConfig.Dispatcher.BatchSize, d.appConfig.Dispatcher.LeaseTimeout)
	if err != nil {
		return errors.Wrap(err, "failed to claim outbox rows")
	}

	for i := range claimed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d.dispatch(ctx, &claimed[i])
	}

	if pending, err := d.store.BillingOutbox.PendingCount(d.db); err == nil {
		d.metrics.SetOutboxQueueDepth(pending)
	}

	return nil
}

func (d *dispatcher) dispatch(ctx context.Context, entry *model.BillingOutbox) {
	creditID, err := d.billingClient.ApplyCredit(ctx, entry.UserID, entry.CreditAmount, entry.TransactionID)
	if err != nil {
		d.handleFailure(ctx, entry, err)
		return
	}

	err = d.doInTx(func(tx *gorm.DB) error {
		if err := d.store.BillingOutbox.MarkDispatched(tx, entry.ID); err != nil {
			return err
		}
		return d.store.ObservedDeposit.SetBillingCreditID(tx, entry.TransactionID, creditID)
	})
	if err != nil {
		d.logger.Error("[dispatch][MarkDispatched]", map[string]string{
			"transactionID": entry.TransactionID,
			"error":         err.Error(),
		})
		return
	}

	d.metrics.RecordCreditDispatched()
	d.logger.Info("[dispatch][Done] credit delivered", map[string]string{
		"transactionID": entry.TransactionID,
		"creditID":      creditID,
		"attempts":      strconv.Itoa(entry.Attempts),
	})
}

func (d *dispatcher) handleFailure(ctx context.Context, entry *model.BillingOutbox, cause error) {
	d.metrics.RecordDispatchFailure()

	backoff := nextBackoff(d.appConfig.Dispatcher.BackoffBase, d.appConfig.Dispatcher.BackoffCap, entry.Attempts)
	nextAttemptAt := d.now().Add(backoff + jitter(backoff))

	if err := d.store.BillingOutbox.ScheduleRetry(d.db, entry.ID, nextAttemptAt); err != nil {
		d.logger.Error("[handleFailure][ScheduleRetry]", map[string]string{
			"transactionID": entry.TransactionID,
			"error":         err.Error(),
		})
		return
	}

	d.logger.Error("[handleFailure][Retry] dispatch failed", map[string]string{
		"transactionID": entry.TransactionID,
		"attempts":      strconv.Itoa(entry.Attempts),
		"backoff":       backoff.String(),
		"error":         cause.Error(),
	})

	if entry.Attempts >= d.appConfig.Dispatcher.AlertThreshold {
		d.webhookClient.CallDispatchAlertWebhook(
			ctx,
			d.appConfig.ApiServer.AlertWebhookURL,
			entry.TransactionID,
			entry.Attempts,
			cause.Error(),
		)
	}
}
