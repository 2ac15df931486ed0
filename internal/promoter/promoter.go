package promoter

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/monitoring"
	"github.com/dwarvesf/payments-backend/internal/oracle"
	"github.com/dwarvesf/payments-backend/internal/store"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// TransactionID builds the idempotency key billing uses to deduplicate
// credits. It is fully determined by the on-chain event, so re-promoting the
// same deposit can never mint a second key.
func TransactionID(blockNumber int64, eventIndex int, toAccount string) string {
	return fmt.Sprintf("b%d#e%d#%s", blockNumber, eventIndex, toAccount)
}

type promoter struct {
	db        *gorm.DB
	store     *store.Store
	oracle    oracle.IOracle
	appConfig *config.AppConfig
	logger    *logger.Logger
	metrics   *monitoring.PipelineMetrics

	doInTx        func(fn func(tx *gorm.DB) error) error
	dustThreshold *big.Int
}

func New(db *gorm.DB, s *store.Store, o oracle.IOracle, appConfig *config.AppConfig, logger *logger.Logger, metrics *monitoring.PipelineMetrics) (IPromoter, error) {
	dust, ok := new(big.Int).SetString(appConfig.Promoter.DustThreshold, 10)
	if !ok || dust.Sign() < 0 {
		return nil, errors.Errorf("invalid dust threshold %q", appConfig.Promoter.DustThreshold)
	}

	p := &promoter{
		db:            db,
		store:         s,
		oracle:        o,
		appConfig:     appConfig,
		logger:        logger,
		metrics:       metrics,
		dustThreshold: dust,
	}
	p.doInTx = func(fn func(tx *gorm.DB) error) error {
		return store.DoInTx(db, fn)
	}
	return p, nil
}

// PromoteOnce processes one batch of FINALIZED deposits. The whole pass is
// deferred when the price snapshot is older than the configured bound, so a
// dead feed can never price credits off a stale rate.
func (p *promoter) PromoteOnce() error {
	snapshot, err := p.oracle.GetRate()
	if err != nil {
		p.metrics.RecordStalePriceDeferral()
		p.logger.Info("[PromoteOnce][GetRate] deferring pass, no rate", map[string]string{
			"error": err.Error(),
		})
		return nil
	}
	if age := snapshot.Age(); age > p.appConfig.PriceOracle.MaxPriceAge {
		p.metrics.RecordStalePriceDeferral()
		p.logger.Info("[PromoteOnce][Age] deferring pass, stale rate", map[string]string{
			"age":    age.String(),
			"maxAge": p.appConfig.PriceOracle.MaxPriceAge.String(),
		})
		return nil
	}

	deposits, err := p.store.ObservedDeposit.ListFinalized(p.db, p.appConfig.Promoter.BatchSize)
	if err != nil {
		return errors.Wrap(err, "failed to list finalized deposits")
	}

	for i := range deposits {
		if err := p.promote(&deposits[i], snapshot.Rate); err != nil {
			p.logger.Error("[PromoteOnce][promote]", map[string]string{
				"block":      strconv.FormatInt(deposits[i].BlockNumber, 10),
				"eventIndex": strconv.Itoa(deposits[i].EventIndex),
				"error":      err.Error(),
			})
			return err
		}
	}

	return nil
}

func (p *promoter) promote(deposit *model.ObservedDeposit, rate decimal.Decimal) error {
	amount, ok := new(big.Int).SetString(deposit.Amount, 10)
	if !ok {
		return errors.Errorf("invalid stored amount %q", deposit.Amount)
	}

	if p.dustThreshold.Sign() > 0 && amount.Cmp(p.dustThreshold) < 0 {
		// Park it out of the scan window, or accumulated dust eventually
		// fills every batch and newer deposits starve.
		if _, err := p.store.ObservedDeposit.MarkDust(p.db, deposit.BlockNumber, deposit.EventIndex); err != nil {
			return errors.Wrap(err, "failed to mark dust deposit")
		}
		p.logger.Info("[promote][Dust] skipping dust deposit", map[string]string{
			"block":  strconv.FormatInt(deposit.BlockNumber, 10),
			"amount": deposit.Amount,
		})
		return nil
	}

	creditAmount := p.toFiat(amount, rate)
	transactionID := TransactionID(deposit.BlockNumber, deposit.EventIndex, deposit.ToAccount)

	account, err := p.store.DepositAccount.GetByAccountID(p.db, deposit.ToAccount)
	if err != nil {
		return errors.Wrapf(err, "no deposit account for %s", deposit.ToAccount)
	}

	err = p.doInTx(func(tx *gorm.DB) error {
		credited, err := p.store.ObservedDeposit.MarkCredited(tx, deposit.BlockNumber, deposit.EventIndex, time.Now())
		if err != nil {
			return err
		}
		if !credited {
			// A concurrent pass got here first.
			return nil
		}

		return p.store.BillingOutbox.Enqueue(tx, &model.BillingOutbox{
			UserID:        account.UserID,
			Amount:        deposit.Amount,
			CreditAmount:  creditAmount.String(),
			TransactionID: transactionID,
			NextAttemptAt: time.Now(),
		})
	})
	if err != nil {
		return err
	}

	p.metrics.RecordDepositCredited()
	p.logger.Info("[promote][Enqueue] credited deposit", map[string]string{
		"transactionID": transactionID,
		"userID":        account.UserID,
		"creditAmount":  creditAmount.String(),
	})
	return nil
}

// toFiat converts smallest on-chain units to a fiat amount, truncating toward
// zero at the configured precision so rounding can never credit more than the
// deposit is worth.
func (p *promoter) toFiat(amount *big.Int, rate decimal.Decimal) decimal.Decimal {
	tokens := decimal.NewFromBigInt(amount, 0).Shift(int32(-p.appConfig.Chain.TokenDecimals))
	return tokens.Mul(rate).Truncate(p.appConfig.Promoter.FiatPrecision)
}
