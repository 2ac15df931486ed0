package oracle

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/payments-backend/internal/model"
	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

type priceOracle struct {
	client    *resty.Client
	appConfig *config.AppConfig
	logger    *logger.Logger

	mu       sync.RWMutex
	snapshot *model.PriceSnapshot
}

func New(appConfig *config.AppConfig, logger *logger.Logger) IOracle {
	client := resty.New().
		SetBaseURL(appConfig.PriceOracle.FeedURL).
		SetTimeout(appConfig.PriceOracle.RequestTimeout)

	return &priceOracle{
		client:    client,
		appConfig: appConfig,
		logger:    logger,
	}
}

// Refresh fetches the current rate from the feed and replaces the cached
// snapshot. On failure the previous snapshot stays in place.
func (p *priceOracle) Refresh() error {
	assetID := p.appConfig.PriceOracle.AssetID
	currency := p.appConfig.PriceOracle.Currency

	resp, err := p.client.R().
		SetQueryParam("ids", assetID).
		SetQueryParam("vs_currencies", currency).
		Get("/simple/price")
	if err != nil {
		p.logger.Error("[Refresh][Get]", map[string]string{"error": err.Error()})
		return errors.Wrap(err, "failed to fetch price feed")
	}
	if resp.StatusCode() != 200 {
		p.logger.Error("[Refresh][Get]", map[string]string{"status": resp.Status()})
		return errors.Errorf("price feed returned status %d", resp.StatusCode())
	}

	var payload map[string]map[string]json.Number
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return errors.Wrap(err, "failed to decode price feed response")
	}

	raw, ok := payload[assetID][currency]
	if !ok {
		return errors.Errorf("price feed response missing %s/%s", assetID, currency)
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return errors.Wrapf(err, "invalid rate %q", raw.String())
	}
	if rate.Sign() <= 0 {
		return errors.Errorf("non-positive rate %s", rate)
	}

	p.mu.Lock()
	p.snapshot = &model.PriceSnapshot{Rate: rate, FetchedAt: time.Now()}
	p.mu.Unlock()

	p.logger.Info("[Refresh][Done]", map[string]string{
		"rate": rate.String(),
		"pair": fmt.Sprintf("%s/%s", assetID, currency),
	})
	return nil
}

// GetRate returns the last good snapshot regardless of age. Callers decide
// whether the snapshot is fresh enough for their purpose via Age().
func (p *priceOracle) GetRate() (*model.PriceSnapshot, error) {
	p.mu.RLock()
	snapshot := p.snapshot
	p.mu.RUnlock()

	if snapshot == nil {
		return nil, errors.New("no price snapshot available yet")
	}
	return snapshot, nil
}
