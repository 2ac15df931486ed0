package chainrpc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

const maxRetries = 3

type chainRpc struct {
	baseURL    string
	client     *http.Client
	logger     *logger.Logger
	retryDelay time.Duration
}

func New(cfg *config.AppConfig, logger *logger.Logger) IChainRpc {
	return &chainRpc{
		baseURL:    cfg.Chain.NodeAPIURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
		retryDelay: time.Second,
	}
}

func (c *chainRpc) GetFinalizedHeight() (uint64, error) {
	body, err := c.get(fmt.Sprintf("%s/v1/blocks/finalized/head", c.baseURL), "GetFinalizedHeight")
	if err != nil {
		return 0, err
	}

	var head finalizedHeadResponse
	if err := json.Unmarshal(body, &head); err != nil {
		return 0, fmt.Errorf("failed to parse finalized head: %v", err)
	}

	return head.Height, nil
}

func (c *chainRpc) GetTransferEvents(blockNumber uint64) ([]TransferEvent, error) {
	url := fmt.Sprintf("%s/v1/blocks/%d/transfers", c.baseURL, blockNumber)
	body, err := c.get(url, "GetTransferEvents")
	if err != nil {
		return nil, err
	}

	var events []TransferEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to parse transfer events: %v", err)
	}

	for i := range events {
		events[i].BlockNumber = blockNumber
	}

	return events, nil
}

func (c *chainRpc) get(url, caller string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		resp, err := c.client.Get(url)
		if err != nil {
			lastErr = fmt.Errorf("failed to request chain node: %v", err)
			c.logger.Error(fmt.Sprintf("[%s][client.Get]", caller), map[string]string{
				"error":   err.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * c.retryDelay)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %v", err)
			c.logger.Error(fmt.Sprintf("[%s][io.ReadAll]", caller), map[string]string{
				"error":   err.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("status code: %v, chain node request failed: %s", resp.StatusCode, string(body))

			// 4xx other than rate limiting will not heal on retry
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return nil, lastErr
			}

			c.logger.Error(fmt.Sprintf("[%s] chain node error", caller), map[string]string{
				"statusCode": strconv.Itoa(resp.StatusCode),
				"attempt":    strconv.Itoa(attempt),
			})
			time.Sleep(time.Duration(attempt) * c.retryDelay)
			continue
		}

		return body, nil
	}

	return nil, lastErr
}
