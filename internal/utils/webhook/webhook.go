package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// Client is a simple HTTP client for making webhook calls
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a new webhook client with timeout
func New(logger *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

type alertPayload struct {
	Source        string `json:"source"`
	TransactionID string `json:"transaction_id"`
	Attempts      int    `json:"attempts"`
	Message       string `json:"message"`
}

// CallDispatchAlertWebhook posts an alert for an outbox row whose delivery
// keeps failing. Failures here are logged and swallowed, the dispatcher must
// not depend on the alert channel.
func (c *Client) CallDispatchAlertWebhook(ctx context.Context, webhookURL, transactionID string, attempts int, message string) {
	if webhookURL == "" {
		return // Skip if webhook URL is not configured
	}

	body, err := json.Marshal(alertPayload{
		Source:        "payments-backend",
		TransactionID: transactionID,
		Attempts:      attempts,
		Message:       message,
	})
	if err != nil {
		c.logger.Error("Failed to encode alert payload", map[string]string{
			"transactionID": transactionID,
			"error":         err.Error(),
		})
		return
	}

	req, err := http.NewRequestWithContext(ctx, "POST", webhookURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("Failed to create webhook request", map[string]string{
			"url":   webhookURL,
			"error": err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to call dispatch alert webhook", map[string]string{
			"url":   webhookURL,
			"error": err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	c.logger.Info("Successfully called dispatch alert webhook", map[string]string{
		"url":           webhookURL,
		"transactionID": transactionID,
		"status_code":   resp.Status,
	})
}
