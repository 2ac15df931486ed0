package billing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/dwarvesf/payments-backend/internal/utils/config"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

type billingClient struct {
	client *resty.Client
	logger *logger.Logger
}

func New(appConfig *config.AppConfig, logger *logger.Logger) IBillingClient {
	client := resty.New().
		SetBaseURL(appConfig.Billing.BaseURL).
		SetTimeout(appConfig.Billing.RequestTimeout).
		SetHeader("Content-Type", "application/json")

	return &billingClient{
		client: client,
		logger: logger,
	}
}

type applyCreditRequest struct {
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

type applyCreditResponse struct {
	CreditID string `json:"credit_id"`
}

func (b *billingClient) ApplyCredit(ctx context.Context, userID, amount, transactionID string) (string, error) {
	resp, err := b.client.R().
		SetContext(ctx).
		SetBody(applyCreditRequest{
			UserID:        userID,
			Amount:        amount,
			TransactionID: transactionID,
		}).
		Post("/api/v1/credits")
	if err != nil {
		b.logger.Error("[ApplyCredit][Post]", map[string]string{
			"transactionID": transactionID,
			"error":         err.Error(),
		})
		return "", errors.Wrap(err, "failed to call billing service")
	}

	switch resp.StatusCode() {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		// 409 means the credit was already applied on a previous attempt,
		// which is a success for an idempotent enqueue.
	default:
		b.logger.Error("[ApplyCredit][Post]", map[string]string{
			"transactionID": transactionID,
			"status":        resp.Status(),
		})
		return "", errors.Errorf("billing service returned status %d", resp.StatusCode())
	}

	var body applyCreditResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", errors.Wrap(err, "failed to decode billing response")
	}
	if body.CreditID == "" {
		return "", errors.New("billing response missing credit_id")
	}

	return body.CreditID, nil
}
