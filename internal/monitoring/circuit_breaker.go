package monitoring

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dwarvesf/payments-backend/internal/billing"
	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// CircuitBreakerConfig holds the trip settings for a wrapped collaborator
type CircuitBreakerConfig struct {
	MaxRequests                 uint32
	Interval                    time.Duration
	Timeout                     time.Duration
	ConsecutiveFailureThreshold int
}

var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests:                 3,
	Interval:                    time.Minute,
	Timeout:                     30 * time.Second,
	ConsecutiveFailureThreshold: 5,
}

// CircuitBreakerBillingClient wraps billing.IBillingClient with circuit breaker functionality
type CircuitBreakerBillingClient struct {
	wrapped        billing.IBillingClient
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *PipelineMetrics
	logger         *logger.Logger
}

// NewCircuitBreakerBillingClient creates a new circuit breaker wrapper for the billing client
func NewCircuitBreakerBillingClient(wrapped billing.IBillingClient, config CircuitBreakerConfig, metrics *PipelineMetrics, logger *logger.Logger) *CircuitBreakerBillingClient {
	cb := &CircuitBreakerBillingClient{
		wrapped: wrapped,
		metrics: metrics,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        "billing",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState("billing", to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	return cb
}

func (cb *CircuitBreakerBillingClient) ApplyCredit(ctx context.Context, userID, amount, transactionID string) (string, error) {
	result, err := cb.circuitBreaker.Execute(func() (interface{}, error) {
		return cb.wrapped.ApplyCredit(ctx, userID, amount, transactionID)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
