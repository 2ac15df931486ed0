package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
)

// PipelineMetrics contains all metrics for the deposit pipeline
type PipelineMetrics struct {
	// Observed finalized deposits counter
	depositsObserved prometheus.Counter

	// Malformed feed events counter
	malformedEvents prometheus.Counter

	// Deposits promoted to CREDITED counter
	depositsCredited prometheus.Counter

	// Promoter passes skipped because the price snapshot was too old
	stalePriceDeferrals prometheus.Counter

	// Outbox rows successfully dispatched to billing
	creditsDispatched prometheus.Counter

	// Failed dispatch attempt counter
	dispatchFailures prometheus.Counter

	// Undispatched outbox rows gauge
	outboxQueueDepth prometheus.Gauge

	// Circuit breaker state gauge
	circuitBreakerState *prometheus.GaugeVec
}

// NewPipelineMetrics creates a new instance of pipeline metrics
func NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		depositsObserved: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_deposits_observed_total",
				Help: "Total number of finalized deposits recorded by the observer",
			},
		),

		malformedEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_malformed_events_total",
				Help: "Total number of feed events skipped as malformed",
			},
		),

		depositsCredited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_deposits_credited_total",
				Help: "Total number of deposits promoted to CREDITED",
			},
		),

		stalePriceDeferrals: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_stale_price_deferrals_total",
				Help: "Total number of promoter passes deferred on a stale price snapshot",
			},
		),

		creditsDispatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_credits_dispatched_total",
				Help: "Total number of outbox credits delivered to billing",
			},
		),

		dispatchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "payments_backend_dispatch_failures_total",
				Help: "Total number of failed dispatch attempts",
			},
		),

		outboxQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "payments_backend_outbox_queue_depth",
				Help: "Number of outbox rows not yet dispatched",
			},
		),

		circuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "payments_backend_circuit_breaker_state",
				Help: "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
	}
}

// MustRegister registers all metrics with the provided registry
func (m *PipelineMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.depositsObserved,
		m.malformedEvents,
		m.depositsCredited,
		m.stalePriceDeferrals,
		m.creditsDispatched,
		m.dispatchFailures,
		m.outboxQueueDepth,
		m.circuitBreakerState,
	)
}

func (m *PipelineMetrics) RecordDepositObserved()     { m.depositsObserved.Inc() }
func (m *PipelineMetrics) RecordMalformedEvent()      { m.malformedEvents.Inc() }
func (m *PipelineMetrics) RecordDepositCredited()     { m.depositsCredited.Inc() }
func (m *PipelineMetrics) RecordStalePriceDeferral()  { m.stalePriceDeferrals.Inc() }
func (m *PipelineMetrics) RecordCreditDispatched()    { m.creditsDispatched.Inc() }
func (m *PipelineMetrics) RecordDispatchFailure()     { m.dispatchFailures.Inc() }
func (m *PipelineMetrics) SetOutboxQueueDepth(n int64) { m.outboxQueueDepth.Set(float64(n)) }

// UpdateCircuitBreakerState updates the circuit breaker state metric
func (m *PipelineMetrics) UpdateCircuitBreakerState(service string, state gobreaker.State) {
	m.circuitBreakerState.WithLabelValues(service).Set(float64(state))
}
