package monitoring

import (
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dwarvesf/payments-backend/internal/utils/logger"
)

// BackgroundJobMetrics tracks the periodic jobs driven by cron
type BackgroundJobMetrics struct {
	jobDuration *prometheus.HistogramVec
	jobRuns     *prometheus.CounterVec
}

func NewBackgroundJobMetrics() *BackgroundJobMetrics {
	return &BackgroundJobMetrics{
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payments_backend_job_duration_seconds",
				Help:    "Duration of background job runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job_name", "status"},
		),
		jobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payments_backend_job_runs_total",
				Help: "Total number of background job runs",
			},
			[]string{"job_name", "status"},
		),
	}
}

// MustRegister registers all metrics with the provided registry
func (m *BackgroundJobMetrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(m.jobDuration, m.jobRuns)
}

// InstrumentJob wraps a cron job func with duration/outcome metrics and
// panic recovery so one bad run cannot kill the scheduler.
func (m *BackgroundJobMetrics) InstrumentJob(jobName string, logger *logger.Logger, fn func() error) func() {
	return func() {
		start := time.Now()
		status := "success"

		defer func() {
			if r := recover(); r != nil {
				status = "panic"
				logger.Error("[InstrumentJob][Recover]", map[string]string{
					"job":   jobName,
					"panic": string(debug.Stack()),
				})
			}
			m.jobDuration.WithLabelValues(jobName, status).Observe(time.Since(start).Seconds())
			m.jobRuns.WithLabelValues(jobName, status).Inc()
		}()

		if err := fn(); err != nil {
			status = "failed"
			logger.Error("[InstrumentJob][Run]", map[string]string{
				"job":   jobName,
				"error": err.Error(),
			})
		}
	}
}
