package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/carepath/pkg/config"
)

// EvaluationMetrics tracks condition evaluations.
type EvaluationMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	auditFailures      prometheus.Counter
}

// NewEvaluationMetrics creates and registers evaluation metrics with the
// provided registry.
func NewEvaluationMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *EvaluationMetrics {
	em := &EvaluationMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluations_total",
				Help:      "Total number of condition evaluations",
			},
			[]string{"condition", "kind", "outcome"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of condition evaluation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"kind"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "evaluation_errors_total",
				Help:      "Total number of failed condition evaluations by error code",
			},
			[]string{"kind", "error"},
		),

		auditFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "audit_write_failures_total",
				Help:      "Total number of audit records that could not be stored",
			},
		),
	}

	registry.MustRegister(
		em.evaluationsTotal,
		em.evaluationDuration,
		em.errorsTotal,
		em.auditFailures,
	)

	return em
}

// Record records a completed evaluation.
func (em *EvaluationMetrics) Record(condition, kind, outcome string, duration time.Duration) {
	em.evaluationsTotal.WithLabelValues(condition, kind, outcome).Inc()
	em.evaluationDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordError records a failed evaluation.
func (em *EvaluationMetrics) RecordError(kind, code string) {
	em.errorsTotal.WithLabelValues(kind, code).Inc()
}
