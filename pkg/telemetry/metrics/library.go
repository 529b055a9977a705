package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/carepath/pkg/config"
)

// LibraryMetrics tracks condition library loading.
type LibraryMetrics struct {
	reloadsTotal     *prometheus.CounterVec
	librariesLoaded  prometheus.Gauge
	conditionsLoaded prometheus.Gauge
}

// NewLibraryMetrics creates and registers library metrics with the provided
// registry.
func NewLibraryMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *LibraryMetrics {
	lm := &LibraryMetrics{
		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "library_reloads_total",
				Help:      "Total number of library reloads by result",
			},
			[]string{"result"},
		),
		librariesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "libraries_loaded",
			Help:      "Number of condition libraries currently loaded",
		}),
		conditionsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "conditions_loaded",
			Help:      "Number of named conditions currently loaded",
		}),
	}

	registry.MustRegister(lm.reloadsTotal, lm.librariesLoaded, lm.conditionsLoaded)
	return lm
}

// RecordReload records a reload attempt. Gauges are updated only on success.
func (lm *LibraryMetrics) RecordReload(err error, libraries, conditions int) {
	if err != nil {
		lm.reloadsTotal.WithLabelValues("failure").Inc()
		return
	}
	lm.reloadsTotal.WithLabelValues("success").Inc()
	lm.librariesLoaded.Set(float64(libraries))
	lm.conditionsLoaded.Set(float64(conditions))
}
