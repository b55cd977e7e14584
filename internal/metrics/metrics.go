// Package metrics exposes Prometheus metrics for archive runs. Because the
// archiver is a short-lived batch process, metrics are pushed to a
// Pushgateway at run end rather than scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunMetrics holds the per-run metric instruments.
type RunMetrics struct {
	unitsArchived    *prometheus.CounterVec
	unitsFailed      *prometheus.CounterVec
	suppliersSkipped prometheus.Counter
	stageDuration    *prometheus.HistogramVec
}

// NewRunMetrics creates and registers the run metrics against reg.
func NewRunMetrics(reg prometheus.Registerer) (*RunMetrics, error) {
	m := &RunMetrics{
		unitsArchived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_units_archived_total",
				Help: "Batch units whose pipeline completed.",
			},
			[]string{"supplier"},
		),
		unitsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_units_failed_total",
				Help: "Batch units whose pipeline failed, by failing stage.",
			},
			[]string{"supplier", "stage"},
		),
		suppliersSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "archiver_suppliers_skipped_total",
				Help: "Directories skipped because the supplier is not allow-listed.",
			},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_stage_duration_seconds",
				Help:    "Duration of pipeline stages.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"stage"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.unitsArchived, m.unitsFailed, m.suppliersSkipped, m.stageDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// UnitArchived counts a completed unit (uploaded or preserved locally).
func (m *RunMetrics) UnitArchived(supplier string) {
	m.unitsArchived.WithLabelValues(supplier).Inc()
}

// UnitFailed counts a failed unit by its failing stage.
func (m *RunMetrics) UnitFailed(supplier, stage string) {
	m.unitsFailed.WithLabelValues(supplier, stage).Inc()
}

// SupplierSkipped counts an unknown-supplier directory.
func (m *RunMetrics) SupplierSkipped() {
	m.suppliersSkipped.Inc()
}

// ObserveStage records a stage duration in seconds.
func (m *RunMetrics) ObserveStage(stage string, seconds float64) {
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}

// Push sends everything gathered by g to a Pushgateway. Call once at the end
// of a run; a push failure must not fail the run.
func Push(url string, g prometheus.Gatherer) error {
	return push.New(url, "batcharchive").Gatherer(g).Push()
}
