// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Resolver metrics
	ValidatorsResolved   prometheus.Counter
	ValidatorsUnresolved prometheus.Counter
	StatusBatchesFailed  prometheus.Counter

	// Aggregation metrics
	BatchesProcessed  prometheus.Counter
	BatchesFailed     prometheus.Counter
	ExtendedSearches  prometheus.Counter
	PresetZeroApplied prometheus.Counter

	// Store metrics
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec

	// Output metrics
	ReportsGenerated   *prometheus.CounterVec
	SnapshotsCollected prometheus.Counter
	FusakaDeathsActive prometheus.Gauge

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "rocketpool_performance"
	}

	return &Metrics{
		// Resolver metrics
		ValidatorsResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "validators_resolved_total",
			Help:      "Total number of public keys resolved to validator ids",
		}),
		ValidatorsUnresolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "validators_unresolved_total",
			Help:      "Total number of public keys absent from the index",
		}),
		StatusBatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "status_batches_failed_total",
			Help:      "Total number of status lookup batches that failed",
		}),

		// Aggregation metrics
		BatchesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "batches_processed_total",
			Help:      "Total number of aggregation batches processed",
		}),
		BatchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "batches_failed_total",
			Help:      "Total number of aggregation batches that failed",
		}),
		ExtendedSearches: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "extended_searches_total",
			Help:      "Total number of extended history searches performed",
		}),
		PresetZeroApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "preset_zero_applied_total",
			Help:      "Total number of validators scored zero for in-window silence",
		}),

		// Store metrics
		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Store query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of store query errors",
		}, []string{"operation"}),

		// Output metrics
		ReportsGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated by period and threshold",
		}, []string{"period", "threshold"}),
		SnapshotsCollected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "snapshots_collected_total",
			Help:      "Total number of daily snapshots collected",
		}),
		FusakaDeathsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "output",
			Name:      "fork_deaths_active",
			Help:      "Current number of tracked post-fork dead validators",
		}),

		// Health metrics
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBatch records a processed or failed aggregation batch. Nil-safe so
// callers can run without metrics wired.
func (m *Metrics) RecordBatch(failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.BatchesFailed.Inc()
		return
	}
	m.BatchesProcessed.Inc()
}

// RecordPresetZero records one validator scored zero for in-window silence.
func (m *Metrics) RecordPresetZero() {
	if m == nil {
		return
	}
	m.PresetZeroApplied.Inc()
}

// RecordExtendedSearch records one extended history search query.
func (m *Metrics) RecordExtendedSearch() {
	if m == nil {
		return
	}
	m.ExtendedSearches.Inc()
}

// RecordResolution records index resolution counts.
func (m *Metrics) RecordResolution(resolved, unresolved int) {
	if m == nil {
		return
	}
	m.ValidatorsResolved.Add(float64(resolved))
	m.ValidatorsUnresolved.Add(float64(unresolved))
}

// RecordQuery records a store query's duration and outcome.
func (m *Metrics) RecordQuery(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(operation).Observe(seconds)
	if err != nil {
		m.QueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordReport records one generated report.
func (m *Metrics) RecordReport(period, threshold string) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(period, threshold).Inc()
}

// RecordSnapshot records one collected daily snapshot.
func (m *Metrics) RecordSnapshot() {
	if m == nil {
		return
	}
	m.SnapshotsCollected.Inc()
}
