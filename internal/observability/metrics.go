// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coinpulse/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pipeline metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	RecordsLoaded prometheus.Counter

	// Quality metrics
	CheckResults *prometheus.CounterVec

	// Extraction metrics
	SnapshotsFetched  prometheus.Counter
	ProviderErrors    *prometheus.CounterVec
	SnapshotsArchived prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "coinpulse"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of transform runs by batch status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Transform run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RecordsLoaded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "records_loaded_total",
			Help:      "Total number of warehouse records written",
		}),
		CheckResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quality",
			Name:      "check_results_total",
			Help:      "Total number of quality check outcomes by check and status",
		}, []string{"check", "status"}),
		SnapshotsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "snapshots_fetched_total",
			Help:      "Total number of snapshots fetched from the provider",
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "provider_errors_total",
			Help:      "Total number of provider request errors by endpoint",
		}, []string{"endpoint"}),
		SnapshotsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extract",
			Name:      "snapshots_archived_total",
			Help:      "Total number of snapshot rows written to the archive",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records one transform run outcome.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordLoaded adds to the loaded-records counter.
func RecordLoaded(count int) {
	DefaultMetrics.RecordsLoaded.Add(float64(count))
}

// RecordChecks records every check outcome in a validation report.
func RecordChecks(report domain.ValidationReport) {
	for _, c := range report.Checks {
		DefaultMetrics.CheckResults.WithLabelValues(c.Name, string(c.Status)).Inc()
	}
}

// RecordSnapshotsFetched adds to the fetched-snapshots counter.
func RecordSnapshotsFetched(count int) {
	DefaultMetrics.SnapshotsFetched.Add(float64(count))
}

// RecordProviderError records a provider request error.
func RecordProviderError(endpoint string) {
	DefaultMetrics.ProviderErrors.WithLabelValues(endpoint).Inc()
}

// RecordSnapshotsArchived adds to the archived-snapshots counter.
func RecordSnapshotsArchived(count int) {
	DefaultMetrics.SnapshotsArchived.Add(float64(count))
}
