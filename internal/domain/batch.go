package domain

import "time"

// BatchStatus classifies a transform run outcome.
type BatchStatus string

const (
	// BatchAdmitted means every check passed; the batch may be loaded.
	BatchAdmitted BatchStatus = "admitted"
	// BatchAdmittedWithWarnings means only warn-level checks fired; the batch
	// may be loaded, warnings go into the audit trail.
	BatchAdmittedWithWarnings BatchStatus = "admitted_with_warnings"
	// BatchRejected means a critical check failed; the batch must not be loaded.
	BatchRejected BatchStatus = "rejected"
)

// Admissible reports whether the batch may be handed to the loader.
func (s BatchStatus) Admissible() bool {
	return s == BatchAdmitted || s == BatchAdmittedWithWarnings
}

// TransformBatch is one date's worth of transform output: derived metrics for
// every coin in the universe, the correlation set, and the validation report.
// A batch is admitted or rejected as a whole; there is no per-coin admission.
type TransformBatch struct {
	MetricDate   time.Time
	Snapshots    []Snapshot // current snapshots, coin id ASC
	Metrics      []DerivedMetrics
	Correlations []CorrelationEntry
	Report       ValidationReport
	Status       BatchStatus
}

// LoadResult reports what the loader did with an admitted batch.
type LoadResult struct {
	CoinsUpserted        int
	MetricsInserted      int
	MetricsUpdated       int
	CorrelationsReplaced int
}

// Total returns the total number of warehouse records written.
func (r LoadResult) Total() int {
	return r.MetricsInserted + r.MetricsUpdated + r.CorrelationsReplaced
}

// RunAudit is the per-run audit record, one row per pipeline execution.
type RunAudit struct {
	RunID           string // uuid
	RunTimestamp    time.Time
	MetricDate      time.Time
	Status          BatchStatus
	CoinsProcessed  int
	RecordsInserted int
	RecordsUpdated  int
	Duration        time.Duration
	ReportJSON      string // serialized ValidationReport
	ErrorMessage    string // empty on success
}
