package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
	"coinpulse/internal/load"
	"coinpulse/internal/observability"
	"coinpulse/internal/snapshotsource"
	"coinpulse/internal/storage"
)

// Runner executes one end-to-end run: fetch snapshots, archive them, build
// lookback series, transform, validate, load the admitted batch, and write
// the audit record. The transform core itself stays free of I/O; all of it
// happens here at the edges.
type Runner struct {
	source      snapshotsource.Source
	archive     storage.SnapshotArchive
	auditStore  storage.AuditStore
	transformer *Transformer
	loader      *load.Loader

	universe     []string
	lookbackDays int
	logger       zerolog.Logger
	now          func() time.Time
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Source       snapshotsource.Source
	Archive      storage.SnapshotArchive
	AuditStore   storage.AuditStore
	Transformer  *Transformer
	Loader       *load.Loader
	Universe     []string
	LookbackDays int
	Logger       zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	return &Runner{
		source:       opts.Source,
		archive:      opts.Archive,
		auditStore:   opts.AuditStore,
		transformer:  opts.Transformer,
		loader:       opts.Loader,
		universe:     opts.Universe,
		lookbackDays: opts.LookbackDays,
		logger:       opts.Logger,
		now:          time.Now,
	}
}

// WithClock replaces the clock, for deterministic tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// RunSummary reports one run's outcome.
type RunSummary struct {
	RunID      string
	Status     domain.BatchStatus
	Load       *domain.LoadResult // nil for rejected runs
	Report     domain.ValidationReport
	Duration   time.Duration
	MetricDate time.Time
}

// RunOnce executes a full run for the given date. A rejected batch is not an
// error: the summary carries the status and full report so the caller can
// alert or retry. Structural and storage failures return an error after the
// audit record is written.
func (r *Runner) RunOnce(ctx context.Context, date time.Time) (*RunSummary, error) {
	started := r.now()
	runID := uuid.NewString()
	logger := r.logger.With().Str("run_id", runID).Logger()

	summary, runErr := r.execute(ctx, logger, date)

	duration := r.now().Sub(started)
	audit := &domain.RunAudit{
		RunID:        runID,
		RunTimestamp: started.UTC(),
		MetricDate:   date.UTC().Truncate(24 * time.Hour),
		Duration:     duration,
	}
	if summary != nil {
		summary.RunID = runID
		summary.Duration = duration
		audit.Status = summary.Status
		audit.CoinsProcessed = len(r.universe)
		audit.ReportJSON = marshalReport(summary.Report)
		if summary.Load != nil {
			audit.RecordsInserted = summary.Load.MetricsInserted + summary.Load.CorrelationsReplaced
			audit.RecordsUpdated = summary.Load.MetricsUpdated
		}
	}
	if runErr != nil {
		audit.Status = domain.BatchRejected
		audit.ErrorMessage = runErr.Error()
	}

	if err := r.auditStore.Insert(ctx, audit); err != nil {
		logger.Error().Err(err).Msg("write audit record")
		if runErr == nil {
			runErr = fmt.Errorf("write audit record: %w", err)
		}
	}
	observability.RecordRun(string(audit.Status), duration.Seconds())

	if runErr != nil {
		return nil, runErr
	}
	return summary, nil
}

// execute runs the extract, transform, and load phases.
func (r *Runner) execute(ctx context.Context, logger zerolog.Logger, date time.Time) (*RunSummary, error) {
	current, err := r.source.GetCurrent(ctx, r.universe)
	if err != nil {
		return nil, fmt.Errorf("fetch current snapshots: %w", err)
	}
	logger.Info().Int("coins", len(current)).Msg("current snapshots fetched")

	r.archiveSnapshots(ctx, logger, current)

	histories := make(map[string]domain.HistoricalSeries, len(r.universe))
	for _, coinID := range r.universe {
		series, err := r.archive.GetHistory(ctx, coinID, date, r.lookbackDays)
		if err != nil {
			return nil, fmt.Errorf("load history for %s: %w", coinID, err)
		}
		histories[coinID] = series
	}

	batch, err := r.transformer.Run(TransformInput{
		Date:      date,
		Universe:  r.universe,
		Current:   current,
		Histories: histories,
	})
	if err != nil {
		return nil, err
	}
	observability.RecordChecks(batch.Report)

	summary := &RunSummary{
		Status:     batch.Status,
		Report:     batch.Report,
		MetricDate: batch.MetricDate,
	}
	if !batch.Status.Admissible() {
		logger.Warn().Msg("batch rejected by quality checks, nothing loaded")
		return summary, nil
	}

	result, err := r.loader.Submit(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	summary.Load = result
	observability.RecordLoaded(result.Total())

	return summary, nil
}

// archiveSnapshots appends the fetched snapshots so history accrues for
// future lookbacks. A duplicate key means this date was already archived;
// that is fine for re-runs and not worth failing over.
func (r *Runner) archiveSnapshots(ctx context.Context, logger zerolog.Logger, current map[string]domain.Snapshot) {
	snapshots := make([]domain.Snapshot, 0, len(current))
	for _, snap := range current {
		snapshots = append(snapshots, snap)
	}

	if err := r.archive.InsertBulk(ctx, snapshots); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			logger.Debug().Msg("snapshots already archived for this date")
			return
		}
		logger.Error().Err(err).Msg("archive snapshots")
	}
}

// marshalReport serializes a report for the audit trail. An empty string on
// marshal failure keeps the audit write alive; the report is advisory there.
func marshalReport(report domain.ValidationReport) string {
	data, err := json.Marshal(report)
	if err != nil {
		return ""
	}
	return string(data)
}
