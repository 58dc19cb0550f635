// Package pipeline sequences the transform: metric calculation, quality
// validation, and the admit/reject decision, plus the outer run loop that
// feeds the loader.
package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
	"coinpulse/internal/quality"
	"coinpulse/internal/transform"
)

// TransformInput is one run's worth of already-materialized inputs. The
// transformer never performs I/O; the caller supplies everything up front.
type TransformInput struct {
	Date      time.Time
	Universe  []string
	Current   map[string]domain.Snapshot
	Histories map[string]domain.HistoricalSeries
}

// Transformer sequences calculator then validator and classifies the batch.
// It owns no computation beyond the admit/reject decision.
type Transformer struct {
	calculator *transform.Calculator
	validator  *quality.Validator
	logger     zerolog.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(calculator *transform.Calculator, validator *quality.Validator, logger zerolog.Logger) *Transformer {
	return &Transformer{
		calculator: calculator,
		validator:  validator,
		logger:     logger,
	}
}

// Run computes derived metrics, validates the combined dataset, and returns
// the assembled batch with its admission status. Structural input problems
// (empty universe, missing snapshot) return an error and no batch; a failed
// quality check is a business outcome carried in the batch status, not an
// error.
func (t *Transformer) Run(input TransformInput) (*domain.TransformBatch, error) {
	result, err := t.calculator.Compute(input.Universe, input.Current, input.Histories, input.Date)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}

	snapshots := orderedSnapshots(input)
	report := t.validator.Validate(snapshots, result.Metrics)

	status := domain.BatchAdmitted
	switch {
	case report.CriticalFailed():
		status = domain.BatchRejected
	case report.HasWarnings():
		status = domain.BatchAdmittedWithWarnings
	}

	for _, check := range report.Checks {
		event := t.logger.Debug()
		switch check.Status {
		case domain.CheckFail:
			event = t.logger.Error()
		case domain.CheckWarn:
			event = t.logger.Warn()
		}
		event.Str("check", check.Name).
			Str("status", string(check.Status)).
			Int("affected", check.AffectedCount()).
			Msg(check.Message)
	}

	t.logger.Info().
		Time("metric_date", input.Date).
		Int("coins", len(result.Metrics)).
		Int("correlations", len(result.Correlations)).
		Str("status", string(status)).
		Msg("transform batch assembled")

	return &domain.TransformBatch{
		MetricDate:   input.Date.UTC().Truncate(24 * time.Hour),
		Snapshots:    snapshots,
		Metrics:      result.Metrics,
		Correlations: result.Correlations,
		Report:       report,
		Status:       status,
	}, nil
}

// orderedSnapshots flattens the current snapshot map in coin id order so the
// batch content is deterministic across runs on identical input.
func orderedSnapshots(input TransformInput) []domain.Snapshot {
	ids := make([]string, len(input.Universe))
	copy(ids, input.Universe)
	sort.Strings(ids)

	snapshots := make([]domain.Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := input.Current[id]; ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}
