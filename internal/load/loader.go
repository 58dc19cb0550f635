// Package load hands admitted transform batches to the warehouse.
package load

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// ErrBatchNotAdmissible is returned when a rejected batch is submitted. The
// loader is the last line of defense for the all-or-nothing contract.
var ErrBatchNotAdmissible = errors.New("batch not admissible for loading")

// Loader performs the idempotent warehouse write for one admitted batch:
// dimension upsert, metric upsert under (coin_id, metric_date), and full
// replacement of the date's correlation set. Storage rejections are fatal for
// the run; retry policy belongs to the caller.
type Loader struct {
	coins        storage.CoinStore
	metrics      storage.MetricStore
	correlations storage.CorrelationStore
	logger       zerolog.Logger
}

// NewLoader creates a Loader over the warehouse stores.
func NewLoader(coins storage.CoinStore, metrics storage.MetricStore, correlations storage.CorrelationStore, logger zerolog.Logger) *Loader {
	return &Loader{
		coins:        coins,
		metrics:      metrics,
		correlations: correlations,
		logger:       logger,
	}
}

// Submit writes the batch and reports what happened. Re-running for the same
// date overwrites the previous rows instead of accumulating.
func (l *Loader) Submit(ctx context.Context, batch *domain.TransformBatch) (*domain.LoadResult, error) {
	if batch == nil || !batch.Status.Admissible() {
		return nil, ErrBatchNotAdmissible
	}

	result := &domain.LoadResult{}

	for _, snap := range batch.Snapshots {
		if err := l.coins.Upsert(ctx, snap.CoinID, snap.Name, snap.Symbol); err != nil {
			return nil, fmt.Errorf("upsert coin %s: %w", snap.CoinID, err)
		}
		result.CoinsUpserted++
	}

	inserted, updated, err := l.metrics.UpsertBatch(ctx, batch.Metrics)
	if err != nil {
		return nil, fmt.Errorf("upsert metrics for %s: %w", batch.MetricDate.Format("2006-01-02"), err)
	}
	result.MetricsInserted = inserted
	result.MetricsUpdated = updated

	replaced, err := l.correlations.ReplaceForDate(ctx, batch.MetricDate, batch.Correlations)
	if err != nil {
		return nil, fmt.Errorf("replace correlations for %s: %w", batch.MetricDate.Format("2006-01-02"), err)
	}
	result.CorrelationsReplaced = replaced

	l.logger.Info().
		Time("metric_date", batch.MetricDate).
		Int("coins", result.CoinsUpserted).
		Int("metrics_inserted", result.MetricsInserted).
		Int("metrics_updated", result.MetricsUpdated).
		Int("correlations", result.CorrelationsReplaced).
		Msg("batch loaded")

	return result, nil
}
