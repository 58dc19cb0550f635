package storage

import (
	"context"
	"time"

	"coinpulse/internal/domain"
)

// CoinStore provides access to the coin dimension table.
type CoinStore interface {
	// Upsert inserts or updates a coin dimension record keyed by coin id.
	Upsert(ctx context.Context, coinID, name, symbol string) error

	// GetAll retrieves all known coins, ordered by coin id ASC.
	GetAll(ctx context.Context) ([]domain.Coin, error)
}

// MetricStore provides access to per-coin-per-date derived metric rows.
type MetricStore interface {
	// UpsertBatch writes metrics idempotently under the (coin_id, metric_date)
	// key. Returns how many rows were inserted versus updated.
	UpsertBatch(ctx context.Context, metrics []domain.DerivedMetrics) (inserted, updated int, err error)

	// GetByDate retrieves all metric rows for a date, ordered by coin id ASC.
	GetByDate(ctx context.Context, date time.Time) ([]domain.DerivedMetrics, error)

	// GetByCoin retrieves metric rows for one coin, ordered by date ASC.
	GetByCoin(ctx context.Context, coinID string) ([]domain.DerivedMetrics, error)
}

// CorrelationStore provides access to pairwise correlation rows keyed by
// (metric_date, coin_a, coin_b) with coin_a < coin_b.
type CorrelationStore interface {
	// ReplaceForDate atomically replaces the correlation set for a date.
	// Re-runs recompute and overwrite, never accumulate.
	ReplaceForDate(ctx context.Context, date time.Time, entries []domain.CorrelationEntry) (int, error)

	// GetByDate retrieves the correlation set for a date, ordered by
	// (coin_a, coin_b) ASC.
	GetByDate(ctx context.Context, date time.Time) ([]domain.CorrelationEntry, error)
}

// AuditStore records one RunAudit row per pipeline execution.
type AuditStore interface {
	// Insert appends an audit record. Returns ErrDuplicateKey if the run id
	// already exists.
	Insert(ctx context.Context, audit *domain.RunAudit) error

	// GetByRunID retrieves an audit record. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.RunAudit, error)
}

// SnapshotArchive stores raw snapshot rows and serves historical series for
// the transform's lookback window.
type SnapshotArchive interface {
	// InsertBulk appends snapshot rows. Returns ErrDuplicateKey on a
	// (coin_id, timestamp) collision, including intra-batch.
	InsertBulk(ctx context.Context, snapshots []domain.Snapshot) error

	// GetHistory retrieves up to lookbackDays of daily snapshots for a coin
	// ending at the given date, ordered by timestamp ASC. A thin history
	// returns fewer points, never an error.
	GetHistory(ctx context.Context, coinID string, end time.Time, lookbackDays int) (domain.HistoricalSeries, error)
}
