package postgres

import (
	"context"
	"fmt"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// CorrelationStore implements storage.CorrelationStore using PostgreSQL.
type CorrelationStore struct {
	pool *Pool
}

// NewCorrelationStore creates a new CorrelationStore.
func NewCorrelationStore(pool *Pool) *CorrelationStore {
	return &CorrelationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CorrelationStore = (*CorrelationStore)(nil)

// ReplaceForDate atomically replaces the correlation set for a date.
// Delete plus insert inside one transaction keeps re-runs idempotent.
func (s *CorrelationStore) ReplaceForDate(ctx context.Context, date time.Time, entries []domain.CorrelationEntry) (int, error) {
	for _, e := range entries {
		if e.CoinA == "" || e.CoinB == "" || e.CoinA >= e.CoinB {
			return 0, storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin replace correlations: %w", err)
	}
	defer tx.Rollback(ctx)

	day := date.UTC()
	if _, err := tx.Exec(ctx, `DELETE FROM coin_correlation WHERE metric_date = $1`, day); err != nil {
		return 0, fmt.Errorf("delete correlations: %w", err)
	}

	query := `
		INSERT INTO coin_correlation (metric_date, coin_a, coin_b, coefficient, sample_size)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, query, day, e.CoinA, e.CoinB, e.Coefficient, e.SampleSize); err != nil {
			if isDuplicateKeyError(err) {
				return 0, storage.ErrDuplicateKey
			}
			return 0, fmt.Errorf("insert correlation %s/%s: %w", e.CoinA, e.CoinB, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit replace correlations: %w", err)
	}
	return len(entries), nil
}

// GetByDate retrieves the correlation set for a date, ordered by
// (coin_a, coin_b) ASC.
func (s *CorrelationStore) GetByDate(ctx context.Context, date time.Time) ([]domain.CorrelationEntry, error) {
	query := `
		SELECT metric_date, coin_a, coin_b, coefficient, sample_size
		FROM coin_correlation
		WHERE metric_date = $1
		ORDER BY coin_a ASC, coin_b ASC
	`

	rows, err := s.pool.Query(ctx, query, date.UTC())
	if err != nil {
		return nil, fmt.Errorf("get correlations by date: %w", err)
	}
	defer rows.Close()

	var result []domain.CorrelationEntry
	for rows.Next() {
		var e domain.CorrelationEntry
		if err := rows.Scan(&e.MetricDate, &e.CoinA, &e.CoinB, &e.Coefficient, &e.SampleSize); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		e.MetricDate = e.MetricDate.UTC()
		result = append(result, e)
	}
	return result, rows.Err()
}
