package postgres

import (
	"context"
	"fmt"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// MetricStore implements storage.MetricStore using PostgreSQL.
type MetricStore struct {
	pool *Pool
}

// NewMetricStore creates a new MetricStore.
func NewMetricStore(pool *Pool) *MetricStore {
	return &MetricStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricStore = (*MetricStore)(nil)

const metricColumns = `
	coin_id, metric_date,
	market_dominance_pct, dominance_rank,
	volatility_7d, volatility_30d,
	annualized_return, annualized_volatility, sharpe_ratio,
	fear_greed_score, sentiment,
	momentum_component, volatility_component, volume_component,
	avg_price_30d, max_price_30d, min_price_30d
`

// UpsertBatch writes metrics idempotently under the (coin_id, metric_date)
// key inside one transaction. The xmax system column distinguishes fresh
// inserts from conflict updates.
func (s *MetricStore) UpsertBatch(ctx context.Context, metrics []domain.DerivedMetrics) (int, int, error) {
	for _, m := range metrics {
		if m.CoinID == "" || m.MetricDate.IsZero() {
			return 0, 0, storage.ErrInvalidInput
		}
	}
	if len(metrics) == 0 {
		return 0, 0, nil
	}

	query := `
		INSERT INTO fact_coin_metrics (` + metricColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (coin_id, metric_date) DO UPDATE SET
			market_dominance_pct = EXCLUDED.market_dominance_pct,
			dominance_rank = EXCLUDED.dominance_rank,
			volatility_7d = EXCLUDED.volatility_7d,
			volatility_30d = EXCLUDED.volatility_30d,
			annualized_return = EXCLUDED.annualized_return,
			annualized_volatility = EXCLUDED.annualized_volatility,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			fear_greed_score = EXCLUDED.fear_greed_score,
			sentiment = EXCLUDED.sentiment,
			momentum_component = EXCLUDED.momentum_component,
			volatility_component = EXCLUDED.volatility_component,
			volume_component = EXCLUDED.volume_component,
			avg_price_30d = EXCLUDED.avg_price_30d,
			max_price_30d = EXCLUDED.max_price_30d,
			min_price_30d = EXCLUDED.min_price_30d,
			updated_at = NOW()
		RETURNING (xmax = 0) AS inserted
	`

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin upsert batch: %w", err)
	}
	defer tx.Rollback(ctx)

	var inserted, updated int
	for _, m := range metrics {
		var sentiment *string
		if m.Sentiment != "" {
			v := string(m.Sentiment)
			sentiment = &v
		}

		var fresh bool
		err := tx.QueryRow(ctx, query,
			m.CoinID,
			m.MetricDate.UTC(),
			m.MarketDominancePct,
			m.DominanceRank,
			m.Volatility7d,
			m.Volatility30d,
			m.AnnualizedReturn,
			m.AnnualizedVolatility,
			m.SharpeRatio,
			m.FearGreedScore,
			sentiment,
			m.MomentumComponent,
			m.VolatilityComponent,
			m.VolumeComponent,
			m.AvgPrice30d,
			m.MaxPrice30d,
			m.MinPrice30d,
		).Scan(&fresh)
		if err != nil {
			return 0, 0, fmt.Errorf("upsert metric %s: %w", m.CoinID, err)
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit upsert batch: %w", err)
	}
	return inserted, updated, nil
}

// GetByDate retrieves all metric rows for a date, ordered by coin id ASC.
func (s *MetricStore) GetByDate(ctx context.Context, date time.Time) ([]domain.DerivedMetrics, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM fact_coin_metrics
		WHERE metric_date = $1
		ORDER BY coin_id ASC
	`

	rows, err := s.pool.Query(ctx, query, date.UTC())
	if err != nil {
		return nil, fmt.Errorf("get metrics by date: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

// GetByCoin retrieves metric rows for one coin, ordered by date ASC.
func (s *MetricStore) GetByCoin(ctx context.Context, coinID string) ([]domain.DerivedMetrics, error) {
	query := `
		SELECT ` + metricColumns + `
		FROM fact_coin_metrics
		WHERE coin_id = $1
		ORDER BY metric_date ASC
	`

	rows, err := s.pool.Query(ctx, query, coinID)
	if err != nil {
		return nil, fmt.Errorf("get metrics by coin: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMetrics(rows pgxRows) ([]domain.DerivedMetrics, error) {
	var result []domain.DerivedMetrics
	for rows.Next() {
		var m domain.DerivedMetrics
		var sentiment *string
		err := rows.Scan(
			&m.CoinID,
			&m.MetricDate,
			&m.MarketDominancePct,
			&m.DominanceRank,
			&m.Volatility7d,
			&m.Volatility30d,
			&m.AnnualizedReturn,
			&m.AnnualizedVolatility,
			&m.SharpeRatio,
			&m.FearGreedScore,
			&sentiment,
			&m.MomentumComponent,
			&m.VolatilityComponent,
			&m.VolumeComponent,
			&m.AvgPrice30d,
			&m.MaxPrice30d,
			&m.MinPrice30d,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		m.MetricDate = m.MetricDate.UTC()
		if sentiment != nil {
			m.Sentiment = domain.Sentiment(*sentiment)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}
