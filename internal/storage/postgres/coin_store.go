package postgres

import (
	"context"
	"fmt"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// CoinStore implements storage.CoinStore using PostgreSQL.
type CoinStore struct {
	pool *Pool
}

// NewCoinStore creates a new CoinStore.
func NewCoinStore(pool *Pool) *CoinStore {
	return &CoinStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CoinStore = (*CoinStore)(nil)

// Upsert inserts or updates a coin dimension record keyed by coin id.
func (s *CoinStore) Upsert(ctx context.Context, coinID, name, symbol string) error {
	if coinID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO dim_coin (coin_id, name, symbol)
		VALUES ($1, $2, $3)
		ON CONFLICT (coin_id) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			updated_at = NOW()
	`

	if _, err := s.pool.Exec(ctx, query, coinID, name, symbol); err != nil {
		return fmt.Errorf("upsert coin: %w", err)
	}
	return nil
}

// GetAll retrieves all known coins, ordered by coin id ASC.
func (s *CoinStore) GetAll(ctx context.Context) ([]domain.Coin, error) {
	query := `
		SELECT coin_id, name, symbol
		FROM dim_coin
		ORDER BY coin_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all coins: %w", err)
	}
	defer rows.Close()

	var result []domain.Coin
	for rows.Next() {
		var coin domain.Coin
		if err := rows.Scan(&coin.ID, &coin.Name, &coin.Symbol); err != nil {
			return nil, fmt.Errorf("scan coin: %w", err)
		}
		result = append(result, coin)
	}
	return result, rows.Err()
}
