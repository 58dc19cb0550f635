package memory

import (
	"context"
	"sort"
	"sync"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// CoinStore is an in-memory implementation of storage.CoinStore.
type CoinStore struct {
	mu   sync.RWMutex
	data map[string]domain.Coin // keyed by coin id
}

// NewCoinStore creates a new in-memory coin store.
func NewCoinStore() *CoinStore {
	return &CoinStore{data: make(map[string]domain.Coin)}
}

var _ storage.CoinStore = (*CoinStore)(nil)

// Upsert inserts or updates a coin dimension record.
func (s *CoinStore) Upsert(_ context.Context, coinID, name, symbol string) error {
	if coinID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[coinID] = domain.Coin{ID: coinID, Name: name, Symbol: symbol}
	return nil
}

// GetAll retrieves all known coins, ordered by coin id ASC.
func (s *CoinStore) GetAll(_ context.Context) ([]domain.Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Coin, 0, len(s.data))
	for _, coin := range s.data {
		result = append(result, coin)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}
