package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// CorrelationStore is an in-memory implementation of storage.CorrelationStore.
type CorrelationStore struct {
	mu   sync.RWMutex
	data map[string][]domain.CorrelationEntry // keyed by formatted metric_date
}

// NewCorrelationStore creates a new in-memory correlation store.
func NewCorrelationStore() *CorrelationStore {
	return &CorrelationStore{data: make(map[string][]domain.CorrelationEntry)}
}

var _ storage.CorrelationStore = (*CorrelationStore)(nil)

// ReplaceForDate atomically replaces the correlation set for a date.
func (s *CorrelationStore) ReplaceForDate(_ context.Context, date time.Time, entries []domain.CorrelationEntry) (int, error) {
	for _, e := range entries {
		if e.CoinA == "" || e.CoinB == "" || e.CoinA >= e.CoinB {
			return 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := date.UTC().Format(dayFormat)
	replacement := make([]domain.CorrelationEntry, len(entries))
	copy(replacement, entries)
	s.data[day] = replacement
	return len(replacement), nil
}

// GetByDate retrieves the correlation set for a date, ordered by
// (coin_a, coin_b) ASC.
func (s *CorrelationStore) GetByDate(_ context.Context, date time.Time) ([]domain.CorrelationEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.data[date.UTC().Format(dayFormat)]
	result := make([]domain.CorrelationEntry, len(entries))
	copy(result, entries)

	sort.Slice(result, func(i, j int) bool {
		if result[i].CoinA != result[j].CoinA {
			return result[i].CoinA < result[j].CoinA
		}
		return result[i].CoinB < result[j].CoinB
	})
	return result, nil
}
