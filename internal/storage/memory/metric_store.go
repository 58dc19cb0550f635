package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

const dayFormat = "2006-01-02"

// MetricStore is an in-memory implementation of storage.MetricStore.
type MetricStore struct {
	mu   sync.RWMutex
	data map[metricKey]*domain.DerivedMetrics
}

// metricKey uses the formatted UTC day so that differing wall clocks or
// locations of the same day collapse to one row.
type metricKey struct {
	coinID string
	day    string
}

// NewMetricStore creates a new in-memory metric store.
func NewMetricStore() *MetricStore {
	return &MetricStore{data: make(map[metricKey]*domain.DerivedMetrics)}
}

var _ storage.MetricStore = (*MetricStore)(nil)

// UpsertBatch writes metrics idempotently under the (coin_id, metric_date) key.
func (s *MetricStore) UpsertBatch(_ context.Context, metrics []domain.DerivedMetrics) (int, int, error) {
	for _, m := range metrics {
		if m.CoinID == "" || m.MetricDate.IsZero() {
			return 0, 0, storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted, updated int
	for _, m := range metrics {
		key := metricKey{coinID: m.CoinID, day: m.MetricDate.UTC().Format(dayFormat)}
		if _, exists := s.data[key]; exists {
			updated++
		} else {
			inserted++
		}
		mCopy := m
		s.data[key] = &mCopy
	}
	return inserted, updated, nil
}

// GetByDate retrieves all metric rows for a date, ordered by coin id ASC.
func (s *MetricStore) GetByDate(_ context.Context, date time.Time) ([]domain.DerivedMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.UTC().Format(dayFormat)
	var result []domain.DerivedMetrics
	for key, m := range s.data {
		if key.day == day {
			result = append(result, *m)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CoinID < result[j].CoinID
	})
	return result, nil
}

// GetByCoin retrieves metric rows for one coin, ordered by date ASC.
func (s *MetricStore) GetByCoin(_ context.Context, coinID string) ([]domain.DerivedMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.DerivedMetrics
	for key, m := range s.data {
		if key.coinID == coinID {
			result = append(result, *m)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MetricDate.Before(result[j].MetricDate)
	})
	return result, nil
}
