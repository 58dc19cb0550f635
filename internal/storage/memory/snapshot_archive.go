package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// SnapshotArchive is an in-memory implementation of storage.SnapshotArchive.
type SnapshotArchive struct {
	mu   sync.RWMutex
	data map[archiveKey]*domain.Snapshot
}

type archiveKey struct {
	coinID string
	ts     int64 // unix milliseconds
}

// NewSnapshotArchive creates a new in-memory snapshot archive.
func NewSnapshotArchive() *SnapshotArchive {
	return &SnapshotArchive{data: make(map[archiveKey]*domain.Snapshot)}
}

var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)

// InsertBulk appends snapshot rows. Returns ErrDuplicateKey on a
// (coin_id, timestamp) collision, including within the batch itself.
func (s *SnapshotArchive) InsertBulk(_ context.Context, snapshots []domain.Snapshot) error {
	for _, snap := range snapshots {
		if snap.CoinID == "" || snap.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[archiveKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		key := archiveKey{coinID: snap.CoinID, ts: snap.Timestamp.UnixMilli()}
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, snap := range snapshots {
		snapCopy := snap
		s.data[archiveKey{coinID: snap.CoinID, ts: snap.Timestamp.UnixMilli()}] = &snapCopy
	}
	return nil
}

// GetHistory retrieves up to lookbackDays of daily snapshots for a coin
// ending at the given date, ordered by timestamp ASC. When a day has several
// rows the latest one wins.
func (s *SnapshotArchive) GetHistory(_ context.Context, coinID string, end time.Time, lookbackDays int) (domain.HistoricalSeries, error) {
	if coinID == "" || lookbackDays <= 0 {
		return domain.HistoricalSeries{}, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	endDay := end.UTC().Truncate(24 * time.Hour)
	startDay := endDay.AddDate(0, 0, -(lookbackDays - 1))

	// One row per day, latest timestamp within the day wins.
	perDay := make(map[string]*domain.Snapshot)
	for key, snap := range s.data {
		if key.coinID != coinID {
			continue
		}
		day := snap.Timestamp.UTC().Truncate(24 * time.Hour)
		if day.Before(startDay) || day.After(endDay) {
			continue
		}
		dayKey := day.Format(dayFormat)
		if prev, ok := perDay[dayKey]; !ok || snap.Timestamp.After(prev.Timestamp) {
			perDay[dayKey] = snap
		}
	}

	series := domain.HistoricalSeries{CoinID: coinID}
	for _, snap := range perDay {
		series.Snapshots = append(series.Snapshots, *snap)
	}

	sort.Slice(series.Snapshots, func(i, j int) bool {
		return series.Snapshots[i].Timestamp.Before(series.Snapshots[j].Timestamp)
	})
	return series, nil
}
