// Package snapshotsource fetches market snapshots from external providers.
package snapshotsource

import (
	"context"
	"errors"
	"time"

	"coinpulse/internal/domain"
)

// ErrNoData is returned when a provider answers successfully but carries
// no usable rows for the requested coins.
var ErrNoData = errors.New("snapshotsource: provider returned no data")

// Source produces the current market snapshot per coin id.
type Source interface {
	GetCurrent(ctx context.Context, universe []string) (map[string]domain.Snapshot, error)
}

// HistorySource additionally serves daily history, used for archive backfill.
type HistorySource interface {
	Source
	GetHistory(ctx context.Context, coinID string, days int) ([]domain.Snapshot, error)
}

// truncateDay normalizes a timestamp to its UTC day.
func truncateDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
