package clickhouse

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

// SnapshotArchive implements storage.SnapshotArchive using ClickHouse.
type SnapshotArchive struct {
	conn *Conn
}

// NewSnapshotArchive creates a new SnapshotArchive.
func NewSnapshotArchive(conn *Conn) *SnapshotArchive {
	return &SnapshotArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotArchive = (*SnapshotArchive)(nil)

// InsertBulk appends snapshot rows. Fails the entire batch on a duplicate
// (coin_id, timestamp), including within the batch itself. MergeTree does
// not enforce uniqueness, so duplicates are checked explicitly before insert.
func (s *SnapshotArchive) InsertBulk(ctx context.Context, snapshots []domain.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	for _, snap := range snapshots {
		if snap.CoinID == "" || snap.Timestamp.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	type key struct {
		coinID string
		ts     int64
	}
	seen := make(map[key]struct{}, len(snapshots))
	for _, snap := range snapshots {
		k := key{snap.CoinID, snap.Timestamp.UnixMilli()}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.CoinID, snap.Timestamp)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO snapshot_archive (
			coin_id, name, symbol, ts,
			price_usd, market_cap, total_volume, circulating_supply,
			change_24h_pct, change_7d_pct, change_30d_pct,
			ath, atl, ath_date, atl_date
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.CoinID, snap.Name, snap.Symbol, snap.Timestamp.UTC(),
			snap.PriceUSD, snap.MarketCap, snap.TotalVolume, snap.CirculatingSupply,
			snap.Change24hPct, snap.Change7dPct, snap.Change30dPct,
			snap.ATH, snap.ATL, snap.ATHDate, snap.ATLDate,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetHistory retrieves up to lookbackDays of daily snapshots for a coin
// ending at the given date, ordered by timestamp ASC. When a day has several
// rows the latest one wins. A thin history returns fewer points.
func (s *SnapshotArchive) GetHistory(ctx context.Context, coinID string, end time.Time, lookbackDays int) (domain.HistoricalSeries, error) {
	if coinID == "" || lookbackDays <= 0 {
		return domain.HistoricalSeries{}, storage.ErrInvalidInput
	}

	endDay := end.UTC().Truncate(24 * time.Hour)
	start := endDay.AddDate(0, 0, -(lookbackDays - 1))
	endExclusive := endDay.AddDate(0, 0, 1)

	query := `
		SELECT coin_id, name, symbol, ts,
			price_usd, market_cap, total_volume, circulating_supply,
			change_24h_pct, change_7d_pct, change_30d_pct,
			ath, atl, ath_date, atl_date
		FROM snapshot_archive
		WHERE coin_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts ASC
	`

	rows, err := s.conn.Query(ctx, query, coinID, start, endExclusive)
	if err != nil {
		return domain.HistoricalSeries{}, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	perDay := make(map[string]domain.Snapshot)
	for rows.Next() {
		var snap domain.Snapshot
		err := rows.Scan(
			&snap.CoinID, &snap.Name, &snap.Symbol, &snap.Timestamp,
			&snap.PriceUSD, &snap.MarketCap, &snap.TotalVolume, &snap.CirculatingSupply,
			&snap.Change24hPct, &snap.Change7dPct, &snap.Change30dPct,
			&snap.ATH, &snap.ATL, &snap.ATHDate, &snap.ATLDate,
		)
		if err != nil {
			return domain.HistoricalSeries{}, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Timestamp = snap.Timestamp.UTC()
		day := snap.Timestamp.Format("2006-01-02")
		if prev, ok := perDay[day]; !ok || snap.Timestamp.After(prev.Timestamp) {
			perDay[day] = snap
		}
	}
	if err := rows.Err(); err != nil {
		return domain.HistoricalSeries{}, err
	}

	series := domain.HistoricalSeries{CoinID: coinID}
	for _, snap := range perDay {
		series.Snapshots = append(series.Snapshots, snap)
	}
	sort.Slice(series.Snapshots, func(i, j int) bool {
		return series.Snapshots[i].Timestamp.Before(series.Snapshots[j].Timestamp)
	})
	return series, nil
}

func (s *SnapshotArchive) exists(ctx context.Context, coinID string, ts time.Time) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM snapshot_archive WHERE coin_id = ? AND ts = ?`,
		coinID, ts.UTC(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
