package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

func archiveSnap(coinID string, ts time.Time, price float64) domain.Snapshot {
	return domain.Snapshot{CoinID: coinID, Timestamp: ts, PriceUSD: fptr(price)}
}

func TestSnapshotArchive_InsertAndGetHistory(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	var batch []domain.Snapshot
	for i := 0; i < 10; i++ {
		batch = append(batch, archiveSnap("bitcoin", day.AddDate(0, 0, -9+i).Add(8*time.Hour), 100+float64(i)))
	}
	if err := archive.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	series, err := archive.GetHistory(ctx, "bitcoin", day, 30)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if series.CoinID != "bitcoin" {
		t.Errorf("series coin = %q, want bitcoin", series.CoinID)
	}
	if series.Len() != 10 {
		t.Fatalf("points = %d, want 10", series.Len())
	}
	for i := 1; i < series.Len(); i++ {
		if !series.Snapshots[i-1].Timestamp.Before(series.Snapshots[i].Timestamp) {
			t.Fatal("history not ordered by timestamp ASC")
		}
	}
}

func TestSnapshotArchive_WindowBounds(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	inside := archiveSnap("bitcoin", day.AddDate(0, 0, -6), 100)
	outside := archiveSnap("bitcoin", day.AddDate(0, 0, -10), 90)
	future := archiveSnap("bitcoin", day.AddDate(0, 0, 1), 110)
	if err := archive.InsertBulk(ctx, []domain.Snapshot{inside, outside, future}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	series, err := archive.GetHistory(ctx, "bitcoin", day, 7)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("points = %d, want only the in-window one", series.Len())
	}
	if !series.Snapshots[0].Timestamp.Equal(inside.Timestamp) {
		t.Errorf("kept %v, want %v", series.Snapshots[0].Timestamp, inside.Timestamp)
	}
}

func TestSnapshotArchive_LatestPerDayWins(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	morning := archiveSnap("bitcoin", day.Add(8*time.Hour), 100)
	evening := archiveSnap("bitcoin", day.Add(20*time.Hour), 105)
	if err := archive.InsertBulk(ctx, []domain.Snapshot{morning, evening}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	series, err := archive.GetHistory(ctx, "bitcoin", day, 7)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if series.Len() != 1 {
		t.Fatalf("points = %d, want 1 per day", series.Len())
	}
	if *series.Snapshots[0].PriceUSD != 105 {
		t.Errorf("price = %v, want the later observation's 105", *series.Snapshots[0].PriceUSD)
	}
}

func TestSnapshotArchive_DuplicateKey(t *testing.T) {
	archive := NewSnapshotArchive()
	ctx := context.Background()

	snap := archiveSnap("bitcoin", day, 100)
	if err := archive.InsertBulk(ctx, []domain.Snapshot{snap}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	err := archive.InsertBulk(ctx, []domain.Snapshot{snap})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Intra-batch duplicate fails too, atomically.
	other := archiveSnap("ethereum", day, 200)
	err = archive.InsertBulk(ctx, []domain.Snapshot{other, other})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected intra-batch ErrDuplicateKey, got %v", err)
	}
	series, err := archive.GetHistory(ctx, "ethereum", day, 7)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if series.Len() != 0 {
		t.Error("failed batch must not write partially")
	}
}

func TestSnapshotArchive_ThinHistoryIsNotAnError(t *testing.T) {
	archive := NewSnapshotArchive()

	series, err := archive.GetHistory(context.Background(), "unknown", day, 30)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if series.Len() != 0 {
		t.Errorf("points = %d, want 0", series.Len())
	}
}
