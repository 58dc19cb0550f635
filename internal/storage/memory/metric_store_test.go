package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

var day = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func TestMetricStore_UpsertBatchCounts(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	batch := []domain.DerivedMetrics{
		{CoinID: "bitcoin", MetricDate: day, MarketDominancePct: fptr(70)},
		{CoinID: "ethereum", MetricDate: day, MarketDominancePct: fptr(30)},
	}

	inserted, updated, err := store.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}
	if inserted != 2 || updated != 0 {
		t.Errorf("first write = %d/%d, want 2/0", inserted, updated)
	}

	batch[0].MarketDominancePct = fptr(71)
	inserted, updated, err = store.UpsertBatch(ctx, batch)
	if err != nil {
		t.Fatalf("second UpsertBatch failed: %v", err)
	}
	if inserted != 0 || updated != 2 {
		t.Errorf("rerun = %d/%d, want 0/2", inserted, updated)
	}

	rows, err := store.GetByDate(ctx, day)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 after rerun", len(rows))
	}
	if *rows[0].MarketDominancePct != 71 {
		t.Errorf("dominance = %v, want overwritten 71", *rows[0].MarketDominancePct)
	}
}

func TestMetricStore_GetByDateOrdering(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	_, _, err := store.UpsertBatch(ctx, []domain.DerivedMetrics{
		{CoinID: "solana", MetricDate: day},
		{CoinID: "bitcoin", MetricDate: day},
		{CoinID: "ethereum", MetricDate: day.AddDate(0, 0, 1)},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	rows, err := store.GetByDate(ctx, day)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 for the day", len(rows))
	}
	if rows[0].CoinID != "bitcoin" || rows[1].CoinID != "solana" {
		t.Errorf("rows not ordered by coin id: %s, %s", rows[0].CoinID, rows[1].CoinID)
	}
}

func TestMetricStore_GetByCoin(t *testing.T) {
	store := NewMetricStore()
	ctx := context.Background()

	_, _, err := store.UpsertBatch(ctx, []domain.DerivedMetrics{
		{CoinID: "bitcoin", MetricDate: day.AddDate(0, 0, 1)},
		{CoinID: "bitcoin", MetricDate: day},
		{CoinID: "ethereum", MetricDate: day},
	})
	if err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	rows, err := store.GetByCoin(ctx, "bitcoin")
	if err != nil {
		t.Fatalf("GetByCoin failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 for bitcoin", len(rows))
	}
	if !rows[0].MetricDate.Before(rows[1].MetricDate) {
		t.Error("rows not ordered by date ASC")
	}
}

func TestMetricStore_InvalidInput(t *testing.T) {
	store := NewMetricStore()

	_, _, err := store.UpsertBatch(context.Background(), []domain.DerivedMetrics{{CoinID: "", MetricDate: day}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	_, _, err = store.UpsertBatch(context.Background(), []domain.DerivedMetrics{{CoinID: "bitcoin"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero date, got %v", err)
	}
}
