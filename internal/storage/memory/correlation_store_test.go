package memory

import (
	"context"
	"errors"
	"testing"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage"
)

func TestCorrelationStore_ReplaceForDate(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	first := []domain.CorrelationEntry{
		{MetricDate: day, CoinA: "bitcoin", CoinB: "ethereum", Coefficient: 0.8, SampleSize: 20},
		{MetricDate: day, CoinA: "bitcoin", CoinB: "solana", Coefficient: 0.5, SampleSize: 18},
	}
	n, err := store.ReplaceForDate(ctx, day, first)
	if err != nil {
		t.Fatalf("ReplaceForDate failed: %v", err)
	}
	if n != 2 {
		t.Errorf("replaced = %d, want 2", n)
	}

	// A re-run with a smaller set replaces, never accumulates.
	second := []domain.CorrelationEntry{
		{MetricDate: day, CoinA: "ethereum", CoinB: "solana", Coefficient: 0.3, SampleSize: 15},
	}
	n, err = store.ReplaceForDate(ctx, day, second)
	if err != nil {
		t.Fatalf("second ReplaceForDate failed: %v", err)
	}
	if n != 1 {
		t.Errorf("replaced = %d, want 1", n)
	}

	entries, err := store.GetByDate(ctx, day)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(entries) != 1 || entries[0].CoinA != "ethereum" {
		t.Errorf("entries = %+v, want only the replacement set", entries)
	}
}

func TestCorrelationStore_GetByDateOrdering(t *testing.T) {
	store := NewCorrelationStore()
	ctx := context.Background()

	entries := []domain.CorrelationEntry{
		{MetricDate: day, CoinA: "ethereum", CoinB: "solana", Coefficient: 0.3, SampleSize: 10},
		{MetricDate: day, CoinA: "bitcoin", CoinB: "solana", Coefficient: 0.5, SampleSize: 10},
		{MetricDate: day, CoinA: "bitcoin", CoinB: "ethereum", Coefficient: 0.8, SampleSize: 10},
	}
	if _, err := store.ReplaceForDate(ctx, day, entries); err != nil {
		t.Fatalf("ReplaceForDate failed: %v", err)
	}

	got, err := store.GetByDate(ctx, day)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		if prev.CoinA > cur.CoinA || (prev.CoinA == cur.CoinA && prev.CoinB > cur.CoinB) {
			t.Errorf("entries not ordered at %d", i)
		}
	}
}

func TestCorrelationStore_RejectsUnorderedPair(t *testing.T) {
	store := NewCorrelationStore()

	_, err := store.ReplaceForDate(context.Background(), day, []domain.CorrelationEntry{
		{MetricDate: day, CoinA: "ethereum", CoinB: "bitcoin", Coefficient: 0.8, SampleSize: 10},
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for CoinA >= CoinB, got %v", err)
	}
}

func TestCorrelationStore_EmptyDate(t *testing.T) {
	store := NewCorrelationStore()

	entries, err := store.GetByDate(context.Background(), day)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %d, want 0 for an unknown date", len(entries))
	}
}
