package load

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"coinpulse/internal/domain"
	"coinpulse/internal/storage/memory"
)

var metricDate = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func fptr(v float64) *float64 { return &v }

func admittedBatch() *domain.TransformBatch {
	return &domain.TransformBatch{
		MetricDate: metricDate,
		Status:     domain.BatchAdmitted,
		Snapshots: []domain.Snapshot{
			{CoinID: "bitcoin", Name: "Bitcoin", Symbol: "BTC", Timestamp: metricDate, PriceUSD: fptr(50000), MarketCap: fptr(700)},
			{CoinID: "ethereum", Name: "Ethereum", Symbol: "ETH", Timestamp: metricDate, PriceUSD: fptr(3000), MarketCap: fptr(300)},
		},
		Metrics: []domain.DerivedMetrics{
			{CoinID: "bitcoin", MetricDate: metricDate, MarketDominancePct: fptr(70)},
			{CoinID: "ethereum", MetricDate: metricDate, MarketDominancePct: fptr(30)},
		},
		Correlations: []domain.CorrelationEntry{
			{MetricDate: metricDate, CoinA: "bitcoin", CoinB: "ethereum", Coefficient: 0.8, SampleSize: 20},
		},
	}
}

type fixture struct {
	loader       *Loader
	coins        *memory.CoinStore
	metrics      *memory.MetricStore
	correlations *memory.CorrelationStore
}

func newFixture() *fixture {
	coins := memory.NewCoinStore()
	metrics := memory.NewMetricStore()
	correlations := memory.NewCorrelationStore()
	return &fixture{
		loader:       NewLoader(coins, metrics, correlations, zerolog.Nop()),
		coins:        coins,
		metrics:      metrics,
		correlations: correlations,
	}
}

func TestSubmit_LoadsAdmittedBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	result, err := f.loader.Submit(ctx, admittedBatch())
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.CoinsUpserted != 2 {
		t.Errorf("CoinsUpserted = %d, want 2", result.CoinsUpserted)
	}
	if result.MetricsInserted != 2 || result.MetricsUpdated != 0 {
		t.Errorf("metrics inserted/updated = %d/%d, want 2/0", result.MetricsInserted, result.MetricsUpdated)
	}
	if result.CorrelationsReplaced != 1 {
		t.Errorf("CorrelationsReplaced = %d, want 1", result.CorrelationsReplaced)
	}

	coins, err := f.coins.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(coins) != 2 || coins[0].ID != "bitcoin" {
		t.Errorf("dimension rows = %+v, want bitcoin then ethereum", coins)
	}
}

func TestSubmit_RerunOverwrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.loader.Submit(ctx, admittedBatch()); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}

	second := admittedBatch()
	second.Metrics[0].MarketDominancePct = fptr(71)
	result, err := f.loader.Submit(ctx, second)
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}

	if result.MetricsInserted != 0 || result.MetricsUpdated != 2 {
		t.Errorf("rerun inserted/updated = %d/%d, want 0/2", result.MetricsInserted, result.MetricsUpdated)
	}

	rows, err := f.metrics.GetByDate(ctx, metricDate)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows after rerun = %d, want 2 (no accumulation)", len(rows))
	}
	if rows[0].MarketDominancePct == nil || *rows[0].MarketDominancePct != 71 {
		t.Errorf("bitcoin dominance after rerun = %v, want 71", rows[0].MarketDominancePct)
	}

	correlations, err := f.correlations.GetByDate(ctx, metricDate)
	if err != nil {
		t.Fatalf("correlations GetByDate failed: %v", err)
	}
	if len(correlations) != 1 {
		t.Errorf("correlations after rerun = %d, want 1 (replaced, not appended)", len(correlations))
	}
}

func TestSubmit_RefusesNonAdmissible(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	rejected := admittedBatch()
	rejected.Status = domain.BatchRejected

	if _, err := f.loader.Submit(ctx, rejected); !errors.Is(err, ErrBatchNotAdmissible) {
		t.Fatalf("expected ErrBatchNotAdmissible, got %v", err)
	}
	if _, err := f.loader.Submit(ctx, nil); !errors.Is(err, ErrBatchNotAdmissible) {
		t.Fatalf("expected ErrBatchNotAdmissible for nil batch, got %v", err)
	}

	rows, err := f.metrics.GetByDate(ctx, metricDate)
	if err != nil {
		t.Fatalf("GetByDate failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rejected batch wrote %d rows", len(rows))
	}
}

func TestSubmit_WarningsStillLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	warned := admittedBatch()
	warned.Status = domain.BatchAdmittedWithWarnings

	result, err := f.loader.Submit(ctx, warned)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.Total() != 3 {
		t.Errorf("Total = %d, want 3", result.Total())
	}
}
