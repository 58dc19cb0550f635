package transform

import (
	"math"
	"testing"
	"time"

	"coinpulse/internal/domain"
)

func TestComputeCorrelations_PerfectPair(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	// Doubled prices reproduce the same return series exactly.
	a := makeSeries("bitcoin", 100, 110, 105, 115, 120, 118, 125, 130)
	b := makeSeries("ethereum", 200, 220, 210, 230, 240, 236, 250, 260)
	histories := map[string]domain.HistoricalSeries{
		"bitcoin":  a,
		"ethereum": b,
	}

	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	entries := calc.computeCorrelations([]string{"bitcoin", "ethereum"}, histories, day)
	if len(entries) != 1 {
		t.Fatalf("expected 1 correlation entry, got %d", len(entries))
	}

	e := entries[0]
	if e.CoinA != "bitcoin" || e.CoinB != "ethereum" {
		t.Errorf("pair = (%s, %s), want (bitcoin, ethereum)", e.CoinA, e.CoinB)
	}
	if math.Abs(e.Coefficient-1) > 1e-9 {
		t.Errorf("coefficient = %v, want 1", e.Coefficient)
	}
	if e.SampleSize != 7 {
		t.Errorf("sample size = %d, want 7", e.SampleSize)
	}
	if !e.MetricDate.Equal(day) {
		t.Errorf("metric date = %v, want %v", e.MetricDate, day)
	}
}

func TestComputeCorrelations_BelowMinOverlap(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	histories := map[string]domain.HistoricalSeries{
		"bitcoin":  makeSeries("bitcoin", 100, 110, 105, 115),
		"ethereum": makeSeries("ethereum", 200, 220, 210, 230),
	}

	entries := calc.computeCorrelations([]string{"bitcoin", "ethereum"}, histories, testDate)
	if len(entries) != 0 {
		t.Fatalf("expected no entries below the overlap minimum, got %d", len(entries))
	}
}

func TestComputeCorrelations_ZeroVarianceOmitted(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	histories := map[string]domain.HistoricalSeries{
		"tether":  makeSeries("tether", 1, 1, 1, 1, 1, 1, 1, 1),
		"bitcoin": makeSeries("bitcoin", 100, 110, 105, 115, 120, 118, 125, 130),
	}

	entries := calc.computeCorrelations([]string{"bitcoin", "tether"}, histories, testDate)
	if len(entries) != 0 {
		t.Fatalf("expected constant series pair to be omitted, got %d entries", len(entries))
	}
}

func TestComputeCorrelations_OrderedPairs(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	prices := []float64{100, 110, 105, 115, 120, 118, 125, 130}
	histories := map[string]domain.HistoricalSeries{
		"solana":   makeSeries("solana", prices...),
		"bitcoin":  makeSeries("bitcoin", prices...),
		"ethereum": makeSeries("ethereum", prices...),
	}

	entries := calc.computeCorrelations([]string{"bitcoin", "ethereum", "solana"}, histories, testDate)
	if len(entries) != 3 {
		t.Fatalf("expected 3 pairs for 3 coins, got %d", len(entries))
	}
	for i, e := range entries {
		if e.CoinA >= e.CoinB {
			t.Errorf("entry %d: CoinA %q not below CoinB %q", i, e.CoinA, e.CoinB)
		}
	}
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		if prev.CoinA > cur.CoinA || (prev.CoinA == cur.CoinA && prev.CoinB > cur.CoinB) {
			t.Errorf("entries not ordered at %d: (%s,%s) after (%s,%s)",
				i, cur.CoinA, cur.CoinB, prev.CoinA, prev.CoinB)
		}
	}
}

func TestPearson(t *testing.T) {
	xs := []float64{0.1, -0.05, 0.2, -0.1, 0.15}
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = -x
	}

	coeff, ok := pearson(xs, ys)
	if !ok {
		t.Fatal("pearson reported zero variance")
	}
	if math.Abs(coeff-(-1)) > 1e-9 {
		t.Errorf("coefficient = %v, want -1", coeff)
	}

	if _, ok := pearson([]float64{1, 1, 1}, xs[:3]); ok {
		t.Error("expected ok=false for a constant sample")
	}
}

func TestDatedReturns_AlignsByDay(t *testing.T) {
	series := makeSeries("bitcoin", 100, 110, 99)

	returns := datedReturns(series.Snapshots)
	if len(returns) != 2 {
		t.Fatalf("expected 2 dated returns, got %d", len(returns))
	}

	// Each return is keyed by the later observation's UTC day.
	secondDay := series.Snapshots[1].Timestamp.UTC().Format("2006-01-02")
	r, ok := returns[secondDay]
	if !ok {
		t.Fatalf("no return keyed to %s", secondDay)
	}
	if math.Abs(r-0.10) > 1e-9 {
		t.Errorf("return for %s = %v, want 0.10", secondDay, r)
	}
}
