package transform

import (
	"math"
	"testing"

	"coinpulse/internal/domain"
)

// seriesWithVolume attaches a constant volume to every point.
func seriesWithVolume(coinID string, volume float64, prices ...float64) domain.HistoricalSeries {
	series := makeSeries(coinID, prices...)
	for i := range series.Snapshots {
		v := volume
		series.Snapshots[i].TotalVolume = &v
	}
	return series
}

func TestApplyFearGreed_KnownComposite(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	// Flat prices: zero return stddev, so the volatility component is the
	// full 100. Flat volumes read as the neutral 50.
	series := seriesWithVolume("bitcoin", 1000, 100, 100, 100, 100, 100, 100, 100, 100)

	current := snap("bitcoin", 100, 700)
	current.Change24hPct = fptr(10)

	var m domain.DerivedMetrics
	calc.applyFearGreed(&m, current, series)

	if m.FearGreedScore == nil {
		t.Fatal("expected a score, got nil")
	}
	// 0.3*60 (momentum) + 0.3*100 (volatility) + 0.4*50 (volume) = 68.
	if math.Abs(*m.FearGreedScore-68) > 1e-9 {
		t.Errorf("score = %v, want 68", *m.FearGreedScore)
	}
	if m.Sentiment != domain.SentimentGreed {
		t.Errorf("sentiment = %q, want %q", m.Sentiment, domain.SentimentGreed)
	}
	if m.MomentumComponent == nil || *m.MomentumComponent != 60 {
		t.Errorf("momentum component = %v, want 60", m.MomentumComponent)
	}
	if m.VolatilityComponent == nil || *m.VolatilityComponent != 100 {
		t.Errorf("volatility component = %v, want 100", m.VolatilityComponent)
	}
	if m.VolumeComponent == nil || *m.VolumeComponent != 50 {
		t.Errorf("volume component = %v, want 50", m.VolumeComponent)
	}
}

func TestApplyFearGreed_InsufficientHistory(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	series := seriesWithVolume("bitcoin", 1000, 100, 100, 100)
	current := snap("bitcoin", 100, 700)
	current.Change24hPct = fptr(10)

	var m domain.DerivedMetrics
	calc.applyFearGreed(&m, current, series)

	if m.FearGreedScore != nil {
		t.Errorf("score = %v, want nil with 3 history points", *m.FearGreedScore)
	}
	if m.Sentiment != "" {
		t.Errorf("sentiment = %q, want empty", m.Sentiment)
	}
}

func TestApplyFearGreed_NoMomentumNoScore(t *testing.T) {
	calc := NewCalculator(DefaultParams())

	series := seriesWithVolume("bitcoin", 1000, 100, 100, 100, 100, 100, 100, 100, 100)
	current := snap("bitcoin", 100, 700) // no change fields at all

	var m domain.DerivedMetrics
	calc.applyFearGreed(&m, current, series)

	if m.FearGreedScore != nil {
		t.Errorf("score = %v, want nil without momentum input", *m.FearGreedScore)
	}
}

func TestMomentumComponent(t *testing.T) {
	s := snap("bitcoin", 100, 700)

	s.Change24hPct = fptr(200)
	if got := momentumComponent(s); got == nil || *got != 100 {
		t.Errorf("momentum for +200%% = %v, want clamped 100", got)
	}

	s.Change24hPct = fptr(-200)
	if got := momentumComponent(s); got == nil || *got != 0 {
		t.Errorf("momentum for -200%% = %v, want clamped 0", got)
	}

	// 7d change stands in when the 24h change is unknown.
	s.Change24hPct = nil
	s.Change7dPct = fptr(20)
	if got := momentumComponent(s); got == nil || *got != 70 {
		t.Errorf("momentum from 7d fallback = %v, want 70", got)
	}

	s.Change7dPct = nil
	if got := momentumComponent(s); got != nil {
		t.Errorf("momentum without change inputs = %v, want nil", *got)
	}
}

func TestVolumeComponent(t *testing.T) {
	// 14 points, older mean 1000, recent mean 1200: +20% reads as 70.
	var prices, volumes []float64
	for i := 0; i < 14; i++ {
		prices = append(prices, 100)
		if i < 7 {
			volumes = append(volumes, 1000)
		} else {
			volumes = append(volumes, 1200)
		}
	}
	series := makeSeries("bitcoin", prices...)
	for i := range series.Snapshots {
		v := volumes[i]
		series.Snapshots[i].TotalVolume = &v
	}

	if got := volumeComponent(series); math.Abs(got-70) > 1e-9 {
		t.Errorf("volume component = %v, want 70", got)
	}

	short := seriesWithVolume("bitcoin", 1000, 100, 100, 100)
	if got := volumeComponent(short); got != 50 {
		t.Errorf("volume component for a short series = %v, want neutral 50", got)
	}
}
