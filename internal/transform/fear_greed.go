package transform

import "coinpulse/internal/domain"

// applyFearGreed computes the composite Fear & Greed score for one coin and
// sets the score, its components, and the sentiment label on m.
//
// Components, each clamped to [0,100] before weighting:
//   - momentum: current 24h price change (7d fallback), shifted so that
//     -50%..+50% maps onto 0..100
//   - volatility: inverted raw daily-return stddev, 100 - stddev*1000
//     (calmer price action reads as greed)
//   - volume: recent vs older trailing mean volume change, same -50..+50
//     normalization; neutral 50 when undeterminable
//
// The score needs at least FearGreedMinHistory points of history; with less,
// everything stays nil and the sentiment label stays empty.
func (c *Calculator) applyFearGreed(m *domain.DerivedMetrics, snap domain.Snapshot, series domain.HistoricalSeries) {
	if series.Len() < c.params.FearGreedMinHistory {
		return
	}

	momentum := momentumComponent(snap)
	if momentum == nil {
		return
	}

	returns := dailyReturns(series.Snapshots)
	if len(returns) < 2 {
		return
	}
	volScore := clamp(100-sampleStddev(returns)*1000, 0, 100)

	volumeScore := volumeComponent(series)

	score := clamp(
		*momentum*c.params.MomentumWeight+
			volScore*c.params.VolatilityWeight+
			volumeScore*c.params.VolumeWeight,
		0, 100,
	)

	m.MomentumComponent = momentum
	m.VolatilityComponent = &volScore
	m.VolumeComponent = &volumeScore
	m.FearGreedScore = &score
	m.Sentiment = domain.SentimentForScore(score)
}

// momentumComponent normalizes the 24h price change (7d fallback) onto
// [0,100]. Nil when neither change is known.
func momentumComponent(snap domain.Snapshot) *float64 {
	change := snap.Change24hPct
	if change == nil {
		change = snap.Change7dPct
	}
	if change == nil {
		return nil
	}
	score := clamp(*change+50, 0, 100)
	return &score
}

// volumeComponent compares the trailing 7-point mean volume against the
// leading 7-point mean. Returns the neutral 50 when the series is too short
// or the older mean is zero.
func volumeComponent(series domain.HistoricalSeries) float64 {
	var volumes []float64
	for _, s := range series.Snapshots {
		if s.TotalVolume != nil {
			volumes = append(volumes, *s.TotalVolume)
		}
	}
	if len(volumes) <= 7 {
		return 50
	}

	recent := mean(volumes[len(volumes)-7:])
	older := mean(volumes[:7])
	if older <= 0 {
		return 50
	}

	change := (recent - older) / older * 100
	return clamp(change+50, 0, 100)
}
