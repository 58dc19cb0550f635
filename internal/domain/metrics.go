package domain

import "time"

// Sentiment is the label derived from a Fear & Greed score.
type Sentiment string

// Sentiment labels, fixed thresholds over the 0-100 score range.
const (
	SentimentExtremeFear  Sentiment = "Extreme Fear"  // [0, 20)
	SentimentFear         Sentiment = "Fear"          // [20, 40)
	SentimentNeutral      Sentiment = "Neutral"       // [40, 60)
	SentimentGreed        Sentiment = "Greed"         // [60, 80)
	SentimentExtremeGreed Sentiment = "Extreme Greed" // [80, 100]
)

// SentimentForScore maps a Fear & Greed score to its label.
// Boundaries belong to the upper bucket: 20.0 is Fear, not Extreme Fear.
func SentimentForScore(score float64) Sentiment {
	switch {
	case score < 20:
		return SentimentExtremeFear
	case score < 40:
		return SentimentFear
	case score < 60:
		return SentimentNeutral
	case score < 80:
		return SentimentGreed
	default:
		return SentimentExtremeGreed
	}
}

// DerivedMetrics holds the computed analytics for one (coin, date).
// Every derived numeric is a pointer: nil signals insufficient history or a
// degenerate input (zero total cap, zero variance), never a computed zero.
type DerivedMetrics struct {
	CoinID     string
	MetricDate time.Time // run date, truncated to UTC day

	MarketDominancePct *float64 // coin cap / universe cap * 100
	DominanceRank      *int     // 1-based, cap DESC, ties by coin id ASC

	Volatility7d         *float64 // sample stddev of daily returns * sqrt(365), 7d window
	Volatility30d        *float64 // same over the 30d window
	AnnualizedReturn     *float64 // geometric mean of daily returns, annualized
	AnnualizedVolatility *float64 // stddev of daily returns over full series * sqrt(365)
	SharpeRatio          *float64 // (annualized return - risk free) / annualized volatility

	FearGreedScore *float64  // composite 0-100
	Sentiment      Sentiment // empty when FearGreedScore is nil

	// Fear & Greed components, kept for downstream inspection.
	MomentumComponent   *float64
	VolatilityComponent *float64
	VolumeComponent     *float64

	// Trailing price aggregates over the 30d window.
	AvgPrice30d *float64
	MaxPrice30d *float64
	MinPrice30d *float64
}

// CorrelationEntry is the Pearson correlation of daily returns for one
// unordered coin pair on one date. CoinA < CoinB lexicographically, so the
// mirrored pair is never emitted. Pairs with insufficient overlapping history
// are omitted from the output set entirely.
type CorrelationEntry struct {
	MetricDate  time.Time
	CoinA       string
	CoinB       string
	Coefficient float64 // always within [-1, 1]
	SampleSize  int     // overlapping return observations used
}
