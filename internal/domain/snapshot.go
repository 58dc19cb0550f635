package domain

import "time"

// Snapshot is one coin's raw market state at one point in time.
// Nullable numerics are pointers: nil means the provider had no value,
// never zero. A Snapshot is immutable once extracted.
type Snapshot struct {
	CoinID            string     // stable provider identifier, e.g. "bitcoin"
	Name              string     // display name
	Symbol            string     // ticker symbol, e.g. "btc"
	Timestamp         time.Time  // extraction time (UTC)
	PriceUSD          *float64   // current price in USD
	MarketCap         *float64   // market capitalization in USD
	TotalVolume       *float64   // 24h traded volume in USD
	CirculatingSupply *float64   // circulating supply in coin units
	Change24hPct      *float64   // 24h price change, percent
	Change7dPct       *float64   // 7d price change, percent
	Change30dPct      *float64   // 30d price change, percent
	ATH               *float64   // all-time-high price in USD
	ATHDate           *time.Time // date of the all-time high
	ATL               *float64   // all-time-low price in USD
	ATLDate           *time.Time // date of the all-time low
}

// HistoricalSeries is an ascending-by-time sequence of snapshots for one
// coin, bounded by the configured lookback window. Missing days shrink the
// series rather than error; consumers degrade sample size accordingly.
type HistoricalSeries struct {
	CoinID    string
	Snapshots []Snapshot // ordered by Timestamp ASC
}

// Len returns the number of points in the series.
func (h HistoricalSeries) Len() int { return len(h.Snapshots) }
