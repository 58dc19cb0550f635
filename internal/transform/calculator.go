// Package transform implements the metric calculator: a pure function over
// one day's current snapshots plus per-coin historical series, producing
// derived metrics and the pairwise correlation set.
package transform

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"coinpulse/internal/domain"
)

// Structural input errors. Field-level problems never raise; they null the
// affected derived field and computation proceeds.
var (
	// ErrEmptyUniverse is returned when there are no coins to process.
	ErrEmptyUniverse = errors.New("empty coin universe")

	// ErrMissingSnapshot is returned when a coin in the universe has no
	// current snapshot.
	ErrMissingSnapshot = errors.New("missing current snapshot")
)

// Params holds the calculator's tunables. All thresholds are per-run; per-coin
// tuning is out of scope.
type Params struct {
	LookbackDays          int     // historical window bound, default 30
	VolatilityMinSamples  int     // min return observations for 30d metrics, default 5
	CorrelationMinOverlap int     // min overlapping return observations per pair, default 7
	RiskFreeRate          float64 // annualized, default 0
	FearGreedMinHistory   int     // min history points for the composite score, default 7

	MomentumWeight   float64 // default 0.30
	VolatilityWeight float64 // default 0.30
	VolumeWeight     float64 // default 0.40
}

// DefaultParams returns the calculator defaults.
func DefaultParams() Params {
	return Params{
		LookbackDays:          30,
		VolatilityMinSamples:  5,
		CorrelationMinOverlap: 7,
		RiskFreeRate:          0,
		FearGreedMinHistory:   7,
		MomentumWeight:        0.30,
		VolatilityWeight:      0.30,
		VolumeWeight:          0.40,
	}
}

// Calculator derives per-coin metrics and cross-coin correlations. It holds
// no mutable state; Compute is a pure function of its inputs.
type Calculator struct {
	params Params
}

// NewCalculator creates a Calculator with the given params.
func NewCalculator(params Params) *Calculator {
	return &Calculator{params: params}
}

// Result is the calculator output for one run date.
type Result struct {
	Metrics      []domain.DerivedMetrics   // coin id ASC
	Correlations []domain.CorrelationEntry // (coin_a, coin_b) ASC
}

// Compute derives metrics for every coin in the universe and the correlation
// set for the run date. current maps coin id to its current snapshot;
// histories maps coin id to its lookback series (absent or thin histories
// degrade to nil fields). Output ordering is deterministic: identical input
// produces identical output.
func (c *Calculator) Compute(
	universe []string,
	current map[string]domain.Snapshot,
	histories map[string]domain.HistoricalSeries,
	date time.Time,
) (*Result, error) {
	if len(universe) == 0 {
		return nil, ErrEmptyUniverse
	}

	coins := make([]string, len(universe))
	copy(coins, universe)
	sort.Strings(coins)

	for _, id := range coins {
		if _, ok := current[id]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingSnapshot, id)
		}
	}

	day := date.UTC().Truncate(24 * time.Hour)

	dominance, ranks := computeDominance(coins, current)

	metrics := make([]domain.DerivedMetrics, 0, len(coins))
	for _, id := range coins {
		m := domain.DerivedMetrics{
			CoinID:             id,
			MetricDate:         day,
			MarketDominancePct: dominance[id],
			DominanceRank:      ranks[id],
		}

		series := histories[id]
		returns := dailyReturns(series.Snapshots)

		m.Volatility7d = windowVolatility(returns, 7, 2)
		m.Volatility30d = windowVolatility(returns, c.params.LookbackDays, c.params.VolatilityMinSamples)
		m.AnnualizedReturn = annualizedReturn(returns, c.params.VolatilityMinSamples)
		m.AnnualizedVolatility = windowVolatility(returns, len(returns), c.params.VolatilityMinSamples)
		m.SharpeRatio = sharpeRatio(m.AnnualizedReturn, m.AnnualizedVolatility, c.params.RiskFreeRate)

		c.applyFearGreed(&m, current[id], series)
		applyPriceAggregates(&m, series)

		metrics = append(metrics, m)
	}

	correlations := c.computeCorrelations(coins, histories, day)

	return &Result{Metrics: metrics, Correlations: correlations}, nil
}

// computeDominance returns per-coin dominance percentages and ranks.
// Dominance is nil for every coin unless all universe caps are present and
// their sum is positive: a partial total would overstate every share.
// Ranks are assigned among coins with a known cap regardless, cap DESC with
// coin id ASC tie-break for determinism.
func computeDominance(coins []string, current map[string]domain.Snapshot) (map[string]*float64, map[string]*int) {
	dominance := make(map[string]*float64, len(coins))
	ranks := make(map[string]*int, len(coins))

	total := 0.0
	allCapsKnown := true
	type capped struct {
		id  string
		cap float64
	}
	var withCap []capped

	for _, id := range coins {
		snap := current[id]
		if snap.MarketCap == nil {
			allCapsKnown = false
			continue
		}
		total += *snap.MarketCap
		withCap = append(withCap, capped{id: id, cap: *snap.MarketCap})
	}

	sort.Slice(withCap, func(i, j int) bool {
		if withCap[i].cap != withCap[j].cap {
			return withCap[i].cap > withCap[j].cap
		}
		return withCap[i].id < withCap[j].id
	})
	for i, entry := range withCap {
		rank := i + 1
		ranks[entry.id] = &rank
	}

	if !allCapsKnown || total <= 0 {
		return dominance, ranks
	}

	for _, entry := range withCap {
		pct := entry.cap / total * 100
		p := pct
		dominance[entry.id] = &p
	}
	return dominance, ranks
}

// sharpeRatio computes (annualized return - risk free) / annualized
// volatility. Nil when either input is nil or volatility is exactly zero;
// zero variance is a defined edge case, not an error.
func sharpeRatio(annReturn, annVolatility *float64, riskFree float64) *float64 {
	if annReturn == nil || annVolatility == nil || *annVolatility == 0 {
		return nil
	}
	ratio := (*annReturn - riskFree) / *annVolatility
	return &ratio
}

// applyPriceAggregates fills the trailing 30d price aggregates from the
// series' valid prices. All nil when the series has no usable price.
func applyPriceAggregates(m *domain.DerivedMetrics, series domain.HistoricalSeries) {
	var prices []float64
	for _, s := range series.Snapshots {
		if s.PriceUSD != nil && *s.PriceUSD > 0 {
			prices = append(prices, *s.PriceUSD)
		}
	}
	if len(prices) == 0 {
		return
	}

	sum, minP, maxP := 0.0, prices[0], prices[0]
	for _, p := range prices {
		sum += p
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}
	avg := sum / float64(len(prices))
	m.AvgPrice30d = &avg
	m.MaxPrice30d = &maxP
	m.MinPrice30d = &minP
}
