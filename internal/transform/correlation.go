package transform

import (
	"math"
	"sort"
	"time"

	"coinpulse/internal/domain"
)

// computeCorrelations builds the Pearson correlation set over every unordered
// coin pair with sufficient overlapping daily returns. Pairs below the
// overlap minimum, and pairs where either aligned series has zero variance,
// are omitted rather than emitted as nulls. CoinA < CoinB lexicographically,
// so mirrored rows never appear. O(k²·n) for k coins and window n, fine at
// tens of coins.
func (c *Calculator) computeCorrelations(
	coins []string,
	histories map[string]domain.HistoricalSeries,
	day time.Time,
) []domain.CorrelationEntry {
	returnsByCoin := make(map[string]map[string]float64, len(coins))
	for _, id := range coins {
		if series, ok := histories[id]; ok {
			returnsByCoin[id] = datedReturns(series.Snapshots)
		}
	}

	var entries []domain.CorrelationEntry
	for i := 0; i < len(coins); i++ {
		for j := i + 1; j < len(coins); j++ {
			a, b := coins[i], coins[j]
			coeff, n, ok := pairCorrelation(returnsByCoin[a], returnsByCoin[b], c.params.CorrelationMinOverlap)
			if !ok {
				continue
			}
			entries = append(entries, domain.CorrelationEntry{
				MetricDate:  day,
				CoinA:       a,
				CoinB:       b,
				Coefficient: coeff,
				SampleSize:  n,
			})
		}
	}
	return entries
}

// datedReturns computes daily returns keyed by the UTC day of the later
// observation, so two coins' series align by calendar day even when one has
// gaps. Points with nil or non-positive prices are dropped first.
func datedReturns(snapshots []domain.Snapshot) map[string]float64 {
	type pricePoint struct {
		day   string
		price float64
	}
	var points []pricePoint
	for _, s := range snapshots {
		if s.PriceUSD != nil && *s.PriceUSD > 0 {
			points = append(points, pricePoint{
				day:   s.Timestamp.UTC().Format("2006-01-02"),
				price: *s.PriceUSD,
			})
		}
	}

	returns := make(map[string]float64, len(points))
	for i := 1; i < len(points); i++ {
		returns[points[i].day] = points[i].price/points[i-1].price - 1
	}
	return returns
}

// pairCorrelation aligns two dated return sets on their shared days and
// computes the Pearson coefficient. ok is false when the overlap is below
// minOverlap or either aligned series is constant (undefined correlation).
func pairCorrelation(ra, rb map[string]float64, minOverlap int) (float64, int, bool) {
	if len(ra) == 0 || len(rb) == 0 {
		return 0, 0, false
	}

	var shared []string
	for day := range ra {
		if _, ok := rb[day]; ok {
			shared = append(shared, day)
		}
	}
	if len(shared) < minOverlap {
		return 0, 0, false
	}
	sort.Strings(shared)

	xs := make([]float64, len(shared))
	ys := make([]float64, len(shared))
	for i, day := range shared {
		xs[i] = ra[day]
		ys[i] = rb[day]
	}

	coeff, ok := pearson(xs, ys)
	if !ok {
		return 0, 0, false
	}
	return coeff, len(shared), true
}

// pearson computes the Pearson correlation coefficient of two equal-length
// samples, clamped to [-1, 1] against float drift. ok is false when either
// sample has zero variance.
func pearson(xs, ys []float64) (float64, bool) {
	n := float64(len(xs))
	meanX := mean(xs)
	meanY := mean(ys)

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}

	coeff := cov / n / (math.Sqrt(varX/n) * math.Sqrt(varY/n))
	return clamp(coeff, -1, 1), true
}
