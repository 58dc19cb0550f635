package transform

import (
	"math"

	"coinpulse/internal/domain"
)

// annualizationFactor annualizes daily statistics: sqrt(365) for volatility,
// 365/n exponent for returns.
const daysPerYear = 365.0

// dailyReturns computes simple returns r_t = p_t/p_{t-1} - 1 across the
// series' snapshots. Points with a nil or non-positive price are skipped, so
// missing days shrink the sample rather than fabricate observations.
// The series is assumed ordered by timestamp ASC.
func dailyReturns(snapshots []domain.Snapshot) []float64 {
	var prices []float64
	for _, s := range snapshots {
		if s.PriceUSD != nil && *s.PriceUSD > 0 {
			prices = append(prices, *s.PriceUSD)
		}
	}
	if len(prices) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns = append(returns, prices[i]/prices[i-1]-1)
	}
	return returns
}

// windowVolatility computes the annualized sample standard deviation of the
// trailing `window` returns. Nil when fewer than minSamples observations are
// available: absence signals insufficient history, never zero.
func windowVolatility(returns []float64, window, minSamples int) *float64 {
	if minSamples < 2 {
		minSamples = 2
	}
	tail := trailing(returns, window)
	if len(tail) < minSamples {
		return nil
	}
	vol := sampleStddev(tail) * math.Sqrt(daysPerYear)
	return &vol
}

// annualizedReturn computes the geometric mean of daily returns, annualized:
// (prod(1+r))^(365/n) - 1. Nil under the same insufficiency condition as the
// 30d volatility.
func annualizedReturn(returns []float64, minSamples int) *float64 {
	if minSamples < 2 {
		minSamples = 2
	}
	if len(returns) < minSamples {
		return nil
	}

	prod := 1.0
	for _, r := range returns {
		prod *= 1 + r
	}
	if prod <= 0 {
		return nil
	}
	ann := math.Pow(prod, daysPerYear/float64(len(returns))) - 1
	return &ann
}

// trailing returns the last n elements of s (all of s when n >= len).
func trailing(s []float64, n int) []float64 {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// mean computes the arithmetic mean. Zero for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev computes the sample standard deviation (n-1 denominator).
// Requires len >= 2; callers gate on sample size first.
func sampleStddev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - m
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
