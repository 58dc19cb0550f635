// Package quality runs the fixed data-quality check battery over a transform
// batch before it is allowed to reach storage.
package quality

import (
	"fmt"
	"sort"
	"time"

	"coinpulse/internal/domain"
)

// Params holds the validator thresholds.
type Params struct {
	PriceCeiling        float64       // sanity ceiling for prices, default 10_000_000
	AnomalyThresholdPct float64       // |24h change| beyond this warns, default 50
	FreshnessMaxAge     time.Duration // snapshot age beyond this warns, default 24h
}

// DefaultParams returns the validator defaults.
func DefaultParams() Params {
	return Params{
		PriceCeiling:        10_000_000,
		AnomalyThresholdPct: 50,
		FreshnessMaxAge:     24 * time.Hour,
	}
}

// Validator runs an ordered battery of independent checks against the current
// snapshots and the derived output. Checks never depend on each other's
// outcome; the battery always runs to completion.
type Validator struct {
	params Params
	now    func() time.Time
}

// NewValidator creates a Validator with the given params and the wall clock.
func NewValidator(params Params) *Validator {
	return &Validator{params: params, now: time.Now}
}

// WithClock replaces the clock, for deterministic tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate runs all checks in order and returns the report. Critical checks
// (null critical fields, duplicates) fail the batch; the rest warn.
func (v *Validator) Validate(snapshots []domain.Snapshot, metrics []domain.DerivedMetrics) domain.ValidationReport {
	return domain.ValidationReport{
		Checks: []domain.CheckResult{
			checkNullCriticalFields(snapshots),
			checkDuplicates(metrics),
			v.checkPriceValidity(snapshots),
			v.checkAnomalies(snapshots),
			v.checkFreshness(snapshots),
		},
	}
}

// checkNullCriticalFields fails when any record is missing its coin id,
// price, or market cap. These fields anchor the warehouse keys and the
// dominance computation; a batch without them is not loadable.
func checkNullCriticalFields(snapshots []domain.Snapshot) domain.CheckResult {
	var affected []string
	for _, s := range snapshots {
		if s.CoinID == "" || s.PriceUSD == nil || s.MarketCap == nil {
			id := s.CoinID
			if id == "" {
				id = "(missing coin id)"
			}
			affected = append(affected, id)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		return domain.CheckResult{
			Name:     "null_critical_fields",
			Status:   domain.CheckFail,
			Message:  fmt.Sprintf("%d records missing coin id, price, or market cap", len(affected)),
			Affected: affected,
		}
	}
	return domain.CheckResult{
		Name:    "null_critical_fields",
		Status:  domain.CheckPass,
		Message: "all critical fields present",
	}
}

// checkDuplicates fails when two metric rows share (coin, date).
func checkDuplicates(metrics []domain.DerivedMetrics) domain.CheckResult {
	type key struct {
		coin string
		date time.Time
	}
	seen := make(map[key]int, len(metrics))
	for _, m := range metrics {
		seen[key{m.CoinID, m.MetricDate}]++
	}

	var affected []string
	for k, count := range seen {
		if count > 1 {
			affected = append(affected, k.coin)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		return domain.CheckResult{
			Name:     "duplicate_records",
			Status:   domain.CheckFail,
			Message:  fmt.Sprintf("%d coins appear more than once for the run date", len(affected)),
			Affected: affected,
		}
	}
	return domain.CheckResult{
		Name:    "duplicate_records",
		Status:  domain.CheckPass,
		Message: "no duplicate (coin, date) records",
	}
}

// checkPriceValidity warns on non-positive prices or prices above the sanity
// ceiling. Suspect prices flag for review but do not block the load.
func (v *Validator) checkPriceValidity(snapshots []domain.Snapshot) domain.CheckResult {
	var affected []string
	for _, s := range snapshots {
		if s.PriceUSD == nil {
			continue // already a critical-field violation
		}
		if *s.PriceUSD <= 0 || *s.PriceUSD >= v.params.PriceCeiling {
			affected = append(affected, s.CoinID)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		return domain.CheckResult{
			Name:     "price_validity",
			Status:   domain.CheckWarn,
			Message:  fmt.Sprintf("%d prices outside (0, %.0f)", len(affected), v.params.PriceCeiling),
			Affected: affected,
		}
	}
	return domain.CheckResult{
		Name:    "price_validity",
		Status:  domain.CheckPass,
		Message: "all prices within sane bounds",
	}
}

// checkAnomalies warns when a 24h change exceeds the anomaly threshold in
// either direction.
func (v *Validator) checkAnomalies(snapshots []domain.Snapshot) domain.CheckResult {
	var affected []string
	for _, s := range snapshots {
		if s.Change24hPct == nil {
			continue
		}
		if *s.Change24hPct > v.params.AnomalyThresholdPct || *s.Change24hPct < -v.params.AnomalyThresholdPct {
			affected = append(affected, s.CoinID)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		return domain.CheckResult{
			Name:     "price_change_anomaly",
			Status:   domain.CheckWarn,
			Message:  fmt.Sprintf("%d coins moved more than %.0f%% in 24h", len(affected), v.params.AnomalyThresholdPct),
			Affected: affected,
		}
	}
	return domain.CheckResult{
		Name:    "price_change_anomaly",
		Status:  domain.CheckPass,
		Message: fmt.Sprintf("no 24h change beyond %.0f%%", v.params.AnomalyThresholdPct),
	}
}

// checkFreshness warns when any snapshot is older than the max age relative
// to the validator clock.
func (v *Validator) checkFreshness(snapshots []domain.Snapshot) domain.CheckResult {
	now := v.now()
	var affected []string
	for _, s := range snapshots {
		if now.Sub(s.Timestamp) > v.params.FreshnessMaxAge {
			affected = append(affected, s.CoinID)
		}
	}
	sort.Strings(affected)

	if len(affected) > 0 {
		return domain.CheckResult{
			Name:     "data_freshness",
			Status:   domain.CheckWarn,
			Message:  fmt.Sprintf("%d snapshots older than %s", len(affected), v.params.FreshnessMaxAge),
			Affected: affected,
		}
	}
	return domain.CheckResult{
		Name:    "data_freshness",
		Status:  domain.CheckPass,
		Message: fmt.Sprintf("all snapshots within %s", v.params.FreshnessMaxAge),
	}
}
