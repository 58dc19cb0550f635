package domain

// CheckStatus classifies one quality check outcome.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail" // critical: blocks the batch
	CheckWarn CheckStatus = "warn" // recorded, does not block
)

// CheckResult is the outcome of a single quality check.
type CheckResult struct {
	Name     string      // stable check name, e.g. "null_critical_fields"
	Status   CheckStatus
	Message  string      // human-readable summary
	Affected []string    // coin ids that violated the check, sorted ASC
}

// AffectedCount returns the number of violating records.
func (r CheckResult) AffectedCount() int { return len(r.Affected) }

// ValidationReport is the ordered sequence of check results for one batch.
// It is immutable once produced.
type ValidationReport struct {
	Checks []CheckResult
}

// CriticalFailed reports whether any check failed at critical level.
func (r ValidationReport) CriticalFailed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}

// HasWarnings reports whether any check produced a warning.
func (r ValidationReport) HasWarnings() bool {
	for _, c := range r.Checks {
		if c.Status == CheckWarn {
			return true
		}
	}
	return false
}
