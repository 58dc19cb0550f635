package domain

import "testing"

func TestValidationReportClassification(t *testing.T) {
	report := ValidationReport{
		Checks: []CheckResult{
			{Name: "a", Status: CheckPass},
			{Name: "b", Status: CheckWarn, Affected: []string{"bitcoin"}},
		},
	}

	if report.CriticalFailed() {
		t.Error("warn-only report must not count as critical failure")
	}
	if !report.HasWarnings() {
		t.Error("report with a warn check must report warnings")
	}

	report.Checks = append(report.Checks, CheckResult{Name: "c", Status: CheckFail})
	if !report.CriticalFailed() {
		t.Error("fail check must count as critical failure")
	}

	if got := report.Checks[1].AffectedCount(); got != 1 {
		t.Errorf("AffectedCount = %d, want 1", got)
	}
}
