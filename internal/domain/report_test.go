package domain

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return parsed
}

func TestReportClosed(t *testing.T) {
	report := &Report{Status: ReportStatusOpen}
	if report.Closed() {
		t.Error("open report reported as closed")
	}
	report.Status = ReportStatusClosed
	if !report.Closed() {
		t.Error("closed report not reported as closed")
	}
}
