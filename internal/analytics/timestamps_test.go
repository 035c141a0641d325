package analytics

import (
	"testing"
	"time"
)

func TestMonthKeyUsesUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	local := time.Date(2025, 3, 1, 2, 0, 0, 0, ist)

	if got := MonthKey(local); got != "2025-02" {
		t.Fatalf("expected 2025-02, got %s", got)
	}
	if got := MonthKey(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)); got != "2025-12" {
		t.Fatalf("expected 2025-12, got %s", got)
	}
}
