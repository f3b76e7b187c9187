package budget

import (
	"testing"
	"time"
)

func TestNextUTCMidnightAdvancesOneDay(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	got := nextUTCMidnight(now)
	want := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextUTCMidnight(%v) = %v, want %v", now, got, want)
	}
}

func TestNextUTCMidnightAtExactMidnightStillAdvances(t *testing.T) {
	now := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	got := nextUTCMidnight(now)
	want := time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("nextUTCMidnight(%v) = %v, want %v", now, got, want)
	}
}
