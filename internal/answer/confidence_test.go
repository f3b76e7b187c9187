package answer

import (
	"testing"

	"ruleoracle/internal/store"
)

func TestGradeHighRequiresVerifiedStrongScoreAndGapNoConflict(t *testing.T) {
	conf, reason := Grade(true, 0.9, 0.1, false)
	if conf != store.ConfidenceHigh || reason != "" {
		t.Errorf("Grade() = (%q, %q), want (high, \"\")", conf, reason)
	}
}

func TestGradeMediumWhenGapTooSmallForHigh(t *testing.T) {
	conf, _ := Grade(true, 0.9, 0.02, false)
	if conf != store.ConfidenceMedium {
		t.Errorf("Grade() = %q, want medium", conf)
	}
}

func TestGradeLowWhenUnverified(t *testing.T) {
	conf, reason := Grade(false, 0.95, 0.2, false)
	if conf != store.ConfidenceLow || reason != ReasonUnverified {
		t.Errorf("Grade() = (%q, %q), want (low, %q)", conf, reason, ReasonUnverified)
	}
}

func TestGradeLowOnConflictEvenWithStrongScore(t *testing.T) {
	conf, reason := Grade(true, 0.95, 0.2, true)
	if conf != store.ConfidenceLow || reason != ReasonConflict {
		t.Errorf("Grade() = (%q, %q), want (low, %q)", conf, reason, ReasonConflict)
	}
}

func TestGradeLowWeakMatch(t *testing.T) {
	conf, reason := Grade(true, 0.5, 0.2, false)
	if conf != store.ConfidenceLow || reason != ReasonWeakMatch {
		t.Errorf("Grade() = (%q, %q), want (low, %q)", conf, reason, ReasonWeakMatch)
	}
}
