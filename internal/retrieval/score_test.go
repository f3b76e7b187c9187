package retrieval

import (
	"testing"

	"ruleoracle/internal/store"
)

func TestNormalizeScoresMinMax(t *testing.T) {
	in := map[int64]float64{1: 0, 2: 5, 3: 10}
	out := normalizeScores(in)
	if out[1] != 0 || out[3] != 1 {
		t.Errorf("normalizeScores bounds = %v, want min->0 max->1", out)
	}
	if out[2] != 0.5 {
		t.Errorf("normalizeScores midpoint = %v, want 0.5", out[2])
	}
}

func TestNormalizeScoresAllEqualReturnsOnes(t *testing.T) {
	in := map[int64]float64{1: 0, 2: 0, 3: 0}
	out := normalizeScores(in)
	for id, v := range out {
		if v != 1.0 {
			t.Errorf("normalizeScores[%d] = %v, want 1.0 when all scores tie", id, v)
		}
	}
}

func TestNormalizeScoresEmptyInput(t *testing.T) {
	out := normalizeScores(map[int64]float64{})
	if len(out) != 0 {
		t.Errorf("expected empty output, got %v", out)
	}
}

func TestPrecedenceBoostErrataAlwaysBoosted(t *testing.T) {
	boost := precedenceBoost(store.PrecedenceErrata, nil, nil)
	if boost != 0.15 {
		t.Errorf("errata boost = %v, want 0.15", boost)
	}
}

func TestPrecedenceBoostBaseIsUnaffected(t *testing.T) {
	boost := precedenceBoost(store.PrecedenceBase, nil, nil)
	if boost != 0.0 {
		t.Errorf("base boost = %v, want 0.0", boost)
	}
}

func TestPrecedenceBoostEnabledExpansionDecaysByPriority(t *testing.T) {
	exp1 := int64(1)
	enabled := []int64{1, 2, 3}
	first := precedenceBoost(store.PrecedenceExpansion, &exp1, enabled)
	exp3 := int64(3)
	third := precedenceBoost(store.PrecedenceExpansion, &exp3, enabled)
	if first <= third {
		t.Errorf("expected higher-priority expansion to get a larger boost: first=%v third=%v", first, third)
	}
}

func TestPrecedenceBoostDisabledExpansionIsPenalized(t *testing.T) {
	exp := int64(99)
	boost := precedenceBoost(store.PrecedenceExpansion, &exp, []int64{1, 2})
	if boost != -0.05 {
		t.Errorf("disabled expansion boost = %v, want -0.05", boost)
	}
}

func TestPrecedenceBoostFloorsAtPointZeroFive(t *testing.T) {
	exp := int64(10)
	// priority index 10 would compute to 0.10 - 0.10 = 0.0, floored to 0.05
	enabled := make([]int64, 11)
	for i := range enabled {
		enabled[i] = int64(i)
	}
	boost := precedenceBoost(store.PrecedenceExpansion, &exp, enabled)
	if boost != 0.05 {
		t.Errorf("expected floor of 0.05, got %v", boost)
	}
}
