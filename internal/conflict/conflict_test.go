package conflict

import (
	"testing"

	"ruleoracle/internal/retrieval"
	"ruleoracle/internal/store"
)

func candidate(score float64, level store.PrecedenceLevel) retrieval.Scored {
	return retrieval.Scored{Chunk: store.Chunk{PrecedenceLevel: level}, Score: score}
}

func TestShouldCheckRequiresTwoCandidates(t *testing.T) {
	if ShouldCheck([]retrieval.Scored{candidate(0.9, store.PrecedenceBase)}) {
		t.Error("ShouldCheck with one candidate should be false")
	}
}

func TestShouldCheckTrueWhenScoresCloseAndPrecedenceDiffers(t *testing.T) {
	cands := []retrieval.Scored{
		candidate(0.90, store.PrecedenceExpansion),
		candidate(0.87, store.PrecedenceBase),
	}
	if !ShouldCheck(cands) {
		t.Error("expected ShouldCheck true for close scores with differing precedence")
	}
}

func TestShouldCheckFalseWhenScoresFarApart(t *testing.T) {
	cands := []retrieval.Scored{
		candidate(0.95, store.PrecedenceExpansion),
		candidate(0.40, store.PrecedenceBase),
	}
	if ShouldCheck(cands) {
		t.Error("expected ShouldCheck false when the score gap exceeds the threshold")
	}
}

func TestShouldCheckFalseWhenSamePrecedence(t *testing.T) {
	cands := []retrieval.Scored{
		candidate(0.90, store.PrecedenceBase),
		candidate(0.89, store.PrecedenceBase),
	}
	if ShouldCheck(cands) {
		t.Error("expected ShouldCheck false when both candidates share the same precedence tier")
	}
}
