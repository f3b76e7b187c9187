// Package retrieval implements hybrid lexical + vector search, score
// normalization, precedence boosting, and adjacency expansion.
package retrieval

import "ruleoracle/internal/store"

const (
	keywordWeight = 0.4
	vectorWeight  = 0.6
)

// normalizeScores performs min-max normalization across a score column;
// when every score is equal (including the all-zero case), it returns
// all 1.0 rather than dividing by zero.
func normalizeScores(scores map[int64]float64) map[int64]float64 {
	if len(scores) == 0 {
		return scores
	}
	min, max := minMax(scores)
	out := make(map[int64]float64, len(scores))
	if max == min {
		for id := range scores {
			out[id] = 1.0
		}
		return out
	}
	for id, s := range scores {
		out[id] = (s - min) / (max - min)
	}
	return out
}

func minMax(scores map[int64]float64) (float64, float64) {
	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}

// precedenceBoost applies the ranking adjustment for a chunk's
// precedence tier: errata/FAQ always boosted; an enabled expansion is
// boosted by a priority-decaying amount; a disabled expansion chunk is
// penalized; base chunks are unaffected.
func precedenceBoost(level store.PrecedenceLevel, expansionID *int64, enabledExpansions []int64) float64 {
	switch level {
	case store.PrecedenceErrata:
		return 0.15
	case store.PrecedenceExpansion:
		priority, enabled := expansionPriority(expansionID, enabledExpansions)
		if !enabled {
			return -0.05
		}
		boost := 0.10 - 0.01*float64(priority)
		if boost < 0.05 {
			boost = 0.05
		}
		return boost
	default:
		return 0.0
	}
}

// expansionPriority returns the zero-based position of expansionID in
// the caller's ordered, highest-priority-first expansion list, and
// whether it's enabled at all.
func expansionPriority(expansionID *int64, enabledExpansions []int64) (int, bool) {
	if expansionID == nil {
		return 0, false
	}
	for i, id := range enabledExpansions {
		if id == *expansionID {
			return i, true
		}
	}
	return 0, false
}
