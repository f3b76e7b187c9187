package answer

import "ruleoracle/internal/store"

const (
	ReasonUnverified = "unverified"
	ReasonConflict   = "conflict"
	ReasonWeakMatch  = "weak-match"
	ReasonAmbiguous  = "ambiguous"
)

// Grade computes the confidence grade and its reason string from
// verification status, the top candidate's normalized score, the gap to
// the next candidate, and whether a conflict was flagged.
func Grade(verified bool, topScore, scoreGap float64, conflict bool) (store.Confidence, string) {
	if verified && topScore >= 0.85 && scoreGap >= 0.08 && !conflict {
		return store.ConfidenceHigh, ""
	}
	if verified && topScore >= 0.70 && !conflict {
		return store.ConfidenceMedium, ""
	}
	switch {
	case !verified:
		return store.ConfidenceLow, ReasonUnverified
	case conflict:
		return store.ConfidenceLow, ReasonConflict
	case topScore < 0.70:
		return store.ConfidenceLow, ReasonWeakMatch
	default:
		return store.ConfidenceLow, ReasonAmbiguous
	}
}
