// Package answer implements structured answer generation and the
// two-pass citation verifier.
package answer

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"ruleoracle/internal/normalize"
)

// VerifyResult reports whether a quote was confirmed against a chunk's
// text, exactly or within the bounded-edit-distance fuzzy pass.
type VerifyResult struct {
	Verified bool
	Fuzzy    bool
	Distance int
}

// maxFuzzyDistance is the acceptance threshold for the windowed fuzzy
// pass: at least 8, or 2% of the quote's length if larger. This resolves
// the threshold arithmetic left ambiguous upstream — the intended
// behavior takes the larger of an absolute floor and a percentage of
// quote length, never their minimum.
func maxFuzzyDistance(quoteLen int) int {
	pct := int(math.Floor(0.02 * float64(quoteLen)))
	if pct > 8 {
		return pct
	}
	return 8
}

// VerifyQuote runs the exact pass, then the fuzzy windowed pass, against
// a single chunk's text.
func VerifyQuote(quote, chunkText string) VerifyResult {
	normQuote := normalize.ForMatch(quote)
	normChunk := normalize.ForMatch(chunkText)
	if normQuote == "" {
		return VerifyResult{}
	}
	if strings.Contains(normChunk, normQuote) {
		return VerifyResult{Verified: true}
	}
	dist := findBestMatchWindow(normQuote, normChunk)
	threshold := maxFuzzyDistance(len(normQuote))
	if dist <= threshold {
		return VerifyResult{Verified: true, Fuzzy: true, Distance: dist}
	}
	return VerifyResult{Distance: dist}
}

// VerifyAcrossChunks retries verification across every candidate chunk
// text, returning the index of the first chunk the quote verifies
// against, or -1 if none match.
func VerifyAcrossChunks(quote string, chunkTexts []string) (int, VerifyResult) {
	for i, text := range chunkTexts {
		res := VerifyQuote(quote, text)
		if res.Verified {
			return i, res
		}
	}
	return -1, VerifyResult{}
}

// windowSizeFactors are the sliding-window sizes searched for the best
// Levenshtein match, expressed as multiples of the quote length.
var windowSizeFactors = []float64{1.0, 0.9, 1.1, 0.95, 1.05}

// findBestMatchWindow searches chunkText for the window whose edit
// distance to quote is smallest, using a coarse step (window/20) to keep
// the search sub-linear in chunk size, with an early exit on a perfect
// match.
func findBestMatchWindow(quote, chunkText string) int {
	if len(chunkText) <= len(quote) {
		return levenshtein.ComputeDistance(quote, chunkText)
	}

	best := len(quote) + len(chunkText) // worst case upper bound
	quoteLen := len(quote)

	for _, factor := range windowSizeFactors {
		windowSize := int(float64(quoteLen) * factor)
		if windowSize < 1 {
			windowSize = 1
		}
		if windowSize > len(chunkText) {
			windowSize = len(chunkText)
		}
		step := windowSize / 20
		if step < 1 {
			step = 1
		}
		for start := 0; start+windowSize <= len(chunkText); start += step {
			window := chunkText[start : start+windowSize]
			dist := levenshtein.ComputeDistance(quote, window)
			if dist < best {
				best = dist
			}
			if best == 0 {
				return 0
			}
		}
	}
	return best
}
