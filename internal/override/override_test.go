package override

import (
	"testing"

	"ruleoracle/internal/store"
)

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	v := []float32{1, 2, 3}
	got := cosineSimilarity(v, v)
	if got < 0.999 || got > 1.001 {
		t.Errorf("cosineSimilarity(v, v) = %v, want ~1.0", got)
	}
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	got := cosineSimilarity(a, b)
	if got < -0.001 || got > 0.001 {
		t.Errorf("cosineSimilarity(orthogonal) = %v, want 0", got)
	}
}

func TestCosineSimilarityMismatchedLengthReturnsZero(t *testing.T) {
	got := cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	if got != 0 {
		t.Errorf("cosineSimilarity(mismatched) = %v, want 0", got)
	}
}

func TestTopSimilarFiltersByThresholdAndSortsDescending(t *testing.T) {
	query := []float32{1, 0, 0}
	base := []store.Chunk{
		{ID: 1, Embedding: []float32{1, 0, 0}},    // similarity 1.0
		{ID: 2, Embedding: []float32{0.9, 0.1, 0}}, // similarity close to 1 but lower
		{ID: 3, Embedding: []float32{0, 1, 0}},    // orthogonal, below threshold
		{ID: 4, Embedding: nil},                   // no embedding, excluded
	}
	out := topSimilar(query, base, 3, 0.5)
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates above threshold, got %d", len(out))
	}
	if out[0].ID != 1 {
		t.Errorf("expected the identical-vector chunk first, got id %d", out[0].ID)
	}
}

func TestTopSimilarRespectsMaxN(t *testing.T) {
	query := []float32{1, 0}
	base := []store.Chunk{
		{ID: 1, Embedding: []float32{1, 0}},
		{ID: 2, Embedding: []float32{1, 0}},
		{ID: 3, Embedding: []float32{1, 0}},
	}
	out := topSimilar(query, base, 2, 0.5)
	if len(out) != 2 {
		t.Errorf("expected maxN=2 candidates, got %d", len(out))
	}
}

func TestKeywordPatternMatchesSupersessionLanguage(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"This rule replaces the base rule entirely.", true},
		{"This turn order takes precedence over the base order.", true},
		{"Setup the board as usual and begin play.", false},
	}
	for _, c := range cases {
		if got := keywordPattern.MatchString(c.text); got != c.want {
			t.Errorf("keywordPattern.MatchString(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}
