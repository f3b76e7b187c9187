package answer

import "testing"

func TestVerifyQuoteExactMatch(t *testing.T) {
	chunk := "Players may move up to three spaces per turn, unless a card says otherwise."
	res := VerifyQuote("move up to three spaces per turn", chunk)
	if !res.Verified || res.Fuzzy {
		t.Errorf("expected exact verification, got %+v", res)
	}
}

func TestVerifyQuoteFuzzyMatchWithinThreshold(t *testing.T) {
	chunk := "Players may move up to three spaces per turn, unless a card says otherwise."
	quote := "players may move up to three spases per turn" // one-letter typo, small edit distance
	res := VerifyQuote(quote, chunk)
	if !res.Verified || !res.Fuzzy {
		t.Errorf("expected fuzzy verification to succeed, got %+v", res)
	}
}

func TestVerifyQuoteRejectsUnrelatedText(t *testing.T) {
	chunk := "Players may move up to three spaces per turn."
	res := VerifyQuote("the volcano erupts and destroys every city on the board immediately", chunk)
	if res.Verified {
		t.Errorf("expected verification to fail for unrelated text, got %+v", res)
	}
}

func TestVerifyQuoteEmptyQuoteNeverVerifies(t *testing.T) {
	res := VerifyQuote("", "anything at all")
	if res.Verified {
		t.Error("expected an empty quote to never verify")
	}
}

func TestVerifyAcrossChunksReturnsFirstMatchIndex(t *testing.T) {
	chunks := []string{
		"Setup instructions go here.",
		"Players may move up to three spaces per turn.",
		"Scoring happens at the end of the game.",
	}
	idx, res := VerifyAcrossChunks("move up to three spaces per turn", chunks)
	if idx != 1 || !res.Verified {
		t.Errorf("VerifyAcrossChunks = (%d, %+v), want index 1 verified", idx, res)
	}
}

func TestVerifyAcrossChunksReturnsNegativeOneWhenNoneMatch(t *testing.T) {
	chunks := []string{"alpha", "beta", "gamma"}
	idx, res := VerifyAcrossChunks("completely unrelated sentence about dragons", chunks)
	if idx != -1 || res.Verified {
		t.Errorf("expected no match, got (%d, %+v)", idx, res)
	}
}

func TestMaxFuzzyDistanceFloorsAtEight(t *testing.T) {
	if got := maxFuzzyDistance(10); got != 8 {
		t.Errorf("maxFuzzyDistance(10) = %d, want floor of 8", got)
	}
}

func TestMaxFuzzyDistanceScalesWithLongQuotes(t *testing.T) {
	got := maxFuzzyDistance(1000)
	if got != 20 {
		t.Errorf("maxFuzzyDistance(1000) = %d, want 20 (2%% of 1000)", got)
	}
}
