package chunker

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 1},
		{strings.Repeat("a", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.in); got != c.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDocumentChunkIndexIsMonotonicAcrossPages(t *testing.T) {
	pages := []Page{
		{PageNumber: 1, Text: "First sentence here. Second sentence follows. Third one too."},
		{PageNumber: 2, Text: "Fourth sentence on page two. Fifth sentence wraps it up."},
	}
	chunks := Document(pages, DefaultConfig())
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("chunk %d has ChunkIndex %d, want %d", i, c.ChunkIndex, i)
		}
	}
}

func TestDocumentSkipsBlankPages(t *testing.T) {
	pages := []Page{
		{PageNumber: 1, Text: "   "},
		{PageNumber: 2, Text: "Only real content lives here."},
	}
	chunks := Document(pages, DefaultConfig())
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].PageNumber != 2 {
		t.Errorf("expected chunk from page 2, got page %d", chunks[0].PageNumber)
	}
}

func TestDocumentRespectsAbbreviationsAndDecimals(t *testing.T) {
	pages := []Page{
		{PageNumber: 1, Text: "Roll 2.5 dice per turn. See Mr. Smith for the rule. Then continue play."},
	}
	chunks := Document(pages, DefaultConfig())
	if len(chunks) == 0 {
		t.Fatal("expected at least one chunk")
	}
	joined := chunks[0].Text
	if !strings.Contains(joined, "2.5") {
		t.Errorf("decimal 2.5 should not be split into a sentence boundary, got %q", joined)
	}
}

func TestDocumentSplitsOversizedSentenceByWords(t *testing.T) {
	longSentence := strings.Repeat("word ", 1000) + "."
	pages := []Page{{PageNumber: 1, Text: longSentence}}
	cfg := Config{MaxTokens: 50, OverlapFraction: 0.5}
	chunks := Document(pages, cfg)
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized sentence to split into multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.EstTokens > cfg.MaxTokens*2 {
			t.Errorf("chunk token estimate %d is far beyond MaxTokens %d", c.EstTokens, cfg.MaxTokens)
		}
	}
}

func TestDocumentProducesOverlapBetweenConsecutiveChunks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is sentence number filler content to force a split. ")
	}
	pages := []Page{{PageNumber: 1, Text: sb.String()}}
	chunks := Document(pages, Config{MaxTokens: 60, OverlapFraction: 0.5})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks to exercise overlap, got %d", len(chunks))
	}
}
