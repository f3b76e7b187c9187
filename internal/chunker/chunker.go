// Package chunker segments page text into token-bounded, overlapping,
// sentence-aware chunks for indexing.
package chunker

import (
	"regexp"
	"strings"
)

// Config holds the chunker's tunables; defaults match the documented
// max_tokens=400, overlap_fraction=0.5.
type Config struct {
	MaxTokens      int
	OverlapFraction float64
}

func DefaultConfig() Config {
	return Config{MaxTokens: 400, OverlapFraction: 0.5}
}

// Page is one unit of input: a page number and its extracted (or OCR'd) text.
type Page struct {
	PageNumber int
	Text       string
}

// Chunk is one output segment, chunk_index monotonically increasing
// across the whole document.
type Chunk struct {
	PageNumber int
	ChunkIndex int
	Text       string
	EstTokens  int
}

// EstimateTokens approximates token count at 1 token ≈ 4 characters, the
// same heuristic used throughout the pack wherever a real tokenizer isn't
// wired in.
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

var abbreviations = []string{
	"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Sr.", "Jr.",
	"e.g.", "i.e.", "etc.", "vs.", "St.",
}

var (
	sentenceSplitRe = regexp.MustCompile(`(?s)(?:[.!?])\s+(?:[A-Z])`)
	decimalRe       = regexp.MustCompile(`(\d)\.(\d)`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

const (
	dotPlaceholder     = "\x00DOT\x00"
	decimalPlaceholder = "\x00DEC\x00"
)

// splitIntoSentences splits text on sentence boundaries, protecting
// common abbreviations and decimal numerals from being mistaken for
// sentence-ending periods.
func splitIntoSentences(text string) []string {
	protected := text
	for _, abbr := range abbreviations {
		placeholder := strings.ReplaceAll(abbr, ".", dotPlaceholder)
		protected = strings.ReplaceAll(protected, abbr, placeholder)
	}
	protected = decimalRe.ReplaceAllString(protected, "$1"+decimalPlaceholder+"$2")

	var sentences []string
	last := 0
	locs := sentenceSplitRe.FindAllStringIndex(protected, -1)
	for _, loc := range locs {
		// split point is right after the punctuation+space, before the
		// capital letter the regex matched
		splitAt := loc[1] - 1
		sentences = append(sentences, protected[last:splitAt])
		last = splitAt
	}
	sentences = append(sentences, protected[last:])

	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.ReplaceAll(s, dotPlaceholder, ".")
		s = strings.ReplaceAll(s, decimalPlaceholder, ".")
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// Document chunks a whole document's pages, chaining chunk_index across
// page boundaries the way the original chunk_document entry point does.
func Document(pages []Page, cfg Config) []Chunk {
	var out []Chunk
	nextIndex := 0
	var carry []string // sentences carried into the next chunk as overlap
	carryTokens := 0
	var curPage int

	flush := func(pageNumber int) {
		if len(carry) == 0 {
			return
		}
		text := normalizeWhitespace(strings.Join(carry, " "))
		if text == "" {
			carry = nil
			carryTokens = 0
			return
		}
		out = append(out, Chunk{PageNumber: pageNumber, ChunkIndex: nextIndex, Text: text, EstTokens: EstimateTokens(text)})
		nextIndex++
	}

	for _, page := range pages {
		curPage = page.PageNumber
		text := normalizeWhitespace(page.Text)
		if text == "" {
			continue
		}
		for _, sentence := range splitIntoSentences(text) {
			tokens := EstimateTokens(sentence)
			if tokens > cfg.MaxTokens {
				// oversized single sentence: flush what's pending, then
				// word-split this sentence with word-level overlap
				flush(curPage)
				carry = nil
				carryTokens = 0
				for _, wc := range wordSplit(sentence, cfg.MaxTokens) {
					out = append(out, Chunk{PageNumber: curPage, ChunkIndex: nextIndex, Text: wc, EstTokens: EstimateTokens(wc)})
					nextIndex++
				}
				continue
			}
			if carryTokens+tokens > cfg.MaxTokens && len(carry) > 0 {
				flush(curPage)
				carry, carryTokens = tailOverlap(carry, cfg.MaxTokens, cfg.OverlapFraction)
			}
			carry = append(carry, sentence)
			carryTokens += tokens
		}
	}
	flush(curPage)
	return out
}

// tailOverlap keeps the tail sentences of a just-emitted chunk whose
// combined tokens are ≤ max_tokens × overlap_fraction, seeding the next
// chunk.
func tailOverlap(sentences []string, maxTokens int, overlapFraction float64) ([]string, int) {
	budget := int(float64(maxTokens) * overlapFraction)
	var kept []string
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		t := EstimateTokens(sentences[i])
		if total+t > budget {
			break
		}
		kept = append([]string{sentences[i]}, kept...)
		total += t
	}
	return kept, total
}

// wordSplit breaks an oversized sentence into word-bounded chunks ≤
// maxTokens, each seeded with half of the previous chunk's words as
// overlap.
func wordSplit(sentence string, maxTokens int) []string {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return nil
	}
	maxWords := maxTokens * 4 / averageWordLen(words)
	if maxWords < 1 {
		maxWords = 1
	}
	var out []string
	i := 0
	for i < len(words) {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		wordChunk := words[i:end]
		out = append(out, strings.Join(wordChunk, " "))
		if end >= len(words) {
			break
		}
		overlapWordCount := len(wordChunk) / 2
		if overlapWordCount < 1 {
			overlapWordCount = 1
		}
		i = end - overlapWordCount
	}
	return out
}

func averageWordLen(words []string) int {
	total := 0
	for _, w := range words {
		total += len(w) + 1
	}
	avg := total / len(words)
	if avg < 1 {
		return 1
	}
	return avg
}
