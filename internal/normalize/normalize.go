// Package normalize implements question normalization: the cache-key
// function must be stable under case, punctuation, and whitespace
// differences that don't change the question's meaning.
package normalize

import (
	"regexp"
	"strings"
)

var (
	punctuationRe = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"eleven": "11", "twelve": "12",
}

// Question lowercases, strips punctuation, collapses whitespace, and
// folds small number-words to digits, so that two questions differing
// only in letter case, surrounding punctuation, or collapsible whitespace
// produce the same normalized form (and therefore the same cache key).
func Question(q string) string {
	s := strings.ToLower(strings.TrimSpace(q))
	s = punctuationRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	words := strings.Split(s, " ")
	for i, w := range words {
		if digit, ok := numberWords[w]; ok {
			words[i] = digit
		}
	}
	return strings.Join(words, " ")
}

// Whitespace collapses runs of whitespace to a single space and trims the
// ends, used by the citation verifier's exact-match pass.
func Whitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ForMatch lowercases and collapses whitespace, the normalization the
// two-pass citation verifier applies before comparing a quote to chunk
// text.
func ForMatch(s string) string {
	return strings.ToLower(Whitespace(s))
}
