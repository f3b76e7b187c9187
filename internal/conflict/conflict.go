// Package conflict detects rule contradictions between the top two
// retrieval candidates when their scores are near-tied but their
// precedence levels differ.
package conflict

import (
	"context"
	"encoding/json"
	"fmt"

	"ruleoracle/internal/llm"
	"ruleoracle/internal/retrieval"
	"ruleoracle/internal/store"
)

const (
	scoreThreshold = 0.05
	excerptChars   = 500
)

// Result is the detector's verdict plus the human-readable note attached
// to the final answer when a conflict is found.
type Result struct {
	IsConflict  bool
	Explanation string
	Resolution  string
	Note        string
}

type verdictPayload struct {
	IsConflict  bool   `json:"is_conflict"`
	Explanation string `json:"explanation"`
	Resolution  string `json:"resolution"`
}

// ShouldCheck reports whether the gating condition for invoking the
// conflict LLM call is met: the top two scores are within
// scoreThreshold and their precedence levels differ.
func ShouldCheck(candidates []retrieval.Scored) bool {
	if len(candidates) < 2 {
		return false
	}
	top, next := candidates[0], candidates[1]
	return absFloat(top.Score-next.Score) <= scoreThreshold &&
		top.Chunk.PrecedenceLevel != next.Chunk.PrecedenceLevel
}

type Detector struct {
	client *llm.Client
}

func NewDetector(client *llm.Client) *Detector {
	return &Detector{client: client}
}

// Detect calls the chat model with a strict-JSON conflict prompt over
// the top two pre-expansion candidates, when ShouldCheck gates it on.
func (d *Detector) Detect(ctx context.Context, question string, candidates []retrieval.Scored) (Result, llm.ApiCost, error) {
	if !ShouldCheck(candidates) {
		return Result{}, llm.ApiCost{}, nil
	}
	a, b := candidates[0], candidates[1]

	prompt := fmt.Sprintf(
		"Question: %s\n\nExcerpt A (%s):\n%s\n\nExcerpt B (%s):\n%s\n\n"+
			"Do these excerpts contradict each other with respect to the question? "+
			"Respond with JSON: {\"is_conflict\":bool, \"explanation\":\"\", \"resolution\":\"\"}",
		question,
		sourceTypeLabel(a.Chunk.PrecedenceLevel), truncate(a.Chunk.ChunkText, excerptChars),
		sourceTypeLabel(b.Chunk.PrecedenceLevel), truncate(b.Chunk.ChunkText, excerptChars),
	)

	resp, cost, err := d.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "You are a rules-conflict adjudicator for board games. Respond with strict JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	})
	if err != nil {
		return Result{}, llm.ApiCost{}, fmt.Errorf("conflict: detect: %w", err)
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(resp.Content), &payload); err != nil {
		return Result{}, cost, fmt.Errorf("conflict: unmarshal verdict: %w", err)
	}

	result := Result{IsConflict: payload.IsConflict, Explanation: payload.Explanation, Resolution: payload.Resolution}
	if result.IsConflict {
		result.Note = result.Explanation
		if result.Resolution != "" {
			result.Note += " " + result.Resolution
		}
	}
	return result, cost, nil
}

// sourceTypeLabel maps a precedence tier to the human label used in the
// conflict prompt: errata/faq reads as "Errata/FAQ", expansion as
// "Expansion", base as "Base Rulebook".
func sourceTypeLabel(level store.PrecedenceLevel) string {
	switch level {
	case store.PrecedenceErrata:
		return "Errata/FAQ"
	case store.PrecedenceExpansion:
		return "Expansion"
	default:
		return "Base Rulebook"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
