// Package override implements the one-shot, post-ingestion supersession
// detector: for each newly ingested expansion chunk, it checks whether
// the chunk replaces a specific base-rule chunk.
package override

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"

	"ruleoracle/internal/llm"
	"ruleoracle/internal/store"
)

const (
	similarityThreshold   = 0.82
	maxCandidatesPerChunk = 3
	excerptChars          = 800
	acceptConfidence      = 70
)

var keywordPattern = regexp.MustCompile(`(?i)\b(instead|replaces|ignores|supersedes|overrides|` +
	`in place of|rather than|no longer|use this rule|takes precedence|now (?:you|players)|changes to)\b`)

type classifyPayload struct {
	IsOverride     bool   `json:"is_override"`
	Confidence     int    `json:"confidence"`
	EvidencePhrase string `json:"evidence_phrase"`
}

type Detector struct {
	client *llm.Client
	chunks *store.ChunkRepo
}

func NewDetector(client *llm.Client, chunks *store.ChunkRepo) *Detector {
	return &Detector{client: client, chunks: chunks}
}

// DetectForSource runs the detector over every chunk of a just-ingested
// expansion source, searching the game's base chunks for ones it
// supersedes. Cost is bounded to at most one LLM call per
// keyword-matching chunk, independent of the base-chunk count.
func (d *Detector) DetectForSource(ctx context.Context, gameID int64, expansionChunks []store.Chunk) (int, llm.ApiCost, error) {
	baseChunks, err := d.chunks.ListBaseChunksForGame(ctx, gameID)
	if err != nil {
		return 0, llm.ApiCost{}, fmt.Errorf("override: list base chunks: %w", err)
	}

	var total llm.ApiCost
	applied := 0
	for _, chunk := range expansionChunks {
		if chunk.Embedding == nil || !keywordPattern.MatchString(chunk.ChunkText) {
			continue
		}
		candidates := topSimilar(chunk.Embedding, baseChunks, maxCandidatesPerChunk, similarityThreshold)
		if len(candidates) == 0 {
			continue
		}
		best := candidates[0]

		payload, cost, err := d.classify(ctx, chunk, best)
		total.InputTokens += cost.InputTokens
		total.OutputTokens += cost.OutputTokens
		total.CostUSD += cost.CostUSD
		if err != nil {
			continue // a classification failure skips this chunk, not the whole pass
		}
		if payload.IsOverride && payload.Confidence >= acceptConfidence {
			if err := d.chunks.SetOverride(ctx, chunk.ID, best.ID, payload.Confidence, payload.EvidencePhrase); err != nil {
				return applied, total, fmt.Errorf("override: write: %w", err)
			}
			applied++
		}
	}
	return applied, total, nil
}

func (d *Detector) classify(ctx context.Context, expansionChunk, baseChunk store.Chunk) (classifyPayload, llm.ApiCost, error) {
	prompt := fmt.Sprintf(
		"Base rule (may be superseded):\n%s\n\nExpansion rule (candidate override):\n%s\n\n"+
			"Does the expansion rule explicitly replace, override, or supersede the base rule? "+
			"Respond with JSON: {\"is_override\":bool, \"confidence\":0-100, \"evidence_phrase\":\"\"}",
		truncate(baseChunk.ChunkText, excerptChars), truncate(expansionChunk.ChunkText, excerptChars),
	)
	resp, cost, err := d.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: "You classify whether one board-game rule supersedes another. Respond with strict JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   150,
	})
	if err != nil {
		return classifyPayload{}, llm.ApiCost{}, err
	}
	var payload classifyPayload
	if err := json.Unmarshal([]byte(resp.Content), &payload); err != nil {
		return classifyPayload{}, cost, fmt.Errorf("override: unmarshal classify response: %w", err)
	}
	return payload, cost, nil
}

// topSimilar returns up to maxN base chunks whose cosine similarity to
// the query embedding is at least threshold, sorted by similarity
// descending.
func topSimilar(query []float32, baseChunks []store.Chunk, maxN int, threshold float64) []store.Chunk {
	type scored struct {
		chunk store.Chunk
		sim   float64
	}
	var candidates []scored
	for _, c := range baseChunks {
		if c.Embedding == nil {
			continue
		}
		sim := cosineSimilarity(query, c.Embedding)
		if sim >= threshold {
			candidates = append(candidates, scored{chunk: c, sim: sim})
		}
	}
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].sim > candidates[j-1].sim; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	if len(candidates) > maxN {
		candidates = candidates[:maxN]
	}
	out := make([]store.Chunk, len(candidates))
	for i, c := range candidates {
		out[i] = c.chunk
	}
	return out
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
