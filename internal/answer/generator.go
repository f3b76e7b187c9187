package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"ruleoracle/internal/llm"
)

// Candidate is one retrieval hit passed into the prompt.
type Candidate struct {
	ChunkID    int64
	Page       int
	SourceType string
	Text       string
}

// Payload is the strict-JSON contract the chat model must return.
type Payload struct {
	Verdict      string   `json:"verdict"`
	QuoteExact   string   `json:"quote_exact"`
	QuoteChunkID int64    `json:"quote_chunk_id"`
	Page         int      `json:"page"`
	SourceType   string   `json:"source_type"`
	Confidence   string   `json:"confidence"`
	Notes        []string `json:"notes"`
}

const systemPrompt = "You are a precise board-game rules arbiter. Only use the provided excerpts; " +
	"never invent a rule that is not in them. Respond with strict JSON matching the requested schema."

const strictSystemPrompt = "You are a precise board-game rules arbiter performing a VERBATIM re-check. " +
	"Quote character-for-character from the provided excerpts, or return an empty quote_exact if unsure. " +
	"Respond with strict JSON matching the requested schema."

// Generator produces a structured answer from a chat model and verifies
// its quote, retrying once with a stricter prompt on verification
// failure.
type Generator struct {
	client *llm.Client
}

func NewGenerator(client *llm.Client) *Generator {
	return &Generator{client: client}
}

// Result is the fully resolved outcome of one /ask answer generation,
// after verification (and possibly regeneration).
type Result struct {
	Payload        Payload
	VerifiedChunkID int64
	Verified       bool
	RelocatedQuote bool
	Cost           llm.ApiCost
}

func formatChunksForPrompt(candidates []Candidate) string {
	var sb strings.Builder
	for i, c := range candidates {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		fmt.Fprintf(&sb, "[Chunk %d] (Page %d, %s)\n%s\n", c.ChunkID, c.Page, c.SourceType, c.Text)
	}
	return sb.String()
}

// Generate runs attempt 1, verifies, and on failure retries once with
// the stricter prompt before giving up to the caller's fallback path.
func (g *Generator) Generate(ctx context.Context, question, gameName, edition string, candidates []Candidate) (Result, error) {
	if len(candidates) == 0 {
		return Result{Payload: Payload{
			Verdict:    "No rule source has been indexed for this question yet.",
			Confidence: "low",
			Notes:      []string{"no candidate chunks were available"},
		}}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	payload, cost1, err := g.attempt(ctx, question, gameName, edition, candidates, systemPrompt, 0.1)
	if err != nil {
		return Result{}, err
	}
	payload = validate(payload, candidates)

	idx, vr := VerifyAcrossChunks(payload.QuoteExact, texts)
	if vr.Verified {
		chunkID := payload.QuoteChunkID
		relocated := false
		if idx >= 0 && candidates[idx].ChunkID != chunkID {
			chunkID = candidates[idx].ChunkID
			relocated = true
		}
		return Result{Payload: payload, VerifiedChunkID: chunkID, Verified: true, RelocatedQuote: relocated, Cost: cost1}, nil
	}

	payload2, cost2, err := g.attempt(ctx, question, gameName, edition, candidates, strictSystemPrompt, 0.0)
	if err != nil {
		// fall back to the unverified first attempt rather than erroring
		return unverifiedFallback(payload, candidates, cost1), nil
	}
	payload2 = validate(payload2, candidates)
	totalCost := llm.ApiCost{
		Model:        cost1.Model,
		InputTokens:  cost1.InputTokens + cost2.InputTokens,
		OutputTokens: cost1.OutputTokens + cost2.OutputTokens,
		CostUSD:      cost1.CostUSD + cost2.CostUSD,
	}

	idx2, vr2 := VerifyAcrossChunks(payload2.QuoteExact, texts)
	if vr2.Verified {
		chunkID := payload2.QuoteChunkID
		relocated := false
		if idx2 >= 0 && candidates[idx2].ChunkID != chunkID {
			chunkID = candidates[idx2].ChunkID
			relocated = true
		}
		return Result{Payload: payload2, VerifiedChunkID: chunkID, Verified: true, RelocatedQuote: relocated, Cost: totalCost}, nil
	}

	return unverifiedFallback(payload2, candidates, totalCost), nil
}

// unverifiedFallback implements the documented fallback: best-effort
// verdict, no quote, confidence forced low, relevant sections attached
// by the caller from the top-3 candidates.
func unverifiedFallback(payload Payload, candidates []Candidate, cost llm.ApiCost) Result {
	payload.QuoteExact = ""
	payload.QuoteChunkID = 0
	payload.Confidence = "low"
	payload.Notes = append(payload.Notes, "the exact quote could not be verified against any candidate source")
	return Result{Payload: payload, Verified: false, Cost: cost}
}

func (g *Generator) attempt(ctx context.Context, question, gameName, edition string, candidates []Candidate, system string, temperature float64) (Payload, llm.ApiCost, error) {
	userPrompt := buildUserPrompt(question, gameName, edition, candidates)
	resp, cost, err := g.client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		MaxTokens:   1000,
	})
	if err != nil {
		return Payload{}, llm.ApiCost{}, fmt.Errorf("answer: generate: %w", err)
	}
	payload, err := extractPayload(resp.Content)
	if err != nil {
		return Payload{}, llm.ApiCost{}, fmt.Errorf("answer: extract payload: %w", err)
	}
	return payload, cost, nil
}

func buildUserPrompt(question, gameName, edition string, candidates []Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Game: %s\n", gameName)
	if edition != "" {
		fmt.Fprintf(&sb, "Edition: %s\n", edition)
	}
	fmt.Fprintf(&sb, "Question: %s\n\n", question)
	sb.WriteString("Excerpts:\n")
	sb.WriteString(formatChunksForPrompt(candidates))
	sb.WriteString("\n\nRespond with JSON: {\"verdict\":\"\", \"quote_exact\":\"\", \"quote_chunk_id\":0, " +
		"\"page\":0, \"source_type\":\"\", \"confidence\":\"high|medium|low\", \"notes\":[]}")
	return sb.String()
}

var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
var firstObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// extractPayload falls back through direct parse, fenced-block
// extraction, then a greedy regex spanning the first '{' to the last '}', matching how
// tolerant JSON extraction from a chat model's free-form output works.
func extractPayload(content string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(content), &p); err == nil {
		return p, nil
	}
	if m := fencedBlockRe.FindStringSubmatch(content); m != nil {
		if err := json.Unmarshal([]byte(m[1]), &p); err == nil {
			return p, nil
		}
	}
	if m := firstObjectRe.FindString(content); m != "" {
		if err := json.Unmarshal([]byte(m), &p); err == nil {
			return p, nil
		}
	}
	return Payload{}, fmt.Errorf("no JSON object could be extracted from model output")
}

var validConfidence = map[string]bool{"high": true, "medium": true, "low": true}

// validate normalizes an unknown confidence to medium and reassigns
// quote_chunk_id to the first candidate (with a correction note) if it
// isn't in the candidate set. A payload with empty or missing fields is
// passed through unchanged; no field is rejected as missing.
func validate(p Payload, candidates []Candidate) Payload {
	if !validConfidence[p.Confidence] {
		p.Confidence = "medium"
	}
	found := false
	for _, c := range candidates {
		if c.ChunkID == p.QuoteChunkID {
			found = true
			break
		}
	}
	if !found && len(candidates) > 0 {
		p.QuoteChunkID = candidates[0].ChunkID
		p.Notes = append(p.Notes, "quote_chunk_id was not among the candidates; reassigned to the top result")
	}
	return p
}
