// Package llm is the single HTTP client used by the answer generator,
// embedder, conflict detector, and override detector to talk to a chat
// and an embedding model, speaking the OpenAI-compatible chat/embeddings
// wire format so any OpenAI-compatible endpoint (including a local
// Ollama gateway) works.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Pricing is dollars per 1M tokens, keyed by model name. The table below
// is fixed at build time; a model missing from it is priced at zero.
type Pricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var DefaultPricing = map[string]Pricing{
	"gpt-4o-mini":             {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"text-embedding-3-small":  {InputPerMillion: 0.02, OutputPerMillion: 0},
}

// Cost computes the dollar cost of a call given token counts, falling
// back to zero for unknown models rather than erroring — cost accounting
// must never block the caller's response.
func Cost(model string, inputTokens, outputTokens int) float64 {
	p, ok := DefaultPricing[model]
	if !ok {
		return 0
	}
	return float64(inputTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}

type ApiCost struct {
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
}

type Client struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	HTTPClient     *http.Client
}

func New(baseURL, apiKey, chatModel, embeddingModel string) *Client {
	return &Client{
		BaseURL:        baseURL,
		APIKey:         apiKey,
		ChatModel:      chatModel,
		EmbeddingModel: embeddingModel,
		HTTPClient:     &http.Client{Timeout: 60 * time.Second},
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}

type ChatResponse struct {
	Content string
}

type chatWireRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatWireResponse struct {
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat performs one chat completion call and returns the response text
// alongside the ApiCost row the caller must persist.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, ApiCost, error) {
	wireReq := chatWireRequest{
		Model:       c.ChatModel,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(wireReq)
	if err != nil {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, ApiCost{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: chat transport: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: chat status %d: %s", resp.StatusCode, raw)
	}

	var wireResp chatWireResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: unmarshal chat response: %w", err)
	}
	if len(wireResp.Choices) == 0 {
		return ChatResponse{}, ApiCost{}, fmt.Errorf("llm: chat response had no choices")
	}

	cost := ApiCost{
		Model:        c.ChatModel,
		InputTokens:  wireResp.Usage.PromptTokens,
		OutputTokens: wireResp.Usage.CompletionTokens,
		CostUSD:      Cost(c.ChatModel, wireResp.Usage.PromptTokens, wireResp.Usage.CompletionTokens),
	}
	return ChatResponse{Content: wireResp.Choices[0].Message.Content}, cost, nil
}

type embedWireRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedWireResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
	} `json:"usage"`
}

const maxEmbedChars = 30_000

// EmbedBatch embeds a batch of texts, preserving order and length; empty
// strings map to a zero vector without a network call, matching the
// embedder's documented contract.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, dims int) ([][]float32, ApiCost, error) {
	nonEmptyIdx := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for i, t := range texts {
		if t == "" {
			continue
		}
		if len(t) > maxEmbedChars {
			t = t[:maxEmbedChars]
		}
		nonEmptyIdx = append(nonEmptyIdx, i)
		inputs = append(inputs, t)
	}

	out := make([][]float32, len(texts))
	for i := range texts {
		if texts[i] == "" {
			out[i] = make([]float32, dims)
		}
	}
	if len(inputs) == 0 {
		return out, ApiCost{Model: c.EmbeddingModel}, nil
	}

	wireReq := embedWireRequest{Model: c.EmbeddingModel, Input: inputs}
	body, err := json.Marshal(wireReq)
	if err != nil {
		return nil, ApiCost{}, fmt.Errorf("llm: marshal embed request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, ApiCost{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, ApiCost{}, fmt.Errorf("llm: embed transport: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ApiCost{}, fmt.Errorf("llm: read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ApiCost{}, fmt.Errorf("llm: embed status %d: %s", resp.StatusCode, raw)
	}

	var wireResp embedWireResponse
	if err := json.Unmarshal(raw, &wireResp); err != nil {
		return nil, ApiCost{}, fmt.Errorf("llm: unmarshal embed response: %w", err)
	}
	if len(wireResp.Data) != len(inputs) {
		return nil, ApiCost{}, fmt.Errorf("llm: embed response length mismatch: got %d want %d", len(wireResp.Data), len(inputs))
	}
	for i, d := range wireResp.Data {
		out[nonEmptyIdx[i]] = d.Embedding
	}

	cost := ApiCost{
		Model:       c.EmbeddingModel,
		InputTokens: wireResp.Usage.PromptTokens,
		CostUSD:     Cost(c.EmbeddingModel, wireResp.Usage.PromptTokens, 0),
	}
	return out, cost, nil
}
