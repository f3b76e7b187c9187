package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCostKnownModel(t *testing.T) {
	got := Cost("gpt-4o-mini", 1_000_000, 1_000_000)
	want := 0.15 + 0.60
	if got != want {
		t.Errorf("Cost = %v, want %v", got, want)
	}
}

func TestCostUnknownModelIsZero(t *testing.T) {
	if got := Cost("some-model-nobody-priced", 1000, 1000); got != 0 {
		t.Errorf("Cost for unknown model = %v, want 0", got)
	}
}

func TestCostEmbeddingModelHasNoOutputComponent(t *testing.T) {
	got := Cost("text-embedding-3-small", 1_000_000, 1_000_000)
	want := 0.02
	if got != want {
		t.Errorf("Cost = %v, want %v (output tokens shouldn't matter for an embedding model)", got, want)
	}
}

func TestEmbedBatchSkipsEmptyStringsWithoutNetworkCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req embedWireRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := embedWireResponse{}
		for range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{1, 2, 3}})
		}
		resp.Usage.PromptTokens = 10
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "chat-model", "embed-model")
	out, cost, err := c.EmbedBatch(context.Background(), []string{"", "hello", ""}, 3)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one network call, got %d", calls)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 output vectors, got %d", len(out))
	}
	if len(out[0]) != 3 || out[0][0] != 0 {
		t.Errorf("empty input should map to a zero vector of the requested dims, got %v", out[0])
	}
	if len(out[1]) != 3 || out[1][0] != 1 {
		t.Errorf("non-empty input should map to the server's embedding, got %v", out[1])
	}
	if cost.Model != "embed-model" {
		t.Errorf("cost.Model = %q, want %q", cost.Model, "embed-model")
	}
}

func TestEmbedBatchAllEmptySkipsNetworkEntirely(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New(srv.URL, "", "chat-model", "embed-model")
	out, _, err := c.EmbedBatch(context.Background(), []string{"", ""}, 4)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no network call when all inputs are empty, got %d", calls)
	}
	if len(out) != 2 || len(out[0]) != 4 {
		t.Errorf("unexpected output shape: %v", out)
	}
}
