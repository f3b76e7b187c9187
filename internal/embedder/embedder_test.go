package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ruleoracle/internal/llm"
)

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) (*Embedder, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := llm.New(srv.URL, "", "chat-model", "embed-model")
	e := New(client, 4)
	e.retryWait = time.Millisecond
	return e, srv.Close
}

func TestEmbedBatchSplitsIntoBatchesOf100(t *testing.T) {
	var batchSizes []int
	e, closeSrv := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		batchSizes = append(batchSizes, len(req.Input))
		resp := struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}{}
		for range req.Input {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
			}{Embedding: []float32{1, 1, 1, 1}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	})
	defer closeSrv()

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "rule text"
	}
	result, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(result.Vectors) != 250 {
		t.Fatalf("expected 250 vectors, got %d", len(result.Vectors))
	}
	if len(batchSizes) != 3 {
		t.Fatalf("expected 3 batches (100/100/50), got %d: %v", len(batchSizes), batchSizes)
	}
	if batchSizes[0] != 100 || batchSizes[1] != 100 || batchSizes[2] != 50 {
		t.Errorf("unexpected batch split: %v", batchSizes)
	}
}

func TestEmbedBatchUnavailableWhenAllBatchesFail(t *testing.T) {
	e, closeSrv := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeSrv()
	e.maxRetries = 0

	result, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("expected an error when every batch fails")
	}
	if !result.Unavailable {
		t.Error("expected Unavailable to be true")
	}
	if len(result.Vectors) != 2 || result.Vectors[0] != nil {
		t.Errorf("expected nil vector slots on total failure, got %v", result.Vectors)
	}
}

func TestEmbedBatchEmptyInputSucceedsTrivially(t *testing.T) {
	e, closeSrv := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for empty input")
	})
	defer closeSrv()

	result, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(result.Vectors) != 0 {
		t.Errorf("expected no vectors, got %v", result.Vectors)
	}
}
