// Package embedder batches dense-vector generation over the llm client,
// with retries and the documented "fail soft, persist with null
// embeddings" contract on transport failure.
package embedder

import (
	"context"
	"time"

	"ruleoracle/internal/apperr"
	"ruleoracle/internal/llm"
)

const batchSize = 100

type Embedder struct {
	client     *llm.Client
	dims       int
	maxRetries int
	retryWait  time.Duration
}

func New(client *llm.Client, dims int) *Embedder {
	return &Embedder{client: client, dims: dims, maxRetries: 2, retryWait: 500 * time.Millisecond}
}

// Result pairs a batch's embeddings with the accumulated cost of
// producing them; Unavailable reports whether every attempt failed, in
// which case Vectors are all nil and the caller should persist chunks
// with null embeddings per the ingestion pipeline's documented fallback.
type Result struct {
	Vectors     [][]float32
	Cost        llm.ApiCost
	Unavailable bool
}

// EmbedBatch embeds texts in batches of 100, retrying each batch on
// transport failure before giving up on it.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) (Result, error) {
	out := make([][]float32, len(texts))
	var totalCost llm.ApiCost
	totalCost.Model = e.client.EmbeddingModel
	anySucceeded := false

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var vectors [][]float32
		var cost llm.ApiCost
		var err error
		for attempt := 0; attempt <= e.maxRetries; attempt++ {
			vectors, cost, err = e.client.EmbedBatch(ctx, batch, e.dims)
			if err == nil {
				break
			}
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(e.retryWait):
			}
		}
		if err != nil {
			continue // leave this batch's slots nil; persisted as null embeddings
		}
		anySucceeded = true
		copy(out[start:end], vectors)
		totalCost.InputTokens += cost.InputTokens
		totalCost.CostUSD += cost.CostUSD
	}

	if !anySucceeded && len(texts) > 0 {
		return Result{Vectors: out, Unavailable: true}, apperr.Wrap(apperr.KindUpstream, "embedding_unavailable",
			"embedding service unreachable for all batches", nil)
	}
	return Result{Vectors: out, Cost: totalCost}, nil
}
