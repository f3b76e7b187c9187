package retrieval

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"ruleoracle/internal/cache"
)

const queryEmbeddingCacheTTL = 5 * time.Minute

// queryEmbedding resolves a query's embedding through the process-local
// TTL cache, falling back to the embedder on a miss and caching the
// result for 5 minutes.
func (e *Engine) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := "query_embedding:" + cache.KeyHash(query)
	if e.queryCache != nil {
		if raw, ok, _ := e.queryCache.Get(ctx, key); ok {
			return decodeFloat32s(raw), nil
		}
	}

	result, err := e.embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		if result.Unavailable {
			return nil, nil // lexical-only search, per the embedder's documented fail-soft contract
		}
		return nil, err
	}
	vec := result.Vectors[0]
	if e.queryCache != nil {
		_ = e.queryCache.Set(ctx, key, encodeFloat32s(vec), queryEmbeddingCacheTTL)
	}
	return vec, nil
}

func encodeFloat32s(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32s(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
