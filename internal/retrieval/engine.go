package retrieval

import (
	"context"
	"sort"
	"strconv"

	"ruleoracle/internal/cache"
	"ruleoracle/internal/embedder"
	"ruleoracle/internal/store"
)

// Params mirrors the documented retrieval inputs, with expansion ids
// given in descending priority order.
type Params struct {
	Query        string
	SourceIDs    []int64
	ExpansionIDs []int64
	KeywordLimit int
	VectorLimit  int
	FinalLimit   int
	ExpandTopK   int
}

func DefaultParams(query string, sourceIDs, expansionIDs []int64) Params {
	return Params{
		Query: query, SourceIDs: sourceIDs, ExpansionIDs: expansionIDs,
		KeywordLimit: 30, VectorLimit: 30, FinalLimit: 12, ExpandTopK: 5,
	}
}

// Scored pairs a chunk with its final ranking score.
type Scored struct {
	Chunk store.Chunk
	Score float64
}

// Result is a completed search: the expanded final candidate list plus
// the top-5 pre-expansion candidates the conflict detector inspects.
type Result struct {
	Candidates  []Scored
	PreExpansion []Scored
}

type Engine struct {
	chunks     *store.ChunkRepo
	sources    *store.SourceRepo
	embedder   *embedder.Embedder
	queryCache cache.Cache
}

func New(chunks *store.ChunkRepo, sources *store.SourceRepo, emb *embedder.Embedder, queryCache cache.Cache) *Engine {
	return &Engine{chunks: chunks, sources: sources, embedder: emb, queryCache: queryCache}
}

func (e *Engine) Search(ctx context.Context, p Params) (Result, error) {
	queryEmbedding, err := e.queryEmbedding(ctx, p.Query)
	if err != nil {
		return Result{}, err
	}

	keywordRows, err := e.chunks.KeywordSearch(ctx, p.SourceIDs, p.Query, p.KeywordLimit)
	if err != nil {
		return Result{}, err
	}
	var vectorRows []store.ScoredRow
	if queryEmbedding != nil {
		vectorRows, err = e.chunks.VectorSearch(ctx, p.SourceIDs, queryEmbedding, 0.3, p.VectorLimit)
		if err != nil {
			return Result{}, err
		}
	}

	keywordScores := make(map[int64]float64, len(keywordRows))
	for _, r := range keywordRows {
		keywordScores[r.ChunkID] = r.Score
	}
	vectorScores := make(map[int64]float64, len(vectorRows))
	for _, r := range vectorRows {
		vectorScores[r.ChunkID] = r.Score
	}

	merged := mergeIDs(keywordScores, vectorScores)
	normKeyword := normalizeScores(fill(merged, keywordScores))
	normVector := normalizeScores(fill(merged, vectorScores))

	ids := make([]int64, 0, len(merged))
	for id := range merged {
		ids = append(ids, id)
	}
	chunks, err := e.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return Result{}, err
	}
	byID := make(map[int64]store.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	sourceExpansions, err := e.sources.GetExpansionIDsByID(ctx, p.SourceIDs)
	if err != nil {
		return Result{}, err
	}

	scored := make([]Scored, 0, len(ids))
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			continue
		}
		base := keywordWeight*normKeyword[id] + vectorWeight*normVector[id]
		score := base + precedenceBoost(c.PrecedenceLevel, sourceExpansions[c.SourceID], p.ExpansionIDs)
		scored = append(scored, Scored{Chunk: c, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Chunk.ID < scored[j].Chunk.ID // deterministic tie-break
	})

	preExpansionCount := 5
	if preExpansionCount > len(scored) {
		preExpansionCount = len(scored)
	}
	preExpansion := append([]Scored(nil), scored[:preExpansionCount]...)

	final := scored
	if p.FinalLimit < len(final) {
		final = final[:p.FinalLimit]
	}

	expanded, err := e.expandWithNeighbors(ctx, final, p.ExpandTopK)
	if err != nil {
		return Result{}, err
	}

	return Result{Candidates: expanded, PreExpansion: preExpansion}, nil
}

func mergeIDs(a, b map[int64]float64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

func fill(ids map[int64]struct{}, scores map[int64]float64) map[int64]float64 {
	out := make(map[int64]float64, len(ids))
	for id := range ids {
		out[id] = scores[id] // zero value if absent, per "unseen chunks receive 0"
	}
	return out
}

// expandWithNeighbors includes (source_id, chunk_index ± 1) neighbors
// for the top expandTopK candidates when those neighbors already appear
// in the candidate set, ordered [prev, chunk, next] with de-duplication.
func (e *Engine) expandWithNeighbors(ctx context.Context, candidates []Scored, expandTopK int) ([]Scored, error) {
	if expandTopK > len(candidates) {
		expandTopK = len(candidates)
	}
	byKey := make(map[string]int, len(candidates)) // (source_id, chunk_index) -> index in candidates
	for i, c := range candidates {
		byKey[neighborKey(c.Chunk.SourceID, c.Chunk.ChunkIndex)] = i
	}

	seen := make(map[int64]bool, len(candidates))
	var out []Scored
	appendOnce := func(s Scored) {
		if seen[s.Chunk.ID] {
			return
		}
		seen[s.Chunk.ID] = true
		out = append(out, s)
	}

	for i := 0; i < expandTopK; i++ {
		c := candidates[i]
		if prevIdx, ok := byKey[neighborKey(c.Chunk.SourceID, c.Chunk.ChunkIndex-1)]; ok {
			appendOnce(candidates[prevIdx])
		}
		appendOnce(c)
		if nextIdx, ok := byKey[neighborKey(c.Chunk.SourceID, c.Chunk.ChunkIndex+1)]; ok {
			appendOnce(candidates[nextIdx])
		}
	}
	for i := expandTopK; i < len(candidates); i++ {
		appendOnce(candidates[i])
	}
	return out, nil
}

func neighborKey(sourceID int64, chunkIndex int) string {
	return strconv.FormatInt(sourceID, 10) + ":" + strconv.Itoa(chunkIndex)
}
