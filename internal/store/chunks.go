package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type ChunkRepo struct{ pool *pgxpool.Pool }

// NewChunk is the subset of fields the chunker/embedder produce before a
// chunk has an id; ReplaceForSource assigns ids on insert.
type NewChunk struct {
	PageNumber      int
	ChunkIndex      int
	SectionTitle    *string
	ChunkText       string
	Embedding       []float32 // nil if embedding failed
	PrecedenceLevel PrecedenceLevel
	ExpiresAt       time.Time
}

// ReplaceForSource deletes every existing chunk for a source and bulk
// inserts the new set inside one transaction, the "recreated whole, never
// edited in place" persist contract.
func (r *ChunkRepo) ReplaceForSource(ctx context.Context, sourceID int64, chunks []NewChunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chunks: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("chunks: delete existing: %w", err)
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		var vec *pgvector.Vector
		if c.Embedding != nil {
			v := pgvector.NewVector(c.Embedding)
			vec = &v
		}
		batch.Queue(
			`INSERT INTO chunks (source_id, page_number, chunk_index, section_title, chunk_text,
			                      embedding, precedence_level, expires_at, tsv)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, to_tsvector('english', $5))`,
			sourceID, c.PageNumber, c.ChunkIndex, c.SectionTitle, c.ChunkText,
			vec, int(c.PrecedenceLevel), c.ExpiresAt,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("chunks: insert: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("chunks: close batch: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *ChunkRepo) CountForSource(ctx context.Context, sourceID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM chunks WHERE source_id = $1`, sourceID).Scan(&n)
	return n, err
}

// ScoredRow is one row from either the lexical or vector search path,
// merged by the retrieval engine.
type ScoredRow struct {
	ChunkID int64
	Score   float64
}

// KeywordSearch ranks chunks by Postgres's full-text ts_rank against the
// restricted source set, excluding expired chunks.
func (r *ChunkRepo) KeywordSearch(ctx context.Context, sourceIDs []int64, query string, limit int) ([]ScoredRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ts_rank(tsv, plainto_tsquery('english', $2)) AS score
		 FROM chunks
		 WHERE source_id = ANY($1)
		   AND (expires_at IS NULL OR expires_at > now())
		   AND tsv @@ plainto_tsquery('english', $2)
		 ORDER BY score DESC
		 LIMIT $3`, sourceIDs, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScoredRow
	for rows.Next() {
		var s ScoredRow
		if err := rows.Scan(&s.ChunkID, &s.Score); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// VectorSearch ranks chunks by cosine similarity (1 - cosine distance)
// against the query embedding, floored at minSimilarity.
func (r *ChunkRepo) VectorSearch(ctx context.Context, sourceIDs []int64, queryEmbedding []float32, minSimilarity float64, limit int) ([]ScoredRow, error) {
	vec := pgvector.NewVector(queryEmbedding)
	rows, err := r.pool.Query(ctx,
		`SELECT id, 1 - (embedding <=> $2) AS score
		 FROM chunks
		 WHERE source_id = ANY($1)
		   AND (expires_at IS NULL OR expires_at > now())
		   AND embedding IS NOT NULL
		   AND 1 - (embedding <=> $2) >= $3
		 ORDER BY embedding <=> $2
		 LIMIT $4`, sourceIDs, vec, minSimilarity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScoredRow
	for rows.Next() {
		var s ScoredRow
		if err := rows.Scan(&s.ChunkID, &s.Score); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanChunk(row pgx.Row) (*Chunk, error) {
	var c Chunk
	var embedding *pgvector.Vector
	if err := row.Scan(&c.ID, &c.SourceID, &c.PageNumber, &c.ChunkIndex, &c.SectionTitle, &c.ChunkText,
		&embedding, &c.PrecedenceLevel, &c.OverridesChunkID, &c.OverrideConfidence, &c.OverrideEvidence,
		&c.ExpiresAt); err != nil {
		return nil, err
	}
	if embedding != nil {
		c.Embedding = embedding.Slice()
	}
	return &c, nil
}

const chunkColumns = `id, source_id, page_number, chunk_index, section_title, chunk_text,
	embedding, precedence_level, overrides_chunk_id, override_confidence, override_evidence, expires_at`

func (r *ChunkRepo) GetByIDs(ctx context.Context, ids []int64) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) Get(ctx context.Context, id int64) (*Chunk, error) {
	return scanChunk(r.pool.QueryRow(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id))
}

// GetBySourceID returns every chunk belonging to one source, ordered by
// chunk_index, used by the override detector against a just-ingested
// expansion source.
func (r *ChunkRepo) GetBySourceID(ctx context.Context, sourceID int64) ([]Chunk, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE source_id = $1 ORDER BY chunk_index`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Neighbors returns the chunks immediately before and after chunkIndex
// within the same source, for adjacency expansion.
func (r *ChunkRepo) Neighbors(ctx context.Context, sourceID int64, chunkIndex int) ([]Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE source_id = $1 AND chunk_index IN ($2, $3)`,
		sourceID, chunkIndex-1, chunkIndex+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListBaseChunksForGame returns every non-expired, embedded base-source
// chunk for a game, used by the override detector's candidate search.
func (r *ChunkRepo) ListBaseChunksForGame(ctx context.Context, gameID int64) ([]Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.source_id, c.page_number, c.chunk_index, c.section_title, c.chunk_text,
		        c.embedding, c.precedence_level, c.overrides_chunk_id, c.override_confidence,
		        c.override_evidence, c.expires_at
		 FROM chunks c JOIN sources s ON s.id = c.source_id
		 WHERE s.game_id = $1 AND s.expansion_id IS NULL AND c.precedence_level = 1
		   AND (c.expires_at IS NULL OR c.expires_at > now())
		   AND c.embedding IS NOT NULL`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *ChunkRepo) SetOverride(ctx context.Context, chunkID, overridesChunkID int64, confidence int, evidence string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chunks SET overrides_chunk_id = $2, override_confidence = $3, override_evidence = $4
		 WHERE id = $1`, chunkID, overridesChunkID, confidence, evidence)
	return err
}

// DeleteExpired removes chunks past their expiry, used by the cleanup
// cron job; returns the number of rows removed.
func (r *ChunkRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
