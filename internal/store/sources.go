package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"ruleoracle/internal/apperr"
)

type SourceRepo struct{ pool *pgxpool.Pool }

func (r *SourceRepo) Get(ctx context.Context, id int64) (*Source, error) {
	var s Source
	err := r.pool.QueryRow(ctx,
		`SELECT id, game_id, expansion_id, edition, source_type, source_url, file_hash,
		        needs_ocr, needs_reingest, last_ingested_at
		 FROM sources WHERE id = $1`, id,
	).Scan(&s.ID, &s.GameID, &s.ExpansionID, &s.Edition, &s.SourceType, &s.SourceURL,
		&s.FileHash, &s.NeedsOCR, &s.NeedsReingest, &s.LastIngestedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("source_not_found", "source does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListIndexable returns the sources that a /ask request for the given
// game/edition/expansion set must search, used to decide whether any of
// them still need ingestion.
func (r *SourceRepo) ListIndexable(ctx context.Context, gameID int64, edition string, expansionIDs []int64) ([]Source, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, expansion_id, edition, source_type, source_url, file_hash,
		        needs_ocr, needs_reingest, last_ingested_at
		 FROM sources
		 WHERE game_id = $1
		   AND ($2 = '' OR edition = $2)
		   AND (expansion_id IS NULL OR expansion_id = ANY($3))
		 ORDER BY id`, gameID, edition, expansionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.GameID, &s.ExpansionID, &s.Edition, &s.SourceType, &s.SourceURL,
			&s.FileHash, &s.NeedsOCR, &s.NeedsReingest, &s.LastIngestedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListBaseForGame returns a game's non-expansion sources, used by the
// override detector to search for base chunks a new expansion supersedes.
func (r *SourceRepo) ListBaseForGame(ctx context.Context, gameID int64) ([]Source, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, expansion_id, edition, source_type, source_url, file_hash,
		        needs_ocr, needs_reingest, last_ingested_at
		 FROM sources WHERE game_id = $1 AND expansion_id IS NULL ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.GameID, &s.ExpansionID, &s.Edition, &s.SourceType, &s.SourceURL,
			&s.FileHash, &s.NeedsOCR, &s.NeedsReingest, &s.LastIngestedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListAll returns every source row, used by the health-check cron job.
func (r *SourceRepo) ListAll(ctx context.Context) ([]Source, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, expansion_id, edition, source_type, source_url, file_hash,
		        needs_ocr, needs_reingest, last_ingested_at
		 FROM sources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.GameID, &s.ExpansionID, &s.Edition, &s.SourceType, &s.SourceURL,
			&s.FileHash, &s.NeedsOCR, &s.NeedsReingest, &s.LastIngestedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SourceRepo) MarkNeedsOCR(ctx context.Context, id int64, needsOCR bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE sources SET needs_ocr = $2 WHERE id = $1`, id, needsOCR)
	return err
}

// MarkNeedsReingest flags a source as changed at its publisher since the
// last successful ingestion, set by the health-check cron job.
func (r *SourceRepo) MarkNeedsReingest(ctx context.Context, id int64, needsReingest bool) error {
	_, err := r.pool.Exec(ctx, `UPDATE sources SET needs_reingest = $2 WHERE id = $1`, id, needsReingest)
	return err
}

// CompleteIngestion applies the post-persist source-row update the
// ingestion pipeline performs after a successful commit.
func (r *SourceRepo) CompleteIngestion(ctx context.Context, id int64, fileHash string, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sources SET file_hash = $2, needs_ocr = false, needs_reingest = false, last_ingested_at = $3
		 WHERE id = $1`, id, fileHash, now)
	return err
}

// GetExpansionIDsByID returns each source's expansion id (nil for base
// sources), keyed by source id — used by the retrieval engine to resolve
// precedence boosting without joining chunks to sources per scored row.
func (r *SourceRepo) GetExpansionIDsByID(ctx context.Context, ids []int64) (map[int64]*int64, error) {
	out := make(map[int64]*int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, expansion_id FROM sources WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var expansionID *int64
		if err := rows.Scan(&id, &expansionID); err != nil {
			return nil, err
		}
		out[id] = expansionID
	}
	return out, rows.Err()
}
