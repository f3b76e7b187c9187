package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type HistoryRepo struct{ pool *pgxpool.Pool }

func (r *HistoryRepo) Insert(ctx context.Context, h *AskHistory) (int64, error) {
	citations, err := json.Marshal(h.Citations)
	if err != nil {
		return 0, err
	}
	var vec *pgvector.Vector
	if h.QuestionEmbedding != nil {
		v := pgvector.NewVector(h.QuestionEmbedding)
		vec = &v
	}
	var id int64
	err = r.pool.QueryRow(ctx,
		`INSERT INTO ask_history (game_id, edition, expansions_used, question, normalized_question,
		                           question_embedding, verdict, confidence, confidence_reason,
		                           citations, response_time_ms, model_used, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now())
		 RETURNING id`,
		h.GameID, h.Edition, h.ExpansionsUsed, h.Question, h.NormalizedQuestion, vec,
		h.Verdict, h.Confidence, h.ConfidenceReason, citations, h.ResponseTimeMS, h.ModelUsed,
	).Scan(&id)
	return id, err
}

type FeedbackRepo struct{ pool *pgxpool.Pool }

func (r *FeedbackRepo) Insert(ctx context.Context, f *Feedback) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO feedback (ask_history_id, feedback_type, selected_chunk_id, user_note, created_at)
		 VALUES ($1,$2,$3,$4, now()) RETURNING id`,
		f.AskHistoryID, f.FeedbackType, f.SelectedChunkID, f.UserNote,
	).Scan(&id)
	return id, err
}

type HealthRepo struct{ pool *pgxpool.Pool }

func (r *HealthRepo) Insert(ctx context.Context, h *SourceHealth) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO source_health (source_id, checked_at, status, http_code, file_hash, content_length, error)
		 VALUES ($1, now(), $2, $3, $4, $5, $6)`,
		h.SourceID, h.Status, h.HTTPCode, h.FileHash, h.ContentLength, h.Error)
	return err
}

type CostRepo struct{ pool *pgxpool.Pool }

func (r *CostRepo) Insert(ctx context.Context, c *ApiCost) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_costs (request_id, endpoint, model, input_tokens, output_tokens, cost_usd, cache_hit, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7, now())`,
		c.RequestID, c.Endpoint, c.Model, c.InputTokens, c.OutputTokens, c.CostUSD, c.CacheHit)
	return err
}

// Sum24h returns the sum of cost_usd over the trailing 24 hours, read by
// the budget gate.
func (r *CostRepo) Sum24h(ctx context.Context) (float64, error) {
	var sum float64
	err := r.pool.QueryRow(ctx,
		`SELECT coalesce(sum(cost_usd), 0) FROM api_costs WHERE created_at > now() - interval '24 hours'`,
	).Scan(&sum)
	return sum, err
}
