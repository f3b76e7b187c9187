package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the shared connection pool and every repository that reads
// or writes through it. The API process and the worker process each
// open their own pool against the same database.
type Store struct {
	Pool *pgxpool.Pool

	Games      *GameRepo
	Expansions *ExpansionRepo
	Sources    *SourceRepo
	Chunks     *ChunkRepo
	History    *HistoryRepo
	Feedback   *FeedbackRepo
	Health     *HealthRepo
	Costs      *CostRepo
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &Store{Pool: pool}
	s.Games = &GameRepo{pool: pool}
	s.Expansions = &ExpansionRepo{pool: pool}
	s.Sources = &SourceRepo{pool: pool}
	s.Chunks = &ChunkRepo{pool: pool}
	s.History = &HistoryRepo{pool: pool}
	s.Feedback = &FeedbackRepo{pool: pool}
	s.Health = &HealthRepo{pool: pool}
	s.Costs = &CostRepo{pool: pool}
	return s, nil
}

func (s *Store) Close() { s.Pool.Close() }
