package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"ruleoracle/internal/apperr"
)

type GameRepo struct{ pool *pgxpool.Pool }

func (r *GameRepo) Get(ctx context.Context, id int64) (*Game, error) {
	var g Game
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, external_id, cover_url FROM games WHERE id = $1`, id,
	).Scan(&g.ID, &g.Name, &g.Slug, &g.ExternalID, &g.CoverURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("game_not_found", "game does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GameRepo) GetBySlug(ctx context.Context, slug string) (*Game, error) {
	var g Game
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, external_id, cover_url FROM games WHERE slug = $1`, slug,
	).Scan(&g.ID, &g.Name, &g.Slug, &g.ExternalID, &g.CoverURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("game_not_found", "game does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GameRepo) List(ctx context.Context) ([]Game, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, external_id, cover_url FROM games ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Game
	for rows.Next() {
		var g Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.ExternalID, &g.CoverURL); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type ExpansionRepo struct{ pool *pgxpool.Pool }

func (r *ExpansionRepo) ListForGame(ctx context.Context, gameID int64) ([]Expansion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, name, code, release_date, display_order
		 FROM expansions WHERE game_id = $1 ORDER BY display_order`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expansion
	for rows.Next() {
		var e Expansion
		if err := rows.Scan(&e.ID, &e.GameID, &e.Name, &e.Code, &e.ReleaseDate, &e.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ExpansionRepo) GetMany(ctx context.Context, ids []int64) ([]Expansion, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, game_id, name, code, release_date, display_order
		 FROM expansions WHERE id = ANY($1) ORDER BY display_order`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expansion
	for rows.Next() {
		var e Expansion
		if err := rows.Scan(&e.ID, &e.GameID, &e.Name, &e.Code, &e.ReleaseDate, &e.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
