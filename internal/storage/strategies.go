package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/heroarc/heroarc/internal/model"
)

const strategyColumns = `id, workspace_id, user_id, vision, horizon_days, pillars, created_at, updated_at`

func scanStrategy(row pgx.Row) (model.Strategy, error) {
	var s model.Strategy
	err := row.Scan(
		&s.ID, &s.WorkspaceID, &s.UserID, &s.Vision, &s.HorizonDays,
		&s.Pillars, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// CreateStrategy inserts a new strategy. Pillars persist as jsonb.
func (db *DB) CreateStrategy(ctx context.Context, s model.Strategy) (model.Strategy, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Pillars == nil {
		s.Pillars = []model.Pillar{}
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO strategies (id, workspace_id, user_id, vision, horizon_days, pillars, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.WorkspaceID, s.UserID, s.Vision, s.HorizonDays, s.Pillars, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return model.Strategy{}, fmt.Errorf("storage: create strategy: %w", err)
	}
	return s, nil
}

// GetStrategyByID retrieves a strategy, scoped to a workspace.
func (db *DB) GetStrategyByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Strategy, error) {
	s, err := scanStrategy(db.pool.QueryRow(ctx,
		`SELECT `+strategyColumns+` FROM strategies WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Strategy{}, fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
		}
		return model.Strategy{}, fmt.Errorf("storage: get strategy: %w", err)
	}
	return s, nil
}

// ListStrategies returns a workspace's strategies, newest first.
func (db *DB) ListStrategies(ctx context.Context, workspaceID uuid.UUID) ([]model.Strategy, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+strategyColumns+` FROM strategies WHERE workspace_id = $1 ORDER BY created_at DESC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list strategies: %w", err)
	}
	defer rows.Close()

	var out []model.Strategy
	for rows.Next() {
		s, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan strategy: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateStrategy performs a partial update of vision/horizon/pillars.
// pillars replaces wholesale when non-nil.
func (db *DB) UpdateStrategy(ctx context.Context, workspaceID, id uuid.UUID, vision *string, horizonDays *int, pillars []model.Pillar) (model.Strategy, error) {
	s, err := scanStrategy(db.pool.QueryRow(ctx,
		`UPDATE strategies
		 SET vision = COALESCE($1, vision),
		     horizon_days = COALESCE($2, horizon_days),
		     pillars = CASE WHEN $3::jsonb IS NOT NULL THEN $3::jsonb ELSE pillars END,
		     updated_at = now()
		 WHERE workspace_id = $4 AND id = $5
		 RETURNING `+strategyColumns,
		vision, horizonDays, pillars, workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Strategy{}, fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
		}
		return model.Strategy{}, fmt.Errorf("storage: update strategy: %w", err)
	}
	return s, nil
}

// DeleteStrategy removes a strategy.
func (db *DB) DeleteStrategy(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM strategies WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: strategy %s: %w", id, ErrNotFound)
	}
	return nil
}
