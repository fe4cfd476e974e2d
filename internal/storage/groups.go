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

const groupColumns = `id, workspace_id, user_id, name, kind, created_at, updated_at`

func scanGroup(row pgx.Row) (model.Group, error) {
	var g model.Group
	err := row.Scan(&g.ID, &g.WorkspaceID, &g.UserID, &g.Name, &g.Kind, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// CreateGroup inserts a new group.
func (db *DB) CreateGroup(ctx context.Context, g model.Group) (model.Group, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	now := time.Now().UTC()
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	g.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO groups (id, workspace_id, user_id, name, kind, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.WorkspaceID, g.UserID, g.Name, string(g.Kind), g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		return model.Group{}, fmt.Errorf("storage: create group: %w", err)
	}
	return g, nil
}

// GetGroupByID retrieves a group, scoped to a workspace.
func (db *DB) GetGroupByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Group, error) {
	g, err := scanGroup(db.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Group{}, fmt.Errorf("storage: group %s: %w", id, ErrNotFound)
		}
		return model.Group{}, fmt.Errorf("storage: get group: %w", err)
	}
	return g, nil
}

// ListGroups returns a workspace's groups ordered by creation time.
func (db *DB) ListGroups(ctx context.Context, workspaceID uuid.UUID) ([]model.Group, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list groups: %w", err)
	}
	defer rows.Close()

	var out []model.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateGroup renames a group.
func (db *DB) UpdateGroup(ctx context.Context, workspaceID, id uuid.UUID, name string) (model.Group, error) {
	g, err := scanGroup(db.pool.QueryRow(ctx,
		`UPDATE groups SET name = $1, updated_at = now()
		 WHERE workspace_id = $2 AND id = $3
		 RETURNING `+groupColumns,
		name, workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Group{}, fmt.Errorf("storage: group %s: %w", id, ErrNotFound)
		}
		return model.Group{}, fmt.Errorf("storage: update group: %w", err)
	}
	return g, nil
}

// DeleteGroupTx removes a group inside the caller's transaction. The
// caller purges the group's ordering rows in the same transaction.
func DeleteGroupTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM groups WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: group %s: %w", id, ErrNotFound)
	}
	return nil
}
