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

// CreateWorkspace inserts a new workspace.
func (db *DB) CreateWorkspace(ctx context.Context, ws model.Workspace) (model.Workspace, error) {
	if ws.ID == uuid.Nil {
		ws.ID = uuid.New()
	}
	now := time.Now().UTC()
	if ws.CreatedAt.IsZero() {
		ws.CreatedAt = now
	}
	ws.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, slug, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ws.ID, ws.Name, ws.Slug, ws.CreatedAt, ws.UpdatedAt,
	)
	if err != nil {
		return model.Workspace{}, fmt.Errorf("storage: create workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspaceByID retrieves a workspace by id.
func (db *DB) GetWorkspaceByID(ctx context.Context, id uuid.UUID) (model.Workspace, error) {
	var ws model.Workspace
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Workspace{}, fmt.Errorf("storage: workspace %s: %w", id, ErrNotFound)
		}
		return model.Workspace{}, fmt.Errorf("storage: get workspace: %w", err)
	}
	return ws, nil
}

// GetWorkspaceBySlug retrieves a workspace by its slug.
func (db *DB) GetWorkspaceBySlug(ctx context.Context, slug string) (model.Workspace, error) {
	var ws model.Workspace
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM workspaces WHERE slug = $1`, slug,
	).Scan(&ws.ID, &ws.Name, &ws.Slug, &ws.CreatedAt, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Workspace{}, fmt.Errorf("storage: workspace %s: %w", slug, ErrNotFound)
		}
		return model.Workspace{}, fmt.Errorf("storage: get workspace by slug: %w", err)
	}
	return ws, nil
}

const userColumns = `id, workspace_id, email, display_name, role, api_key_hash, created_at, updated_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.WorkspaceID, &u.Email, &u.DisplayName, &u.Role,
		&u.APIKeyHash, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser inserts a new user into a workspace.
func (db *DB) CreateUser(ctx context.Context, u model.User) (model.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO users (id, workspace_id, email, display_name, role, api_key_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.WorkspaceID, u.Email, u.DisplayName, string(u.Role),
		u.APIKeyHash, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return model.User{}, fmt.Errorf("storage: create user: %w", err)
	}
	return u, nil
}

// GetUserByID retrieves a user by id.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	u, err := scanUser(db.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, fmt.Errorf("storage: user %s: %w", id, ErrNotFound)
		}
		return model.User{}, fmt.Errorf("storage: get user: %w", err)
	}
	return u, nil
}

// GetUsersByEmailGlobal returns all users with the given email across all
// workspaces. Used only for token issuance where the workspace isn't known
// yet; the caller verifies credentials against each match.
func (db *DB) GetUsersByEmailGlobal(ctx context.Context, email string) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at ASC`, email,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get users by email: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: get users by email: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("storage: user %s: %w", email, ErrNotFound)
	}
	return users, nil
}

// ListUsers returns the members of a workspace.
func (db *DB) ListUsers(ctx context.Context, workspaceID uuid.UUID) ([]model.User, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserAPIKeyHash replaces a user's API key hash.
func (db *DB) UpdateUserAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE users SET api_key_hash = $1, updated_at = now() WHERE id = $2`, hash, id,
	)
	if err != nil {
		return fmt.Errorf("storage: update user api key hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: user %s: %w", id, ErrNotFound)
	}
	return nil
}
