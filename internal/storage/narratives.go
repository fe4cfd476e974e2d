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

const heroColumns = `id, workspace_id, user_id, name, archetype, backstory, created_at, updated_at`

// CreateHero inserts a new hero.
func (db *DB) CreateHero(ctx context.Context, h model.Hero) (model.Hero, error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	now := time.Now().UTC()
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now
	}
	h.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO heroes (id, workspace_id, user_id, name, archetype, backstory, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		h.ID, h.WorkspaceID, h.UserID, h.Name, h.Archetype, h.Backstory, h.CreatedAt, h.UpdatedAt,
	)
	if err != nil {
		return model.Hero{}, fmt.Errorf("storage: create hero: %w", err)
	}
	return h, nil
}

// GetHeroByID retrieves a hero, scoped to a workspace.
func (db *DB) GetHeroByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Hero, error) {
	var h model.Hero
	err := db.pool.QueryRow(ctx,
		`SELECT `+heroColumns+` FROM heroes WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	).Scan(&h.ID, &h.WorkspaceID, &h.UserID, &h.Name, &h.Archetype, &h.Backstory, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Hero{}, fmt.Errorf("storage: hero %s: %w", id, ErrNotFound)
		}
		return model.Hero{}, fmt.Errorf("storage: get hero: %w", err)
	}
	return h, nil
}

// ListHeroes returns a workspace's heroes.
func (db *DB) ListHeroes(ctx context.Context, workspaceID uuid.UUID) ([]model.Hero, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+heroColumns+` FROM heroes WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list heroes: %w", err)
	}
	defer rows.Close()

	var out []model.Hero
	for rows.Next() {
		var h model.Hero
		if err := rows.Scan(&h.ID, &h.WorkspaceID, &h.UserID, &h.Name, &h.Archetype, &h.Backstory, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan hero: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// UpdateHero performs a partial update of a hero. Only non-nil fields apply.
func (db *DB) UpdateHero(ctx context.Context, workspaceID, id uuid.UUID, name, archetype, backstory *string) (model.Hero, error) {
	var h model.Hero
	err := db.pool.QueryRow(ctx,
		`UPDATE heroes
		 SET name = COALESCE($1, name),
		     archetype = COALESCE($2, archetype),
		     backstory = COALESCE($3, backstory),
		     updated_at = now()
		 WHERE workspace_id = $4 AND id = $5
		 RETURNING `+heroColumns,
		name, archetype, backstory, workspaceID, id,
	).Scan(&h.ID, &h.WorkspaceID, &h.UserID, &h.Name, &h.Archetype, &h.Backstory, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Hero{}, fmt.Errorf("storage: hero %s: %w", id, ErrNotFound)
		}
		return model.Hero{}, fmt.Errorf("storage: update hero: %w", err)
	}
	return h, nil
}

// DeleteHero removes a hero.
func (db *DB) DeleteHero(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM heroes WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete hero: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: hero %s: %w", id, ErrNotFound)
	}
	return nil
}

const villainColumns = `id, workspace_id, user_id, name, menace, defeated, created_at, updated_at`

// CreateVillain inserts a new villain.
func (db *DB) CreateVillain(ctx context.Context, v model.Villain) (model.Villain, error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO villains (id, workspace_id, user_id, name, menace, defeated, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.WorkspaceID, v.UserID, v.Name, v.Menace, v.Defeated, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return model.Villain{}, fmt.Errorf("storage: create villain: %w", err)
	}
	return v, nil
}

// GetVillainByID retrieves a villain, scoped to a workspace.
func (db *DB) GetVillainByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Villain, error) {
	var v model.Villain
	err := db.pool.QueryRow(ctx,
		`SELECT `+villainColumns+` FROM villains WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	).Scan(&v.ID, &v.WorkspaceID, &v.UserID, &v.Name, &v.Menace, &v.Defeated, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Villain{}, fmt.Errorf("storage: villain %s: %w", id, ErrNotFound)
		}
		return model.Villain{}, fmt.Errorf("storage: get villain: %w", err)
	}
	return v, nil
}

// ListVillains returns a workspace's villains.
func (db *DB) ListVillains(ctx context.Context, workspaceID uuid.UUID) ([]model.Villain, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+villainColumns+` FROM villains WHERE workspace_id = $1 ORDER BY created_at ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list villains: %w", err)
	}
	defer rows.Close()

	var out []model.Villain
	for rows.Next() {
		var v model.Villain
		if err := rows.Scan(&v.ID, &v.WorkspaceID, &v.UserID, &v.Name, &v.Menace, &v.Defeated, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan villain: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// UpdateVillain performs a partial update of a villain.
func (db *DB) UpdateVillain(ctx context.Context, workspaceID, id uuid.UUID, name, menace *string, defeated *bool) (model.Villain, error) {
	var v model.Villain
	err := db.pool.QueryRow(ctx,
		`UPDATE villains
		 SET name = COALESCE($1, name),
		     menace = COALESCE($2, menace),
		     defeated = COALESCE($3, defeated),
		     updated_at = now()
		 WHERE workspace_id = $4 AND id = $5
		 RETURNING `+villainColumns,
		name, menace, defeated, workspaceID, id,
	).Scan(&v.ID, &v.WorkspaceID, &v.UserID, &v.Name, &v.Menace, &v.Defeated, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Villain{}, fmt.Errorf("storage: villain %s: %w", id, ErrNotFound)
		}
		return model.Villain{}, fmt.Errorf("storage: update villain: %w", err)
	}
	return v, nil
}

// DeleteVillain removes a villain. Conflicts referencing it cascade.
func (db *DB) DeleteVillain(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM villains WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete villain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: villain %s: %w", id, ErrNotFound)
	}
	return nil
}

const conflictColumns = `id, workspace_id, user_id, villain_id, initiative_id, stakes, status, created_at, updated_at`

// CreateConflict inserts a new conflict.
func (db *DB) CreateConflict(ctx context.Context, c model.Conflict) (model.Conflict, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := db.pool.Exec(ctx,
		`INSERT INTO conflicts (id, workspace_id, user_id, villain_id, initiative_id, stakes, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.WorkspaceID, c.UserID, c.VillainID, c.InitiativeID, c.Stakes,
		string(c.Status), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return model.Conflict{}, fmt.Errorf("storage: create conflict: %w", err)
	}
	return c, nil
}

// GetConflictByID retrieves a conflict, scoped to a workspace.
func (db *DB) GetConflictByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Conflict, error) {
	var c model.Conflict
	err := db.pool.QueryRow(ctx,
		`SELECT `+conflictColumns+` FROM conflicts WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	).Scan(&c.ID, &c.WorkspaceID, &c.UserID, &c.VillainID, &c.InitiativeID, &c.Stakes, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Conflict{}, fmt.Errorf("storage: conflict %s: %w", id, ErrNotFound)
		}
		return model.Conflict{}, fmt.Errorf("storage: get conflict: %w", err)
	}
	return c, nil
}

// ListConflicts returns a workspace's conflicts, optionally filtered by
// status.
func (db *DB) ListConflicts(ctx context.Context, workspaceID uuid.UUID, status *model.ConflictStatus) ([]model.Conflict, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+conflictColumns+`
		 FROM conflicts
		 WHERE workspace_id = $1 AND ($2::text IS NULL OR status = $2)
		 ORDER BY created_at ASC`,
		workspaceID, status,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list conflicts: %w", err)
	}
	defer rows.Close()

	var out []model.Conflict
	for rows.Next() {
		var c model.Conflict
		if err := rows.Scan(&c.ID, &c.WorkspaceID, &c.UserID, &c.VillainID, &c.InitiativeID, &c.Stakes, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan conflict: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateConflict performs a partial update of stakes/status.
func (db *DB) UpdateConflict(ctx context.Context, workspaceID, id uuid.UUID, stakes *string, status *model.ConflictStatus) (model.Conflict, error) {
	var c model.Conflict
	err := db.pool.QueryRow(ctx,
		`UPDATE conflicts
		 SET stakes = COALESCE($1, stakes),
		     status = COALESCE($2, status),
		     updated_at = now()
		 WHERE workspace_id = $3 AND id = $4
		 RETURNING `+conflictColumns,
		stakes, status, workspaceID, id,
	).Scan(&c.ID, &c.WorkspaceID, &c.UserID, &c.VillainID, &c.InitiativeID, &c.Stakes, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Conflict{}, fmt.Errorf("storage: conflict %s: %w", id, ErrNotFound)
		}
		return model.Conflict{}, fmt.Errorf("storage: update conflict: %w", err)
	}
	return c, nil
}

// DeleteConflict removes a conflict.
func (db *DB) DeleteConflict(ctx context.Context, workspaceID, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`DELETE FROM conflicts WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete conflict: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: conflict %s: %w", id, ErrNotFound)
	}
	return nil
}
