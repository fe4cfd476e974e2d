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

const checklistColumns = `id, workspace_id, user_id, task_id, title, done, created_at, updated_at`

func scanChecklistItem(row pgx.Row) (model.ChecklistItem, error) {
	var ci model.ChecklistItem
	err := row.Scan(
		&ci.ID, &ci.WorkspaceID, &ci.UserID, &ci.TaskID, &ci.Title,
		&ci.Done, &ci.CreatedAt, &ci.UpdatedAt,
	)
	return ci, err
}

// InsertChecklistItemTx persists a new checklist item inside the caller's
// transaction.
func InsertChecklistItemTx(ctx context.Context, q Querier, ci model.ChecklistItem) (model.ChecklistItem, error) {
	if ci.ID == uuid.Nil {
		ci.ID = uuid.New()
	}
	now := time.Now().UTC()
	if ci.CreatedAt.IsZero() {
		ci.CreatedAt = now
	}
	ci.UpdatedAt = now

	_, err := q.Exec(ctx,
		`INSERT INTO checklist_items (id, workspace_id, user_id, task_id, title, done, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ci.ID, ci.WorkspaceID, ci.UserID, ci.TaskID, ci.Title, ci.Done, ci.CreatedAt, ci.UpdatedAt,
	)
	if err != nil {
		return model.ChecklistItem{}, fmt.Errorf("storage: insert checklist item: %w", err)
	}
	return ci, nil
}

// GetChecklistItemByID retrieves a checklist item, scoped to a workspace.
func (db *DB) GetChecklistItemByID(ctx context.Context, workspaceID, id uuid.UUID) (model.ChecklistItem, error) {
	ci, err := scanChecklistItem(db.pool.QueryRow(ctx,
		`SELECT `+checklistColumns+` FROM checklist_items WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ChecklistItem{}, fmt.Errorf("storage: checklist item %s: %w", id, ErrNotFound)
		}
		return model.ChecklistItem{}, fmt.Errorf("storage: get checklist item: %w", err)
	}
	return ci, nil
}

// ListChecklistItemsByIDs returns checklist items for a set of ids in one
// query.
func (db *DB) ListChecklistItemsByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]model.ChecklistItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+checklistColumns+` FROM checklist_items WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list checklist items by ids: %w", err)
	}
	defer rows.Close()

	var out []model.ChecklistItem
	for rows.Next() {
		ci, err := scanChecklistItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan checklist item: %w", err)
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

// UpdateChecklistItemTx performs a partial update of title/done inside the
// caller's transaction. Only non-nil fields are applied.
func UpdateChecklistItemTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID, title *string, done *bool) (model.ChecklistItem, error) {
	ci, err := scanChecklistItem(q.QueryRow(ctx,
		`UPDATE checklist_items
		 SET title = COALESCE($1, title),
		     done = COALESCE($2, done),
		     updated_at = now()
		 WHERE workspace_id = $3 AND id = $4
		 RETURNING `+checklistColumns,
		title, done, workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ChecklistItem{}, fmt.Errorf("storage: checklist item %s: %w", id, ErrNotFound)
		}
		return model.ChecklistItem{}, fmt.Errorf("storage: update checklist item: %w", err)
	}
	return ci, nil
}

// DeleteChecklistItemTx removes a checklist item inside the caller's
// transaction. Its ordering row is cleaned up by the caller in the same
// transaction.
func DeleteChecklistItemTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM checklist_items WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete checklist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: checklist item %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListChecklistItemIDsForTaskTx returns the ids of all checklist items
// belonging to a task. Used when deleting a task to purge each item's
// ordering row.
func ListChecklistItemIDsForTaskTx(ctx context.Context, q Querier, workspaceID, taskID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.Query(ctx,
		`SELECT id FROM checklist_items WHERE workspace_id = $1 AND task_id = $2`,
		workspaceID, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list checklist item ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan checklist item id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
