package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/heroarc/heroarc/internal/model"
)

const taskColumns = `id, workspace_id, user_id, initiative_id, identifier, title, description, status, embedding, created_at, updated_at`

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID, &t.WorkspaceID, &t.UserID, &t.InitiativeID, &t.Identifier,
		&t.Title, &t.Description, &t.Status, &t.Embedding, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// InsertTaskTx persists a new task inside the caller's transaction. The
// identifier column is assigned by the per-workspace counter trigger.
func InsertTaskTx(ctx context.Context, q Querier, t model.Task) (model.Task, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	err := q.QueryRow(ctx,
		`INSERT INTO tasks (id, workspace_id, user_id, initiative_id, title, description, status, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING identifier`,
		t.ID, t.WorkspaceID, t.UserID, t.InitiativeID, t.Title, t.Description,
		string(t.Status), t.Embedding, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.Identifier)
	if err != nil {
		return model.Task{}, fmt.Errorf("storage: insert task: %w", err)
	}
	return t, nil
}

// GetTaskByID retrieves a task, scoped to a workspace.
func (db *DB) GetTaskByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Task, error) {
	t, err := scanTask(db.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}
	return t, nil
}

// GetTaskTx retrieves a task inside the caller's transaction.
func GetTaskTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) (model.Task, error) {
	t, err := scanTask(q.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("storage: get task: %w", err)
	}
	return t, nil
}

// ListTasks returns a workspace's tasks, optionally filtered by status
// and/or initiative, newest first. limit is clamped to [1, 1000] with a
// default of 200.
func (db *DB) ListTasks(ctx context.Context, workspaceID uuid.UUID, status *model.Status, initiativeID *uuid.UUID, limit, offset int) ([]model.Task, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE workspace_id = $1
		   AND ($2::text IS NULL OR status = $2)
		   AND ($3::uuid IS NULL OR initiative_id = $3)
		 ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		workspaceID, status, initiativeID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListTasksByIDs returns tasks for a set of ids in one query. Missing ids
// are silently absent from the result.
func (db *DB) ListTasksByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list tasks by ids: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskTx performs a partial update of title/description/status/
// initiative inside the caller's transaction. Only non-nil fields are
// applied; setInitiative distinguishes "leave alone" from "set to NULL".
func UpdateTaskTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID, title, description *string, status *model.Status, initiativeID *uuid.UUID, setInitiative bool) (model.Task, error) {
	t, err := scanTask(q.QueryRow(ctx,
		`UPDATE tasks
		 SET title = COALESCE($1, title),
		     description = COALESCE($2, description),
		     status = COALESCE($3, status),
		     initiative_id = CASE WHEN $4 THEN $5 ELSE initiative_id END,
		     updated_at = now()
		 WHERE workspace_id = $6 AND id = $7
		 RETURNING `+taskColumns,
		title, description, status, setInitiative, initiativeID, workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Task{}, fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
		}
		return model.Task{}, fmt.Errorf("storage: update task: %w", err)
	}
	return t, nil
}

// UpdateTaskEmbedding stores a freshly computed embedding vector.
func (db *DB) UpdateTaskEmbedding(ctx context.Context, workspaceID, id uuid.UUID, emb pgvector.Vector) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE tasks SET embedding = $1 WHERE workspace_id = $2 AND id = $3`,
		emb, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: update task embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTaskTx removes a task inside the caller's transaction. Checklist
// items cascade at the schema level; ordering rows are cleaned up by the
// caller in the same transaction.
func DeleteTaskTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM tasks WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: task %s: %w", id, ErrNotFound)
	}
	return nil
}

// SimilarTask pairs a task with its cosine distance to a query embedding.
type SimilarTask struct {
	Task     model.Task
	Distance float64
}

// SearchTasksByEmbedding returns the tasks nearest to a query vector by
// cosine distance. Rows without an embedding are skipped.
func (db *DB) SearchTasksByEmbedding(ctx context.Context, workspaceID uuid.UUID, query pgvector.Vector, limit int) ([]SimilarTask, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+taskColumns+`, embedding <=> $2 AS distance
		 FROM tasks
		 WHERE workspace_id = $1 AND embedding IS NOT NULL
		 ORDER BY distance ASC LIMIT $3`,
		workspaceID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: search tasks by embedding: %w", err)
	}
	defer rows.Close()

	var out []SimilarTask
	for rows.Next() {
		var s SimilarTask
		if err := rows.Scan(
			&s.Task.ID, &s.Task.WorkspaceID, &s.Task.UserID, &s.Task.InitiativeID,
			&s.Task.Identifier, &s.Task.Title, &s.Task.Description, &s.Task.Status,
			&s.Task.Embedding, &s.Task.CreatedAt, &s.Task.UpdatedAt, &s.Distance,
		); err != nil {
			return nil, fmt.Errorf("storage: scan similar task: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
