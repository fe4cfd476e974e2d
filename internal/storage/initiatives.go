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

const initiativeColumns = `id, workspace_id, user_id, identifier, title, description, status, embedding, created_at, updated_at`

func scanInitiative(row pgx.Row) (model.Initiative, error) {
	var in model.Initiative
	err := row.Scan(
		&in.ID, &in.WorkspaceID, &in.UserID, &in.Identifier, &in.Title,
		&in.Description, &in.Status, &in.Embedding, &in.CreatedAt, &in.UpdatedAt,
	)
	return in, err
}

// InsertInitiativeTx persists a new initiative inside the caller's
// transaction. The identifier column is assigned by the per-workspace
// counter trigger; the returned struct carries the assigned value.
func InsertInitiativeTx(ctx context.Context, q Querier, in model.Initiative) (model.Initiative, error) {
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	now := time.Now().UTC()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	in.UpdatedAt = now

	err := q.QueryRow(ctx,
		`INSERT INTO initiatives (id, workspace_id, user_id, title, description, status, embedding, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING identifier`,
		in.ID, in.WorkspaceID, in.UserID, in.Title, in.Description,
		string(in.Status), in.Embedding, in.CreatedAt, in.UpdatedAt,
	).Scan(&in.Identifier)
	if err != nil {
		return model.Initiative{}, fmt.Errorf("storage: insert initiative: %w", err)
	}
	return in, nil
}

// GetInitiativeByID retrieves an initiative, scoped to a workspace.
func (db *DB) GetInitiativeByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Initiative, error) {
	in, err := scanInitiative(db.pool.QueryRow(ctx,
		`SELECT `+initiativeColumns+` FROM initiatives WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Initiative{}, fmt.Errorf("storage: initiative %s: %w", id, ErrNotFound)
		}
		return model.Initiative{}, fmt.Errorf("storage: get initiative: %w", err)
	}
	return in, nil
}

// GetInitiativeTx retrieves an initiative inside the caller's transaction.
func GetInitiativeTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) (model.Initiative, error) {
	in, err := scanInitiative(q.QueryRow(ctx,
		`SELECT `+initiativeColumns+` FROM initiatives WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Initiative{}, fmt.Errorf("storage: initiative %s: %w", id, ErrNotFound)
		}
		return model.Initiative{}, fmt.Errorf("storage: get initiative: %w", err)
	}
	return in, nil
}

// ListInitiatives returns a workspace's initiatives, optionally filtered by
// status, newest first. limit is clamped to [1, 1000] with a default of 200.
func (db *DB) ListInitiatives(ctx context.Context, workspaceID uuid.UUID, status *model.Status, limit, offset int) ([]model.Initiative, error) {
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
		`SELECT `+initiativeColumns+`
		 FROM initiatives
		 WHERE workspace_id = $1 AND ($2::text IS NULL OR status = $2)
		 ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		workspaceID, status, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list initiatives: %w", err)
	}
	defer rows.Close()

	var out []model.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan initiative: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// ListInitiativesByIDs returns initiatives for a set of ids in one query.
// Missing ids are silently absent from the result.
func (db *DB) ListInitiativesByIDs(ctx context.Context, workspaceID uuid.UUID, ids []uuid.UUID) ([]model.Initiative, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+initiativeColumns+` FROM initiatives WHERE workspace_id = $1 AND id = ANY($2)`,
		workspaceID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list initiatives by ids: %w", err)
	}
	defer rows.Close()

	var out []model.Initiative
	for rows.Next() {
		in, err := scanInitiative(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan initiative: %w", err)
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// UpdateInitiativeTx performs a partial update of title/description/status
// inside the caller's transaction. Only non-nil fields are applied.
func UpdateInitiativeTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID, title, description *string, status *model.Status) (model.Initiative, error) {
	in, err := scanInitiative(q.QueryRow(ctx,
		`UPDATE initiatives
		 SET title = COALESCE($1, title),
		     description = COALESCE($2, description),
		     status = COALESCE($3, status),
		     updated_at = now()
		 WHERE workspace_id = $4 AND id = $5
		 RETURNING `+initiativeColumns,
		title, description, status, workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Initiative{}, fmt.Errorf("storage: initiative %s: %w", id, ErrNotFound)
		}
		return model.Initiative{}, fmt.Errorf("storage: update initiative: %w", err)
	}
	return in, nil
}

// UpdateInitiativeEmbedding stores a freshly computed embedding vector.
func (db *DB) UpdateInitiativeEmbedding(ctx context.Context, workspaceID, id uuid.UUID, emb pgvector.Vector) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE initiatives SET embedding = $1 WHERE workspace_id = $2 AND id = $3`,
		emb, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: update initiative embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: initiative %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteInitiativeTx removes an initiative inside the caller's transaction.
// Ordering rows are cleaned up separately via DeleteAllOrderingsForEntityTx
// in the same transaction.
func DeleteInitiativeTx(ctx context.Context, q Querier, workspaceID, id uuid.UUID) error {
	tag, err := q.Exec(ctx,
		`DELETE FROM initiatives WHERE workspace_id = $1 AND id = $2`, workspaceID, id,
	)
	if err != nil {
		return fmt.Errorf("storage: delete initiative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("storage: initiative %s: %w", id, ErrNotFound)
	}
	return nil
}

// SimilarInitiative pairs an initiative with its cosine distance to a query
// embedding (smaller is more similar).
type SimilarInitiative struct {
	Initiative model.Initiative
	Distance   float64
}

// SearchInitiativesByEmbedding returns the initiatives nearest to a query
// vector by cosine distance. Rows without an embedding are skipped.
func (db *DB) SearchInitiativesByEmbedding(ctx context.Context, workspaceID uuid.UUID, query pgvector.Vector, limit int) ([]SimilarInitiative, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+initiativeColumns+`, embedding <=> $2 AS distance
		 FROM initiatives
		 WHERE workspace_id = $1 AND embedding IS NOT NULL
		 ORDER BY distance ASC LIMIT $3`,
		workspaceID, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: search initiatives by embedding: %w", err)
	}
	defer rows.Close()

	var out []SimilarInitiative
	for rows.Next() {
		var s SimilarInitiative
		if err := rows.Scan(
			&s.Initiative.ID, &s.Initiative.WorkspaceID, &s.Initiative.UserID,
			&s.Initiative.Identifier, &s.Initiative.Title, &s.Initiative.Description,
			&s.Initiative.Status, &s.Initiative.Embedding,
			&s.Initiative.CreatedAt, &s.Initiative.UpdatedAt, &s.Distance,
		); err != nil {
			return nil, fmt.Errorf("storage: scan similar initiative: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
