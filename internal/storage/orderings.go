package storage

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/heroarc/heroarc/internal/model"
)

const orderingColumns = `id, user_id, workspace_id, context_type, context_id, entity_type, entity_id, position, created_at, updated_at`

func scanOrdering(row pgx.Row) (model.Ordering, error) {
	var o model.Ordering
	err := row.Scan(
		&o.ID, &o.UserID, &o.WorkspaceID, &o.ContextType, &o.ContextID,
		&o.EntityType, &o.EntityID, &o.Position, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// LockOrderingContextTx takes a transaction-scoped advisory lock on one
// ordering partition. Concurrent writers to the same (workspace_id,
// context_type, context_id) serialize here; writers in other partitions —
// including other workspaces' status lists — proceed. The lock releases
// automatically when the caller's transaction ends.
func LockOrderingContextTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID) error {
	h := fnv.New64a()
	_, _ = h.Write(workspaceID[:])
	_, _ = h.Write([]byte(contextType))
	if contextID != nil {
		_, _ = h.Write(contextID[:])
	}
	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(h.Sum64())); err != nil { //nolint:gosec // deliberate wraparound into the bigint lock space
		return fmt.Errorf("storage: lock ordering context: %w", err)
	}
	return nil
}

// InsertOrderingTx persists a new ordering row inside the caller's
// transaction. Fills id and timestamps if unset.
func InsertOrderingTx(ctx context.Context, q Querier, o model.Ordering) (model.Ordering, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	_, err := q.Exec(ctx,
		`INSERT INTO orderings (id, user_id, workspace_id, context_type, context_id, entity_type, entity_id, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.UserID, o.WorkspaceID, string(o.ContextType), o.ContextID,
		string(o.EntityType), o.EntityID, o.Position, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return model.Ordering{}, fmt.Errorf("storage: insert ordering: %w", err)
	}
	return o, nil
}

// GetOrderingTx returns the ordering row for one entity in one workspace's
// context partition, or ErrNotFound. Every partition query carries the
// workspace predicate: the STATUS_LIST partition keys on a NULL context_id
// shared across tenants, so workspace_id is the only column separating one
// tenant's status list from another's.
func GetOrderingTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, entityID uuid.UUID) (model.Ordering, error) {
	o, err := scanOrdering(q.QueryRow(ctx,
		`SELECT `+orderingColumns+`
		 FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3
		   AND entity_type = $4 AND entity_id = $5`,
		workspaceID, string(contextType), contextID, string(entityType), entityID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ordering{}, fmt.Errorf("storage: ordering for %s %s: %w", entityType, entityID, ErrNotFound)
		}
		return model.Ordering{}, fmt.Errorf("storage: get ordering: %w", err)
	}
	return o, nil
}

// PositionOfTx returns the position key of an entity in a context,
// optionally excluding one entity id from the lookup (self-exclusion when
// resolving anchors during a move). Returns ErrNotFound when the anchor has
// no row in the workspace's partition — an anchor id from another workspace
// resolves exactly like an unknown id.
func PositionOfTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, entityID uuid.UUID, exclude *uuid.UUID) (string, error) {
	var pos string
	err := q.QueryRow(ctx,
		`SELECT position FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3
		   AND entity_type = $4 AND entity_id = $5
		   AND ($6::uuid IS NULL OR entity_id <> $6)`,
		workspaceID, string(contextType), contextID, string(entityType), entityID, exclude,
	).Scan(&pos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("storage: ordering for %s %s: %w", entityType, entityID, ErrNotFound)
		}
		return "", fmt.Errorf("storage: position of: %w", err)
	}
	return pos, nil
}

// MaxPositionTx returns the largest position key currently in a workspace's
// context partition, excluding one entity id when exclude is non-nil. ok is
// false when the partition is empty.
func MaxPositionTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, exclude *uuid.UUID) (pos string, ok bool, err error) {
	err = q.QueryRow(ctx,
		`SELECT position FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3 AND entity_type = $4
		   AND ($5::uuid IS NULL OR entity_id <> $5)
		 ORDER BY position DESC LIMIT 1`,
		workspaceID, string(contextType), contextID, string(entityType), exclude,
	).Scan(&pos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: max position: %w", err)
	}
	return pos, true, nil
}

// NextPositionAfterTx returns the smallest position key strictly greater
// than after in a workspace's context partition, excluding one entity id
// when exclude is non-nil. ok is false when nothing follows after.
func NextPositionAfterTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, after string, exclude *uuid.UUID) (pos string, ok bool, err error) {
	err = q.QueryRow(ctx,
		`SELECT position FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3 AND entity_type = $4
		   AND position > $5
		   AND ($6::uuid IS NULL OR entity_id <> $6)
		 ORDER BY position ASC LIMIT 1`,
		workspaceID, string(contextType), contextID, string(entityType), after, exclude,
	).Scan(&pos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: next position after: %w", err)
	}
	return pos, true, nil
}

// PrevPositionBeforeTx returns the largest position key strictly smaller
// than before in a workspace's context partition, excluding one entity id
// when exclude is non-nil. ok is false when nothing precedes before.
func PrevPositionBeforeTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, before string, exclude *uuid.UUID) (pos string, ok bool, err error) {
	err = q.QueryRow(ctx,
		`SELECT position FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3 AND entity_type = $4
		   AND position < $5
		   AND ($6::uuid IS NULL OR entity_id <> $6)
		 ORDER BY position DESC LIMIT 1`,
		workspaceID, string(contextType), contextID, string(entityType), before, exclude,
	).Scan(&pos)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: prev position before: %w", err)
	}
	return pos, true, nil
}

// UpdateOrderingPositionTx rewrites the position of one entity's row in a
// workspace's context partition. Returns the updated row or ErrNotFound.
func UpdateOrderingPositionTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, entityID uuid.UUID, position string) (model.Ordering, error) {
	o, err := scanOrdering(q.QueryRow(ctx,
		`UPDATE orderings SET position = $1, updated_at = now()
		 WHERE workspace_id = $2
		   AND context_type = $3 AND context_id IS NOT DISTINCT FROM $4
		   AND entity_type = $5 AND entity_id = $6
		 RETURNING `+orderingColumns,
		position, workspaceID, string(contextType), contextID, string(entityType), entityID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ordering{}, fmt.Errorf("storage: ordering for %s %s: %w", entityType, entityID, ErrNotFound)
		}
		return model.Ordering{}, fmt.Errorf("storage: update ordering position: %w", err)
	}
	return o, nil
}

// ReassignOrderingContextTx moves one entity's row from a source context to
// a destination context with a new position, in place. Returns the updated
// row or ErrNotFound when the entity has no row in the source context.
func ReassignOrderingContextTx(ctx context.Context, q Querier, workspaceID uuid.UUID, srcType model.ContextType, srcID *uuid.UUID, dstType model.ContextType, dstID *uuid.UUID, entityType model.EntityType, entityID uuid.UUID, position string) (model.Ordering, error) {
	o, err := scanOrdering(q.QueryRow(ctx,
		`UPDATE orderings
		 SET context_type = $1, context_id = $2, position = $3, updated_at = now()
		 WHERE workspace_id = $4
		   AND context_type = $5 AND context_id IS NOT DISTINCT FROM $6
		   AND entity_type = $7 AND entity_id = $8
		 RETURNING `+orderingColumns,
		string(dstType), dstID, position,
		workspaceID, string(srcType), srcID, string(entityType), entityID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ordering{}, fmt.Errorf("storage: ordering for %s %s: %w", entityType, entityID, ErrNotFound)
		}
		return model.Ordering{}, fmt.Errorf("storage: reassign ordering context: %w", err)
	}
	return o, nil
}

// DeleteOrderingTx removes the single ordering row for an entity in one
// workspace's context partition. Reports whether a row was deleted; a
// missing row is not an error.
func DeleteOrderingTx(ctx context.Context, q Querier, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType, entityID uuid.UUID) (bool, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3
		   AND entity_type = $4 AND entity_id = $5`,
		workspaceID, string(contextType), contextID, string(entityType), entityID,
	)
	if err != nil {
		return false, fmt.Errorf("storage: delete ordering: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAllOrderingsForEntityTx removes every ordering row for an entity
// across all contexts and returns the number of rows deleted.
func DeleteAllOrderingsForEntityTx(ctx context.Context, q Querier, entityType model.EntityType, entityID uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM orderings WHERE entity_type = $1 AND entity_id = $2`,
		string(entityType), entityID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete orderings for entity: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteOrderingsForContextTx removes every ordering row belonging to one
// context instance inside the caller's transaction (used when the list
// itself, e.g. a group, is deleted).
func DeleteOrderingsForContextTx(ctx context.Context, q Querier, contextType model.ContextType, contextID *uuid.UUID) (int64, error) {
	tag, err := q.Exec(ctx,
		`DELETE FROM orderings WHERE context_type = $1 AND context_id IS NOT DISTINCT FROM $2`,
		string(contextType), contextID,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete orderings for context: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListOrderings returns all ordering rows of one workspace's context
// partition ordered ascending by position. This is the canonical list
// order; the workspace predicate keeps the shared STATUS_LIST partition
// from leaking other tenants' rows into a board read.
func (db *DB) ListOrderings(ctx context.Context, workspaceID uuid.UUID, contextType model.ContextType, contextID *uuid.UUID, entityType model.EntityType) ([]model.Ordering, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+orderingColumns+`
		 FROM orderings
		 WHERE workspace_id = $1
		   AND context_type = $2 AND context_id IS NOT DISTINCT FROM $3 AND entity_type = $4
		 ORDER BY position ASC`,
		workspaceID, string(contextType), contextID, string(entityType),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list orderings: %w", err)
	}
	defer rows.Close()

	var out []model.Ordering
	for rows.Next() {
		o, err := scanOrdering(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan ordering: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// ListOrderingsForEntity returns every context an entity is ordered in.
func (db *DB) ListOrderingsForEntity(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) ([]model.Ordering, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+orderingColumns+`
		 FROM orderings
		 WHERE entity_type = $1 AND entity_id = $2
		 ORDER BY context_type, context_id`,
		string(entityType), entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list orderings for entity: %w", err)
	}
	defer rows.Close()

	var out []model.Ordering
	for rows.Next() {
		o, err := scanOrdering(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan ordering: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
