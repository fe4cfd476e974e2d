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

const attachmentColumns = `id, workspace_id, user_id, task_id, object_key, filename, size, content_type, created_at`

func scanAttachment(row pgx.Row) (model.Attachment, error) {
	var a model.Attachment
	err := row.Scan(
		&a.ID, &a.WorkspaceID, &a.UserID, &a.TaskID, &a.ObjectKey,
		&a.Filename, &a.Size, &a.ContentType, &a.CreatedAt,
	)
	return a, err
}

// CreateAttachment inserts an attachment index row. The object bytes are
// already in the blob store under ObjectKey when this is called.
func (db *DB) CreateAttachment(ctx context.Context, a model.Attachment) (model.Attachment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO attachments (id, workspace_id, user_id, task_id, object_key, filename, size, content_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.WorkspaceID, a.UserID, a.TaskID, a.ObjectKey,
		a.Filename, a.Size, a.ContentType, a.CreatedAt,
	)
	if err != nil {
		return model.Attachment{}, fmt.Errorf("storage: create attachment: %w", err)
	}
	return a, nil
}

// GetAttachmentByID retrieves an attachment, scoped to a workspace.
func (db *DB) GetAttachmentByID(ctx context.Context, workspaceID, id uuid.UUID) (model.Attachment, error) {
	a, err := scanAttachment(db.pool.QueryRow(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE workspace_id = $1 AND id = $2`,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Attachment{}, fmt.Errorf("storage: attachment %s: %w", id, ErrNotFound)
		}
		return model.Attachment{}, fmt.Errorf("storage: get attachment: %w", err)
	}
	return a, nil
}

// ListAttachmentsForTask returns the attachments of one task.
func (db *DB) ListAttachmentsForTask(ctx context.Context, workspaceID, taskID uuid.UUID) ([]model.Attachment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+attachmentColumns+`
		 FROM attachments WHERE workspace_id = $1 AND task_id = $2
		 ORDER BY created_at ASC`,
		workspaceID, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list attachments: %w", err)
	}
	defer rows.Close()

	var out []model.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAttachment removes an attachment index row and returns it so the
// caller can delete the object bytes.
func (db *DB) DeleteAttachment(ctx context.Context, workspaceID, id uuid.UUID) (model.Attachment, error) {
	a, err := scanAttachment(db.pool.QueryRow(ctx,
		`DELETE FROM attachments WHERE workspace_id = $1 AND id = $2
		 RETURNING `+attachmentColumns,
		workspaceID, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Attachment{}, fmt.Errorf("storage: attachment %s: %w", id, ErrNotFound)
		}
		return model.Attachment{}, fmt.Errorf("storage: delete attachment: %w", err)
	}
	return a, nil
}
