// Package attachments coordinates the two homes of an attachment: the
// index row in Postgres and the bytes in the object store.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/blob"
	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/storage"
)

// DownloadExpiry is how long presigned download URLs stay valid.
const DownloadExpiry = 15 * time.Minute

// ErrStorageDisabled is returned when no object store is configured.
var ErrStorageDisabled = errors.New("attachments: object storage not configured")

// Service encapsulates attachment business logic.
type Service struct {
	db     *storage.DB
	blobs  *blob.Store
	logger *slog.Logger
}

// New creates an attachment Service. blobs may be nil when object storage
// is not configured; uploads then fail cleanly.
func New(db *storage.DB, blobs *blob.Store, logger *slog.Logger) *Service {
	return &Service{db: db, blobs: blobs, logger: logger}
}

// Enabled reports whether object storage is configured.
func (s *Service) Enabled() bool {
	return s.blobs != nil
}

// Upload stores the bytes first, then the index row. If the row insert
// fails the uploaded object is removed so the store holds no orphans.
func (s *Service) Upload(ctx context.Context, workspaceID, userID, taskID uuid.UUID, filename, contentType string, size int64, r io.Reader) (model.Attachment, error) {
	if !s.Enabled() {
		return model.Attachment{}, ErrStorageDisabled
	}
	if filename == "" {
		return model.Attachment{}, model.Invalidf("attachments: filename is required")
	}
	if size <= 0 {
		return model.Attachment{}, model.Invalidf("attachments: size must be positive")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := s.db.GetTaskByID(ctx, workspaceID, taskID); err != nil {
		return model.Attachment{}, fmt.Errorf("attachments: task %s: %w", taskID, err)
	}

	a := model.Attachment{
		ID:          uuid.New(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		TaskID:      taskID,
		Filename:    filename,
		Size:        size,
		ContentType: contentType,
	}
	a.ObjectKey = blob.ObjectKey(workspaceID, a.ID, filename)

	if err := s.blobs.Put(ctx, a.ObjectKey, r, size, contentType); err != nil {
		return model.Attachment{}, err
	}

	created, err := s.db.CreateAttachment(ctx, a)
	if err != nil {
		if delErr := s.blobs.Delete(ctx, a.ObjectKey); delErr != nil {
			s.logger.Warn("attachments: orphan cleanup failed",
				"object_key", a.ObjectKey, "error", delErr)
		}
		return model.Attachment{}, err
	}
	return created, nil
}

// Get returns the index row for one attachment.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (model.Attachment, error) {
	return s.db.GetAttachmentByID(ctx, workspaceID, id)
}

// ListForTask returns a task's attachments, newest first.
func (s *Service) ListForTask(ctx context.Context, workspaceID, taskID uuid.UUID) ([]model.Attachment, error) {
	return s.db.ListAttachmentsForTask(ctx, workspaceID, taskID)
}

// DownloadURL returns a presigned, time-limited URL for the bytes.
func (s *Service) DownloadURL(ctx context.Context, workspaceID, id uuid.UUID) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	a, err := s.db.GetAttachmentByID(ctx, workspaceID, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedGet(ctx, a.ObjectKey, a.Filename, DownloadExpiry)
}

// Delete removes the index row and then the bytes. A failed byte delete is
// logged, not surfaced: the row is gone, and the object is unreachable.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	a, err := s.db.DeleteAttachment(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	if err := s.blobs.Delete(ctx, a.ObjectKey); err != nil {
		s.logger.Warn("attachments: object delete failed",
			"object_key", a.ObjectKey, "error", err)
	}
	return nil
}
