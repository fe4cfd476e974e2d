package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Task is an actionable item, optionally attached to an initiative. Like
// initiatives, tasks carry a trigger-assigned per-workspace identifier
// (e.g. "TASK-34").
type Task struct {
	ID           uuid.UUID        `json:"id"`
	WorkspaceID  uuid.UUID        `json:"workspace_id"`
	UserID       uuid.UUID        `json:"user_id"`
	InitiativeID *uuid.UUID       `json:"initiative_id,omitempty"`
	Identifier   string           `json:"identifier"`
	Title        string           `json:"title"`
	Description  *string          `json:"description,omitempty"`
	Status       Status           `json:"status"`
	Embedding    *pgvector.Vector `json:"-"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ValidateTask checks field constraints before persistence.
func ValidateTask(t Task) error {
	if t.Title == "" {
		return Invalidf("title is required")
	}
	if len(t.Title) > MaxTitleLen {
		return Invalidf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if t.Description != nil && len(*t.Description) > MaxDescriptionLen {
		return Invalidf("description exceeds maximum length of %d bytes", MaxDescriptionLen)
	}
	if !ValidStatus(t.Status) {
		return Invalidf("unknown status %q", t.Status)
	}
	return nil
}

// ChecklistItem is one entry in a task's checklist, ordered within the
// TASK_CHECKLIST context of its task.
type ChecklistItem struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	TaskID      uuid.UUID `json:"task_id"`
	Title       string    `json:"title"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateChecklistItem checks field constraints before persistence.
func ValidateChecklistItem(ci ChecklistItem) error {
	if ci.Title == "" {
		return Invalidf("title is required")
	}
	if len(ci.Title) > MaxTitleLen {
		return Invalidf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if ci.TaskID == uuid.Nil {
		return Invalidf("task_id is required")
	}
	return nil
}

// Attachment records a file stored in object storage for a task. Bytes live
// in the S3-compatible store under ObjectKey; this row is the index.
type Attachment struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	TaskID      uuid.UUID `json:"task_id"`
	ObjectKey   string    `json:"-"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
