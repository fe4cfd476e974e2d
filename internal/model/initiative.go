package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Status is the workflow state shared by initiatives and tasks. Each status
// is one column on the STATUS_LIST board.
type Status string

const (
	StatusBacklog    Status = "BACKLOG"
	StatusToDo       Status = "TO_DO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusBlocked    Status = "BLOCKED"
	StatusDone       Status = "DONE"
)

// ValidStatus reports whether s is a known workflow status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusBacklog, StatusToDo, StatusInProgress, StatusBlocked, StatusDone:
		return true
	}
	return false
}

// Field length limits shared by initiatives and tasks. Titles and
// descriptions flow into the embedding pipeline and Postgres TEXT columns.
const (
	MaxTitleLen       = 512
	MaxDescriptionLen = 64 * 1024 // 64 KB
)

// Initiative is the top-level unit of work: a card on the initiative board.
// Identifier is assigned by a per-workspace counter trigger on insert
// (e.g. "INIT-12") and is never set by the application.
type Initiative struct {
	ID          uuid.UUID        `json:"id"`
	WorkspaceID uuid.UUID        `json:"workspace_id"`
	UserID      uuid.UUID        `json:"user_id"`
	Identifier  string           `json:"identifier"`
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Status      Status           `json:"status"`
	Embedding   *pgvector.Vector `json:"-"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ValidateInitiative checks field constraints before persistence.
func ValidateInitiative(in Initiative) error {
	if in.Title == "" {
		return Invalidf("title is required")
	}
	if len(in.Title) > MaxTitleLen {
		return Invalidf("title exceeds maximum length of %d characters", MaxTitleLen)
	}
	if in.Description != nil && len(*in.Description) > MaxDescriptionLen {
		return Invalidf("description exceeds maximum length of %d bytes", MaxDescriptionLen)
	}
	if !ValidStatus(in.Status) {
		return Invalidf("unknown status %q", in.Status)
	}
	return nil
}
