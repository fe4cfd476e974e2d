package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ContextType enumerates the kinds of ordered list an entity can appear in.
type ContextType string

const (
	// ContextGroup is a named kanban-style group; context_id is the group id.
	ContextGroup ContextType = "GROUP"
	// ContextStatusList is the status-column board for an entity type.
	// Status boards have no instance id — the entity's own status column
	// selects the visible column — so context_id is NULL.
	ContextStatusList ContextType = "STATUS_LIST"
	// ContextTaskChecklist is the checklist of a task; context_id is the task id.
	ContextTaskChecklist ContextType = "TASK_CHECKLIST"
)

// ValidContextType reports whether ct is a known context type.
func ValidContextType(ct ContextType) bool {
	switch ct {
	case ContextGroup, ContextStatusList, ContextTaskChecklist:
		return true
	}
	return false
}

// EntityType enumerates the kinds of entity that can be ordered. It is a
// closed set: new orderable kinds require a new constant and an EntityTypeOf
// case, never duck typing.
type EntityType string

const (
	EntityInitiative EntityType = "INITIATIVE"
	EntityTask       EntityType = "TASK"
	EntityChecklist  EntityType = "CHECKLIST"
)

// ValidEntityType reports whether et is a known entity type.
func ValidEntityType(et EntityType) bool {
	switch et {
	case EntityInitiative, EntityTask, EntityChecklist:
		return true
	}
	return false
}

// EntityTypeOf maps a domain struct to its EntityType tag.
func EntityTypeOf(item any) (EntityType, error) {
	switch item.(type) {
	case Initiative, *Initiative:
		return EntityInitiative, nil
	case Task, *Task:
		return EntityTask, nil
	case ChecklistItem, *ChecklistItem:
		return EntityChecklist, nil
	default:
		return "", fmt.Errorf("model: %T is not an orderable entity", item)
	}
}

// Ordering is one entity's placement within one ordered list. An entity may
// hold one row per context it appears in (its status board, each group it
// belongs to) but never two rows in the same context.
type Ordering struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	WorkspaceID *uuid.UUID  `json:"workspace_id,omitempty"`
	ContextType ContextType `json:"context_type"`
	ContextID   *uuid.UUID  `json:"context_id,omitempty"`
	EntityType  EntityType  `json:"entity_type"`
	EntityID    uuid.UUID   `json:"entity_id"`
	// Position is an opaque fractional-indexing key. Its lexicographic order
	// is the list order. Callers never inspect or construct it — they pass
	// anchor entity ids instead.
	Position  string    `json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
