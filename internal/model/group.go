package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GroupKind restricts what entity type a group may contain.
type GroupKind string

const (
	GroupKindInitiative GroupKind = "INITIATIVE"
	GroupKindTask       GroupKind = "TASK"
)

// EntityTypeForGroupKind maps a group kind to the entity type its ordering
// rows carry.
func EntityTypeForGroupKind(k GroupKind) (EntityType, error) {
	switch k {
	case GroupKindInitiative:
		return EntityInitiative, nil
	case GroupKindTask:
		return EntityTask, nil
	default:
		return "", fmt.Errorf("model: unknown group kind %q", k)
	}
}

// Group is a named, user-curated list of initiatives or tasks. Membership
// and member order both live in the ordering rows for the group's context.
type Group struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Kind        GroupKind `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidateGroup checks field constraints before persistence.
func ValidateGroup(g Group) error {
	if g.Name == "" {
		return Invalidf("name is required")
	}
	if len(g.Name) > MaxTitleLen {
		return Invalidf("name exceeds maximum length of %d characters", MaxTitleLen)
	}
	if _, err := EntityTypeForGroupKind(g.Kind); err != nil {
		return Invalidf("unknown group kind %q", g.Kind)
	}
	return nil
}
