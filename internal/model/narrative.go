package model

import (
	"time"

	"github.com/google/uuid"
)

// The narrative layer frames a user's work as a story: the user's hero
// persona battles villains (recurring obstacles) through conflicts tied to
// concrete initiatives. Pure validated CRUD — no ordering involvement.

// Hero is the user's narrative persona.
type Hero struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Archetype   string    `json:"archetype,omitempty"`
	Backstory   *string   `json:"backstory,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Villain personifies a recurring obstacle (procrastination, scope creep).
type Villain struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Menace      *string   `json:"menace,omitempty"` // what this villain threatens
	Defeated    bool      `json:"defeated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConflictStatus is the lifecycle of a narrative conflict.
type ConflictStatus string

const (
	ConflictActive   ConflictStatus = "ACTIVE"
	ConflictResolved ConflictStatus = "RESOLVED"
)

// Conflict binds a villain to an initiative: resolving the initiative
// resolves the conflict.
type Conflict struct {
	ID           uuid.UUID      `json:"id"`
	WorkspaceID  uuid.UUID      `json:"workspace_id"`
	UserID       uuid.UUID      `json:"user_id"`
	VillainID    uuid.UUID      `json:"villain_id"`
	InitiativeID uuid.UUID      `json:"initiative_id"`
	Stakes       *string        `json:"stakes,omitempty"`
	Status       ConflictStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ValidateHero checks field constraints before persistence.
func ValidateHero(h Hero) error {
	if h.Name == "" {
		return Invalidf("name is required")
	}
	if len(h.Name) > MaxTitleLen {
		return Invalidf("name exceeds maximum length of %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateVillain checks field constraints before persistence.
func ValidateVillain(v Villain) error {
	if v.Name == "" {
		return Invalidf("name is required")
	}
	if len(v.Name) > MaxTitleLen {
		return Invalidf("name exceeds maximum length of %d characters", MaxTitleLen)
	}
	return nil
}

// ValidateConflict checks field constraints before persistence.
func ValidateConflict(c Conflict) error {
	if c.VillainID == uuid.Nil {
		return Invalidf("villain_id is required")
	}
	if c.InitiativeID == uuid.Nil {
		return Invalidf("initiative_id is required")
	}
	switch c.Status {
	case ConflictActive, ConflictResolved:
	default:
		return Invalidf("unknown conflict status %q", c.Status)
	}
	return nil
}
