package model

import (
	"time"

	"github.com/google/uuid"
)

// Pillar is one named leg of a strategy.
type Pillar struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Strategy is the strategic-planning aggregate: a vision, a time horizon,
// and the pillars the user's initiatives should ladder up to.
type Strategy struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	UserID      uuid.UUID `json:"user_id"`
	Vision      string    `json:"vision"`
	HorizonDays int       `json:"horizon_days"`
	Pillars     []Pillar  `json:"pillars"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MaxPillars caps the number of pillars per strategy.
const MaxPillars = 12

// ValidateStrategy checks field constraints before persistence.
func ValidateStrategy(s Strategy) error {
	if s.Vision == "" {
		return Invalidf("vision is required")
	}
	if len(s.Vision) > MaxDescriptionLen {
		return Invalidf("vision exceeds maximum length of %d bytes", MaxDescriptionLen)
	}
	if s.HorizonDays <= 0 {
		return Invalidf("horizon_days must be positive")
	}
	if len(s.Pillars) > MaxPillars {
		return Invalidf("at most %d pillars allowed", MaxPillars)
	}
	for i, p := range s.Pillars {
		if p.Name == "" {
			return Invalidf("pillars[%d].name is required", i)
		}
		if len(p.Name) > MaxTitleLen {
			return Invalidf("pillars[%d].name exceeds maximum length of %d characters", i, MaxTitleLen)
		}
	}
	return nil
}
