// Package narrative provides validated CRUD for the story layer: heroes,
// villains, and the conflicts binding villains to initiatives.
package narrative

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/storage"
)

// Service encapsulates narrative business logic.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a narrative Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// CreateHero inserts a new hero persona.
func (s *Service) CreateHero(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateHeroRequest) (model.Hero, error) {
	h := model.Hero{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Name:        req.Name,
		Archetype:   req.Archetype,
		Backstory:   req.Backstory,
	}
	if err := model.ValidateHero(h); err != nil {
		return model.Hero{}, fmt.Errorf("narrative: %w", err)
	}
	return s.db.CreateHero(ctx, h)
}

// GetHero returns a single hero.
func (s *Service) GetHero(ctx context.Context, workspaceID, id uuid.UUID) (model.Hero, error) {
	return s.db.GetHeroByID(ctx, workspaceID, id)
}

// ListHeroes returns all heroes in the workspace.
func (s *Service) ListHeroes(ctx context.Context, workspaceID uuid.UUID) ([]model.Hero, error) {
	return s.db.ListHeroes(ctx, workspaceID)
}

// UpdateHero applies a partial update.
func (s *Service) UpdateHero(ctx context.Context, workspaceID, id uuid.UUID, name, archetype, backstory *string) (model.Hero, error) {
	if name != nil && *name == "" {
		return model.Hero{}, model.Invalidf("narrative: name is required")
	}
	return s.db.UpdateHero(ctx, workspaceID, id, name, archetype, backstory)
}

// DeleteHero removes a hero.
func (s *Service) DeleteHero(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.db.DeleteHero(ctx, workspaceID, id)
}

// CreateVillain inserts a new villain.
func (s *Service) CreateVillain(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateVillainRequest) (model.Villain, error) {
	v := model.Villain{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Name:        req.Name,
		Menace:      req.Menace,
	}
	if err := model.ValidateVillain(v); err != nil {
		return model.Villain{}, fmt.Errorf("narrative: %w", err)
	}
	return s.db.CreateVillain(ctx, v)
}

// GetVillain returns a single villain.
func (s *Service) GetVillain(ctx context.Context, workspaceID, id uuid.UUID) (model.Villain, error) {
	return s.db.GetVillainByID(ctx, workspaceID, id)
}

// ListVillains returns all villains in the workspace.
func (s *Service) ListVillains(ctx context.Context, workspaceID uuid.UUID) ([]model.Villain, error) {
	return s.db.ListVillains(ctx, workspaceID)
}

// UpdateVillain applies a partial update. Marking Defeated true while
// active conflicts remain is allowed; the conflicts keep their own lifecycle.
func (s *Service) UpdateVillain(ctx context.Context, workspaceID, id uuid.UUID, name, menace *string, defeated *bool) (model.Villain, error) {
	if name != nil && *name == "" {
		return model.Villain{}, model.Invalidf("narrative: name is required")
	}
	return s.db.UpdateVillain(ctx, workspaceID, id, name, menace, defeated)
}

// DeleteVillain removes a villain and, via the schema, its conflicts.
func (s *Service) DeleteVillain(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.db.DeleteVillain(ctx, workspaceID, id)
}

// CreateConflict binds a villain to an initiative. Both must exist in the
// workspace.
func (s *Service) CreateConflict(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateConflictRequest) (model.Conflict, error) {
	c := model.Conflict{
		WorkspaceID:  workspaceID,
		UserID:       userID,
		VillainID:    req.VillainID,
		InitiativeID: req.InitiativeID,
		Stakes:       req.Stakes,
		Status:       model.ConflictActive,
	}
	if err := model.ValidateConflict(c); err != nil {
		return model.Conflict{}, fmt.Errorf("narrative: %w", err)
	}

	if _, err := s.db.GetVillainByID(ctx, workspaceID, req.VillainID); err != nil {
		return model.Conflict{}, fmt.Errorf("narrative: villain %s: %w", req.VillainID, err)
	}
	if _, err := s.db.GetInitiativeByID(ctx, workspaceID, req.InitiativeID); err != nil {
		return model.Conflict{}, fmt.Errorf("narrative: initiative %s: %w", req.InitiativeID, err)
	}

	return s.db.CreateConflict(ctx, c)
}

// GetConflict returns a single conflict.
func (s *Service) GetConflict(ctx context.Context, workspaceID, id uuid.UUID) (model.Conflict, error) {
	return s.db.GetConflictByID(ctx, workspaceID, id)
}

// ListConflicts returns conflicts, optionally filtered by status.
func (s *Service) ListConflicts(ctx context.Context, workspaceID uuid.UUID, status *model.ConflictStatus) ([]model.Conflict, error) {
	if status != nil {
		switch *status {
		case model.ConflictActive, model.ConflictResolved:
		default:
			return nil, model.Invalidf("narrative: unknown conflict status %q", *status)
		}
	}
	return s.db.ListConflicts(ctx, workspaceID, status)
}

// UpdateConflict applies a partial update to stakes and status.
func (s *Service) UpdateConflict(ctx context.Context, workspaceID, id uuid.UUID, stakes *string, status *model.ConflictStatus) (model.Conflict, error) {
	if status != nil {
		switch *status {
		case model.ConflictActive, model.ConflictResolved:
		default:
			return model.Conflict{}, model.Invalidf("narrative: unknown conflict status %q", *status)
		}
	}
	return s.db.UpdateConflict(ctx, workspaceID, id, stakes, status)
}

// DeleteConflict removes a conflict.
func (s *Service) DeleteConflict(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.db.DeleteConflict(ctx, workspaceID, id)
}
