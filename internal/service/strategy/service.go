// Package strategy provides validated CRUD for the strategic-planning
// aggregate (vision, horizon, pillars).
package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/storage"
)

// Service encapsulates strategy business logic.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
}

// New creates a strategy Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create inserts a new strategy.
func (s *Service) Create(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateStrategyRequest) (model.Strategy, error) {
	st := model.Strategy{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Vision:      req.Vision,
		HorizonDays: req.HorizonDays,
		Pillars:     req.Pillars,
	}
	if st.Pillars == nil {
		st.Pillars = []model.Pillar{}
	}
	if err := model.ValidateStrategy(st); err != nil {
		return model.Strategy{}, fmt.Errorf("strategy: %w", err)
	}
	return s.db.CreateStrategy(ctx, st)
}

// Get returns a single strategy.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (model.Strategy, error) {
	return s.db.GetStrategyByID(ctx, workspaceID, id)
}

// List returns all strategies in the workspace.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Strategy, error) {
	return s.db.ListStrategies(ctx, workspaceID)
}

// Update applies a partial update. A non-nil Pillars replaces the whole
// pillar list; changed fields are re-validated against the stored row.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, req model.UpdateStrategyRequest) (model.Strategy, error) {
	current, err := s.db.GetStrategyByID(ctx, workspaceID, id)
	if err != nil {
		return model.Strategy{}, err
	}

	next := current
	if req.Vision != nil {
		next.Vision = *req.Vision
	}
	if req.HorizonDays != nil {
		next.HorizonDays = *req.HorizonDays
	}
	if req.Pillars != nil {
		next.Pillars = req.Pillars
	}
	if err := model.ValidateStrategy(next); err != nil {
		return model.Strategy{}, fmt.Errorf("strategy: %w", err)
	}

	return s.db.UpdateStrategy(ctx, workspaceID, id, req.Vision, req.HorizonDays, req.Pillars)
}

// Delete removes a strategy.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	return s.db.DeleteStrategy(ctx, workspaceID, id)
}
