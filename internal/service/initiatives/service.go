// Package initiatives provides the shared business logic for initiative
// operations.
//
// Both the HTTP API and MCP server delegate to this service, keeping
// behavior (validation, ordering placement, embedding generation,
// transactional writes) consistent across all interfaces.
package initiatives

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/service/embedding"
	"github.com/heroarc/heroarc/internal/storage"
)

// Service encapsulates initiative business logic shared by HTTP and MCP
// handlers.
type Service struct {
	db       *storage.DB
	ordering *ordering.Service
	embedder embedding.Provider
	logger   *slog.Logger
}

// New creates an initiative Service.
func New(db *storage.DB, ord *ordering.Service, embedder embedding.Provider, logger *slog.Logger) *Service {
	return &Service{
		db:       db,
		ordering: ord,
		embedder: embedder,
		logger:   logger,
	}
}

func statusBoard(workspaceID uuid.UUID) ordering.Scope {
	return ordering.Scope{ContextType: model.ContextStatusList, WorkspaceID: workspaceID}
}

// Create inserts an initiative and places it on the status board in one
// transaction. After/Before anchor the new card; both nil appends at the
// tail. The workspace identifier (INIT-n) is assigned by the database.
func (s *Service) Create(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateInitiativeRequest) (model.Initiative, error) {
	in := model.Initiative{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if in.Status == "" {
		in.Status = model.StatusBacklog
	}
	if err := model.ValidateInitiative(in); err != nil {
		return model.Initiative{}, fmt.Errorf("initiatives: %w", err)
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return model.Initiative{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created, err := storage.InsertInitiativeTx(ctx, tx, in)
	if err != nil {
		return model.Initiative{}, err
	}

	item := ordering.Item{
		Type:        model.EntityInitiative,
		ID:          created.ID,
		UserID:      userID,
		WorkspaceID: &workspaceID,
	}
	if _, err := s.ordering.AddItem(ctx, tx, statusBoard(workspaceID), item, req.After, req.Before); err != nil {
		return model.Initiative{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Initiative{}, fmt.Errorf("initiatives: commit create: %w", err)
	}

	s.updateEmbedding(ctx, created)
	return created, nil
}

// Get returns a single initiative.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (model.Initiative, error) {
	return s.db.GetInitiativeByID(ctx, workspaceID, id)
}

// List returns initiatives, optionally filtered by status, newest first.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, status *model.Status, limit, offset int) ([]model.Initiative, error) {
	if status != nil && !model.ValidStatus(*status) {
		return nil, model.Invalidf("initiatives: unknown status %q", *status)
	}
	return s.db.ListInitiatives(ctx, workspaceID, status, limit, offset)
}

// Update applies a partial update to title and description. Status changes
// go through Move, which keeps the board position consistent.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, req model.UpdateInitiativeRequest) (model.Initiative, error) {
	if req.Title != nil {
		if *req.Title == "" {
			return model.Initiative{}, model.Invalidf("initiatives: title is required")
		}
		if len(*req.Title) > model.MaxTitleLen {
			return model.Initiative{}, model.Invalidf("initiatives: title exceeds maximum length of %d characters", model.MaxTitleLen)
		}
	}
	if req.Description != nil && len(*req.Description) > model.MaxDescriptionLen {
		return model.Initiative{}, model.Invalidf("initiatives: description exceeds maximum length of %d bytes", model.MaxDescriptionLen)
	}

	updated, err := storage.UpdateInitiativeTx(ctx, s.db.Pool(), workspaceID, id, req.Title, req.Description, nil)
	if err != nil {
		return model.Initiative{}, err
	}

	if req.Title != nil || req.Description != nil {
		s.updateEmbedding(ctx, updated)
	}
	return updated, nil
}

// Move repositions an initiative on the status board. A status change moves
// the card to another column; After/Before anchor it among that column's
// cards and callers send anchors from the destination column.
func (s *Service) Move(ctx context.Context, workspaceID, id uuid.UUID, req model.MoveRequest) (model.Initiative, error) {
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return model.Initiative{}, model.Invalidf("initiatives: unknown status %q", *req.Status)
	}

	// Concurrent moves that touch overlapping partitions can still hit
	// a transient serialization failure; retry the whole transaction.
	var in model.Initiative
	err := storage.WithRetry(ctx, 3, 10*time.Millisecond, func() error {
		tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		in, err = storage.GetInitiativeTx(ctx, tx, workspaceID, id)
		if err != nil {
			return err
		}

		item := ordering.Item{
			Type:        model.EntityInitiative,
			ID:          in.ID,
			UserID:      in.UserID,
			WorkspaceID: &workspaceID,
		}

		if req.Status != nil && *req.Status != in.Status {
			in, err = storage.UpdateInitiativeTx(ctx, tx, workspaceID, id, nil, nil, req.Status)
			if err != nil {
				return err
			}
			// The status board is one list whose columns are derived from the
			// entity's status, so a column change reuses the cross-list move
			// with identical source and destination scopes.
			if _, err := s.ordering.MoveItemAcrossLists(ctx, tx, statusBoard(workspaceID), statusBoard(workspaceID), item, req.After, req.Before); err != nil {
				return err
			}
		} else if _, err := s.ordering.MoveItem(ctx, tx, statusBoard(workspaceID), item, req.After, req.Before); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("initiatives: commit move: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Initiative{}, err
	}
	return in, nil
}

// Delete removes an initiative and every ordering row it holds (status
// board and any groups) in one transaction. Tasks that referenced it are
// detached by the schema, not deleted.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := storage.DeleteInitiativeTx(ctx, tx, workspaceID, id); err != nil {
		return err
	}

	item := ordering.Item{Type: model.EntityInitiative, ID: id}
	if _, err := s.ordering.DeleteAllForEntity(ctx, tx, item); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("initiatives: commit delete: %w", err)
	}
	return nil
}

// updateEmbedding recomputes the initiative's embedding from its text.
// Failures are logged and swallowed: cards work without vectors, they just
// don't surface in similarity search.
func (s *Service) updateEmbedding(ctx context.Context, in model.Initiative) {
	text := in.Title
	if in.Description != nil {
		text += "\n" + *in.Description
	}
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, embedding.ErrDisabled) {
			s.logger.Warn("initiative embedding failed, continuing without",
				"initiative_id", in.ID, "error", err)
		}
		return
	}
	if err := s.db.UpdateInitiativeEmbedding(ctx, in.WorkspaceID, in.ID, emb); err != nil {
		s.logger.Warn("initiative embedding store failed",
			"initiative_id", in.ID, "error", err)
	}
}
