// Package groups provides business logic for user-curated groups and
// their membership.
//
// A group owns an ordering context: membership and member order are both
// expressed as ordering rows, so adding, removing, and reordering members
// are thin wrappers over the ordering service.
package groups

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/storage"
)

// ErrKindMismatch is returned when an entity's type does not match the
// group's kind (e.g. adding a task to an initiative group).
var ErrKindMismatch = errors.New("groups: entity type does not match group kind")

// Service encapsulates group business logic.
type Service struct {
	db       *storage.DB
	ordering *ordering.Service
	logger   *slog.Logger
}

// New creates a group Service.
func New(db *storage.DB, ord *ordering.Service, logger *slog.Logger) *Service {
	return &Service{db: db, ordering: ord, logger: logger}
}

func groupScope(workspaceID, id uuid.UUID) ordering.Scope {
	return ordering.Scope{ContextType: model.ContextGroup, ContextID: &id, WorkspaceID: workspaceID}
}

// Create inserts a new empty group.
func (s *Service) Create(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateGroupRequest) (model.Group, error) {
	g := model.Group{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Name:        req.Name,
		Kind:        req.Kind,
	}
	if err := model.ValidateGroup(g); err != nil {
		return model.Group{}, fmt.Errorf("groups: %w", err)
	}
	return s.db.CreateGroup(ctx, g)
}

// Get returns a single group.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (model.Group, error) {
	return s.db.GetGroupByID(ctx, workspaceID, id)
}

// List returns all groups in the workspace.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Group, error) {
	return s.db.ListGroups(ctx, workspaceID)
}

// Update renames a group. Kind is immutable: the group's ordering rows
// already carry its entity type.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, req model.UpdateGroupRequest) (model.Group, error) {
	if req.Name == nil {
		return s.db.GetGroupByID(ctx, workspaceID, id)
	}
	if *req.Name == "" {
		return model.Group{}, model.Invalidf("groups: name is required")
	}
	if len(*req.Name) > model.MaxTitleLen {
		return model.Group{}, model.Invalidf("groups: name exceeds maximum length of %d characters", model.MaxTitleLen)
	}
	return s.db.UpdateGroup(ctx, workspaceID, id, *req.Name)
}

// Delete removes a group and all the ordering rows in its context in one
// transaction. Member entities are untouched; only their placement in
// this group disappears.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	g, err := s.db.GetGroupByID(ctx, workspaceID, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := storage.DeleteGroupTx(ctx, tx, workspaceID, g.ID); err != nil {
		return err
	}
	if _, err := storage.DeleteOrderingsForContextTx(ctx, tx, model.ContextGroup, &g.ID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("groups: commit delete: %w", err)
	}
	return nil
}

// AddMember places an entity into the group, anchored by After/Before.
// The entity must exist in the workspace and its type must match the
// group's kind. Adding an entity that is already a member returns
// ordering.ErrAlreadyOrdered.
func (s *Service) AddMember(ctx context.Context, workspaceID, groupID uuid.UUID, entityType model.EntityType, entityID uuid.UUID, after, before *uuid.UUID) error {
	g, err := s.db.GetGroupByID(ctx, workspaceID, groupID)
	if err != nil {
		return err
	}
	item, err := s.memberItem(ctx, workspaceID, g, entityType, entityID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := s.ordering.AddItem(ctx, tx, groupScope(workspaceID, g.ID), item, after, before); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("groups: commit add member: %w", err)
	}
	return nil
}

// MoveMember repositions an existing member within the group.
func (s *Service) MoveMember(ctx context.Context, workspaceID, groupID uuid.UUID, entityType model.EntityType, entityID uuid.UUID, after, before *uuid.UUID) error {
	g, err := s.db.GetGroupByID(ctx, workspaceID, groupID)
	if err != nil {
		return err
	}
	item, err := s.memberItem(ctx, workspaceID, g, entityType, entityID)
	if err != nil {
		return err
	}

	// Concurrent moves that touch overlapping partitions can still hit
	// a transient serialization failure; retry the whole transaction.
	return storage.WithRetry(ctx, 3, 10*time.Millisecond, func() error {
		tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := s.ordering.MoveItem(ctx, tx, groupScope(workspaceID, g.ID), item, after, before); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("groups: commit move member: %w", err)
		}
		return nil
	})
}

// RemoveMember removes an entity from the group. Removing a non-member is
// a no-op, reported via the returned bool.
func (s *Service) RemoveMember(ctx context.Context, workspaceID, groupID uuid.UUID, entityType model.EntityType, entityID uuid.UUID) (bool, error) {
	g, err := s.db.GetGroupByID(ctx, workspaceID, groupID)
	if err != nil {
		return false, err
	}
	et, err := model.EntityTypeForGroupKind(g.Kind)
	if err != nil {
		return false, fmt.Errorf("groups: %w", err)
	}
	if et != entityType {
		return false, ErrKindMismatch
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	removed, err := s.ordering.RemoveItem(ctx, tx, groupScope(workspaceID, g.ID), ordering.Item{Type: et, ID: entityID})
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("groups: commit remove member: %w", err)
	}
	return removed, nil
}

// memberItem resolves the entity behind a membership operation, verifying
// existence in the workspace and kind compatibility.
func (s *Service) memberItem(ctx context.Context, workspaceID uuid.UUID, g model.Group, entityType model.EntityType, entityID uuid.UUID) (ordering.Item, error) {
	et, err := model.EntityTypeForGroupKind(g.Kind)
	if err != nil {
		return ordering.Item{}, fmt.Errorf("groups: %w", err)
	}
	if et != entityType {
		return ordering.Item{}, ErrKindMismatch
	}

	switch et {
	case model.EntityInitiative:
		in, err := s.db.GetInitiativeByID(ctx, workspaceID, entityID)
		if err != nil {
			return ordering.Item{}, err
		}
		return ordering.Item{Type: et, ID: in.ID, UserID: in.UserID, WorkspaceID: &workspaceID}, nil
	case model.EntityTask:
		t, err := s.db.GetTaskByID(ctx, workspaceID, entityID)
		if err != nil {
			return ordering.Item{}, err
		}
		return ordering.Item{Type: et, ID: t.ID, UserID: t.UserID, WorkspaceID: &workspaceID}, nil
	default:
		return ordering.Item{}, ErrKindMismatch
	}
}
