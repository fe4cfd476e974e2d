// Package tasks provides the shared business logic for task and checklist
// operations.
//
// Both the HTTP API and MCP server delegate to this service. Tasks live on
// the task status board; each task's checklist items are ordered in the
// task's own checklist context.
package tasks

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

// Service encapsulates task business logic shared by HTTP and MCP handlers.
type Service struct {
	db       *storage.DB
	ordering *ordering.Service
	embedder embedding.Provider
	logger   *slog.Logger
}

// New creates a task Service.
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

func checklistScope(workspaceID, taskID uuid.UUID) ordering.Scope {
	return ordering.Scope{ContextType: model.ContextTaskChecklist, ContextID: &taskID, WorkspaceID: workspaceID}
}

// Create inserts a task and places it on the status board in one
// transaction. A referenced initiative must exist in the same workspace.
func (s *Service) Create(ctx context.Context, workspaceID, userID uuid.UUID, req model.CreateTaskRequest) (model.Task, error) {
	t := model.Task{
		WorkspaceID:  workspaceID,
		UserID:       userID,
		InitiativeID: req.InitiativeID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
	}
	if t.Status == "" {
		t.Status = model.StatusBacklog
	}
	if err := model.ValidateTask(t); err != nil {
		return model.Task{}, fmt.Errorf("tasks: %w", err)
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if req.InitiativeID != nil {
		if _, err := storage.GetInitiativeTx(ctx, tx, workspaceID, *req.InitiativeID); err != nil {
			return model.Task{}, fmt.Errorf("tasks: initiative %s: %w", *req.InitiativeID, err)
		}
	}

	created, err := storage.InsertTaskTx(ctx, tx, t)
	if err != nil {
		return model.Task{}, err
	}

	item := ordering.Item{
		Type:        model.EntityTask,
		ID:          created.ID,
		UserID:      userID,
		WorkspaceID: &workspaceID,
	}
	if _, err := s.ordering.AddItem(ctx, tx, statusBoard(workspaceID), item, req.After, req.Before); err != nil {
		return model.Task{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Task{}, fmt.Errorf("tasks: commit create: %w", err)
	}

	s.updateEmbedding(ctx, created)
	return created, nil
}

// Get returns a single task.
func (s *Service) Get(ctx context.Context, workspaceID, id uuid.UUID) (model.Task, error) {
	return s.db.GetTaskByID(ctx, workspaceID, id)
}

// List returns tasks, optionally filtered by status and initiative,
// newest first.
func (s *Service) List(ctx context.Context, workspaceID uuid.UUID, status *model.Status, initiativeID *uuid.UUID, limit, offset int) ([]model.Task, error) {
	if status != nil && !model.ValidStatus(*status) {
		return nil, model.Invalidf("tasks: unknown status %q", *status)
	}
	return s.db.ListTasks(ctx, workspaceID, status, initiativeID, limit, offset)
}

// Update applies a partial update to title, description, and initiative
// attachment. Passing InitiativeID detaches-and-reattaches; status changes
// go through Move.
func (s *Service) Update(ctx context.Context, workspaceID, id uuid.UUID, req model.UpdateTaskRequest, detachInitiative bool) (model.Task, error) {
	if req.Title != nil {
		if *req.Title == "" {
			return model.Task{}, model.Invalidf("tasks: title is required")
		}
		if len(*req.Title) > model.MaxTitleLen {
			return model.Task{}, model.Invalidf("tasks: title exceeds maximum length of %d characters", model.MaxTitleLen)
		}
	}
	if req.Description != nil && len(*req.Description) > model.MaxDescriptionLen {
		return model.Task{}, model.Invalidf("tasks: description exceeds maximum length of %d bytes", model.MaxDescriptionLen)
	}

	setInitiative := req.InitiativeID != nil || detachInitiative

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if req.InitiativeID != nil {
		if _, err := storage.GetInitiativeTx(ctx, tx, workspaceID, *req.InitiativeID); err != nil {
			return model.Task{}, fmt.Errorf("tasks: initiative %s: %w", *req.InitiativeID, err)
		}
	}

	updated, err := storage.UpdateTaskTx(ctx, tx, workspaceID, id, req.Title, req.Description, nil, req.InitiativeID, setInitiative)
	if err != nil {
		return model.Task{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Task{}, fmt.Errorf("tasks: commit update: %w", err)
	}

	if req.Title != nil || req.Description != nil {
		s.updateEmbedding(ctx, updated)
	}
	return updated, nil
}

// Move repositions a task on the status board, optionally changing its
// status column.
func (s *Service) Move(ctx context.Context, workspaceID, id uuid.UUID, req model.MoveRequest) (model.Task, error) {
	if req.Status != nil && !model.ValidStatus(*req.Status) {
		return model.Task{}, model.Invalidf("tasks: unknown status %q", *req.Status)
	}

	// Concurrent moves that touch overlapping partitions can still hit
	// a transient serialization failure; retry the whole transaction.
	var t model.Task
	err := storage.WithRetry(ctx, 3, 10*time.Millisecond, func() error {
		tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		t, err = storage.GetTaskTx(ctx, tx, workspaceID, id)
		if err != nil {
			return err
		}

		item := ordering.Item{
			Type:        model.EntityTask,
			ID:          t.ID,
			UserID:      t.UserID,
			WorkspaceID: &workspaceID,
		}

		if req.Status != nil && *req.Status != t.Status {
			t, err = storage.UpdateTaskTx(ctx, tx, workspaceID, id, nil, nil, req.Status, nil, false)
			if err != nil {
				return err
			}
			if _, err := s.ordering.MoveItemAcrossLists(ctx, tx, statusBoard(workspaceID), statusBoard(workspaceID), item, req.After, req.Before); err != nil {
				return err
			}
		} else if _, err := s.ordering.MoveItem(ctx, tx, statusBoard(workspaceID), item, req.After, req.Before); err != nil {
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("tasks: commit move: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Delete removes a task, its ordering rows, and every ordering row of its
// checklist items in one transaction. The items themselves cascade with
// the task row.
func (s *Service) Delete(ctx context.Context, workspaceID, id uuid.UUID) error {
	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	itemIDs, err := storage.ListChecklistItemIDsForTaskTx(ctx, tx, workspaceID, id)
	if err != nil {
		return err
	}

	if err := storage.DeleteTaskTx(ctx, tx, workspaceID, id); err != nil {
		return err
	}

	if _, err := s.ordering.DeleteAllForEntity(ctx, tx, ordering.Item{Type: model.EntityTask, ID: id}); err != nil {
		return err
	}
	for _, itemID := range itemIDs {
		if _, err := s.ordering.DeleteAllForEntity(ctx, tx, ordering.Item{Type: model.EntityChecklist, ID: itemID}); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tasks: commit delete: %w", err)
	}
	return nil
}

// AddChecklistItem appends or anchors a new checklist item within the
// task's checklist.
func (s *Service) AddChecklistItem(ctx context.Context, workspaceID, userID, taskID uuid.UUID, req model.CreateChecklistItemRequest) (model.ChecklistItem, error) {
	ci := model.ChecklistItem{
		WorkspaceID: workspaceID,
		UserID:      userID,
		TaskID:      taskID,
		Title:       req.Title,
	}
	if err := model.ValidateChecklistItem(ci); err != nil {
		return model.ChecklistItem{}, fmt.Errorf("tasks: %w", err)
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return model.ChecklistItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := storage.GetTaskTx(ctx, tx, workspaceID, taskID); err != nil {
		return model.ChecklistItem{}, fmt.Errorf("tasks: task %s: %w", taskID, err)
	}

	created, err := storage.InsertChecklistItemTx(ctx, tx, ci)
	if err != nil {
		return model.ChecklistItem{}, err
	}

	item := ordering.Item{
		Type:        model.EntityChecklist,
		ID:          created.ID,
		UserID:      userID,
		WorkspaceID: &workspaceID,
	}
	if _, err := s.ordering.AddItem(ctx, tx, checklistScope(workspaceID, taskID), item, req.After, req.Before); err != nil {
		return model.ChecklistItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.ChecklistItem{}, fmt.Errorf("tasks: commit checklist add: %w", err)
	}
	return created, nil
}

// UpdateChecklistItem applies a partial update to a checklist item.
func (s *Service) UpdateChecklistItem(ctx context.Context, workspaceID, itemID uuid.UUID, req model.UpdateChecklistItemRequest) (model.ChecklistItem, error) {
	if req.Title != nil {
		if *req.Title == "" {
			return model.ChecklistItem{}, model.Invalidf("tasks: title is required")
		}
		if len(*req.Title) > model.MaxTitleLen {
			return model.ChecklistItem{}, model.Invalidf("tasks: title exceeds maximum length of %d characters", model.MaxTitleLen)
		}
	}
	return storage.UpdateChecklistItemTx(ctx, s.db.Pool(), workspaceID, itemID, req.Title, req.Done)
}

// MoveChecklistItem repositions an item within its task's checklist.
func (s *Service) MoveChecklistItem(ctx context.Context, workspaceID, itemID uuid.UUID, after, before *uuid.UUID) (model.ChecklistItem, error) {
	ci, err := s.db.GetChecklistItemByID(ctx, workspaceID, itemID)
	if err != nil {
		return model.ChecklistItem{}, err
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return model.ChecklistItem{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	item := ordering.Item{
		Type:        model.EntityChecklist,
		ID:          ci.ID,
		UserID:      ci.UserID,
		WorkspaceID: &workspaceID,
	}
	if _, err := s.ordering.MoveItem(ctx, tx, checklistScope(workspaceID, ci.TaskID), item, after, before); err != nil {
		return model.ChecklistItem{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.ChecklistItem{}, fmt.Errorf("tasks: commit checklist move: %w", err)
	}
	return ci, nil
}

// DeleteChecklistItem removes an item and its ordering row.
func (s *Service) DeleteChecklistItem(ctx context.Context, workspaceID, itemID uuid.UUID) error {
	ci, err := s.db.GetChecklistItemByID(ctx, workspaceID, itemID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginForWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := storage.DeleteChecklistItemTx(ctx, tx, workspaceID, itemID); err != nil {
		return err
	}
	if _, err := s.ordering.RemoveItem(ctx, tx, checklistScope(workspaceID, ci.TaskID), ordering.Item{Type: model.EntityChecklist, ID: itemID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tasks: commit checklist delete: %w", err)
	}
	return nil
}

// Checklist returns a task's checklist items in board order.
func (s *Service) Checklist(ctx context.Context, workspaceID, taskID uuid.UUID) ([]model.ChecklistItem, error) {
	rows, err := s.db.ListOrderings(ctx, workspaceID, model.ContextTaskChecklist, &taskID, model.EntityChecklist)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.ChecklistItem{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, o := range rows {
		ids[i] = o.EntityID
	}
	items, err := s.db.ListChecklistItemsByIDs(ctx, workspaceID, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.ChecklistItem, len(items))
	for _, ci := range items {
		byID[ci.ID] = ci
	}
	out := make([]model.ChecklistItem, 0, len(rows))
	for _, o := range rows {
		if ci, ok := byID[o.EntityID]; ok {
			out = append(out, ci)
		}
	}
	return out, nil
}

// updateEmbedding recomputes the task's embedding from its text. Failures
// are logged and swallowed.
func (s *Service) updateEmbedding(ctx context.Context, t model.Task) {
	text := t.Title
	if t.Description != nil {
		text += "\n" + *t.Description
	}
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, embedding.ErrDisabled) {
			s.logger.Warn("task embedding failed, continuing without",
				"task_id", t.ID, "error", err)
		}
		return
	}
	if err := s.db.UpdateTaskEmbedding(ctx, t.WorkspaceID, t.ID, emb); err != nil {
		s.logger.Warn("task embedding store failed", "task_id", t.ID, "error", err)
	}
}
