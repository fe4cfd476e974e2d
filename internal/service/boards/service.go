// Package boards assembles read-only board snapshots: entities joined with
// their ordering rows, grouped into columns.
//
// Snapshots are pure reads and are requested in bursts when a board view
// opens, so concurrent loads of the same board share one execution via
// singleflight.
package boards

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/storage"
)

// Card is one entity's appearance on a board.
type Card struct {
	EntityType model.EntityType `json:"entity_type"`
	EntityID   uuid.UUID        `json:"entity_id"`
	Identifier string           `json:"identifier"`
	Title      string           `json:"title"`
	Status     model.Status     `json:"status"`
	Position   string           `json:"position"`
}

// Column is one board column with its cards in list order.
type Column struct {
	Status model.Status `json:"status"`
	Cards  []Card       `json:"cards"`
}

// StatusBoard is the full status-column snapshot for one entity type.
type StatusBoard struct {
	EntityType model.EntityType `json:"entity_type"`
	Columns    []Column         `json:"columns"`
}

// GroupBoard is the ordered member list of one group.
type GroupBoard struct {
	Group model.Group `json:"group"`
	Cards []Card      `json:"cards"`
}

// Service builds board snapshots.
type Service struct {
	db     *storage.DB
	logger *slog.Logger
	group  singleflight.Group
}

// New creates a board Service.
func New(db *storage.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// boardStatuses fixes the column order of every status board.
var boardStatuses = []model.Status{
	model.StatusBacklog,
	model.StatusToDo,
	model.StatusInProgress,
	model.StatusBlocked,
	model.StatusDone,
}

// Status returns the status board for an entity type: one column per
// workflow status, cards in fractional-index order. Concurrent calls for
// the same workspace and entity type share one load.
func (s *Service) Status(ctx context.Context, workspaceID uuid.UUID, entityType model.EntityType) (StatusBoard, error) {
	if entityType != model.EntityInitiative && entityType != model.EntityTask {
		return StatusBoard{}, model.Invalidf("boards: no status board for entity type %q", entityType)
	}

	// The load runs once on behalf of every coalesced caller, so it must
	// not die with whichever request happened to lead.
	key := fmt.Sprintf("status/%s/%s", workspaceID, entityType)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.loadStatus(context.WithoutCancel(ctx), workspaceID, entityType)
	})
	if err != nil {
		return StatusBoard{}, err
	}
	return v.(StatusBoard), nil
}

// Group returns the ordered member snapshot of one group. Concurrent calls
// for the same group share one load.
func (s *Service) Group(ctx context.Context, workspaceID, groupID uuid.UUID) (GroupBoard, error) {
	key := fmt.Sprintf("group/%s/%s", workspaceID, groupID)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.loadGroup(context.WithoutCancel(ctx), workspaceID, groupID)
	})
	if err != nil {
		return GroupBoard{}, err
	}
	return v.(GroupBoard), nil
}

func (s *Service) loadStatus(ctx context.Context, workspaceID uuid.UUID, entityType model.EntityType) (StatusBoard, error) {
	rows, err := s.db.ListOrderings(ctx, workspaceID, model.ContextStatusList, nil, entityType)
	if err != nil {
		return StatusBoard{}, err
	}

	cards, err := s.resolveCards(ctx, workspaceID, entityType, rows)
	if err != nil {
		return StatusBoard{}, err
	}

	byStatus := make(map[model.Status][]Card, len(boardStatuses))
	for _, c := range cards {
		byStatus[c.Status] = append(byStatus[c.Status], c)
	}

	board := StatusBoard{EntityType: entityType, Columns: make([]Column, len(boardStatuses))}
	for i, st := range boardStatuses {
		col := Column{Status: st, Cards: byStatus[st]}
		if col.Cards == nil {
			col.Cards = []Card{}
		}
		board.Columns[i] = col
	}
	return board, nil
}

func (s *Service) loadGroup(ctx context.Context, workspaceID, groupID uuid.UUID) (GroupBoard, error) {
	g, err := s.db.GetGroupByID(ctx, workspaceID, groupID)
	if err != nil {
		return GroupBoard{}, err
	}
	entityType, err := model.EntityTypeForGroupKind(g.Kind)
	if err != nil {
		return GroupBoard{}, fmt.Errorf("boards: %w", err)
	}

	rows, err := s.db.ListOrderings(ctx, workspaceID, model.ContextGroup, &groupID, entityType)
	if err != nil {
		return GroupBoard{}, err
	}

	cards, err := s.resolveCards(ctx, workspaceID, entityType, rows)
	if err != nil {
		return GroupBoard{}, err
	}
	return GroupBoard{Group: g, Cards: cards}, nil
}

// resolveCards joins ordering rows with their entities, preserving list
// order and dropping rows whose entity no longer resolves in the workspace.
func (s *Service) resolveCards(ctx context.Context, workspaceID uuid.UUID, entityType model.EntityType, rows []model.Ordering) ([]Card, error) {
	if len(rows) == 0 {
		return []Card{}, nil
	}

	ids := make([]uuid.UUID, len(rows))
	for i, o := range rows {
		ids[i] = o.EntityID
	}

	byID := make(map[uuid.UUID]Card)
	switch entityType {
	case model.EntityInitiative:
		ins, err := s.db.ListInitiativesByIDs(ctx, workspaceID, ids)
		if err != nil {
			return nil, err
		}
		for _, in := range ins {
			byID[in.ID] = Card{
				EntityType: entityType,
				EntityID:   in.ID,
				Identifier: in.Identifier,
				Title:      in.Title,
				Status:     in.Status,
			}
		}
	case model.EntityTask:
		ts, err := s.db.ListTasksByIDs(ctx, workspaceID, ids)
		if err != nil {
			return nil, err
		}
		for _, t := range ts {
			byID[t.ID] = Card{
				EntityType: entityType,
				EntityID:   t.ID,
				Identifier: t.Identifier,
				Title:      t.Title,
				Status:     t.Status,
			}
		}
	default:
		return nil, fmt.Errorf("boards: unsupported entity type %q", entityType)
	}

	cards := make([]Card, 0, len(rows))
	for _, o := range rows {
		if c, ok := byID[o.EntityID]; ok {
			c.Position = o.Position
			cards = append(cards, c)
		}
	}
	return cards, nil
}
