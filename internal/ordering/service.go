// Package ordering maintains drag-and-drop list positions across
// heterogeneous contexts: status boards, groups, and task checklists.
//
// Each ordered entity holds one row per context it appears in; the row's
// position string (a fractional-indexing key from internal/rank) defines
// list order by plain lexicographic comparison. Every operation runs
// inside a caller-owned transaction — the service never begins, commits,
// or rolls back. Callers pass anchor entity ids (after/before), never raw
// position keys.
package ordering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/rank"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/telemetry"
)

var (
	// ErrEntityNotFound is returned when the moved item or an after/before
	// anchor has no ordering row in the specified context.
	ErrEntityNotFound = errors.New("ordering: entity not ordered in context")

	// ErrAlreadyOrdered is returned when AddItem hits an existing row for
	// the same entity in the same context.
	ErrAlreadyOrdered = errors.New("ordering: entity already ordered in context")
)

// Scope identifies one ordered list partition. ContextID is nil for
// STATUS_LIST scopes, which have no instance id; WorkspaceID is what keeps
// one tenant's status list apart from another's in that shared partition,
// so it scopes every anchor lookup, neighbor scan, and advisory lock.
type Scope struct {
	ContextType model.ContextType
	ContextID   *uuid.UUID
	WorkspaceID uuid.UUID
}

func (s Scope) String() string {
	if s.ContextID == nil {
		return string(s.ContextType)
	}
	return string(s.ContextType) + "/" + s.ContextID.String()
}

// Item is the ordering service's view of an orderable entity: its closed
// type tag, id, and the tenant scope copied onto the row.
type Item struct {
	Type        model.EntityType
	ID          uuid.UUID
	UserID      uuid.UUID
	WorkspaceID *uuid.UUID
}

// ItemOf adapts a domain struct to an Item. It is the single place domain
// types map onto the closed EntityType set.
func ItemOf(v any) (Item, error) {
	et, err := model.EntityTypeOf(v)
	if err != nil {
		return Item{}, fmt.Errorf("ordering: %w", err)
	}
	switch x := v.(type) {
	case model.Initiative:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	case *model.Initiative:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	case model.Task:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	case *model.Task:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	case model.ChecklistItem:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	case *model.ChecklistItem:
		return Item{Type: et, ID: x.ID, UserID: x.UserID, WorkspaceID: &x.WorkspaceID}, nil
	default:
		return Item{}, fmt.Errorf("ordering: %T is not an orderable entity", v)
	}
}

// Service computes and persists fractional position keys for Ordering rows.
type Service struct {
	logger *slog.Logger

	addDuration  metric.Float64Histogram
	moveDuration metric.Float64Histogram
}

// New creates an ordering Service.
func New(logger *slog.Logger) *Service {
	meter := telemetry.Meter("heroarc/ordering")
	addDur, _ := meter.Float64Histogram("heroarc.ordering.add.duration",
		metric.WithDescription("Time to insert an ordering row (ms)"),
		metric.WithUnit("ms"),
	)
	moveDur, _ := meter.Float64Histogram("heroarc.ordering.move.duration",
		metric.WithDescription("Time to move an ordering row (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		logger:       logger,
		addDuration:  addDur,
		moveDuration: moveDur,
	}
}

// AddItem inserts item into the scope's list. With an after or before
// anchor the new position lands directly next to that anchor; with neither,
// the item appends at the tail (or takes the initial key in an empty list).
// Returns ErrEntityNotFound when an anchor has no row in the scope and
// ErrAlreadyOrdered when the item already has one.
func (s *Service) AddItem(ctx context.Context, tx pgx.Tx, scope Scope, item Item, after, before *uuid.UUID) (model.Ordering, error) {
	start := time.Now()
	defer func() {
		s.addDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("context_type", string(scope.ContextType))))
	}()

	if err := storage.LockOrderingContextTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID); err != nil {
		return model.Ordering{}, fmt.Errorf("ordering: add item: %w", err)
	}

	pos, err := s.resolvePosition(ctx, tx, scope, item.Type, after, before, nil)
	if err != nil {
		return model.Ordering{}, err
	}

	o, err := storage.InsertOrderingTx(ctx, tx, model.Ordering{
		UserID:      item.UserID,
		WorkspaceID: item.WorkspaceID,
		ContextType: scope.ContextType,
		ContextID:   scope.ContextID,
		EntityType:  item.Type,
		EntityID:    item.ID,
		Position:    pos,
	})
	if err != nil {
		if storage.IsUniqueViolation(err, "") {
			return model.Ordering{}, fmt.Errorf("ordering: add %s %s to %s: %w", item.Type, item.ID, scope, ErrAlreadyOrdered)
		}
		return model.Ordering{}, fmt.Errorf("ordering: add item: %w", err)
	}
	return o, nil
}

// MoveItem repositions an already-ordered item within the same scope. The
// item itself is excluded when resolving anchors, so anchoring on yourself
// reports ErrEntityNotFound. With no anchors the item moves to the tail.
func (s *Service) MoveItem(ctx context.Context, tx pgx.Tx, scope Scope, item Item, after, before *uuid.UUID) (model.Ordering, error) {
	start := time.Now()
	defer func() {
		s.moveDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("context_type", string(scope.ContextType))))
	}()

	if err := storage.LockOrderingContextTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID); err != nil {
		return model.Ordering{}, fmt.Errorf("ordering: move item: %w", err)
	}

	// The item must already be ordered here.
	if _, err := storage.GetOrderingTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, item.Type, item.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Ordering{}, fmt.Errorf("ordering: move %s %s in %s: %w", item.Type, item.ID, scope, ErrEntityNotFound)
		}
		return model.Ordering{}, fmt.Errorf("ordering: move item: %w", err)
	}

	pos, err := s.resolvePosition(ctx, tx, scope, item.Type, after, before, &item.ID)
	if err != nil {
		return model.Ordering{}, err
	}

	o, err := storage.UpdateOrderingPositionTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, item.Type, item.ID, pos)
	if err != nil {
		return model.Ordering{}, fmt.Errorf("ordering: move item: %w", err)
	}
	return o, nil
}

// MoveItemAcrossLists detaches item from src and attaches it to dst with a
// position computed against the destination anchors, as one row update
// inside the caller's transaction. src and dst may be equal (a status
// change inside STATUS_LIST is exactly this). Returns ErrEntityNotFound
// when the item has no row in src or an anchor has none in dst.
func (s *Service) MoveItemAcrossLists(ctx context.Context, tx pgx.Tx, src, dst Scope, item Item, after, before *uuid.UUID) (model.Ordering, error) {
	start := time.Now()
	defer func() {
		s.moveDuration.Record(ctx, float64(time.Since(start).Milliseconds()),
			metric.WithAttributes(attribute.String("context_type", string(dst.ContextType))))
	}()

	// Lock both partitions in a stable order so two cross-moves between the
	// same pair of lists cannot deadlock. Advisory locks are reentrant
	// within one transaction, so src == dst locks once.
	first, second := src, dst
	if second.String() < first.String() {
		first, second = second, first
	}
	if err := storage.LockOrderingContextTx(ctx, tx, first.WorkspaceID, first.ContextType, first.ContextID); err != nil {
		return model.Ordering{}, fmt.Errorf("ordering: move across lists: %w", err)
	}
	if err := storage.LockOrderingContextTx(ctx, tx, second.WorkspaceID, second.ContextType, second.ContextID); err != nil {
		return model.Ordering{}, fmt.Errorf("ordering: move across lists: %w", err)
	}

	if _, err := storage.GetOrderingTx(ctx, tx, src.WorkspaceID, src.ContextType, src.ContextID, item.Type, item.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.Ordering{}, fmt.Errorf("ordering: move %s %s out of %s: %w", item.Type, item.ID, src, ErrEntityNotFound)
		}
		return model.Ordering{}, fmt.Errorf("ordering: move across lists: %w", err)
	}

	pos, err := s.resolvePosition(ctx, tx, dst, item.Type, after, before, &item.ID)
	if err != nil {
		return model.Ordering{}, err
	}

	o, err := storage.ReassignOrderingContextTx(ctx, tx, src.WorkspaceID,
		src.ContextType, src.ContextID, dst.ContextType, dst.ContextID,
		item.Type, item.ID, pos,
	)
	if err != nil {
		if storage.IsUniqueViolation(err, "") {
			return model.Ordering{}, fmt.Errorf("ordering: move %s %s to %s: %w", item.Type, item.ID, dst, ErrAlreadyOrdered)
		}
		return model.Ordering{}, fmt.Errorf("ordering: move across lists: %w", err)
	}
	return o, nil
}

// RemoveItem deletes the item's single ordering row in scope. Reports
// whether a row existed; removing an absent row is not an error.
func (s *Service) RemoveItem(ctx context.Context, tx pgx.Tx, scope Scope, item Item) (bool, error) {
	deleted, err := storage.DeleteOrderingTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, item.Type, item.ID)
	if err != nil {
		return false, fmt.Errorf("ordering: remove item: %w", err)
	}
	return deleted, nil
}

// DeleteAllForEntity deletes every ordering row the item holds across all
// contexts and returns the count. Called when the owning entity itself is
// deleted.
func (s *Service) DeleteAllForEntity(ctx context.Context, tx pgx.Tx, item Item) (int64, error) {
	n, err := storage.DeleteAllOrderingsForEntityTx(ctx, tx, item.Type, item.ID)
	if err != nil {
		return 0, fmt.Errorf("ordering: delete all for entity: %w", err)
	}
	return n, nil
}

// resolvePosition turns after/before anchors into a fresh position key for
// one scope. exclude removes the moved item itself from anchor and
// neighbor lookups. Anchor resolution:
//
//	after only   — directly after the anchor, before whatever follows it
//	before only  — directly before the anchor, after whatever precedes it
//	both         — strictly between the two anchors
//	neither      — after the current tail (initial key in an empty list)
func (s *Service) resolvePosition(ctx context.Context, tx pgx.Tx, scope Scope, et model.EntityType, after, before, exclude *uuid.UUID) (string, error) {
	var prev, next string

	switch {
	case after != nil && before != nil:
		var err error
		if prev, err = s.anchorPosition(ctx, tx, scope, et, *after, exclude); err != nil {
			return "", err
		}
		if next, err = s.anchorPosition(ctx, tx, scope, et, *before, exclude); err != nil {
			return "", err
		}

	case after != nil:
		var err error
		if prev, err = s.anchorPosition(ctx, tx, scope, et, *after, exclude); err != nil {
			return "", err
		}
		following, ok, err := storage.NextPositionAfterTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, et, prev, exclude)
		if err != nil {
			return "", fmt.Errorf("ordering: resolve position: %w", err)
		}
		if ok {
			next = following
		}

	case before != nil:
		var err error
		if next, err = s.anchorPosition(ctx, tx, scope, et, *before, exclude); err != nil {
			return "", err
		}
		preceding, ok, err := storage.PrevPositionBeforeTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, et, next, exclude)
		if err != nil {
			return "", fmt.Errorf("ordering: resolve position: %w", err)
		}
		if ok {
			prev = preceding
		}

	default:
		tail, ok, err := storage.MaxPositionTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, et, exclude)
		if err != nil {
			return "", fmt.Errorf("ordering: resolve position: %w", err)
		}
		if !ok {
			return rank.Initial(), nil
		}
		prev = tail
	}

	pos, err := rank.Between(prev, next)
	if err != nil {
		return "", fmt.Errorf("ordering: compute position in %s: %w", scope, err)
	}
	return pos, nil
}

// anchorPosition looks up an anchor's position key, translating a missing
// row into ErrEntityNotFound.
func (s *Service) anchorPosition(ctx context.Context, tx pgx.Tx, scope Scope, et model.EntityType, anchor uuid.UUID, exclude *uuid.UUID) (string, error) {
	pos, err := storage.PositionOfTx(ctx, tx, scope.WorkspaceID, scope.ContextType, scope.ContextID, et, anchor, exclude)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("ordering: anchor %s %s in %s: %w", et, anchor, scope, ErrEntityNotFound)
		}
		return "", fmt.Errorf("ordering: resolve anchor: %w", err)
	}
	return pos, nil
}
