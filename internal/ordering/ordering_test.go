package ordering_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/rank"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/testutil"
)

var (
	testDB *storage.DB
	svc    *ordering.Service
)

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	svc = ordering.New(testutil.TestLogger())

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

// seedUser creates a fresh workspace and owner for one test.
func seedUser(t *testing.T) model.User {
	t.Helper()
	ctx := context.Background()

	ws, err := testDB.CreateWorkspace(ctx, model.Workspace{
		Name: "Test Workspace",
		Slug: fmt.Sprintf("ws-%s", uuid.NewString()[:8]),
	})
	require.NoError(t, err)

	u, err := testDB.CreateUser(ctx, model.User{
		WorkspaceID: ws.ID,
		Email:       fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		DisplayName: "Tester",
		Role:        model.RoleOwner,
	})
	require.NoError(t, err)
	return u
}

func seedTask(t *testing.T, u model.User, title string) model.Task {
	t.Helper()
	task, err := storage.InsertTaskTx(context.Background(), testDB.Pool(), model.Task{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       title,
		Status:      model.StatusBacklog,
	})
	require.NoError(t, err)
	return task
}

func seedInitiative(t *testing.T, u model.User, title string) model.Initiative {
	t.Helper()
	in, err := storage.InsertInitiativeTx(context.Background(), testDB.Pool(), model.Initiative{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       title,
		Status:      model.StatusBacklog,
	})
	require.NoError(t, err)
	return in
}

func seedGroup(t *testing.T, u model.User, kind model.GroupKind) model.Group {
	t.Helper()
	g, err := testDB.CreateGroup(context.Background(), model.Group{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Name:        "group-" + uuid.NewString()[:8],
		Kind:        kind,
	})
	require.NoError(t, err)
	return g
}

func mustItem(t *testing.T, v any) ordering.Item {
	t.Helper()
	item, err := ordering.ItemOf(v)
	require.NoError(t, err)
	return item
}

// inTx runs fn inside a committed transaction.
func inTx(t *testing.T, fn func(tx pgx.Tx) error) {
	t.Helper()
	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("tx func: %v", err)
	}
	require.NoError(t, tx.Commit(ctx))
}

// entityOrder returns the ids in ids that appear in the scope's workspace
// partition, in list order. Filtering to the test's own entities keeps
// assertions independent of what else the test seeded.
func entityOrder(t *testing.T, scope ordering.Scope, et model.EntityType, ids ...uuid.UUID) []uuid.UUID {
	t.Helper()
	rows, err := testDB.ListOrderings(context.Background(), scope.WorkspaceID, scope.ContextType, scope.ContextID, et)
	require.NoError(t, err)

	mine := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		mine[id] = true
	}
	var out []uuid.UUID
	for _, o := range rows {
		if mine[o.EntityID] {
			out = append(out, o.EntityID)
		}
	}
	return out
}

func statusScope(u model.User) ordering.Scope {
	return ordering.Scope{ContextType: model.ContextStatusList, WorkspaceID: u.WorkspaceID}
}

func groupScope(g model.Group) ordering.Scope {
	id := g.ID
	return ordering.Scope{ContextType: model.ContextGroup, ContextID: &id, WorkspaceID: g.WorkspaceID}
}

func TestAddItemAnchorScenario(t *testing.T) {
	u := seedUser(t)
	a := seedTask(t, u, "task A")
	b := seedTask(t, u, "task B")
	c := seedTask(t, u, "task C")
	scope := statusScope(u)

	var posA, posB, posC string
	inTx(t, func(tx pgx.Tx) error {
		o, err := svc.AddItem(context.Background(), tx, scope, mustItem(t, a), nil, nil)
		if err != nil {
			return err
		}
		posA = o.Position

		o, err = svc.AddItem(context.Background(), tx, scope, mustItem(t, b), &a.ID, nil)
		if err != nil {
			return err
		}
		posB = o.Position

		o, err = svc.AddItem(context.Background(), tx, scope, mustItem(t, c), nil, &b.ID)
		if err != nil {
			return err
		}
		posC = o.Position
		return nil
	})

	assert.Less(t, posA, posB)
	assert.Less(t, posA, posC)
	assert.Less(t, posC, posB)

	order := entityOrder(t, scope, model.EntityTask, a.ID, b.ID, c.ID)
	assert.Equal(t, []uuid.UUID{a.ID, c.ID, b.ID}, order)
}

func TestAddItemAfterInsertsDirectlyAfterAnchor(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)

	first := seedTask(t, u, "first")
	second := seedTask(t, u, "second")
	inserted := seedTask(t, u, "between")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, first), nil, nil); err != nil {
			return err
		}
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, second), nil, nil); err != nil {
			return err
		}
		// after=first must land between first and second, not at the tail.
		_, err := svc.AddItem(ctx, tx, scope, mustItem(t, inserted), &first.ID, nil)
		return err
	})

	order := entityOrder(t, scope, model.EntityTask, first.ID, second.ID, inserted.ID)
	assert.Equal(t, []uuid.UUID{first.ID, inserted.ID, second.ID}, order)
}

func TestAddItemDuplicateFails(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)
	task := seedTask(t, u, "dup")

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.AddItem(context.Background(), tx, scope, mustItem(t, task), nil, nil)
		return err
	})

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = svc.AddItem(ctx, tx, scope, mustItem(t, task), nil, nil)
	require.ErrorIs(t, err, ordering.ErrAlreadyOrdered)
}

func TestAddItemUnknownAnchor(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "anchored")
	ghost := uuid.New()

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = svc.AddItem(ctx, tx, groupScope(g), mustItem(t, task), &ghost, nil)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)
}

func TestMoveItemWithinContext(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindInitiative)
	scope := groupScope(g)

	first := seedInitiative(t, u, "one")
	second := seedInitiative(t, u, "two")
	third := seedInitiative(t, u, "three")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		for _, in := range []model.Initiative{first, second, third} {
			if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, in), nil, nil); err != nil {
				return err
			}
		}
		return nil
	})

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.MoveItem(context.Background(), tx, scope, mustItem(t, third), nil, &first.ID)
		return err
	})

	order := entityOrder(t, scope, model.EntityInitiative, first.ID, second.ID, third.ID)
	assert.Equal(t, []uuid.UUID{third.ID, first.ID, second.ID}, order)
}

func TestMoveItemNoAnchorsMovesToTail(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)

	a := seedTask(t, u, "a")
	b := seedTask(t, u, "b")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, a), nil, nil); err != nil {
			return err
		}
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, b), nil, nil); err != nil {
			return err
		}
		_, err := svc.MoveItem(ctx, tx, scope, mustItem(t, a), nil, nil)
		return err
	})

	order := entityOrder(t, scope, model.EntityTask, a.ID, b.ID)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, order)
}

func TestMoveItemNotOrdered(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "unordered")

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = svc.MoveItem(ctx, tx, groupScope(g), mustItem(t, task), nil, nil)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)
}

func TestMoveItemSelfAnchor(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)
	task := seedTask(t, u, "selfie")

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.AddItem(context.Background(), tx, scope, mustItem(t, task), nil, nil)
		return err
	})

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	// An item is excluded from its own anchor lookup, so anchoring on
	// yourself reports the anchor as missing.
	_, err = svc.MoveItem(ctx, tx, scope, mustItem(t, task), &task.ID, nil)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)
}

func TestMoveItemAcrossListsGroups(t *testing.T) {
	u := seedUser(t)
	g1 := seedGroup(t, u, model.GroupKindTask)
	g2 := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "wanderer")
	resident := seedTask(t, u, "resident")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := svc.AddItem(ctx, tx, groupScope(g1), mustItem(t, task), nil, nil); err != nil {
			return err
		}
		_, err := svc.AddItem(ctx, tx, groupScope(g2), mustItem(t, resident), nil, nil)
		return err
	})

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.MoveItemAcrossLists(context.Background(), tx, groupScope(g1), groupScope(g2), mustItem(t, task), nil, nil)
		return err
	})

	// No row left in the source context.
	src := entityOrder(t, groupScope(g1), model.EntityTask, task.ID)
	assert.Empty(t, src)

	// Exactly one row in the destination, at the tail.
	dst := entityOrder(t, groupScope(g2), model.EntityTask, resident.ID, task.ID)
	assert.Equal(t, []uuid.UUID{resident.ID, task.ID}, dst)

	rows, err := testDB.ListOrderingsForEntity(context.Background(), model.EntityTask, task.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.ContextGroup, rows[0].ContextType)
	require.NotNil(t, rows[0].ContextID)
	assert.Equal(t, g2.ID, *rows[0].ContextID)
}

func TestMoveItemAcrossListsStatusChange(t *testing.T) {
	// A status change repositions within STATUS_LIST: source and
	// destination scopes are equal and the move stays a single row update.
	u := seedUser(t)
	scope := statusScope(u)

	a := seedTask(t, u, "stay")
	b := seedTask(t, u, "shift")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, a), nil, nil); err != nil {
			return err
		}
		if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, b), nil, nil); err != nil {
			return err
		}
		_, err := svc.MoveItemAcrossLists(ctx, tx, scope, scope, mustItem(t, b), nil, &a.ID)
		return err
	})

	order := entityOrder(t, scope, model.EntityTask, a.ID, b.ID)
	assert.Equal(t, []uuid.UUID{b.ID, a.ID}, order)

	rows, err := testDB.ListOrderingsForEntity(context.Background(), model.EntityTask, b.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMoveItemAcrossListsMissingSource(t *testing.T) {
	u := seedUser(t)
	g1 := seedGroup(t, u, model.GroupKindTask)
	g2 := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "nowhere")

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = svc.MoveItemAcrossLists(ctx, tx, groupScope(g1), groupScope(g2), mustItem(t, task), nil, nil)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)
}

func TestRemoveItemIdempotent(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)
	task := seedTask(t, u, "leaver")

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.AddItem(context.Background(), tx, scope, mustItem(t, task), nil, nil)
		return err
	})

	var first, second bool
	inTx(t, func(tx pgx.Tx) error {
		var err error
		first, err = svc.RemoveItem(context.Background(), tx, scope, mustItem(t, task))
		return err
	})
	inTx(t, func(tx pgx.Tx) error {
		var err error
		second, err = svc.RemoveItem(context.Background(), tx, scope, mustItem(t, task))
		return err
	})

	assert.True(t, first)
	assert.False(t, second)
}

func TestDeleteAllForEntity(t *testing.T) {
	u := seedUser(t)
	g1 := seedGroup(t, u, model.GroupKindTask)
	g2 := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "everywhere")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		for _, scope := range []ordering.Scope{statusScope(u), groupScope(g1), groupScope(g2)} {
			if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, task), nil, nil); err != nil {
				return err
			}
		}
		return nil
	})

	var n int64
	inTx(t, func(tx pgx.Tx) error {
		var err error
		n, err = svc.DeleteAllForEntity(context.Background(), tx, mustItem(t, task))
		return err
	})
	assert.EqualValues(t, 3, n)

	rows, err := testDB.ListOrderingsForEntity(context.Background(), model.EntityTask, task.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRollbackUndoesCrossMove(t *testing.T) {
	u := seedUser(t)
	g1 := seedGroup(t, u, model.GroupKindTask)
	g2 := seedGroup(t, u, model.GroupKindTask)
	task := seedTask(t, u, "undone")

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.AddItem(context.Background(), tx, groupScope(g1), mustItem(t, task), nil, nil)
		return err
	})

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	_, err = svc.MoveItemAcrossLists(ctx, tx, groupScope(g1), groupScope(g2), mustItem(t, task), nil, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))

	// The caller rolled back, so the row is still in the source context.
	rows, err := testDB.ListOrderingsForEntity(ctx, model.EntityTask, task.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ContextID)
	assert.Equal(t, g1.ID, *rows[0].ContextID)
}

func TestStatusListAnchorsScopedToWorkspace(t *testing.T) {
	// STATUS_LIST rows from every tenant share one NULL-context partition,
	// so anchors must resolve against the caller's workspace only. An
	// anchor id belonging to another workspace reads like an unknown id.
	ua := seedUser(t)
	ub := seedUser(t)
	theirs := seedTask(t, ua, "someone else's task")
	mine := seedTask(t, ub, "my task")

	inTx(t, func(tx pgx.Tx) error {
		ctx := context.Background()
		if _, err := svc.AddItem(ctx, tx, statusScope(ua), mustItem(t, theirs), nil, nil); err != nil {
			return err
		}
		_, err := svc.AddItem(ctx, tx, statusScope(ub), mustItem(t, mine), nil, nil)
		return err
	})

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = svc.MoveItem(ctx, tx, statusScope(ub), mustItem(t, mine), &theirs.ID, nil)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)

	other := seedTask(t, ub, "another of mine")
	_, err = svc.AddItem(ctx, tx, statusScope(ub), mustItem(t, other), nil, &theirs.ID)
	require.ErrorIs(t, err, ordering.ErrEntityNotFound)
}

func TestStatusListReadsScopedToWorkspace(t *testing.T) {
	ua := seedUser(t)
	ub := seedUser(t)
	theirs := seedTask(t, ua, "tenant A task")
	mine := seedTask(t, ub, "tenant B task")

	inTx(t, func(tx pgx.Tx) error {
		_, err := svc.AddItem(context.Background(), tx, statusScope(ua), mustItem(t, theirs), nil, nil)
		return err
	})

	// An empty status list starts at the initial key no matter how many
	// rows other tenants hold in the shared partition.
	var pos string
	inTx(t, func(tx pgx.Tx) error {
		o, err := svc.AddItem(context.Background(), tx, statusScope(ub), mustItem(t, mine), nil, nil)
		pos = o.Position
		return err
	})
	assert.Equal(t, rank.Initial(), pos)

	rows, err := testDB.ListOrderings(context.Background(), ub.WorkspaceID, model.ContextStatusList, nil, model.EntityTask)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, mine.ID, rows[0].EntityID)
}

func TestConcurrentAddsSerialize(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	scope := groupScope(g)

	const workers = 8
	tasks := make([]model.Task, workers)
	for i := range tasks {
		tasks[i] = seedTask(t, u, fmt.Sprintf("worker %d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			tx, err := testDB.Begin(ctx)
			if err != nil {
				errs[i] = err
				return
			}
			defer func() { _ = tx.Rollback(ctx) }()
			if _, err := svc.AddItem(ctx, tx, scope, mustItem(t, tasks[i]), nil, nil); err != nil {
				errs[i] = err
				return
			}
			errs[i] = tx.Commit(ctx)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "worker %d", i)
	}

	// The advisory lock serializes tail appends, so every row got a
	// distinct position.
	rows, err := testDB.ListOrderings(context.Background(), scope.WorkspaceID, scope.ContextType, scope.ContextID, model.EntityTask)
	require.NoError(t, err)
	require.Len(t, rows, workers)

	positions := make([]string, len(rows))
	for i, o := range rows {
		positions[i] = o.Position
	}
	assert.True(t, sort.StringsAreSorted(positions))
	for i := 1; i < len(positions); i++ {
		assert.NotEqual(t, positions[i-1], positions[i])
	}
}
