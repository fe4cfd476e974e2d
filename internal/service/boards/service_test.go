package boards_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/service/boards"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/testutil"
)

var (
	testDB *storage.DB
	ord    *ordering.Service
	svc    *boards.Service
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

	ord = ordering.New(testutil.TestLogger())
	svc = boards.New(testDB, testutil.TestLogger())

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func seedUser(t *testing.T) model.User {
	t.Helper()
	ctx := context.Background()

	ws, err := testDB.CreateWorkspace(ctx, model.Workspace{
		Name: "Board Workspace",
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

// seedBoardTask creates a task and places it at the tail of the
// workspace's status list.
func seedBoardTask(t *testing.T, u model.User, title string, status model.Status) model.Task {
	t.Helper()
	ctx := context.Background()

	task, err := storage.InsertTaskTx(ctx, testDB.Pool(), model.Task{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       title,
		Status:      status,
	})
	require.NoError(t, err)

	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	scope := ordering.Scope{ContextType: model.ContextStatusList, WorkspaceID: u.WorkspaceID}
	item, err := ordering.ItemOf(task)
	require.NoError(t, err)
	if _, err := ord.AddItem(ctx, tx, scope, item, nil, nil); err != nil {
		_ = tx.Rollback(ctx)
		t.Fatalf("order task: %v", err)
	}
	require.NoError(t, tx.Commit(ctx))
	return task
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

func cardIDs(board boards.StatusBoard) []uuid.UUID {
	var ids []uuid.UUID
	for _, col := range board.Columns {
		for _, c := range col.Cards {
			ids = append(ids, c.EntityID)
		}
	}
	return ids
}

func TestStatusBoardGroupsCardsByStatusInListOrder(t *testing.T) {
	u := seedUser(t)
	first := seedBoardTask(t, u, "first", model.StatusBacklog)
	second := seedBoardTask(t, u, "second", model.StatusBacklog)
	doing := seedBoardTask(t, u, "doing", model.StatusInProgress)

	board, err := svc.Status(context.Background(), u.WorkspaceID, model.EntityTask)
	require.NoError(t, err)
	require.Len(t, board.Columns, 5)

	byStatus := make(map[model.Status][]boards.Card, len(board.Columns))
	for _, col := range board.Columns {
		byStatus[col.Status] = col.Cards
	}

	backlog := byStatus[model.StatusBacklog]
	require.Len(t, backlog, 2)
	assert.Equal(t, first.ID, backlog[0].EntityID)
	assert.Equal(t, second.ID, backlog[1].EntityID)
	assert.Less(t, backlog[0].Position, backlog[1].Position)

	require.Len(t, byStatus[model.StatusInProgress], 1)
	assert.Equal(t, doing.ID, byStatus[model.StatusInProgress][0].EntityID)
	assert.Empty(t, byStatus[model.StatusDone])
}

func TestStatusBoardScopedToWorkspace(t *testing.T) {
	ua := seedUser(t)
	ub := seedUser(t)
	theirs := seedBoardTask(t, ua, "tenant A task", model.StatusBacklog)
	mine := seedBoardTask(t, ub, "tenant B task", model.StatusBacklog)

	board, err := svc.Status(context.Background(), ub.WorkspaceID, model.EntityTask)
	require.NoError(t, err)

	ids := cardIDs(board)
	assert.Contains(t, ids, mine.ID)
	assert.NotContains(t, ids, theirs.ID)
}

func TestStatusBoardRejectsUnknownEntityType(t *testing.T) {
	u := seedUser(t)
	_, err := svc.Status(context.Background(), u.WorkspaceID, model.EntityChecklist)
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestStatusBoardLoadSurvivesLeaderCancellation(t *testing.T) {
	// The board load runs once for every caller coalesced onto the same
	// key, and the caller whose context happens to lead may be canceled
	// while waiters are still live. The shared load must not inherit that
	// cancellation.
	u := seedUser(t)
	task := seedBoardTask(t, u, "still loads", model.StatusBacklog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	board, err := svc.Status(ctx, u.WorkspaceID, model.EntityTask)
	require.NoError(t, err)
	assert.Contains(t, cardIDs(board), task.ID)
}

func TestGroupBoardListsMembersInOrder(t *testing.T) {
	u := seedUser(t)
	g := seedGroup(t, u, model.GroupKindTask)
	first := seedBoardTask(t, u, "lead", model.StatusBacklog)
	second := seedBoardTask(t, u, "follow", model.StatusBacklog)

	ctx := context.Background()
	tx, err := testDB.Begin(ctx)
	require.NoError(t, err)
	gid := g.ID
	scope := ordering.Scope{ContextType: model.ContextGroup, ContextID: &gid, WorkspaceID: u.WorkspaceID}
	for _, task := range []model.Task{first, second} {
		item, err := ordering.ItemOf(task)
		require.NoError(t, err)
		if _, err := ord.AddItem(ctx, tx, scope, item, nil, nil); err != nil {
			_ = tx.Rollback(ctx)
			t.Fatalf("order member: %v", err)
		}
	}
	require.NoError(t, tx.Commit(ctx))

	board, err := svc.Group(ctx, u.WorkspaceID, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.ID, board.Group.ID)
	require.Len(t, board.Cards, 2)
	assert.Equal(t, first.ID, board.Cards[0].EntityID)
	assert.Equal(t, second.ID, board.Cards[1].EntityID)
}
