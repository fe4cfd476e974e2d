package storage_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/testutil"
)

// testDB holds a shared test database connection for all tests in this package.
var testDB *storage.DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()

	var err error
	testDB, err = tc.NewTestDB(context.Background(), testutil.TestLogger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create test DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	code := m.Run()
	testDB.Close()
	tc.Terminate()
	os.Exit(code)
}

func seedWorkspaceUser(t *testing.T) (model.Workspace, model.User) {
	t.Helper()
	ctx := context.Background()

	ws, err := testDB.CreateWorkspace(ctx, model.Workspace{
		Name: "Acme",
		Slug: "acme-" + uuid.NewString()[:8],
	})
	require.NoError(t, err)

	u, err := testDB.CreateUser(ctx, model.User{
		WorkspaceID: ws.ID,
		Email:       uuid.NewString()[:8] + "@acme.test",
		DisplayName: "Ada",
		Role:        model.RoleOwner,
	})
	require.NoError(t, err)
	return ws, u
}

func TestWorkspaceRoundtrip(t *testing.T) {
	ws, _ := seedWorkspaceUser(t)

	got, err := testDB.GetWorkspaceBySlug(context.Background(), ws.Slug)
	require.NoError(t, err)
	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, "Acme", got.Name)

	_, err = testDB.GetWorkspaceBySlug(context.Background(), "no-such-slug")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDuplicateUserEmailInWorkspace(t *testing.T) {
	ws, u := seedWorkspaceUser(t)

	_, err := testDB.CreateUser(context.Background(), model.User{
		WorkspaceID: ws.ID,
		Email:       u.Email,
		DisplayName: "Impostor",
		Role:        model.RoleMember,
	})
	require.Error(t, err)
	assert.True(t, storage.IsUniqueViolation(err, ""))
}

func TestInitiativeIdentifierSequence(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		in, err := storage.InsertInitiativeTx(ctx, testDB.Pool(), model.Initiative{
			WorkspaceID: u.WorkspaceID,
			UserID:      u.ID,
			Title:       fmt.Sprintf("initiative %d", i),
			Status:      model.StatusBacklog,
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("INIT-%d", i), in.Identifier)
	}

	// A second workspace counts from 1 again.
	_, u2 := seedWorkspaceUser(t)
	in, err := storage.InsertInitiativeTx(ctx, testDB.Pool(), model.Initiative{
		WorkspaceID: u2.WorkspaceID,
		UserID:      u2.ID,
		Title:       "fresh start",
		Status:      model.StatusBacklog,
	})
	require.NoError(t, err)
	assert.Equal(t, "INIT-1", in.Identifier)
}

func TestTaskIdentifierAndUpdate(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	task, err := storage.InsertTaskTx(ctx, testDB.Pool(), model.Task{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       "write tests",
		Status:      model.StatusToDo,
	})
	require.NoError(t, err)
	assert.Equal(t, "TASK-1", task.Identifier)

	newTitle := "write better tests"
	doneStatus := model.StatusDone
	updated, err := storage.UpdateTaskTx(ctx, testDB.Pool(), u.WorkspaceID, task.ID, &newTitle, nil, &doneStatus, nil, false)
	require.NoError(t, err)
	assert.Equal(t, newTitle, updated.Title)
	assert.Equal(t, model.StatusDone, updated.Status)
	assert.Equal(t, "TASK-1", updated.Identifier)

	_, err = storage.UpdateTaskTx(ctx, testDB.Pool(), u.WorkspaceID, uuid.New(), &newTitle, nil, nil, nil, false)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOrderingUniqueConstraintTreatsNullContextAsEqual(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()
	entityID := uuid.New()

	row := model.Ordering{
		UserID:      u.ID,
		WorkspaceID: &u.WorkspaceID,
		ContextType: model.ContextStatusList,
		EntityType:  model.EntityTask,
		EntityID:    entityID,
		Position:    "V",
	}
	_, err := storage.InsertOrderingTx(ctx, testDB.Pool(), row)
	require.NoError(t, err)

	// STATUS_LIST rows carry a NULL context_id; a second row for the same
	// entity must still violate the composite uniqueness constraint.
	row.Position = "W"
	_, err = storage.InsertOrderingTx(ctx, testDB.Pool(), row)
	require.Error(t, err)
	assert.True(t, storage.IsUniqueViolation(err, "orderings_context_entity_key"))
}

func TestSearchInitiativesByEmbedding(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	near, err := storage.InsertInitiativeTx(ctx, testDB.Pool(), model.Initiative{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       "ship the search feature",
		Status:      model.StatusInProgress,
	})
	require.NoError(t, err)
	far, err := storage.InsertInitiativeTx(ctx, testDB.Pool(), model.Initiative{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       "redesign the logo",
		Status:      model.StatusBacklog,
	})
	require.NoError(t, err)

	require.NoError(t, testDB.UpdateInitiativeEmbedding(ctx, u.WorkspaceID, near.ID, pgvector.NewVector([]float32{1, 0, 0})))
	require.NoError(t, testDB.UpdateInitiativeEmbedding(ctx, u.WorkspaceID, far.ID, pgvector.NewVector([]float32{0, 1, 0})))

	results, err := testDB.SearchInitiativesByEmbedding(ctx, u.WorkspaceID, pgvector.NewVector([]float32{0.9, 0.1, 0}), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, near.ID, results[0].Initiative.ID)
	assert.Less(t, results[0].Distance, results[1].Distance)
}

func TestStrategyPillarsRoundtrip(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	s, err := testDB.CreateStrategy(ctx, model.Strategy{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Vision:      "own the niche",
		HorizonDays: 365,
		Pillars: []model.Pillar{
			{Name: "craft", Description: "quality first"},
			{Name: "speed"},
		},
	})
	require.NoError(t, err)

	got, err := testDB.GetStrategyByID(ctx, u.WorkspaceID, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Pillars, 2)
	assert.Equal(t, "craft", got.Pillars[0].Name)
	assert.Equal(t, "quality first", got.Pillars[0].Description)
}

func TestConflictCascadesOnVillainDelete(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	in, err := storage.InsertInitiativeTx(ctx, testDB.Pool(), model.Initiative{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       "slay the backlog",
		Status:      model.StatusInProgress,
	})
	require.NoError(t, err)

	v, err := testDB.CreateVillain(ctx, model.Villain{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Name:        "Scope Creep",
	})
	require.NoError(t, err)

	c, err := testDB.CreateConflict(ctx, model.Conflict{
		WorkspaceID:  u.WorkspaceID,
		UserID:       u.ID,
		VillainID:    v.ID,
		InitiativeID: in.ID,
		Status:       model.ConflictActive,
	})
	require.NoError(t, err)

	require.NoError(t, testDB.DeleteVillain(ctx, u.WorkspaceID, v.ID))

	_, err = testDB.GetConflictByID(ctx, u.WorkspaceID, c.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAttachmentDeleteReturnsRow(t *testing.T) {
	_, u := seedWorkspaceUser(t)
	ctx := context.Background()

	task, err := storage.InsertTaskTx(ctx, testDB.Pool(), model.Task{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		Title:       "attach things",
		Status:      model.StatusToDo,
	})
	require.NoError(t, err)

	a, err := testDB.CreateAttachment(ctx, model.Attachment{
		WorkspaceID: u.WorkspaceID,
		UserID:      u.ID,
		TaskID:      task.ID,
		ObjectKey:   "ws/" + u.WorkspaceID.String() + "/spec.pdf",
		Filename:    "spec.pdf",
		Size:        1024,
		ContentType: "application/pdf",
	})
	require.NoError(t, err)

	deleted, err := testDB.DeleteAttachment(ctx, u.WorkspaceID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ObjectKey, deleted.ObjectKey)

	_, err = testDB.GetAttachmentByID(ctx, u.WorkspaceID, a.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
}
