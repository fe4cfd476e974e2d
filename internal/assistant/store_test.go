package assistant

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(context.Background(), filepath.Join(t.TempDir(), "assistant.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConversationRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ws, user := uuid.New(), uuid.New()
	c, err := s.CreateConversation(ctx, ws, user, "sprint planning")
	require.NoError(t, err)

	got, err := s.GetConversation(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, ws, got.WorkspaceID)
	assert.Equal(t, user, got.UserID)
	assert.Equal(t, "sprint planning", got.Title)

	list, err := s.ListConversations(ctx, ws, user, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, c.ID, list[0].ID)
}

func TestGetConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestTurnsAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateConversation(ctx, uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	_, err = s.AppendTurn(ctx, c.ID, RoleUser, "move TASK-3 to done")
	require.NoError(t, err)
	_, err = s.AppendTurn(ctx, c.ID, RoleTool, "move_task: TASK-3 -> DONE")
	require.NoError(t, err)
	_, err = s.AppendTurn(ctx, c.ID, RoleAssistant, "done")
	require.NoError(t, err)

	turns, err := s.History(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, turns, 3)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleTool, turns[1].Role)
	assert.Equal(t, RoleAssistant, turns[2].Role)

	// Limited history keeps the most recent turns, oldest first.
	last, err := s.History(ctx, c.ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, RoleTool, last[0].Role)
	assert.Equal(t, RoleAssistant, last[1].Role)
}

func TestAppendTurnUnknownConversation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.AppendTurn(context.Background(), uuid.New(), RoleUser, "hello")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestAppendTurnRejectsUnknownRole(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c, err := s.CreateConversation(ctx, uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	_, err = s.AppendTurn(ctx, c.ID, Role("system"), "nope")
	assert.Error(t, err)
}

func TestDeleteConversationCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c, err := s.CreateConversation(ctx, uuid.New(), uuid.New(), "to delete")
	require.NoError(t, err)
	_, err = s.AppendTurn(ctx, c.ID, RoleUser, "hi")
	require.NoError(t, err)

	require.NoError(t, s.DeleteConversation(ctx, c.ID))

	_, err = s.GetConversation(ctx, c.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	turns, err := s.History(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	assert.ErrorIs(t, s.DeleteConversation(ctx, c.ID), ErrConversationNotFound)
}

func TestListConversationsScopedToUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ws := uuid.New()
	alice, bob := uuid.New(), uuid.New()
	_, err := s.CreateConversation(ctx, ws, alice, "mine")
	require.NoError(t, err)
	_, err = s.CreateConversation(ctx, ws, bob, "theirs")
	require.NoError(t, err)

	list, err := s.ListConversations(ctx, ws, alice, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Title)
}
