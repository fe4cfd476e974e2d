package mcp

import (
	"context"
	"testing"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heroarc/heroarc/internal/auth"
	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

func callRequest(args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Arguments: args},
	}
}

func TestIdentity(t *testing.T) {
	_, _, err := identity(context.Background())
	require.Error(t, err, "context without claims should be unauthenticated")

	workspaceID := uuid.New()
	userID := uuid.New()
	ctx := ctxutil.WithClaims(context.Background(), &auth.Claims{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        model.RoleMember,
	})

	gotWorkspace, gotUser, err := identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, workspaceID, gotWorkspace)
	assert.Equal(t, userID, gotUser)
}

func TestMoveRequest(t *testing.T) {
	after := uuid.New()
	before := uuid.New()

	req, errMsg := moveRequest(callRequest(map[string]any{
		"status": "IN_PROGRESS",
		"after":  after.String(),
		"before": before.String(),
	}))
	require.Empty(t, errMsg)
	require.NotNil(t, req.Status)
	assert.Equal(t, model.StatusInProgress, *req.Status)
	require.NotNil(t, req.After)
	assert.Equal(t, after, *req.After)
	require.NotNil(t, req.Before)
	assert.Equal(t, before, *req.Before)

	req, errMsg = moveRequest(callRequest(map[string]any{}))
	require.Empty(t, errMsg)
	assert.Nil(t, req.Status)
	assert.Nil(t, req.After)
	assert.Nil(t, req.Before)

	_, errMsg = moveRequest(callRequest(map[string]any{"after": "not-a-uuid"}))
	assert.Equal(t, "invalid after id", errMsg)

	_, errMsg = moveRequest(callRequest(map[string]any{"before": "not-a-uuid"}))
	assert.Equal(t, "invalid before id", errMsg)
}

func TestConversationID(t *testing.T) {
	assert.Nil(t, conversationID(callRequest(map[string]any{})))
	assert.Nil(t, conversationID(callRequest(map[string]any{"conversation_id": "garbage"})))

	id := uuid.New()
	got := conversationID(callRequest(map[string]any{"conversation_id": id.String()}))
	require.NotNil(t, got)
	assert.Equal(t, id, *got)
}

func TestErrorResult(t *testing.T) {
	result := errorResult("boom")
	require.True(t, result.IsError)
	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	assert.Equal(t, "boom", tc.Text)
}

func TestPlanWorkPrompt(t *testing.T) {
	s := &Server{}

	result, err := s.handlePlanWorkPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "plan-work",
			Arguments: map[string]string{"goal": "ship the onboarding flow"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)

	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "ship the onboarding flow")
	assert.Contains(t, tc.Text, "heroarc_search")
	assert.Contains(t, tc.Text, "heroarc_board")

	_, err = s.handlePlanWorkPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "plan-work", Arguments: map[string]string{}},
	})
	require.Error(t, err)
}

func TestTriageBoardPrompt(t *testing.T) {
	s := &Server{}

	result, err := s.handleTriageBoardPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "triage-board",
			Arguments: map[string]string{"entity_type": "TASK"},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Messages)

	tc, ok := result.Messages[0].Content.(mcplib.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, `entity_type="TASK"`)
	assert.Contains(t, tc.Text, "heroarc_move_task")

	_, err = s.handleTriageBoardPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "triage-board",
			Arguments: map[string]string{"entity_type": "HERO"},
		},
	})
	require.Error(t, err)
}
