package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// plan-work — guides the agent through reading the board before creating anything.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("plan-work",
			mcplib.WithPromptDescription("Review the board and existing work before creating new tasks or initiatives"),
			mcplib.WithArgument("goal",
				mcplib.ArgumentDescription("What the user wants to accomplish"),
				mcplib.RequiredArgument(),
			),
		),
		s.handlePlanWorkPrompt,
	)

	// triage-board — walks the agent through cleaning up a status board.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("triage-board",
			mcplib.WithPromptDescription("Triage a status board: surface stalled work and propose moves"),
			mcplib.WithArgument("entity_type",
				mcplib.ArgumentDescription("Which board to triage: INITIATIVE or TASK"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleTriageBoardPrompt,
	)
}

func (s *Server) handlePlanWorkPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	goal := request.Params.Arguments["goal"]
	if goal == "" {
		return nil, fmt.Errorf("goal argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: "Plan work against the existing board before creating anything",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`The user wants to: %s

Before creating anything, follow these steps:

1. CALL heroarc_search with a query describing the goal to find initiatives
   and tasks that already cover it. Do not create duplicates.

2. CALL heroarc_board with entity_type="INITIATIVE" to see what is already
   in flight and where new work would fit.

3. DECIDE whether this goal belongs under an existing initiative or needs
   a new one. Prefer attaching tasks to existing initiatives.

4. CREATE the work with heroarc_create_initiative / heroarc_create_task,
   passing initiative_id where the task belongs to an initiative.

5. If a conversation_id was given, pass it to every tool call so the
   actions are recorded.`, goal),
				},
			},
		},
	}, nil
}

func (s *Server) handleTriageBoardPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	entityType := request.Params.Arguments["entity_type"]
	noun := ""
	switch entityType {
	case "INITIATIVE":
		noun = "initiative"
	case "TASK":
		noun = "task"
	default:
		return nil, fmt.Errorf("entity_type must be INITIATIVE or TASK")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Triage the %s board", entityType),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Triage the %s board:

1. CALL heroarc_board with entity_type="%s" and read every column.

2. FLAG anything that looks stalled: items in BLOCKED, or IN_PROGRESS
   columns that are unusually long.

3. PROPOSE moves to the user: what should advance, what should go back
   to TO_DO, what is actually DONE. Do not move anything yet.

4. Once the user confirms, apply the moves with heroarc_move_%s,
   setting status for column changes and after/before when the user
   cares about ordering within a column.`, entityType, entityType, noun),
				},
			},
		},
	}, nil
}
