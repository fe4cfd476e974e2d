package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/heroarc/heroarc/internal/assistant"
	"github.com/heroarc/heroarc/internal/model"
)

func (s *Server) registerTools() {
	// heroarc_create_task — create a task on the status board.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_create_task",
			mcplib.WithDescription("Create a task. It is placed at the tail of its status column unless anchored."),
			mcplib.WithString("title", mcplib.Description("Task title"), mcplib.Required()),
			mcplib.WithString("description", mcplib.Description("Task description")),
			mcplib.WithString("status", mcplib.Description("Workflow status (BACKLOG, TO_DO, IN_PROGRESS, BLOCKED, DONE); defaults to BACKLOG")),
			mcplib.WithString("initiative_id", mcplib.Description("Initiative to attach the task to")),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation to record this action in")),
		),
		s.handleCreateTask,
	)

	// heroarc_move_task — reposition a task, optionally changing status.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_move_task",
			mcplib.WithDescription("Move a task on the status board. Set status to change column; after/before anchor it between two tasks."),
			mcplib.WithString("task_id", mcplib.Description("Task to move"), mcplib.Required()),
			mcplib.WithString("status", mcplib.Description("Destination status column")),
			mcplib.WithString("after", mcplib.Description("Place directly after this task id")),
			mcplib.WithString("before", mcplib.Description("Place directly before this task id")),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation to record this action in")),
		),
		s.handleMoveTask,
	)

	// heroarc_create_initiative — create an initiative on the status board.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_create_initiative",
			mcplib.WithDescription("Create an initiative. It is placed at the tail of its status column unless anchored."),
			mcplib.WithString("title", mcplib.Description("Initiative title"), mcplib.Required()),
			mcplib.WithString("description", mcplib.Description("Initiative description")),
			mcplib.WithString("status", mcplib.Description("Workflow status; defaults to BACKLOG")),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation to record this action in")),
		),
		s.handleCreateInitiative,
	)

	// heroarc_move_initiative — reposition an initiative.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_move_initiative",
			mcplib.WithDescription("Move an initiative on the status board. Set status to change column; after/before anchor it between two initiatives."),
			mcplib.WithString("initiative_id", mcplib.Description("Initiative to move"), mcplib.Required()),
			mcplib.WithString("status", mcplib.Description("Destination status column")),
			mcplib.WithString("after", mcplib.Description("Place directly after this initiative id")),
			mcplib.WithString("before", mcplib.Description("Place directly before this initiative id")),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation to record this action in")),
		),
		s.handleMoveInitiative,
	)

	// heroarc_board — read a board snapshot.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_board",
			mcplib.WithDescription("Read a board snapshot: the status board for an entity type, or a group's ordered members."),
			mcplib.WithString("entity_type", mcplib.Description("INITIATIVE or TASK for a status board")),
			mcplib.WithString("group_id", mcplib.Description("Group id for a group board")),
		),
		s.handleBoard,
	)

	// heroarc_search — similarity search over initiatives and tasks.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_search",
			mcplib.WithDescription("Find initiatives and tasks similar to a natural-language query."),
			mcplib.WithString("query", mcplib.Description("Natural language search query"), mcplib.Required()),
			mcplib.WithNumber("limit", mcplib.Description("Maximum results to return")),
		),
		s.handleSearch,
	)

	// heroarc_conversation_start — open a conversation for memory.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_conversation_start",
			mcplib.WithDescription("Start a conversation. Pass its id to other tools to record what was done."),
			mcplib.WithString("title", mcplib.Description("Conversation title")),
		),
		s.handleConversationStart,
	)

	// heroarc_remember — record an utterance.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_remember",
			mcplib.WithDescription("Record a user or assistant utterance in a conversation."),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation id"), mcplib.Required()),
			mcplib.WithString("role", mcplib.Description("user or assistant"), mcplib.Required()),
			mcplib.WithString("content", mcplib.Description("Utterance text"), mcplib.Required()),
		),
		s.handleRemember,
	)

	// heroarc_history — read back a conversation.
	s.mcpServer.AddTool(
		mcplib.NewTool("heroarc_history",
			mcplib.WithDescription("Read a conversation's turns, oldest first."),
			mcplib.WithString("conversation_id", mcplib.Description("Conversation id"), mcplib.Required()),
			mcplib.WithNumber("limit", mcplib.Description("Only the most recent N turns")),
		),
		s.handleHistory,
	)
}

func (s *Server) handleCreateTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, userID, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	req := model.CreateTaskRequest{Title: request.GetString("title", "")}
	if desc := request.GetString("description", ""); desc != "" {
		req.Description = &desc
	}
	req.Status = model.Status(request.GetString("status", ""))
	if raw := request.GetString("initiative_id", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errorResult("invalid initiative_id"), nil
		}
		req.InitiativeID = &id
	}

	t, err := s.tools.Tasks.Create(ctx, workspaceID, userID, req)
	if err != nil {
		return errorResult(fmt.Sprintf("create task failed: %v", err)), nil
	}

	s.tools.RecordToolCall(ctx, conversationID(request), "heroarc_create_task",
		fmt.Sprintf("created %s %q", t.Identifier, t.Title))
	return jsonResult(t)
}

func (s *Server) handleMoveTask(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, _, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	taskID, err := uuid.Parse(request.GetString("task_id", ""))
	if err != nil {
		return errorResult("invalid task_id"), nil
	}
	req, errMsg := moveRequest(request)
	if errMsg != "" {
		return errorResult(errMsg), nil
	}

	t, err := s.tools.Tasks.Move(ctx, workspaceID, taskID, req)
	if err != nil {
		return errorResult(fmt.Sprintf("move task failed: %v", err)), nil
	}

	s.tools.RecordToolCall(ctx, conversationID(request), "heroarc_move_task",
		fmt.Sprintf("moved %s to %s", t.Identifier, t.Status))
	return jsonResult(t)
}

func (s *Server) handleCreateInitiative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, userID, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	req := model.CreateInitiativeRequest{Title: request.GetString("title", "")}
	if desc := request.GetString("description", ""); desc != "" {
		req.Description = &desc
	}
	req.Status = model.Status(request.GetString("status", ""))

	in, err := s.tools.Initiatives.Create(ctx, workspaceID, userID, req)
	if err != nil {
		return errorResult(fmt.Sprintf("create initiative failed: %v", err)), nil
	}

	s.tools.RecordToolCall(ctx, conversationID(request), "heroarc_create_initiative",
		fmt.Sprintf("created %s %q", in.Identifier, in.Title))
	return jsonResult(in)
}

func (s *Server) handleMoveInitiative(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, _, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	initiativeID, err := uuid.Parse(request.GetString("initiative_id", ""))
	if err != nil {
		return errorResult("invalid initiative_id"), nil
	}
	req, errMsg := moveRequest(request)
	if errMsg != "" {
		return errorResult(errMsg), nil
	}

	in, err := s.tools.Initiatives.Move(ctx, workspaceID, initiativeID, req)
	if err != nil {
		return errorResult(fmt.Sprintf("move initiative failed: %v", err)), nil
	}

	s.tools.RecordToolCall(ctx, conversationID(request), "heroarc_move_initiative",
		fmt.Sprintf("moved %s to %s", in.Identifier, in.Status))
	return jsonResult(in)
}

func (s *Server) handleBoard(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, _, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	if raw := request.GetString("group_id", ""); raw != "" {
		groupID, err := uuid.Parse(raw)
		if err != nil {
			return errorResult("invalid group_id"), nil
		}
		board, err := s.tools.Boards.Group(ctx, workspaceID, groupID)
		if err != nil {
			return errorResult(fmt.Sprintf("group board failed: %v", err)), nil
		}
		return jsonResult(board)
	}

	entityType := model.EntityType(request.GetString("entity_type", ""))
	if entityType == "" {
		return errorResult("entity_type or group_id is required"), nil
	}
	board, err := s.tools.Boards.Status(ctx, workspaceID, entityType)
	if err != nil {
		return errorResult(fmt.Sprintf("status board failed: %v", err)), nil
	}
	return jsonResult(board)
}

func (s *Server) handleSearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, _, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	query := request.GetString("query", "")
	if query == "" {
		return errorResult("query is required"), nil
	}
	limit := request.GetInt("limit", 10)

	results, err := s.tools.Search.Similar(ctx, workspaceID, query, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("search failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"results": results, "total": len(results)})
}

func (s *Server) handleConversationStart(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	workspaceID, userID, err := identity(ctx)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	c, err := s.tools.Store.CreateConversation(ctx, workspaceID, userID, request.GetString("title", ""))
	if err != nil {
		return errorResult(fmt.Sprintf("start conversation failed: %v", err)), nil
	}
	return jsonResult(c)
}

func (s *Server) handleRemember(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if _, _, err := identity(ctx); err != nil {
		return errorResult(err.Error()), nil
	}

	convID, err := uuid.Parse(request.GetString("conversation_id", ""))
	if err != nil {
		return errorResult("invalid conversation_id"), nil
	}
	role := assistant.Role(request.GetString("role", ""))
	if role != assistant.RoleUser && role != assistant.RoleAssistant {
		return errorResult("role must be user or assistant"), nil
	}
	content := request.GetString("content", "")
	if content == "" {
		return errorResult("content is required"), nil
	}

	turn, err := s.tools.Store.AppendTurn(ctx, convID, role, content)
	if err != nil {
		return errorResult(fmt.Sprintf("remember failed: %v", err)), nil
	}
	return jsonResult(turn)
}

func (s *Server) handleHistory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if _, _, err := identity(ctx); err != nil {
		return errorResult(err.Error()), nil
	}

	convID, err := uuid.Parse(request.GetString("conversation_id", ""))
	if err != nil {
		return errorResult("invalid conversation_id"), nil
	}
	limit := request.GetInt("limit", 0)

	turns, err := s.tools.Store.History(ctx, convID, limit)
	if err != nil {
		return errorResult(fmt.Sprintf("history failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"turns": turns, "total": len(turns)})
}

// moveRequest parses the shared status/after/before move arguments.
func moveRequest(request mcplib.CallToolRequest) (model.MoveRequest, string) {
	var req model.MoveRequest
	if raw := request.GetString("status", ""); raw != "" {
		st := model.Status(raw)
		req.Status = &st
	}
	if raw := request.GetString("after", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return req, "invalid after id"
		}
		req.After = &id
	}
	if raw := request.GetString("before", ""); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return req, "invalid before id"
		}
		req.Before = &id
	}
	return req, ""
}

// conversationID extracts the optional conversation to record the action in.
func conversationID(request mcplib.CallToolRequest) *uuid.UUID {
	raw := request.GetString("conversation_id", "")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
