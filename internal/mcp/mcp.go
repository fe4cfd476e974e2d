// Package mcp implements the Model Context Protocol server for heroarc.
//
// The MCP server exposes the assistant tool layer — creating and moving
// work items, reading boards, similarity search, conversation memory — so
// MCP-compatible AI agents share one execution path with the HTTP API.
// The caller's identity comes from the JWT claims the HTTP transport's
// auth middleware stores in the request context.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/heroarc/heroarc/internal/assistant"
	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
)

// Server wraps the MCP server with heroarc's assistant tool layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	tools     *assistant.Tools
	logger    *slog.Logger
}

// New creates and configures an MCP server with all resources, tools, and
// prompts registered.
func New(tools *assistant.Tools, logger *slog.Logger) *Server {
	s := &Server{
		tools:  tools,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"heroarc",
		"0.1.0",
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// identity resolves the authenticated caller from the request context.
func identity(ctx context.Context) (workspaceID, userID uuid.UUID, err error) {
	claims := ctxutil.ClaimsFromContext(ctx)
	if claims == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("mcp: unauthenticated")
	}
	return claims.WorkspaceID, claims.UserID, nil
}

func (s *Server) registerResources() {
	// heroarc://board/initiatives — the initiative status board.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"heroarc://board/initiatives",
			"Initiative Board",
			mcplib.WithResourceDescription("Status-column board of all initiatives, in list order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.boardResource(model.EntityInitiative),
	)

	// heroarc://board/tasks — the task status board.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			"heroarc://board/tasks",
			"Task Board",
			mcplib.WithResourceDescription("Status-column board of all tasks, in list order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.boardResource(model.EntityTask),
	)
}

func (s *Server) boardResource(entityType model.EntityType) func(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	return func(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		workspaceID, _, err := identity(ctx)
		if err != nil {
			return nil, err
		}

		board, err := s.tools.Boards.Status(ctx, workspaceID, entityType)
		if err != nil {
			return nil, fmt.Errorf("mcp: board resource: %w", err)
		}

		data, err := json.MarshalIndent(board, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("mcp: marshal board: %w", err)
		}

		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}
