package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/heroarc/heroarc/internal/search"
	"github.com/heroarc/heroarc/internal/service/boards"
	"github.com/heroarc/heroarc/internal/service/initiatives"
	"github.com/heroarc/heroarc/internal/service/tasks"
)

// Tools bundles the domain services the assistant can act through. The MCP
// server builds its tool handlers on top of this so every interface shares
// one execution path.
type Tools struct {
	Store       *Store
	Initiatives *initiatives.Service
	Tasks       *tasks.Service
	Boards      *boards.Service
	Search      *search.Service
	Logger      *slog.Logger
}

// RecordToolCall appends a tool turn to the conversation, if one is active.
// Recording failures are logged, not surfaced: losing a memory entry must
// not fail the action it describes.
func (t *Tools) RecordToolCall(ctx context.Context, conversationID *uuid.UUID, tool, summary string) {
	if conversationID == nil {
		return
	}
	content := fmt.Sprintf("%s: %s", tool, summary)
	if _, err := t.Store.AppendTurn(ctx, *conversationID, RoleTool, content); err != nil {
		t.Logger.Warn("assistant: record tool call failed",
			"conversation_id", *conversationID, "tool", tool, "error", err)
	}
}
