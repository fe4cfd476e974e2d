package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/heroarc/heroarc/internal/auth"
	"github.com/heroarc/heroarc/internal/ctxutil"
	"github.com/heroarc/heroarc/internal/model"
	"github.com/heroarc/heroarc/internal/ratelimit"
)

// Server is the Heroarc HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Handlers returns the underlying Handlers.
func (s *Server) Handlers() *Handlers {
	return s.handlers
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional (nil-safe): the three limiters and MCPServer.
type ServerConfig struct {
	Handlers HandlersDeps

	// Per-class rate limiters (nil = unlimited). Auth is keyed by client IP,
	// the others by authenticated user.
	AuthLimiter   ratelimit.Limiter
	APILimiter    ratelimit.Limiter
	SearchLimiter ratelimit.Limiter

	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(cfg.Handlers)
	logger := cfg.Handlers.Logger

	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	authRL := ratelimit.Middleware(cfg.AuthLimiter, ratelimit.IPKeyFunc, reqIDFunc)
	apiRL := ratelimit.Middleware(cfg.APILimiter, userKeyFunc, reqIDFunc)
	searchRL := ratelimit.Middleware(cfg.SearchLimiter, userKeyFunc, reqIDFunc)

	// Viewers are read-only: every mutating route requires member or above.
	write := requireRole(model.RoleMember)

	mux := http.NewServeMux()

	// Auth (no auth required, rate limited by IP).
	mux.Handle("POST /auth/token", authRL(http.HandlerFunc(h.HandleAuthToken)))

	// Initiatives.
	mux.Handle("POST /v1/initiatives", apiRL(write(http.HandlerFunc(h.HandleCreateInitiative))))
	mux.Handle("GET /v1/initiatives", apiRL(http.HandlerFunc(h.HandleListInitiatives)))
	mux.Handle("GET /v1/initiatives/{id}", apiRL(http.HandlerFunc(h.HandleGetInitiative)))
	mux.Handle("PATCH /v1/initiatives/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateInitiative))))
	mux.Handle("DELETE /v1/initiatives/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteInitiative))))
	mux.Handle("POST /v1/initiatives/{id}/move", apiRL(write(http.HandlerFunc(h.HandleMoveInitiative))))

	// Tasks.
	mux.Handle("POST /v1/tasks", apiRL(write(http.HandlerFunc(h.HandleCreateTask))))
	mux.Handle("GET /v1/tasks", apiRL(http.HandlerFunc(h.HandleListTasks)))
	mux.Handle("GET /v1/tasks/{id}", apiRL(http.HandlerFunc(h.HandleGetTask)))
	mux.Handle("PATCH /v1/tasks/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateTask))))
	mux.Handle("DELETE /v1/tasks/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteTask))))
	mux.Handle("POST /v1/tasks/{id}/move", apiRL(write(http.HandlerFunc(h.HandleMoveTask))))

	// Checklists.
	mux.Handle("GET /v1/tasks/{id}/checklist", apiRL(http.HandlerFunc(h.HandleListChecklist)))
	mux.Handle("POST /v1/tasks/{id}/checklist", apiRL(write(http.HandlerFunc(h.HandleAddChecklistItem))))
	mux.Handle("PATCH /v1/checklist/{item_id}", apiRL(write(http.HandlerFunc(h.HandleUpdateChecklistItem))))
	mux.Handle("DELETE /v1/checklist/{item_id}", apiRL(write(http.HandlerFunc(h.HandleDeleteChecklistItem))))
	mux.Handle("POST /v1/checklist/{item_id}/move", apiRL(write(http.HandlerFunc(h.HandleMoveChecklistItem))))

	// Groups and membership.
	mux.Handle("POST /v1/groups", apiRL(write(http.HandlerFunc(h.HandleCreateGroup))))
	mux.Handle("GET /v1/groups", apiRL(http.HandlerFunc(h.HandleListGroups)))
	mux.Handle("GET /v1/groups/{id}", apiRL(http.HandlerFunc(h.HandleGetGroup)))
	mux.Handle("PATCH /v1/groups/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateGroup))))
	mux.Handle("DELETE /v1/groups/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteGroup))))
	mux.Handle("GET /v1/groups/{id}/board", apiRL(http.HandlerFunc(h.HandleGroupBoard)))

	mux.Handle("PUT /v1/groups/{group_id}/initiatives/{id}", apiRL(write(h.handleAddGroupMember(model.EntityInitiative))))
	mux.Handle("POST /v1/groups/{group_id}/initiatives/{id}/move", apiRL(write(h.handleMoveGroupMember(model.EntityInitiative))))
	mux.Handle("DELETE /v1/groups/{group_id}/initiatives/{id}", apiRL(write(h.handleRemoveGroupMember(model.EntityInitiative))))
	mux.Handle("PUT /v1/groups/{group_id}/tasks/{id}", apiRL(write(h.handleAddGroupMember(model.EntityTask))))
	mux.Handle("POST /v1/groups/{group_id}/tasks/{id}/move", apiRL(write(h.handleMoveGroupMember(model.EntityTask))))
	mux.Handle("DELETE /v1/groups/{group_id}/tasks/{id}", apiRL(write(h.handleRemoveGroupMember(model.EntityTask))))

	// Status boards.
	mux.Handle("GET /v1/board/{entity_type}", apiRL(http.HandlerFunc(h.HandleStatusBoard)))

	// Narrative.
	mux.Handle("POST /v1/heroes", apiRL(write(http.HandlerFunc(h.HandleCreateHero))))
	mux.Handle("GET /v1/heroes", apiRL(http.HandlerFunc(h.HandleListHeroes)))
	mux.Handle("GET /v1/heroes/{id}", apiRL(http.HandlerFunc(h.HandleGetHero)))
	mux.Handle("PATCH /v1/heroes/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateHero))))
	mux.Handle("DELETE /v1/heroes/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteHero))))

	mux.Handle("POST /v1/villains", apiRL(write(http.HandlerFunc(h.HandleCreateVillain))))
	mux.Handle("GET /v1/villains", apiRL(http.HandlerFunc(h.HandleListVillains)))
	mux.Handle("GET /v1/villains/{id}", apiRL(http.HandlerFunc(h.HandleGetVillain)))
	mux.Handle("PATCH /v1/villains/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateVillain))))
	mux.Handle("DELETE /v1/villains/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteVillain))))

	mux.Handle("POST /v1/conflicts", apiRL(write(http.HandlerFunc(h.HandleCreateConflict))))
	mux.Handle("GET /v1/conflicts", apiRL(http.HandlerFunc(h.HandleListConflicts)))
	mux.Handle("GET /v1/conflicts/{id}", apiRL(http.HandlerFunc(h.HandleGetConflict)))
	mux.Handle("PATCH /v1/conflicts/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateConflict))))
	mux.Handle("DELETE /v1/conflicts/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteConflict))))

	// Strategies.
	mux.Handle("POST /v1/strategies", apiRL(write(http.HandlerFunc(h.HandleCreateStrategy))))
	mux.Handle("GET /v1/strategies", apiRL(http.HandlerFunc(h.HandleListStrategies)))
	mux.Handle("GET /v1/strategies/{id}", apiRL(http.HandlerFunc(h.HandleGetStrategy)))
	mux.Handle("PATCH /v1/strategies/{id}", apiRL(write(http.HandlerFunc(h.HandleUpdateStrategy))))
	mux.Handle("DELETE /v1/strategies/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteStrategy))))

	// Attachments.
	mux.Handle("POST /v1/tasks/{id}/attachments", apiRL(write(http.HandlerFunc(h.HandleUploadAttachment))))
	mux.Handle("GET /v1/tasks/{id}/attachments", apiRL(http.HandlerFunc(h.HandleListAttachments)))
	mux.Handle("GET /v1/attachments/{id}", apiRL(http.HandlerFunc(h.HandleGetAttachment)))
	mux.Handle("GET /v1/attachments/{id}/download", apiRL(http.HandlerFunc(h.HandleDownloadAttachment)))
	mux.Handle("DELETE /v1/attachments/{id}", apiRL(write(http.HandlerFunc(h.HandleDeleteAttachment))))

	// Semantic search (tighter rate limit: every call hits the embedder).
	mux.Handle("POST /v1/search/similar", searchRL(http.HandlerFunc(h.HandleSimilarSearch)))

	// MCP StreamableHTTP transport. Auth middleware runs before the mux, so
	// assistant sessions carry the same workspace claims as REST calls.
	if cfg.MCPServer != nil {
		mcpHTTP := mcpserver.NewStreamableHTTPServer(cfg.MCPServer)
		mux.Handle("/mcp", apiRL(mcpHTTP))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(logger, handler)
	handler = authMiddleware(cfg.Handlers.JWTMgr, handler)
	handler = loggingMiddleware(logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   logger,
	}
}

// userKeyFunc extracts the authenticated user ID for rate limiting.
func userKeyFunc(r *http.Request) string {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return claims.UserID.String()
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// SeedWorkspace bootstraps a workspace with an owner user on first start,
// so a fresh deployment can authenticate without manual SQL. No-op when the
// slug already exists or no API key is configured.
func (s *Server) SeedWorkspace(ctx context.Context, slug, ownerEmail, ownerAPIKey string) error {
	if slug == "" || ownerEmail == "" || ownerAPIKey == "" {
		s.logger.Info("workspace seed not configured, skipping")
		return nil
	}
	if err := model.ValidateSlug(slug); err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}

	h := s.handlers
	if _, err := h.db.GetWorkspaceBySlug(ctx, slug); err == nil {
		s.logger.Info("workspace already exists, skipping seed", "slug", slug)
		return nil
	}

	ws, err := h.db.CreateWorkspace(ctx, model.Workspace{Slug: slug, Name: slug})
	if err != nil {
		return fmt.Errorf("seed workspace: create: %w", err)
	}

	hash, err := auth.HashAPIKey(ownerAPIKey)
	if err != nil {
		return fmt.Errorf("seed workspace: hash key: %w", err)
	}
	if _, err := h.db.CreateUser(ctx, model.User{
		WorkspaceID: ws.ID,
		Email:       ownerEmail,
		DisplayName: "Workspace Owner",
		Role:        model.RoleOwner,
		APIKeyHash:  &hash,
	}); err != nil {
		return fmt.Errorf("seed workspace: create owner: %w", err)
	}

	s.logger.Info("seeded workspace with owner user", "slug", slug, "email", ownerEmail)
	return nil
}
