package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/heroarc/heroarc/internal/assistant"
	"github.com/heroarc/heroarc/internal/auth"
	"github.com/heroarc/heroarc/internal/blob"
	"github.com/heroarc/heroarc/internal/config"
	"github.com/heroarc/heroarc/internal/mcp"
	"github.com/heroarc/heroarc/internal/ordering"
	"github.com/heroarc/heroarc/internal/ratelimit"
	"github.com/heroarc/heroarc/internal/search"
	"github.com/heroarc/heroarc/internal/server"
	"github.com/heroarc/heroarc/internal/service/attachments"
	"github.com/heroarc/heroarc/internal/service/boards"
	"github.com/heroarc/heroarc/internal/service/embedding"
	"github.com/heroarc/heroarc/internal/service/groups"
	"github.com/heroarc/heroarc/internal/service/initiatives"
	"github.com/heroarc/heroarc/internal/service/narrative"
	"github.com/heroarc/heroarc/internal/service/strategy"
	"github.com/heroarc/heroarc/internal/service/tasks"
	"github.com/heroarc/heroarc/internal/storage"
	"github.com/heroarc/heroarc/internal/telemetry"
	"github.com/heroarc/heroarc/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("HEROARC_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("heroarc starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to Postgres.
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	// Run migrations. RunMigrations tracks applied files in
	// schema_migrations and skips duplicates, so errors here are real.
	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	// Embedding provider (noop unless Ollama is configured).
	embedder := embedding.New(cfg.EmbeddingProvider, cfg.OllamaURL, cfg.OllamaModel)
	logger.Info("embedding provider", "provider", cfg.EmbeddingProvider)

	// Object storage for attachments (optional — disabled when no endpoint).
	var blobs *blob.Store
	if cfg.BlobEndpoint != "" {
		blobs, err = blob.New(ctx, cfg.BlobEndpoint, cfg.BlobAccessKey, cfg.BlobSecretKey,
			cfg.BlobBucket, cfg.BlobUseSSL, logger)
		if err != nil {
			return fmt.Errorf("blob: %w", err)
		}
		logger.Info("object storage: enabled", "bucket", cfg.BlobBucket)
	} else {
		logger.Info("object storage: disabled (no HEROARC_BLOB_ENDPOINT)")
	}

	// SQLite-backed assistant conversation memory.
	convStore, err := assistant.NewStore(ctx, cfg.AssistantDBPath)
	if err != nil {
		return fmt.Errorf("assistant store: %w", err)
	}
	defer func() { _ = convStore.Close() }()

	// Services. The ordering service is the core all board mutations run
	// through; the rest share it and the DB pool.
	orderingSvc := ordering.New(logger)
	initiativeSvc := initiatives.New(db, orderingSvc, embedder, logger)
	taskSvc := tasks.New(db, orderingSvc, embedder, logger)
	groupSvc := groups.New(db, orderingSvc, logger)
	boardSvc := boards.New(db, logger)
	narrativeSvc := narrative.New(db, logger)
	strategySvc := strategy.New(db, logger)
	attachmentSvc := attachments.New(db, blobs, logger)
	searchSvc := search.New(db, embedder, logger)

	// MCP server exposing the assistant tool layer.
	mcpSrv := mcp.New(&assistant.Tools{
		Store:       convStore,
		Initiatives: initiativeSvc,
		Tasks:       taskSvc,
		Boards:      boardSvc,
		Search:      searchSvc,
		Logger:      logger,
	}, logger)

	// Rate limiters: auth is keyed by IP and kept tight, the API and search
	// classes by user. Search is cheaper to abuse (every call embeds).
	authLimiter := ratelimit.NewMemoryLimiter(20.0/60, 10)
	defer func() { _ = authLimiter.Close() }()
	apiLimiter := ratelimit.NewMemoryLimiter(300.0/60, 60)
	defer func() { _ = apiLimiter.Close() }()
	searchLimiter := ratelimit.NewMemoryLimiter(60.0/60, 10)
	defer func() { _ = searchLimiter.Close() }()

	srv := server.New(server.ServerConfig{
		Handlers: server.HandlersDeps{
			DB:                  db,
			JWTMgr:              jwtMgr,
			InitiativeSvc:       initiativeSvc,
			TaskSvc:             taskSvc,
			GroupSvc:            groupSvc,
			BoardSvc:            boardSvc,
			NarrativeSvc:        narrativeSvc,
			StrategySvc:         strategySvc,
			AttachmentSvc:       attachmentSvc,
			SearchSvc:           searchSvc,
			Logger:              logger,
			Version:             version,
			MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
			MaxAttachmentBytes:  cfg.MaxAttachmentBytes,
		},
		AuthLimiter:   authLimiter,
		APILimiter:    apiLimiter,
		SearchLimiter: searchLimiter,
		MCPServer:     mcpSrv.MCPServer(),
		Port:          cfg.Port,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
	})

	// First-boot workspace seed (no-op unless configured).
	if err := srv.SeedWorkspace(ctx, cfg.SeedWorkspaceSlug, cfg.SeedOwnerEmail, cfg.SeedOwnerAPIKey); err != nil {
		slog.Warn("workspace seed failed", "error", err)
	}

	// Start HTTP server in background.
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("heroarc shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	return nil
}
