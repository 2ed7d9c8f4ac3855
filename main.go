package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-rag/pkg/cache"
	"github.com/ekaya-inc/ekaya-rag/pkg/chunker"
	"github.com/ekaya-inc/ekaya-rag/pkg/config"
	"github.com/ekaya-inc/ekaya-rag/pkg/database"
	"github.com/ekaya-inc/ekaya-rag/pkg/embedding"
	"github.com/ekaya-inc/ekaya-rag/pkg/generator"
	"github.com/ekaya-inc/ekaya-rag/pkg/handlers"
	"github.com/ekaya-inc/ekaya-rag/pkg/logging"
	"github.com/ekaya-inc/ekaya-rag/pkg/memstore"
	"github.com/ekaya-inc/ekaya-rag/pkg/middleware"
	"github.com/ekaya-inc/ekaya-rag/pkg/repositories"
	"github.com/ekaya-inc/ekaya-rag/pkg/services"
	"github.com/ekaya-inc/ekaya-rag/pkg/vectorindex"
)

// Version is set at build time via ldflags
var Version = "dev"

// storage bundles the tenant-scoped stores of one backend.
type storage struct {
	scoper    services.TenantScoper
	pinger    handlers.Pinger
	tenants   repositories.TenantRepository
	documents repositories.DocumentRepository
	queryLogs repositories.QueryLogRepository
	index     vectorindex.Index
	close     func()
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("storage", cfg.Storage.Backend),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("chunk_size", cfg.RAG.ChunkSize),
		zap.Int("chunk_overlap", cfg.RAG.ChunkOverlap))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	cacheStore, closeCache, err := openCache(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	embedder, err := embedding.NewProvider(&cfg.Embedding, &cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("embedding provider: %w", err)
	}
	gen, err := generator.NewGenerator(&cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("response generator: %w", err)
	}
	chunks, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return err
	}

	ingestService := services.NewIngestService(services.IngestDeps{
		Scoper:    store.scoper,
		Tenants:   store.tenants,
		Documents: store.documents,
		Index:     store.index,
		Embedder:  embedder,
		Chunker:   chunks,
	}, logger)
	queryService := services.NewQueryService(services.QueryDeps{
		Scoper:    store.scoper,
		Tenants:   store.tenants,
		QueryLogs: store.queryLogs,
		Index:     store.index,
		Embedder:  embedder,
		Generator: gen,
		Cache:     cache.NewQueryCache(cacheStore, logger),
	}, services.QueryOptionsFromConfig(&cfg.RAG), logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, store.pinger, logger).RegisterRoutes(mux)
	handlers.NewRAGHandler(ingestService, queryService, logger).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.Chain(mux, middleware.Recover(logger), middleware.RequestLogger(logger)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * cfg.LLM.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting ekaya-rag", zap.String("addr", server.Addr), zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	if cfg.Storage.Backend == config.StorageMemory {
		mem := memstore.New(cfg.Embedding.Dimension)
		for _, raw := range cfg.Storage.MemoryTenantList() {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid memory tenant %q: %w", raw, err)
			}
			mem.AddTenant(id, raw)
		}
		logger.Warn("Using in-memory storage; data is lost on restart",
			zap.Int("tenants", len(cfg.Storage.MemoryTenantList())))
		return &storage{
			scoper:    mem,
			pinger:    mem,
			tenants:   mem.Tenants(),
			documents: mem.Documents(),
			queryLogs: mem.QueryLogs(),
			index:     mem.Index(),
			close:     func() {},
		}, nil
	}

	url := cfg.Database.ConnectionString()
	logger.Info("Connecting to database", zap.String("url", logging.SanitizeConnectionString(url)))

	if cfg.Database.RunMigrations {
		sqlDB, err := database.OpenSQL(url)
		if err != nil {
			return nil, fmt.Errorf("open database for migrations: %w", err)
		}
		err = database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger)
		_ = sqlDB.Close()
		if err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            url,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, err
	}

	provider := database.NewTenantScopeProvider(db)
	return &storage{
		scoper:    provider,
		pinger:    provider,
		tenants:   repositories.NewTenantRepository(),
		documents: repositories.NewDocumentRepository(),
		queryLogs: repositories.NewQueryLogRepository(),
		index:     vectorindex.NewPgvectorIndex(cfg.Embedding.Dimension),
		close:     db.Close,
	}, nil
}

func openCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, func(), error) {
	client, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		logger.Info("Redis not configured; using in-process query cache",
			zap.Int("size", cfg.Redis.MemoryCacheSize))
		return cache.NewMemoryStore(cfg.Redis.MemoryCacheSize, cfg.RAG.CacheTTL), func() {}, nil
	}

	logger.Info("Using Redis query cache", zap.String("addr", cfg.Redis.Addr()))
	return cache.NewRedisStore(client), func() { _ = client.Close() }, nil
}
