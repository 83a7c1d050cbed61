package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/cvindex/internal/chunker"
	"github.com/kailas-cloud/cvindex/internal/config"
	dbredis "github.com/kailas-cloud/cvindex/internal/db/redis"
	"github.com/kailas-cloud/cvindex/internal/domain"
	logpkg "github.com/kailas-cloud/cvindex/internal/logger"
	"github.com/kailas-cloud/cvindex/internal/metrics"
	"github.com/kailas-cloud/cvindex/internal/parser"
	"github.com/kailas-cloud/cvindex/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/cvindex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/cvindex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/cvindex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/cvindex/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/cvindex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/cvindex/internal/usecase/search"
	"github.com/kailas-cloud/cvindex/internal/vectorstore"
	"github.com/kailas-cloud/cvindex/internal/version"
	"github.com/kailas-cloud/cvindex/internal/watcher"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting cvindex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_store", cfg.VectorStore.Backend),
		zap.String("vector_store_host", cfg.VectorStore.Host),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterVectorStoreMetrics()

	// Embedder chain: OpenAI -> Cached -> Instrumented. Nil when no model is configured.
	var (
		embedder domain.Embedder
		base     *openaiEmb.Embedder
	)
	if cfg.Embedding.Enabled() {
		var closeCache func()
		embedder, base, closeCache = buildEmbedder(cfg.Embedding, logger)
		defer closeCache()
		logger.Info("Embedder created",
			zap.String("provider", cfg.Embedding.Provider),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
			zap.Bool("cache", cfg.Embedding.Cache.Enabled),
		)
	} else {
		logger.Warn("No embedding model configured, indexing text only")
	}

	kind, err := vectorstore.ParseKind(cfg.VectorStore.Backend)
	if err != nil {
		logger.Fatal("Unknown vector store backend", zap.Error(err))
	}
	opts := []vectorstore.Option{
		vectorstore.WithLogger(logger.Named("vectorstore")),
		vectorstore.WithFilterableFields(cfg.VectorStore.FilterableFields...),
		vectorstore.WithReadyTimeout(time.Duration(cfg.VectorStore.ReadinessTimeout) * time.Second),
		vectorstore.WithHNSW(cfg.VectorStore.HNSWM, cfg.VectorStore.HNSWEFConstruct),
	}
	// A typed nil *Embedder inside the interface would read as "has embedder".
	if embedder != nil {
		opts = append(opts, vectorstore.WithEmbedder(embedder))
	}
	manager, err := vectorstore.New(kind, opts...)
	if err != nil {
		logger.Fatal("Failed to create vector store manager", zap.Error(err))
	}
	store := vectorstore.NewSynchronized(manager)

	if !store.Connect(ctx, vectorstore.ConnectionParams{
		Host:       cfg.VectorStore.Host,
		Port:       cfg.VectorStore.Port,
		APIKey:     cfg.VectorStore.APIKey,
		HTTPS:      cfg.VectorStore.HTTPS,
		PreferGRPC: cfg.VectorStore.PreferGRPC,
		Password:   cfg.VectorStore.Password,
	}) {
		logger.Fatal("Vector store not reachable")
	}
	defer store.Disconnect()

	chunks, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		logger.Fatal("Invalid chunking config", zap.Error(err))
	}
	chunks.WithWordsPerChunk(cfg.Chunking.WordsPerChunk)

	ingestSvc := ingestuc.New(
		parser.New(logger.Named("parser")),
		chunks,
		store,
		cfg.Collections.Personal,
		cfg.Collections.Projects,
	).WithStrategy(chunker.Strategy(cfg.Chunking.Strategy)).WithLogger(logger.Named("ingest"))

	if err := ingestSvc.EnsureCollections(ctx, cfg.Collections.RecreateOnStart); err != nil {
		logger.Fatal("Failed to prepare collections", zap.Error(err))
	}

	searchSvc := searchuc.New(store, cfg.Collections.Personal)

	var embeddingChecker healthuc.EmbeddingChecker
	if base != nil {
		embeddingChecker = newEmbeddingHealthChecker(base)
	}
	healthSvc := healthuc.New(store, embeddingChecker)

	server := chiTransport.NewServer(store, searchSvc, ingestSvc, healthSvc, logger).
		WithMaxUpload(int64(cfg.HTTP.MaxUploadMB) << 20)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	if cfg.Watch.Dir != "" {
		go runInbox(ctx, cfg.Watch, ingestSvc, logger.Named("watcher"))
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// runInbox ingests documents already in the inbox, then watches it for new ones.
func runInbox(ctx context.Context, cfg config.WatchConfig, svc *ingestuc.Service, logger *zap.Logger) {
	report, err := svc.IngestDir(ctx, cfg.Dir)
	if err != nil {
		logger.Error("Inbox backfill failed", zap.Error(err))
	} else {
		logger.Info("Inbox backfill done",
			zap.Int("ingested", len(report.Ingested)),
			zap.Int("failed", len(report.Failed)),
		)
	}

	w := watcher.New(cfg.Dir, svc, logger).
		WithDebounce(time.Duration(cfg.DebounceMs) * time.Millisecond)
	if err := w.Run(ctx); err != nil {
		logger.Error("Inbox watcher stopped", zap.Error(err))
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain and returns it together with the
// base provider (for health checks) and a cleanup func for the cache store.
func buildEmbedder(
	cfg config.EmbeddingConfig, logger *zap.Logger,
) (domain.Embedder, *openaiEmb.Embedder, func()) {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	closeCache := func() {}
	if cfg.Cache.Enabled {
		cacheStore, err := dbredis.NewStore(dbredis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Warn("Embedding cache disabled", zap.Error(err))
		} else {
			closeCache = cacheStore.Close
			embedder = embcache.New(base, cacheStore, metrics.EmbeddingCacheTotal, logger).
				WithTTL(time.Duration(cfg.Cache.TTLHours) * time.Hour)
		}
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Provider, cfg.Model,
		embeddinguc.NewLimiter(cfg.RequestsPerSecond, cfg.Burst), logger,
	).WithBatchSize(cfg.BatchSize)

	return embedder, base, closeCache
}
