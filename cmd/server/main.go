// Command server is ragcore's process entrypoint: load config, wire every
// component (C1-C7), and serve the HTTP contract. Grounded on the donor's
// internal/agentd/run.go bootstrap shape (load env -> load config -> init
// logger -> init otel with deferred shutdown -> build app -> listen), with
// "build app" generalized from the donor's single monolithic newApp into
// ragcore's module constructors.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ragcore/internal/config"
	"ragcore/internal/documents"
	"ragcore/internal/domain"
	"ragcore/internal/history"
	"ragcore/internal/httpapi"
	"ragcore/internal/modelprovider"
	"ragcore/internal/objectstore"
	"ragcore/internal/observability"
	"ragcore/internal/qa"
	"ragcore/internal/retrieval"
	"ragcore/internal/vectorstore"
)

func main() {
	_ = godotenv.Load(".env")

	path := config.ConfigPath()
	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfgMgr, err := config.NewManager(path, bootLog)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := cfgMgr.Current()

	log := observability.InitLogger(cfg.Observability.LogPath, cfg.API.LogLevel)
	log.Info().Str("config_path", path).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.InitOTel(ctx, cfg.Observability, cfg.App.Environment)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without tracing/metrics export")
		shutdownOTel = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTel(context.Background()) }()

	if cfg.Redis.Enabled {
		cfgMgr.SetPublisher(config.NewRedisPublisher(cfg.Redis))
	}

	app, cleanup, err := buildApp(ctx, cfgMgr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer cleanup(context.Background())

	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed")
		}
	}()

	log.Info().Str("addr", addr).Msg("ragcore listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// buildApp wires every component named in the expanded spec's module list
// and returns the resulting HTTP handler plus a teardown func.
func buildApp(ctx context.Context, cfgMgr *config.Manager, log zerolog.Logger) (http.Handler, func(context.Context), error) {
	cfg := cfgMgr.Current()

	docRepo, histStore, pgPool, err := buildStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := buildVectorStore(ctx, cfg.VectorStore)
	if err != nil {
		return nil, nil, err
	}

	objects, err := buildObjectStore(ctx, cfg.Uploads)
	if err != nil {
		return nil, nil, err
	}

	registry := modelprovider.NewRegistry()
	models := modelprovider.NewManager(registry)
	if err := registerConfiguredModels(ctx, models, cfg, log); err != nil {
		return nil, nil, err
	}

	engine := retrieval.NewEngine(retrieval.ManagerSource(models), store, log)

	pipeline := documents.NewPipeline(documents.PipelineOptions{
		Extractor:    documents.NewFactory(),
		Preprocessor: documents.NewPreprocessor(documents.PreprocessConfig{}, log),
		Splitter: documents.NewRecursiveSplitter(documents.SplitConfig{
			ChunkSize:         cfg.Embeddings.ChunkSize,
			ChunkOverlap:      cfg.Embeddings.ChunkOverlap,
			MinChunkSize:      cfg.Splitting.MinChunkSize,
			MaxChunkSize:      cfg.Splitting.MaxChunkSize,
			PreserveStructure: cfg.Splitting.PreserveStructure,
			GenerateSummary:   cfg.Splitting.GenerateSummary,
			GenerateQuestions: cfg.Splitting.GenerateQuestions,
			SemanticSplit:     cfg.Splitting.SemanticSplit,
		}),
		Embedder:   liveEmbedder{models: models},
		Store:      store,
		Repository: docRepo,
		Logger:     log,
	})

	orchestrator := qa.New(histStore, engine,
		func(ctx context.Context) (qa.Generator, error) { return models.ActiveGeneration(ctx) },
		cfgMgr, qa.WithLogger(log))

	srv := httpapi.NewServer(httpapi.Deps{
		Pipeline:   pipeline,
		Repository: docRepo,
		Objects:    objects,
		History:    histStore,
		QA:         orchestrator,
		Configs:    cfgMgr,
		Models:     models,
		Log:        log,
	})

	cleanup := func(ctx context.Context) {
		models.Cleanup(ctx)
		_ = store.Cleanup(ctx)
		_ = docRepo.Cleanup(ctx)
		_ = histStore.Cleanup(ctx)
		if pgPool != nil {
			pgPool.Close()
		}
	}

	return srv, cleanup, nil
}

// liveEmbedder adapts modelprovider.Manager to documents.Embedder, resolving
// the active embedding model on every call rather than caching it at
// pipeline-construction time, matching the pattern retrieval.Engine and
// qa.Orchestrator already use for every other model capability.
type liveEmbedder struct {
	models *modelprovider.Manager
}

func (l liveEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embed, err := l.models.ActiveEmbedding(ctx)
	if err != nil {
		return nil, err
	}
	return embed.EmbedBatch(ctx, texts)
}

// Describe reports the active embedding model's provider/model/dimension for
// the Vector Record metadata (§3), resolved fresh rather than cached, same
// as EmbedBatch above.
func (l liveEmbedder) Describe(ctx context.Context) (provider, model string, dimensions int) {
	name, ok := l.models.ActiveNames()[domain.ModelTypeEmbedding]
	if !ok {
		return "", "", 0
	}
	cfg, ok := l.models.GetConfigs()[name]
	if !ok {
		return "", "", 0
	}
	if dim, ok := cfg.Config["dimensions"].(int); ok {
		dimensions = dim
	}
	return cfg.Provider, cfg.ModelName, dimensions
}

// buildStores picks the postgres-backed or in-memory document/history stores
// based on cfg.Database.URL: a sqlite URL or an empty URL selects the
// in-memory stores. The vector store is chosen separately, by
// VectorStore.Type, in buildVectorStore.
func buildStores(ctx context.Context, cfg config.AppConfig) (documents.Repository, history.Store, *pgxpool.Pool, error) {
	if strings.HasPrefix(cfg.Database.URL, "sqlite") || cfg.Database.URL == "" {
		return documents.NewMemoryRepository(), history.NewMemoryStore(), nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	docRepo := documents.NewPostgresRepository(pool)
	histStore := history.NewPostgresStore(pool)
	if err := docRepo.Initialize(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("initialize document store: %w", err)
	}
	if err := histStore.Initialize(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("initialize history store: %w", err)
	}
	return docRepo, histStore, pool, nil
}

func buildVectorStore(ctx context.Context, cfg config.VectorStoreConfig) (vectorstore.Store, error) {
	var store vectorstore.Store
	if cfg.Type == "qdrant" {
		qs, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
			DSN:        cfg.Endpoint,
			Collection: cfg.CollectionName,
			Dimension:  cfg.Dimension,
			Metric:     cfg.Metric,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant: %w", err)
		}
		store = qs
	} else {
		store = vectorstore.NewMemoryStore()
	}
	if err := store.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize vector store: %w", err)
	}
	return store, nil
}

func buildObjectStore(ctx context.Context, cfg config.UploadsConfig) (objectstore.ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return objectstore.NewS3Store(ctx, cfg.S3)
	default:
		return objectstore.NewMemoryStore(), nil
	}
}

// registerConfiguredModels seeds the registry with one model per capability
// from cfg.Embeddings/LLM/Reranking and makes each active (§4.7's "at least
// one active model per capability before the first request").
func registerConfiguredModels(ctx context.Context, models *modelprovider.Manager, cfg config.AppConfig, log zerolog.Logger) error {
	seed := func(name string, typ domain.ModelType, provider, modelName string, modelCfg map[string]any) error {
		if provider == "" {
			return nil
		}
		if err := models.AddModel(domain.ModelConfig{
			Name: name, ModelType: typ, Provider: provider, ModelName: modelName, Config: modelCfg, Enabled: true,
		}); err != nil {
			return fmt.Errorf("register %s model: %w", typ, err)
		}
		if err := models.SwitchActive(ctx, name); err != nil {
			log.Warn().Err(err).Str("model", name).Msg("model registered but failed to activate")
		}
		return nil
	}

	if err := seed("embeddings-default", domain.ModelTypeEmbedding, cfg.Embeddings.Provider, cfg.Embeddings.Model, map[string]any{
		"api_key": cfg.Embeddings.APIKey, "base_url": cfg.Embeddings.BaseURL,
		"batch_size": cfg.Embeddings.BatchSize, "timeout_seconds": cfg.Embeddings.TimeoutSec,
		"retry_attempts": cfg.Embeddings.RetryAttempts, "dimensions": cfg.Embeddings.Dimensions,
	}); err != nil {
		return err
	}
	if err := seed("llm-default", domain.ModelTypeLLM, cfg.LLM.Provider, cfg.LLM.Model, map[string]any{
		"api_key": cfg.LLM.APIKey, "base_url": cfg.LLM.BaseURL, "timeout_seconds": cfg.LLM.TimeoutSec,
		"retry_attempts": cfg.LLM.RetryAttempts,
	}); err != nil {
		return err
	}
	if cfg.Retrieval.EnableRerank {
		if err := seed("reranking-default", domain.ModelTypeReranking, cfg.Reranking.Provider, cfg.Reranking.ModelName, map[string]any{
			"api_key": cfg.Reranking.APIKey, "base_url": cfg.Reranking.BaseURL,
			"batch_size": cfg.Reranking.BatchSize, "max_length": cfg.Reranking.MaxLength,
			"max_concurrent_requests": cfg.Reranking.MaxConcurrentRequests,
			"request_interval_ms":     cfg.Reranking.RequestIntervalMS,
			"retry_attempts":          cfg.Reranking.RetryAttempts,
			"enable_fallback":         cfg.Reranking.EnableFallback,
			"fallback_provider":       cfg.Reranking.FallbackProvider,
		}); err != nil {
			return err
		}
	}
	return nil
}
