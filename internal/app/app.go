package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/Clausewise/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/Clausewise/internal/api/middlewares"
	"github.com/markdave123-py/Clausewise/internal/config"
	"github.com/markdave123-py/Clausewise/internal/core"
	db "github.com/markdave123-py/Clausewise/internal/core/database"
	"github.com/markdave123-py/Clausewise/internal/core/export"
	"github.com/markdave123-py/Clausewise/internal/core/ingestion_engine"
	"github.com/markdave123-py/Clausewise/internal/core/llm"
	objectclient "github.com/markdave123-py/Clausewise/internal/core/object-client"
	"github.com/markdave123-py/Clausewise/internal/core/selection_store"
	"github.com/markdave123-py/Clausewise/internal/services"
)

const ingestWorkers = 2

type App struct {
	DBClient   *db.DatabaseClient
	Selections core.SelectionStore
	Server     *Server

	closers []func() error
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(initCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	a.closers = append(a.closers, dbClient.Close)
	slog.Info("database initialized and ready")

	objClient, err := objectclient.New(initCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	if objClient == nil {
		slog.Warn("object storage disabled, uploads and exports are not archived")
	} else {
		slog.Info("object client initialized and ready", "driver", cfg.StorageDriver)
	}

	if a.Selections, err = a.selectionStore(cfg); err != nil {
		return nil, err
	}

	agent, err := a.reviewAgent(initCtx, cfg)
	if err != nil {
		return nil, err
	}

	deps := services.Deps{
		DB:         dbClient,
		Agent:      agent,
		Extractor:  ingestion_engine.NewDocconvExtractor(false),
		Selections: a.Selections,
		Exporter:   export.NewService(),
		Objects:    objClient,
		Bucket:     cfg.BucketName,
		AITimeout:  cfg.AITimeout,
	}

	if cfg.AIAPIKey != "" {
		embedder, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
		}
		a.closers = append(a.closers, embedder.Close)

		ing := ingestion_engine.NewReferenceIngestor(dbClient, objClient, embedder, deps.Extractor, ingestion_engine.DefaultIngestConfig)
		ing.Start(ctx, ingestWorkers)
		deps.Ingestor = ing
		deps.Retriever = ingestion_engine.NewRetriever(dbClient, embedder, cfg.ReferenceTopK)
		slog.Info("reference library enabled", "embed_model", cfg.EmbedModel, "workers", ingestWorkers)
	} else {
		slog.Warn("GEMINI_API_KEY not set, reference library disabled")
	}

	checks := map[string]handlers.Pinger{"database": dbClient}
	if redis, ok := a.Selections.(handlers.Pinger); ok {
		checks["redis"] = redis
	}

	var auth appMiddleware.Authenticator = appMiddleware.NewStubAuthenticator()
	if cfg.AuthMode == "jwt" {
		auth = appMiddleware.NewJWTAuthenticator(cfg.JWTSecret)
	}

	router := NewRouter(cfg, auth, Handlers{
		Session:   handlers.NewSessionHandler(checks),
		Review:    handlers.NewReviewHandler(services.NewReviewService(deps), cfg.MaxUploadBytes),
		Update:    handlers.NewUpdateHandler(services.NewUpdateService(deps)),
		Reference: handlers.NewReferenceHandler(services.NewReferenceService(deps), cfg.MaxUploadBytes),
	})
	a.Server = NewServer(cfg, router)

	ok = true
	return a, nil
}

// selectionStore connects to Redis when REDIS_URL is set and keeps
// selections in memory otherwise.
func (a *App) selectionStore(cfg *config.Config) (core.SelectionStore, error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, selections are kept in memory")
		return selection_store.NewMemoryStore(), nil
	}
	store, err := selection_store.NewRedisStore(cfg.RedisURL, cfg.SelectionTTL)
	if err != nil {
		return nil, fmt.Errorf("selection store: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	slog.Info("selection store connected", "ttl", cfg.SelectionTTL)
	return store, nil
}

func (a *App) reviewAgent(ctx context.Context, cfg *config.Config) (core.ReviewAgent, error) {
	switch cfg.AIProvider {
	case "gemini":
		model, err := llm.NewGeminiLLM(ctx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		a.closers = append(a.closers, model.Close)
		slog.Info("review agent ready", "provider", "gemini", "model", cfg.GenModel)
		return llm.NewGeminiAgent(model), nil
	case "workflow":
		flows := map[core.Flow]string{
			core.FlowReview:              cfg.ReviewFlowURL,
			core.FlowRevision:            cfg.RevisionFlowURL,
			core.FlowTranslateEnglish:    cfg.TranslateENFlowURL,
			core.FlowTranslateIndonesian: cfg.TranslateIDFlowURL,
			core.FlowTranslateBilingual:  cfg.TranslateBilingualFlowURL,
		}
		for flow, url := range flows {
			if url == "" {
				slog.Warn("agent flow not configured", "flow", flow)
			}
		}
		slog.Info("review agent ready", "provider", "workflow")
		return llm.NewWorkflowClient(flows, cfg.WorkflowAPIKey, cfg.AITimeout), nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AIProvider)
	}
}

// Close releases every client opened by NewApp, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
