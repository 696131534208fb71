// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/markdave123-py/integraldb/internal/config"
	"github.com/markdave123-py/integraldb/internal/core"
	db "github.com/markdave123-py/integraldb/internal/core/database"
	"github.com/markdave123-py/integraldb/internal/core/ingestion_engine"
	"github.com/markdave123-py/integraldb/internal/core/llm"
	objectclient "github.com/markdave123-py/integraldb/internal/core/object-client"
	"github.com/markdave123-py/integraldb/internal/core/sources/drive"
	"github.com/markdave123-py/integraldb/internal/core/sources/gmail"
	"github.com/markdave123-py/integraldb/internal/core/sources/google"
	"github.com/markdave123-py/integraldb/internal/core/state"
	"github.com/markdave123-py/integraldb/internal/services"
)

type App struct {
	Config   *config.Config
	DBClient *db.DatabaseClient
	Cache    core.ObjectClient
	Embedder *llm.GeminiEmbedder
	States   *state.Store
	Sync     *services.SyncService
	Docs     *services.DocumentService
	Server   *Server

	logger *slog.Logger
}

// NewApp validates cfg and wires every client. Any error here is a configuration failure
// and no source has been touched.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: database: %w", core.ErrConfiguration, err)
	}
	a.DBClient = dbClient
	logger.Info("database initialized and ready")

	cache, err := newCache(appCtx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: cache: %w", core.ErrConfiguration, err)
	}
	a.Cache = cache

	// construction does not take the timeout: the client lives for the whole process
	embedder, err := llm.NewGeminiEmbedder(ctx, cfg.AIAPIKey, cfg.EmbedModel, cfg.EmbedDim)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	a.Embedder = embedder
	limiter := llm.NewRateLimiter(cfg.EmbedRPS, cfg.EmbedBurst)
	retrying := llm.NewRetryingEmbedder(embedder, limiter, llm.RetryPolicy{
		MaxRetries: cfg.EmbedMaxRetries,
		Backoff:    cfg.EmbedRateLimitBackoff,
	}, logger)

	listers, err := newListers(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a.States = state.NewStore(cfg.StateFile, logger)

	orch, err := ingestion_engine.NewOrchestrator(ingestion_engine.Dependencies{
		Listers:   listers,
		States:    a.States,
		Store:     dbClient,
		Cache:     cache,
		Embedder:  retrying,
		Extractor: ingestion_engine.NewDocconvExtractor(false, logger),
	}, ingestion_engine.IngestConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
		MinTextChars: cfg.MinTextChars,
		Workers:      cfg.SyncWorkers,
	}, logger)
	if err != nil {
		return nil, err
	}

	a.Sync = services.NewSyncService(orch, logger)
	a.Docs = services.NewDocumentService(dbClient, a.States)
	a.Server = NewServer(ctx, cfg, a.Sync, a.Docs, logger)

	ok = true
	return a, nil
}

func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (core.ObjectClient, error) {
	if cfg.CacheBackend == config.CacheS3 {
		c, err := objectclient.NewS3Client(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("object cache ready", "backend", "s3", "bucket", cfg.BucketName)
		return c, nil
	}
	c, err := objectclient.NewLocalClient(cfg.AttachmentDir)
	if err != nil {
		return nil, err
	}
	logger.Info("object cache ready", "backend", "local", "dir", cfg.AttachmentDir)
	return c, nil
}

func newListers(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]core.SourceLister, error) {
	ts, err := google.NewTokenSource(ctx, cfg.GoogleCredentialsFile, cfg.GoogleTokenFile, logger)
	if err != nil {
		return nil, err
	}

	var listers []core.SourceLister
	if cfg.EnableGmail {
		svc, err := google.NewGmailService(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: gmail service: %w", core.ErrConfiguration, err)
		}
		listers = append(listers, gmail.NewLister(svc, gmail.Config{
			Label:      cfg.GmailLabel,
			MaxResults: cfg.GmailMaxResults,
		}, logger))
	}
	if cfg.EnableDrive {
		svc, err := google.NewDriveService(ctx, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: drive service: %w", core.ErrConfiguration, err)
		}
		listers = append(listers, drive.NewLister(svc, cfg.DrivePageSize, logger))
	}
	return listers, nil
}

func (a *App) Close() {
	if a.Sync != nil {
		a.Sync.Wait()
	}
	if a.Embedder != nil {
		_ = a.Embedder.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
