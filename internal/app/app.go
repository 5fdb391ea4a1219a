// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gcsclient "cloud.google.com/go/storage"
	gcppubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/namhuunam/ophim-crawler/internal/catalog"
	catalogmemory "github.com/namhuunam/ophim-crawler/internal/catalog/memory"
	catalogpostgres "github.com/namhuunam/ophim-crawler/internal/catalog/postgres"
	"github.com/namhuunam/ophim-crawler/internal/clock/system"
	"github.com/namhuunam/ophim-crawler/internal/config"
	"github.com/namhuunam/ophim-crawler/internal/crawler"
	collyfetcher "github.com/namhuunam/ophim-crawler/internal/fetcher/colly"
	"github.com/namhuunam/ophim-crawler/internal/hash/sha256"
	"github.com/namhuunam/ophim-crawler/internal/id/uuid"
	"github.com/namhuunam/ophim-crawler/internal/logging"
	"github.com/namhuunam/ophim-crawler/internal/media"
	"github.com/namhuunam/ophim-crawler/internal/metrics"
	publishermemory "github.com/namhuunam/ophim-crawler/internal/publisher/memory"
	publisherpubsub "github.com/namhuunam/ophim-crawler/internal/publisher/pubsub"
	"github.com/namhuunam/ophim-crawler/internal/reconcile"
	"github.com/namhuunam/ophim-crawler/internal/storage"
	storagegcs "github.com/namhuunam/ophim-crawler/internal/storage/gcs"
	storagelocal "github.com/namhuunam/ophim-crawler/internal/storage/local"
	storagememory "github.com/namhuunam/ophim-crawler/internal/storage/memory"
)

// App holds all the shared, long-lived services for the application. It is
// initialized once at startup and passed to the commands that need it.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.Provider
	engine *reconcile.Engine

	// blobDir is non-empty when artwork is cached on the local filesystem
	// and should be served by the HTTP surface.
	blobDir string

	closers []func() error
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Storage exposes the configured blob store.
func (a *App) Storage() storage.Provider { return a.store }

// Engine returns the reconciliation engine.
func (a *App) Engine() *reconcile.Engine { return a.engine }

// BlobDir returns the local artwork directory, or "" when artwork lives
// elsewhere.
func (a *App) BlobDir() string { return a.blobDir }

// New creates and initializes an App from the configuration. It is the
// central point for service construction and fails fast when any critical
// dependency cannot be reached.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}

	if err := a.initStorage(ctx); err != nil {
		return nil, err
	}
	catalogStore, err := a.initCatalog(ctx)
	if err != nil {
		return nil, err
	}
	publisher, err := a.initPublisher(ctx)
	if err != nil {
		return nil, err
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})

	sources := make([]media.SourceConfig, 0, len(cfg.Images.AlternateSources))
	for _, s := range cfg.Images.AlternateSources {
		sources = append(sources, media.SourceConfig{
			Name:     s.Name,
			Endpoint: s.Endpoint,
			Marker:   s.Marker,
		})
	}
	alternates := media.NewAlternateResolver(fetcher, sources, logger)

	pipeline := media.NewPipeline(media.Config{
		Download:     cfg.Images.Download,
		ConvertWebP:  cfg.Images.ConvertWebP,
		ResizeThumb:  media.ResizeConfig(cfg.Images.ResizeThumb),
		ResizePoster: media.ResizeConfig(cfg.Images.ResizePoster),
	}, fetcher, alternates, a.store, logger)

	collector := reconcile.NewCollector(pipeline, logger)
	a.engine = reconcile.NewEngine(reconcile.Config{
		Handler:            cfg.Crawler.Handler,
		Fields:             cfg.Crawler.Fields,
		ExcludedTypes:      cfg.Crawler.ExcludedTypes,
		ExcludedCategories: cfg.Crawler.ExcludedCategories,
		ExcludedRegions:    cfg.Crawler.ExcludedRegions,
		EventTopic:         cfg.PubSub.TopicName,
	}, catalogStore, collector, fetcher, sha256.New(), system.New(), uuid.New(), publisher, logger)

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Provider),
		zap.Bool("postgres", cfg.DB.DSN != ""),
		zap.Bool("pubsub", cfg.PubSub.TopicName != ""),
	)
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.cfg.Storage.Provider {
	case "local":
		store, err := storagelocal.New(storagelocal.Config{
			BaseDir:       a.cfg.Storage.BaseDir,
			PublicBaseURL: a.cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		a.store = store
		a.blobDir = store.BaseDir()
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to create GCS client: %w", err)
		}
		store, err := storagegcs.New(client, storagegcs.Config{Bucket: a.cfg.Storage.GCSBucket})
		if err != nil {
			return fmt.Errorf("failed to initialize GCS storage: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, client.Close)
	case "memory":
		a.store = storagememory.NewBlobStore()
	case "noop":
		a.logger.Info("using no-op storage provider, artwork will not be cached")
		a.store = &storage.NoOpProvider{}
	default:
		return fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
	return nil
}

func (a *App) initCatalog(ctx context.Context) (catalog.Store, error) {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("using in-memory catalog store, records will not survive restarts")
		return catalogmemory.NewStore(), nil
	}
	pool, err := catalogpostgres.Connect(ctx, a.cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })
	return catalogpostgres.NewStore(pool), nil
}

func (a *App) initPublisher(ctx context.Context) (crawler.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" {
		return publishermemory.New(), nil
	}
	client, err := gcppubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	pub := publisherpubsub.New(client)
	a.closers = append(a.closers, pub.Close)
	return pub, nil
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	// Best-effort flush; stderr sync failures are expected on some platforms.
	_ = a.logger.Sync()
}
