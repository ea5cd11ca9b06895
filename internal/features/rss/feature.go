package rss

import (
	"context"
	"fmt"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/clock"
	"feedwatch/internal/features/rss/handlers"
	"feedwatch/internal/features/rss/migrations"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/services"
	"feedwatch/internal/features/rss/store"
	"feedwatch/internal/features/rss/view"
)

// Feature represents the RSS feed aggregator
type Feature struct {
	*core.BaseFeature
	config       *Config
	store        *store.Store
	migrationMgr *migrations.Manager
	mirror       *services.Mirror
	pipeline     *services.Pipeline
	scheduler    *services.Scheduler
	handlers     *handlers.Handlers
}

// NewFeature creates a new RSS feature. A nil db keeps all state in memory.
func NewFeature(logger *core.Logger, db *core.Database, config *Config) *Feature {
	return newFeature(logger, db, config, services.NewHTTPFetcher(logger, config.fetcherConfig()), clock.Real{})
}

func newFeature(logger *core.Logger, db *core.Database, config *Config, fetcher services.Fetcher, clk clock.Clock) *Feature {
	base := core.NewBaseFeature("rss", "RSS Feed Aggregator", config.Enabled, logger)
	logger = base.Logger()

	table := store.NewTable()
	st := store.New(table.Dispatch)
	view.Register(table, logger)

	var (
		migrationMgr *migrations.Manager
		mirror       *services.Mirror
	)
	if db != nil {
		migrationMgr = migrations.NewManager(db, logger)
		mirror = services.NewMirror(services.NewFeedService(db, logger), services.NewPostService(db, logger), logger)
		mirror.Register(table)
	}

	var pipeline *services.Pipeline
	scheduler := services.NewScheduler(
		services.PollerFunc(func(ctx context.Context, feed models.Feed) { pipeline.Poll(ctx, feed) }),
		clk,
		config.schedulerConfig(),
		logger,
	)
	pipeline = services.NewPipeline(services.PipelineConfig{
		Store:     st,
		Fetcher:   fetcher,
		IDs:       newIDGenerator(config.IDStrategy),
		Scheduler: scheduler,
		Logger:    logger,
		Proxy:     config.FetchProxy,
	})

	return &Feature{
		BaseFeature:  base,
		config:       config,
		store:        st,
		migrationMgr: migrationMgr,
		mirror:       mirror,
		pipeline:     pipeline,
		scheduler:    scheduler,
		handlers:     handlers.NewHandlers(logger, st, pipeline, scheduler),
	}
}

func newIDGenerator(strategy string) services.IDGenerator {
	if strategy == core.IDStrategySequence {
		return services.NewSequenceGenerator()
	}
	return services.UUIDGenerator{}
}

// Init validates the configuration, migrates the database and resumes polling
// of every persisted feed
func (f *Feature) Init(ctx context.Context) error {
	if err := f.BaseFeature.Init(ctx); err != nil {
		return err
	}

	// Validate configuration
	if err := f.config.Validate(); err != nil {
		return core.NewFeatureError(f.Name(), "invalid configuration", err)
	}

	if f.mirror == nil {
		f.Logger().Info("RSS feature initialized without persistence")
		return nil
	}

	// Run migrations
	if err := f.migrationMgr.Migrate(ctx); err != nil {
		return err
	}
	f.mirror.Start()

	feeds, posts, err := f.mirror.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted feeds: %w", err)
	}
	if err := f.pipeline.Restore(ctx, feeds, posts); err != nil {
		return fmt.Errorf("failed to restore feeds: %w", err)
	}

	f.Logger().Info("RSS feature initialized successfully", "feeds", len(feeds), "posts", len(posts))
	return nil
}

// Routes returns the HTTP routes for the RSS feature
func (f *Feature) Routes() []core.Route {
	return f.handlers.Routes()
}

// Shutdown stops every poll task, waits for running polls to return and then
// for the mirror to finish its queued writes
func (f *Feature) Shutdown(ctx context.Context) error {
	f.Logger().Info("Shutting down RSS feature")

	if err := f.scheduler.Stop(ctx); err != nil {
		f.Logger().Error("Failed to stop RSS scheduler", "error", err)
		return err
	}

	if f.mirror != nil {
		if err := f.mirror.Close(ctx); err != nil {
			f.Logger().Error("Failed to drain RSS mirror", "error", err)
			return err
		}
	}

	return f.BaseFeature.Shutdown(ctx)
}

// Store returns the state tree of the feature
func (f *Feature) Store() *store.Store {
	return f.store
}

// Pipeline returns the ingestion pipeline
func (f *Feature) Pipeline() *services.Pipeline {
	return f.pipeline
}
