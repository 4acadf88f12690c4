// Package common wires the shared dependency graph for CLI commands:
// configuration, logging, stores, the event bus, and the job manager.
package common

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/siteatlas/internal/analyzer"
	"github.com/jonesrussell/siteatlas/internal/config"
	"github.com/jonesrussell/siteatlas/internal/events"
	"github.com/jonesrussell/siteatlas/internal/fetch"
	"github.com/jonesrussell/siteatlas/internal/logger"
	"github.com/jonesrussell/siteatlas/internal/pipeline"
	"github.com/jonesrussell/siteatlas/internal/sitemap"
	"github.com/jonesrussell/siteatlas/internal/storage"
	"github.com/jonesrussell/siteatlas/internal/vector"
)

// Deps is the assembled dependency graph.
type Deps struct {
	Config   *config.Config
	Logger   logger.Interface
	Store    storage.KnowledgeStore
	Vectors  vector.Store
	Analyzer analyzer.Analyzer
	Bus      *events.Bus
	Manager  *pipeline.Manager
	Sitemaps *sitemap.Generator
	Redis    *redis.Client

	closers []func() error
}

// New builds the dependency graph from the configuration at cfgPath.
func New(cfgPath string) (*Deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logLevel := cfg.Logging.Level
	if cfg.App.Debug {
		logLevel = "debug"
	}
	log, err := logger.New(&logger.Config{
		Level:       logger.Level(logLevel),
		Development: cfg.Logging.Development || cfg.App.Environment == "development",
		Encoding:    cfg.Logging.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	deps := &Deps{
		Config:   cfg,
		Logger:   log,
		Analyzer: analyzer.NewHeuristic(),
	}

	if err = deps.buildStores(); err != nil {
		return nil, err
	}
	deps.buildEvents()

	provider := fetch.NewHTTPProvider(fetch.HTTPConfig{
		UserAgent:      cfg.Explorer.UserAgent,
		RequestTimeout: cfg.Explorer.RequestTimeout,
	}, nil, log)

	pipe := pipeline.New(deps.Store, deps.Vectors, provider, deps.Analyzer, deps.Bus, cfg.Explorer.Retry, log)
	deps.Manager = pipeline.NewManager(pipe, log)
	deps.Sitemaps = sitemap.NewGenerator(deps.Store)

	return deps, nil
}

// buildStores selects the knowledge and vector store backends.
func (d *Deps) buildStores() error {
	switch d.Config.Storage.Backend {
	case storage.BackendPostgres:
		db, err := storage.NewPostgresConnection(storage.PostgresConfig{
			Host:     d.Config.Postgres.Host,
			Port:     strconv.Itoa(d.Config.Postgres.Port),
			User:     d.Config.Postgres.User,
			Password: d.Config.Postgres.Password,
			DBName:   d.Config.Postgres.Database,
			SSLMode:  d.Config.Postgres.SSLMode,
		})
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, db.Close)

		ctx := context.Background()
		store := storage.NewPostgresStore(db)
		if err = store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate knowledge store: %w", err)
		}
		vectors := vector.NewPostgresStore(db)
		if err = vectors.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate vector store: %w", err)
		}
		d.Store = store
		d.Vectors = vectors
	default:
		d.Store = storage.NewMemoryStore()
		d.Vectors = vector.NewMemoryStore()
	}
	return nil
}

// buildEvents assembles the observer bus: always the log observer, plus
// the Redis publisher when Redis is enabled.
func (d *Deps) buildEvents() {
	d.Bus = events.NewBus(d.Logger)
	d.Bus.Subscribe(events.NewLogObserver(d.Logger))

	if !d.Config.Redis.Enabled {
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     d.Config.Redis.Addr,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
	})
	d.Redis = client
	d.closers = append(d.closers, client.Close)
	d.Bus.Subscribe(events.NewRedisObserver(client, "", d.Logger))
}

// Close releases held resources.
func (d *Deps) Close() error {
	var firstErr error
	for _, closeFn := range d.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
