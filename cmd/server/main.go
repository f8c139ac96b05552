package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/curiolearn/curio-backend/internal/catalog"
	"github.com/curiolearn/curio-backend/internal/completion"
	"github.com/curiolearn/curio-backend/internal/httpapi"
	"github.com/curiolearn/curio-backend/internal/platform/cache"
	"github.com/curiolearn/curio-backend/internal/platform/config"
	"github.com/curiolearn/curio-backend/internal/platform/database"
	"github.com/curiolearn/curio-backend/internal/watch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer deps.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      deps.api.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// dependencies bundles everything main wires together.
type dependencies struct {
	api   *httpapi.Server
	db    *database.DB
	cache *cache.Cache
}

func (d *dependencies) close() {
	if d.cache != nil {
		d.cache.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// buildDependencies assembles the catalog, stores, engine, aggregator, and
// tracker. Seed mode runs everything in memory from YAML files; otherwise
// all state lives in Postgres.
func buildDependencies(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{}

	var (
		cat        catalog.Catalog
		store      completion.Store
		watchStore watch.Store
		events     completion.EventLogger
	)

	if cfg.Seed.Enabled {
		mem, err := catalog.LoadSeed(cfg.Seed.Path)
		if err != nil {
			return nil, fmt.Errorf("loading seed catalog: %w", err)
		}
		slog.Info("catalog seeded from YAML", "path", cfg.Seed.Path)

		cat = mem
		store = completion.NewMemoryStore()
		watchStore = watch.NewMemoryStore()
		events = completion.NewMemoryEventLogger()
	} else {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		deps.db = db

		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, db); err != nil {
				deps.close()
				return nil, fmt.Errorf("migrating database: %w", err)
			}
			slog.Info("database migrated")
		}

		cat, err = catalog.NewPostgres(db.Pool)
		if err != nil {
			deps.close()
			return nil, err
		}
		store, err = completion.NewPostgresStore(db.Pool)
		if err != nil {
			deps.close()
			return nil, err
		}
		watchStore, err = watch.NewPostgresStore(db.Pool)
		if err != nil {
			deps.close()
			return nil, err
		}
		events, err = completion.NewPostgresEventLogger(db.Pool)
		if err != nil {
			deps.close()
			return nil, err
		}
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			// The cache is an optimization; progress reads fall back to
			// source records.
			slog.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			deps.cache = c
		}
	}

	broadcaster := completion.NewBroadcaster()
	aggregator := completion.NewAggregator(completion.AggregatorConfig{
		Catalog:  cat,
		Store:    store,
		Cache:    deps.cache,
		CacheTTL: cfg.Progress.CacheTTL,
	})
	engine := completion.NewEngine(completion.EngineConfig{
		Catalog:     cat,
		Store:       store,
		Events:      events,
		Broadcaster: broadcaster,
		Invalidator: aggregator,
	})
	tracker := watch.NewTracker(watch.TrackerConfig{
		Catalog: cat,
		Store:   watchStore,
	})

	deps.api = httpapi.New(httpapi.Config{
		Engine:      engine,
		Aggregator:  aggregator,
		Tracker:     tracker,
		Broadcaster: broadcaster,
		DB:          deps.db,
		Cache:       deps.cache,
	})
	return deps, nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
