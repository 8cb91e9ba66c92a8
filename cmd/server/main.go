package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/fastro/internal/backend"
	"github.com/JonMunkholm/fastro/internal/cache"
	"github.com/JonMunkholm/fastro/internal/catalog"
	"github.com/JonMunkholm/fastro/internal/config"
	"github.com/JonMunkholm/fastro/internal/core"
	_ "github.com/JonMunkholm/fastro/internal/core/tables" // Register built-in tables
	"github.com/JonMunkholm/fastro/internal/importer"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/metrics"
	"github.com/JonMunkholm/fastro/internal/realtime"
	"github.com/JonMunkholm/fastro/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_enabled", cfg.Import.Endpoint != "",
		"storage_enabled", cfg.Storage.Bucket != "",
		"realtime_enabled", cfg.Realtime.Enabled,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	if cfg.Database.Migrate {
		if err := backend.Migrate(pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// Catalog tables extend the built-in ones
	defs, err := catalog.Load(cfg.Tables.CatalogPath)
	if err != nil {
		slog.Error("failed to load table catalog", "path", cfg.Tables.CatalogPath, "error", err)
		os.Exit(1)
	}
	if err := catalog.Register(defs); err != nil {
		slog.Warn("some catalog tables were skipped", "error", err)
	}
	slog.Info("tables registered",
		"count", core.TableCount(),
		"groups", len(core.Groups()),
	)

	queryCache := cache.New(cfg.Cache.TTL)
	m := metrics.New()
	m.WatchCache(queryCache)

	audit := backend.NewAuditStore(pool)
	go backend.StartRetention(ctx, audit, backend.RetentionConfig{
		Retention:     cfg.Audit.Retention,
		CheckInterval: cfg.Audit.CheckInterval,
	})

	deps := web.Deps{
		Store:   backend.New(pool),
		Cache:   queryCache,
		Metrics: m,
		Audit:   audit,
	}

	if cfg.Storage.Bucket != "" {
		store, err := backend.NewStorage(ctx, backend.StorageConfig{
			Endpoint:      cfg.Storage.Endpoint,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			slog.Error("failed to create storage client", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		deps.Storage = store
	}

	if cfg.Realtime.Enabled {
		hub := realtime.NewHub()
		feed := realtime.NewFeed(queryCache, hub, m.Change)
		go func() {
			if err := feed.Run(ctx, pool); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("change feed stopped", "error", err)
			}
		}()
		deps.Hub = hub
	}

	limiter := importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWait)
	deps.Importer = importer.NewClient(importer.Config{
		Endpoint:       cfg.Import.Endpoint,
		DashboardURL:   cfg.Import.DashboardURL,
		MaxBytes:       cfg.Import.MaxBytes,
		BatchThreshold: cfg.Import.BatchThreshold,
		Timeout:        cfg.Import.Timeout,
	}, limiter)

	server := web.NewServer(cfg, deps)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
