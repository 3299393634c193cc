package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/taxonomy-import/internal/config"
	"github.com/JonMunkholm/taxonomy-import/internal/logging"
	"github.com/JonMunkholm/taxonomy-import/internal/snapshot"
	"github.com/JonMunkholm/taxonomy-import/internal/web"
)

// startupTimeout bounds the database connection and first snapshot load.
const startupTimeout = 30 * time.Second

func main() {
	// Load .env file if it exists; real environment variables win
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		cancel()
		slog.Error("failed to open snapshot source", "source", cfg.Snapshot.Source, "error", err)
		os.Exit(1)
	}
	defer closeSource()

	server := web.NewServer(cfg, source)

	// The first load must succeed; serving previews against nothing would
	// classify every row as new.
	if err := server.ReloadSnapshot(ctx); err != nil {
		cancel()
		slog.Error("failed to load snapshot", "source", cfg.Snapshot.Source, "error", err)
		os.Exit(1)
	}
	cancel()

	// Cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go server.StartSnapshotRefresher(jobCtx, cfg.Snapshot.ReloadInterval)

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-idle
	slog.Info("server stopped")
}

// openSource builds the configured snapshot source. The returned close
// func releases any connection pool.
func openSource(ctx context.Context, cfg *config.Config) (snapshot.Source, func(), error) {
	if cfg.Snapshot.Source != config.SourcePostgres {
		slog.Info("reading snapshot from file", "path", cfg.Snapshot.Path)
		return snapshot.NewFileSource(cfg.Snapshot.Path), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	src := snapshot.NewPostgresSource(pool)
	if err := src.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return src, pool.Close, nil
}
