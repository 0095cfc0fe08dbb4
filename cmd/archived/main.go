package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aevon-lab/activity-archive/internal/archive"
	"github.com/aevon-lab/activity-archive/internal/archiveapi"
	corecfg "github.com/aevon-lab/activity-archive/internal/core/config"
	"github.com/aevon-lab/activity-archive/internal/core/storage"
	"github.com/aevon-lab/activity-archive/internal/core/storage/filesystem"
	"github.com/aevon-lab/activity-archive/internal/core/storage/postgres"
	"github.com/aevon-lab/activity-archive/internal/core/storage/remote"
	"github.com/aevon-lab/activity-archive/internal/filter"
	"github.com/aevon-lab/activity-archive/internal/ingestion"
	"github.com/aevon-lab/activity-archive/internal/migrations"
	"github.com/aevon-lab/activity-archive/internal/server"
)

func main() {
	configPath := flag.String("config", "archive.yaml", "Path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"source", cfg.Source.Type,
		"ingestion", cfg.Ingestion.Enabled,
		"coarse_step", cfg.Archive.CoarseStep,
		"fast_steps", cfg.Archive.FastSteps,
	)

	opts, err := cfg.Archive.Options()
	if err != nil {
		slog.Error("Invalid archive options", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL), only when something reads or writes it
	var dbAdapter *postgres.Adapter
	var db *sql.DB
	if cfg.NeedsDatabase() {
		dbAdapter, err = postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()
		db = dbAdapter.DB()

		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		if err := dbAdapter.Prepare(); err != nil {
			slog.Error("Failed to prepare database adapter", "error", err)
			os.Exit(1)
		}
	}

	// 3. Archive source
	fetcher, err := newFetcher(cfg, dbAdapter)
	if err != nil {
		slog.Error("Failed to initialize archive source", "type", cfg.Source.Type, "error", err)
		os.Exit(1)
	}

	// 4. Archive engine
	provider := filter.NewSessionFilter(cfg.Archive.Kinds)
	provider.AddSubjects(cfg.Archive.SubjectIDs...)
	ctrl := archive.NewController(fetcher, provider, opts)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode)
	archiveapi.NewHandler(ctrl, provider).RegisterRoutes(srv.Engine)
	if cfg.Ingestion.Enabled {
		ingestion.NewService(dbAdapter, cfg.Server.MaxBodySizeMB, cfg.Ingestion.ListLimit).RegisterRoutes(srv.Engine)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Archive.LoadOnStart {
		ctrl.LoadArchive(ctx, nil)
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	// In-flight fetches are never cut short; give them a bounded grace period.
	closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer closeCancel()
	if err := ctrl.Close(closeCtx); err != nil {
		slog.Warn("Archive load still running at shutdown", "error", err)
	}

	slog.Info("Shutdown complete")
}

func newFetcher(cfg *corecfg.Config, dbAdapter *postgres.Adapter) (storage.RangeFetcher, error) {
	switch cfg.Source.Type {
	case corecfg.SourcePostgres:
		return dbAdapter, nil
	case corecfg.SourceHTTP:
		return remote.NewFetcher(cfg.Source.URL, remote.Options{
			Timeout:   cfg.Source.TimeoutDuration(),
			RateLimit: cfg.Source.RateLimit,
			Burst:     cfg.Source.Burst,
			Headers:   cfg.Source.Headers,
		})
	case corecfg.SourceFile:
		return filesystem.NewFetcher(cfg.Source.Path, cfg.Source.DelayDuration())
	default:
		return nil, fmt.Errorf("unsupported source type %q", cfg.Source.Type)
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
