package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/config"
	"github.com/kozaktomas/roll-call/internal/database"
	"github.com/kozaktomas/roll-call/internal/database/postgres"
	"github.com/kozaktomas/roll-call/internal/database/sqlite"
	"github.com/kozaktomas/roll-call/internal/facematch"
	"github.com/kozaktomas/roll-call/internal/fingerprint"
	"github.com/kozaktomas/roll-call/internal/metrics"
)

// engine bundles the attendance service with the resources it owns.
type engine struct {
	cfg      *config.Config
	logger   *slog.Logger
	svc      *attendance.Service
	store    database.Store
	registry *prometheus.Registry
}

// openStore opens the configured storage backend and migrates its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Store, error) {
	switch cfg.Database.Driver {
	case "postgres", "postgresql":
		if cfg.Database.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres driver")
		}
		pool, err := postgres.Open(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		logger.Info("using PostgreSQL backend")
		return pool, nil
	case "sqlite", "sqlite3":
		store, err := sqlite.Open(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database %s: %w", cfg.Database.SQLitePath, err)
		}
		logger.Info("using SQLite backend", "path", cfg.Database.SQLitePath)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown DATABASE_DRIVER %q (want postgres or sqlite)", cfg.Database.Driver)
	}
}

// openEngine loads configuration, opens storage and builds the attendance service.
func openEngine(ctx context.Context) (*engine, error) {
	cfg := config.Load()
	logger := newLogger(cfg.Log)

	metric, err := facematch.ParseMetric(cfg.Matching.Metric)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.NewAttendanceMetrics(registry)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	svc, err := attendance.New(attendance.Options{
		Store:     store,
		Encoder:   fingerprint.NewFaceClient(cfg.Embedding.URL, cfg.Embedding.MaxImageSize, cfg.Embedding.Dim),
		Matcher:   facematch.NewMatcher(metric, cfg.Matching.Threshold, cfg.Matching.Margin),
		Dim:       cfg.Embedding.Dim,
		ExportDir: cfg.Storage.ExportDir,
		ImagesDir: cfg.Storage.ImagesDir,
		Location:  cfg.Location(),
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	if err := svc.Init(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &engine{cfg: cfg, logger: logger, svc: svc, store: store, registry: registry}, nil
}

// Close releases the storage handle.
func (e *engine) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close database", "error", err)
	}
}
