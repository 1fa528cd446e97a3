// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tokodata/internal/api"
	"github.com/starford/tokodata/internal/cache"
	"github.com/starford/tokodata/internal/canon"
	"github.com/starford/tokodata/internal/datasvc"
	"github.com/starford/tokodata/internal/mcpserver"
	"github.com/starford/tokodata/internal/metrics"
	"github.com/starford/tokodata/internal/source"
	"github.com/starford/tokodata/internal/sse"
)

// runtime bundles the wired components shared by the HTTP and MCP
// entrypoints.
type runtime struct {
	svc        *datasvc.Service
	metrics    *metrics.Registry
	fixtureDir string // non-empty in dir source mode
	cleanup    func()
}

// buildRuntime wires tiers, source, cache store, and the domain
// service from configuration.
func buildRuntime(cfg *Config, logger *slog.Logger, broker *sse.Broker) (*runtime, error) {
	reg := metrics.NewRegistry()

	var session cache.Tier
	sessionFile := cfg.Cache.SessionFile
	if sessionFile == "" {
		sessionFile = filepath.Join(os.TempDir(), "tokodata-session.json")
	}
	session = cache.NewFileTier(sessionFile)

	var (
		durable cache.Tier
		cleanup = func() {}
	)
	if cfg.Cache.SQLitePath != "" {
		sqlTier, err := cache.OpenSQLiteTier(cfg.Cache.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("init durable cache tier: %w", err)
		}
		durable = sqlTier
		cleanup = func() { _ = sqlTier.Close() }
	}

	var (
		src        source.Source
		mut        datasvc.Mutator
		fixtureDir string
	)
	switch cfg.Source.Mode {
	case SourceModeDir:
		dir, err := source.NewDir(cfg.Source.Dir)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init fixture source: %w", err)
		}
		src = dir
		fixtureDir = dir.Root()
	default:
		client := source.NewClient(cfg.Source.BaseURL, cfg.Source.Timeout.Std())
		src = client
		mut = client
	}

	store := cache.New(cache.Config{
		Source:  src,
		TTL:     cfg.Cache.TTL.Std(),
		Session: session,
		Durable: durable,
		Logger:  logger,
		Metrics: reg,
	})

	svc := datasvc.NewService(datasvc.Config{
		Store:   store,
		Mutator: mut,
		Broker:  broker,
		Collections: datasvc.Collections{
			Customers: cfg.Collections.Customers,
			Products:  cfg.Collections.Products,
			Orders:    cfg.Collections.Orders,
			Items:     cfg.Collections.Items,
		},
		Dates: canon.DateOptions{
			DayFirst:         cfg.Locale.DayFirst,
			TwoDigitYearBase: cfg.Locale.TwoDigitYearBase,
		},
		Logger: logger,
	})

	return &runtime{svc: svc, metrics: reg, fixtureDir: fixtureDir, cleanup: cleanup}, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_mode", cfg.Source.Mode),
		slog.Duration("cache_ttl", cfg.Cache.TTL.Std()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := buildRuntime(cfg, logger, broker)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	// Build API router.
	apiRouter := api.NewRouter(rt.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (unauthenticated).
	r.Get("/metrics", rt.metrics.Handler().ServeHTTP)

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// In fixture mode, watch the directory so edited files drop their
	// cache entry.
	if rt.fixtureDir != "" {
		g.Go(func() error {
			return source.Watch(gCtx, rt.fixtureDir, logger, func(table string) {
				_ = rt.svc.InvalidateCollection(table)
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP starts the MCP stdio server. Logs go to stderr because stdout
// carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	rt, err := buildRuntime(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer rt.cleanup()

	logger.Info("MCP server starting on stdio", slog.String("source_mode", cfg.Source.Mode))
	return mcpserver.New(rt.svc).ServeStdio()
}
