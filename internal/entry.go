// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/gts/internal/gtsops"
	"github.com/starford/gts/internal/mcpserver"
)

// Run starts the registry server with the given options: it loads every
// configured source, serves the MCP tools over stdio, and (when enabled)
// watches the sources and reloads on change. It returns when the MCP
// transport closes, a shutdown signal arrives, or ctx is cancelled.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logs go to stderr: stdout belongs to the MCP
	// transport.
	logger := app.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("sources", strings.Join(cfg.Sources.Paths, ",")),
		slog.Bool("watch", cfg.Sources.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ops, err := gtsops.NewFromPaths(cfg.Sources.Paths, cfg.Entity, cfg.Compat, logger)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}

	for _, le := range ops.LoadErrors() {
		logger.Warn("artifact skipped",
			slog.String("location", le.Location),
			slog.String("error", le.Message))
	}

	srv := mcpserver.New(ops)

	logger.Info("Server starting...", slog.Int("entities", ops.Store().Len()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	// Watch sources and reload the store on change.
	if cfg.Sources.Watch {
		g.Go(func() error {
			return gtsops.Watch(gCtx, ops, cfg.Sources.Paths, logger, nil)
		})
	}

	// Serve MCP tools over stdio.
	g.Go(func() error {
		defer cancel() // transport closed, stop the watcher too
		if err := srv.Listen(gCtx); err != nil && gCtx.Err() == nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			cancel()
		case <-gCtx.Done():
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
