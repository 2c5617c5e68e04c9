// Package application wires configuration, the task store, the import
// service and the HTTP server together for the binaries in cmd/.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/taskimport/internal/config"
	"github.com/JonMunkholm/taskimport/internal/core"
	"github.com/JonMunkholm/taskimport/internal/store"
	"github.com/JonMunkholm/taskimport/internal/web"
	"golang.org/x/sync/errgroup"
)

// Options adjusts how an App is assembled.
type Options struct {
	// DryRun replaces the configured store with an in-memory copy of its
	// folders, projects and tags. The configured store is only read.
	DryRun bool
}

// App is an assembled importer.
type App struct {
	Config  *config.Config
	Store   store.Backend
	Service *core.Service

	closeStore func()
}

// New opens the store named by cfg and builds the import service over it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	svcCfg, err := cfg.Import.ServiceConfig()
	if err != nil {
		return nil, err
	}
	svcCfg.DryRun = opts.DryRun

	backend, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	slog.Info("store opened", "driver", cfg.Database.Driver, "dry_run", opts.DryRun)

	if opts.DryRun {
		scratch, err := store.Scratch(ctx, backend)
		closeStore()
		if err != nil {
			return nil, fmt.Errorf("copy %s store for dry run: %w", cfg.Database.Driver, err)
		}
		backend, closeStore = scratch, func() {}
	}

	return &App{
		Config:     cfg,
		Store:      backend,
		Service:    core.NewService(backend, svcCfg),
		closeStore: closeStore,
	}, nil
}

// Close releases the store.
func (a *App) Close() {
	a.closeStore()
}

// Serve runs the HTTP server until ctx is done, then waits up to the
// configured shutdown timeout for running imports before stopping it.
func (a *App) Serve(ctx context.Context) error {
	server := web.NewServer(a.Service, a.Config.Server, a.Config.Import.MaxFileSize)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(a.Config.Server))
		defer cancel()

		if n := a.Service.ActiveImports(); n > 0 {
			slog.Info("waiting for imports to complete", "active", n)
			if err := a.Service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			}
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func shutdownTimeout(cfg config.ServerConfig) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 30 * time.Second
}
