// Package app provides application lifecycle management for the catalog sync engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/sources"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
)

// CatalogApp encapsulates all components needed to run the catalog connectors
// and their operations API. It provides lifecycle management and graceful
// shutdown capabilities.
type CatalogApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the connectors, the directory watchers and the HTTP server.
// This method blocks until the HTTP server stops or encounters an error
func (app *CatalogApp) Start() error {
	// Start the coordinator in background
	go func() {
		if err := app.components.Coordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	for _, w := range app.components.watches {
		go app.watch(w)
	}

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// watch turns changes of a watched source directory into refresh requests
func (app *CatalogApp) watch(w directoryWatch) {
	err := sources.WatchDirectory(app.ctx, w.path, sources.DefaultWatchDebounce, func() {
		if err := app.components.Coordinator.Refresh(app.ctx, w.connector); err != nil {
			slog.Warn("Failed to request refresh", "connector", w.connector, "error", err)
			return
		}
		slog.Debug("Requested refresh after directory change", "connector", w.connector)
	})
	if err != nil {
		slog.Error("Directory watcher failed", "connector", w.connector, "path", w.path, "error", err)
	}
}

// Stop gracefully stops the application with the given timeout.
// It stops the connectors first, then shuts down the HTTP server
func (app *CatalogApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop connectors first so that running cycles finish their current action
	if err := app.components.Coordinator.Stop(shutdownCtx); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	// Cancel the application context and release storage
	if app.cancelFunc != nil {
		app.cancelFunc()
		app.cancelFunc = nil
	}

	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *CatalogApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *CatalogApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// GetCoordinator returns the coordinator running the connectors
func (app *CatalogApp) GetCoordinator() coordinator.Coordinator {
	return app.components.Coordinator
}

// GetStore returns the metadata store the connectors reconcile into
func (app *CatalogApp) GetStore() store.Store {
	return app.components.Store
}
