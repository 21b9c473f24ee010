package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/toolhive-catalog-sync/internal/app"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the catalog sync service",
	Long: `Start the poll scheduler for every configured connector together with the
operations API (health, readiness, connector status, manual refresh and metrics).

The service requires a configuration file (--config) that specifies:
- The catalog storage (memory, sqlite or database)
- One or more connectors with their source, interval and readiness settings
- Audit and telemetry settings

See examples/ directory for sample configurations.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides api.address)")
	serveCmd.Flags().Duration("graceful-timeout", defaultGracefulTimeout, "Maximum time to wait for running cycles on shutdown")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		slog.Error("Failed to bind address flag", "error", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	slog.Info("Loaded configuration",
		"config", viper.GetString("config"),
		"service", cfg.GetServiceName(),
		"storage", cfg.GetStorageType(),
		"connectors", len(cfg.Connectors))

	gracefulTimeout, err := cmd.Flags().GetDuration("graceful-timeout")
	if err != nil {
		return fmt.Errorf("failed to get graceful-timeout flag: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown telemetry", "error", err)
		}
	}()

	opts := []app.CatalogAppOptions{
		app.WithConfig(cfg),
		app.WithMeterProvider(tel.MeterProvider()),
		app.WithTracerProvider(tel.TracerProvider()),
	}
	if handler := tel.PrometheusHandler(); handler != nil {
		opts = append(opts, app.WithMetricsHandler(handler))
	}
	if address := viper.GetString("address"); address != "" {
		opts = append(opts, app.WithAddress(address))
	}

	// The application context outlives the signal so that Stop can let running cycles finish
	catalogApp, err := app.NewCatalogApp(context.Background(), opts...)
	if err != nil {
		return fmt.Errorf("failed to create catalog sync application: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- catalogApp.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down catalog sync service...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = catalogApp.Stop(gracefulTimeout)
			return fmt.Errorf("catalog sync service failed: %w", err)
		}
	}

	if err := catalogApp.Stop(gracefulTimeout); err != nil {
		slog.Error("Catalog sync service forced to shutdown", "error", err)
		return err
	}

	slog.Info("Catalog sync service shutdown complete")
	return nil
}
