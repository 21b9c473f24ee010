package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/api"
	"github.com/stacklok/toolhive-catalog-sync/internal/app/storage"
	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/auth"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/sources"
	pkgsync "github.com/stacklok/toolhive-catalog-sync/internal/sync"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultWriteTimeout   = 15 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	tracerName = "github.com/stacklok/toolhive-catalog-sync"
)

// CatalogAppOptions is a function that configures the catalog app builder
type CatalogAppOptions func(*catalogAppConfig) error

// catalogAppConfig collects the inputs of a CatalogApp.
// It supports dependency injection for testing while providing sensible defaults for production
type catalogAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	enumeratorFactory sources.EnumeratorFactory
	storageFactory    storage.Factory
	auditSink         audit.Sink

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler

	// Set while building
	closers []io.Closer
}

func baseConfig(opts ...CatalogAppOptions) (*catalogAppConfig, error) {
	cfg := &catalogAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetAPIAddress()
	}

	return cfg, nil
}

// NewCatalogApp builds the connectors, the coordinator driving them and the
// operations API described by the configuration
func NewCatalogApp(
	ctx context.Context,
	opts ...CatalogAppOptions,
) (*CatalogApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	// Create storage factory (single decision point for the storage backend)
	if cfg.storageFactory == nil {
		var factoryOpts []storage.DatabaseFactoryOption
		if cfg.tracerProvider != nil {
			factoryOpts = append(factoryOpts, storage.WithTracer(cfg.tracerProvider.Tracer(tracerName)))
		}
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config, factoryOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded {
			cfg.cleanup()
		}
	}()

	if cfg.auditSink == nil {
		cfg.auditSink, err = buildAuditSink(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build audit sink: %w", err)
		}
	}

	components, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(ctx, cfg, components.Coordinator)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	// Create application context
	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	cancelFunc := func() {
		cancel()
		cfg.cleanup()
	}

	return &CatalogApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// cleanup releases storage and closes the audit file
func (b *catalogAppConfig) cleanup() {
	if b.storageFactory != nil {
		b.storageFactory.Cleanup()
	}
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close resource", "error", err)
		}
	}
	b.closers = nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding the configured one
func WithAddress(addr string) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithEnumeratorFactory allows injecting a custom enumerator factory (for testing)
func WithEnumeratorFactory(f sources.EnumeratorFactory) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.enumeratorFactory = f
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithAuditSink replaces the audit sink built from the audit configuration
func WithAuditSink(sink audit.Sink) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.auditSink = sink
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for sync and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for cycles, store calls and HTTP requests
func WithTracerProvider(tp trace.TracerProvider) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) CatalogAppOptions {
	return func(cfg *catalogAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildAuditSink combines the process log and the optional audit file
func buildAuditSink(b *catalogAppConfig) (audit.Sink, error) {
	auditCfg := b.config.Audit

	var sinks []audit.Sink
	if auditCfg.ShouldLogEvents() {
		sinks = append(sinks, audit.NewSlogSink(slog.Default()))
	}
	if auditCfg != nil && auditCfg.File != "" {
		fileSink, err := audit.NewFileSink(auditCfg.File)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, fileSink)
		sinks = append(sinks, fileSink)
		slog.Info("Audit file enabled", "path", auditCfg.File)
	}

	switch len(sinks) {
	case 0:
		return audit.Discard, nil
	case 1:
		return sinks[0], nil
	default:
		return audit.FanOut(sinks...), nil
	}
}

// buildSyncComponents builds one manager per connector and the coordinator running them
func buildSyncComponents(
	ctx context.Context,
	b *catalogAppConfig,
) (*AppComponents, error) {
	slog.Info("Initializing sync components", "connectors", len(b.config.Connectors))

	if b.enumeratorFactory == nil {
		b.enumeratorFactory = sources.NewEnumeratorFactory()
	}

	st, err := b.storageFactory.CreateStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata store: %w", err)
	}

	stateService, err := b.storageFactory.CreateStateService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create state service: %w", err)
	}

	managerOpts := []pkgsync.ManagerOption{pkgsync.WithAuditSink(b.auditSink)}
	coordOpts := []coordinator.Option{coordinator.WithAuditSink(b.auditSink)}

	// Create metrics if meter provider is configured
	if b.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		if syncMetrics != nil {
			managerOpts = append(managerOpts, pkgsync.WithSyncMetrics(syncMetrics))
			coordOpts = append(coordOpts, coordinator.WithSyncMetrics(syncMetrics))
			slog.Info("Sync metrics enabled")
		}

		catalogMetrics, err := telemetry.NewCatalogMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog metrics: %w", err)
		}
		if catalogMetrics != nil {
			managerOpts = append(managerOpts, pkgsync.WithCatalogMetrics(catalogMetrics))
			slog.Info("Catalog metrics enabled")
		}
	}
	if b.tracerProvider != nil {
		managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(tracerName)))
	}

	managers := make([]pkgsync.Manager, 0, len(b.config.Connectors))
	var watches []directoryWatch
	for i := range b.config.Connectors {
		conn := &b.config.Connectors[i]

		enumerator, err := b.enumeratorFactory.CreateEnumerator(&conn.Source)
		if err != nil {
			return nil, fmt.Errorf("connector %s: failed to create %s enumerator: %w",
				conn.Name, conn.Source.GetType(), err)
		}

		managers = append(managers, pkgsync.NewManager(conn, st, enumerator, managerOpts...))
		audit.NewLog(b.auditSink, conn.Name).Record(ctx, audit.CodeConnectorConfigured,
			conn.ResourceType, enumerator.Type(), conn.GetInterval())

		if dir := conn.Source.Directory; dir != nil && dir.Watch {
			watches = append(watches, directoryWatch{connector: conn.Name, path: dir.Path})
		}
	}

	syncCoordinator, err := coordinator.New(managers, stateService, coordOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}
	slog.Info("Sync components initialized successfully")

	return &AppComponents{
		Coordinator: syncCoordinator,
		Store:       st,
		watches:     watches,
	}, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(
	ctx context.Context,
	b *catalogAppConfig,
	coord coordinator.Coordinator,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	// Use default middlewares if not provided
	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Telemetry middlewares go first to capture every request
	var telemetryMiddlewares []func(http.Handler) http.Handler
	if b.tracerProvider != nil {
		telemetryMiddlewares = append(telemetryMiddlewares, telemetry.TracingMiddleware(b.tracerProvider))
	}
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			telemetryMiddlewares = append(telemetryMiddlewares, metricsMiddleware)
			slog.Info("HTTP metrics middleware enabled")
		}
	}
	middlewares := append(telemetryMiddlewares, b.middlewares...)

	var authCfg *config.AuthConfig
	if b.config != nil && b.config.API != nil {
		authCfg = b.config.API.Auth
	}
	authMiddleware, wellKnownHandler, err := auth.NewAuthMiddleware(ctx, authCfg, auth.DefaultValidatorFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}
	middlewares = append(middlewares, authMiddleware)

	serverOpts := []api.ServerOption{api.WithMiddlewares(middlewares...)}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	if wellKnownHandler != nil {
		serverOpts = append(serverOpts, api.WithWellKnownHandler(wellKnownHandler))
	}
	router := api.NewServer(coord, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
