package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stacklok/toolhive-catalog-sync/internal/api/common"
	"github.com/stacklok/toolhive-catalog-sync/internal/auth"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
	"github.com/stacklok/toolhive-catalog-sync/internal/versions"
)

// ServerOption configures the operations API server
type ServerOption func(*serverConfig)

// serverConfig holds the server configuration
type serverConfig struct {
	middlewares      []func(http.Handler) http.Handler
	metricsHandler   http.Handler
	wellKnownHandler http.Handler
}

// WithMiddlewares adds middleware to the server
func WithMiddlewares(mw ...func(http.Handler) http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithMetricsHandler serves h at /metrics
func WithMetricsHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.metricsHandler = h
	}
}

// WithWellKnownHandler serves the OAuth protected resource metadata
func WithWellKnownHandler(h http.Handler) ServerOption {
	return func(cfg *serverConfig) {
		cfg.wellKnownHandler = h
	}
}

// NewServer creates the HTTP router of the operations API
func NewServer(coord coordinator.Coordinator, opts ...ServerOption) *chi.Mux {
	cfg := &serverConfig{
		middlewares: []func(http.Handler) http.Handler{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		r.Use(mw)
	}

	routes := &routes{coordinator: coord}

	r.Get("/health", healthHandler)
	r.Get("/readiness", routes.readiness)
	r.Get("/version", versionHandler)
	if cfg.metricsHandler != nil {
		r.Handle("/metrics", cfg.metricsHandler)
	}
	if cfg.wellKnownHandler != nil {
		r.Handle(auth.WellKnownPath, cfg.wellKnownHandler)
	}

	r.Route("/v1/connectors", func(r chi.Router) {
		r.Get("/", routes.listConnectors)
		r.Get("/{name}", routes.getConnector)
		r.Post("/{name}/refresh", routes.refreshConnector)
	})

	return r
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type routes struct {
	coordinator coordinator.Coordinator
}

// healthHandler reports that the process is serving requests
func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

// readiness reports ready while every connector is still reconciling
func (rt *routes) readiness(w http.ResponseWriter, _ *http.Request) {
	var stopped []string
	for _, status := range rt.coordinator.Statuses() {
		if status.State == coordinator.StateStopped || status.State == coordinator.StateStopping {
			stopped = append(stopped, status.Name)
		}
	}
	if len(stopped) > 0 {
		common.WriteJSONResponse(w, ReadinessResponse{Status: "not ready", Stopped: stopped},
			http.StatusServiceUnavailable)
		return
	}
	common.WriteJSONResponse(w, ReadinessResponse{Status: "ready"}, http.StatusOK)
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}

func (rt *routes) listConnectors(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, ConnectorListResponse{Connectors: rt.coordinator.Statuses()}, http.StatusOK)
}

func (rt *routes) getConnector(w http.ResponseWriter, r *http.Request) {
	name, err := common.ConnectorName(r)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := rt.coordinator.Status(name)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	common.WriteJSONResponse(w, status, http.StatusOK)
}

func (rt *routes) refreshConnector(w http.ResponseWriter, r *http.Request) {
	name, err := common.ConnectorName(r)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := rt.coordinator.Status(name)
	if err != nil {
		writeCoordinatorError(w, err)
		return
	}
	if status.State == coordinator.StateStopped || status.State == coordinator.StateStopping {
		common.WriteErrorResponse(w, "connector "+name+" is "+string(status.State), http.StatusConflict)
		return
	}

	if err := rt.coordinator.Refresh(r.Context(), name); err != nil {
		writeCoordinatorError(w, err)
		return
	}
	slog.InfoContext(r.Context(), "Refresh requested",
		"connector", name,
		"requested_by", auth.Subject(r.Context()))
	common.WriteJSONResponse(w, RefreshResponse{Connector: name, Status: "refresh requested"}, http.StatusAccepted)
}

func writeCoordinatorError(w http.ResponseWriter, err error) {
	if errors.Is(err, coordinator.ErrUnknownConnector) {
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
		return
	}
	slog.Error("Connector request failed", "error", err)
	common.WriteErrorResponse(w, "internal error", http.StatusInternalServerError)
}
