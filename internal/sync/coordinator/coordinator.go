package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/status"
	pkgsync "github.com/stacklok/toolhive-catalog-sync/internal/sync"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/state"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// ErrUnknownConnector is returned for a connector name that is not configured
var ErrUnknownConnector = errors.New("unknown connector")

// ConnectorStatus is a point-in-time view of one connector
type ConnectorStatus struct {
	Name         string              `json:"name"`
	Namespace    string              `json:"namespace"`
	ResourceType string              `json:"resourceType"`
	SourceType   string              `json:"sourceType"`
	State        State               `json:"state"`
	Cycle        *status.CycleStatus `json:"cycle"`
}

// Coordinator manages the schedulers of every configured connector
//
//go:generate mockgen -destination=mocks/mock_coordinator.go -package=mocks github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator Coordinator
type Coordinator interface {
	// Start begins background reconciliation for all connectors.
	// Blocks until every scheduler has stopped.
	Start(ctx context.Context) error

	// Stop gracefully stops every scheduler, see Scheduler.Stop
	Stop(ctx context.Context) error

	// Refresh requests an immediate cycle of the named connector
	Refresh(ctx context.Context, name string) error

	// Statuses returns the status of every connector, sorted by name
	Statuses() []ConnectorStatus

	// Status returns the status of the named connector
	Status(name string) (ConnectorStatus, error)
}

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	schedulers map[string]*Scheduler
	names      []string
	connectors []config.ConnectorConfig

	statusSvc state.ConnectorStateService
	sink      audit.Sink

	syncMetrics *telemetry.SyncMetrics

	startOnce sync.Once
}

var _ Coordinator = (*defaultCoordinator)(nil)

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithSyncMetrics sets the sync metrics for the coordinator
func WithSyncMetrics(metrics *telemetry.SyncMetrics) Option {
	return func(c *defaultCoordinator) {
		c.syncMetrics = metrics
	}
}

// WithAuditSink sets the sink receiving connector lifecycle events
func WithAuditSink(sink audit.Sink) Option {
	return func(c *defaultCoordinator) {
		c.sink = sink
	}
}

// New creates a coordinator running one scheduler per manager
func New(managers []pkgsync.Manager, statusSvc state.ConnectorStateService, opts ...Option) (Coordinator, error) {
	c := &defaultCoordinator{
		schedulers: make(map[string]*Scheduler, len(managers)),
		statusSvc:  statusSvc,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, manager := range managers {
		cfg := manager.Connector()
		if _, exists := c.schedulers[cfg.Name]; exists {
			return nil, fmt.Errorf("duplicate connector %q", cfg.Name)
		}
		c.schedulers[cfg.Name] = NewScheduler(manager,
			WithSchedulerAuditSink(c.sink),
			WithSchedulerMetrics(c.syncMetrics),
			WithStateService(statusSvc),
		)
		c.names = append(c.names, cfg.Name)
		c.connectors = append(c.connectors, *cfg)
	}
	slices.Sort(c.names)
	return c, nil
}

// Start begins background reconciliation for all connectors
func (c *defaultCoordinator) Start(ctx context.Context) error {
	started := false
	c.startOnce.Do(func() { started = true })
	if !started {
		return errAlreadyStarted
	}

	slog.Info("Starting catalog sync coordinator", "connector_count", len(c.schedulers))

	if c.statusSvc != nil {
		if err := c.statusSvc.Initialize(ctx, c.connectors); err != nil {
			return fmt.Errorf("failed to initialize connector cycle status: %w", err)
		}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, name := range c.names {
		scheduler := c.schedulers[name]
		wg.Go(func() {
			if err := scheduler.Start(ctx); err != nil {
				slog.Error("Connector stopped with an error",
					"connector", scheduler.Name(),
					"error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("connector %s: %w", scheduler.Name(), err))
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	slog.Info("Catalog sync coordinator shutting down")
	return errors.Join(errs...)
}

// Stop gracefully stops every scheduler in parallel
func (c *defaultCoordinator) Stop(ctx context.Context) error {
	slog.Info("Stopping catalog sync coordinator")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, scheduler := range c.schedulers {
		wg.Go(func() {
			if err := scheduler.Stop(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (c *defaultCoordinator) Refresh(ctx context.Context, name string) error {
	scheduler, ok := c.schedulers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnector, name)
	}
	scheduler.Refresh(ctx)
	return nil
}

func (c *defaultCoordinator) Statuses() []ConnectorStatus {
	result := make([]ConnectorStatus, 0, len(c.names))
	for _, name := range c.names {
		result = append(result, c.connectorStatus(c.schedulers[name]))
	}
	return result
}

func (c *defaultCoordinator) Status(name string) (ConnectorStatus, error) {
	scheduler, ok := c.schedulers[name]
	if !ok {
		return ConnectorStatus{}, fmt.Errorf("%w: %s", ErrUnknownConnector, name)
	}
	return c.connectorStatus(scheduler), nil
}

func (*defaultCoordinator) connectorStatus(scheduler *Scheduler) ConnectorStatus {
	cfg := scheduler.manager.Connector()
	return ConnectorStatus{
		Name:         cfg.Name,
		Namespace:    cfg.Namespace,
		ResourceType: cfg.ResourceType,
		SourceType:   cfg.Source.GetType(),
		State:        scheduler.State(),
		Cycle:        scheduler.Status(),
	}
}
