package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/filtering"
	"github.com/stacklok/toolhive-catalog-sync/internal/otel"
	"github.com/stacklok/toolhive-catalog-sync/internal/sources"
	"github.com/stacklok/toolhive-catalog-sync/internal/store"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

// Result contains the result of a completed reconciliation cycle.
// A cycle with failed actions still completes; see Summary.Failed.
type Result struct {
	StartedAt        time.Time
	Duration         time.Duration
	RecordCount      int
	ExcludedCount    int
	IndexSize        int
	TemplateResolved bool
	Actions          map[ActionKind]int
	Summary          Summary
}

// Manager runs reconciliation cycles for a single connector
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/toolhive-catalog-sync/internal/sync Manager
type Manager interface {
	// PerformCycle waits for the required metadata types, enumerates the source,
	// diffs it against the catalog and applies the resulting actions
	PerformCycle(ctx context.Context) (*Result, *Error)

	// Connector returns the configuration of the connector being reconciled
	Connector() *config.ConnectorConfig
}

// defaultManager is the default implementation of Manager
type defaultManager struct {
	cfg        *config.ConnectorConfig
	store      store.Store
	enumerator sources.Enumerator
	filter     filtering.FilterService
	log        *audit.Log

	gate     *Gate
	differ   *Differ
	executor *Executor

	syncMetrics    *telemetry.SyncMetrics
	catalogMetrics *telemetry.CatalogMetrics
	tracer         trace.Tracer
}

var _ Manager = (*defaultManager)(nil)

// ManagerOption configures the manager
type ManagerOption func(*defaultManager)

// WithAuditSink sets the sink receiving the connector's audit events
func WithAuditSink(sink audit.Sink) ManagerOption {
	return func(m *defaultManager) {
		m.log = audit.NewLog(sink, m.cfg.Name)
	}
}

// WithSyncMetrics records cycle, action and readiness metrics
func WithSyncMetrics(metrics *telemetry.SyncMetrics) ManagerOption {
	return func(m *defaultManager) {
		m.syncMetrics = metrics
	}
}

// WithCatalogMetrics records the number of elements after each cycle
func WithCatalogMetrics(metrics *telemetry.CatalogMetrics) ManagerOption {
	return func(m *defaultManager) {
		m.catalogMetrics = metrics
	}
}

// WithTracer traces cycles and store mutations
func WithTracer(tracer trace.Tracer) ManagerOption {
	return func(m *defaultManager) {
		m.tracer = tracer
	}
}

// WithFilterService replaces the service applying the connector's resource filter
func WithFilterService(filter filtering.FilterService) ManagerOption {
	return func(m *defaultManager) {
		m.filter = filter
	}
}

// NewManager creates the reconciliation manager of one connector.
// The caller owns st and enumerator.
func NewManager(
	cfg *config.ConnectorConfig, st store.Store, enumerator sources.Enumerator, opts ...ManagerOption,
) Manager {
	m := &defaultManager{
		cfg:        cfg,
		store:      st,
		enumerator: enumerator,
		filter:     filtering.NewDefaultFilterService(),
		log:        audit.NewLog(nil, cfg.Name),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.gate = NewGate(st, m.log,
		WithRetryDelay(cfg.GetRetryDelay()),
		WithMaxAttempts(cfg.GetMaxAttempts()),
		WithGateMetrics(m.syncMetrics),
	)
	m.differ = NewDiffer(cfg.Namespace, cfg.ResourceType, cfg.GetRemovalPolicies())
	m.executor = NewExecutor(st, m.log, cfg.ResourceType,
		WithConcurrency(cfg.Concurrency),
		WithExecutorMetrics(m.syncMetrics),
		WithExecutorTracer(m.tracer),
	)
	return m
}

func (m *defaultManager) Connector() *config.ConnectorConfig {
	return m.cfg
}

// PerformCycle executes one reconciliation cycle
func (m *defaultManager) PerformCycle(ctx context.Context) (*Result, *Error) {
	ctx, span := otel.StartSpan(ctx, m.tracer, "Manager.PerformCycle",
		otel.CycleAttributes(m.cfg.Name, m.cfg.ResourceType, m.enumerator.Type()))
	defer span.End()

	result := &Result{StartedAt: time.Now()}

	if err := m.gate.AwaitReady(ctx, m.cfg.GetRequiredTypes()); err != nil {
		var schemaErr *SchemaUnavailableError
		if errors.As(err, &schemaErr) {
			otel.RecordError(span, err)
			return nil, newError(ErrorKindSchemaUnavailable, err,
				"connector %s stopped: %v", m.cfg.Name, err)
		}
		return nil, newError(ErrorKindAborted, err, "connector %s: %v", m.cfg.Name, err)
	}

	records, err := sources.Collect(ctx, m.enumerator)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newError(ErrorKindAborted, errors.Join(ErrAborted, err),
				"connector %s: enumeration interrupted", m.cfg.Name)
		}
		otel.RecordError(span, err)
		m.log.Record(ctx, audit.CodeUnableToRetrieveResources, m.enumerator.Type(), err)
		return nil, newError(ErrorKindEnumeration, errors.Join(ErrEnumeration, err),
			"connector %s: failed to enumerate %s source: %v", m.cfg.Name, m.enumerator.Type(), err)
	}
	m.log.Record(ctx, audit.CodeResourcesRetrieved, len(records), m.enumerator.Type())

	// Filtered out resources are treated as absent from the source
	filtered := m.filter.ApplyFilters(ctx, records, m.cfg.Filter)
	result.ExcludedCount = len(records) - len(filtered)
	records = filtered
	result.RecordCount = len(records)

	template := m.resolveTemplate(ctx)
	result.TemplateResolved = template != nil

	index, err := LoadIndex(ctx, m.store, m.cfg.QualifiedNamePrefix())
	if err != nil {
		otel.RecordError(span, err)
		return nil, newError(ErrorKindIndex, errors.Join(ErrIndex, err),
			"connector %s: failed to load catalog index: %v", m.cfg.Name, err)
	}
	result.IndexSize = index.Len()

	actions := m.differ.Diff(records, index, template)
	result.Actions = Summarize(actions)
	slog.DebugContext(ctx, "Computed reconciliation actions",
		"connector", m.cfg.Name,
		"records", len(records),
		"elements", index.Len(),
		"actions", len(actions))

	result.Summary = m.executor.ApplyAll(ctx, actions)
	result.Duration = time.Since(result.StartedAt)
	span.SetAttributes(otel.AttrResultCount.Int(result.Summary.Applied))

	m.recordElementCounts(ctx, index, &result.Summary)
	return result, nil
}

// resolveTemplate looks the configured template up once per cycle. A missing
// template degrades creates to CreateRaw.
func (m *defaultManager) resolveTemplate(ctx context.Context) *catalog.Template {
	if m.cfg.TemplateQualifiedName == "" {
		return nil
	}
	template, err := m.store.GetTemplate(ctx, m.cfg.TemplateQualifiedName)
	if err == nil {
		return template
	}
	if !errors.Is(err, store.ErrNotFound) {
		slog.WarnContext(ctx, "Failed to look up template",
			"connector", m.cfg.Name,
			"template", m.cfg.TemplateQualifiedName,
			"error", err)
	}
	m.log.Record(ctx, audit.CodeMissingTemplate, m.cfg.TemplateQualifiedName)
	return nil
}

// recordElementCounts derives the element counts after the cycle from the index
// snapshot and the applied actions
func (m *defaultManager) recordElementCounts(ctx context.Context, index *Index, summary *Summary) {
	if m.catalogMetrics == nil {
		return
	}
	counts := index.CountByStatus()
	for _, outcome := range summary.Outcomes {
		if outcome.Kind != OutcomeApplied {
			continue
		}
		switch outcome.Action.Kind {
		case ActionCreateRaw, ActionCreateFromTemplate:
			counts[catalog.StatusActive]++
		case ActionArchive:
			counts[catalog.StatusActive]--
			counts[catalog.StatusArchived]++
		case ActionDelete:
			counts[outcome.Action.Element.Status]--
		case ActionUpdate:
			if !outcome.Action.Element.IsActive() {
				counts[catalog.StatusArchived]--
				counts[catalog.StatusActive]++
			}
		}
	}
	for status, count := range counts {
		m.catalogMetrics.RecordElements(ctx, m.cfg.Name, string(status), int64(count))
	}
}
