package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// CatalogMetricsMeterName is the name used for the catalog metrics meter
	CatalogMetricsMeterName = "github.com/stacklok/toolhive-catalog-sync/catalog"

	// SyncMetricsMeterName is the name used for the sync metrics meter
	SyncMetricsMeterName = "github.com/stacklok/toolhive-catalog-sync/sync"
)

// CatalogMetrics holds the OpenTelemetry instruments for catalog contents
type CatalogMetrics struct {
	elementsTotal metric.Int64Gauge
}

// NewCatalogMetrics creates a new CatalogMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewCatalogMetrics(provider metric.MeterProvider) (*CatalogMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(CatalogMetricsMeterName)

	elementsTotal, err := meter.Int64Gauge(
		"catalog_sync_elements",
		metric.WithDescription("Number of catalog elements owned by each connector, by status"),
		metric.WithUnit("{element}"),
	)
	if err != nil {
		return nil, err
	}

	return &CatalogMetrics{
		elementsTotal: elementsTotal,
	}, nil
}

// RecordElements records the number of elements a connector owns with the given status
func (m *CatalogMetrics) RecordElements(ctx context.Context, connector, status string, count int64) {
	if m == nil || m.elementsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("connector", connector),
		attribute.String("status", status),
	}

	m.elementsTotal.Record(ctx, count, metric.WithAttributes(attrs...))
}

// SyncMetrics holds the OpenTelemetry instruments for reconciliation cycles
type SyncMetrics struct {
	cycleDuration     metric.Float64Histogram
	actionsTotal      metric.Int64Counter
	readinessAttempts metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	cycleDuration, err := meter.Float64Histogram(
		"catalog_sync_cycle_duration_seconds",
		metric.WithDescription("Duration of reconciliation cycles in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	actionsTotal, err := meter.Int64Counter(
		"catalog_sync_actions_total",
		metric.WithDescription("Reconciliation actions applied, by action kind and outcome"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, err
	}

	readinessAttempts, err := meter.Int64Counter(
		"catalog_sync_readiness_attempts_total",
		metric.WithDescription("Failed metadata type readiness checks"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		cycleDuration:     cycleDuration,
		actionsTotal:      actionsTotal,
		readinessAttempts: readinessAttempts,
	}, nil
}

// RecordCycleDuration records the duration of a reconciliation cycle for a connector
func (m *SyncMetrics) RecordCycleDuration(ctx context.Context, connector string, duration time.Duration, success bool) {
	if m == nil || m.cycleDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("connector", connector),
		attribute.Bool("success", success),
	}

	m.cycleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAction counts one applied action
func (m *SyncMetrics) RecordAction(ctx context.Context, connector, action, outcome string) {
	if m == nil || m.actionsTotal == nil {
		return
	}

	m.actionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("connector", connector),
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// RecordReadinessAttempt counts one failed readiness check
func (m *SyncMetrics) RecordReadinessAttempt(ctx context.Context, connector string) {
	if m == nil || m.readinessAttempts == nil {
		return
	}

	m.readinessAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("connector", connector)))
}
