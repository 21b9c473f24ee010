package sync

import (
	"context"
	"errors"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/sources"
	sourcemocks "github.com/stacklok/toolhive-catalog-sync/internal/sources/mocks"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/memory"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
)

func connectorConfig() *config.ConnectorConfig {
	return &config.ConnectorConfig{
		Name:         "topics",
		Namespace:    testNamespace,
		ResourceType: testResourceType,
		Source:       config.SourceConfig{Type: config.SourceTypeStatic},
		SyncPolicy:   &config.SyncPolicyConfig{Interval: "1m"},
		Readiness: &config.ReadinessConfig{
			RequiredTypes: []string{"KafkaTopic"},
			RetryDelay:    "1ms",
		},
	}
}

// switchableEnumerator returns whatever records it currently holds
type switchableEnumerator struct {
	records []catalog.ExternalRecord
}

func (s *switchableEnumerator) Enumerate(ctx context.Context) iter.Seq2[catalog.ExternalRecord, error] {
	return sources.NewStaticEnumerator(s.records...).Enumerate(ctx)
}

func (*switchableEnumerator) Type() string {
	return config.SourceTypeStatic
}

func TestManager_PerformCycle_Lifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memory.New(memory.WithTypes("KafkaTopic"))
	enumerator := &switchableEnumerator{records: []catalog.ExternalRecord{record("topic-A", "v1")}}
	sink := audit.NewMemorySink()
	manager := NewManager(connectorConfig(), st, enumerator, WithAuditSink(sink))

	// Scenario A
	result, cycleErr := manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, 1, result.RecordCount)
	assert.Equal(t, 0, result.IndexSize)
	assert.Equal(t, map[ActionKind]int{ActionCreateRaw: 1}, result.Actions)
	assert.Equal(t, 1, result.Summary.Applied)
	assert.False(t, result.TemplateResolved)

	// Unchanged source is a no-op
	result, cycleErr = manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, map[ActionKind]int{ActionNoOp: 1}, result.Actions)
	assert.Equal(t, 0, result.Summary.Applied)

	// Scenario B
	enumerator.records = []catalog.ExternalRecord{record("topic-A", "v2")}
	result, cycleErr = manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, map[ActionKind]int{ActionUpdate: 1}, result.Actions)

	// Scenario C
	enumerator.records = nil
	result, cycleErr = manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, map[ActionKind]int{ActionArchive: 1}, result.Actions)

	result, cycleErr = manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, map[ActionKind]int{ActionNoOp: 1}, result.Actions)

	elements, err := st.ListElements(ctx, connectorConfig().QualifiedNamePrefix())
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, catalog.StatusArchived, elements[0].Status)
	assert.Equal(t, "v2", elements[0].Fingerprint)

	assert.Equal(t, 1, sink.Count(audit.CodeTypesAcquired))
	assert.Equal(t, 5, sink.Count(audit.CodeResourcesRetrieved))
	assert.Equal(t, 1, sink.Count(audit.CodeElementCreated))
	assert.Equal(t, 1, sink.Count(audit.CodeElementUpdated))
	assert.Equal(t, 1, sink.Count(audit.CodeElementArchived))
}

func TestManager_PerformCycle_Filter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memory.New(memory.WithTypes("KafkaTopic"))
	enumerator := &switchableEnumerator{records: []catalog.ExternalRecord{
		record("topic-A", "v1"),
		record("tmp-B", "v1"),
	}}
	cfg := connectorConfig()
	cfg.Filter = &config.FilterConfig{
		Names: &config.NameFilterConfig{Exclude: []string{"tmp-*"}},
	}
	manager := NewManager(cfg, st, enumerator)

	result, cycleErr := manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, 1, result.RecordCount)
	assert.Equal(t, 1, result.ExcludedCount)
	assert.Equal(t, map[ActionKind]int{ActionCreateRaw: 1}, result.Actions)

	// A resource that stops passing the filter is removed like a vanished one
	cfg.Filter.Names.Exclude = append(cfg.Filter.Names.Exclude, "topic-*")
	result, cycleErr = manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)
	assert.Equal(t, 0, result.RecordCount)
	assert.Equal(t, 2, result.ExcludedCount)
	assert.Equal(t, map[ActionKind]int{ActionArchive: 1}, result.Actions)
}

func TestManager_PerformCycle_Template(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := connectorConfig()
	cfg.TemplateQualifiedName = "templates::topic"
	records := []catalog.ExternalRecord{record("topic-A", "v1")}

	t.Run("resolved template is used", func(t *testing.T) {
		t.Parallel()
		st := memory.New(
			memory.WithTypes("KafkaTopic"),
			memory.WithTemplates(&catalog.Template{
				QualifiedName: "templates::topic",
				Attributes:    map[string]string{"owner": "platform"},
			}),
		)
		sink := audit.NewMemorySink()
		manager := NewManager(cfg, st, sources.NewStaticEnumerator(records...), WithAuditSink(sink))

		result, cycleErr := manager.PerformCycle(ctx)
		require.Nil(t, cycleErr)
		assert.True(t, result.TemplateResolved)
		assert.Equal(t, map[ActionKind]int{ActionCreateFromTemplate: 1}, result.Actions)

		elements, err := st.ListElements(ctx, cfg.QualifiedNamePrefix())
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "templates::topic", elements[0].TemplateQualifiedName)
		assert.Equal(t, "platform", elements[0].Attributes["owner"])
	})

	t.Run("template attributes survive a fingerprint change", func(t *testing.T) {
		t.Parallel()
		st := memory.New(
			memory.WithTypes("KafkaTopic"),
			memory.WithTemplates(&catalog.Template{
				QualifiedName: "templates::topic",
				Attributes:    map[string]string{"owner": "platform"},
			}),
		)
		enumerator := &switchableEnumerator{records: []catalog.ExternalRecord{record("topic-A", "v1")}}
		manager := NewManager(cfg, st, enumerator)

		result, cycleErr := manager.PerformCycle(ctx)
		require.Nil(t, cycleErr)
		assert.Equal(t, map[ActionKind]int{ActionCreateFromTemplate: 1}, result.Actions)

		enumerator.records = []catalog.ExternalRecord{record("topic-A", "v2")}
		result, cycleErr = manager.PerformCycle(ctx)
		require.Nil(t, cycleErr)
		assert.Equal(t, map[ActionKind]int{ActionUpdate: 1}, result.Actions)

		elements, err := st.ListElements(ctx, cfg.QualifiedNamePrefix())
		require.NoError(t, err)
		require.Len(t, elements, 1)
		assert.Equal(t, "v2", elements[0].Fingerprint)
		assert.Equal(t, "platform", elements[0].Attributes["owner"])
		assert.Equal(t, "templates::topic", elements[0].TemplateQualifiedName)
	})

	t.Run("missing template degrades to raw create", func(t *testing.T) {
		t.Parallel()
		st := memory.New(memory.WithTypes("KafkaTopic"))
		sink := audit.NewMemorySink()
		manager := NewManager(cfg, st, sources.NewStaticEnumerator(records...), WithAuditSink(sink))

		result, cycleErr := manager.PerformCycle(ctx)
		require.Nil(t, cycleErr)
		assert.False(t, result.TemplateResolved)
		assert.Equal(t, map[ActionKind]int{ActionCreateRaw: 1}, result.Actions)
		assert.Equal(t, 1, sink.Count(audit.CodeMissingTemplate))

		events := sink.Events()
		for _, e := range events {
			if e.Code == audit.CodeMissingTemplate {
				assert.Equal(t, audit.SeverityWarning, e.Severity)
			}
		}
	})
}

func TestManager_PerformCycle_EnumerationFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	enumerator := sourcemocks.NewMockEnumerator(ctrl)
	enumerator.EXPECT().Type().Return("api").AnyTimes()
	enumerator.EXPECT().Enumerate(gomock.Any()).Return(
		func(yield func(catalog.ExternalRecord, error) bool) {
			if !yield(record("topic-A", "v1"), nil) {
				return
			}
			yield(catalog.ExternalRecord{}, errors.New("connection reset"))
		})

	st := memory.New(memory.WithTypes("KafkaTopic"))
	_, err := st.CreateElement(context.Background(), createRequest(qn("topic-B")))
	require.NoError(t, err)

	sink := audit.NewMemorySink()
	manager := NewManager(connectorConfig(), st, enumerator, WithAuditSink(sink))

	result, cycleErr := manager.PerformCycle(context.Background())
	assert.Nil(t, result)
	require.NotNil(t, cycleErr)
	assert.Equal(t, ErrorKindEnumeration, cycleErr.Kind)
	assert.False(t, cycleErr.Fatal())
	assert.ErrorIs(t, cycleErr, ErrEnumeration)
	assert.Equal(t, 1, sink.Count(audit.CodeUnableToRetrieveResources))

	// The catalog is untouched
	elements, err := st.ListElements(context.Background(), connectorConfig().QualifiedNamePrefix())
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, catalog.StatusActive, elements[0].Status)
}

func TestManager_PerformCycle_SchemaUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	enumerator := sourcemocks.NewMockEnumerator(ctrl)
	enumerator.EXPECT().Type().Return("static").AnyTimes()
	// Enumerate must never be called

	cfg := connectorConfig()
	cfg.Readiness.MaxAttempts = 3
	sink := audit.NewMemorySink()
	manager := NewManager(cfg, memory.New(), enumerator, WithAuditSink(sink))

	result, cycleErr := manager.PerformCycle(context.Background())
	assert.Nil(t, result)
	require.NotNil(t, cycleErr)
	assert.True(t, cycleErr.Fatal())
	assert.ErrorIs(t, cycleErr, ErrSchemaUnavailable)
	assert.Equal(t, 3, sink.Count(audit.CodeTypesMissing))
	assert.Equal(t, 0, sink.Count(audit.CodeResourcesRetrieved))
}

func TestManager_PerformCycle_Aborted(t *testing.T) {
	t.Parallel()

	cfg := connectorConfig()
	cfg.Readiness.RetryDelay = "1h"
	manager := NewManager(cfg, memory.New(), sources.NewStaticEnumerator())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result, cycleErr := manager.PerformCycle(ctx)
	assert.Nil(t, result)
	require.NotNil(t, cycleErr)
	assert.Equal(t, ErrorKindAborted, cycleErr.Kind)
	assert.False(t, cycleErr.Fatal())
	assert.ErrorIs(t, cycleErr, ErrAborted)
}

func TestManager_PerformCycle_Metrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	syncMetrics, err := telemetry.NewSyncMetrics(mp)
	require.NoError(t, err)
	catalogMetrics, err := telemetry.NewCatalogMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	st := memory.New(memory.WithTypes("KafkaTopic"))
	_, err = st.CreateElement(ctx, createRequest(qn("gone")))
	require.NoError(t, err)

	manager := NewManager(connectorConfig(), st,
		sources.NewStaticEnumerator(record("a", "v1"), record("b", "v1")),
		WithSyncMetrics(syncMetrics),
		WithCatalogMetrics(catalogMetrics),
	)
	_, cycleErr := manager.PerformCycle(ctx)
	require.Nil(t, cycleErr)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	gauges := map[string]int64{}
	var actions int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch m.Name {
			case "catalog_sync_elements":
				gauge, ok := m.Data.(metricdata.Gauge[int64])
				require.True(t, ok)
				for _, dp := range gauge.DataPoints {
					status, _ := dp.Attributes.Value("status")
					gauges[status.AsString()] = dp.Value
				}
			case "catalog_sync_actions_total":
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				for _, dp := range sum.DataPoints {
					actions += dp.Value
				}
			}
		}
	}
	assert.Equal(t, map[string]int64{"ACTIVE": 2, "ARCHIVED": 1}, gauges)
	assert.Equal(t, int64(3), actions)
}
