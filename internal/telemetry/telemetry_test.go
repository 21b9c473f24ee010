package telemetry

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// newCollector starts a fake OTLP/HTTP collector and returns its host:port
// and a counter of requests carrying the expected header
func newCollector(t *testing.T, header, value string) (string, *atomic.Int64) {
	t.Helper()
	var withHeader atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if header != "" && r.Header.Get(header) == value {
			withHeader.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return strings.TrimPrefix(server.URL, "http://"), &withHeader
}

func TestNew_NoOp(t *testing.T) {
	t.Parallel()

	for name, opts := range map[string][]Option{
		"no config":      nil,
		"disabled":       {WithTelemetryConfig(&Config{Tracing: &TracingConfig{Enabled: true}})},
		"no sub-section": {WithTelemetryConfig(&Config{Enabled: true})},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tel, err := New(context.Background(), opts...)
			require.NoError(t, err)

			_, ok := tel.TracerProvider().(tracenoop.TracerProvider)
			assert.True(t, ok, "expected no-op tracer provider")
			_, ok = tel.MeterProvider().(metricnoop.MeterProvider)
			assert.True(t, ok, "expected no-op meter provider")
			assert.Nil(t, tel.PrometheusHandler())

			require.NoError(t, tel.Shutdown(context.Background()))
			require.NoError(t, tel.Shutdown(context.Background()))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tel, err := New(context.Background(), WithTelemetryConfig(&Config{
		Enabled: true,
		Tracing: &TracingConfig{Enabled: true, Sampling: 2},
	}))
	require.ErrorContains(t, err, "invalid telemetry configuration")
	assert.Nil(t, tel)
}

func TestNew_SDKProviders(t *testing.T) {
	t.Parallel()

	endpoint, authorized := newCollector(t, "X-Collector-Token", "secret")
	ctx := context.Background()

	tel, err := New(ctx, WithTelemetryConfig(&Config{
		Enabled:  true,
		Endpoint: endpoint,
		Insecure: true,
		Headers:  map[string]string{"X-Collector-Token": "secret"},
		Tracing:  &TracingConfig{Enabled: true, Sampling: 1.0},
		Metrics:  &MetricsConfig{Enabled: true, ExportInterval: "1h"},
	}))
	require.NoError(t, err)

	_, ok := tel.TracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "expected SDK tracer provider")
	_, ok = tel.MeterProvider().(*sdkmetric.MeterProvider)
	require.True(t, ok, "expected SDK meter provider")

	_, span := tel.TracerProvider().Tracer("test").Start(ctx, "cycle")
	span.End()
	counter, err := tel.MeterProvider().Meter("test").Int64Counter("cycles")
	require.NoError(t, err)
	counter.Add(ctx, 1)

	// Shutdown flushes both pipelines to the collector
	require.NoError(t, tel.Shutdown(ctx))
	assert.GreaterOrEqual(t, authorized.Load(), int64(2))
}

func TestTelemetry_PrometheusHandler(t *testing.T) {
	t.Parallel()

	endpoint, _ := newCollector(t, "", "")
	ctx := context.Background()

	tel, err := New(ctx, WithTelemetryConfig(&Config{
		Enabled:  true,
		Endpoint: endpoint,
		Insecure: true,
		Metrics:  &MetricsConfig{Enabled: true, Prometheus: true},
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(ctx) })

	syncMetrics, err := NewSyncMetrics(tel.MeterProvider())
	require.NoError(t, err)
	syncMetrics.RecordAction(ctx, "topics", "create", "success")

	handler := tel.PrometheusHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "catalog_sync_actions_total")
	assert.Contains(t, string(body), `connector="topics"`)
	assert.Contains(t, string(body), "go_goroutines")
}
