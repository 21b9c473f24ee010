package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/app/storage/mocks"
	"github.com/stacklok/toolhive-catalog-sync/internal/audit"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/sources"
	"github.com/stacklok/toolhive-catalog-sync/internal/store/memory"
	"github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator"
	coordmocks "github.com/stacklok/toolhive-catalog-sync/internal/sync/coordinator/mocks"
	statemocks "github.com/stacklok/toolhive-catalog-sync/internal/sync/state/mocks"
)

// enumeratorFactoryFunc adapts a function to sources.EnumeratorFactory
type enumeratorFactoryFunc func(*config.SourceConfig) (sources.Enumerator, error)

func (f enumeratorFactoryFunc) CreateEnumerator(source *config.SourceConfig) (sources.Enumerator, error) {
	return f(source)
}

// createTestConfig creates a config with one static connector
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Connectors: []config.ConnectorConfig{
			{
				Name:         "topics",
				Namespace:    "kafka",
				ResourceType: "topic",
				Source: config.SourceConfig{
					Static: &config.StaticConfig{
						Resources: []config.ResourceConfig{{Name: "orders", Fingerprint: "v1"}},
					},
				},
				SyncPolicy: &config.SyncPolicyConfig{Interval: "1h"},
			},
		},
	}
}

func TestBaseConfig(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{API: &config.APIServerConfig{Address: ":9090"}}

	tests := []struct {
		name        string
		opts        []CatalogAppOptions
		wantAddress string
		wantErr     string
	}{
		{
			name:    "config is required",
			wantErr: "config is required",
		},
		{
			name:        "address from config",
			opts:        []CatalogAppOptions{WithConfig(cfg)},
			wantAddress: ":9090",
		},
		{
			name:        "default address",
			opts:        []CatalogAppOptions{WithConfig(&config.Config{})},
			wantAddress: config.DefaultAPIAddress,
		},
		{
			name:        "explicit address wins",
			opts:        []CatalogAppOptions{WithConfig(cfg), WithAddress("127.0.0.1:7070")},
			wantAddress: "127.0.0.1:7070",
		},
		{
			name:    "failing option",
			opts:    []CatalogAppOptions{WithConfig(cfg), WithAddress("")},
			wantErr: "address cannot be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			appCfg, err := baseConfig(tt.opts...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddress, appCfg.address)
			assert.Equal(t, defaultRequestTimeout, appCfg.requestTimeout)
			assert.Equal(t, defaultReadTimeout, appCfg.readTimeout)
			assert.Equal(t, defaultWriteTimeout, appCfg.writeTimeout)
			assert.Equal(t, defaultIdleTimeout, appCfg.idleTimeout)
		})
	}
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{name: "port only", addr: ":8080"},
		{name: "localhost", addr: "localhost:8080"},
		{name: "ipv4", addr: "10.0.0.1:8080"},
		{name: "empty", addr: "", wantErr: true},
		{name: "missing port", addr: "127.0.0.1:", wantErr: true},
		{name: "no colon", addr: "8080", wantErr: true},
		{name: "hostname", addr: "example.com:8080", wantErr: true},
		{name: "port out of range", addr: ":99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &catalogAppConfig{}
			err := WithAddress(tt.addr)(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, cfg.address)
		})
	}
}

func TestBuildAuditSink(t *testing.T) {
	t.Parallel()

	disabled := false

	tests := []struct {
		name        string
		audit       func(dir string) *config.AuditConfig
		wantType    any
		wantClosers int
		wantErr     bool
	}{
		{
			name:     "process log by default",
			audit:    func(string) *config.AuditConfig { return nil },
			wantType: audit.NewSlogSink(nil),
		},
		{
			name: "nothing enabled",
			audit: func(string) *config.AuditConfig {
				return &config.AuditConfig{LogEvents: &disabled}
			},
			wantType: audit.Discard,
		},
		{
			name: "file only",
			audit: func(dir string) *config.AuditConfig {
				return &config.AuditConfig{LogEvents: &disabled, File: filepath.Join(dir, "audit.jsonl")}
			},
			wantType:    &audit.FileSink{},
			wantClosers: 1,
		},
		{
			name: "process log and file",
			audit: func(dir string) *config.AuditConfig {
				return &config.AuditConfig{File: filepath.Join(dir, "audit", "events.jsonl")}
			},
			wantType:    audit.FanOut(),
			wantClosers: 1,
		},
		{
			name: "unusable file",
			audit: func(dir string) *config.AuditConfig {
				return &config.AuditConfig{File: dir}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := &catalogAppConfig{config: &config.Config{Audit: tt.audit(t.TempDir())}}
			t.Cleanup(b.cleanup)

			sink, err := buildAuditSink(b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sink)
			assert.Len(t, b.closers, tt.wantClosers)
		})
	}
}

func TestBuildSyncComponents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, factory *mocks.MockFactory, b *catalogAppConfig)
		wantErr string
		check   func(t *testing.T, components *AppComponents, sink *audit.MemorySink)
	}{
		{
			name: "store creation fails",
			setup: func(_ *testing.T, factory *mocks.MockFactory, _ *catalogAppConfig) {
				factory.EXPECT().CreateStore(gomock.Any()).Return(nil, errors.New("disk full"))
			},
			wantErr: "failed to create metadata store: disk full",
		},
		{
			name: "state service creation fails",
			setup: func(_ *testing.T, factory *mocks.MockFactory, _ *catalogAppConfig) {
				factory.EXPECT().CreateStore(gomock.Any()).Return(memory.New(), nil)
				factory.EXPECT().CreateStateService(gomock.Any()).Return(nil, errors.New("no pool"))
			},
			wantErr: "failed to create state service: no pool",
		},
		{
			name: "enumerator creation fails",
			setup: func(t *testing.T, factory *mocks.MockFactory, b *catalogAppConfig) {
				t.Helper()
				factory.EXPECT().CreateStore(gomock.Any()).Return(memory.New(), nil)
				factory.EXPECT().CreateStateService(gomock.Any()).
					Return(statemocks.NewMockConnectorStateService(gomock.NewController(t)), nil)
				b.enumeratorFactory = enumeratorFactoryFunc(func(*config.SourceConfig) (sources.Enumerator, error) {
					return nil, errors.New("bad source")
				})
			},
			wantErr: "connector topics: failed to create static enumerator: bad source",
		},
		{
			name: "one manager per connector",
			setup: func(t *testing.T, factory *mocks.MockFactory, b *catalogAppConfig) {
				t.Helper()
				factory.EXPECT().CreateStore(gomock.Any()).Return(memory.New(), nil)
				factory.EXPECT().CreateStateService(gomock.Any()).
					Return(statemocks.NewMockConnectorStateService(gomock.NewController(t)), nil)

				b.config.Connectors = append(b.config.Connectors, config.ConnectorConfig{
					Name:         "schemas",
					Namespace:    "registry",
					ResourceType: "schema",
					Source: config.SourceConfig{
						Directory: &config.DirectoryConfig{Path: t.TempDir(), Watch: true},
					},
				})
				b.meterProvider = noop.NewMeterProvider()
			},
			check: func(t *testing.T, components *AppComponents, sink *audit.MemorySink) {
				t.Helper()
				statuses := components.Coordinator.Statuses()
				require.Len(t, statuses, 2)
				assert.Equal(t, "schemas", statuses[0].Name)
				assert.Equal(t, config.SourceTypeDirectory, statuses[0].SourceType)
				assert.Equal(t, "topics", statuses[1].Name)
				assert.Equal(t, coordinator.StateIdle, statuses[1].State)

				assert.Equal(t, 2, sink.Count(audit.CodeConnectorConfigured))
				require.Len(t, components.watches, 1)
				assert.Equal(t, "schemas", components.watches[0].connector)
				assert.NotNil(t, components.Store)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			factory := mocks.NewMockFactory(ctrl)
			sink := audit.NewMemorySink()
			b := &catalogAppConfig{
				config:         createTestConfig(t),
				storageFactory: factory,
				auditSink:      sink,
			}
			tt.setup(t, factory, b)

			components, err := buildSyncComponents(context.Background(), b)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, components, sink)
		})
	}
}

func TestBuildHTTPServer(t *testing.T) {
	t.Parallel()

	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})

	tests := []struct {
		name       string
		appCfg     *catalogAppConfig
		path       string
		wantStatus int
	}{
		{
			name:       "default middlewares",
			appCfg:     &catalogAppConfig{address: ":0", requestTimeout: defaultRequestTimeout},
			path:       "/health",
			wantStatus: http.StatusOK,
		},
		{
			name: "custom middlewares and metrics",
			appCfg: &catalogAppConfig{
				address:        ":0",
				middlewares:    []func(http.Handler) http.Handler{},
				meterProvider:  noop.NewMeterProvider(),
				metricsHandler: metricsHandler,
			},
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
		{
			name:       "metrics are not served without a handler",
			appCfg:     &catalogAppConfig{address: ":0", requestTimeout: defaultRequestTimeout},
			path:       "/metrics",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			coord := coordmocks.NewMockCoordinator(ctrl)

			server, err := buildHTTPServer(context.Background(), tt.appCfg, coord)
			require.NoError(t, err)
			assert.Equal(t, ":0", server.Addr)
			assert.Equal(t, tt.appCfg.readTimeout, server.ReadTimeout)

			rec := httptest.NewRecorder()
			server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestNewCatalogApp(t *testing.T) {
	t.Parallel()

	t.Run("missing config", func(t *testing.T) {
		t.Parallel()

		app, err := NewCatalogApp(context.Background())
		require.Error(t, err)
		assert.Nil(t, app)
	})

	t.Run("storage is released when building fails", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		factory := mocks.NewMockFactory(ctrl)
		factory.EXPECT().CreateStore(gomock.Any()).Return(nil, errors.New("boom"))
		factory.EXPECT().Cleanup()

		app, err := NewCatalogApp(context.Background(),
			WithConfig(createTestConfig(t)),
			WithStorageFactory(factory),
			WithAuditSink(audit.Discard),
		)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to build sync components")
		assert.Nil(t, app)
	})

	t.Run("memory storage", func(t *testing.T) {
		t.Parallel()

		cfg := createTestConfig(t)
		app, err := NewCatalogApp(context.Background(),
			WithConfig(cfg),
			WithAddress("127.0.0.1:0"),
			WithAuditSink(audit.Discard),
		)
		require.NoError(t, err)
		t.Cleanup(app.cancelFunc)

		assert.Same(t, cfg, app.GetConfig())
		assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
		require.Len(t, app.GetCoordinator().Statuses(), 1)
	})
}

func TestBuildHTTPServer_OAuth(t *testing.T) {
	t.Parallel()

	jwksFile := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(jwksFile, []byte(`{"keys":[]}`), 0600))

	cfg := createTestConfig(t)
	cfg.API = &config.APIServerConfig{
		Auth: &config.AuthConfig{
			Mode: config.AuthModeOAuth,
			OAuth: &config.OAuthConfig{
				ResourceURL: "https://catalog.example.com",
				Providers: []config.OAuthProviderConfig{
					{Name: "corp", IssuerURL: "https://idp.example.com", JWKSFile: jwksFile},
				},
			},
		},
	}

	ctrl := gomock.NewController(t)
	coord := coordmocks.NewMockCoordinator(ctrl)

	server, err := buildHTTPServer(context.Background(), &catalogAppConfig{
		config:         cfg,
		address:        ":0",
		requestTimeout: defaultRequestTimeout,
	}, coord)
	require.NoError(t, err)

	for path, want := range map[string]int{
		"/health":                               http.StatusOK,
		"/.well-known/oauth-protected-resource": http.StatusOK,
		"/v1/connectors":                        http.StatusUnauthorized,
	} {
		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rec.Code, path)
	}
}
