package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient"
	"github.com/stacklok/toolhive-catalog-sync/internal/httpclient/mocks"
)

func noWait() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func TestAPIEnumerator_Parse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cfg       config.APIConfig
		body      string
		wantNames []string
		wantFP    map[string]string
		wantAttrs map[string]map[string]string
		errText   string
	}{
		{
			name: "nested items with fingerprint field",
			cfg: config.APIConfig{
				ItemsPath:        "data.topics",
				FingerprintField: "config.version",
				AttributeFields:  map[string]string{"partitions": "config.partitions", "missing": "nope"},
			},
			body: `{"data":{"topics":[
				{"name":"orders","config":{"version":"7","partitions":3}},
				{"name":"payments","config":{"version":"2","partitions":6}}]}}`,
			wantNames: []string{"orders", "payments"},
			wantFP:    map[string]string{"orders": "7", "payments": "2"},
			wantAttrs: map[string]map[string]string{"orders": {"partitions": "3"}},
		},
		{
			name:      "top level array with custom name field",
			cfg:       config.APIConfig{NameField: "id"},
			body:      `[{"id":"a"},{"id":"b"}]`,
			wantNames: []string{"a", "b"},
		},
		{
			name:    "not json",
			body:    `<html>`,
			errText: "not valid JSON",
		},
		{
			name:    "items not an array",
			cfg:     config.APIConfig{ItemsPath: "data"},
			body:    `{"data":{"name":"x"}}`,
			errText: "not an array",
		},
		{
			name:    "item without name",
			body:    `[{"name":"a"},{"title":"b"}]`,
			errText: `item 1 has no "name" field`,
		},
		{
			name:    "item without fingerprint",
			cfg:     config.APIConfig{FingerprintField: "etag"},
			body:    `[{"name":"a"}]`,
			errText: `item "a" has no "etag" field`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)
			client.EXPECT().Get(gomock.Any(), "http://broker/topics").Return([]byte(tt.body), nil)

			cfg := tt.cfg
			cfg.Endpoint = "http://broker/topics"
			e, err := NewAPIEnumerator(&cfg, WithHTTPClient(client), WithBackOff(noWait))
			require.NoError(t, err)

			got, err := Collect(context.Background(), e)
			if tt.errText != "" {
				require.ErrorContains(t, err, tt.errText)
				return
			}
			require.NoError(t, err)

			names := make([]string, 0, len(got))
			for _, r := range got {
				names = append(names, r.Name)
				assert.True(t, r.Present)
				if fp, ok := tt.wantFP[r.Name]; ok {
					assert.Equal(t, fp, r.Fingerprint)
				} else {
					assert.Len(t, r.Fingerprint, 64, "fingerprint defaults to a hash of the item")
				}
				if attrs, ok := tt.wantAttrs[r.Name]; ok {
					assert.Equal(t, attrs, r.Attributes)
				}
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestAPIEnumerator_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"orders"}]`))
	}))
	server.Config.SetKeepAlivesEnabled(false)
	defer server.Close()

	e, err := NewAPIEnumerator(&config.APIConfig{Endpoint: server.URL}, WithBackOff(noWait))
	require.NoError(t, err)
	assert.Equal(t, config.SourceTypeAPI, e.Type())

	got, err := Collect(context.Background(), e)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAPIEnumerator_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(nil, httpclient.NewHTTPError(http.StatusBadGateway, "http://broker", "Bad Gateway")).
		Times(3)

	e, err := NewAPIEnumerator(&config.APIConfig{Endpoint: "http://broker", MaxRetries: 2},
		WithHTTPClient(client), WithBackOff(noWait))
	require.NoError(t, err)

	_, err = Collect(context.Background(), e)
	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
}

func TestAPIEnumerator_PermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Get(gomock.Any(), gomock.Any()).
		Return(nil, httpclient.NewHTTPError(http.StatusNotFound, "http://broker", "Not Found")).
		Times(1)

	e, err := NewAPIEnumerator(&config.APIConfig{Endpoint: "http://broker"},
		WithHTTPClient(client), WithBackOff(noWait))
	require.NoError(t, err)

	_, err = Collect(context.Background(), e)
	require.ErrorContains(t, err, "HTTP 404")
}

func TestAPIEnumerator_Cancelled(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: timeout")).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e, err := NewAPIEnumerator(&config.APIConfig{Endpoint: "http://broker"},
		WithHTTPClient(client), WithBackOff(noWait))
	require.NoError(t, err)

	_, err = Collect(ctx, e)
	require.Error(t, err)
}

func TestNewAPIEnumerator_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewAPIEnumerator(&config.APIConfig{})
	require.Error(t, err)

	_, err = NewAPIEnumerator(&config.APIConfig{Endpoint: "http://x", Timeout: "soon"})
	require.Error(t, err)
}
