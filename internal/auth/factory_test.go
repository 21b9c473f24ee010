package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/toolhive-catalog-sync/internal/auth/mocks"
	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

func TestNewAuthMiddleware_Anonymous(t *testing.T) {
	t.Parallel()

	for _, cfg := range []*config.AuthConfig{nil, {}, {Mode: config.AuthModeAnonymous}} {
		mw, wellKnown, err := NewAuthMiddleware(context.Background(), cfg, DefaultValidatorFactory)
		require.NoError(t, err)
		assert.Nil(t, wellKnown)

		rec := httptest.NewRecorder()
		mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/connectors/a/refresh", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestNewAuthMiddleware_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := NewAuthMiddleware(context.Background(), &config.AuthConfig{Mode: "basic"}, DefaultValidatorFactory)
	require.ErrorContains(t, err, "unsupported auth mode: basic")

	_, _, err = NewAuthMiddleware(context.Background(), &config.AuthConfig{Mode: config.AuthModeOAuth}, DefaultValidatorFactory)
	require.ErrorContains(t, err, "oauth configuration is required")

	_, _, err = NewAuthMiddleware(context.Background(), &config.AuthConfig{
		Mode:  config.AuthModeOAuth,
		OAuth: &config.OAuthConfig{Providers: []config.OAuthProviderConfig{{Name: "unknown"}}},
	}, mockFactory(nil))
	require.ErrorContains(t, err, `failed to create validator for provider "unknown"`)
}

func TestNewAuthMiddleware_OAuth(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	validator := mocks.NewMockTokenValidator(ctrl)
	validator.EXPECT().ValidateToken(gomock.Any(), "good").Return(map[string]any{"sub": "alice"}, nil)

	cfg := &config.AuthConfig{
		Mode:        config.AuthModeOAuth,
		PublicPaths: []string{"/docs"},
		OAuth: &config.OAuthConfig{
			ResourceURL: "https://catalog.example.com",
			Providers: []config.OAuthProviderConfig{
				{Name: "corp", IssuerURL: "https://idp.example.com", JWKSFile: "/unused.json"},
			},
		},
	}
	mw, wellKnown, err := NewAuthMiddleware(context.Background(), cfg,
		mockFactory(map[string]TokenValidator{"corp": validator}))
	require.NoError(t, err)
	require.NotNil(t, wellKnown)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path   string
		token  string
		status int
	}{
		{path: "/health", status: http.StatusOK},
		{path: "/docs/index.html", status: http.StatusOK},
		{path: "/v1/connectors", status: http.StatusUnauthorized},
		{path: "/v1/connectors", token: "good", status: http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.token != "" {
			req.Header.Set("Authorization", "Bearer "+tt.token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.path)
	}

	rec := httptest.NewRecorder()
	wellKnown.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, WellKnownPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var metadata protectedResourceMetadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metadata))
	assert.Equal(t, "https://catalog.example.com", metadata.Resource)
	assert.Equal(t, []string{"https://idp.example.com"}, metadata.AuthorizationServers)
	assert.Equal(t, config.DefaultScopes, metadata.ScopesSupported)
}

func TestNewProtectedResourceHandler_Errors(t *testing.T) {
	t.Parallel()

	_, err := newProtectedResourceHandler("", []string{"https://idp"}, nil)
	require.ErrorContains(t, err, "resourceURL is required")

	_, err = newProtectedResourceHandler("https://catalog", nil, nil)
	require.ErrorContains(t, err, "at least one authorization server is required")
}
