package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/stacklok/toolhive-catalog-sync/internal/config"
)

// NewAuthMiddleware creates the authentication middleware described by cfg.
// The returned handler serves the protected resource metadata and is nil when
// no resource URL is configured or authentication is disabled.
func NewAuthMiddleware(
	ctx context.Context,
	cfg *config.AuthConfig,
	factory validatorFactory,
) (func(http.Handler) http.Handler, http.Handler, error) {
	if cfg == nil {
		slog.Info("API authentication disabled")
		return anonymousMiddleware, nil, nil
	}

	switch cfg.Mode {
	case config.AuthModeAnonymous, "":
		slog.Info("API authentication disabled")
		return anonymousMiddleware, nil, nil
	case config.AuthModeOAuth:
		return createOAuthMiddleware(ctx, cfg, factory)
	default:
		return nil, nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

func createOAuthMiddleware(
	ctx context.Context,
	cfg *config.AuthConfig,
	factory validatorFactory,
) (func(http.Handler) http.Handler, http.Handler, error) {
	if cfg.OAuth == nil {
		return nil, nil, errors.New("oauth configuration is required for oauth mode")
	}
	oauth := cfg.OAuth

	providers := make([]providerConfig, len(oauth.Providers))
	issuerURLs := make([]string, len(oauth.Providers))
	for i, p := range oauth.Providers {
		providers[i] = providerConfig{
			Name:      p.Name,
			IssuerURL: p.IssuerURL,
			Audience:  p.Audience,
			JWKSURL:   p.JWKSURL,
			JWKSFile:  p.JWKSFile,
		}
		issuerURLs[i] = p.IssuerURL
	}

	m, err := newMultiProviderMiddleware(ctx, providers, oauth.ResourceURL, oauth.Realm, factory)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create multi-provider middleware: %w", err)
	}

	publicPaths := append(append([]string{}, DefaultPublicPaths...), cfg.PublicPaths...)
	mw := WrapWithPublicPaths(m.Middleware, publicPaths)

	var wellKnown http.Handler
	if oauth.ResourceURL != "" {
		wellKnown, err = newProtectedResourceHandler(oauth.ResourceURL, issuerURLs, oauth.ScopesSupported)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create protected resource handler: %w", err)
		}
	}

	slog.Info("API authentication enabled", "mode", config.AuthModeOAuth, "providers", len(providers))
	return mw, wellKnown, nil
}

// anonymousMiddleware passes requests through without authentication
func anonymousMiddleware(next http.Handler) http.Handler {
	return next
}
