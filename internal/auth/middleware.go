// Package auth provides bearer token authentication for the operations API.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// errAllProvidersFailed indicates all providers failed during sequential fallback
var errAllProvidersFailed = errors.New("all providers failed to validate token")

// RFC 6750 Section 3 error codes
const (
	errorCodeInvalidRequest = "invalid_request"
	errorCodeInvalidToken   = "invalid_token"
)

// defaultRealm is the default protection space identifier
const defaultRealm = "catalog-sync"

type claimsKey struct{}

// validationResult contains the outcome of token validation
type validationResult struct {
	Provider string
	Error    error
	Claims   map[string]any
}

// namedValidator pairs a validator with its provider name
type namedValidator struct {
	Name      string
	Validator TokenValidator
}

// validatorFactory creates a token validator for one provider
type validatorFactory func(ctx context.Context, p providerConfig) (TokenValidator, error)

// DefaultValidatorFactory verifies tokens against the provider's JSON Web Key Set
var DefaultValidatorFactory validatorFactory = func(ctx context.Context, p providerConfig) (TokenValidator, error) {
	return newJWKSValidator(ctx, p)
}

// multiProviderMiddleware accepts a token signed by any of its providers
type multiProviderMiddleware struct {
	validators  []namedValidator
	resourceURL string
	realm       string
}

func newMultiProviderMiddleware(
	ctx context.Context,
	providers []providerConfig,
	resourceURL string,
	realm string,
	factory validatorFactory,
) (*multiProviderMiddleware, error) {
	if len(providers) == 0 {
		return nil, errors.New("at least one provider must be configured")
	}
	if realm == "" {
		realm = defaultRealm
	}

	m := &multiProviderMiddleware{
		validators:  make([]namedValidator, 0, len(providers)),
		resourceURL: resourceURL,
		realm:       realm,
	}
	for _, pc := range providers {
		validator, err := factory(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("failed to create validator for provider %q: %w", pc.Name, err)
		}
		m.validators = append(m.validators, namedValidator{Name: pc.Name, Validator: validator})
	}
	return m, nil
}

// Middleware rejects requests without a valid bearer token. Claims of an
// accepted token are available to handlers through ClaimsFromContext.
func (m *multiProviderMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			slog.WarnContext(r.Context(), "Token extraction failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusUnauthorized, errorCodeInvalidRequest, "missing or malformed authorization header")
			return
		}

		result := m.validateToken(r.Context(), token)
		if result.Error != nil {
			slog.WarnContext(r.Context(), "Token validation failed",
				"error", result.Error,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w, http.StatusUnauthorized, errorCodeInvalidToken, "token validation failed")
			return
		}

		slog.DebugContext(r.Context(), "Authentication successful",
			"provider", result.Provider,
			"subject", result.Claims["sub"],
			"path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, result.Claims)))
	})
}

func (m *multiProviderMiddleware) validateToken(ctx context.Context, token string) validationResult {
	errs := make([]error, 0, len(m.validators))
	for _, nv := range m.validators {
		claims, err := nv.Validator.ValidateToken(ctx, token)
		if err != nil {
			slog.DebugContext(ctx, "Provider failed to validate token", "provider", nv.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", nv.Name, err))
			continue
		}
		return validationResult{Provider: nv.Name, Claims: claims}
	}
	return validationResult{Error: errors.Join(append([]error{errAllProvidersFailed}, errs...)...)}
}

// extractBearerToken returns the token of an "Authorization: Bearer" header
func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("authorization header required")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", errors.New("authorization header must use the Bearer scheme")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errors.New("bearer token is empty")
	}
	return token, nil
}

// ClaimsFromContext returns the claims of the authenticated caller, if any
func ClaimsFromContext(ctx context.Context) (map[string]any, bool) {
	claims, ok := ctx.Value(claimsKey{}).(map[string]any)
	return claims, ok
}

// Subject returns the "sub" claim of the authenticated caller, or "anonymous"
func Subject(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return "anonymous"
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	return "unknown"
}

// sanitizeHeaderValue removes characters that could enable header injection
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeError writes a JSON error with an RFC 6750 WWW-Authenticate header
func (m *multiProviderMiddleware) writeError(w http.ResponseWriter, status int, errCode, description string) {
	w.Header().Set("Content-Type", "application/json")

	wwwAuth := fmt.Sprintf(`Bearer realm="%s", error="%s", error_description="%s"`,
		sanitizeHeaderValue(m.realm), errCode, sanitizeHeaderValue(description))
	if m.resourceURL != "" {
		wwwAuth += fmt.Sprintf(`, resource_metadata="%s%s"`, sanitizeHeaderValue(m.resourceURL), WellKnownPath)
	}
	w.Header().Set("WWW-Authenticate", wwwAuth)
	w.WriteHeader(status)

	resp := struct {
		Error string `json:"error"`
	}{Error: description}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// WrapWithPublicPaths bypasses authMw for requests matching publicPaths
func WrapWithPublicPaths(
	authMw func(http.Handler) http.Handler,
	publicPaths []string,
) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		authWrappedNext := authMw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicPath(r.URL.Path, publicPaths) {
				next.ServeHTTP(w, r)
				return
			}
			authWrappedNext.ServeHTTP(w, r)
		})
	}
}
