package auth

import (
	"path"
	"strings"
)

// DefaultPublicPaths are always served without authentication
var DefaultPublicPaths = []string{"/health", "/readiness", "/version", "/metrics", "/.well-known"}

// providerConfig holds the settings of one token issuer
type providerConfig struct {
	Name      string
	IssuerURL string
	Audience  string
	JWKSURL   string
	JWKSFile  string
}

// IsPublicPath checks if a path should bypass authentication.
// Paths containing encoded separators never match. The path is cleaned before
// matching, and matching is segment aware: /health matches /health/check but
// not /healthcheck.
func IsPublicPath(requestPath string, publicPaths []string) bool {
	lowerPath := strings.ToLower(requestPath)
	if strings.Contains(lowerPath, "%2f") || strings.Contains(lowerPath, "%2e") {
		return false
	}

	cleanPath := path.Clean(requestPath)
	if !strings.HasPrefix(cleanPath, "/") {
		cleanPath = "/" + cleanPath
	}

	for _, publicPath := range publicPaths {
		cleanPublicPath := path.Clean(publicPath)
		if !strings.HasPrefix(cleanPublicPath, "/") {
			cleanPublicPath = "/" + cleanPublicPath
		}

		if cleanPublicPath == "/" {
			return true
		}
		if cleanPath == cleanPublicPath || strings.HasPrefix(cleanPath, cleanPublicPath+"/") {
			return true
		}
	}
	return false
}
