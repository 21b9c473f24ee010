package auth

//go:generate mockgen -destination=mocks/mock_validator.go -package=mocks -source=validator.go TokenValidator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

const defaultAcceptableSkew = 30 * time.Second

// TokenValidator checks a bearer token and returns its claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (map[string]any, error)
}

// keySource returns the key set tokens are verified against
type keySource func(ctx context.Context) (jwk.Set, error)

// jwksValidator verifies signed JWTs against a JSON Web Key Set
type jwksValidator struct {
	issuer   string
	audience string
	keys     keySource
}

// newJWKSValidator creates a validator for one provider. A remote key set is
// registered with a background refreshing cache bound to ctx.
func newJWKSValidator(ctx context.Context, p providerConfig) (*jwksValidator, error) {
	v := &jwksValidator{issuer: p.IssuerURL, audience: p.Audience}

	switch {
	case p.JWKSFile != "":
		set, err := jwk.ReadFile(p.JWKSFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read key set %s: %w", p.JWKSFile, err)
		}
		v.keys = func(context.Context) (jwk.Set, error) { return set, nil }
	case p.JWKSURL != "":
		cache, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return nil, fmt.Errorf("failed to create key set cache: %w", err)
		}
		if err := cache.Register(ctx, p.JWKSURL); err != nil {
			return nil, fmt.Errorf("failed to register key set %s: %w", p.JWKSURL, err)
		}
		url := p.JWKSURL
		v.keys = func(ctx context.Context) (jwk.Set, error) { return cache.Lookup(ctx, url) }
	default:
		return nil, fmt.Errorf("provider %q has no key set", p.Name)
	}

	return v, nil
}

// ValidateToken verifies the signature, issuer, audience and time claims of token
func (v *jwksValidator) ValidateToken(ctx context.Context, token string) (map[string]any, error) {
	set, err := v.keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get key set: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAcceptableSkew(defaultAcceptableSkew),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	parsed, err := jwt.Parse([]byte(token), opts...)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claims: %w", err)
	}
	claims := make(map[string]any)
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}
	return claims, nil
}
