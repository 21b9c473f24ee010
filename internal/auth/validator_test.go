package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.example.com"
	testAudience = "catalog"
)

// newSigningKey returns a private key and the key set publishing its public half
func newSigningKey(t *testing.T, kid string) (jwk.Key, jwk.Set) {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	key, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.ES256()))

	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))
	return key, set
}

func signToken(t *testing.T, key jwk.Key, issuer, audience string, expires time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Audience([]string{audience}).
		Subject("alice").
		IssuedAt(time.Now()).
		Expiration(expires).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.ES256(), key))
	require.NoError(t, err)
	return string(signed)
}

func writeKeySet(t *testing.T, set jwk.Set) string {
	t.Helper()
	data, err := json.Marshal(set)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestJWKSValidator_File(t *testing.T) {
	t.Parallel()

	key, set := newSigningKey(t, "primary")
	otherKey, _ := newSigningKey(t, "primary")

	v, err := newJWKSValidator(t.Context(), providerConfig{
		Name:      "corp",
		IssuerURL: testIssuer,
		Audience:  testAudience,
		JWKSFile:  writeKeySet(t, set),
	})
	require.NoError(t, err)

	hour := time.Now().Add(time.Hour)
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: signToken(t, key, testIssuer, testAudience, hour)},
		{name: "wrong issuer", token: signToken(t, key, "https://evil.example.com", testAudience, hour), wantErr: true},
		{name: "wrong audience", token: signToken(t, key, testIssuer, "other", hour), wantErr: true},
		{name: "expired", token: signToken(t, key, testIssuer, testAudience, time.Now().Add(-time.Hour)), wantErr: true},
		{name: "unknown signer", token: signToken(t, otherKey, testIssuer, testAudience, hour), wantErr: true},
		{name: "not a token", token: "not-a-jwt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := v.ValidateToken(t.Context(), tt.token)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "alice", claims["sub"])
			assert.Equal(t, testIssuer, claims["iss"])
		})
	}
}

func TestJWKSValidator_URL(t *testing.T) {
	t.Parallel()

	key, set := newSigningKey(t, "remote")
	data, err := json.Marshal(set)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	v, err := newJWKSValidator(t.Context(), providerConfig{
		Name:      "remote",
		IssuerURL: testIssuer,
		JWKSURL:   server.URL + "/jwks.json",
	})
	require.NoError(t, err)

	claims, err := v.ValidateToken(t.Context(), signToken(t, key, testIssuer, "any-audience", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims["sub"])
}

func TestNewJWKSValidator_Errors(t *testing.T) {
	t.Parallel()

	_, err := newJWKSValidator(t.Context(), providerConfig{Name: "none", IssuerURL: testIssuer})
	require.ErrorContains(t, err, `provider "none" has no key set`)

	_, err = newJWKSValidator(t.Context(), providerConfig{
		Name:      "missing",
		IssuerURL: testIssuer,
		JWKSFile:  filepath.Join(t.TempDir(), "missing.json"),
	})
	require.ErrorContains(t, err, "failed to read key set")
}
