package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailor-market/api/internal/platform/config"
)

const (
	testAudience = "https://api.tailor.example/internal"
	testIssuer   = "https://accounts.google.com"
)

var oidcNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type oidcFixture struct {
	key     *rsa.PrivateKey
	server  *httptest.Server
	fetches *atomic.Int32
}

func newOIDCFixture(t *testing.T) *oidcFixture {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwk := jose.JSONWebKey{Key: &key.PublicKey, KeyID: "svc-key", Algorithm: jwt.SigningMethodRS256.Alg(), Use: "sig"}
	fetches := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=600")
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	}))
	t.Cleanup(server.Close)
	return &oidcFixture{key: key, server: server, fetches: fetches}
}

func (f *oidcFixture) verifier(t *testing.T, audience string) *ServiceVerifier {
	t.Helper()
	v, err := NewServiceVerifier(config.OIDCConfig{
		JWKSURL:  f.server.URL,
		Audience: audience,
		Issuers:  []string{testIssuer, "https://cloud.google.com/iap"},
	}, WithServiceClock(func() time.Time { return oidcNow }))
	require.NoError(t, err)
	return v
}

func (f *oidcFixture) sign(t *testing.T, mutate func(jwt.MapClaims)) string {
	t.Helper()
	claims := jwt.MapClaims{
		"aud":   []string{testAudience},
		"iss":   testIssuer,
		"sub":   "1234567890",
		"email": "reconciler@tailor.iam.gserviceaccount.com",
		"iat":   float64(oidcNow.Add(-time.Minute).Unix()),
		"exp":   float64(oidcNow.Add(time.Hour).Unix()),
	}
	if mutate != nil {
		mutate(claims)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "svc-key"
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func serveInternal(v *ServiceVerifier, req *http.Request, next http.HandlerFunc) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	v.RequireServiceToken()(next).ServeHTTP(rr, req)
	return rr
}

func TestRequireServiceToken_Success(t *testing.T) {
	fixture := newOIDCFixture(t)
	v := fixture.verifier(t, testAudience)

	var identity *ServiceIdentity
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/internal/transactions/txn_1:reconcile", nil)
		req.Header.Set("Authorization", "Bearer "+fixture.sign(t, nil))
		rr := serveInternal(v, req, func(w http.ResponseWriter, r *http.Request) {
			identity, _ = ServiceIdentityFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		})
		require.Equal(t, http.StatusNoContent, rr.Code)
	}

	require.NotNil(t, identity)
	assert.Equal(t, "reconciler@tailor.iam.gserviceaccount.com", identity.Email)
	assert.Equal(t, testIssuer, identity.Issuer)
	assert.EqualValues(t, 1, fixture.fetches.Load(), "keys are cached for max-age")
}

func TestRequireServiceToken_Rejections(t *testing.T) {
	fixture := newOIDCFixture(t)

	tests := []struct {
		name     string
		audience string
		mutate   func(jwt.MapClaims)
		header   string
		status   int
		code     string
	}{
		{name: "audience mismatch", audience: "https://other.example", status: http.StatusUnauthorized, code: "invalid_token"},
		{name: "issuer mismatch", audience: testAudience, mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example" }, status: http.StatusUnauthorized, code: "invalid_token"},
		{name: "expired", audience: testAudience, mutate: func(c jwt.MapClaims) { c["exp"] = float64(oidcNow.Add(-time.Minute).Unix()) }, status: http.StatusUnauthorized, code: "invalid_token"},
		{name: "missing token", audience: testAudience, header: "-", status: http.StatusUnauthorized, code: "unauthenticated"},
		{name: "audience not configured", audience: "", status: http.StatusServiceUnavailable, code: "verification_unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := fixture.verifier(t, tc.audience)
			req := httptest.NewRequest(http.MethodPost, "/internal/transactions/txn_1:reconcile", nil)
			if tc.header != "-" {
				req.Header.Set("Authorization", "Bearer "+fixture.sign(t, tc.mutate))
			}
			rr := serveInternal(v, req, func(http.ResponseWriter, *http.Request) {
				t.Fatal("handler should not run")
			})
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.code, errorCode(t, rr))
		})
	}
}

func TestRequireServiceToken_IAPAssertion(t *testing.T) {
	fixture := newOIDCFixture(t)
	v := fixture.verifier(t, "/projects/123/global/backendServices/456")

	req := httptest.NewRequest(http.MethodPost, "/internal/transactions/txn_1:reconcile", nil)
	req.Header.Set("X-Goog-Iap-Jwt-Assertion", fixture.sign(t, func(c jwt.MapClaims) {
		c["aud"] = "/projects/123/global/backendServices/456"
		c["iss"] = "https://cloud.google.com/iap"
	}))
	rr := serveInternal(v, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestRequireServiceToken_JWKSUnavailable(t *testing.T) {
	fixture := newOIDCFixture(t)
	token := fixture.sign(t, nil)
	fixture.server.Close()

	v := fixture.verifier(t, testAudience)
	req := httptest.NewRequest(http.MethodPost, "/internal/transactions/txn_1:reconcile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := serveInternal(v, req, func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler should not run")
	})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "verification_unavailable", errorCode(t, rr))
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 600*time.Second, maxAge("public, max-age=600, must-revalidate"))
	assert.Equal(t, defaultJWKSValidity, maxAge("no-cache"))
	assert.Equal(t, defaultJWKSValidity, maxAge("max-age=abc"))
}
