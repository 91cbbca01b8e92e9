package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	jwt "github.com/golang-jwt/jwt/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/tailor-market/api/internal/platform/config"
	"github.com/tailor-market/api/internal/platform/httpx"
)

const (
	authMeterName          = "github.com/tailor-market/api/internal/platform/auth"
	defaultJWKSValidity    = 15 * time.Minute
	defaultJWKSFetchTimeout = 5 * time.Second
)

var (
	// ErrJWKSKeyNotFound is returned when the requested key ID is absent from the JWKS document.
	ErrJWKSKeyNotFound = errors.New("auth: jwks key not found")
	// ErrJWKSFetchFailed wraps transport or decoding errors while refreshing JWKS.
	ErrJWKSFetchFailed = errors.New("auth: jwks fetch failed")
)

// JWKSCache fetches a JSON Web Key Set on demand and keeps it until the response's max-age elapses.
type JWKSCache struct {
	url    string
	client *http.Client
	now    func() time.Time

	mu     sync.Mutex
	keys   map[string]jose.JSONWebKey
	expiry time.Time
}

// NewJWKSCache constructs a cache for url. A nil client uses a 10s-timeout default.
func NewJWKSCache(url string, client *http.Client, now func() time.Time) *JWKSCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if now == nil {
		now = time.Now
	}
	return &JWKSCache{url: url, client: client, now: now}
}

// Key resolves the public key for kid, refetching once when the set is stale or the kid is unknown.
func (c *JWKSCache) Key(ctx context.Context, kid string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fresh := len(c.keys) > 0 && c.now().Before(c.expiry)
	if fresh {
		if jwk, ok := c.keys[kid]; ok {
			return jwk.Key, nil
		}
	}
	if err := c.refreshLocked(ctx); err != nil {
		return nil, err
	}
	if jwk, ok := c.keys[kid]; ok {
		return jwk.Key, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrJWKSKeyNotFound, kid)
}

func (c *JWKSCache) refreshLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultJWKSFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decode jwks: %v", ErrJWKSFetchFailed, err)
	}
	keys := make(map[string]jose.JSONWebKey, len(set.Keys))
	for _, jwk := range set.Keys {
		if jwk.KeyID != "" && jwk.Valid() {
			keys[jwk.KeyID] = jwk
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("%w: empty key set", ErrJWKSFetchFailed)
	}

	c.keys = keys
	c.expiry = c.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	return nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultJWKSValidity
}

// ServiceIdentity is the Google service account that called an internal endpoint.
type ServiceIdentity struct {
	Subject string
	Email   string
	Issuer  string
}

type serviceIdentityContextKey struct{}

// WithServiceIdentity attaches the verified service identity to the request context.
func WithServiceIdentity(ctx context.Context, identity *ServiceIdentity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, serviceIdentityContextKey{}, identity)
}

// ServiceIdentityFromContext retrieves the identity stored by RequireServiceToken.
func ServiceIdentityFromContext(ctx context.Context) (*ServiceIdentity, bool) {
	identity, ok := ctx.Value(serviceIdentityContextKey{}).(*ServiceIdentity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// ServiceVerifier guards /internal routes with Google-signed OIDC tokens.
type ServiceVerifier struct {
	keys     *JWKSCache
	audience string
	issuers  []string
	now      func() time.Time
	logger   *zap.Logger
	outcomes metric.Int64Counter
}

// ServiceVerifierOption customises a ServiceVerifier.
type ServiceVerifierOption func(*serviceVerifierOptions)

type serviceVerifierOptions struct {
	client *http.Client
	now    func() time.Time
	logger *zap.Logger
	meter  metric.Meter
}

// WithJWKSClient overrides the HTTP client used to fetch signing keys.
func WithJWKSClient(client *http.Client) ServiceVerifierOption {
	return func(o *serviceVerifierOptions) { o.client = client }
}

// WithServiceClock injects the clock used for token expiry and key caching.
func WithServiceClock(now func() time.Time) ServiceVerifierOption {
	return func(o *serviceVerifierOptions) { o.now = now }
}

// WithServiceLogger sets the logger for rejected tokens.
func WithServiceLogger(logger *zap.Logger) ServiceVerifierOption {
	return func(o *serviceVerifierOptions) { o.logger = logger }
}

// WithServiceMeter sets the meter recording verification outcomes.
func WithServiceMeter(meter metric.Meter) ServiceVerifierOption {
	return func(o *serviceVerifierOptions) { o.meter = meter }
}

// NewServiceVerifier builds a verifier from the OIDC configuration.
func NewServiceVerifier(cfg config.OIDCConfig, opts ...ServiceVerifierOption) (*ServiceVerifier, error) {
	options := serviceVerifierOptions{now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.meter == nil {
		options.meter = otel.GetMeterProvider().Meter(authMeterName)
	}
	outcomes, err := options.meter.Int64Counter(
		"auth.oidc.verifications",
		metric.WithDescription("Count of internal token verifications by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: register oidc counter: %w", err)
	}

	issuers := make([]string, 0, len(cfg.Issuers))
	for _, issuer := range cfg.Issuers {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			issuers = append(issuers, issuer)
		}
	}
	return &ServiceVerifier{
		keys:     NewJWKSCache(cfg.JWKSURL, options.client, options.now),
		audience: strings.TrimSpace(cfg.Audience),
		issuers:  issuers,
		now:      options.now,
		logger:   options.logger,
		outcomes: outcomes,
	}, nil
}

// RequireServiceToken rejects requests without a valid token for the configured audience and issuers.
// The token is read from the Authorization header or, behind IAP, from X-Goog-Iap-Jwt-Assertion.
func (v *ServiceVerifier) RequireServiceToken() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, status, reason := v.verify(r)
			v.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", reason)))
			if identity == nil {
				v.logger.Warn("internal token rejected", zap.String("reason", reason))
				code := "invalid_token"
				switch status {
				case http.StatusServiceUnavailable:
					code = "verification_unavailable"
				case http.StatusUnauthorized:
					if reason == "token_missing" {
						code = "unauthenticated"
					}
				}
				httpx.WriteError(ctx, w, httpx.NewError(code, "internal token verification failed", status))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithServiceIdentity(ctx, identity)))
		})
	}
}

func (v *ServiceVerifier) verify(r *http.Request) (*ServiceIdentity, int, string) {
	if v == nil || v.keys == nil || v.audience == "" {
		return nil, http.StatusServiceUnavailable, "not_configured"
	}
	raw := serviceToken(r)
	if raw == "" {
		return nil, http.StatusUnauthorized, "token_missing"
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("auth: token missing kid header")
		}
		return v.keys.Key(r.Context(), kid)
	})
	if err != nil {
		if errors.Is(err, ErrJWKSFetchFailed) {
			return nil, http.StatusServiceUnavailable, "jwks_unavailable"
		}
		return nil, http.StatusUnauthorized, "token_invalid"
	}

	now := v.now().Unix()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyIssuedAt(now, false) {
		return nil, http.StatusUnauthorized, "token_expired"
	}
	issuer, _ := claims["iss"].(string)
	if len(v.issuers) > 0 && !slices.Contains(v.issuers, issuer) {
		return nil, http.StatusUnauthorized, "issuer_mismatch"
	}
	if !claims.VerifyAudience(v.audience, true) {
		return nil, http.StatusUnauthorized, "audience_mismatch"
	}

	subject, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	return &ServiceIdentity{Subject: subject, Email: email, Issuer: issuer}, http.StatusOK, "ok"
}

func serviceToken(r *http.Request) string {
	if token, ok := extractBearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Goog-Iap-Jwt-Assertion"))
}
