// Package secrets resolves secret:// configuration references against Google Secret Manager.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	referencePrefix     = "secret://"
	defaultFallbackPath = ".secrets.local"
	metricNamespace     = "github.com/tailor-market/api/internal/platform/secrets"
)

// ErrInvalidReference is returned for references Resolve cannot parse.
var ErrInvalidReference = errors.New("secrets: invalid reference")

type secretManagerClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

// Fetcher resolves references of the form secret://name[@version] or
// secret://projects/P/secrets/S[/versions/V]. Short names map to secret ids with "/" replaced by "-".
// Values are cached for the life of the process. In the local environment an unreachable
// Secret Manager falls back to a dotenv file keyed by the upper-cased short name.
type Fetcher struct {
	client    secretManagerClient
	projectID string
	local     bool
	logger    *zap.Logger

	fallbackPath string
	fallbackOnce sync.Once
	fallback     map[string]string

	mu    sync.Mutex
	cache map[string]string

	latency metric.Float64Histogram
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFallbackFile overrides the dotenv file consulted in the local environment.
func WithFallbackFile(path string) Option {
	return func(f *Fetcher) { f.fallbackPath = path }
}

// WithSecretManagerClient injects the Secret Manager client, mainly for tests.
func WithSecretManagerClient(client secretManagerClient) Option {
	return func(f *Fetcher) { f.client = client }
}

// NewFetcher constructs a Fetcher for projectID. environment "local" enables the dotenv fallback
// and tolerates missing Google credentials.
func NewFetcher(ctx context.Context, projectID, environment string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		projectID:    strings.TrimSpace(projectID),
		local:        strings.EqualFold(strings.TrimSpace(environment), "local"),
		logger:       zap.NewNop(),
		fallbackPath: defaultFallbackPath,
		cache:        make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	latency, err := otel.GetMeterProvider().Meter(metricNamespace).Float64Histogram(
		"secrets.fetch.latency",
		metric.WithDescription("Latency of Secret Manager lookups"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("secrets: register latency histogram: %w", err)
	}
	f.latency = latency

	if f.client == nil {
		client, err := secretmanager.NewClient(ctx)
		switch {
		case err == nil:
			f.client = client
		case f.local:
			f.logger.Warn("secret manager unavailable, using local fallback", zap.Error(err))
		default:
			return nil, fmt.Errorf("secrets: create secret manager client: %w", err)
		}
	}
	return f, nil
}

// Close releases the Secret Manager client.
func (f *Fetcher) Close() error {
	if f == nil || f.client == nil {
		return nil
	}
	return f.client.Close()
}

// ResolveSecret implements config.SecretResolver.
func (f *Fetcher) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f.Resolve(ctx, ref)
}

// Resolve returns the secret value behind ref.
func (f *Fetcher) Resolve(ctx context.Context, ref string) (string, error) {
	resource, shortName, err := f.resourceName(ref)
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	value, ok := f.cache[resource]
	f.mu.Unlock()
	if ok {
		return value, nil
	}

	value, err = f.fetch(ctx, resource)
	if err != nil && f.local && shortName != "" && isUnavailable(err) {
		if local, ok := f.lookupFallback(shortName); ok {
			f.logger.Info("secret resolved from local fallback", zap.String("secret", shortName))
			value, err = local, nil
		}
	}
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	f.cache[resource] = value
	f.mu.Unlock()
	return value, nil
}

func (f *Fetcher) fetch(ctx context.Context, resource string) (string, error) {
	if f.client == nil {
		return "", status.Error(codes.Unavailable, "secret manager client not configured")
	}
	start := time.Now()
	resp, err := f.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: resource},
		gax.WithRetry(func() gax.Retryer {
			return gax.OnCodes([]codes.Code{codes.Unavailable, codes.DeadlineExceeded}, gax.Backoff{
				Initial:    100 * time.Millisecond,
				Max:        2 * time.Second,
				Multiplier: 2,
			})
		}),
	)
	outcome := "ok"
	if err != nil {
		outcome = status.Code(err).String()
	}
	f.latency.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attribute.String("outcome", outcome)))
	if err != nil {
		return "", fmt.Errorf("secrets: access %s: %w", resource, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

// resourceName turns ref into a Secret Manager version resource. shortName is empty for full resource references.
func (f *Fetcher) resourceName(ref string) (resource, shortName string, err error) {
	body, ok := strings.CutPrefix(strings.TrimSpace(ref), referencePrefix)
	if !ok || body == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}

	if strings.HasPrefix(body, "projects/") {
		parts := strings.Split(body, "/")
		switch {
		case len(parts) == 4 && parts[2] == "secrets":
			return body + "/versions/latest", "", nil
		case len(parts) == 6 && parts[2] == "secrets" && parts[4] == "versions":
			return body, "", nil
		default:
			return "", "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
		}
	}

	name, version, found := strings.Cut(body, "@")
	if !found || version == "" {
		version = "latest"
	}
	if f.projectID == "" {
		return "", "", fmt.Errorf("%w: project id required for %q", ErrInvalidReference, ref)
	}
	secretID := strings.ReplaceAll(strings.Trim(name, "/"), "/", "-")
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", f.projectID, secretID, version), name, nil
}

func (f *Fetcher) lookupFallback(shortName string) (string, bool) {
	f.fallbackOnce.Do(func() {
		values, err := godotenv.Read(f.fallbackPath)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				f.logger.Warn("read secrets fallback file", zap.String("path", f.fallbackPath), zap.Error(err))
			}
			return
		}
		f.fallback = values
	})
	value, ok := f.fallback[fallbackKey(shortName)]
	return value, ok
}

// fallbackKey maps "mongo/uri" to "MONGO_URI".
func fallbackKey(shortName string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, shortName)
}

func isUnavailable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.Unauthenticated, codes.PermissionDenied, codes.DeadlineExceeded:
		return true
	}
	return false
}
