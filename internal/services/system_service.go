package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/tailor-market/api/internal/domain"
	"github.com/tailor-market/api/internal/repositories"
)

const defaultReadinessTimeout = 3 * time.Second

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	Environment string
	StartedAt   time.Time
}

// SystemServiceDeps bundles collaborators required to construct a system service.
type SystemServiceDeps struct {
	HealthRepository repositories.HealthRepository
	Clock            func() time.Time
	Build            BuildInfo
	// Timeout bounds one readiness evaluation across all probes.
	Timeout time.Duration
	Logger  Logger
}

type systemService struct {
	health  repositories.HealthRepository
	clock   func() time.Time
	build   BuildInfo
	timeout time.Duration
	logger  Logger
}

var _ SystemService = (*systemService)(nil)

// NewSystemService assembles the service behind the readiness probe.
func NewSystemService(deps SystemServiceDeps) (SystemService, error) {
	if deps.HealthRepository == nil {
		return nil, errors.New("system service: health repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultReadinessTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	build := deps.Build
	if build.StartedAt.IsZero() {
		build.StartedAt = clock()
	}
	return &systemService{
		health:  deps.HealthRepository,
		clock:   func() time.Time { return clock().UTC() },
		build:   build,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// HealthReport collects the dependency probes and stamps build metadata. The overall status is
// always derived from the individual checks.
func (s *systemService) HealthReport(ctx context.Context) (domain.HealthReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	report, err := s.health.Collect(ctx)
	if err != nil {
		return domain.HealthReport{}, fmt.Errorf("%w: collect health: %v", ErrInfrastructure, err)
	}

	now := s.clock()
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}
	if strings.TrimSpace(report.Version) == "" {
		report.Version = s.build.Version
	}
	if strings.TrimSpace(report.Environment) == "" {
		report.Environment = s.build.Environment
	}
	report.Uptime = now.Sub(s.build.StartedAt)
	if report.Checks == nil {
		report.Checks = map[string]domain.HealthCheck{}
	}
	report.Status = deriveStatus(report.Checks)

	if failing := failingChecks(report.Checks); len(failing) > 0 {
		s.logger(ctx, "readiness.degraded", map[string]any{
			"status":  report.Status,
			"failing": failing,
		})
	}
	return report, nil
}

func failingChecks(checks map[string]domain.HealthCheck) []string {
	var names []string
	for name, check := range checks {
		if check.Status != domain.HealthStatusOK && check.Status != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func deriveStatus(checks map[string]domain.HealthCheck) string {
	status := domain.HealthStatusOK
	for _, check := range checks {
		switch check.Status {
		case domain.HealthStatusOK, "":
		case domain.HealthStatusError:
			return domain.HealthStatusError
		default:
			status = domain.HealthStatusDegraded
		}
	}
	return status
}
