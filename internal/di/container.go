// Package di assembles the service graph from a repository registry and configuration.
package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tailor-market/api/internal/platform/config"
	"github.com/tailor-market/api/internal/platform/observability"
	"github.com/tailor-market/api/internal/repositories"
	"github.com/tailor-market/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog  services.CatalogResolver
	Cart     services.CartService
	Wallet   services.WalletLedger
	Payments services.PaymentRouter
	Factory  services.OrderFactory
	Checkout services.CheckoutService
	Orders   services.OrderLifecycle
	System   services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	closers []func(context.Context) error
}

type containerOptions struct {
	logger  *zap.Logger
	events  services.OrderEventPublisher
	clock   func() time.Time
	build   services.BuildInfo
	closers []func(context.Context) error
}

// Option customises container construction.
type Option func(*containerOptions)

// WithLogger bridges service events into logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithEventPublisher publishes order events through publisher.
func WithEventPublisher(publisher services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.events = publisher
	}
}

// WithClock overrides the time source of every service.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		o.clock = clock
	}
}

// WithBuildInfo sets the metadata reported by the readiness probe.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = build
	}
}

// WithCloser registers a release hook run by Close after the registry is closed.
func WithCloser(fn func(context.Context) error) Option {
	return func(o *containerOptions) {
		if fn != nil {
			o.closers = append(o.closers, fn)
		}
	}
}

// NewContainer constructs the runtime dependencies. Tests can supply the memory registry.
func NewContainer(cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	options := containerOptions{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}

	svc, err := buildServices(cfg, reg, options)
	if err != nil {
		return nil, err
	}
	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
		closers:      options.closers,
	}, nil
}

// Close releases the registry and any registered resources. Every hook runs even if one fails.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Repositories != nil {
		errs = append(errs, c.Repositories.Close(ctx))
	}
	for _, closer := range c.closers {
		errs = append(errs, closer(ctx))
	}
	return errors.Join(errs...)
}

func buildServices(cfg config.Config, reg repositories.Registry, o containerOptions) (Services, error) {
	var svc Services
	var err error

	svc.Catalog, err = services.NewCatalogResolver(services.CatalogResolverDeps{Designs: reg.Designs()})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog resolver: %w", err)
	}

	svc.Cart, err = services.NewCartService(services.CartServiceDeps{
		Carts:   reg.Carts(),
		Catalog: svc.Catalog,
		Clock:   o.clock,
		Logger:  observability.ServiceLogger(o.logger, "cart"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}

	svc.Wallet, err = services.NewWalletLedger(services.WalletLedgerDeps{
		Wallets:      reg.Wallets(),
		Transactions: reg.Transactions(),
		UnitOfWork:   reg,
		Replicated:   cfg.Store.Replicated,
		Clock:        o.clock,
		Logger:       observability.ServiceLogger(o.logger, "wallet"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wallet ledger: %w", err)
	}

	svc.Payments, err = services.NewPaymentRouter(services.PaymentRouterDeps{
		Ledger:       svc.Wallet,
		Transactions: reg.Transactions(),
		Clock:        o.clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment router: %w", err)
	}

	svc.Factory = services.NewOrderFactory(services.OrderFactoryDeps{
		DeliveryFee: cfg.Checkout.DeliveryFee,
		Clock:       o.clock,
	})

	svc.Checkout, err = services.NewCheckoutService(services.CheckoutServiceDeps{
		UnitOfWork: reg,
		Orders:     reg.Orders(),
		Cart:       svc.Cart,
		Catalog:    svc.Catalog,
		Factory:    svc.Factory,
		Payments:   svc.Payments,
		ClearCart:  cfg.Checkout.ClearCart,
		Events:     o.events,
		Logger:     observability.ServiceLogger(o.logger, "checkout"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}

	svc.Orders, err = services.NewOrderLifecycle(services.OrderLifecycleDeps{
		Orders:     reg.Orders(),
		UnitOfWork: reg,
		Clock:      o.clock,
		Events:     o.events,
		Logger:     observability.ServiceLogger(o.logger, "orders"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order lifecycle: %w", err)
	}

	svc.System, err = services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            o.clock,
		Build:            o.build,
		Logger:           observability.ServiceLogger(o.logger, "system"),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	return svc, nil
}
