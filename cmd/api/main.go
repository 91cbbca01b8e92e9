package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tailor-market/api/internal/di"
	"github.com/tailor-market/api/internal/handlers"
	"github.com/tailor-market/api/internal/platform/auth"
	"github.com/tailor-market/api/internal/platform/config"
	"github.com/tailor-market/api/internal/platform/events"
	pfirestore "github.com/tailor-market/api/internal/platform/firestore"
	"github.com/tailor-market/api/internal/platform/idempotency"
	pmongo "github.com/tailor-market/api/internal/platform/mongo"
	"github.com/tailor-market/api/internal/platform/observability"
	"github.com/tailor-market/api/internal/platform/secrets"
	"github.com/tailor-market/api/internal/repositories"
	firestoreRepo "github.com/tailor-market/api/internal/repositories/firestore"
	"github.com/tailor-market/api/internal/repositories/memory"
	mongoRepo "github.com/tailor-market/api/internal/repositories/mongo"
	"github.com/tailor-market/api/internal/services"
)

const (
	requestTimeout      = 60 * time.Second
	tokenVerifyTimeout  = 10 * time.Second
	shutdownGracePeriod = 10 * time.Second
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	envValues, err := config.EnvironmentValues()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment values: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(envValues["LOG_LEVEL"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(fetcher),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	broker, err := openPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open event publisher", zap.String("driver", cfg.Events.Driver), zap.Error(err))
	}

	var extraChecks []repositories.DependencyCheck
	if broker.check != nil {
		extraChecks = append(extraChecks, *broker.check)
	}
	backend, err := openStore(ctx, logger, cfg, extraChecks...)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	containerOpts := []di.Option{
		di.WithLogger(baseLogger),
		di.WithBuildInfo(buildInfoFromEnv(envValues, cfg, startedAt)),
	}
	if broker.publisher != nil {
		containerOpts = append(containerOpts, di.WithEventPublisher(broker.publisher), di.WithCloser(broker.close))
	}
	container, err := di.NewContainer(cfg, backend.registry, containerOpts...)
	if err != nil {
		logger.Fatal("failed to build service container", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	verifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase, tokenVerifyTimeout)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authn := auth.NewAuthenticator(verifier)
	svc := container.Services

	routerOpts := []handlers.Option{
		handlers.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			observability.Trace(traceProjectID(cfg)),
			observability.InjectLogger(logger),
			observability.RequestLogger(),
			observability.Recoverer(),
			middleware.Timeout(requestTimeout),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthSystemService(svc.System),
			handlers.WithHealthBuildInfo(buildInfoFromEnv(envValues, cfg, startedAt)),
		)),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(authn, svc.Checkout,
			handlers.WithIdempotency(idempotency.Middleware(backend.idempotency)),
		).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authn, svc.Cart).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(authn, svc.Orders).Routes),
		handlers.WithWalletRoutes(handlers.NewWalletHandlers(authn, svc.Wallet).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminOrderHandlers(authn, svc.Orders).Routes),
	}
	routerOpts = append(routerOpts, buildInternalRoutes(logger, cfg, svc.Wallet)...)
	router := handlers.NewRouter(routerOpts...)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("tailor-market api listening",
			zap.String("store", cfg.Store.Driver),
			zap.String("events", cfg.Events.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

type storeBackend struct {
	registry    repositories.Registry
	idempotency idempotency.Store
}

func openStore(ctx context.Context, logger *zap.Logger, cfg config.Config, extraChecks ...repositories.DependencyCheck) (storeBackend, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return storeBackend{}, err
		}
		registry, err := firestoreRepo.NewRegistry(provider, extraChecks...)
		if err != nil {
			_ = provider.Close(ctx)
			return storeBackend{}, err
		}
		return storeBackend{registry: registry, idempotency: idempotency.NewFirestoreStore(provider)}, nil
	case config.StoreDriverMongo:
		client, err := pmongo.Connect(ctx, cfg.Mongo)
		if err != nil {
			return storeBackend{}, err
		}
		registry, err := mongoRepo.NewRegistry(client, extraChecks...)
		if err != nil {
			_ = client.Close(ctx)
			return storeBackend{}, err
		}
		if err := registry.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return storeBackend{}, fmt.Errorf("ensure indexes: %w", err)
		}
		keys := idempotency.NewMongoStore(client)
		if err := keys.EnsureIndexes(ctx); err != nil {
			_ = client.Close(ctx)
			return storeBackend{}, fmt.Errorf("ensure idempotency indexes: %w", err)
		}
		return storeBackend{registry: registry, idempotency: keys}, nil
	case config.StoreDriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return storeBackend{registry: memory.NewStore(), idempotency: idempotency.NewMemoryStore()}, nil
	default:
		return storeBackend{}, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

type eventBroker struct {
	publisher services.OrderEventPublisher
	close     func(context.Context) error
	check     *repositories.DependencyCheck
}

// openPublisher returns a zero broker when events are disabled.
func openPublisher(ctx context.Context, cfg config.Config) (eventBroker, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverPubSub:
		client, err := pubsub.NewClient(ctx, traceProjectID(cfg))
		if err != nil {
			return eventBroker{}, fmt.Errorf("create pubsub client: %w", err)
		}
		topic := client.Topic(cfg.Events.PubSubTopic)
		publisher, err := events.NewPubSubPublisher(topic)
		if err != nil {
			_ = client.Close()
			return eventBroker{}, err
		}
		return eventBroker{
			publisher: publisher,
			close: func(context.Context) error {
				publisher.Stop()
				return client.Close()
			},
			check: &repositories.DependencyCheck{
				Name:     "pubsub",
				Optional: true,
				Check: func(ctx context.Context) error {
					exists, err := topic.Exists(ctx)
					if err != nil {
						return err
					}
					if !exists {
						return fmt.Errorf("topic %s not found", topic.ID())
					}
					return nil
				},
			},
		}, nil
	case config.EventsDriverAMQP:
		conn, err := amqp.Dial(cfg.Events.AMQPURL)
		if err != nil {
			return eventBroker{}, fmt.Errorf("dial amqp: %w", err)
		}
		publisher, err := events.NewAMQPPublisher(conn, cfg.Events.AMQPExchange)
		if err != nil {
			_ = conn.Close()
			return eventBroker{}, err
		}
		return eventBroker{
			publisher: publisher,
			close: func(context.Context) error {
				return errors.Join(publisher.Close(), conn.Close())
			},
			check: &repositories.DependencyCheck{
				Name:     "amqp",
				Optional: true,
				Check: func(context.Context) error {
					if conn.IsClosed() {
						return amqp.ErrClosed
					}
					return nil
				},
			},
		}, nil
	case config.EventsDriverNone, "":
		return eventBroker{}, nil
	default:
		return eventBroker{}, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}

// buildInternalRoutes mounts reconciliation endpoints only when service tokens can be verified.
func buildInternalRoutes(logger *zap.Logger, cfg config.Config, ledger services.WalletLedger) []handlers.Option {
	if strings.TrimSpace(cfg.Security.OIDC.JWKSURL) == "" {
		logger.Warn("oidc jwks url not configured; internal routes disabled")
		return nil
	}
	verifier, err := auth.NewServiceVerifier(cfg.Security.OIDC, auth.WithServiceLogger(logger.Named("oidc")))
	if err != nil {
		logger.Fatal("failed to initialise service verifier", zap.Error(err))
	}
	return []handlers.Option{
		handlers.WithInternalMiddlewares(verifier.RequireServiceToken()),
		handlers.WithInternalRoutes(handlers.NewInternalTransactionHandlers(ledger).Routes),
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		Environment: environment,
		StartedAt:   started,
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	environment := strings.ToLower(strings.TrimSpace(env["API_SECURITY_ENVIRONMENT"]))
	if environment == "" {
		environment = "local"
	}
	projectID := strings.TrimSpace(env["API_SECRET_PROJECT_ID"])
	if projectID == "" {
		projectID = strings.TrimSpace(env["API_FIREBASE_PROJECT_ID"])
	}
	opts := []secrets.Option{secrets.WithLogger(logger.Named("secrets"))}
	if path := strings.TrimSpace(env["API_SECRET_FALLBACK_FILE"]); path != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	return secrets.NewFetcher(ctx, projectID, environment, opts...)
}

// requiredSecretNames demands the connection secrets of the selected drivers.
func requiredSecretNames(env map[string]string) []string {
	var required []string
	if strings.EqualFold(strings.TrimSpace(env["API_STORE_DRIVER"]), config.StoreDriverMongo) {
		required = append(required, "Mongo.URI")
	}
	if strings.EqualFold(strings.TrimSpace(env["API_EVENTS_DRIVER"]), config.EventsDriverAMQP) {
		required = append(required, "Events.AMQPURL")
	}
	return required
}
