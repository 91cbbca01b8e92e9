package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tailor-market/api/internal/platform/httpx"
)

// RouteRegistrar registers a set of routes against the provided router.
type RouteRegistrar func(r chi.Router)

// routeGroup is one mounted prefix under the API base path.
type routeGroup struct {
	registrar   RouteRegistrar
	middlewares []func(http.Handler) http.Handler
}

// Mount order of the API groups.
var groupPaths = []string{"/checkout", "/cart", "/orders", "/wallet", "/admin", "/internal"}

type routerConfig struct {
	basePath    string
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
	groups      map[string]*routeGroup
}

func (cfg *routerConfig) group(path string) *routeGroup {
	g, ok := cfg.groups[path]
	if !ok {
		g = &routeGroup{}
		cfg.groups[path] = g
	}
	return g
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

const (
	defaultAPIPrefix  = "/api/v1"
	errorNotFoundCode = "route_not_found"
)

// NewRouter constructs the chi router with the health probes and the /api/v1 route groups.
// Groups without a registrar answer 501.
func NewRouter(opts ...Option) chi.Router {
	cfg := routerConfig{basePath: defaultAPIPrefix, groups: make(map[string]*routeGroup)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", req.URL.Path), http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Route(cfg.basePath, func(api chi.Router) {
		for _, path := range groupPaths {
			g := cfg.group(path)
			api.Route(path, func(sub chi.Router) {
				for _, mw := range g.middlewares {
					if mw != nil {
						sub.Use(mw)
					}
				}
				if g.registrar == nil {
					registerNotImplemented(sub, strings.TrimPrefix(path, "/"))
					return
				}
				g.registrar(sub)
			})
		}
	})

	return r
}

// WithMiddlewares appends global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

func withRoutes(path string, reg RouteRegistrar) Option {
	return func(cfg *routerConfig) {
		cfg.group(path).registrar = reg
	}
}

// WithCheckoutRoutes mounts reg under /checkout.
func WithCheckoutRoutes(reg RouteRegistrar) Option { return withRoutes("/checkout", reg) }

// WithCartRoutes mounts reg under /cart.
func WithCartRoutes(reg RouteRegistrar) Option { return withRoutes("/cart", reg) }

// WithOrderRoutes mounts reg under /orders.
func WithOrderRoutes(reg RouteRegistrar) Option { return withRoutes("/orders", reg) }

// WithWalletRoutes mounts reg under /wallet.
func WithWalletRoutes(reg RouteRegistrar) Option { return withRoutes("/wallet", reg) }

// WithAdminRoutes mounts reg under /admin.
func WithAdminRoutes(reg RouteRegistrar) Option { return withRoutes("/admin", reg) }

// WithInternalRoutes mounts reg under /internal.
func WithInternalRoutes(reg RouteRegistrar) Option { return withRoutes("/internal", reg) }

// WithInternalMiddlewares guards the /internal group, typically with service token verification.
func WithInternalMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		g := cfg.group("/internal")
		g.middlewares = append(g.middlewares, mw...)
	}
}

func registerNotImplemented(r chi.Router, name string) {
	handler := func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_implemented", fmt.Sprintf("%s routes not implemented", name), http.StatusNotImplemented))
	}
	r.HandleFunc("/*", handler)
	r.HandleFunc("/", handler)
	r.NotFound(handler)
	r.MethodNotAllowed(handler)
}
