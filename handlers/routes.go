// ABOUTME: Declarative route table and HTTP router for the gateway
// ABOUTME: Composes API routes with edge middleware and page routes with the route guard

package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/markalston/portal-gateway/config"
	"github.com/markalston/portal-gateway/middleware"
)

// RateClass selects which limiter guards a route.
type RateClass int

const (
	RateDefault RateClass = iota
	RateAuth              // credential submission: login, register
	RateRefresh
)

// Rate limit store names reported by the health endpoint.
const (
	StoreDisabled = "disabled"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
)

// Route defines an API endpoint with its HTTP method and handler.
type Route struct {
	Method  string           // HTTP method (GET, POST, etc.)
	Path    string           // URL path (e.g., "/api/auth/session")
	Handler http.HandlerFunc // Handler function
	Rate    RateClass
}

// Routes returns all API routes for registration.
func (h *Handler) Routes() []Route {
	return []Route{
		// Health & docs
		{Method: http.MethodGet, Path: "/api/health", Handler: h.Health},
		{Method: http.MethodGet, Path: "/api/openapi.yaml", Handler: h.OpenAPISpec},

		// Session
		{Method: http.MethodGet, Path: "/api/auth/session", Handler: h.Session},
		{Method: http.MethodPost, Path: "/api/auth/refresh", Handler: h.Refresh, Rate: RateRefresh},
		{Method: http.MethodPost, Path: "/api/auth/clear", Handler: h.Clear},

		// Credentials
		{Method: http.MethodPost, Path: "/api/auth/login", Handler: h.Login, Rate: RateAuth},
		{Method: http.MethodPost, Path: "/api/auth/logout", Handler: h.Logout},
		{Method: http.MethodPost, Path: "/api/auth/register", Handler: h.Register, Rate: RateAuth},
	}
}

// Limiters holds one limiter per rate class. Nil limiters disable limiting.
type Limiters struct {
	Auth    middleware.Limiter
	Refresh middleware.Limiter
	Default middleware.Limiter
	Store   string
}

// NewLimiters builds per-minute limiters from cfg, sharing counters through
// Redis when rdb is non-nil.
func NewLimiters(cfg *config.Config, rdb *redis.Client) Limiters {
	if !cfg.RateLimitEnabled {
		return Limiters{Store: StoreDisabled}
	}
	if rdb != nil {
		return Limiters{
			Auth:    middleware.NewRedisLimiter(rdb, "rl:auth", cfg.RateLimitAuth, time.Minute),
			Refresh: middleware.NewRedisLimiter(rdb, "rl:refresh", cfg.RateLimitRefresh, time.Minute),
			Default: middleware.NewRedisLimiter(rdb, "rl:default", cfg.RateLimitDefault, time.Minute),
			Store:   StoreRedis,
		}
	}
	return Limiters{
		Auth:    middleware.NewRateLimiter(cfg.RateLimitAuth, time.Minute),
		Refresh: middleware.NewRateLimiter(cfg.RateLimitRefresh, time.Minute),
		Default: middleware.NewRateLimiter(cfg.RateLimitDefault, time.Minute),
		Store:   StoreMemory,
	}
}

func (l Limiters) forRoute(route Route) func(http.HandlerFunc) http.HandlerFunc {
	switch route.Rate {
	case RateAuth:
		return middleware.RateLimit(l.Auth, middleware.ClientIP)
	case RateRefresh:
		return middleware.RateLimit(l.Refresh, middleware.ClientIP)
	default:
		return middleware.RateLimit(l.Default, middleware.SessionKey)
	}
}

// Router builds the gateway's HTTP handler. API routes get CORS, origin
// checks and rate limits; every other path is a page behind the guard.
func (h *Handler) Router(limiters Limiters) http.Handler {
	h.rateLimitStore = limiters.Store
	if h.rateLimitStore == "" {
		h.rateLimitStore = StoreDisabled
	}

	mux := http.NewServeMux()
	origins := h.cfg.CORSAllowedOrigins
	allowed := make(map[string][]string)

	for _, route := range h.Routes() {
		handler := middleware.Chain(route.Handler,
			middleware.Recover,
			middleware.LogRequest,
			middleware.CORS(origins),
			middleware.OriginCheck(origins),
			limiters.forRoute(route),
		)
		mux.HandleFunc(route.Method+" "+route.Path, handler)

		if _, seen := allowed[route.Path]; !seen {
			mux.HandleFunc(http.MethodOptions+" "+route.Path, middleware.CORS(origins)(func(http.ResponseWriter, *http.Request) {}))
		}
		allowed[route.Path] = append(allowed[route.Path], route.Method)
	}

	fallback := middleware.Chain(h.apiFallback(allowed), middleware.Recover, middleware.LogRequest)
	mux.HandleFunc("/api", fallback)
	mux.HandleFunc("/api/", fallback)

	mux.HandleFunc("/", middleware.Chain(h.Page,
		middleware.Recover,
		middleware.LogRequest,
		middleware.Guard(middleware.GuardConfig{
			Locales:       h.locales,
			PublicRoutes:  h.cfg.PublicRoutes,
			LoginRoute:    h.cfg.LoginRoute,
			RegisterRoute: h.cfg.RegisterRoute,
			LandingRoute:  h.cfg.LandingRoute,
			SkipPrefixes:  h.cfg.GuardSkipPrefixes,
		}),
	))

	return mux
}

// apiFallback answers unknown API paths with JSON instead of the page shell.
func (h *Handler) apiFallback(allowed map[string][]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if methods, ok := allowed[r.URL.Path]; ok {
			w.Header().Set("Allow", strings.Join(methods, ", ")+", "+http.MethodOptions)
			h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeError(w, "Not found", http.StatusNotFound)
	}
}
