// ABOUTME: Configuration loader for the portal gateway
// ABOUTME: Loads settings from an optional .env file and environment variables with defaults

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/markalston/portal-gateway/locale"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

type Config struct {
	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	StaticDir   string `env:"STATIC_DIR"` // pre-built page tree, empty = placeholder shell

	// Upstream identity API
	UpstreamURL          string `env:"UPSTREAM_API_URL"`
	UpstreamProfilePath  string `env:"UPSTREAM_PROFILE_PATH" envDefault:"/auth/me"`
	UpstreamRefreshPath  string `env:"UPSTREAM_REFRESH_PATH" envDefault:"/auth/refresh"`
	UpstreamLoginPath    string `env:"UPSTREAM_LOGIN_PATH" envDefault:"/auth/login"`
	UpstreamLogoutPath   string `env:"UPSTREAM_LOGOUT_PATH" envDefault:"/auth/logout"`
	UpstreamRegisterPath string `env:"UPSTREAM_REGISTER_PATH" envDefault:"/auth/register"`
	UpstreamAllProxy     string `env:"UPSTREAM_ALL_PROXY"` // ssh+socks5://user@host:port?private-key=/path

	// Session cookie
	CookieSecure  bool          // COOKIE_SECURE, defaults to true in production
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"168h"`

	// Route guard
	Locales           []string `env:"LOCALES" envDefault:"en,fr,de,es"`
	DefaultLocale     string   `env:"DEFAULT_LOCALE" envDefault:"en"`
	PublicRoutes      []string `env:"PUBLIC_ROUTES" envDefault:"/,/login,/register,/verify-email,/forgot-password,/reset-password,/auth/callback,/launchpad,/marketplace,/pricing,/about"`
	LoginRoute        string   `env:"LOGIN_ROUTE" envDefault:"/login"`
	RegisterRoute     string   `env:"REGISTER_ROUTE" envDefault:"/register"`
	LandingRoute      string   `env:"LANDING_ROUTE" envDefault:"/wallet"`
	GuardSkipPrefixes []string `env:"GUARD_SKIP_PREFIXES" envDefault:"/api,/_internal,/static"`

	// Edge
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"` // empty = block all cross-origin

	// Rate Limiting
	RateLimitEnabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitAuth    int    `env:"RATE_LIMIT_AUTH" envDefault:"5"`      // login/register per minute
	RateLimitRefresh int    `env:"RATE_LIMIT_REFRESH" envDefault:"10"`  // refresh per minute
	RateLimitDefault int    `env:"RATE_LIMIT_DEFAULT" envDefault:"100"` // everything else per minute
	RedisURL         string `env:"REDIS_URL"`                           // shared rate limit counters
}

// IsProduction reports whether the deployment runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, EnvironmentProduction)
}

// Load reads configuration from the environment. Values from an optional
// .env file (ENV_FILE, default ".env") never override variables already set.
func Load() (*Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", cfg.IsProduction())
	cfg.UpstreamURL = strings.TrimRight(ensureScheme(strings.TrimSpace(cfg.UpstreamURL)), "/")
	cfg.Locales = trimList(cfg.Locales)
	cfg.PublicRoutes = trimList(cfg.PublicRoutes)
	cfg.GuardSkipPrefixes = trimList(cfg.GuardSkipPrefixes)
	cfg.CORSAllowedOrigins = trimList(cfg.CORSAllowedOrigins)
	cfg.DefaultLocale = strings.TrimSpace(cfg.DefaultLocale)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.UpstreamURL == "" {
		return fmt.Errorf("UPSTREAM_API_URL is required")
	}
	if c.Environment != EnvironmentDevelopment && c.Environment != EnvironmentProduction {
		return fmt.Errorf("ENVIRONMENT must be %q or %q, got %q", EnvironmentDevelopment, EnvironmentProduction, c.Environment)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("SESSION_MAX_AGE must be positive, got %s", c.SessionMaxAge)
	}

	if len(c.Locales) == 0 {
		return fmt.Errorf("LOCALES must list at least one locale")
	}
	defaultListed := false
	for _, l := range c.Locales {
		if !locale.LooksLikeLocale(l) {
			return fmt.Errorf("LOCALES entry %q must be a two-letter language with an optional region, such as en or pt-BR", l)
		}
		if _, err := language.Parse(l); err != nil {
			return fmt.Errorf("LOCALES contains invalid locale %q: %w", l, err)
		}
		if strings.EqualFold(l, c.DefaultLocale) {
			defaultListed = true
		}
	}
	if !defaultListed {
		return fmt.Errorf("DEFAULT_LOCALE %q must be one of LOCALES %v", c.DefaultLocale, c.Locales)
	}

	for _, route := range []struct {
		name  string
		value string
	}{
		{"UPSTREAM_PROFILE_PATH", c.UpstreamProfilePath},
		{"UPSTREAM_REFRESH_PATH", c.UpstreamRefreshPath},
		{"UPSTREAM_LOGIN_PATH", c.UpstreamLoginPath},
		{"UPSTREAM_LOGOUT_PATH", c.UpstreamLogoutPath},
		{"UPSTREAM_REGISTER_PATH", c.UpstreamRegisterPath},
		{"LOGIN_ROUTE", c.LoginRoute},
		{"REGISTER_ROUTE", c.RegisterRoute},
		{"LANDING_ROUTE", c.LandingRoute},
	} {
		if !strings.HasPrefix(route.value, "/") {
			return fmt.Errorf("%s must start with '/', got %q", route.name, route.value)
		}
	}
	for _, p := range c.PublicRoutes {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("PUBLIC_ROUTES entry must start with '/', got %q", p)
		}
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", c.RateLimitAuth},
		{"RATE_LIMIT_REFRESH", c.RateLimitRefresh},
		{"RATE_LIMIT_DEFAULT", c.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
