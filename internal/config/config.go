package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const defaultSecret = "change-this-to-a-secure-secret"

// Config holds the full runtime configuration. Every field maps to an
// environment variable; defaults are tuned for local development.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	// HTTP server
	HTTPPort int `env:"AUTHCORE_HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresDSN string `env:"AUTHCORE_PG_DSN" envDefault:""`

	// Token signing
	JWTSecret  string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"authcore"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"1h"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"24h"`

	// Session behavior
	RegisterAutoLogin bool `env:"REGISTER_AUTO_LOGIN" envDefault:"false"`

	// Revocation ledger backend: "postgres" keeps everything in the main
	// database, "redis" offloads to a TTL-keyed set.
	LedgerBackend string `env:"REVOCATION_BACKEND" envDefault:"postgres"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cookies
	CookieDomain string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	// Request throttling for the credential endpoints.
	LoginRatePerMin int `env:"LOGIN_RATE_PER_MIN" envDefault:"30"`
	LoginRateBurst  int `env:"LOGIN_RATE_BURST" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.RefreshTTL <= cfg.AccessTTL {
		return nil, fmt.Errorf("refresh lifetime %s must exceed access lifetime %s", cfg.RefreshTTL, cfg.AccessTTL)
	}
	switch cfg.LedgerBackend {
	case "postgres", "redis":
	default:
		return nil, fmt.Errorf("unknown revocation backend %q", cfg.LedgerBackend)
	}
	if cfg.LedgerBackend == "redis" && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required for the redis revocation backend")
	}
	if cfg.LoginRatePerMin < 1 || cfg.LoginRateBurst < 1 {
		return nil, fmt.Errorf("login rate limits must be positive")
	}

	// Outside development the signing secret must be explicit and strong.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}
