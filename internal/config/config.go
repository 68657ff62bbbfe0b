// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Guildhall"`

	// Public URL of the site, used in email links
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`

	// Every open notification stream holds one connection of the listen pool.
	DBListenMaxConns int32 `env:"DB_LISTEN_MAX_CONNS" envDefault:"100"`

	// Cache (Redis)
	RedisURL      string `env:"REDIS_URL,required,notEmpty"`
	RedisPoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`

	// Hosted auth service
	AuthURL     string        `env:"AUTH_URL,required,notEmpty"`
	AuthAnonKey string        `env:"AUTH_ANON_KEY,required,notEmpty"`
	AuthTimeout time.Duration `env:"AUTH_TIMEOUT" envDefault:"5s"`

	// Session cookies
	CookieAccessName  string `env:"COOKIE_ACCESS_NAME" envDefault:"sb-access-token"`
	CookieRefreshName string `env:"COOKIE_REFRESH_NAME" envDefault:"sb-refresh-token"`
	CookieDomain      string `env:"COOKIE_DOMAIN" envDefault:""`

	// Email. Without a SendGrid key, emails are logged instead of sent.
	SendGridAPIKey     string `env:"SENDGRID_API_KEY" envDefault:""`
	MailFrom           string `env:"MAIL_FROM" envDefault:"noreply@localhost"`
	MailFromName       string `env:"MAIL_FROM_NAME" envDefault:"Guildhall"`
	AdminNotifyEmail   string `env:"ADMIN_NOTIFY_EMAIL" envDefault:""`
	EmailWorkerEnabled bool   `env:"EMAIL_WORKER_ENABLED" envDefault:"true"`

	// Toasts
	ToastTTL        time.Duration `env:"TOAST_TTL" envDefault:"5s"`
	ToastMaxEntries int           `env:"TOAST_MAX_ENTRIES" envDefault:"0"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting (per client IP)
	RateLimitEnabled    bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitLoginRPS   float64 `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"0.2"`
	RateLimitLoginBurst int     `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"5"`
	RateLimitApplyRPS   float64 `env:"RATE_LIMIT_APPLY_RPS" envDefault:"0.05"`
	RateLimitApplyBurst int     `env:"RATE_LIMIT_APPLY_BURST" envDefault:"3"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Comma-separated websocket origin patterns, e.g. "app.example.com,*.example.com".
	// Empty means same-origin only.
	WSAllowedOrigins string `env:"WS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// SecureCookies reports whether session cookies carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return !c.IsDevelopment()
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

// GetWSOriginPatterns parses the websocket origin patterns.
func (c *Config) GetWSOriginPatterns() []string {
	return splitList(c.WSAllowedOrigins)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if c.DBMaxConns <= 0 || c.DBListenMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS and DB_LISTEN_MAX_CONNS must be positive"))
	}
	if c.RateLimitLoginRPS < 0 || c.RateLimitApplyRPS < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.SendGridAPIKey != "" && c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required when SENDGRID_API_KEY is set"))
	}
	if !strings.HasPrefix(c.AuthURL, "http://") && !strings.HasPrefix(c.AuthURL, "https://") {
		errs = append(errs, errors.New("AUTH_URL must be an http(s) URL"))
	}
	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
