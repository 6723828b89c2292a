// Package config handles application configuration and environment loading.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"s3bridge/internal/domain"
)

// Config holds the configuration for the credential broker HTTP service.
type Config struct {
	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// AWS account context for role ARN synthesis and the STS client.
	AWSAccountID string
	AWSRegion    string

	// AdminUsername, when set, enables the synthesized "universal" service
	// registration restricted to exactly this identity.
	AdminUsername string

	// ExchangeTimeout bounds a single STS round-trip (default 30s).
	ExchangeTimeout time.Duration

	// Policy carries the global deny-list and the legacy identity fallback
	// mapping, injected into the extractor and the authorization gate.
	Policy domain.AuthorizationPolicy

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RegistrySnapshot returns the current process environment as key/value
// pairs for the service registry. Computed fresh so that configuration
// changes between lookups are observed.
func (c *Config) RegistrySnapshot() map[string]string {
	snap := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			snap[k] = v
		}
	}
	return snap
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		AWSAccountID:  os.Getenv("AWS_ACCOUNT_ID"),
		AWSRegion:     os.Getenv("AWS_REGION"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Authorization policy: deny-list and legacy identity fallbacks are
	// operational configuration, never literals in code.
	if v := os.Getenv("AUTH_DENY_USERS"); v != "" {
		cfg.Policy.DenyList = splitTrimmed(v)
	}
	if v := os.Getenv("AUTH_LEGACY_IDENTITY_MARKERS"); v != "" {
		cfg.Policy.LegacyFallbacks = make(map[string]string)
		for _, pair := range splitTrimmed(v) {
			marker, identity, ok := strings.Cut(pair, "=")
			if !ok || marker == "" || identity == "" {
				cfg.Warnings = append(cfg.Warnings,
					fmt.Sprintf("ignoring malformed AUTH_LEGACY_IDENTITY_MARKERS entry %q", pair))
				continue
			}
			cfg.Policy.LegacyFallbacks[strings.ToLower(marker)] = identity
		}
	}

	if v := os.Getenv("EXCHANGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ExchangeTimeout = d
		}
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "us-east-1"
	}
	if cfg.ExchangeTimeout == 0 {
		cfg.ExchangeTimeout = 30 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.AdminUsername == "" {
		cfg.Warnings = append(cfg.Warnings,
			"ADMIN_USERNAME not set - the universal service registration is disabled")
	}
	if cfg.AWSAccountID == "" {
		cfg.Warnings = append(cfg.Warnings,
			"AWS_ACCOUNT_ID not set - synthesized role ARNs will be incomplete")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.AWSAccountID == "" {
			return nil, fmt.Errorf("AWS_ACCOUNT_ID must be set in production (ENV=production)")
		}
	}

	return cfg, nil
}

func splitTrimmed(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
