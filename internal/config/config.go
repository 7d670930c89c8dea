// Package config loads service settings from an optional YAML file with
// CRM_* environment overrides.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds all service settings.
type Config struct {
	Env    string `yaml:"env"`
	Addr   string `yaml:"addr"`
	DBPath string `yaml:"db_path"`

	Admin AdminConfig `yaml:"admin"`

	// CSRFKey is 32 bytes hex-encoded.
	CSRFKey   string   `yaml:"csrf_key"`
	JWTSecret string   `yaml:"jwt_secret"`
	Origins   []string `yaml:"trusted_origins"`

	Redis  RedisConfig  `yaml:"redis"`
	Email  EmailConfig  `yaml:"email"`
	Log    LogConfig    `yaml:"log"`
	Perf   PerfConfig   `yaml:"perf"`
	Outbox OutboxConfig `yaml:"outbox"`
	Studio StudioConfig `yaml:"studio"`

	RateLimitPerSecond int           `yaml:"rate_limit_per_second"`
	DashboardCacheTTL  time.Duration `yaml:"dashboard_cache_ttl"`
}

// AdminConfig seeds the first admin account on an empty database.
type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

// RedisConfig addresses the cache; an empty Addr uses the in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmailConfig configures outbound email; an empty ResendKey logs instead of
// sending.
type EmailConfig struct {
	ResendKey string `yaml:"resend_key"`
	From      string `yaml:"from"`
	ReplyTo   string `yaml:"reply_to"`
	BaseURL   string `yaml:"base_url"` // used for links in notifications
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

// PerfConfig holds slow-operation thresholds.
type PerfConfig struct {
	SlowQueryMs   int `yaml:"slow_query_ms"`
	SlowRequestMs int `yaml:"slow_request_ms"`
}

// OutboxConfig controls the email retry worker.
type OutboxConfig struct {
	Interval  time.Duration `yaml:"interval"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	BatchSize int           `yaml:"batch_size"`
}

// StudioConfig holds studio registration defaults.
type StudioConfig struct {
	DefaultRadiusKm float64 `yaml:"default_radius_km"`
}

// Validation errors.
var (
	ErrMissingCSRFKey   = errors.New("csrf_key is required in production")
	ErrInvalidCSRFKey   = errors.New("csrf_key must be 64 hex characters")
	ErrMissingJWTSecret = errors.New("jwt_secret is required in production")
	ErrInvalidEnv       = errors.New("env must be development or production")
	ErrInvalidRadius    = errors.New("studio.default_radius_km must be positive")
)

// devCSRFKey is used outside production when no key is configured.
const devCSRFKey = "63726d2d6465762d637372662d6b65792d6e6f742d666f722d70726f64212121"

// Default returns settings usable for local development.
func Default() *Config {
	return &Config{
		Env:    EnvDevelopment,
		Addr:   ":8080",
		DBPath: "crm.db",
		Admin: AdminConfig{
			Email:    "admin@crm.local",
			Password: "change me please",
		},
		JWTSecret: "dev-jwt-secret",
		Origins:   []string{"localhost:8080", "127.0.0.1:8080"},
		Email: EmailConfig{
			From:    "CRM <noreply@crm.local>",
			ReplyTo: "support@crm.local",
			BaseURL: "http://localhost:8080",
		},
		Log:                LogConfig{Level: "info", Format: "text"},
		Perf:               PerfConfig{SlowQueryMs: 50, SlowRequestMs: 200},
		Outbox:             OutboxConfig{Interval: time.Minute, BaseDelay: 30 * time.Second, MaxDelay: time.Hour, BatchSize: 50},
		Studio:             StudioConfig{DefaultRadiusKm: 5},
		RateLimitPerSecond: 20,
		DashboardCacheTTL:  time.Minute,
	}
}

// Load reads path (a missing file is not an error), then applies CRM_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	strs := map[string]*string{
		"CRM_ENV":            &c.Env,
		"CRM_ADDR":           &c.Addr,
		"CRM_DB_PATH":        &c.DBPath,
		"CRM_ADMIN_EMAIL":    &c.Admin.Email,
		"CRM_ADMIN_PASSWORD": &c.Admin.Password,
		"CRM_CSRF_KEY":       &c.CSRFKey,
		"CRM_JWT_SECRET":     &c.JWTSecret,
		"CRM_REDIS_ADDR":     &c.Redis.Addr,
		"CRM_REDIS_PASSWORD": &c.Redis.Password,
		"CRM_RESEND_KEY":     &c.Email.ResendKey,
		"CRM_EMAIL_FROM":     &c.Email.From,
		"CRM_EMAIL_REPLY_TO": &c.Email.ReplyTo,
		"CRM_BASE_URL":       &c.Email.BaseURL,
		"CRM_LOG_LEVEL":      &c.Log.Level,
		"CRM_LOG_FORMAT":     &c.Log.Format,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"CRM_REDIS_DB":              &c.Redis.DB,
		"CRM_SLOW_QUERY_MS":         &c.Perf.SlowQueryMs,
		"CRM_SLOW_REQUEST_MS":       &c.Perf.SlowRequestMs,
		"CRM_RATE_LIMIT_PER_SECOND": &c.RateLimitPerSecond,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"CRM_DASHBOARD_CACHE_TTL": &c.DashboardCacheTTL,
		"CRM_OUTBOX_INTERVAL":     &c.Outbox.Interval,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("CRM_STUDIO_DEFAULT_RADIUS_KM"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CRM_STUDIO_DEFAULT_RADIUS_KM: %w", err)
		}
		c.Studio.DefaultRadiusKm = f
	}
	return nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return ErrInvalidEnv
	}
	if c.IsProduction() {
		if c.CSRFKey == "" {
			return ErrMissingCSRFKey
		}
		if c.JWTSecret == "" || c.JWTSecret == Default().JWTSecret {
			return ErrMissingJWTSecret
		}
	}
	if c.CSRFKey != "" {
		if b, err := hex.DecodeString(c.CSRFKey); err != nil || len(b) != 32 {
			return ErrInvalidCSRFKey
		}
	}
	if c.Studio.DefaultRadiusKm <= 0 {
		return ErrInvalidRadius
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// CSRFKeyBytes returns the decoded CSRF key, or the development key when none
// is configured.
// PRE: Validate returned nil
func (c *Config) CSRFKeyBytes() []byte {
	key := c.CSRFKey
	if key == "" {
		key = devCSRFKey
	}
	b, _ := hex.DecodeString(key)
	return b
}

// SlowQuery returns the slow-query threshold.
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.Perf.SlowQueryMs) * time.Millisecond
}

// SlowRequest returns the slow-request threshold.
func (c *Config) SlowRequest() time.Duration {
	return time.Duration(c.Perf.SlowRequestMs) * time.Millisecond
}
