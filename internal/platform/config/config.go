package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultAPIBasePath is the fallback base path for the HTTP API.
const DefaultAPIBasePath = "/api/v1"

// Journal backends.
const (
	JournalMemory = "memory"
	JournalRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Redis configuration
	Redis RedisConfig

	// Application configuration
	App AppConfig

	// History configuration
	History HistoryConfig

	// Sentry configuration
	Sentry SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port         int           `env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`

	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	AllowedOrigins  []string      `env:"SERVER_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Address returns the server address in host:port format
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port         int           `env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `env:"REDIS_PASSWORD" envDefault:""`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
}

// Address returns the Redis address in host:port format
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	LogLevel      string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	LogFormat     string        `env:"APP_LOG_FORMAT" envDefault:"text"` // text or json
	EnableMetrics bool          `env:"APP_ENABLE_METRICS" envDefault:"true"`
	APIBasePath   string        `env:"APP_API_BASE_PATH" envDefault:"/api/v1"`
	RoutesFile    string        `env:"APP_ROUTES_FILE" envDefault:"routes.yaml"`
	JournalStore  string        `env:"APP_JOURNAL_STORE" envDefault:"memory"` // memory or redis
	JournalSize   int           `env:"APP_JOURNAL_SIZE" envDefault:"200"`
	JournalTTL    time.Duration `env:"APP_JOURNAL_TTL" envDefault:"24h"`

	// NavigateTokenHash is a bcrypt hash guarding POST /navigate; empty disables the check.
	NavigateTokenHash string `env:"APP_NAVIGATE_TOKEN_HASH" envDefault:""`
	// NavigateRateLimit caps navigations per client per window. Needs the redis journal store.
	NavigateRateLimit  int           `env:"APP_NAVIGATE_RATE_LIMIT" envDefault:"0"`
	NavigateRateWindow time.Duration `env:"APP_NAVIGATE_RATE_WINDOW" envDefault:"1m"`
}

// HistoryConfig holds location service configuration
type HistoryConfig struct {
	Root      string `env:"HISTORY_ROOT" envDefault:"/"`
	PushState bool   `env:"HISTORY_PUSH_STATE" envDefault:"false"`
	// InitialURL is the URL treated as loaded before any sub-router is built.
	InitialURL string `env:"HISTORY_INITIAL_URL" envDefault:""`
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN         string  `env:"SENTRY_DSN" envDefault:""`
	Environment string  `env:"SENTRY_ENVIRONMENT" envDefault:""`
	Release     string  `env:"SENTRY_RELEASE" envDefault:""`
	SampleRate  float64 `env:"SENTRY_SAMPLE_RATE" envDefault:"1.0"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables into config struct
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate app configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.App.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)",
			c.App.LogLevel)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.App.LogFormat] {
		return fmt.Errorf("invalid log format: %s (must be text or json)",
			c.App.LogFormat)
	}

	if c.App.RoutesFile == "" {
		return fmt.Errorf("routes file is required")
	}

	switch c.App.JournalStore {
	case JournalMemory:
	case JournalRedis:
		// Validate Redis configuration
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
		if c.Redis.DB < 0 || c.Redis.DB > 15 {
			return fmt.Errorf("invalid redis database: %d (must be 0-15)", c.Redis.DB)
		}
	default:
		return fmt.Errorf("invalid journal store: %s (must be memory or redis)", c.App.JournalStore)
	}
	if c.App.JournalSize <= 0 {
		return fmt.Errorf("journal size must be positive")
	}
	if c.App.NavigateRateLimit < 0 {
		return fmt.Errorf("navigate rate limit must not be negative")
	}
	if c.App.NavigateRateLimit > 0 && c.App.NavigateRateWindow <= 0 {
		return fmt.Errorf("navigate rate window must be positive")
	}
	if c.Sentry.SampleRate < 0 || c.Sentry.SampleRate > 1 {
		return fmt.Errorf("invalid sentry sample rate: %v (must be 0-1)", c.Sentry.SampleRate)
	}

	return nil
}
