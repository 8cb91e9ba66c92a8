// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Import   ImportConfig
	Storage  StorageConfig
	Search   SearchConfig
	Realtime RealtimeConfig
	Session  SessionConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
	Tables   TablesConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-streaming requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// Migrate applies embedded migrations on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// CacheConfig holds query cache settings.
type CacheConfig struct {
	// TTL is how long a loaded row set is served without refetching (default: 30s)
	TTL time.Duration `env:"CACHE_TTL" default:"30s"`
}

// ImportConfig holds CSV import settings. Import is disabled when
// Endpoint is empty.
type ImportConfig struct {
	Endpoint     string `env:"IMPORT_ENDPOINT"`
	DashboardURL string `env:"IMPORT_DASHBOARD_URL"`

	// MaxBytes is the largest accepted file (default: 100MB)
	MaxBytes int64 `env:"IMPORT_MAX_BYTES" default:"104857600"`

	// BatchThreshold routes larger files to batch processing (default: 2MB)
	BatchThreshold int64 `env:"IMPORT_BATCH_THRESHOLD" default:"2097152"`

	MaxConcurrent int           `env:"IMPORT_MAX_CONCURRENT" default:"3"`
	MaxWait       time.Duration `env:"IMPORT_MAX_WAIT" default:"10s"`
	Timeout       time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// StorageConfig holds object storage settings. Uploads are disabled when
// Bucket is empty.
type StorageConfig struct {
	Bucket        string `env:"STORAGE_BUCKET"`
	Endpoint      string `env:"STORAGE_ENDPOINT" envAlt:"STORAGE_EMULATOR_HOST"`
	PublicBaseURL string `env:"STORAGE_PUBLIC_BASE_URL"`
}

// SearchConfig holds rich search settings.
type SearchConfig struct {
	Delay time.Duration `env:"SEARCH_DELAY" default:"400ms"`
	Limit int           `env:"SEARCH_LIMIT" default:"10"`
}

// RealtimeConfig holds change feed settings.
type RealtimeConfig struct {
	Enabled bool `env:"REALTIME_ENABLED" default:"true"`
}

// SessionConfig holds cookie session settings.
type SessionConfig struct {
	// Secret signs session cookies. A random key is generated when empty,
	// which invalidates sessions on restart.
	Secret string `env:"SESSION_SECRET"`
	Name   string `env:"SESSION_NAME" default:"fastro_session"`
	Secure bool   `env:"SESSION_SECURE" default:"false"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import and upload endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// CORSOrigins lists origins allowed to call /api
	CORSOrigins []string `env:"CORS_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig holds audit log retention settings.
type AuditConfig struct {
	Retention     time.Duration `env:"AUDIT_RETENTION" default:"2160h"`
	CheckInterval time.Duration `env:"AUDIT_CHECK_INTERVAL" default:"24h"`
}

// TablesConfig points at the optional YAML table catalog.
type TablesConfig struct {
	CatalogPath string `env:"TABLES_CATALOG" envAlt:"CATALOG_PATH"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
