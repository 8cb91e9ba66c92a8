package config

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// setting is one leaf of Config as declared by its struct tags.
type setting struct {
	key      string // koanf path, e.g. "server.readtimeout"
	env      string
	alt      string
	def      string
	required bool
	typ      reflect.Type
}

// settings walks the Config type and collects every tagged leaf.
func settings(t reflect.Type, prefix string) []setting {
	var out []setting
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := strings.ToLower(f.Name)
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct && f.Type != reflect.TypeOf(time.Time{}) {
			out = append(out, settings(f.Type, key)...)
			continue
		}
		name := f.Tag.Get("env")
		if name == "" {
			continue
		}
		out = append(out, setting{
			key:      key,
			env:      name,
			alt:      f.Tag.Get("envAlt"),
			def:      f.Tag.Get("default"),
			required: f.Tag.Get("required") == "true",
			typ:      f.Type,
		})
	}
	return out
}

// value converts a raw string for s. Lists are comma separated with blanks
// dropped; everything else is decoded by koanf.
func (s setting) value(raw string) any {
	if s.typ.Kind() != reflect.Slice {
		return raw
	}
	parts := strings.Split(raw, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	return list
}

// Load reads configuration from the environment. Layers are applied in
// order: tag defaults, alternate variable names, primary names. The result
// is validated.
func Load() (*Config, error) {
	all := settings(reflect.TypeOf(Config{}), "")
	k := koanf.New(".")

	defaults := make(map[string]any)
	for _, s := range all {
		if s.def != "" {
			defaults[s.key] = s.value(s.def)
		}
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	byAlt := make(map[string]setting)
	byEnv := make(map[string]setting)
	for _, s := range all {
		byEnv[s.env] = s
		if s.alt != "" {
			byAlt[s.alt] = s
		}
	}
	for _, names := range []map[string]setting{byAlt, byEnv} {
		if err := k.Load(env.ProviderWithValue("", ".", func(name, raw string) (string, any) {
			s, ok := names[name]
			if !ok || raw == "" {
				return "", nil
			}
			return s.key, s.value(raw)
		}), nil); err != nil {
			return nil, fmt.Errorf("config env: %w", err)
		}
	}

	if err := decodeEach(k, all); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// decodeEach checks that required settings are present and that every value
// decodes into its field type, naming the variable on failure.
func decodeEach(k *koanf.Koanf, all []setting) error {
	for _, s := range all {
		if !k.Exists(s.key) || k.String(s.key) == "" {
			if s.required {
				return fmt.Errorf("required environment variable %s is not set", s.env)
			}
			continue
		}
		target := reflect.New(s.typ)
		if err := k.Unmarshal(s.key, target.Interface()); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", s.env, k.String(s.key), err)
		}
	}
	return nil
}

// Validate checks the loaded values. Every problem is reported, keyed by
// its environment variable.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.URL != "", "DATABASE_URL is required")
	check(db.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(db.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
	check(db.MaxConns >= db.MinConns, "DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", db.MaxConns, db.MinConns)

	srv := c.Server
	check(srv.Port > 0 && srv.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", srv.Port)
	check(srv.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(srv.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	check(c.Cache.TTL >= 0, "CACHE_TTL must be non-negative")

	imp := c.Import
	check(imp.MaxBytes > 0, "IMPORT_MAX_BYTES must be positive")
	check(imp.BatchThreshold > 0, "IMPORT_BATCH_THRESHOLD must be positive")
	check(imp.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(imp.MaxWait > 0, "IMPORT_MAX_WAIT must be positive")
	check(imp.Timeout > 0, "IMPORT_TIMEOUT must be positive")
	if imp.Endpoint != "" {
		u, err := url.Parse(imp.Endpoint)
		check(err == nil && u.Scheme != "" && u.Host != "", "IMPORT_ENDPOINT (%q) must be an absolute URL", imp.Endpoint)
	}

	check(c.Search.Delay >= 0, "SEARCH_DELAY must be non-negative")
	check(c.Search.Limit > 0, "SEARCH_LIMIT must be positive")

	if c.Rate.Enabled {
		check(c.Rate.RequestsPerMinute > 0, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
		check(c.Rate.ImportLimit > 0, "RATE_LIMIT_IMPORT must be positive when rate limiting is enabled")
	}

	check(c.Session.Secret == "" || len(c.Session.Secret) >= 32, "SESSION_SECRET must be at least 32 bytes")
	check(c.Session.Name != "", "SESSION_NAME must not be empty")

	check(c.Audit.Retention > 0, "AUDIT_RETENTION must be positive")
	check(c.Audit.CheckInterval > 0, "AUDIT_CHECK_INTERVAL must be positive")

	check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")

	level := strings.ToLower(c.Logging.Level)
	check(slices.Contains([]string{"debug", "info", "warn", "error"}, level),
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	format := strings.ToLower(c.Logging.Format)
	check(format == "text" || format == "json", "LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %w", errors.Join(errs...))
	}
	return nil
}

// String summarizes the configuration for logs. The database URL and the
// session secret are masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, Database: [MASKED] pool %d-%d, Cache: %s, "+
		"Import: enabled=%t max=%d concurrent=%d, Storage: %q, Realtime: %t, "+
		"Session: %q [MASKED], Rate: enabled=%t rpm=%d, Logging: %s/%s}",
		c.Server.Addr(), c.Database.MinConns, c.Database.MaxConns, c.Cache.TTL,
		c.Import.Endpoint != "", c.Import.MaxBytes, c.Import.MaxConcurrent, c.Storage.Bucket, c.Realtime.Enabled,
		c.Session.Name, c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Logging.Level, c.Logging.Format)
}
