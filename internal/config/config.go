package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Cache      CacheConfig      `yaml:"cache"`
	Realtime   RealtimeConfig   `yaml:"realtime"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Submission SubmissionConfig `yaml:"submission"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `yaml:"addr"                env:"SERVER_ADDR"                env-default:":8080"`
	PublicURL         string        `yaml:"public_url"          env:"SERVER_PUBLIC_URL"          env-default:"http://localhost:8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"SERVER_READ_HEADER_TIMEOUT" env-default:"10s"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"SERVER_READ_TIMEOUT"        env-default:"30s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"SERVER_WRITE_TIMEOUT"       env-default:"60s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"SERVER_IDLE_TIMEOUT"        env-default:"120s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"5s"`
	RateLimit         int           `yaml:"rate_limit"          env:"SERVER_RATE_LIMIT"          env-default:"120"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path" env:"DATABASE_PATH" env-default:"achados.sqlite3"`
}

// AuthConfig holds token and bootstrap settings. An empty JWTSecret means
// the secret is generated once and kept in the database.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer    string        `yaml:"issuer"     env:"AUTH_ISSUER"     env-default:"achados"`
	TokenTTL  time.Duration `yaml:"token_ttl"  env:"AUTH_TOKEN_TTL"  env-default:"168h"`
	AdminUser string        `yaml:"admin_user" env:"AUTH_ADMIN_USER" env-default:"admin"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	File   string `yaml:"file"   env:"LOG_FILE"`
}

// CacheConfig selects the item list cache.
type CacheConfig struct {
	Backend       string        `yaml:"backend"        env:"CACHE_BACKEND"        env-default:"memory"`
	TTL           time.Duration `yaml:"ttl"            env:"CACHE_TTL"            env-default:"1m"`
	RedisAddr     string        `yaml:"redis_addr"     env:"CACHE_REDIS_ADDR"     env-default:"localhost:6379"`
	RedisPassword string        `yaml:"redis_password" env:"CACHE_REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db"       env:"CACHE_REDIS_DB"       env-default:"0"`
	KeyPrefix     string        `yaml:"key_prefix"     env:"CACHE_KEY_PREFIX"     env-default:"achados"`
}

// RealtimeConfig selects the new-item channel.
type RealtimeConfig struct {
	Backend       string `yaml:"backend"        env:"REALTIME_BACKEND"        env-default:"memory"`
	NATSURL       string `yaml:"nats_url"       env:"REALTIME_NATS_URL"       env-default:"nats://localhost:4222"`
	SubjectPrefix string `yaml:"subject_prefix" env:"REALTIME_SUBJECT_PREFIX" env-default:"achados.items.new"`
}

// CatalogConfig controls the in-memory browse snapshot. The snapshot holds
// every OPEN item; PageSize only sets how many are fetched per request.
type CatalogConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"CATALOG_REFRESH_INTERVAL" env-default:"5m"`
	PageSize        int           `yaml:"page_size"        env:"CATALOG_PAGE_SIZE"        env-default:"100"`
	Campus          string        `yaml:"campus"           env:"CATALOG_CAMPUS"`
}

// SubmissionConfig controls server-held submission sessions.
type SubmissionConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl" env:"SUBMISSION_SESSION_TTL" env-default:"30m"`
}

var (
	cacheBackends    = []string{"none", "memory", "redis"}
	realtimeBackends = []string{"memory", "nats"}
	logFormats       = []string{"text", "json"}
)

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if !strings.HasPrefix(c.Server.PublicURL, "http://") && !strings.HasPrefix(c.Server.PublicURL, "https://") {
		errs = append(errs, fmt.Errorf("server.public_url must be an http(s) URL, got %q", c.Server.PublicURL))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v", logFormats))
	}
	if !slices.Contains(cacheBackends, c.Cache.Backend) {
		errs = append(errs, fmt.Errorf("cache.backend must be one of %v", cacheBackends))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if !slices.Contains(realtimeBackends, c.Realtime.Backend) {
		errs = append(errs, fmt.Errorf("realtime.backend must be one of %v", realtimeBackends))
	}
	if c.Catalog.PageSize < 1 || c.Catalog.PageSize > 100 {
		errs = append(errs, errors.New("catalog.page_size must be between 1 and 100"))
	}
	if c.Catalog.RefreshInterval <= 0 {
		errs = append(errs, errors.New("catalog.refresh_interval must be positive"))
	}
	if c.Submission.SessionTTL <= 0 {
		errs = append(errs, errors.New("submission.session_ttl must be positive"))
	}

	return errors.Join(errs...)
}
