// Package config provides configuration management for siteatlas. Values
// load from an optional YAML file and SITEATLAS_* environment variables,
// with env taking precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/siteatlas/internal/pipeline"
	"github.com/jonesrussell/siteatlas/internal/storage"
)

// Defaults.
const (
	defaultServerAddress      = ":8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second

	defaultMaxDepth = 3
	defaultMaxPages = 100

	defaultPostgresHost    = "localhost"
	defaultPostgresPort    = 5432
	defaultPostgresUser    = "siteatlas"
	defaultPostgresDB      = "siteatlas"
	defaultPostgresSSLMode = "disable"

	defaultRedisAddr = "localhost:6379"

	defaultSearchTopK = 10
)

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	Encoding    string `mapstructure:"encoding"`
}

// ExplorerConfig holds default exploration bounds and retry policy.
type ExplorerConfig struct {
	MaxDepth          int                  `mapstructure:"max_depth"`
	MaxPages          int                  `mapstructure:"max_pages"`
	IncludeSubdomains bool                 `mapstructure:"include_subdomains"`
	UserAgent         string               `mapstructure:"user_agent"`
	RequestTimeout    time.Duration        `mapstructure:"request_timeout"`
	Retry             pipeline.RetryConfig `mapstructure:"retry"`
}

// StorageConfig selects the knowledge and vector store backends.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "memory" or "postgres"
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password" json:"-"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig holds Redis settings for progress events and the request
// queue.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// VectorConfig holds vector-search settings.
type VectorConfig struct {
	SearchTopK int `mapstructure:"search_top_k"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Config is the application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  LogConfig      `mapstructure:"logging"`
	Explorer ExplorerConfig `mapstructure:"explorer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Server   ServerConfig   `mapstructure:"server"`
}

// Load reads configuration from path (optional) and the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("siteatlas")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.siteatlas")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.encoding", "json")

	v.SetDefault("explorer.max_depth", defaultMaxDepth)
	v.SetDefault("explorer.max_pages", defaultMaxPages)
	v.SetDefault("explorer.include_subdomains", false)
	v.SetDefault("explorer.user_agent", "siteatlas/1.0")
	v.SetDefault("explorer.request_timeout", "30s")
	v.SetDefault("explorer.retry.max_attempts", pipeline.DefaultMaxAttempts)
	v.SetDefault("explorer.retry.initial_backoff", pipeline.DefaultInitialBackoff)
	v.SetDefault("explorer.retry.max_backoff", pipeline.DefaultMaxBackoff)

	v.SetDefault("storage.backend", storage.BackendMemory)

	v.SetDefault("postgres.host", defaultPostgresHost)
	v.SetDefault("postgres.port", defaultPostgresPort)
	v.SetDefault("postgres.user", defaultPostgresUser)
	v.SetDefault("postgres.database", defaultPostgresDB)
	v.SetDefault("postgres.sslmode", defaultPostgresSSLMode)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", defaultRedisAddr)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "siteatlas")

	v.SetDefault("vector.search_top_k", defaultSearchTopK)

	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", defaultServerReadTimeout)
	v.SetDefault("server.write_timeout", defaultServerWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultServerIdleTimeout)
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case storage.BackendMemory, storage.BackendPostgres:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			storage.BackendMemory, storage.BackendPostgres, c.Storage.Backend)
	}

	if c.Storage.Backend == storage.BackendPostgres {
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return errors.New("postgres.host and postgres.database are required for the postgres backend")
		}
	}

	if c.Explorer.MaxDepth < 0 {
		return fmt.Errorf("explorer.max_depth must be non-negative, got %d", c.Explorer.MaxDepth)
	}
	if c.Explorer.MaxPages <= 0 {
		return fmt.Errorf("explorer.max_pages must be positive, got %d", c.Explorer.MaxPages)
	}
	if c.Vector.SearchTopK <= 0 {
		return fmt.Errorf("vector.search_top_k must be positive, got %d", c.Vector.SearchTopK)
	}
	if c.Server.Address == "" {
		return errors.New("server.address is required")
	}

	return nil
}
