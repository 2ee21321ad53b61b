package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	App      AppConfig      `mapstructure:"app"`
	Visits   VisitsConfig   `mapstructure:"visits"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Type             string         `mapstructure:"type"` // memory, sqlite, postgres
	SQLite           SQLiteConfig   `mapstructure:"sqlite"`
	Postgres         PostgresConfig `mapstructure:"postgres"`
	OperationTimeout time.Duration  `mapstructure:"operation_timeout"`
	MaxOpenConns     int            `mapstructure:"max_open_conns"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

// CacheConfig configures the volatile lookup layer in front of the store.
type CacheConfig struct {
	Type             string        `mapstructure:"type"` // redis, memory, none
	Redis            RedisConfig   `mapstructure:"redis"`
	TTL              time.Duration `mapstructure:"ttl"`
	Namespace        string        `mapstructure:"namespace"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	WarmOnCreate     bool          `mapstructure:"warm_on_create"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AppConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	DefaultListLimit int    `mapstructure:"default_list_limit"`
	MaxListLimit     int    `mapstructure:"max_list_limit"`
}

// VisitsConfig controls how redirect visits are written back to the store.
type VisitsConfig struct {
	Mode      string        `mapstructure:"mode"` // async, sync
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Path           string `mapstructure:"path"`
	Namespace      string `mapstructure:"namespace"`
	Subsystem      string `mapstructure:"subsystem"`
	CollectRuntime bool   `mapstructure:"collect_runtime"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/linkly/")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("database.type", "memory")
	v.SetDefault("database.sqlite.path", "./data/linkly.db")
	v.SetDefault("database.postgres.url", "")
	v.SetDefault("database.operation_timeout", "2s")
	v.SetDefault("database.max_open_conns", 25)

	v.SetDefault("cache.type", "none")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.ttl", "3600s")
	v.SetDefault("cache.namespace", "linkly:short_code")
	v.SetDefault("cache.operation_timeout", "50ms")
	v.SetDefault("cache.warm_on_create", true)

	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.default_list_limit", 100)
	v.SetDefault("app.max_list_limit", 500)

	v.SetDefault("visits.mode", "async")
	v.SetDefault("visits.workers", 4)
	v.SetDefault("visits.queue_size", 1024)
	v.SetDefault("visits.timeout", "2s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "linkly")
	v.SetDefault("metrics.subsystem", "shortener")
	v.SetDefault("metrics.collect_runtime", true)

	v.SetDefault("logging.level", "info")
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "memory", "sqlite":
	case "postgres":
		if c.Database.Postgres.URL == "" {
			return fmt.Errorf("database.postgres.url is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	switch c.Cache.Type {
	case "redis", "memory", "none":
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}

	if c.Cache.Type != "none" && c.Database.OperationTimeout > 0 &&
		c.Cache.OperationTimeout >= c.Database.OperationTimeout {
		return fmt.Errorf("cache.operation_timeout (%s) must be shorter than database.operation_timeout (%s)",
			c.Cache.OperationTimeout, c.Database.OperationTimeout)
	}

	switch c.Visits.Mode {
	case "async", "sync":
	default:
		return fmt.Errorf("unsupported visits mode: %s", c.Visits.Mode)
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	switch c.Database.Type {
	case "sqlite":
		return c.Database.SQLite.Path
	case "postgres":
		return c.Database.Postgres.URL
	default:
		return ""
	}
}

// CacheEnabled reports whether a real cache backend is configured.
func (c *Config) CacheEnabled() bool {
	return c.Cache.Type == "redis" || c.Cache.Type == "memory"
}
