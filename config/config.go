// Package config loads service configuration from an optional TOML file with
// FDCALC_ environment variable overrides (server.port -> FDCALC_SERVER_PORT).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/warp/deposit-engine/logging"
)

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "FDCALC"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	RateCache RateCacheConfig `mapstructure:"rate_cache"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logger    logging.Config  `mapstructure:"logger"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig configures the HTTP server. EnableScenarios mounts the demo
// scenario routes, which reset the database.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	EnableScenarios bool          `mapstructure:"enable_scenarios"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; ":memory:" for a throwaway database.
	Path string `mapstructure:"path"`
}

// PricingConfig selects and tunes the pricing provider. Mode "http" talks to
// the product and pricing service at BaseURL; "static" serves CatalogPath.
type PricingConfig struct {
	Mode        string        `mapstructure:"mode"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retry_count"`
	CatalogPath string        `mapstructure:"catalog_path"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of the pricing service.
type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// RateCacheConfig controls base rate caching. Backend is memory, sqlite or redis.
// SyncCategories re-syncs benefit categories on every scheduled refresh.
type RateCacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	TTL             time.Duration `mapstructure:"ttl"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	Products        []string      `mapstructure:"products"`
	SyncCategories  bool          `mapstructure:"sync_categories"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	KeyTTL   time.Duration `mapstructure:"key_ttl"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Load reads path (if non-empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Pricing.Mode {
	case "http":
		if c.Pricing.BaseURL == "" {
			return fmt.Errorf("pricing.base_url is required in http mode")
		}
	case "static":
		if c.Pricing.CatalogPath == "" {
			return fmt.Errorf("pricing.catalog_path is required in static mode")
		}
	default:
		return fmt.Errorf("unknown pricing.mode %q", c.Pricing.Mode)
	}
	switch c.RateCache.Backend {
	case "memory", "sqlite":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis rate cache backend")
		}
	default:
		return fmt.Errorf("unknown rate_cache.backend %q", c.RateCache.Backend)
	}
	if c.RateCache.TTL <= 0 {
		return fmt.Errorf("rate_cache.ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("server.enable_scenarios", false)

	v.SetDefault("database.path", "deposits.db")

	v.SetDefault("pricing.mode", "http")
	v.SetDefault("pricing.base_url", "http://localhost:8081")
	v.SetDefault("pricing.timeout", 5*time.Second)
	v.SetDefault("pricing.retry_count", 2)
	v.SetDefault("pricing.catalog_path", "")
	v.SetDefault("pricing.breaker.max_requests", 1)
	v.SetDefault("pricing.breaker.interval", time.Minute)
	v.SetDefault("pricing.breaker.timeout", 30*time.Second)
	v.SetDefault("pricing.breaker.consecutive_failures", 5)

	v.SetDefault("rate_cache.backend", "sqlite")
	v.SetDefault("rate_cache.ttl", 24*time.Hour)
	v.SetDefault("rate_cache.refresh_interval", time.Duration(0))
	v.SetDefault("rate_cache.products", []string{"FD001"})
	v.SetDefault("rate_cache.sync_categories", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_ttl", 7*24*time.Hour)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/deposit-engine.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "deposit_engine")
}
