package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OFF       OFFConfig       `mapstructure:"off"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Seed      SeedConfig      `mapstructure:"seed"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OFFConfig holds Open Food Facts client configuration
type OFFConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	UserAgent         string        `mapstructure:"user_agent"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	DefaultLocale     string        `mapstructure:"default_locale"`
	SearchPageSize    int           `mapstructure:"search_page_size"`
	LocalFallback     bool          `mapstructure:"local_fallback"`
}

// DatabaseConfig holds the product/seed store configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // "postgres" or "memory"
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectAttempts int           `mapstructure:"connect_attempts"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	LogSQL          bool          `mapstructure:"log_sql"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type            string        `mapstructure:"type"` // "postgres", "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	ProductTTL      time.Duration `mapstructure:"product_ttl"`
	SearchTTL       time.Duration `mapstructure:"search_ttl"`
	SearchHitPolicy string        `mapstructure:"search_hit_policy"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// LimitRule is one fixed-window allowance
type LimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitConfig holds per-operation inbound limits, keyed by client IP
type RateLimitConfig struct {
	Search  LimitRule `mapstructure:"search"`
	Product LimitRule `mapstructure:"product"`
	Seed    LimitRule `mapstructure:"seed"`
}

// SeedConfig holds seeding defaults and the optional in-process schedule
type SeedConfig struct {
	Terms    []string `mapstructure:"terms"`
	Locale   string   `mapstructure:"locale"`
	PageSize int      `mapstructure:"page_size"`
	Schedule string   `mapstructure:"schedule"` // cron spec; empty disables the scheduler
	RunID    string   `mapstructure:"run_id"`   // resume this run instead of starting a new one
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodsync/")

	// FOODSYNC_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("FOODSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports variables from path without overriding ones already set.
// A missing file is not an error.
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error reading %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Upstream defaults
	v.SetDefault("off.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("off.user_agent", "foodsync/1.0 (recipe admin panel; ops@recipepanel.dev)")
	v.SetDefault("off.timeout", "20s")
	v.SetDefault("off.requests_per_minute", 60)
	v.SetDefault("off.default_locale", "en")
	v.SetDefault("off.search_page_size", 24)
	v.SetDefault("off.local_fallback", true)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.connect_attempts", 10)
	v.SetDefault("database.retry_delay", "3s")
	v.SetDefault("database.log_sql", false)

	// Cache defaults
	v.SetDefault("cache.type", "postgres")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.product_ttl", "720h") // 30 days
	v.SetDefault("cache.search_ttl", "168h")  // 7 days
	v.SetDefault("cache.search_hit_policy", "local_first")
	v.SetDefault("cache.sweep_interval", "10m")

	// Rate limit defaults
	v.SetDefault("ratelimit.search.limit", 30)
	v.SetDefault("ratelimit.search.window", "1m")
	v.SetDefault("ratelimit.product.limit", 60)
	v.SetDefault("ratelimit.product.window", "1m")
	v.SetDefault("ratelimit.seed.limit", 10)
	v.SetDefault("ratelimit.seed.window", "1m")

	// Seed defaults
	v.SetDefault("seed.terms", []string{})
	v.SetDefault("seed.locale", "")
	v.SetDefault("seed.page_size", 50)
	v.SetDefault("seed.schedule", "")
	v.SetDefault("seed.run_id", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.OFF.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required (set FOODSYNC_OFF_BASE_URL)")
	}

	if strings.TrimSpace(config.OFF.UserAgent) == "" {
		return fmt.Errorf("upstream user agent is required (set FOODSYNC_OFF_USER_AGENT)")
	}

	if config.OFF.SearchPageSize < 1 || config.OFF.SearchPageSize > 100 {
		return fmt.Errorf("search page size must be between 1 and 100, got: %d", config.OFF.SearchPageSize)
	}

	switch config.Database.Driver {
	case "postgres":
		if config.Database.DSN == "" {
			return fmt.Errorf("database DSN is required when driver is 'postgres' (set FOODSYNC_DATABASE_DSN)")
		}
	case "memory":
	default:
		return fmt.Errorf("database driver must be 'postgres' or 'memory', got: %s", config.Database.Driver)
	}

	switch config.Cache.Type {
	case "memory":
	case "postgres":
		if config.Database.Driver != "postgres" {
			return fmt.Errorf("cache type 'postgres' requires database driver 'postgres'")
		}
	case "redis":
		if config.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when cache type is 'redis'")
		}
	default:
		return fmt.Errorf("cache type must be 'postgres', 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.SearchHitPolicy != "local_first" && config.Cache.SearchHitPolicy != "cached_payload" {
		return fmt.Errorf("search hit policy must be 'local_first' or 'cached_payload', got: %s", config.Cache.SearchHitPolicy)
	}

	if config.Cache.ProductTTL <= 0 || config.Cache.SearchTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	for name, rule := range map[string]LimitRule{
		"search":  config.RateLimit.Search,
		"product": config.RateLimit.Product,
		"seed":    config.RateLimit.Seed,
	} {
		if rule.Limit < 1 || rule.Window <= 0 {
			return fmt.Errorf("rate limit for %s needs a positive limit and window", name)
		}
	}

	if config.Seed.Schedule != "" && len(config.Seed.Terms) == 0 && config.Seed.RunID == "" {
		return fmt.Errorf("seed schedule needs seed terms or a seed run id")
	}

	return nil
}
