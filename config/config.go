package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Catalog   CatalogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Ranking   RankingConfig
	Auth      AuthConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CatalogConfig selects and configures the catalog data source
type CatalogConfig struct {
	Source       string        `mapstructure:"source"` // "memory", "remote" or "sql"
	FixturePath  string        `mapstructure:"fixture_path"`
	WatchFixture bool          `mapstructure:"watch_fixture"`
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Driver       string        `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN          string        `mapstructure:"dsn"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration, in requests per minute
type RateLimitConfig struct {
	PerIP   int `mapstructure:"per_ip"`
	Catalog int `mapstructure:"catalog"`
}

// RankingConfig holds ranking engine tuning
type RankingConfig struct {
	MaxOffersPerItem   int  `mapstructure:"max_offers_per_item"`
	MaxAlternatives    int  `mapstructure:"max_alternatives"`
	LookupConcurrency  int  `mapstructure:"lookup_concurrency"`
	EnableDebugLogging bool `mapstructure:"enable_debug_logging"`
}

// AuthConfig holds JWT verification settings. An empty secret disables auth.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from .env, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/mercai/")

	// Environment variable settings (MERCAI_CATALOG_BASE_URL -> catalog.base_url)
	v.SetEnvPrefix("MERCAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
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

// loadEnvFile loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func loadEnvFile() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Catalog defaults
	v.SetDefault("catalog.source", "memory")
	v.SetDefault("catalog.fixture_path", "")
	v.SetDefault("catalog.watch_fixture", false)
	v.SetDefault("catalog.base_url", "http://localhost:5000/api")
	v.SetDefault("catalog.timeout", "10s")
	v.SetDefault("catalog.driver", "postgres")
	v.SetDefault("catalog.dsn", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "30m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.catalog", 600)

	// Ranking defaults
	v.SetDefault("ranking.max_offers_per_item", 5)
	v.SetDefault("ranking.max_alternatives", 3)
	v.SetDefault("ranking.lookup_concurrency", 4)
	v.SetDefault("ranking.enable_debug_logging", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Catalog.Source {
	case "memory":
		if config.Catalog.WatchFixture && config.Catalog.FixturePath == "" {
			return fmt.Errorf("fixture path is required when watching the fixture (set MERCAI_CATALOG_FIXTURE_PATH)")
		}
	case "remote":
		if config.Catalog.BaseURL == "" {
			return fmt.Errorf("catalog base URL is required for the remote source (set MERCAI_CATALOG_BASE_URL)")
		}
	case "sql":
		if config.Catalog.DSN == "" {
			return fmt.Errorf("catalog DSN is required for the sql source (set MERCAI_CATALOG_DSN)")
		}
	default:
		return fmt.Errorf("catalog source must be 'memory', 'remote' or 'sql', got: %s", config.Catalog.Source)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	if config.Ranking.MaxOffersPerItem < 0 || config.Ranking.MaxAlternatives < 0 || config.Ranking.LookupConcurrency < 0 {
		return fmt.Errorf("ranking limits must not be negative")
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("per-IP rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
