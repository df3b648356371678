package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"MERCAI_SERVER_PORT",
	"MERCAI_SERVER_ENVIRONMENT",
	"MERCAI_SERVER_ALLOWED_ORIGINS",
	"MERCAI_CATALOG_SOURCE",
	"MERCAI_CATALOG_FIXTURE_PATH",
	"MERCAI_CATALOG_WATCH_FIXTURE",
	"MERCAI_CATALOG_BASE_URL",
	"MERCAI_CATALOG_TIMEOUT",
	"MERCAI_CATALOG_DRIVER",
	"MERCAI_CATALOG_DSN",
	"MERCAI_CACHE_TYPE",
	"MERCAI_CACHE_TTL",
	"MERCAI_RATELIMIT_PER_IP",
	"MERCAI_RATELIMIT_CATALOG",
	"MERCAI_RANKING_MAX_OFFERS_PER_ITEM",
	"MERCAI_RANKING_LOOKUP_CONCURRENCY",
	"MERCAI_AUTH_JWT_SECRET",
	"MERCAI_LOG_LEVEL",
}

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		for _, key := range configEnvVars {
			os.Unsetenv(key)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.ShutdownTimeout != 10*time.Second {
			t.Errorf("Server.ShutdownTimeout = %v, want 10s", cfg.Server.ShutdownTimeout)
		}
		if cfg.Catalog.Source != "memory" {
			t.Errorf("Catalog.Source = %s, want memory", cfg.Catalog.Source)
		}
		if cfg.Catalog.Timeout != 10*time.Second {
			t.Errorf("Catalog.Timeout = %v, want 10s", cfg.Catalog.Timeout)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 30*time.Minute {
			t.Errorf("Cache.TTL = %v, want 30m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.RateLimit.Catalog != 600 {
			t.Errorf("RateLimit.Catalog = %d, want 600", cfg.RateLimit.Catalog)
		}
		if cfg.Ranking.MaxOffersPerItem != 5 || cfg.Ranking.MaxAlternatives != 3 || cfg.Ranking.LookupConcurrency != 4 {
			t.Errorf("Ranking = %+v, want 5/3/4", cfg.Ranking)
		}
		if cfg.Auth.JWTSecret != "" {
			t.Errorf("Auth.JWTSecret = %q, want empty", cfg.Auth.JWTSecret)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MERCAI_SERVER_PORT", "9090")
		os.Setenv("MERCAI_SERVER_ENVIRONMENT", "production")
		os.Setenv("MERCAI_SERVER_ALLOWED_ORIGINS", "https://mercai.app,http://localhost:*")
		os.Setenv("MERCAI_CATALOG_SOURCE", "remote")
		os.Setenv("MERCAI_CATALOG_BASE_URL", "https://api.mercai.app/api")
		os.Setenv("MERCAI_CATALOG_TIMEOUT", "3s")
		os.Setenv("MERCAI_CACHE_TYPE", "none")
		os.Setenv("MERCAI_CACHE_TTL", "5m")
		os.Setenv("MERCAI_RATELIMIT_PER_IP", "200")
		os.Setenv("MERCAI_RANKING_MAX_OFFERS_PER_ITEM", "10")
		os.Setenv("MERCAI_AUTH_JWT_SECRET", "secret")
		os.Setenv("MERCAI_LOG_LEVEL", "debug")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if got := strings.Join(cfg.Server.AllowedOrigins, " "); got != "https://mercai.app http://localhost:*" {
			t.Errorf("Server.AllowedOrigins = %v, want both origins", cfg.Server.AllowedOrigins)
		}
		if cfg.Catalog.Source != "remote" {
			t.Errorf("Catalog.Source = %s, want remote", cfg.Catalog.Source)
		}
		if cfg.Catalog.BaseURL != "https://api.mercai.app/api" {
			t.Errorf("Catalog.BaseURL = %s, want https://api.mercai.app/api", cfg.Catalog.BaseURL)
		}
		if cfg.Catalog.Timeout != 3*time.Second {
			t.Errorf("Catalog.Timeout = %v, want 3s", cfg.Catalog.Timeout)
		}
		if cfg.Cache.Type != "none" {
			t.Errorf("Cache.Type = %s, want none", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Ranking.MaxOffersPerItem != 10 {
			t.Errorf("Ranking.MaxOffersPerItem = %d, want 10", cfg.Ranking.MaxOffersPerItem)
		}
		if cfg.Auth.JWTSecret != "secret" {
			t.Errorf("Auth.JWTSecret = %s, want secret", cfg.Auth.JWTSecret)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
		}
	})

	t.Run("fails validation for unknown catalog source", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MERCAI_CATALOG_SOURCE", "mongo")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for unknown catalog source")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: catalog source must be") {
			t.Errorf("Load() error = %v, want catalog source error", err)
		}
	})

	t.Run("fails validation when sql source has no DSN", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("MERCAI_CATALOG_SOURCE", "sql")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for missing DSN")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_MERCAI_VAR_1=value1

TEST_MERCAI_VAR_2=value2
# TEST_MERCAI_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		defer func() {
			os.Unsetenv("TEST_MERCAI_VAR_1")
			os.Unsetenv("TEST_MERCAI_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_MERCAI_VAR_1") != "value1" {
			t.Errorf("TEST_MERCAI_VAR_1 = %s, want value1", os.Getenv("TEST_MERCAI_VAR_1"))
		}
		if os.Getenv("TEST_MERCAI_VAR_2") != "value2" {
			t.Errorf("TEST_MERCAI_VAR_2 = %s, want value2", os.Getenv("TEST_MERCAI_VAR_2"))
		}
		if os.Getenv("TEST_MERCAI_COMMENTED") != "" {
			t.Errorf("TEST_MERCAI_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		os.Setenv("TEST_MERCAI_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_MERCAI_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_MERCAI_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_MERCAI_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_MERCAI_OVERRIDE = %s, want existing-value", os.Getenv("TEST_MERCAI_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "memory source with embedded fixture",
			config: Config{Catalog: CatalogConfig{Source: "memory"}, Cache: CacheConfig{Type: "memory"}},
		},
		{
			name:    "watching without a fixture path",
			config:  Config{Catalog: CatalogConfig{Source: "memory", WatchFixture: true}, Cache: CacheConfig{Type: "memory"}},
			wantErr: true,
		},
		{
			name:   "remote source with base URL",
			config: Config{Catalog: CatalogConfig{Source: "remote", BaseURL: "http://backend/api"}, Cache: CacheConfig{Type: "none"}},
		},
		{
			name:    "remote source without base URL",
			config:  Config{Catalog: CatalogConfig{Source: "remote"}, Cache: CacheConfig{Type: "memory"}},
			wantErr: true,
		},
		{
			name:   "sql source with DSN",
			config: Config{Catalog: CatalogConfig{Source: "sql", Driver: "sqlite", DSN: "file:mercai.db"}, Cache: CacheConfig{Type: "memory"}},
		},
		{
			name:    "invalid cache type",
			config:  Config{Catalog: CatalogConfig{Source: "memory"}, Cache: CacheConfig{Type: "redis"}},
			wantErr: true,
		},
		{
			name: "negative ranking limit",
			config: Config{
				Catalog: CatalogConfig{Source: "memory"},
				Cache:   CacheConfig{Type: "memory"},
				Ranking: RankingConfig{MaxAlternatives: -1},
			},
			wantErr: true,
		},
		{
			name: "negative rate limit",
			config: Config{
				Catalog:   CatalogConfig{Source: "memory"},
				Cache:     CacheConfig{Type: "memory"},
				RateLimit: RateLimitConfig{PerIP: -5},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(&tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
