package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is loaded once in main and
// passed explicitly to constructors; services never read the environment
// themselves.
type Config struct {
	Port        string `mapstructure:"PORT"`
	DBPath      string `mapstructure:"DB_PATH"`
	CacheDir    string `mapstructure:"CACHE_DIR"`
	CORSOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	CatalogBaseURL string `mapstructure:"CATALOG_BASE_URL"`
	CatalogAPIKey  string `mapstructure:"CATALOG_API_KEY"`
	CatalogTeamID  string `mapstructure:"CATALOG_TEAM_ID"`
	// CatalogRateLimit is the max catalog requests per second.
	CatalogRateLimit float64       `mapstructure:"CATALOG_RATE_LIMIT"`
	CatalogTimeout   time.Duration `mapstructure:"CATALOG_TIMEOUT"`

	SearchCacheTTL time.Duration `mapstructure:"SEARCH_CACHE_TTL"`
	// SearchDebounce is the delay between a query edit and the fetch it
	// schedules.
	SearchDebounce time.Duration `mapstructure:"SEARCH_DEBOUNCE"`
	PageSize       int           `mapstructure:"PAGE_SIZE"`
}

// Load reads configuration from the environment (an optional .env file is
// loaded by main before this runs) and applies defaults.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_PATH", "./pokebinder.db")
	v.SetDefault("CACHE_DIR", "./cache")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CATALOG_BASE_URL", "https://api.pokemontcg.io/v2")
	v.SetDefault("CATALOG_RATE_LIMIT", 10.0)
	v.SetDefault("CATALOG_TIMEOUT", 30*time.Second)
	v.SetDefault("SEARCH_CACHE_TTL", 10*time.Minute)
	v.SetDefault("SEARCH_DEBOUNCE", 300*time.Millisecond)
	v.SetDefault("PAGE_SIZE", 24)

	// Viper only reads env keys it knows about; bind the ones without
	// defaults explicitly.
	for _, key := range []string{"CORS_ALLOWED_ORIGINS", "JWT_SECRET", "CATALOG_API_KEY", "CATALOG_TEAM_ID"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 24
	}

	return cfg, nil
}
