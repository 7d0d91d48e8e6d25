package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Matching  MatchingConfig
	Batch     BatchConfig
	Cache     CacheConfig
	Store     StoreConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DataConfig locates the batch inputs and outputs
type DataConfig struct {
	RecipesPath     string `mapstructure:"recipes_path"`
	PricesPath      string `mapstructure:"prices_path"`
	AssignedPath    string `mapstructure:"assigned_path"` // empty = overwrite prices_path
	ReportPath      string `mapstructure:"report_path"`
	MatchReportPath string `mapstructure:"match_report_path"`
	ReportFormat    string `mapstructure:"report_format"` // "json" or "csv"
}

// MatchingConfig tunes the ingredient matcher
type MatchingConfig struct {
	MaxTruncation      int     `mapstructure:"max_truncation"`
	Suggestions        int     `mapstructure:"suggestions"`
	MinSimilarity      float32 `mapstructure:"min_similarity"`
	FoldAccents        bool    `mapstructure:"fold_accents"`
	EnableDebugLogging bool    `mapstructure:"enable_debug_logging"`
}

// BatchConfig holds batch CLI configuration
type BatchConfig struct {
	Workers int `mapstructure:"workers"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "bolt"
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// StoreConfig selects where the API reads recipes and prices from
type StoreConfig struct {
	Type        string  `mapstructure:"type"` // "file" or "search"
	SearchURL   string  `mapstructure:"search_url"`
	RecipeIndex string  `mapstructure:"recipe_index"`
	PriceIndex  string  `mapstructure:"price_index"`
	RateLimit   float64 `mapstructure:"rate_limit"` // requests per second
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty = console
}

// flagKeys maps batch CLI flags to config keys
var flagKeys = map[string]string{
	"recipes":        "data.recipes_path",
	"prices":         "data.prices_path",
	"assigned":       "data.assigned_path",
	"report":         "data.report_path",
	"match-report":   "data.match_report_path",
	"format":         "data.report_format",
	"workers":        "batch.workers",
	"max-truncation": "matching.max_truncation",
	"suggestions":    "matching.suggestions",
	"fold-accents":   "matching.fold_accents",
	"debug":          "matching.enable_debug_logging",
	"log-level":      "log.level",
	"log-file":       "log.file",
}

// BindFlags registers the batch CLI flags on fs. Pass the parsed set to LoadWithFlags.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file")
	fs.String("recipes", "", "recipe catalog (JSON)")
	fs.String("prices", "", "price records (JSON)")
	fs.String("assigned", "", "where to write assigned price records (default: overwrite --prices)")
	fs.String("report", "", "cost report output path")
	fs.String("match-report", "", "match report output path (empty disables it)")
	fs.String("format", "", "cost report format: json or csv")
	fs.Int("workers", 0, "number of recipes priced in parallel")
	fs.Int("max-truncation", 0, "maximum number of trailing words dropped from ingredient names while matching")
	fs.Int("suggestions", 0, "suggestions per unmatched ingredient in the match report")
	fs.Bool("fold-accents", false, "strip diacritics before matching")
	fs.Bool("debug", false, "log every match and priced ingredient")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.String("log-file", "", "log to a rotating file instead of the console")
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags loads configuration like Load, letting explicitly set flags from
// BindFlags override files and environment
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recipeprice/")

	// Environment variable settings
	v.SetEnvPrefix("RECIPEPRICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	if fs != nil {
		if err := bindFlagSet(v, fs); err != nil {
			return nil, err
		}
	}

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

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func bindFlagSet(v *viper.Viper, fs *pflag.FlagSet) error {
	if f := fs.Lookup("config"); f != nil && f.Changed {
		v.SetConfigFile(f.Value.String())
	}

	for name, key := range flagKeys {
		f := fs.Lookup(name)
		// unset flags must not shadow file and env values with their zero defaults
		if f == nil || !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Data defaults
	v.SetDefault("data.recipes_path", "./data/recipe_marmiton.json")
	v.SetDefault("data.prices_path", "./data/items_ingredient.json")
	v.SetDefault("data.assigned_path", "")
	v.SetDefault("data.report_path", "./data/recipe_costs.json")
	v.SetDefault("data.match_report_path", "")
	v.SetDefault("data.report_format", "json")

	// Matching defaults
	v.SetDefault("matching.max_truncation", 5)
	v.SetDefault("matching.suggestions", 3)
	v.SetDefault("matching.min_similarity", 0.85)
	v.SetDefault("matching.fold_accents", false)
	v.SetDefault("matching.enable_debug_logging", false)

	// Batch defaults
	v.SetDefault("batch.workers", 4)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.path", "./data/cost_cache.db")
	v.SetDefault("cache.ttl", "24h")

	// Store defaults
	v.SetDefault("store.type", "file")
	v.SetDefault("store.search_url", "")
	v.SetDefault("store.recipe_index", "recipes")
	v.SetDefault("store.price_index", "prices")
	v.SetDefault("store.rate_limit", 10.0)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "bolt" {
		return fmt.Errorf("cache type must be 'memory' or 'bolt', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "bolt" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'bolt'")
	}

	if config.Store.Type != "file" && config.Store.Type != "search" {
		return fmt.Errorf("store type must be 'file' or 'search', got: %s", config.Store.Type)
	}

	if config.Store.Type == "search" && config.Store.SearchURL == "" {
		return fmt.Errorf("search URL is required when store type is 'search' (set RECIPEPRICE_STORE_SEARCH_URL)")
	}

	if config.Data.ReportFormat != "json" && config.Data.ReportFormat != "csv" {
		return fmt.Errorf("report format must be 'json' or 'csv', got: %s", config.Data.ReportFormat)
	}

	if config.Batch.Workers <= 0 {
		return fmt.Errorf("batch workers must be positive, got: %d", config.Batch.Workers)
	}

	if config.Matching.MaxTruncation < 0 {
		return fmt.Errorf("max truncation must not be negative, got: %d", config.Matching.MaxTruncation)
	}

	if config.Matching.MinSimilarity < 0 || config.Matching.MinSimilarity > 1 {
		return fmt.Errorf("min similarity must be within [0, 1], got: %v", config.Matching.MinSimilarity)
	}

	return nil
}
