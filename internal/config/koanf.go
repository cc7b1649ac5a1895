// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/songrec/internal/recommend"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/songrec/config.yaml",
	"/etc/songrec/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second, // recommendation requests fan out to the catalog
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultSearchLimit: 20,
			MaxSearchLimit:     50,
			MaxBodyBytes:       1 << 20,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Catalog: CatalogConfig{
			RequestsPerSecond: 10,
			Burst:             5,
			MaxRetries:        3,
			RetryBackoff:      500 * time.Millisecond,
			RequestTimeout:    10 * time.Second,
			CacheEnabled:      true,
			CachePath:         "./data/catalog-cache",
			CacheTTL:          time.Hour,
			SyntheticFeatures: false,
		},
		Database: DatabaseConfig{
			Path:      "./data/songrec.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Models: ModelsConfig{
			Dir:            "./data/models",
			ReloadInterval: 5 * time.Minute,
			KeepVersions:   3,
		},
		Events: EventsConfig{
			BufferSize:    256,
			DedupCapacity: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: *recommend.DefaultConfig(),
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
// defaults, then the optional config file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// SPOTIFY_CLIENT_ID -> catalog.client_id
	// RECOMMEND_CLUSTER_K -> recommend.cluster.k
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names to koanf config paths.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"environment":           "server.environment",

	// API
	"api_default_search_limit": "api.default_search_limit",
	"api_max_search_limit":     "api.max_search_limit",
	"api_max_body_bytes":       "api.max_body_bytes",

	// Security
	"rate_limit_reqs":    "security.rate_limit_reqs",
	"rate_limit_window":  "security.rate_limit_window",
	"disable_rate_limit": "security.rate_limit_disabled",
	"cors_origins":       "security.cors_origins",

	// Catalog
	"spotify_client_id":           "catalog.client_id",
	"spotify_client_secret":       "catalog.client_secret",
	"spotify_market":              "catalog.market",
	"spotify_requests_per_second": "catalog.requests_per_second",
	"spotify_burst":               "catalog.burst",
	"spotify_max_retries":         "catalog.max_retries",
	"spotify_retry_backoff":       "catalog.retry_backoff",
	"spotify_request_timeout":     "catalog.request_timeout",
	"catalog_cache_enabled":       "catalog.cache_enabled",
	"catalog_cache_path":          "catalog.cache_path",
	"catalog_cache_ttl":           "catalog.cache_ttl",
	"synthetic_features":          "catalog.synthetic_features",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Models
	"models_dir":            "models.dir",
	"model_reload_interval": "models.reload_interval",
	"model_keep_versions":   "models.keep_versions",

	// Events
	"events_buffer_size":    "events.buffer_size",
	"events_dedup_capacity": "events.dedup_capacity",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Recommendation engine
	"recommend_default_algorithm":       "recommend.default_algorithm",
	"recommend_seed_from_preference":    "recommend.similarity.seed_from_preference",
	"recommend_min_similarity":          "recommend.similarity.min_similarity",
	"recommend_min_confidence":          "recommend.cluster.min_confidence",
	"recommend_cluster_k":               "recommend.cluster.k",
	"recommend_similarity_weight":       "recommend.hybrid.similarity_weight",
	"recommend_cluster_weight":          "recommend.hybrid.cluster_weight",
	"recommend_max_recommendations":     "recommend.limits.max_recommendations",
	"recommend_default_recommendations": "recommend.limits.default_recommendations",
	"recommend_fetch_concurrency":       "recommend.limits.fetch_concurrency",
	"recommend_max_candidates":          "recommend.limits.max_candidates",
	"recommend_request_timeout":         "recommend.limits.request_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - SPOTIFY_CLIENT_ID -> catalog.client_id
//   - DUCKDB_PATH -> database.path
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables
	// do not pollute the config.
	return ""
}
