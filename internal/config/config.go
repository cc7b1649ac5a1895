// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/songrec/internal/recommend"
)

// Config holds all application configuration.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	engine, err := recommend.NewEngine(&cfg.Recommend, catalog, nil, logger)
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	API       APIConfig        `koanf:"api"`
	Security  SecurityConfig   `koanf:"security"`
	Catalog   CatalogConfig    `koanf:"catalog"`
	Database  DatabaseConfig   `koanf:"database"`
	Models    ModelsConfig     `koanf:"models"`
	Events    EventsConfig     `koanf:"events"`
	Logging   LoggingConfig    `koanf:"logging"`
	Recommend recommend.Config `koanf:"recommend"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development" or "production"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig holds API request limits
type APIConfig struct {
	DefaultSearchLimit int   `koanf:"default_search_limit"`
	MaxSearchLimit     int   `koanf:"max_search_limit"`
	MaxBodyBytes       int64 `koanf:"max_body_bytes"`
}

// SecurityConfig holds rate limiting and CORS settings
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// CatalogConfig holds the Spotify catalog client settings.
type CatalogConfig struct {
	// ClientID and ClientSecret are the client-credentials pair.
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`

	// Market restricts search results to a country (optional).
	Market string `koanf:"market"`

	// RequestsPerSecond paces outgoing calls. 0 disables pacing.
	// Default: 10
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	// Burst is the pacing bucket size.
	// Default: 5
	Burst int `koanf:"burst"`

	// MaxRetries is the number of attempts per call.
	// Default: 3
	MaxRetries int `koanf:"max_retries"`

	// RetryBackoff is the first retry delay, doubled on each attempt.
	// Default: 500ms
	RetryBackoff time.Duration `koanf:"retry_backoff"`

	// RequestTimeout bounds a single HTTP exchange.
	// Default: 10s
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// CacheEnabled enables the persistent feature and metadata cache.
	// Default: true
	CacheEnabled bool `koanf:"cache_enabled"`

	// CachePath is the BadgerDB directory. Empty keeps the cache in memory.
	// Default: ./data/catalog-cache
	CachePath string `koanf:"cache_path"`

	// CacheTTL is how long cached entries stay valid.
	// Default: 1h
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// SyntheticFeatures derives deterministic audio features locally when
	// the catalog cannot serve them.
	// Default: false
	SyntheticFeatures bool `koanf:"synthetic_features"`
}

// HasCredentials reports whether both client credentials are set.
func (c *CatalogConfig) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = DuckDB default
}

// ModelsConfig holds cluster model storage settings
type ModelsConfig struct {
	Dir            string        `koanf:"dir"`
	ReloadInterval time.Duration `koanf:"reload_interval"` // 0 disables periodic reloads
	KeepVersions   int           `koanf:"keep_versions"`
}

// EventsConfig holds in-process event bus settings
type EventsConfig struct {
	BufferSize    int64 `koanf:"buffer_size"`
	DedupCapacity int   `koanf:"dedup_capacity"`
}

// LoggingConfig holds logging configuration.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration with the following precedence (highest to lowest):
//  1. Environment variables
//  2. Config file (config.yaml, or the path in CONFIG_PATH)
//  3. Built-in defaults
//
// See LoadWithKoanf() for the underlying implementation.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
