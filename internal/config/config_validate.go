// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package config

import (
	"fmt"

	"github.com/tomtom215/songrec/internal/validation"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	if err := c.validateSecurity(); err != nil {
		return err
	}

	if err := c.validateCatalog(); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP_READ_TIMEOUT and HTTP_WRITE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.MaxSearchLimit < 1 || c.API.MaxSearchLimit > 50 {
		return fmt.Errorf("API_MAX_SEARCH_LIMIT must be between 1 and 50")
	}
	if c.API.DefaultSearchLimit < 1 || c.API.DefaultSearchLimit > c.API.MaxSearchLimit {
		return fmt.Errorf("API_DEFAULT_SEARCH_LIMIT must be between 1 and API_MAX_SEARCH_LIMIT")
	}
	if c.API.MaxBodyBytes < 1 {
		return fmt.Errorf("API_MAX_BODY_BYTES must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be positive")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	cat := &c.Catalog
	if (cat.ClientID == "") != (cat.ClientSecret == "") {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set together")
	}
	if cat.Market != "" && !validation.IsMarket(cat.Market) {
		return fmt.Errorf("SPOTIFY_MARKET must be an ISO 3166-1 alpha-2 code, got %q", cat.Market)
	}
	if cat.RequestsPerSecond < 0 {
		return fmt.Errorf("SPOTIFY_REQUESTS_PER_SECOND must not be negative")
	}
	if cat.RequestsPerSecond > 0 && cat.Burst < 1 {
		return fmt.Errorf("SPOTIFY_BURST must be positive when pacing is enabled")
	}
	if cat.MaxRetries < 1 {
		return fmt.Errorf("SPOTIFY_MAX_RETRIES must be at least 1")
	}
	if cat.RetryBackoff < 0 || cat.RequestTimeout <= 0 {
		return fmt.Errorf("SPOTIFY_RETRY_BACKOFF must not be negative and SPOTIFY_REQUEST_TIMEOUT must be positive")
	}
	if cat.CacheEnabled && cat.CacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("MODELS_DIR is required")
	}
	if c.Models.ReloadInterval < 0 {
		return fmt.Errorf("MODEL_RELOAD_INTERVAL must not be negative")
	}
	if c.Models.KeepVersions < 1 {
		return fmt.Errorf("MODEL_KEEP_VERSIONS must be at least 1")
	}
	if c.Events.BufferSize < 0 || c.Events.DedupCapacity < 1 {
		return fmt.Errorf("EVENTS_BUFFER_SIZE must not be negative and EVENTS_DEDUP_CAPACITY must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
