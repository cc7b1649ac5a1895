// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package config provides centralized configuration management for Songrec.

Configuration is layered with Koanf v2:
 1. Built-in defaults (defaultConfig)
 2. An optional YAML file (config.yaml, or the path in CONFIG_PATH)
 3. Environment variables, mapped explicitly in envTransformFunc

# Configuration Structure

  - ServerConfig: HTTP listener and timeouts
  - APIConfig: search limits and request body limits
  - SecurityConfig: rate limiting and CORS
  - CatalogConfig: Spotify credentials, retries, pacing and the feature cache
  - DatabaseConfig: DuckDB user store
  - ModelsConfig: cluster model directory and reload interval
  - EventsConfig: in-process event bus
  - LoggingConfig: zerolog level and format
  - Recommend: recommendation engine weights, thresholds and limits

# Environment Variables

Catalog (CatalogConfig):
  - SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET: client credentials
  - SPOTIFY_MARKET: ISO 3166-1 alpha-2 market for search (optional)
  - SPOTIFY_REQUESTS_PER_SECOND: client-side pacing, 0 disables (default: 10)
  - SPOTIFY_MAX_RETRIES: attempts per call (default: 3)
  - SPOTIFY_RETRY_BACKOFF: base backoff, doubled per attempt (default: 500ms)
  - CATALOG_CACHE_ENABLED, CATALOG_CACHE_PATH, CATALOG_CACHE_TTL
  - SYNTHETIC_FEATURES: derive features locally when the catalog cannot serve them

Recommendation engine (Recommend):
  - RECOMMEND_DEFAULT_ALGORITHM: similarity, clustering or hybrid (default: hybrid)
  - RECOMMEND_SEED_FROM_PREFERENCE: seed similarity from the preference vector
  - RECOMMEND_MAX_RECOMMENDATIONS, RECOMMEND_DEFAULT_RECOMMENDATIONS
  - RECOMMEND_CLUSTER_K, RECOMMEND_REQUEST_TIMEOUT, RECOMMEND_FETCH_CONCURRENCY

Server, storage and logging:
  - HTTP_HOST, HTTP_PORT, HTTP_READ_TIMEOUT, HTTP_WRITE_TIMEOUT
  - DUCKDB_PATH, DUCKDB_MAX_MEMORY
  - MODELS_DIR, MODEL_RELOAD_INTERVAL
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - RATE_LIMIT_REQS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS

# Thread Safety

Config is immutable after Load() and safe for concurrent reads.
*/
package config
