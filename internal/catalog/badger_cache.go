// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	featuresKeyPrefix = "features:"
	trackKeyPrefix    = "track:"
)

// OpenCache opens the BadgerDB database backing CachedCatalog.
// An empty path opens an in-memory database.
func OpenCache(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open catalog cache: %w", err)
	}
	return db, nil
}

// CachedCatalog decorates a Catalog with a persistent cache of audio
// features and track metadata. Entries expire after the configured TTL.
// Failures and searches are never cached.
type CachedCatalog struct {
	upstream Catalog
	db       *badger.DB
	ttl      time.Duration
	logger   zerolog.Logger
}

// Compile-time interface check
var _ Catalog = (*CachedCatalog)(nil)

// NewCachedCatalog wraps upstream with a cache stored in db.
// The caller owns db unless it calls Close.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCachedCatalog(upstream Catalog, db *badger.DB, ttl time.Duration, logger zerolog.Logger) *CachedCatalog {
	return &CachedCatalog{
		upstream: upstream,
		db:       db,
		ttl:      ttl,
		logger:   logger.With().Str("component", "catalog_cache").Logger(),
	}
}

// FetchAudioFeatures returns cached features or fetches and caches them.
func (c *CachedCatalog) FetchAudioFeatures(ctx context.Context, uri string) (models.AudioFeatures, error) {
	id, err := NormalizeID(uri)
	if err != nil {
		return models.AudioFeatures{}, err
	}

	var f models.AudioFeatures
	if c.get(featuresKeyPrefix+id, &f) {
		metrics.CatalogCacheHits.WithLabelValues("features").Inc()
		return f, nil
	}

	f, err = c.upstream.FetchAudioFeatures(ctx, uri)
	if err != nil {
		return models.AudioFeatures{}, err
	}
	c.put(featuresKeyPrefix+id, f)
	return f, nil
}

// FetchAudioFeaturesBatch serves cached items and fetches the rest in one upstream batch.
func (c *CachedCatalog) FetchAudioFeaturesBatch(ctx context.Context, uris []string) []FeaturesResult {
	results := make([]FeaturesResult, len(uris))
	missing := make([]string, 0, len(uris))
	missingPos := make([]int, 0, len(uris))

	for i, uri := range uris {
		results[i].URI = uri
		id, err := NormalizeID(uri)
		if err != nil {
			results[i].Err = err
			continue
		}
		if c.get(featuresKeyPrefix+id, &results[i].Features) {
			metrics.CatalogCacheHits.WithLabelValues("features").Inc()
			continue
		}
		missing = append(missing, uri)
		missingPos = append(missingPos, i)
	}

	if len(missing) == 0 {
		return results
	}

	fetched := c.upstream.FetchAudioFeaturesBatch(ctx, missing)
	for j, r := range fetched {
		if j >= len(missingPos) {
			break
		}
		results[missingPos[j]] = FeaturesResult{URI: uris[missingPos[j]], Features: r.Features, Err: r.Err}
		if r.Err == nil {
			id, _ := NormalizeID(missing[j])
			c.put(featuresKeyPrefix+id, r.Features)
		}
	}
	return results
}

// FetchTrack returns cached metadata or fetches and caches it.
func (c *CachedCatalog) FetchTrack(ctx context.Context, uri string) (models.Track, error) {
	id, err := NormalizeID(uri)
	if err != nil {
		return models.Track{}, err
	}

	var t models.Track
	if c.get(trackKeyPrefix+id, &t) {
		metrics.CatalogCacheHits.WithLabelValues("track").Inc()
		return t, nil
	}

	t, err = c.upstream.FetchTrack(ctx, uri)
	if err != nil {
		return models.Track{}, err
	}
	c.put(trackKeyPrefix+id, t)
	return t, nil
}

// SearchTracks is passed through uncached.
func (c *CachedCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	return c.upstream.SearchTracks(ctx, query, limit)
}

// FetchPlaylistTracks is passed through uncached; playlists change.
func (c *CachedCatalog) FetchPlaylistTracks(ctx context.Context, playlist string, limit int) ([]models.Track, error) {
	return c.upstream.FetchPlaylistTracks(ctx, playlist, limit)
}

// Clear removes every cached entry.
func (c *CachedCatalog) Clear() error {
	if err := c.db.DropPrefix([]byte(featuresKeyPrefix), []byte(trackKeyPrefix)); err != nil {
		return fmt.Errorf("clear catalog cache: %w", err)
	}
	c.logger.Info().Msg("Catalog cache cleared")
	return nil
}

// CacheStats summarizes the persistent cache contents.
type CacheStats struct {
	Features  int   `json:"features"`
	Tracks    int   `json:"tracks"`
	LSMBytes  int64 `json:"lsm_bytes"`
	VLogBytes int64 `json:"vlog_bytes"`
}

// Stats counts live entries per kind and reports the on-disk size.
// Expired entries are not counted.
func (c *CachedCatalog) Stats() (CacheStats, error) {
	var st CacheStats
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		st.Features = countPrefix(it, featuresKeyPrefix)
		st.Tracks = countPrefix(it, trackKeyPrefix)
		return nil
	})
	if err != nil {
		return CacheStats{}, fmt.Errorf("catalog cache stats: %w", err)
	}
	st.LSMBytes, st.VLogBytes = c.db.Size()
	return st, nil
}

func countPrefix(it *badger.Iterator, prefix string) int {
	n := 0
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		n++
	}
	return n
}

// Close closes the underlying database.
func (c *CachedCatalog) Close() error {
	return c.db.Close()
}

// get decodes the value stored at key into target. Misses, expired entries
// and undecodable values all report false.
func (c *CachedCatalog) get(key string, target any) bool {
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, target)
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache read failed")
	}
	return err == nil
}

// put stores value at key. Write failures are logged and otherwise ignored.
func (c *CachedCatalog) put(key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache encode failed")
		return
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Catalog cache write failed")
	}
}
