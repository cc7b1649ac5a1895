// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"sync"

	"github.com/tomtom215/songrec/internal/metrics"
)

// FeatureCache memoises feature vectors by track URI for the lifetime of the process.
// It is unbounded; Clear is the only eviction. Concurrent writers of the same
// key are last-writer-wins.
type FeatureCache struct {
	mu      sync.RWMutex
	entries map[string]FeatureVector
}

// NewFeatureCache creates an empty cache.
func NewFeatureCache() *FeatureCache {
	return &FeatureCache{entries: make(map[string]FeatureVector)}
}

// Get returns the cached vector for uri.
func (c *FeatureCache) Get(uri string) (FeatureVector, bool) {
	c.mu.RLock()
	v, ok := c.entries[uri]
	c.mu.RUnlock()

	metrics.RecordFeatureCacheLookup(ok)
	return v, ok
}

// Put stores the vector for uri.
func (c *FeatureCache) Put(uri string, v FeatureVector) {
	c.mu.Lock()
	c.entries[uri] = v
	size := len(c.entries)
	c.mu.Unlock()

	metrics.FeatureCacheSize.Set(float64(size))
}

// Clear removes every entry.
func (c *FeatureCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]FeatureVector)
	c.mu.Unlock()

	metrics.FeatureCacheSize.Set(0)
}

// Len returns the number of cached vectors.
func (c *FeatureCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
