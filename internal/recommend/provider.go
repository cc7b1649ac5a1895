// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/songrec/internal/metrics"
)

// VectorResult is the outcome of fetching one track's feature vector.
type VectorResult struct {
	URI    string
	Vector FeatureVector
	Err    error
}

// Gather runs fn for every index in [0, n) with at most limit calls in flight
// and returns the results in index order. fn reports per-item failures in
// its result value; Gather itself only fails when ctx is cancelled, in which
// case partial results are discarded.
func Gather[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) T) ([]T, error) {
	out := make([]T, n)
	if n == 0 {
		return out, ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = fn(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DefaultFetchTimeout bounds a shared catalog fetch.
const DefaultFetchTimeout = 30 * time.Second

// FeatureProvider resolves feature vectors through the cache, falling back to
// the catalog on a miss. Concurrent misses for the same URI share one catalog call.
// The shared call is detached from the cancellation of whichever caller started
// it, so one request giving up never fails another waiting on the same URI.
type FeatureProvider struct {
	catalog      Catalog
	cache        *FeatureCache
	concurrency  int
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       zerolog.Logger
}

// NewFeatureProvider creates a provider backed by catalog and cache.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewFeatureProvider(catalog Catalog, cache *FeatureCache, concurrency int, logger zerolog.Logger) *FeatureProvider {
	return &FeatureProvider{
		catalog:      catalog,
		cache:        cache,
		concurrency:  concurrency,
		fetchTimeout: DefaultFetchTimeout,
		logger:       logger,
	}
}

// SetFetchTimeout changes the bound on a shared catalog fetch.
// Non-positive values keep the current timeout.
func (p *FeatureProvider) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		p.fetchTimeout = d
	}
}

// Vector returns the feature vector of uri.
func (p *FeatureProvider) Vector(ctx context.Context, uri string) (FeatureVector, error) {
	if v, ok := p.cache.Get(uri); ok {
		return v, nil
	}

	ch := p.group.DoChan(uri, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()

		features, err := p.catalog.FetchAudioFeatures(fetchCtx, uri)
		if err != nil {
			return nil, err
		}
		v := Extract(features)
		p.cache.Put(uri, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return FeatureVector{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return FeatureVector{}, UpstreamError(fmt.Sprintf("fetch audio features %s", uri), res.Err)
		}
		v, _ := res.Val.(FeatureVector)
		return v, nil
	}
}

// Vectors fetches the vectors of uris concurrently. Results are index-aligned
// with uris; a failed fetch is reported in that item's Err and logged at warn.
// The returned error is non-nil only when ctx is cancelled.
func (p *FeatureProvider) Vectors(ctx context.Context, uris []string) ([]VectorResult, error) {
	results, err := Gather(ctx, p.concurrency, len(uris), func(ctx context.Context, i int) VectorResult {
		v, err := p.Vector(ctx, uris[i])
		return VectorResult{URI: uris[i], Vector: v, Err: err}
	})
	if err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.Err != nil && ctx.Err() == nil {
			metrics.FeatureFetchFailures.Inc()
			p.logger.Warn().
				Str("track", r.URI).
				Err(r.Err).
				Msg("feature fetch failed, dropping track")
		}
	}
	return results, nil
}

// Candidates resolves uris into candidates, dropping tracks whose features
// could not be fetched. Input order is preserved.
func (p *FeatureProvider) Candidates(ctx context.Context, uris []string) ([]Candidate, error) {
	results, err := p.Vectors(ctx, uris)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			candidates = append(candidates, Candidate{URI: r.URI, Vector: r.Vector})
		}
	}
	return candidates, nil
}
