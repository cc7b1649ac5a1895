// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/models"
)

// weightedTrack is a preference entry with its list weight.
type weightedTrack struct {
	uri    string
	weight float64
}

// PreferenceAggregator builds a user's weighted preference vector.
type PreferenceAggregator struct {
	provider *FeatureProvider
	weights  PreferenceConfig
	logger   zerolog.Logger
}

// NewPreferenceAggregator creates an aggregator.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPreferenceAggregator(provider *FeatureProvider, weights PreferenceConfig, logger zerolog.Logger) *PreferenceAggregator {
	return &PreferenceAggregator{provider: provider, weights: weights, logger: logger}
}

// entries returns every preference occurrence in list order (loved, liked,
// okay, recently searched). A track listed in several lists appears once per
// listing, each time weighted by the highest-priority list that contains it.
// Hated tracks are excluded.
func (a *PreferenceAggregator) entries(user *models.User) []weightedTrack {
	lists := []struct {
		uris   []string
		weight float64
	}{
		{user.LovedIt, a.weights.LovedWeight},
		{user.LikeIt, a.weights.LikedWeight},
		{user.Okay, a.weights.OkayWeight},
		{user.RecentlySearched, a.weights.SearchedWeight},
	}

	weights := make(map[string]float64)
	for _, list := range lists {
		for _, uri := range list.uris {
			if _, ok := weights[uri]; !ok {
				weights[uri] = list.weight
			}
		}
	}

	var out []weightedTrack
	for _, list := range lists {
		for _, uri := range list.uris {
			out = append(out, weightedTrack{uri: uri, weight: weights[uri]})
		}
	}
	return out
}

// uniqueURIs returns the distinct URIs of entries in first-seen order.
func uniqueURIs(entries []weightedTrack) []string {
	seen := make(map[string]struct{}, len(entries))
	uris := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.uri]; dup {
			continue
		}
		seen[e.uri] = struct{}{}
		uris = append(uris, e.uri)
	}
	return uris
}

// Build returns the weighted mean of the user's preference vectors.
//
// A user with no rated or searched tracks yields the zero vector. Tracks whose
// features cannot be fetched are dropped and the mean is normalised over the
// remaining weights; if every fetch fails the zero vector is returned with a
// warning. Only context cancellation produces an error.
func (a *PreferenceAggregator) Build(ctx context.Context, user *models.User) (FeatureVector, error) {
	var pref FeatureVector

	entries := a.entries(user)
	if len(entries) == 0 {
		return pref, nil
	}

	results, err := a.provider.Vectors(ctx, uniqueURIs(entries))
	if err != nil {
		return pref, err
	}

	vectors := make(map[string]FeatureVector, len(results))
	for _, r := range results {
		if r.Err == nil {
			vectors[r.URI] = r.Vector
		}
	}

	var totalWeight float64
	for _, e := range entries {
		v, ok := vectors[e.uri]
		if !ok {
			continue
		}
		for d := range pref {
			pref[d] += e.weight * v[d]
		}
		totalWeight += e.weight
	}

	if totalWeight == 0 {
		a.logger.Warn().
			Str("username", user.Username).
			Int("tracks", len(entries)).
			Msg("no preference vectors could be fetched, using zero vector")
		return FeatureVector{}, nil
	}

	for d := range pref {
		pref[d] /= totalWeight
	}
	return pref, nil
}
