// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"

	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/recommend"
)

// MaxBatchSize is the largest number of ids the audio-features endpoint accepts per call.
const MaxBatchSize = 100

// MaxSearchLimit is the largest page size accepted by the search endpoint.
const MaxSearchLimit = 50

// PlaylistPageSize is the page size used when reading playlist items.
const PlaylistPageSize = 100

// MaxPlaylistTracks bounds how many tracks are read from one playlist.
const MaxPlaylistTracks = 500

var (
	// ErrTrackNotFound is returned when the catalog has no such track.
	ErrTrackNotFound = recommend.ErrTrackNotFound

	// ErrInvalidTrackRef is returned for references that are neither a track URI nor a track ID.
	ErrInvalidTrackRef = errors.New("invalid track reference")

	// ErrPlaylistNotFound is returned when the catalog has no such playlist.
	ErrPlaylistNotFound = errors.New("playlist not found")

	// ErrInvalidPlaylistRef is returned for references that are neither a playlist URI nor a playlist ID.
	ErrInvalidPlaylistRef = errors.New("invalid playlist reference")

	// ErrNoCredentials is returned when the client id or secret is missing.
	ErrNoCredentials = errors.New("catalog credentials not configured")

	// ErrUnavailable is returned while the circuit breaker rejects requests.
	ErrUnavailable = errors.New("catalog temporarily unavailable")
)

// FeaturesResult is the outcome of one item of a batch lookup.
// Exactly one of Features and Err is meaningful.
type FeaturesResult struct {
	URI      string
	Features models.AudioFeatures
	Err      error
}

// Catalog is the full catalog capability used by the application.
type Catalog interface {
	recommend.Catalog

	// FetchAudioFeaturesBatch looks up many tracks at once. The result has
	// one entry per input, in input order; failures are reported per item.
	FetchAudioFeaturesBatch(ctx context.Context, uris []string) []FeaturesResult

	// SearchTracks returns up to limit tracks matching query.
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)

	// FetchPlaylistTracks returns up to limit tracks of a playlist in
	// playlist order. Local files and unavailable items are skipped.
	FetchPlaylistTracks(ctx context.Context, playlist string, limit int) ([]models.Track, error)
}
