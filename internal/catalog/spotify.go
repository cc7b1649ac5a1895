// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/models"
)

const breakerName = "spotify-api"

// spotifyAPI is the subset of the Web API client used here.
// *spotify.Client satisfies it.
type spotifyAPI interface {
	GetAudioFeatures(ids ...spotify.ID) ([]*spotify.AudioFeatures, error)
	GetTrack(id spotify.ID) (*spotify.FullTrack, error)
	SearchOpt(query string, t spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error)
	GetPlaylistTracksOpt(playlistID spotify.ID, opt *spotify.Options, fields string) (*spotify.PlaylistTrackPage, error)
}

// SpotifyClient implements Catalog over the Spotify Web API.
// It is safe for concurrent use.
type SpotifyClient struct {
	api        spotifyAPI
	limiter    *rate.Limiter
	breaker    *breaker
	market     string
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

// Compile-time interface check
var _ Catalog = (*SpotifyClient)(nil)

// NewSpotifyClient creates a client authenticated with the client-credentials flow.
// ctx is used for token refreshes and should outlive the client.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSpotifyClient(ctx context.Context, cfg *config.CatalogConfig, logger zerolog.Logger) (*SpotifyClient, error) {
	if !cfg.HasCredentials() {
		return nil, ErrNoCredentials
	}

	ccfg := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotify.TokenURL,
	}
	tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.RequestTimeout})
	httpClient := ccfg.Client(tokenCtx)
	httpClient.Timeout = cfg.RequestTimeout

	api := spotify.NewClient(httpClient)
	return newSpotifyClient(&api, cfg, DefaultBreakerSettings(), logger), nil
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func newSpotifyClient(api spotifyAPI, cfg *config.CatalogConfig, bs BreakerSettings, logger zerolog.Logger) *SpotifyClient {
	logger = logger.With().Str("component", "catalog").Logger()

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}

	return &SpotifyClient{
		api:        api,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    newBreaker(breakerName, bs, logger),
		market:     cfg.Market,
		maxRetries: retries,
		backoff:    cfg.RetryBackoff,
		logger:     logger,
	}
}

// do runs one catalog operation with pacing, circuit breaking and retries.
// Each attempt is counted by the breaker.
func do[T any](ctx context.Context, c *SpotifyClient, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	var zero T

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.RecordCatalogRequest(op, "failure", time.Since(start))
			return zero, fmt.Errorf("%s: wait for rate limiter: %w", op, err)
		}

		v, err := castResult[T](c.breaker.execute(func() (any, error) {
			res, callErr := callWithContext(ctx, fn)
			return res, callErr
		}))
		if err == nil {
			metrics.RecordCatalogRequest(op, "success", time.Since(start))
			return v, nil
		}

		if !shouldRetry(err) || attempt+1 >= c.maxRetries {
			result := "failure"
			if isNotFound(err) {
				result = "not_found"
			}
			metrics.RecordCatalogRequest(op, result, time.Since(start))
			return zero, err
		}

		delay := backoffFor(c.backoff, attempt)
		metrics.CatalogRequests.WithLabelValues(op, "retry").Inc()
		c.logger.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt+1).
			Int("max_attempts", c.maxRetries).
			Dur("backoff", delay).
			Msg("Retrying catalog request")

		if err := sleepWithContext(ctx, delay); err != nil {
			metrics.RecordCatalogRequest(op, "failure", time.Since(start))
			return zero, err
		}
	}
}

// FetchAudioFeatures returns the audio features of one track.
func (c *SpotifyClient) FetchAudioFeatures(ctx context.Context, uri string) (models.AudioFeatures, error) {
	id, err := NormalizeID(uri)
	if err != nil {
		return models.AudioFeatures{}, err
	}

	list, err := do(ctx, c, "audio_features", func() ([]*spotify.AudioFeatures, error) {
		return c.api.GetAudioFeatures(spotify.ID(id))
	})
	if err != nil {
		return models.AudioFeatures{}, c.wrap("fetch audio features", id, err)
	}
	if len(list) == 0 || list[0] == nil {
		return models.AudioFeatures{}, fmt.Errorf("fetch audio features %s: %w", id, ErrTrackNotFound)
	}
	return mapAudioFeatures(list[0])
}

// FetchAudioFeaturesBatch looks up the features of many tracks, MaxBatchSize ids per call.
func (c *SpotifyClient) FetchAudioFeaturesBatch(ctx context.Context, uris []string) []FeaturesResult {
	results := make([]FeaturesResult, len(uris))

	// positions of valid ids, in input order
	ids := make([]spotify.ID, 0, len(uris))
	pos := make([]int, 0, len(uris))
	for i, uri := range uris {
		results[i].URI = uri
		id, err := NormalizeID(uri)
		if err != nil {
			results[i].Err = err
			continue
		}
		ids = append(ids, spotify.ID(id))
		pos = append(pos, i)
	}

	for start := 0; start < len(ids); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(ids))
		chunk := ids[start:end]

		list, err := do(ctx, c, "audio_features_batch", func() ([]*spotify.AudioFeatures, error) {
			return c.api.GetAudioFeatures(chunk...)
		})
		for j := range chunk {
			r := &results[pos[start+j]]
			switch {
			case err != nil:
				r.Err = c.wrap("fetch audio features", string(chunk[j]), err)
			case j >= len(list) || list[j] == nil:
				r.Err = fmt.Errorf("fetch audio features %s: %w", chunk[j], ErrTrackNotFound)
			default:
				r.Features, r.Err = mapAudioFeatures(list[j])
			}
		}
	}

	c.logger.Debug().Int("requested", len(uris)).Int("valid", len(ids)).Msg("Fetched audio features batch")
	return results
}

// FetchTrack returns the metadata of one track.
func (c *SpotifyClient) FetchTrack(ctx context.Context, uri string) (models.Track, error) {
	id, err := NormalizeID(uri)
	if err != nil {
		return models.Track{}, err
	}

	full, err := do(ctx, c, "track", func() (*spotify.FullTrack, error) {
		return c.api.GetTrack(spotify.ID(id))
	})
	if err != nil {
		return models.Track{}, c.wrap("fetch track", id, err)
	}
	if full == nil {
		return models.Track{}, fmt.Errorf("fetch track %s: %w", id, ErrTrackNotFound)
	}
	return mapTrack(full)
}

// SearchTracks returns up to limit tracks matching query, restricted to the
// configured market when one is set.
func (c *SpotifyClient) SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search tracks: empty query")
	}
	if limit < 1 || limit > MaxSearchLimit {
		return nil, fmt.Errorf("search tracks: limit must be between 1 and %d, got %d", MaxSearchLimit, limit)
	}

	opts := &spotify.Options{Limit: &limit}
	if c.market != "" {
		market := c.market
		opts.Country = &market
	}

	res, err := do(ctx, c, "search", func() (*spotify.SearchResult, error) {
		return c.api.SearchOpt(query, spotify.SearchTypeTrack, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	if res == nil || res.Tracks == nil {
		return []models.Track{}, nil
	}

	tracks := make([]models.Track, 0, len(res.Tracks.Tracks))
	for i := range res.Tracks.Tracks {
		t, err := mapTrack(&res.Tracks.Tracks[i])
		if err != nil {
			c.logger.Debug().Err(err).Msg("Skipping malformed search result")
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// FetchPlaylistTracks pages through a playlist, PlaylistPageSize items per
// call, until limit tracks are collected or the playlist ends.
func (c *SpotifyClient) FetchPlaylistTracks(ctx context.Context, playlist string, limit int) ([]models.Track, error) {
	id, err := NormalizePlaylistID(playlist)
	if err != nil {
		return nil, err
	}
	if limit < 1 || limit > MaxPlaylistTracks {
		return nil, fmt.Errorf("fetch playlist tracks: limit must be between 1 and %d, got %d", MaxPlaylistTracks, limit)
	}

	tracks := make([]models.Track, 0, limit)
	skipped := 0
	for offset := 0; len(tracks) < limit; {
		pageSize, pageOffset := PlaylistPageSize, offset
		opts := &spotify.Options{Limit: &pageSize, Offset: &pageOffset}
		if c.market != "" {
			market := c.market
			opts.Country = &market
		}

		page, err := do(ctx, c, "playlist_tracks", func() (*spotify.PlaylistTrackPage, error) {
			return c.api.GetPlaylistTracksOpt(spotify.ID(id), opts, "")
		})
		if err != nil {
			if isNotFound(err) {
				return nil, fmt.Errorf("fetch playlist %s: %w (%w)", id, ErrPlaylistNotFound, err)
			}
			return nil, fmt.Errorf("fetch playlist %s: %w", id, err)
		}
		if page == nil || len(page.Tracks) == 0 {
			break
		}

		for i := range page.Tracks {
			item := &page.Tracks[i]
			if item.IsLocal {
				skipped++
				continue
			}
			t, err := mapTrack(&item.Track)
			if err != nil {
				skipped++
				continue
			}
			tracks = append(tracks, t)
			if len(tracks) == limit {
				break
			}
		}

		offset += len(page.Tracks)
		if page.Next == "" || offset >= page.Total {
			break
		}
	}

	c.logger.Debug().
		Str("playlist_id", id).
		Int("tracks", len(tracks)).
		Int("skipped", skipped).
		Msg("Fetched playlist tracks")
	return tracks, nil
}

// BreakerState returns the circuit breaker state name.
func (c *SpotifyClient) BreakerState() string {
	return stateToString(c.breaker.state())
}

// wrap maps catalog answers meaning "no such track" to ErrTrackNotFound.
func (c *SpotifyClient) wrap(op, id string, err error) error {
	if isNotFound(err) && !errors.Is(err, ErrTrackNotFound) {
		return fmt.Errorf("%s %s: %w (%w)", op, id, ErrTrackNotFound, err)
	}
	return fmt.Errorf("%s %s: %w", op, id, err)
}
