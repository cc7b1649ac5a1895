// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/zmb3/spotify"

	"github.com/tomtom215/songrec/internal/metrics"
)

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"uri", "spotify:track:" + idA, idA, false},
		{"bare id", idA, idA, false},
		{"surrounding space", "  " + idA + " ", idA, false},
		{"album uri", "spotify:album:" + idA, "", true},
		{"too short", "abc", "", true},
		{"empty", "", "", true},
		{"punctuation", "spotify:track:4uLU6hMCjMI75M1A2tKU-C", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeID(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTrackRef) {
					t.Fatalf("NormalizeID(%q) error = %v, want ErrInvalidTrackRef", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeID(%q) unexpected error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
			if uri, _ := NormalizeURI(tt.ref); uri != TrackURI(tt.want) {
				t.Errorf("NormalizeURI(%q) = %q", tt.ref, uri)
			}
		})
	}
}

func TestSpotifyClient_FetchAudioFeatures(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.8)
	c := newTestClient(t, api)

	f, err := c.FetchAudioFeatures(context.Background(), TrackURI(idA))
	if err != nil {
		t.Fatalf("FetchAudioFeatures() error = %v", err)
	}
	if f.Danceability < 0.79 || f.Danceability > 0.81 {
		t.Errorf("Danceability = %v, want 0.8", f.Danceability)
	}
	if f.Tempo != 120 || f.Key != 5 || f.Mode != 1 || f.DurationMs != 200000 {
		t.Errorf("unexpected features: %+v", f)
	}
}

func TestSpotifyClient_RetriesTransientErrors(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	api.failNext(
		spotify.Error{Message: "unavailable", Status: 503},
		spotify.Error{Message: "slow down", Status: 429},
	)
	c := newTestClient(t, api)

	if _, err := c.FetchAudioFeatures(context.Background(), idA); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got := api.featureCalls.Load(); got != 3 {
		t.Errorf("API calls = %d, want 3", got)
	}
}

func TestSpotifyClient_GivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	api.failNext(
		spotify.Error{Message: "bad gateway", Status: 502},
		spotify.Error{Message: "bad gateway", Status: 502},
		spotify.Error{Message: "bad gateway", Status: 502},
	)
	c := newTestClient(t, api)

	_, err := c.FetchTrack(context.Background(), idA)
	if err == nil {
		t.Fatal("expected error")
	}
	if statusOf(err) != 502 {
		t.Errorf("status = %d, want 502 preserved in chain", statusOf(err))
	}
	if errors.Is(err, ErrTrackNotFound) {
		t.Error("server errors must not be reported as not found")
	}
	if got := api.trackCalls.Load(); got != 3 {
		t.Errorf("API calls = %d, want 3", got)
	}
}

func TestSpotifyClient_ClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	t.Run("unknown track", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		c := newTestClient(t, api)

		_, err := c.FetchTrack(context.Background(), idB)
		if !errors.Is(err, ErrTrackNotFound) {
			t.Fatalf("error = %v, want ErrTrackNotFound", err)
		}
		if got := api.trackCalls.Load(); got != 1 {
			t.Errorf("API calls = %d, want 1", got)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		api.addTrack(idA, 0.5)
		api.failNext(spotify.Error{Message: "forbidden", Status: 403})
		c := newTestClient(t, api)

		_, err := c.FetchAudioFeatures(context.Background(), idA)
		if err == nil || errors.Is(err, ErrTrackNotFound) {
			t.Fatalf("error = %v, want a non-not-found failure", err)
		}
		if got := api.featureCalls.Load(); got != 1 {
			t.Errorf("API calls = %d, want 1", got)
		}
	})

	t.Run("invalid reference", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		c := newTestClient(t, api)

		_, err := c.FetchAudioFeatures(context.Background(), "not a track")
		if !errors.Is(err, ErrInvalidTrackRef) {
			t.Fatalf("error = %v, want ErrInvalidTrackRef", err)
		}
		if got := api.featureCalls.Load(); got != 0 {
			t.Errorf("API calls = %d, want 0", got)
		}
	})

	t.Run("missing features", func(t *testing.T) {
		t.Parallel()
		api := newFakeAPI()
		c := newTestClient(t, api)

		_, err := c.FetchAudioFeatures(context.Background(), idC)
		if !errors.Is(err, ErrTrackNotFound) {
			t.Fatalf("error = %v, want ErrTrackNotFound", err)
		}
	})
}

func TestSpotifyClient_ContextDeadline(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	api.delay = time.Second
	c := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.FetchAudioFeatures(ctx, idA)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("call took %v, expected to return at the deadline", elapsed)
	}
	if got := api.featureCalls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1 (no retry after deadline)", got)
	}
}

func TestSpotifyClient_FetchAudioFeaturesBatch(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	uris := make([]string, 0, 252)
	for i := 0; i < 250; i++ {
		id := fmt.Sprintf("%022d", i)
		if i != 7 {
			api.addTrack(id, 0.5)
		}
		uris = append(uris, TrackURI(id))
	}
	uris = append(uris, "garbage", idA)
	c := newTestClient(t, api)

	results := c.FetchAudioFeaturesBatch(context.Background(), uris)

	if len(results) != len(uris) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(uris))
	}
	for i, r := range results {
		if r.URI != uris[i] {
			t.Fatalf("results[%d].URI = %q, want %q", i, r.URI, uris[i])
		}
	}
	if !errors.Is(results[7].Err, ErrTrackNotFound) {
		t.Errorf("results[7].Err = %v, want ErrTrackNotFound", results[7].Err)
	}
	if !errors.Is(results[250].Err, ErrInvalidTrackRef) {
		t.Errorf("results[250].Err = %v, want ErrInvalidTrackRef", results[250].Err)
	}
	if !errors.Is(results[251].Err, ErrTrackNotFound) {
		t.Errorf("results[251].Err = %v, want ErrTrackNotFound", results[251].Err)
	}
	if results[0].Err != nil || results[249].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[249].Err)
	}

	api.mu.Lock()
	sizes := append([]int(nil), api.batchSizes...)
	api.mu.Unlock()
	want := []int{100, 100, 51}
	if fmt.Sprint(sizes) != fmt.Sprint(want) {
		t.Errorf("batch sizes = %v, want %v", sizes, want)
	}
}

func TestSpotifyClient_BatchChunkFailure(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	api.addTrack(idB, 0.5)
	api.failNext(spotify.Error{Message: "forbidden", Status: 403})
	c := newTestClient(t, api)

	results := c.FetchAudioFeaturesBatch(context.Background(), []string{idA, idB})
	for i, r := range results {
		if r.Err == nil {
			t.Errorf("results[%d] should carry the chunk error", i)
		}
	}
}

func TestSpotifyClient_SearchTracks(t *testing.T) {
	t.Parallel()

	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	api.addTrack(idB, 0.5)
	api.addTrack(idC, 0.5)

	cfg := testCatalogConfig()
	cfg.Market = "SE"
	c := newSpotifyClient(api, cfg, DefaultBreakerSettings(), zerolog.Nop())

	tracks, err := c.SearchTracks(context.Background(), "  song ", 2)
	if err != nil {
		t.Fatalf("SearchTracks() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("len(tracks) = %d, want 2", len(tracks))
	}
	if tracks[0].URI != TrackURI(idA) || tracks[0].ArtistName != "Artist" || tracks[0].AlbumName != "Album" {
		t.Errorf("unexpected track: %+v", tracks[0])
	}

	api.mu.Lock()
	opts := api.lastOptions
	api.mu.Unlock()
	if opts == nil || opts.Country == nil || *opts.Country != "SE" || *opts.Limit != 2 {
		t.Errorf("search options not forwarded: %+v", opts)
	}

	if _, err := c.SearchTracks(context.Background(), "   ", 5); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := c.SearchTracks(context.Background(), "x", 0); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := c.SearchTracks(context.Background(), "x", MaxSearchLimit+1); err == nil {
		t.Error("expected error for oversized limit")
	}
	if got := api.searchCalls.Load(); got != 1 {
		t.Errorf("API calls = %d, want 1", got)
	}
}

func TestSpotifyClient_FetchPlaylistTracks(t *testing.T) {
	t.Parallel()

	const playlistID = "37i9dQZF1DXcBWIGoYBM5M"

	api := newFakeAPI()
	api.addPlaylistItem(playlistID, "")
	for i := 0; i < 150; i++ {
		id := fmt.Sprintf("%022d", i)
		api.addTrack(id, 0.5)
		api.addPlaylistItem(playlistID, id)
	}
	c := newTestClient(t, api)
	ctx := context.Background()

	tracks, err := c.FetchPlaylistTracks(ctx, "spotify:playlist:"+playlistID, MaxPlaylistTracks)
	if err != nil {
		t.Fatalf("FetchPlaylistTracks() error = %v", err)
	}
	if len(tracks) != 150 {
		t.Fatalf("len(tracks) = %d, want 150 (local file skipped)", len(tracks))
	}
	if tracks[0].URI != TrackURI(fmt.Sprintf("%022d", 0)) || tracks[149].URI != TrackURI(fmt.Sprintf("%022d", 149)) {
		t.Errorf("playlist order not preserved: first %s, last %s", tracks[0].URI, tracks[149].URI)
	}
	if got := api.playlistCalls.Load(); got != 2 {
		t.Errorf("API calls = %d, want 2 pages", got)
	}

	tracks, err = c.FetchPlaylistTracks(ctx, playlistID, 10)
	if err != nil {
		t.Fatalf("FetchPlaylistTracks(limit 10) error = %v", err)
	}
	if len(tracks) != 10 {
		t.Errorf("len(tracks) = %d, want 10", len(tracks))
	}
	if got := api.playlistCalls.Load(); got != 3 {
		t.Errorf("API calls = %d, want one more page", got)
	}

	if _, err := c.FetchPlaylistTracks(ctx, "0000000000000000000000", 10); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("missing playlist error = %v, want ErrPlaylistNotFound", err)
	}
	if _, err := c.FetchPlaylistTracks(ctx, "spotify:track:"+idA, 10); !errors.Is(err, ErrInvalidPlaylistRef) {
		t.Errorf("track URI error = %v, want ErrInvalidPlaylistRef", err)
	}
	if _, err := c.FetchPlaylistTracks(ctx, playlistID, 0); err == nil {
		t.Error("expected error for zero limit")
	}
	if _, err := c.FetchPlaylistTracks(ctx, playlistID, MaxPlaylistTracks+1); err == nil {
		t.Error("expected error for oversized limit")
	}
}

// Not parallel: reads the global breaker gauge.
func TestSpotifyClient_CircuitBreakerOpens(t *testing.T) {
	api := newFakeAPI()
	api.addTrack(idA, 0.5)
	for i := 0; i < 3; i++ {
		api.failNext(spotify.Error{Message: "unavailable", Status: 503})
	}

	cfg := testCatalogConfig()
	cfg.MaxRetries = 1
	c := newSpotifyClient(api, cfg, BreakerSettings{
		MaxRequests:  1,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := c.FetchAudioFeatures(context.Background(), idA); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	_, err := c.FetchAudioFeatures(context.Background(), idA)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable once the breaker is open", err)
	}
	if got := api.featureCalls.Load(); got != 3 {
		t.Errorf("API calls = %d, want 3 (open breaker must not reach the API)", got)
	}
	if c.BreakerState() != "open" {
		t.Errorf("BreakerState() = %q, want open", c.BreakerState())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues(breakerName)); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}
}

// Not parallel: opening the breaker above must not leak into other tests.
func TestSpotifyClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	api := newFakeAPI()
	cfg := testCatalogConfig()
	c := newSpotifyClient(api, cfg, BreakerSettings{
		MaxRequests:  1,
		Timeout:      time.Hour,
		MinRequests:  3,
		FailureRatio: 0.5,
	}, zerolog.Nop())

	for i := 0; i < 5; i++ {
		if _, err := c.FetchTrack(context.Background(), idB); !errors.Is(err, ErrTrackNotFound) {
			t.Fatalf("call %d: error = %v, want ErrTrackNotFound", i, err)
		}
	}
	if c.BreakerState() != "closed" {
		t.Errorf("BreakerState() = %q, want closed", c.BreakerState())
	}
}

func TestShouldRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", spotify.Error{Status: 429}, true},
		{"server error", fmt.Errorf("wrapped: %w", spotify.Error{Status: 500}), true},
		{"transport", errBoom, true},
		{"not found", spotify.Error{Status: 404}, false},
		{"forbidden", spotify.Error{Status: 403}, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
		{"breaker open", fmt.Errorf("%w: open", ErrUnavailable), false},
	}

	for _, tt := range tests {
		if got := shouldRetry(tt.err); got != tt.want {
			t.Errorf("%s: shouldRetry() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackoffFor(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for attempt, w := range want {
		if got := backoffFor(base, attempt); got != w {
			t.Errorf("backoffFor(%d) = %v, want %v", attempt, got, w)
		}
	}
}

func TestNormalizePlaylistID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{ref: "37i9dQZF1DXcBWIGoYBM5M", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{ref: " spotify:playlist:37i9dQZF1DXcBWIGoYBM5M ", want: "37i9dQZF1DXcBWIGoYBM5M"},
		{ref: "spotify:track:37i9dQZF1DXcBWIGoYBM5M", wantErr: true},
		{ref: "short", wantErr: true},
		{ref: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := NormalizePlaylistID(tt.ref)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePlaylistID(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidPlaylistRef) {
			t.Errorf("NormalizePlaylistID(%q) error = %v, want ErrInvalidPlaylistRef", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("NormalizePlaylistID(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}
