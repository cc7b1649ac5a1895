// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zmb3/spotify"

	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/models"
)

const (
	idA = "4uLU6hMCjMI75M1A2tKUQC"
	idB = "7ouMYWpwJ422jRcDASZB7P"
	idC = "0VjIjW4GlUZAMYd2vXMi3b"
)

// fakeAPI is a scripted spotifyAPI.
type fakeAPI struct {
	mu       sync.Mutex
	features map[spotify.ID]*spotify.AudioFeatures
	tracks   map[spotify.ID]*spotify.FullTrack
	search   []spotify.FullTrack
	playlist map[spotify.ID][]spotify.PlaylistTrack

	// errs is consumed one per call before the normal answer is given.
	errs []error

	featureCalls  atomic.Int32
	trackCalls    atomic.Int32
	searchCalls   atomic.Int32
	playlistCalls atomic.Int32
	batchSizes   []int
	lastOptions  *spotify.Options
	delay        time.Duration
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		features: map[spotify.ID]*spotify.AudioFeatures{},
		tracks:   map[spotify.ID]*spotify.FullTrack{},
		playlist: map[spotify.ID][]spotify.PlaylistTrack{},
	}
}

func (f *fakeAPI) addTrack(id string, danceability float32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sid := spotify.ID(id)
	f.features[sid] = &spotify.AudioFeatures{
		ID:               sid,
		Danceability:     danceability,
		Energy:           0.5,
		Key:              5,
		Loudness:         -7,
		Mode:             1,
		Speechiness:      0.05,
		Acousticness:     0.2,
		Instrumentalness: 0.01,
		Liveness:         0.1,
		Valence:          0.6,
		Tempo:            120,
		Duration:         200000,
		TimeSignature:    4,
	}
	full := &spotify.FullTrack{}
	full.ID = sid
	full.URI = spotify.URI("spotify:track:" + id)
	full.Name = "Song " + id[:4]
	full.Artists = []spotify.SimpleArtist{{Name: "Artist", URI: "spotify:artist:1"}}
	full.Album.Name = "Album"
	full.Album.URI = "spotify:album:1"
	f.tracks[sid] = full
	f.search = append(f.search, *full)
}

func (f *fakeAPI) failNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, errs...)
}

func (f *fakeAPI) nextErr() error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeAPI) GetAudioFeatures(ids ...spotify.ID) ([]*spotify.AudioFeatures, error) {
	f.featureCalls.Add(1)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchSizes = append(f.batchSizes, len(ids))
	out := make([]*spotify.AudioFeatures, len(ids))
	for i, id := range ids {
		out[i] = f.features[id]
	}
	return out, nil
}

func (f *fakeAPI) GetTrack(id spotify.ID) (*spotify.FullTrack, error) {
	f.trackCalls.Add(1)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tracks[id]
	if !ok {
		return nil, spotify.Error{Message: "non existing id", Status: 404}
	}
	return t, nil
}

func (f *fakeAPI) SearchOpt(_ string, _ spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error) {
	f.searchCalls.Add(1)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOptions = opt
	tracks := f.search
	if opt != nil && opt.Limit != nil && *opt.Limit < len(tracks) {
		tracks = tracks[:*opt.Limit]
	}
	return &spotify.SearchResult{Tracks: &spotify.FullTrackPage{Tracks: tracks}}, nil
}

// addPlaylistItem appends a previously added track, or a local file when
// id is empty, to playlist.
func (f *fakeAPI) addPlaylistItem(playlist, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := spotify.PlaylistTrack{IsLocal: id == ""}
	if id != "" {
		item.Track = *f.tracks[spotify.ID(id)]
	} else {
		item.Track.Name = "local file"
	}
	pid := spotify.ID(playlist)
	f.playlist[pid] = append(f.playlist[pid], item)
}

func (f *fakeAPI) GetPlaylistTracksOpt(id spotify.ID, opt *spotify.Options, _ string) (*spotify.PlaylistTrackPage, error) {
	f.playlistCalls.Add(1)
	if err := f.nextErr(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	items, ok := f.playlist[id]
	if !ok {
		return nil, spotify.Error{Message: "Not found.", Status: 404}
	}

	offset, limit := 0, len(items)
	if opt != nil && opt.Offset != nil {
		offset = *opt.Offset
	}
	if opt != nil && opt.Limit != nil {
		limit = *opt.Limit
	}
	f.lastOptions = opt
	f.batchSizes = append(f.batchSizes, limit)

	end := min(offset+limit, len(items))
	page := &spotify.PlaylistTrackPage{}
	page.Total = len(items)
	page.Offset = offset
	page.Limit = limit
	if offset < end {
		page.Tracks = append(page.Tracks, items[offset:end]...)
	}
	if end < len(items) {
		page.Next = "next"
	}
	return page, nil
}

func testCatalogConfig() *config.CatalogConfig {
	return &config.CatalogConfig{
		MaxRetries:     3,
		RetryBackoff:   time.Millisecond,
		RequestTimeout: time.Second,
	}
}

func newTestClient(t *testing.T, api spotifyAPI) *SpotifyClient {
	t.Helper()
	return newSpotifyClient(api, testCatalogConfig(), DefaultBreakerSettings(), zerolog.Nop())
}

// memCatalog is an in-memory Catalog counting upstream calls.
type memCatalog struct {
	mu         sync.Mutex
	features   map[string]models.AudioFeatures
	tracks     map[string]models.Track
	err        error
	calls      atomic.Int32
	batchCalls atomic.Int32
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		features: map[string]models.AudioFeatures{},
		tracks:   map[string]models.Track{},
	}
}

func (m *memCatalog) add(id string, f models.AudioFeatures) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[id] = f
	m.tracks[id] = models.Track{URI: TrackURI(id), ID: id, Name: "Song " + id[:4]}
}

func (m *memCatalog) FetchAudioFeatures(_ context.Context, uri string) (models.AudioFeatures, error) {
	m.calls.Add(1)
	id, err := NormalizeID(uri)
	if err != nil {
		return models.AudioFeatures{}, err
	}
	if m.err != nil {
		return models.AudioFeatures{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.features[id]
	if !ok {
		return models.AudioFeatures{}, ErrTrackNotFound
	}
	return f, nil
}

func (m *memCatalog) FetchTrack(_ context.Context, uri string) (models.Track, error) {
	m.calls.Add(1)
	id, err := NormalizeID(uri)
	if err != nil {
		return models.Track{}, err
	}
	if m.err != nil {
		return models.Track{}, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return models.Track{}, ErrTrackNotFound
	}
	return t, nil
}

func (m *memCatalog) FetchAudioFeaturesBatch(ctx context.Context, uris []string) []FeaturesResult {
	m.batchCalls.Add(1)
	out := make([]FeaturesResult, len(uris))
	for i, uri := range uris {
		f, err := m.FetchAudioFeatures(ctx, uri)
		out[i] = FeaturesResult{URI: uri, Features: f, Err: err}
	}
	return out
}

func (m *memCatalog) SearchTracks(context.Context, string, int) ([]models.Track, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.Track{}, nil
}

func (m *memCatalog) FetchPlaylistTracks(context.Context, string, int) ([]models.Track, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return []models.Track{}, nil
}

var errBoom = errors.New("boom")

func validFeatures(danceability float64) models.AudioFeatures {
	return models.AudioFeatures{
		Danceability:  danceability,
		Energy:        0.5,
		Key:           1,
		Loudness:      -5,
		Mode:          1,
		Valence:       0.5,
		Tempo:         110,
		DurationMs:    180000,
		TimeSignature: 4,
	}
}
