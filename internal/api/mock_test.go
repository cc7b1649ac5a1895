// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/recommend"
	"github.com/tomtom215/songrec/internal/userstore"
)

const (
	trackA = "spotify:track:4uLU6hMCjMI75M1A2tKUQC"
	trackB = "spotify:track:7ouMYWpwJ422jRcDASZB7P"
	trackC = "spotify:track:0VjIjW4GlUZAMYd2vXMi3b"
)

// mockEngine records the last call and returns a scripted result.
type mockEngine struct {
	mu         sync.Mutex
	calls      int
	lastUser   string
	lastCands  []string
	lastN      int
	lastAlgo   recommend.Algorithm
	err        error
	onGenerate func(username string)
}

func (m *mockEngine) GenerateRecommendations(_ context.Context, user *models.User, candidates []string, n int, algorithm recommend.Algorithm) (*models.RecommendationResult, error) {
	m.mu.Lock()
	m.calls++
	m.lastUser = user.Username
	m.lastCands = candidates
	m.lastN = n
	m.lastAlgo = algorithm
	err, hook := m.err, m.onGenerate
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(user.Username)
	}

	if algorithm == "" {
		algorithm = recommend.AlgorithmHybrid
	}
	tracks := []models.Track{{URI: candidates[0], Name: "First"}}
	result, _ := models.NewRecommendationResult(tracks, []float64{0.9}, algorithm.String(), 2500*time.Microsecond)
	result.RequestID = "req-1"
	return result, nil
}

// mockUsers is an in-memory UserStore.
type mockUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMockUsers(users ...*models.User) *mockUsers {
	m := &mockUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		m.users[u.Username] = u
	}
	return m
}

func (m *mockUsers) CreateUser(_ context.Context, username, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return nil, fmt.Errorf("%w: %s", userstore.ErrUserExists, username)
	}
	u := &models.User{Username: username, Email: email, Count: models.DefaultRecommendationQuota}
	m.users[username] = u
	return u, nil
}

func (m *mockUsers) GetUser(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", userstore.ErrUserNotFound, username)
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) UpdatePreferences(_ context.Context, username string, upd models.PreferenceUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, fmt.Errorf("%w: %s", userstore.ErrUserNotFound, username)
	}
	if upd.LovedIt != nil {
		u.LovedIt = upd.LovedIt
	}
	if upd.HateIt != nil {
		u.HateIt = upd.HateIt
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) AddRecentlySearched(_ context.Context, username, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return fmt.Errorf("%w: %s", userstore.ErrUserNotFound, username)
	}
	u.RecentlySearched = append(u.RecentlySearched, uri)
	return nil
}

func (m *mockUsers) decrement(username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok && u.Count > 0 {
		u.Count--
	}
}

// mockCatalog serves fixed tracks.
type mockCatalog struct {
	tracks    map[string]models.Track
	playlists map[string][]string
	searchErr error
	lastLimit int
}

const playlistA = "37i9dQZF1DXcBWIGoYBM5M"

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		tracks: map[string]models.Track{
			trackA: {URI: trackA, ID: "4uLU6hMCjMI75M1A2tKUQC", Name: "Never Gonna Give You Up", ArtistName: "Rick Astley"},
		},
		playlists: map[string][]string{playlistA: {trackA, trackA, trackA}},
	}
}

func (m *mockCatalog) FetchTrack(_ context.Context, uri string) (models.Track, error) {
	t, ok := m.tracks[uri]
	if !ok {
		return models.Track{}, fmt.Errorf("%w: %s", catalog.ErrTrackNotFound, uri)
	}
	return t, nil
}

func (m *mockCatalog) FetchAudioFeatures(_ context.Context, uri string) (models.AudioFeatures, error) {
	if _, ok := m.tracks[uri]; !ok {
		return models.AudioFeatures{}, fmt.Errorf("%w: %s", catalog.ErrTrackNotFound, uri)
	}
	return models.AudioFeatures{Danceability: 0.7, Energy: 0.8, Key: 5, Loudness: -6, Mode: 1, Tempo: 113, TimeSignature: 4}, nil
}

func (m *mockCatalog) SearchTracks(_ context.Context, _ string, limit int) ([]models.Track, error) {
	m.lastLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return []models.Track{m.tracks[trackA]}, nil
}

func (m *mockCatalog) FetchPlaylistTracks(_ context.Context, playlist string, limit int) ([]models.Track, error) {
	m.lastLimit = limit
	uris, ok := m.playlists[playlist]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrPlaylistNotFound, playlist)
	}
	if len(uris) > limit {
		uris = uris[:limit]
	}
	out := make([]models.Track, 0, len(uris))
	for _, uri := range uris {
		out = append(out, m.tracks[uri])
	}
	return out, nil
}

type fakeClearer struct {
	calls int
	err   error
}

func (f *fakeClearer) Clear() error {
	f.calls++
	return f.err
}

var errDown = errors.New("down")

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			DefaultSearchLimit: 20,
			MaxSearchLimit:     50,
			MaxBodyBytes:       4096,
		},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
		},
	}
}

type testEnv struct {
	engine  *mockEngine
	users   *mockUsers
	catalog *mockCatalog
	clearer *fakeClearer
	deps    *Deps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		engine: &mockEngine{},
		users: newMockUsers(
			&models.User{Username: "alice", Count: 3, LovedIt: []string{trackB}},
			&models.User{Username: "broke", Count: 0},
		),
		catalog: newMockCatalog(),
		clearer: &fakeClearer{},
	}
	env.engine.onGenerate = env.users.decrement
	env.deps = &Deps{
		Config:        testConfig(),
		Engine:        env.engine,
		Users:         env.users,
		Catalog:       env.catalog,
		CacheClearers: []CacheClearer{env.clearer},
		HealthChecks: map[string]HealthCheck{
			"user_store": func(context.Context) error { return nil },
		},
		Logger: zerolog.Nop(),
	}
	return env
}
