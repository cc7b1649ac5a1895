// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/songrec/internal/models"
)

var errCatalogDown = errors.New("catalog unavailable")

// mockCatalog implements Catalog for testing.
type mockCatalog struct {
	mu            sync.Mutex
	features      map[string]models.AudioFeatures
	tracks        map[string]models.Track
	failFeatures  map[string]bool
	failTracks    map[string]bool
	featureDelay  time.Duration
	featureCalls  atomic.Int32
	trackCalls    atomic.Int32
	featureCallsP map[string]int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		features:      make(map[string]models.AudioFeatures),
		tracks:        make(map[string]models.Track),
		failFeatures:  make(map[string]bool),
		failTracks:    make(map[string]bool),
		featureCallsP: make(map[string]int),
	}
}

//nolint:gocritic // test helper
func (m *mockCatalog) add(uri string, f models.AudioFeatures) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[uri] = f
	m.tracks[uri] = models.Track{URI: uri, Name: "Track " + uri, ArtistName: "Artist"}
}

func (m *mockCatalog) FetchAudioFeatures(ctx context.Context, uri string) (models.AudioFeatures, error) {
	m.featureCalls.Add(1)
	if m.featureDelay > 0 {
		select {
		case <-time.After(m.featureDelay):
		case <-ctx.Done():
			return models.AudioFeatures{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.featureCallsP[uri]++
	if m.failFeatures[uri] {
		return models.AudioFeatures{}, errCatalogDown
	}
	f, ok := m.features[uri]
	if !ok {
		return models.AudioFeatures{}, ErrTrackNotFound
	}
	return f, nil
}

func (m *mockCatalog) FetchTrack(_ context.Context, uri string) (models.Track, error) {
	m.trackCalls.Add(1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTracks[uri] {
		return models.Track{}, errCatalogDown
	}
	t, ok := m.tracks[uri]
	if !ok {
		return models.Track{}, ErrTrackNotFound
	}
	return t, nil
}

func (m *mockCatalog) callsFor(uri string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.featureCallsP[uri]
}

// mockScorer implements Scorer for testing. It scores candidates by a fixed
// table and records the reference vectors it was given.
type mockScorer struct {
	name   string
	scores map[string]float64
	err    error

	mu    sync.Mutex
	refs  []FeatureVector
	topNs []int
	calls atomic.Int32
}

func newMockScorer(name string, scores map[string]float64) *mockScorer {
	return &mockScorer{name: name, scores: scores}
}

func (m *mockScorer) Name() string {
	return m.name
}

func (m *mockScorer) Score(_ context.Context, ref FeatureVector, candidates []Candidate, topN int) ([]ScoredTrack, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.refs = append(m.refs, ref)
	m.topNs = append(m.topNs, topN)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	var out []ScoredTrack
	for _, c := range candidates {
		if s, ok := m.scores[c.URI]; ok {
			out = append(out, ScoredTrack{URI: c.URI, Score: s})
		}
	}
	sortDesc(out)
	if len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func sortDesc(tracks []ScoredTrack) {
	for i := 1; i < len(tracks); i++ {
		for j := i; j > 0 && tracks[j].Score > tracks[j-1].Score; j-- {
			tracks[j], tracks[j-1] = tracks[j-1], tracks[j]
		}
	}
}

// mockNotifier records completions.
type mockNotifier struct {
	mu          sync.Mutex
	completions []Completion
	err         error
}

func (m *mockNotifier) RecommendationsGenerated(_ context.Context, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completions = append(m.completions, c)
	return m.err
}

// features builds audio features with the given danceability and energy and
// neutral values elsewhere.
func features(danceability, energy float64) models.AudioFeatures {
	return models.AudioFeatures{
		Danceability: danceability, Energy: energy, Key: 0, Loudness: -60, Mode: 0,
		Speechiness: 0, Acousticness: 0, Instrumentalness: 0, Liveness: 0,
		Valence: 0, Tempo: 0, TimeSignature: 4,
	}
}
