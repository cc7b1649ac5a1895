// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/recommend"
)

// staticCatalog serves fixed audio features and track metadata.
type staticCatalog struct {
	mu       sync.Mutex
	features map[string]models.AudioFeatures
}

func (c *staticCatalog) FetchAudioFeatures(_ context.Context, uri string) (models.AudioFeatures, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.features[uri]
	if !ok {
		return models.AudioFeatures{}, recommend.ErrTrackNotFound
	}
	return f, nil
}

func (c *staticCatalog) FetchTrack(_ context.Context, uri string) (models.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.features[uri]; !ok {
		return models.Track{}, recommend.ErrTrackNotFound
	}
	return models.Track{URI: uri, Name: "Track " + uri}, nil
}

func song(danceability, energy, valence float64) models.AudioFeatures {
	return models.AudioFeatures{
		Danceability: danceability, Energy: energy, Key: 5, Loudness: -8, Mode: 1,
		Speechiness: 0.05, Acousticness: 1 - energy, Instrumentalness: 0, Liveness: 0.1,
		Valence: valence, Tempo: 120, TimeSignature: 4,
	}
}

func newIntegrationEngine(t *testing.T, model ClusterModel) *recommend.Engine {
	t.Helper()

	catalog := &staticCatalog{features: map[string]models.AudioFeatures{
		"seed":   song(0.8, 0.7, 0.6),
		"twin":   song(0.8, 0.7, 0.6),
		"close":  song(0.75, 0.65, 0.55),
		"ballad": song(0.2, 0.1, 0.1),
		"loved":  song(0.8, 0.7, 0.6),
	}}

	cfg := recommend.DefaultConfig()
	engine, err := recommend.NewEngine(cfg, catalog, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	engine.RegisterScorer(recommend.AlgorithmSimilarity, NewSimilarityScorer(cfg.Similarity, zerolog.Nop()))
	engine.RegisterScorer(recommend.AlgorithmClustering, NewClusterScorer(cfg.Cluster, model, zerolog.Nop()))
	return engine
}

func TestEngine_SimilarityPrefersIdenticalTrack(t *testing.T) {
	t.Parallel()

	engine := newIntegrationEngine(t, nil)
	user := &models.User{Username: "dancer", RecentlySearched: []string{"seed"}}

	result, err := engine.GenerateRecommendations(context.Background(), user,
		[]string{"ballad", "close", "twin", "seed"}, 2, recommend.AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}

	if result.Len() == 0 || result.Tracks[0].URI != "twin" {
		t.Fatalf("expected twin first, got %+v", result.Tracks)
	}
	if math.Abs(result.Scores[0]-1) > 1e-9 {
		t.Errorf("twin score = %v, want 1", result.Scores[0])
	}
	if len(result.Tracks) != len(result.Scores) {
		t.Error("tracks and scores misaligned")
	}
	for _, tr := range result.Tracks {
		if tr.URI == "seed" {
			t.Error("searched track must not be recommended")
		}
	}
}

func TestEngine_ClusteringWithoutModel(t *testing.T) {
	t.Parallel()

	engine := newIntegrationEngine(t, nil)
	user := &models.User{Username: "dancer", LovedIt: []string{"loved"}}

	result, err := engine.GenerateRecommendations(context.Background(), user,
		[]string{"twin", "close", "ballad"}, 3, recommend.AlgorithmClustering)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("expected no recommendations without a model, got %+v", result.Tracks)
	}
}

func TestEngine_HybridWithFittedModel(t *testing.T) {
	t.Parallel()

	var samples []recommend.FeatureVector
	for i := 0; i < 10; i++ {
		shift := float64(i) * 0.01
		samples = append(samples,
			recommend.Extract(song(0.8-shift, 0.7-shift, 0.6)),
			recommend.Extract(song(0.2+shift, 0.1+shift, 0.1)),
		)
	}
	model, err := FitClusterModel(context.Background(), samples, 2, zerolog.Nop())
	if err != nil {
		t.Fatalf("FitClusterModel() error = %v", err)
	}

	engine := newIntegrationEngine(t, model)
	user := &models.User{Username: "dancer", LovedIt: []string{"loved"}, RecentlySearched: []string{"seed"}}

	result, err := engine.GenerateRecommendations(context.Background(), user,
		[]string{"ballad", "close", "twin"}, 3, recommend.AlgorithmHybrid)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}

	if result.Len() == 0 || result.Tracks[0].URI != "twin" {
		t.Fatalf("expected twin first, got %+v", result.Tracks)
	}
	// twin matches both the seed and the preference vector exactly.
	if math.Abs(result.Scores[0]-1) > 1e-9 {
		t.Errorf("twin hybrid score = %v, want 1", result.Scores[0])
	}
	for i := 1; i < len(result.Scores); i++ {
		if result.Scores[i] > result.Scores[i-1] {
			t.Errorf("scores not descending: %v", result.Scores)
		}
	}
}
