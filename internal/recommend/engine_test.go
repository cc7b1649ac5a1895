// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/models"
)

// testEngine bundles an engine with its mocks.
type testEngine struct {
	engine     *Engine
	catalog    *mockCatalog
	similarity *mockScorer
	cluster    *mockScorer
	notifier   *mockNotifier
}

func newTestEngine(t *testing.T, cfg *Config) *testEngine {
	t.Helper()

	catalog := newMockCatalog()
	for _, uri := range []string{"a", "b", "c", "d", "s1", "s2", "l", "h"} {
		catalog.add(uri, features(0.5, 0.5))
	}

	engine, err := NewEngine(cfg, catalog, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	te := &testEngine{
		engine:     engine,
		catalog:    catalog,
		similarity: newMockScorer("similarity", map[string]float64{"a": 0.9, "b": 0.5}),
		cluster:    newMockScorer("cluster", map[string]float64{"b": 1.0, "c": 0.5}),
		notifier:   &mockNotifier{},
	}
	engine.RegisterScorer(AlgorithmSimilarity, te.similarity)
	engine.RegisterScorer(AlgorithmClustering, te.cluster)
	engine.SetNotifier(te.notifier)
	return te
}

func searcher() *models.User {
	return &models.User{Username: "alice", Count: 10, RecentlySearched: []string{"s1"}}
}

func uris(result *models.RecommendationResult) []string {
	out := make([]string, len(result.Tracks))
	for i, t := range result.Tracks {
		out[i] = t.URI
	}
	return out
}

func TestNewEngine(t *testing.T) {
	t.Parallel()

	if _, err := NewEngine(nil, nil, nil, zerolog.Nop()); !IsKind(err, KindConfiguration) {
		t.Errorf("expected configuration error without catalog, got %v", err)
	}

	bad := DefaultConfig()
	bad.Hybrid.ClusterWeight = 2
	if _, err := NewEngine(bad, newMockCatalog(), nil, zerolog.Nop()); !IsKind(err, KindConfiguration) {
		t.Errorf("expected configuration error for invalid config, got %v", err)
	}

	e, err := NewEngine(nil, newMockCatalog(), nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if e.FeatureCache() == nil || e.FeatureProvider() == nil {
		t.Error("expected default cache and provider")
	}
	if e.Config().DefaultAlgorithm != AlgorithmHybrid {
		t.Error("expected default config")
	}
}

func TestEngine_ValidatesRequest(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	ctx := context.Background()
	candidates := []string{"a", "b"}

	tests := []struct {
		name      string
		user      *models.User
		n         int
		algorithm Algorithm
		sentinel  error
	}{
		{"nil user", nil, 1, AlgorithmSimilarity, nil},
		{"zero count", searcher(), 0, AlgorithmSimilarity, ErrInvalidRecommendationCount},
		{"count above max", searcher(), 51, AlgorithmSimilarity, ErrInvalidRecommendationCount},
		{"unknown algorithm", searcher(), 1, "popularity", ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := te.engine.GenerateRecommendations(ctx, tt.user, candidates, tt.n, tt.algorithm)
			if !IsKind(err, KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tt.sentinel != nil && !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}

	if te.catalog.featureCalls.Load() != 0 {
		t.Error("invalid requests must not reach the catalog")
	}
}

func TestEngine_TooManyCandidates(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Limits.MaxCandidates = 2
	te := newTestEngine(t, cfg)

	_, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b", "c"}, 1, AlgorithmSimilarity)
	if !IsKind(err, KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEngine_NoNewTracks(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	user := searcher()
	user.HateIt = []string{"h"}
	user.LovedIt = []string{"l"}

	_, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"h", "l", "s1", "h"}, 3, AlgorithmHybrid)
	if !errors.Is(err, ErrNoNewTracks) {
		t.Fatalf("expected ErrNoNewTracks, got %v", err)
	}
	if !IsKind(err, KindValidation) {
		t.Errorf("expected validation kind, got %v", KindOf(err))
	}
	if te.similarity.calls.Load() != 0 || te.cluster.calls.Load() != 0 {
		t.Error("scorers must not run without new tracks")
	}
	if len(te.notifier.completions) != 0 {
		t.Error("failed requests must not notify")
	}
	if te.engine.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", te.engine.Stats().Failures)
	}
}

func TestEngine_SimilaritySeededFromLastSearch(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.catalog.add("s2", features(0.8, 0.2))
	user := searcher()
	user.RecentlySearched = []string{"s1", "s2"}

	result, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"a", "b", "c", "s1"}, 2, AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}

	if got := strings.Join(uris(result), ","); got != "a,b" {
		t.Errorf("tracks = %s, want a,b", got)
	}
	if result.Scores[0] != 0.9 || result.Scores[1] != 0.5 {
		t.Errorf("scores = %v", result.Scores)
	}
	if result.Algorithm != "similarity" {
		t.Errorf("Algorithm = %q", result.Algorithm)
	}
	if len(te.similarity.refs) != 1 || te.similarity.refs[0] != Extract(features(0.8, 0.2)) {
		t.Errorf("similarity seed = %v", te.similarity.refs)
	}
	if te.similarity.topNs[0] != 2 {
		t.Errorf("topN = %d, want 2", te.similarity.topNs[0])
	}
	if te.cluster.calls.Load() != 0 {
		t.Error("cluster scorer must not run for similarity requests")
	}
}

func TestEngine_SimilarityWithoutSeed(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	user := &models.User{Username: "new", LovedIt: []string{"l"}}

	result, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"a", "b"}, 2, AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("expected empty result, got %v", uris(result))
	}
	if te.similarity.calls.Load() != 0 {
		t.Error("similarity scorer must not run without a seed")
	}
	if te.engine.Stats().EmptyResults != 1 {
		t.Errorf("EmptyResults = %d, want 1", te.engine.Stats().EmptyResults)
	}
}

func TestEngine_SimilaritySeedFetchFails(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.catalog.failFeatures["s1"] = true

	result, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b"}, 2, AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("expected empty result, got %v", uris(result))
	}
}

func TestEngine_SimilaritySeedFromPreference(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Similarity.SeedFromPreference = true
	te := newTestEngine(t, cfg)
	te.catalog.add("l", features(0.1, 0.9))
	user := &models.User{Username: "bob", LovedIt: []string{"l"}}

	if _, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"a", "b"}, 1, AlgorithmSimilarity); err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if len(te.similarity.refs) != 1 || te.similarity.refs[0] != Extract(features(0.1, 0.9)) {
		t.Errorf("similarity seed = %v", te.similarity.refs)
	}
}

func TestEngine_ClusteringUsesPreference(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.catalog.add("l", features(0.3, 0.6))
	user := &models.User{Username: "carol", LovedIt: []string{"l"}}

	result, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"a", "b", "c"}, 5, AlgorithmClustering)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if got := strings.Join(uris(result), ","); got != "b,c" {
		t.Errorf("tracks = %s, want b,c", got)
	}
	if te.cluster.refs[0] != Extract(features(0.3, 0.6)) {
		t.Errorf("cluster reference = %v", te.cluster.refs[0])
	}
}

func TestEngine_HybridBlend(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)

	result, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b", "c", "s1"}, 2, AlgorithmHybrid)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}

	// b: 0.6*0.5 + 0.4*1.0, a: 0.6*0.9, c: 0.4*0.5
	if got := strings.Join(uris(result), ","); got != "b,a" {
		t.Fatalf("tracks = %s, want b,a", got)
	}
	if math.Abs(result.Scores[0]-0.7) > 1e-9 || math.Abs(result.Scores[1]-0.54) > 1e-9 {
		t.Errorf("scores = %v, want [0.7 0.54]", result.Scores)
	}
	if te.similarity.topNs[0] != 4 || te.cluster.topNs[0] != 4 {
		t.Errorf("sub-scorer topN = %v/%v, want 4", te.similarity.topNs, te.cluster.topNs)
	}
}

func TestEngine_DefaultAlgorithm(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)

	result, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b", "c"}, 1, "")
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if result.Algorithm != string(AlgorithmHybrid) {
		t.Errorf("Algorithm = %q, want hybrid", result.Algorithm)
	}
}

func TestEngine_MissingScorer(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	catalog.add("a", features(0.5, 0.5))
	engine, err := NewEngine(nil, catalog, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	_, err = engine.GenerateRecommendations(context.Background(), searcher(), []string{"a"}, 1, AlgorithmClustering)
	if !errors.Is(err, ErrScorerNotAvailable) {
		t.Fatalf("expected ErrScorerNotAvailable, got %v", err)
	}
	if !IsKind(err, KindConfiguration) {
		t.Errorf("expected configuration kind, got %v", KindOf(err))
	}
}

func TestEngine_ScorerErrorIsGenerationError(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.cluster.err = errors.New("model exploded")

	_, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b"}, 1, AlgorithmHybrid)
	if !IsKind(err, KindGeneration) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("error should carry the cause: %v", err)
	}
}

func TestEngine_DropsUnfetchableCandidates(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.catalog.failFeatures["c"] = true

	result, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"b", "c"}, 5, AlgorithmClustering)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if got := strings.Join(uris(result), ","); got != "b" {
		t.Errorf("tracks = %s, want b", got)
	}
}

func TestEngine_DropsUnresolvableMetadata(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.catalog.failTracks["a"] = true

	result, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a", "b"}, 2, AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if len(result.Tracks) != len(result.Scores) {
		t.Fatalf("tracks/scores misaligned: %d vs %d", len(result.Tracks), len(result.Scores))
	}
	if got := strings.Join(uris(result), ","); got != "b" {
		t.Errorf("tracks = %s, want b", got)
	}
	if result.Scores[0] != 0.5 {
		t.Errorf("score = %v, want 0.5", result.Scores[0])
	}
}

func TestEngine_NotifiesOnSuccess(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	ctx := logging.ContextWithRequestID(context.Background(), "req-42")

	result, err := te.engine.GenerateRecommendations(ctx, searcher(), []string{"a", "b"}, 2, AlgorithmSimilarity)
	if err != nil {
		t.Fatalf("GenerateRecommendations() error = %v", err)
	}
	if result.RequestID != "req-42" {
		t.Errorf("RequestID = %q, want req-42", result.RequestID)
	}

	if len(te.notifier.completions) != 1 {
		t.Fatalf("expected one completion, got %d", len(te.notifier.completions))
	}
	c := te.notifier.completions[0]
	if c.Username != "alice" || c.Count != 2 || c.RequestID != "req-42" || c.Algorithm != AlgorithmSimilarity {
		t.Errorf("unexpected completion: %+v", c)
	}
}

func TestEngine_NotifierFailureIgnored(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	te.notifier.err = errors.New("bus closed")

	if _, err := te.engine.GenerateRecommendations(context.Background(), searcher(), []string{"a"}, 1, AlgorithmSimilarity); err != nil {
		t.Errorf("notifier failures must not fail the request: %v", err)
	}
}

func TestEngine_RequestTimeout(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Limits.RequestTimeout = 20 * time.Millisecond
	te := newTestEngine(t, cfg)
	te.catalog.featureDelay = time.Second
	user := &models.User{Username: "slow", LovedIt: []string{"l"}}

	start := time.Now()
	_, err := te.engine.GenerateRecommendations(context.Background(), user, []string{"a"}, 1, AlgorithmClustering)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("request did not honor its timeout")
	}
}

func TestEngine_ReusesCachedFeatures(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := te.engine.GenerateRecommendations(ctx, searcher(), []string{"a", "b"}, 1, AlgorithmHybrid); err != nil {
			t.Fatalf("GenerateRecommendations() error = %v", err)
		}
	}
	if calls := te.catalog.callsFor("a"); calls != 1 {
		t.Errorf("feature fetches for a = %d, want 1", calls)
	}
	if te.engine.Stats().CachedFeatures == 0 {
		t.Error("expected cached features")
	}

	te.engine.ClearFeatureCache()
	if te.engine.FeatureCache().Len() != 0 {
		t.Error("ClearFeatureCache() left entries behind")
	}

	stats := te.engine.Stats()
	if stats.Requests != 2 || stats.RegisteredCount != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
