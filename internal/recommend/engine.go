// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/models"
)

// Engine orchestrates preference aggregation, candidate filtering, scoring
// and metadata resolution. It is safe for concurrent use.
type Engine struct {
	// Configuration
	config *Config
	logger zerolog.Logger

	// Collaborators
	catalog    Catalog
	cache      *FeatureCache
	provider   *FeatureProvider
	preference *PreferenceAggregator

	// Registered scorers
	scorers  map[Algorithm]Scorer
	scorerMu sync.RWMutex

	// Optional completion hook
	notifier   CompletionNotifier
	notifierMu sync.RWMutex

	// Counters
	requestCount atomic.Int64
	errorCount   atomic.Int64
	emptyCount   atomic.Int64
}

// NewEngine creates a new recommendation engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, catalog Catalog, cache *FeatureCache, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, ConfigurationError("new engine", fmt.Errorf("invalid config: %w", err))
	}
	if catalog == nil {
		return nil, ConfigurationError("new engine", errors.New("catalog is required"))
	}
	if cache == nil {
		cache = NewFeatureCache()
	}

	logger = logger.With().Str("component", "recommend").Logger()
	provider := NewFeatureProvider(catalog, cache, cfg.Limits.FetchConcurrency, logger)
	provider.SetFetchTimeout(cfg.Limits.RequestTimeout)

	return &Engine{
		config:     cfg,
		logger:     logger,
		catalog:    catalog,
		cache:      cache,
		provider:   provider,
		preference: NewPreferenceAggregator(provider, cfg.Preference, logger),
		scorers:    make(map[Algorithm]Scorer),
	}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// RegisterScorer binds a scorer to the similarity or clustering algorithm.
// The hybrid algorithm uses both registrations.
func (e *Engine) RegisterScorer(kind Algorithm, s Scorer) {
	e.scorerMu.Lock()
	defer e.scorerMu.Unlock()

	e.scorers[kind] = s
	e.logger.Info().
		Str("algorithm", kind.String()).
		Str("scorer", s.Name()).
		Msg("registered scorer")
}

// SetNotifier installs the completion notifier.
func (e *Engine) SetNotifier(n CompletionNotifier) {
	e.notifierMu.Lock()
	defer e.notifierMu.Unlock()
	e.notifier = n
}

// FeatureCache returns the engine's feature cache.
func (e *Engine) FeatureCache() *FeatureCache {
	return e.cache
}

// FeatureProvider returns the engine's feature provider.
func (e *Engine) FeatureProvider() *FeatureProvider {
	return e.provider
}

// ClearFeatureCache empties the feature cache.
func (e *Engine) ClearFeatureCache() {
	size := e.cache.Len()
	e.cache.Clear()
	e.logger.Info().Int("evicted", size).Msg("feature cache cleared")
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	e.scorerMu.RLock()
	registered := len(e.scorers)
	e.scorerMu.RUnlock()

	return EngineStats{
		Requests:        e.requestCount.Load(),
		Failures:        e.errorCount.Load(),
		EmptyResults:    e.emptyCount.Load(),
		CachedFeatures:  e.cache.Len(),
		RegisteredCount: registered,
	}
}

// request carries per-call state through the pipeline.
type request struct {
	id        string
	user      *models.User
	n         int
	algorithm Algorithm
	start     time.Time
	logger    zerolog.Logger
}

func (r *request) advance(stage Stage) {
	r.logger.Debug().
		Str("stage", stage.String()).
		Dur("elapsed", time.Since(r.start)).
		Msg("pipeline stage")
}

// GenerateRecommendations returns up to n tracks from candidates that the
// user has not already rated or searched, scored by algorithm.
//
// The user's quota is not touched; a registered CompletionNotifier is told
// about each successful result instead.
func (e *Engine) GenerateRecommendations(
	ctx context.Context,
	user *models.User,
	candidates []string,
	n int,
	algorithm Algorithm,
) (*models.RecommendationResult, error) {
	req := e.prepareRequest(ctx, user, n, algorithm)
	e.requestCount.Add(1)
	req.advance(StageStarted)

	if e.config.Limits.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Limits.RequestTimeout)
		defer cancel()
	}

	result, err := e.run(ctx, req, candidates)
	elapsed := time.Since(req.start)
	if err != nil {
		e.errorCount.Add(1)
		req.advance(StageFailed)
		req.logger.Warn().Err(err).Str("kind", KindOf(err).String()).Msg("recommendation failed")
		metrics.RecordRecommendation(req.algorithm.String(), outcomeFor(err), elapsed, 0)
		return nil, err
	}

	outcome := "success"
	if result.Len() == 0 {
		e.emptyCount.Add(1)
		outcome = "empty"
	}
	metrics.RecordRecommendation(req.algorithm.String(), outcome, elapsed, result.Len())

	req.advance(StageCompleted)
	req.logger.Info().
		Int("returned", result.Len()).
		Float64("processing_seconds", result.ProcessingSeconds()).
		Msg("recommendation complete")

	e.notify(ctx, req, result)
	return result, nil
}

// prepareRequest applies defaults and builds the request logger.
func (e *Engine) prepareRequest(ctx context.Context, user *models.User, n int, algorithm Algorithm) *request {
	if algorithm == "" {
		algorithm = e.config.DefaultAlgorithm
	}

	id := logging.RequestIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateRequestID()
	}

	username := ""
	if user != nil {
		username = user.Username
	}

	return &request{
		id:        id,
		user:      user,
		n:         n,
		algorithm: algorithm,
		start:     time.Now(),
		logger: e.logger.With().
			Str("request_id", id).
			Str("username", username).
			Str("algorithm", algorithm.String()).
			Int("n", n).
			Logger(),
	}
}

// run executes the pipeline stages.
func (e *Engine) run(ctx context.Context, req *request, candidates []string) (*models.RecommendationResult, error) {
	if err := e.validate(req, candidates); err != nil {
		return nil, err
	}

	pref, err := e.preference.Build(ctx, req.user)
	if err != nil {
		return nil, generationError("build preference vector", err)
	}
	req.advance(StagePreferenceBuilt)

	filtered := filterCandidates(candidates, req.user.KnownTracks())
	if len(filtered) == 0 {
		return nil, ValidationError("filter candidates", ErrNoNewTracks)
	}
	req.logger.Debug().
		Int("candidates", len(candidates)).
		Int("new", len(filtered)).
		Msg("candidates filtered")
	req.advance(StageCandidatesFiltered)

	scored, err := e.score(ctx, req, pref, filtered)
	if err != nil {
		return nil, generationError("score candidates", err)
	}
	req.advance(StageScored)

	tracks, scores, err := e.resolveMetadata(ctx, req, scored)
	if err != nil {
		return nil, generationError("resolve metadata", err)
	}
	req.advance(StageMetadataResolved)

	result, err := models.NewRecommendationResult(tracks, scores, req.algorithm.String(), time.Since(req.start))
	if err != nil {
		return nil, generationError("build result", err)
	}
	result.RequestID = req.id
	return result, nil
}

// validate checks the request parameters.
func (e *Engine) validate(req *request, candidates []string) error {
	if req.user == nil {
		return ValidationError("validate request", errors.New("user is required"))
	}
	if req.n < 1 || req.n > e.config.Limits.MaxRecommendations {
		return ValidationError("validate request",
			fmt.Errorf("%w: n must be in [1, %d], got %d", ErrInvalidRecommendationCount, e.config.Limits.MaxRecommendations, req.n))
	}
	if !req.algorithm.Valid() {
		return ValidationError("validate request", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, req.algorithm))
	}
	if len(candidates) > e.config.Limits.MaxCandidates {
		return ValidationError("validate request",
			fmt.Errorf("at most %d candidates accepted, got %d", e.config.Limits.MaxCandidates, len(candidates)))
	}
	return nil
}

// filterCandidates removes known tracks and duplicates, preserving first-seen order.
func filterCandidates(candidates []string, known map[string]struct{}) []string {
	seen := make(map[string]struct{}, len(candidates))
	filtered := make([]string, 0, len(candidates))
	for _, uri := range candidates {
		if uri == "" {
			continue
		}
		if _, ok := known[uri]; ok {
			continue
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		filtered = append(filtered, uri)
	}
	return filtered
}

// score dispatches to the requested algorithm.
func (e *Engine) score(ctx context.Context, req *request, pref FeatureVector, uris []string) ([]ScoredTrack, error) {
	candidates, err := e.provider.Candidates(ctx, uris)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		req.logger.Warn().Int("candidates", len(uris)).Msg("no candidate features could be fetched")
		return nil, nil
	}

	switch req.algorithm {
	case AlgorithmSimilarity:
		return e.scoreSimilarity(ctx, req, pref, candidates, req.n)
	case AlgorithmClustering:
		return e.runScorer(ctx, AlgorithmClustering, pref, candidates, req.n)
	case AlgorithmHybrid:
		return e.scoreHybrid(ctx, req, pref, candidates)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, req.algorithm)
	}
}

// similaritySeed returns the reference vector of the similarity branch.
// It reports false when there is no usable seed.
func (e *Engine) similaritySeed(ctx context.Context, req *request, pref FeatureVector) (FeatureVector, bool, error) {
	if e.config.Similarity.SeedFromPreference {
		return pref, true, nil
	}

	seed, ok := req.user.LastSearched()
	if !ok {
		req.logger.Debug().Msg("no recently searched track to seed similarity")
		return FeatureVector{}, false, nil
	}

	v, err := e.provider.Vector(ctx, seed)
	if err != nil {
		if ctx.Err() != nil {
			return FeatureVector{}, false, ctx.Err()
		}
		req.logger.Warn().Err(err).Str("seed", seed).Msg("similarity seed fetch failed")
		return FeatureVector{}, false, nil
	}
	return v, true, nil
}

func (e *Engine) scoreSimilarity(ctx context.Context, req *request, pref FeatureVector, candidates []Candidate, topN int) ([]ScoredTrack, error) {
	ref, ok, err := e.similaritySeed(ctx, req, pref)
	if err != nil || !ok {
		return nil, err
	}
	return e.runScorer(ctx, AlgorithmSimilarity, ref, candidates, topN)
}

// branchResult holds the output of one hybrid branch.
type branchResult struct {
	tracks []ScoredTrack
	err    error
}

// scoreHybrid runs both scorers concurrently and blends their results.
func (e *Engine) scoreHybrid(ctx context.Context, req *request, pref FeatureVector, candidates []Candidate) ([]ScoredTrack, error) {
	topN := req.n * e.config.Hybrid.CandidateMultiplier

	branches, err := Gather(ctx, 2, 2, func(ctx context.Context, i int) branchResult {
		var r branchResult
		if i == 0 {
			r.tracks, r.err = e.scoreSimilarity(ctx, req, pref, candidates, topN)
		} else {
			r.tracks, r.err = e.runScorer(ctx, AlgorithmClustering, pref, candidates, topN)
		}
		return r
	})
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if b.err != nil {
			return nil, b.err
		}
	}

	req.logger.Debug().
		Int("similarity", len(branches[0].tracks)).
		Int("cluster", len(branches[1].tracks)).
		Msg("hybrid branches scored")

	return Blend(branches[0].tracks, branches[1].tracks, e.config.Hybrid, req.n), nil
}

// runScorer invokes the scorer registered for kind.
func (e *Engine) runScorer(ctx context.Context, kind Algorithm, ref FeatureVector, candidates []Candidate, topN int) ([]ScoredTrack, error) {
	e.scorerMu.RLock()
	s, ok := e.scorers[kind]
	e.scorerMu.RUnlock()
	if !ok {
		return nil, ConfigurationError("score", fmt.Errorf("%w: %s", ErrScorerNotAvailable, kind))
	}

	start := time.Now()
	tracks, err := s.Score(ctx, ref, candidates, topN)
	metrics.RecordScorer(s.Name(), time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s scorer: %w", s.Name(), err)
	}
	return tracks, nil
}

// trackResult is the outcome of resolving one track's metadata.
type trackResult struct {
	track models.Track
	err   error
}

// resolveMetadata fetches catalog metadata for the scored tracks, dropping
// failures so that the returned slices stay aligned.
func (e *Engine) resolveMetadata(ctx context.Context, req *request, scored []ScoredTrack) ([]models.Track, []float64, error) {
	results, err := Gather(ctx, e.config.Limits.FetchConcurrency, len(scored), func(ctx context.Context, i int) trackResult {
		t, err := e.catalog.FetchTrack(ctx, scored[i].URI)
		return trackResult{track: t, err: err}
	})
	if err != nil {
		return nil, nil, err
	}

	tracks := make([]models.Track, 0, len(scored))
	scores := make([]float64, 0, len(scored))
	for i, r := range results {
		if r.err != nil {
			req.logger.Warn().
				Str("track", scored[i].URI).
				Err(r.err).
				Msg("track metadata fetch failed, dropping track")
			continue
		}
		tracks = append(tracks, r.track)
		scores = append(scores, clampScore(scored[i].Score))
	}
	return tracks, scores, nil
}

// clampScore guards the result invariant against floating point drift.
func clampScore(s float64) float64 {
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// notify tells the completion notifier about a result. Failures are logged only.
func (e *Engine) notify(ctx context.Context, req *request, result *models.RecommendationResult) {
	e.notifierMu.RLock()
	n := e.notifier
	e.notifierMu.RUnlock()
	if n == nil {
		return
	}

	err := n.RecommendationsGenerated(ctx, Completion{
		RequestID:      req.id,
		Username:       req.user.Username,
		Algorithm:      req.algorithm,
		Count:          result.Len(),
		ProcessingTime: result.ProcessingTime,
	})
	if err != nil {
		req.logger.Error().Err(err).Msg("completion notification failed")
	}
}

// outcomeFor maps an error to a metrics outcome label.
func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrNoNewTracks):
		return "no_new_tracks"
	case IsKind(err, KindValidation):
		return "validation"
	default:
		return "error"
	}
}
