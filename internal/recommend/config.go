// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"fmt"
	"math"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Preference contains the per-list weights of the preference vector.
	Preference PreferenceConfig `json:"preference" koanf:"preference"`

	// Similarity contains parameters for the similarity scorer.
	Similarity SimilarityConfig `json:"similarity" koanf:"similarity"`

	// Cluster contains parameters for the cluster scorer.
	Cluster ClusterConfig `json:"cluster" koanf:"cluster"`

	// Hybrid contains the blend weights of the hybrid algorithm.
	Hybrid HybridConfig `json:"hybrid" koanf:"hybrid"`

	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// DefaultAlgorithm is used when a request names none.
	// Default: hybrid.
	DefaultAlgorithm Algorithm `json:"default_algorithm" koanf:"default_algorithm"`
}

// PreferenceConfig weights each preference list. A track present in several
// lists takes the weight of the highest-priority list
// (loved > liked > okay > recently searched). Hated tracks never contribute.
type PreferenceConfig struct {
	// LovedWeight applies to loved tracks.
	// Default: 1.0.
	LovedWeight float64 `json:"loved_weight" koanf:"loved_weight"`

	// LikedWeight applies to liked tracks.
	// Default: 0.7.
	LikedWeight float64 `json:"liked_weight" koanf:"liked_weight"`

	// OkayWeight applies to tracks rated okay.
	// Default: 0.4.
	OkayWeight float64 `json:"okay_weight" koanf:"okay_weight"`

	// SearchedWeight applies to recently searched tracks.
	// Default: 0.3.
	SearchedWeight float64 `json:"searched_weight" koanf:"searched_weight"`
}

// SimilarityConfig contains parameters for the similarity scorer.
type SimilarityConfig struct {
	// MinSimilarity is the exclusive lower bound on cosine similarity.
	// Default: 0.1.
	MinSimilarity float64 `json:"min_similarity" koanf:"min_similarity"`

	// SeedFromPreference seeds similarity with the preference vector instead
	// of the most recently searched track.
	// Default: false.
	SeedFromPreference bool `json:"seed_from_preference" koanf:"seed_from_preference"`
}

// ClusterConfig contains parameters for the cluster scorer.
type ClusterConfig struct {
	// MinConfidence is the exclusive lower bound on cluster confidence.
	// Default: 0.2.
	MinConfidence float64 `json:"min_confidence" koanf:"min_confidence"`

	// K is the number of clusters fitted by the model trainer.
	// Default: 17.
	K int `json:"k" koanf:"k"`
}

// HybridConfig contains the blend weights of the hybrid algorithm.
type HybridConfig struct {
	// SimilarityWeight multiplies the similarity score.
	// Default: 0.6.
	SimilarityWeight float64 `json:"similarity_weight" koanf:"similarity_weight"`

	// ClusterWeight multiplies the cluster score.
	// Default: 0.4.
	ClusterWeight float64 `json:"cluster_weight" koanf:"cluster_weight"`

	// CandidateMultiplier sets how many results each sub-scorer returns
	// relative to the requested count.
	// Default: 2.
	CandidateMultiplier int `json:"candidate_multiplier" koanf:"candidate_multiplier"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// MaxRecommendations is the largest accepted n.
	// Default: 50.
	MaxRecommendations int `json:"max_recommendations" koanf:"max_recommendations"`

	// DefaultRecommendations is used by callers that do not specify n.
	// Default: 5.
	DefaultRecommendations int `json:"default_recommendations" koanf:"default_recommendations"`

	// FetchConcurrency bounds concurrent catalog calls per request.
	// Default: 8.
	FetchConcurrency int `json:"fetch_concurrency" koanf:"fetch_concurrency"`

	// MaxCandidates is the largest accepted candidate set.
	// Default: 500.
	MaxCandidates int `json:"max_candidates" koanf:"max_candidates"`

	// RequestTimeout bounds a whole request when positive.
	// Default: 30s.
	RequestTimeout time.Duration `json:"request_timeout" koanf:"request_timeout"`
}

// DefaultConfig returns a Config with the production defaults.
func DefaultConfig() *Config {
	return &Config{
		Preference: PreferenceConfig{
			LovedWeight:    1.0,
			LikedWeight:    0.7,
			OkayWeight:     0.4,
			SearchedWeight: 0.3,
		},
		Similarity: SimilarityConfig{
			MinSimilarity: 0.1,
		},
		Cluster: ClusterConfig{
			MinConfidence: 0.2,
			K:             17,
		},
		Hybrid: HybridConfig{
			SimilarityWeight:    0.6,
			ClusterWeight:       0.4,
			CandidateMultiplier: 2,
		},
		Limits: LimitsConfig{
			MaxRecommendations:     50,
			DefaultRecommendations: 5,
			FetchConcurrency:       8,
			MaxCandidates:          500,
			RequestTimeout:         30 * time.Second,
		},
		DefaultAlgorithm: AlgorithmHybrid,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	p := c.Preference
	for name, w := range map[string]float64{
		"preference.loved_weight":    p.LovedWeight,
		"preference.liked_weight":    p.LikedWeight,
		"preference.okay_weight":     p.OkayWeight,
		"preference.searched_weight": p.SearchedWeight,
	} {
		if w <= 0 || math.IsNaN(w) {
			return fmt.Errorf("%s must be positive, got %f", name, w)
		}
	}
	if !(p.LovedWeight >= p.LikedWeight && p.LikedWeight >= p.OkayWeight && p.OkayWeight >= p.SearchedWeight) {
		return fmt.Errorf("preference weights must be non-increasing from loved to searched")
	}

	if c.Similarity.MinSimilarity < -1 || c.Similarity.MinSimilarity >= 1 {
		return fmt.Errorf("similarity.min_similarity must be in [-1, 1), got %f", c.Similarity.MinSimilarity)
	}
	if c.Cluster.MinConfidence < 0 || c.Cluster.MinConfidence >= 1 {
		return fmt.Errorf("cluster.min_confidence must be in [0, 1), got %f", c.Cluster.MinConfidence)
	}
	if c.Cluster.K < 2 {
		return fmt.Errorf("cluster.k must be >= 2, got %d", c.Cluster.K)
	}

	if c.Hybrid.SimilarityWeight < 0 || c.Hybrid.ClusterWeight < 0 {
		return fmt.Errorf("hybrid weights must be non-negative")
	}
	if sum := c.Hybrid.SimilarityWeight + c.Hybrid.ClusterWeight; sum <= 0 || sum > 1+1e-9 {
		return fmt.Errorf("hybrid weights must sum to (0, 1], got %f", sum)
	}
	if c.Hybrid.CandidateMultiplier < 1 {
		return fmt.Errorf("hybrid.candidate_multiplier must be positive, got %d", c.Hybrid.CandidateMultiplier)
	}

	if c.Limits.MaxRecommendations < 1 {
		return fmt.Errorf("limits.max_recommendations must be positive, got %d", c.Limits.MaxRecommendations)
	}
	if c.Limits.DefaultRecommendations < 1 || c.Limits.DefaultRecommendations > c.Limits.MaxRecommendations {
		return fmt.Errorf("limits.default_recommendations must be in [1, %d], got %d",
			c.Limits.MaxRecommendations, c.Limits.DefaultRecommendations)
	}
	if c.Limits.FetchConcurrency < 1 {
		return fmt.Errorf("limits.fetch_concurrency must be positive, got %d", c.Limits.FetchConcurrency)
	}
	if c.Limits.MaxCandidates < 1 {
		return fmt.Errorf("limits.max_candidates must be positive, got %d", c.Limits.MaxCandidates)
	}
	if c.Limits.RequestTimeout < 0 {
		return fmt.Errorf("limits.request_timeout must be non-negative, got %v", c.Limits.RequestTimeout)
	}

	if !c.DefaultAlgorithm.Valid() {
		return fmt.Errorf("default_algorithm must be one of: similarity, clustering, hybrid; got %q", c.DefaultAlgorithm)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
