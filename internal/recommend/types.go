// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/songrec/internal/models"
)

// Algorithm selects the scoring strategy for a request.
type Algorithm string

const (
	// AlgorithmSimilarity ranks candidates by cosine similarity to a seed track.
	AlgorithmSimilarity Algorithm = "similarity"
	// AlgorithmClustering ranks same-cluster candidates by distance to the preference vector.
	AlgorithmClustering Algorithm = "clustering"
	// AlgorithmHybrid blends similarity and clustering scores.
	AlgorithmHybrid Algorithm = "hybrid"
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	return string(a)
}

// Valid reports whether a names a known algorithm.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmSimilarity, AlgorithmClustering, AlgorithmHybrid:
		return true
	default:
		return false
	}
}

// ParseAlgorithm converts a case-insensitive name to an Algorithm.
// The empty string parses to the empty Algorithm, which the engine replaces
// with its configured default.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	if a == "" || a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// ScoredTrack is a candidate track with its confidence score.
type ScoredTrack struct {
	URI   string  `json:"uri"`
	Score float64 `json:"score"`
}

// Candidate is a track whose feature vector has been resolved.
type Candidate struct {
	URI    string
	Vector FeatureVector
}

// Scorer ranks candidates against a reference vector.
//
// Implementations return at most topN tracks sorted by descending score,
// ties keeping candidate order. An empty result is not an error.
type Scorer interface {
	// Name returns the scorer identifier used in logs and metrics.
	Name() string

	// Score ranks candidates against ref.
	Score(ctx context.Context, ref FeatureVector, candidates []Candidate, topN int) ([]ScoredTrack, error)
}

// Catalog is the track catalog the engine reads from.
// It is typically implemented by the catalog package.
type Catalog interface {
	// FetchAudioFeatures returns the audio features of a track.
	FetchAudioFeatures(ctx context.Context, uri string) (models.AudioFeatures, error)

	// FetchTrack returns the metadata of a track.
	FetchTrack(ctx context.Context, uri string) (models.Track, error)
}

// Completion describes a successfully generated recommendation set.
type Completion struct {
	RequestID      string
	Username       string
	Algorithm      Algorithm
	Count          int
	ProcessingTime time.Duration
}

// CompletionNotifier is informed after each successful request.
// It is how the application decrements the user's quota exactly once.
type CompletionNotifier interface {
	RecommendationsGenerated(ctx context.Context, c Completion) error
}

// Stage is a step of the recommendation pipeline.
type Stage int

const (
	StageStarted Stage = iota
	StagePreferenceBuilt
	StageCandidatesFiltered
	StageScored
	StageMetadataResolved
	StageCompleted
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageStarted:
		return "started"
	case StagePreferenceBuilt:
		return "preference_built"
	case StageCandidatesFiltered:
		return "candidates_filtered"
	case StageScored:
		return "scored"
	case StageMetadataResolved:
		return "metadata_resolved"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// EngineStats is a snapshot of engine counters.
type EngineStats struct {
	Requests        int64 `json:"requests"`
	Failures        int64 `json:"failures"`
	EmptyResults    int64 `json:"empty_results"`
	CachedFeatures  int   `json:"cached_features"`
	RegisteredCount int   `json:"registered_scorers"`
}
