// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package models

import (
	"fmt"
	"time"
)

// RecommendationResult is the immutable outcome of one recommendation request.
// Tracks and Scores are index-aligned and always the same length.
type RecommendationResult struct {
	Tracks         []Track       `json:"tracks"`
	Scores         []float64     `json:"scores"` // Confidence in [0,1], aligned with Tracks
	Algorithm      string        `json:"algorithm"`
	ProcessingTime time.Duration `json:"processing_time_ns"`
	RequestID      string        `json:"request_id,omitempty"`
	GeneratedAt    time.Time     `json:"generated_at"`
}

// NewRecommendationResult builds a result, rejecting misaligned inputs or
// scores outside [0,1].
func NewRecommendationResult(tracks []Track, scores []float64, algorithm string, elapsed time.Duration) (*RecommendationResult, error) {
	if len(tracks) != len(scores) {
		return nil, fmt.Errorf("result has %d tracks but %d scores", len(tracks), len(scores))
	}
	for i, s := range scores {
		if s < 0 || s > 1 {
			return nil, fmt.Errorf("score %d out of range: %f", i, s)
		}
	}
	return &RecommendationResult{
		Tracks:         tracks,
		Scores:         scores,
		Algorithm:      algorithm,
		ProcessingTime: elapsed,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// Len returns the number of recommended tracks.
func (r *RecommendationResult) Len() int {
	return len(r.Tracks)
}

// ProcessingSeconds returns the wall time spent generating the result.
func (r *RecommendationResult) ProcessingSeconds() float64 {
	return r.ProcessingTime.Seconds()
}
