// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/tomtom215/songrec/internal/recommend"
)

// cosineSimilarity returns the cosine of the angle between a and b.
// A zero-norm input yields 0.
func cosineSimilarity(a, b []float64) float64 {
	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := floats.Dot(a, b) / (normA * normB)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// euclideanDistance returns the L2 distance between a and b.
func euclideanDistance(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// rankTop sorts tracks by descending score and truncates to topN.
// Equal scores keep their input order.
func rankTop(tracks []recommend.ScoredTrack, topN int) []recommend.ScoredTrack {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Score > tracks[j].Score
	})
	if len(tracks) > topN {
		tracks = tracks[:topN]
	}
	return tracks
}

// ctxCheckInterval is how often scoring loops poll for cancellation.
const ctxCheckInterval = 256
