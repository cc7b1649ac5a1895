// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/recommend"
)

// SimilarityScorerName identifies the similarity scorer in logs and metrics.
const SimilarityScorerName = "cosine_similarity"

// SimilarityScorer ranks candidates by cosine similarity to a reference vector.
type SimilarityScorer struct {
	cfg    recommend.SimilarityConfig
	logger zerolog.Logger
}

// NewSimilarityScorer creates a similarity scorer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSimilarityScorer(cfg recommend.SimilarityConfig, logger zerolog.Logger) *SimilarityScorer {
	return &SimilarityScorer{
		cfg:    cfg,
		logger: logger.With().Str("scorer", SimilarityScorerName).Logger(),
	}
}

// Name returns the scorer identifier.
func (s *SimilarityScorer) Name() string {
	return SimilarityScorerName
}

// Score returns at most topN candidates whose similarity to ref exceeds the
// configured minimum, best first.
func (s *SimilarityScorer) Score(ctx context.Context, ref recommend.FeatureVector, candidates []recommend.Candidate, topN int) ([]recommend.ScoredTrack, error) {
	if topN <= 0 || len(candidates) == 0 {
		return nil, nil
	}

	reference := ref[:]
	scored := make([]recommend.ScoredTrack, 0, len(candidates))
	for i := range candidates {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		c := &candidates[i]
		sim := cosineSimilarity(reference, c.Vector[:])
		if sim <= s.cfg.MinSimilarity {
			continue
		}
		scored = append(scored, recommend.ScoredTrack{URI: c.URI, Score: sim})
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("above_threshold", len(scored)).
		Msg("similarity scored")

	return rankTop(scored, topN), nil
}
