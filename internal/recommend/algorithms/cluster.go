// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/recommend"
)

// ClusterScorerName identifies the cluster scorer in logs and metrics.
const ClusterScorerName = "kmeans_cluster"

// modelHolder wraps the interface so atomic.Pointer has a concrete type.
type modelHolder struct {
	model ClusterModel
}

// ClusterScorer ranks candidates in the reference vector's cluster by
// closeness to the reference.
type ClusterScorer struct {
	cfg    recommend.ClusterConfig
	logger zerolog.Logger

	model      atomic.Pointer[modelHolder]
	swaps      atomic.Int64
	lastSwapNS atomic.Int64

	warned atomic.Bool
}

// NewClusterScorer creates a cluster scorer. A nil model leaves the scorer
// unavailable until SetModel is called.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewClusterScorer(cfg recommend.ClusterConfig, model ClusterModel, logger zerolog.Logger) *ClusterScorer {
	s := &ClusterScorer{
		cfg:    cfg,
		logger: logger.With().Str("scorer", ClusterScorerName).Logger(),
	}
	s.SetModel(model)
	return s
}

// Name returns the scorer identifier.
func (s *ClusterScorer) Name() string {
	return ClusterScorerName
}

// SetModel installs model. Scoring calls already in flight keep the model
// they started with.
func (s *ClusterScorer) SetModel(model ClusterModel) {
	if model == nil {
		model = UnavailableModel()
	}
	s.model.Store(&modelHolder{model: model})
	s.swaps.Add(1)
	s.lastSwapNS.Store(time.Now().UnixNano())

	metrics.SetClusterModelAvailable(model.Available())
	if model.Available() {
		s.warned.Store(false)
		s.logger.Info().Msg("cluster model installed")
	}
}

// Model returns the installed model.
func (s *ClusterScorer) Model() ClusterModel {
	return s.model.Load().model
}

// Available reports whether a usable model is installed.
func (s *ClusterScorer) Available() bool {
	return s.Model().Available()
}

// Swaps returns how many times a model has been installed.
func (s *ClusterScorer) Swaps() int64 {
	return s.swaps.Load()
}

// LastSwap returns when the current model was installed.
func (s *ClusterScorer) LastSwap() time.Time {
	return time.Unix(0, s.lastSwapNS.Load())
}

// ClusterStats describes the installed model and its swap history.
type ClusterStats struct {
	Available bool       `json:"available"`
	Clusters  int        `json:"clusters,omitempty"`
	Version   int        `json:"version,omitempty"`
	TrainedAt *time.Time `json:"trained_at,omitempty"`
	Swaps     int64      `json:"swaps"`
	LastSwap  time.Time  `json:"last_swap"`
}

// Stats reports the installed model. Model details are only known for
// *FittedClusterModel.
func (s *ClusterScorer) Stats() ClusterStats {
	model := s.Model()
	st := ClusterStats{
		Available: model.Available(),
		Swaps:     s.Swaps(),
		LastSwap:  s.LastSwap(),
	}
	if fitted, ok := model.(*FittedClusterModel); ok {
		trainedAt := fitted.TrainedAt()
		st.Clusters = fitted.K()
		st.Version = fitted.Version()
		st.TrainedAt = &trainedAt
	}
	return st
}

// clusterMember is a candidate assigned to the reference cluster.
type clusterMember struct {
	uri      string
	distance float64
}

// Score returns at most topN candidates from the reference's cluster whose
// confidence exceeds the configured minimum, best first. Without a model it
// returns no results.
func (s *ClusterScorer) Score(ctx context.Context, ref recommend.FeatureVector, candidates []recommend.Candidate, topN int) ([]recommend.ScoredTrack, error) {
	model := s.Model()
	if !model.Available() {
		if s.warned.CompareAndSwap(false, true) {
			s.logger.Warn().Msg("cluster model unavailable, clustering returns no recommendations")
		}
		return nil, nil
	}
	if topN <= 0 || len(candidates) == 0 {
		return nil, nil
	}

	reference := model.Standardize(ref)
	refCluster := model.Assign(reference)

	members := make([]clusterMember, 0, len(candidates))
	maxDistance := 0.0
	for i := range candidates {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		std := model.Standardize(candidates[i].Vector)
		if model.Assign(std) != refCluster {
			continue
		}
		d := euclideanDistance(reference, std)
		if d > maxDistance {
			maxDistance = d
		}
		members = append(members, clusterMember{uri: candidates[i].URI, distance: d})
	}

	if len(members) == 0 {
		s.logger.Debug().
			Int("cluster", refCluster).
			Int("candidates", len(candidates)).
			Msg("no candidates share the reference cluster")
		return nil, nil
	}
	if maxDistance == 0 {
		maxDistance = 1
	}

	scored := make([]recommend.ScoredTrack, 0, len(members))
	for _, m := range members {
		confidence := 1 - m.distance/maxDistance
		if confidence <= s.cfg.MinConfidence {
			continue
		}
		scored = append(scored, recommend.ScoredTrack{URI: m.uri, Score: confidence})
	}

	s.logger.Debug().
		Int("cluster", refCluster).
		Int("members", len(members)).
		Int("above_threshold", len(scored)).
		Msg("cluster scored")

	return rankTop(scored, topN), nil
}
