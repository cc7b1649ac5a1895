// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package recommend implements the audio-feature recommendation pipeline.
//
// # Architecture
//
// A request flows through a fixed sequence of stages:
//
//	Started -> PreferenceBuilt -> CandidatesFiltered -> Scored -> MetadataResolved -> Completed
//
// with Failed reachable from any stage. The engine builds a weighted preference
// vector from the user's rated tracks, removes every track the user already
// knows from the candidate set, scores what remains with one of three
// algorithms and resolves catalog metadata for the winners.
//
//   - similarity: cosine similarity against the most recently searched track
//   - clustering: same-cluster Euclidean confidence from a pretrained k-means model
//   - hybrid: 0.6 * similarity + 0.4 * clustering
//
// Scorers live in the algorithms subpackage and are registered with the
// engine; the hybrid blend is computed here from the two registered scorers.
//
// # Feature Vectors
//
// Every track is represented by a fixed 12-dimensional vector produced by
// Extract. Vectors are cached in a FeatureCache owned by the engine and
// fetched through a FeatureProvider that coalesces concurrent misses.
//
// # Usage
//
//	cache := recommend.NewFeatureCache()
//	engine, err := recommend.NewEngine(recommend.DefaultConfig(), catalog, cache, logger)
//	engine.RegisterScorer(recommend.AlgorithmSimilarity, algorithms.NewSimilarityScorer(cfg.Similarity, logger))
//	engine.RegisterScorer(recommend.AlgorithmClustering, clusterScorer)
//
//	result, err := engine.GenerateRecommendations(ctx, user, candidates, 5, recommend.AlgorithmHybrid)
//
// # Thread Safety
//
// The engine is safe for concurrent use. The feature cache is the only
// shared mutable state on the request path.
package recommend
