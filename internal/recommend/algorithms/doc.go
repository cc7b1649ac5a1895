// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package algorithms implements the scorers registered with the
// recommendation engine.
//
// # Scorers
//
//   - SimilarityScorer: cosine similarity between a reference vector and
//     each candidate vector. Scores fall in (MinSimilarity, 1].
//   - ClusterScorer: standardizes vectors with a fitted scaler, keeps the
//     candidates assigned to the reference's k-means cluster and converts
//     their Euclidean distance into a confidence in (MinConfidence, 1].
//
// Both scorers rank with a stable sort, so equal scores keep candidate order.
//
// # Cluster Models
//
// The cluster scorer depends on a ClusterModel. A model is either fitted
// (FitClusterModel) or loaded from a storage.Store (LoadClusterModel). Until
// one is installed the scorer returns no results and logs a single warning.
//
// # Thread Safety
//
// Scorers are safe for concurrent use. Fitted models are read-only; the
// cluster scorer swaps models atomically.
package algorithms
