// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import "sort"

// Blend merges similarity and cluster results into a hybrid ranking.
//
// Each track's combined score is SimilarityWeight*sim + ClusterWeight*cluster,
// with a missing score counting as zero. Results are sorted by descending
// combined score; ties keep first appearance, similarity results first.
//
//nolint:gocritic // HybridConfig is small and read-only
func Blend(similarity, cluster []ScoredTrack, cfg HybridConfig, topN int) []ScoredTrack {
	index := make(map[string]int, len(similarity)+len(cluster))
	blended := make([]ScoredTrack, 0, len(similarity)+len(cluster))

	add := func(tracks []ScoredTrack, weight float64) {
		for _, t := range tracks {
			i, ok := index[t.URI]
			if !ok {
				i = len(blended)
				index[t.URI] = i
				blended = append(blended, ScoredTrack{URI: t.URI})
			}
			blended[i].Score += weight * t.Score
		}
	}
	add(similarity, cfg.SimilarityWeight)
	add(cluster, cfg.ClusterWeight)

	sort.SliceStable(blended, func(i, j int) bool {
		return blended[i].Score > blended[j].Score
	})

	if topN >= 0 && len(blended) > topN {
		blended = blended[:topN]
	}
	return blended
}
