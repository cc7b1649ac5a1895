// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"net/http"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/recommend"
)

// RecommendedTrack is a track with its confidence score.
type RecommendedTrack struct {
	models.Track
	Score float64 `json:"score"`
}

// RecommendResponse is the payload of a successful recommendation request.
type RecommendResponse struct {
	RequestID        string             `json:"request_id"`
	Algorithm        string             `json:"algorithm"`
	Tracks           []RecommendedTrack `json:"tracks"`
	ProcessingTimeMs float64            `json:"processing_time_ms"`
	RemainingQuota   int                `json:"remaining_quota"`
}

// Recommend handles POST /api/v1/users/{username}/recommendations
//
// The user's quota is checked before generation and decremented through the
// completion event the engine publishes, so the returned remaining_quota
// already reflects this request. Requests for the same user are serialized
// from the quota check to the decrement.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	ctx := r.Context()

	username, ok := usernameParam(rw, r)
	if !ok {
		return
	}

	var req RecommendRequest
	if err := decodeBody(w, r, h.cfg.API.MaxBodyBytes, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}
	if req.N == 0 {
		req.N = h.cfg.Recommend.Limits.DefaultRecommendations
		if req.N <= 0 {
			req.N = DefaultRecommendationCount
		}
	}
	algorithm, err := recommend.ParseAlgorithm(req.Algorithm)
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, err.Error())
		return
	}
	candidates := make([]string, len(req.Candidates))
	for i, ref := range req.Candidates {
		// validated as track_ref above
		candidates[i], _ = catalog.NormalizeURI(ref)
	}

	unlock, err := h.quota.lock(ctx, username)
	if err != nil {
		rw.FromError(err)
		return
	}
	defer unlock()

	user, err := h.users.GetUser(ctx, username)
	if err != nil {
		rw.FromError(err)
		return
	}
	if user.Count <= 0 {
		rw.Error(http.StatusTooManyRequests, ErrCodeQuotaExhausted, "recommendation quota exhausted")
		return
	}

	result, err := h.engine.GenerateRecommendations(ctx, user, candidates, req.N, algorithm)
	if err != nil {
		rw.FromError(err)
		return
	}

	remaining := user.Count - 1
	if refreshed, err := h.users.GetUser(ctx, username); err == nil {
		remaining = refreshed.Count
	} else {
		logging.Ctx(ctx).Warn().Err(err).Msg("could not refresh remaining quota")
	}

	rw.Success(NewRecommendResponse(result, remaining))
}

// NewRecommendResponse pairs each result track with its score.
func NewRecommendResponse(result *models.RecommendationResult, remainingQuota int) RecommendResponse {
	tracks := make([]RecommendedTrack, result.Len())
	for i := range result.Tracks {
		tracks[i] = RecommendedTrack{Track: result.Tracks[i], Score: result.Scores[i]}
	}
	return RecommendResponse{
		RequestID:        result.RequestID,
		Algorithm:        result.Algorithm,
		Tracks:           tracks,
		ProcessingTimeMs: float64(result.ProcessingTime.Microseconds()) / 1000,
		RemainingQuota:   remainingQuota,
	}
}
