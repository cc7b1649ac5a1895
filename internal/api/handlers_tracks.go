// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/validation"
)

// Search handles GET /api/v1/search?q=&limit=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit, err := getIntParam(r, "limit", h.cfg.API.DefaultSearchLimit)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	req := SearchRequest{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
		Limit: limit,
	}
	if !validateRequest(rw, &req) {
		return
	}
	if req.Limit > h.cfg.API.MaxSearchLimit {
		req.Limit = h.cfg.API.MaxSearchLimit
	}

	tracks, err := h.catalog.SearchTracks(r.Context(), req.Query, req.Limit)
	if err != nil {
		rw.FromError(err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	rw.SuccessList(tracks, len(tracks))
}

// Track handles GET /api/v1/tracks/{id}?user=
//
// When user is set the track is appended to that user's recently searched
// list. Failing to record it does not fail the lookup.
func (h *Handler) Track(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	uri, ok := trackURIParam(rw, r)
	if !ok {
		return
	}
	username := r.URL.Query().Get("user")
	if username != "" && !validation.IsUsername(username) {
		rw.BadRequest("invalid user parameter")
		return
	}

	track, err := h.catalog.FetchTrack(r.Context(), uri)
	if err != nil {
		rw.FromError(err)
		return
	}
	if username != "" {
		if err := h.users.AddRecentlySearched(r.Context(), username, uri); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("username", username).Msg("failed to record recently searched track")
		}
	}
	rw.Success(track)
}

// TrackFeaturesResponse pairs a track URI with its audio features.
type TrackFeaturesResponse struct {
	URI      string               `json:"track_uri"`
	Features models.AudioFeatures `json:"features"`
}

// TrackFeatures handles GET /api/v1/tracks/{id}/features
func (h *Handler) TrackFeatures(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	uri, ok := trackURIParam(rw, r)
	if !ok {
		return
	}
	features, err := h.catalog.FetchAudioFeatures(r.Context(), uri)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(TrackFeaturesResponse{URI: uri, Features: features})
}

// PlaylistTracks handles GET /api/v1/playlists/{id}/tracks?limit=
//
// limit defaults to and is capped at catalog.MaxPlaylistTracks. Local files
// in the playlist are skipped.
func (h *Handler) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	playlistID, err := catalog.NormalizePlaylistID(chi.URLParam(r, "id"))
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeInvalidPlaylist, err.Error())
		return
	}
	limit, err := getIntParam(r, "limit", catalog.MaxPlaylistTracks)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if limit < 1 {
		rw.BadRequest("limit must be at least 1")
		return
	}
	if limit > catalog.MaxPlaylistTracks {
		limit = catalog.MaxPlaylistTracks
	}

	tracks, err := h.catalog.FetchPlaylistTracks(r.Context(), playlistID, limit)
	if err != nil {
		rw.FromError(err)
		return
	}
	if tracks == nil {
		tracks = []models.Track{}
	}
	rw.SuccessList(tracks, len(tracks))
}

// ClearFeatureCache handles DELETE /api/v1/cache/features
func (h *Handler) ClearFeatureCache(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cleared := 0
	for _, c := range h.clearers {
		if err := c.Clear(); err != nil {
			h.logger.Error().Err(err).Msg("feature cache clear failed")
			rw.Error(http.StatusInternalServerError, ErrCodeInternalError, "failed to clear feature cache")
			return
		}
		cleared++
	}

	h.logger.Info().Int("layers", cleared).Msg("feature caches cleared")
	rw.Success(map[string]int{"cleared_layers": cleared})
}

// trackURIParam normalizes the {id} path parameter, writing a 400 on failure.
func trackURIParam(rw *ResponseWriter, r *http.Request) (string, bool) {
	uri, err := catalog.NormalizeURI(chi.URLParam(r, "id"))
	if err != nil {
		rw.Error(http.StatusBadRequest, ErrCodeInvalidTrack, err.Error())
		return "", false
	}
	return uri, true
}
