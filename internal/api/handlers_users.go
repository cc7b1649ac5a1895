// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/validation"
)

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req CreateUserRequest
	if err := decodeBody(w, r, h.cfg.API.MaxBodyBytes, &req); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if !validateRequest(rw, &req) {
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, req.Email)
	if err != nil {
		rw.FromError(err)
		return
	}
	h.logger.Info().Str("username", user.Username).Msg("user created")
	rw.Created(user)
}

// GetUser handles GET /api/v1/users/{username}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	username, ok := usernameParam(rw, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), username)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(user)
}

// UpdatePreferences handles PATCH /api/v1/users/{username}/preferences
func (h *Handler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	username, ok := usernameParam(rw, r)
	if !ok {
		return
	}
	var upd models.PreferenceUpdate
	if err := decodeBody(w, r, h.cfg.API.MaxBodyBytes, &upd); err != nil {
		rw.BadRequest(err.Error())
		return
	}
	if !validateRequest(rw, &upd) {
		return
	}

	user, err := h.users.UpdatePreferences(r.Context(), username, upd)
	if err != nil {
		rw.FromError(err)
		return
	}
	rw.Success(user)
}

// usernameParam validates the {username} path parameter, writing a 400 on failure.
func usernameParam(rw *ResponseWriter, r *http.Request) (string, bool) {
	username := chi.URLParam(r, "username")
	if !validation.IsUsername(username) {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "invalid username")
		return "", false
	}
	return username, true
}
