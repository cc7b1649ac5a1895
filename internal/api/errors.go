// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/recommend"
	"github.com/tomtom215/songrec/internal/userstore"
)

// Error codes for API responses
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeTimeout            = "TIMEOUT"

	ErrCodeQuotaExhausted   = "QUOTA_EXHAUSTED"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeTrackNotFound    = "TRACK_NOT_FOUND"
	ErrCodeInvalidTrack     = "INVALID_TRACK"
	ErrCodePlaylistNotFound = "PLAYLIST_NOT_FOUND"
	ErrCodeInvalidPlaylist  = "INVALID_PLAYLIST"
	ErrCodeNoNewTracks      = "NO_NEW_TRACKS"
	ErrCodeUpstreamError    = "UPSTREAM_ERROR"
	ErrCodeModelUnavailable = "MODEL_UNAVAILABLE"
	ErrCodeGenerationFailed = "GENERATION_FAILED"
)

// errorStatus maps a domain error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, userstore.ErrUserNotFound):
		return http.StatusNotFound, ErrCodeUserNotFound
	case errors.Is(err, userstore.ErrUserExists):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, userstore.ErrInvalidUsername):
		return http.StatusBadRequest, ErrCodeValidationFailed
	case errors.Is(err, catalog.ErrInvalidTrackRef):
		return http.StatusBadRequest, ErrCodeInvalidTrack
	case errors.Is(err, catalog.ErrInvalidPlaylistRef):
		return http.StatusBadRequest, ErrCodeInvalidPlaylist
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	}

	switch recommend.KindOf(err) {
	case recommend.KindValidation:
		if errors.Is(err, recommend.ErrNoNewTracks) {
			return http.StatusUnprocessableEntity, ErrCodeNoNewTracks
		}
		return http.StatusBadRequest, ErrCodeValidationFailed
	case recommend.KindUpstreamFetch:
		return http.StatusBadGateway, ErrCodeUpstreamError
	case recommend.KindConfiguration:
		return http.StatusServiceUnavailable, ErrCodeModelUnavailable
	case recommend.KindGeneration:
		return http.StatusInternalServerError, ErrCodeGenerationFailed
	}

	// catalog errors outside the engine
	switch {
	case errors.Is(err, catalog.ErrTrackNotFound):
		return http.StatusNotFound, ErrCodeTrackNotFound
	case errors.Is(err, catalog.ErrPlaylistNotFound):
		return http.StatusNotFound, ErrCodePlaylistNotFound
	case errors.Is(err, catalog.ErrUnavailable), errors.Is(err, catalog.ErrNoCredentials):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// publicMessage hides internal details of server-side failures.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway &&
		status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		return "internal error"
	}
	return err.Error()
}
