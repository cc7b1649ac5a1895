// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/songrec/internal/validation"
)

// DefaultRecommendationCount is used when a request omits n and the engine
// config sets no default.
const DefaultRecommendationCount = 10

// SearchRequest represents the validated query parameters for /search.
type SearchRequest struct {
	Query string `validate:"required,max=200"`
	Limit int    `validate:"min=1"`
}

// RecommendRequest is the body of POST /users/{username}/recommendations.
type RecommendRequest struct {
	Candidates []string `json:"candidates" validate:"required,min=1,dive,track_ref"`
	N          int      `json:"n" validate:"omitempty,min=1"`
	Algorithm  string   `json:"algorithm" validate:"omitempty,oneof=similarity clustering hybrid"`
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"omitempty,email"`
}

var errEmptyBody = errors.New("request body is required")

// decodeBody reads at most maxBytes of JSON into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if r.Body == nil {
		return errEmptyBody
	}
	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// validateRequest validates a struct and writes a 400 response on failure.
// It returns false when a response has been written.
func validateRequest(rw *ResponseWriter, req interface{}) bool {
	if verr := validation.ValidateStruct(req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// getIntParam parses an integer query parameter, returning def when absent.
func getIntParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
