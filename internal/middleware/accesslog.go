// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// AccessLog logs one line per request. Health and metrics scrapes log at
// debug, server errors at error, everything else at info.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func AccessLog(logger zerolog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	logger = logger.With().Str("component", "http").Logger()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next(rec, r)

			var event *zerolog.Event
			switch {
			case rec.status >= http.StatusInternalServerError:
				event = logger.Error()
			case quietPath(r.URL.Path):
				event = logger.Debug()
			default:
				event = logger.Info()
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int("bytes", rec.bytes).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		}
	}
}

func quietPath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/api/v1/health")
}
