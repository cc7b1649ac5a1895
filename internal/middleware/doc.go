// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package middleware provides HTTP middleware for the songrec API.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count, latency and in-flight instrumentation
  - AccessLog: one structured zerolog line per request

All middleware uses the http.HandlerFunc wrapping form. The api package adapts
them to chi's func(http.Handler) http.Handler signature:

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.PrometheusMetrics))
	r.Use(chiMiddleware(middleware.AccessLog(logger)))

Metrics are labelled with the chi route pattern (for example
/api/v1/tracks/{id}) rather than the raw path, so track ids never become
label values.
*/
package middleware
