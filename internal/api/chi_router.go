// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/songrec/internal/middleware"
)

// Router sets up HTTP routes using the chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates the router for the given dependencies.
func NewRouter(deps *Deps) (*Router, error) {
	handler, err := NewHandler(deps)
	if err != nil {
		return nil, err
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFromSecurity(deps.Config.Security)),
	}, nil
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// applied to all routes, outermost first
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chiMiddleware(middleware.AccessLog(router.handler.logger)))
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(chiMiddleware(middleware.PrometheusMetrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", router.handler.Health)
		r.Get("/stats", router.handler.Stats)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Get("/search", router.handler.Search)

			r.Route("/tracks/{id}", func(r chi.Router) {
				r.Get("/", router.handler.Track)
				r.Get("/features", router.handler.TrackFeatures)
			})

			r.Get("/playlists/{id}/tracks", router.handler.PlaylistTracks)

			r.Route("/users", func(r chi.Router) {
				r.Post("/", router.handler.CreateUser)
				r.Get("/{username}", router.handler.GetUser)
				r.Patch("/{username}/preferences", router.handler.UpdatePreferences)
				r.Post("/{username}/recommendations", router.handler.Recommend)
			})

			r.Delete("/cache/features", router.handler.ClearFeatureCache)
		})
	})

	return r
}
