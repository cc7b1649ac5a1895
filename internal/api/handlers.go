// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/models"
	"github.com/tomtom215/songrec/internal/recommend"
)

// Recommender generates recommendations. It is implemented by *recommend.Engine.
type Recommender interface {
	GenerateRecommendations(ctx context.Context, user *models.User, candidates []string, n int, algorithm recommend.Algorithm) (*models.RecommendationResult, error)
}

// UserStore reads and writes user profiles. It is implemented by *userstore.Store.
type UserStore interface {
	CreateUser(ctx context.Context, username, email string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	UpdatePreferences(ctx context.Context, username string, upd models.PreferenceUpdate) (*models.User, error)
	AddRecentlySearched(ctx context.Context, username, uri string) error
}

// TrackCatalog is the catalog surface the API reads from.
type TrackCatalog interface {
	FetchTrack(ctx context.Context, uri string) (models.Track, error)
	FetchAudioFeatures(ctx context.Context, uri string) (models.AudioFeatures, error)
	SearchTracks(ctx context.Context, query string, limit int) ([]models.Track, error)
	FetchPlaylistTracks(ctx context.Context, playlist string, limit int) ([]models.Track, error)
}

// CacheClearer empties one feature cache layer.
type CacheClearer interface {
	Clear() error
}

// CacheClearerFunc adapts a function to CacheClearer.
type CacheClearerFunc func() error

// Clear calls f.
func (f CacheClearerFunc) Clear() error { return f() }

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// StatsSource returns one named section of GET /api/v1/stats.
type StatsSource func(ctx context.Context) (any, error)

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Config        *config.Config
	Engine        Recommender
	Users         UserStore
	Catalog       TrackCatalog
	CacheClearers []CacheClearer
	HealthChecks  map[string]HealthCheck
	Stats         map[string]StatsSource
	Logger        zerolog.Logger
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	cfg          *config.Config
	engine       Recommender
	users        UserStore
	catalog      TrackCatalog
	clearers     []CacheClearer
	healthChecks map[string]HealthCheck
	stats        map[string]StatsSource
	quota        *quotaLocks
	logger       zerolog.Logger
	startTime    time.Time
}

// NewHandler validates deps and creates the handler set.
func NewHandler(deps *Deps) (*Handler, error) {
	switch {
	case deps == nil:
		return nil, errors.New("api: deps are required")
	case deps.Config == nil:
		return nil, errors.New("api: config is required")
	case deps.Engine == nil:
		return nil, errors.New("api: recommender is required")
	case deps.Users == nil:
		return nil, errors.New("api: user store is required")
	case deps.Catalog == nil:
		return nil, errors.New("api: catalog is required")
	}

	return &Handler{
		cfg:          deps.Config,
		engine:       deps.Engine,
		users:        deps.Users,
		catalog:      deps.Catalog,
		clearers:     deps.CacheClearers,
		healthChecks: deps.HealthChecks,
		stats:        deps.Stats,
		quota:        newQuotaLocks(),
		logger:       deps.Logger.With().Str("component", "api").Logger(),
		startTime:    time.Now(),
	}, nil
}
