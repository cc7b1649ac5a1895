// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/events"
	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/recommend"
	"github.com/tomtom215/songrec/internal/recommend/algorithms"
	"github.com/tomtom215/songrec/internal/recommend/storage"
	"github.com/tomtom215/songrec/internal/userstore"
)

// catalogStack is the composed catalog plus the cache layer, if any.
type catalogStack struct {
	catalog.Catalog
	spotify *catalog.SpotifyClient
	cache   *catalog.CachedCatalog
}

// Close closes the persistent cache.
func (c *catalogStack) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}

// openCatalog composes Spotify, the badger cache and synthetic fallback
// features according to cfg.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func openCatalog(ctx context.Context, cfg *config.CatalogConfig, logger zerolog.Logger) (*catalogStack, error) {
	client, err := catalog.NewSpotifyClient(ctx, cfg, logger)
	if err != nil {
		if errors.Is(err, catalog.ErrNoCredentials) {
			return nil, fmt.Errorf("%w: set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET", err)
		}
		return nil, err
	}
	stack := &catalogStack{Catalog: client, spotify: client}

	if cfg.CacheEnabled {
		db, err := catalog.OpenCache(cfg.CachePath)
		if err != nil {
			return nil, err
		}
		stack.cache = catalog.NewCachedCatalog(stack.Catalog, db, cfg.CacheTTL, logger)
		stack.Catalog = stack.cache
	}
	if cfg.SyntheticFeatures {
		stack.Catalog = catalog.NewFallbackCatalog(stack.Catalog, logger)
	}
	return stack, nil
}

// app holds the components shared by serve and recommend.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	catalog  *catalogStack
	users    *userstore.Store
	models   *storage.Store
	engine   *recommend.Engine
	cluster  *algorithms.ClusterScorer
	bus      *gochannel.GoChannel
	consumer *events.QuotaConsumer
}

// newApp opens every dependency and wires the engine to the event bus. The
// cluster scorer starts without a model; callers install one with
// loadClusterModel or the model reload service.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	logger := logging.Logger()
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	if a.catalog, err = openCatalog(ctx, &cfg.Catalog, logger); err != nil {
		return nil, err
	}
	if a.users, err = userstore.Open(ctx, &cfg.Database, logger); err != nil {
		return nil, err
	}
	if a.models, err = storage.NewStore(cfg.Models.Dir); err != nil {
		return nil, fmt.Errorf("open model store: %w", err)
	}

	recCfg := cfg.Recommend.Clone()
	if a.engine, err = recommend.NewEngine(recCfg, a.catalog, recommend.NewFeatureCache(), logger); err != nil {
		return nil, err
	}
	a.cluster = algorithms.NewClusterScorer(recCfg.Cluster, nil, logger)
	a.engine.RegisterScorer(recommend.AlgorithmSimilarity, algorithms.NewSimilarityScorer(recCfg.Similarity, logger))
	a.engine.RegisterScorer(recommend.AlgorithmClustering, a.cluster)

	a.bus = events.NewBus(cfg.Events, logger)
	publisher, err := events.NewPublisher(a.bus, logger)
	if err != nil {
		return nil, err
	}
	a.engine.SetNotifier(publisher)
	if a.consumer, err = events.NewQuotaConsumer(a.bus, a.users, cfg.Events, logger); err != nil {
		return nil, err
	}
	return a, nil
}

// loadClusterModel installs the newest stored cluster model, if any.
func (a *app) loadClusterModel(ctx context.Context) {
	model, err := algorithms.LoadClusterModel(ctx, a.models)
	if err != nil {
		if errors.Is(err, recommend.ErrModelUnavailable) {
			a.logger.Warn().Str("dir", a.models.Dir()).Msg("No cluster model stored; clustering disabled until fit-models runs")
			return
		}
		a.logger.Warn().Err(err).Msg("Failed to load cluster model; clustering disabled")
		return
	}
	a.cluster.SetModel(model)
}

// startConsumer runs the quota consumer until ctx ends and waits until it
// has subscribed. The returned channel yields Run's result.
func (a *app) startConsumer(ctx context.Context) (<-chan error, error) {
	done := make(chan error, 1)
	go func() { done <- a.consumer.Run(ctx) }()

	select {
	case <-a.consumer.Ready():
		return done, nil
	case err := <-done:
		if err == nil {
			err = errors.New("quota consumer exited before subscribing")
		}
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases every opened dependency. It is safe on a partly built app.
func (a *app) Close() {
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing event bus")
		}
	}
	if a.users != nil {
		if err := a.users.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing user store")
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Error closing catalog cache")
		}
	}
}
