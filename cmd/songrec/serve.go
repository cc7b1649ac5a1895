// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/tomtom215/songrec/internal/api"
	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/logging"
	"github.com/tomtom215/songrec/internal/supervisor"
	"github.com/tomtom215/songrec/internal/supervisor/services"
)

// runServe builds the application and runs it under the supervisor tree
// until ctx is canceled.
func runServe(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", cfg.Server.Addr(), "listen address")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	logging.Info().Str("environment", cfg.Server.Environment).Msg("Starting songrec with supervisor tree")

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("models_dir", cfg.Models.Dir).
		Bool("catalog_cache", a.catalog.cache != nil).
		Bool("synthetic_features", cfg.Catalog.SyntheticFeatures).
		Msg("Configuration loaded")

	deps := &api.Deps{
		Config:  cfg,
		Engine:  a.engine,
		Users:   a.users,
		Catalog: a.catalog,
		CacheClearers: []api.CacheClearer{
			api.CacheClearerFunc(func() error {
				a.engine.ClearFeatureCache()
				return nil
			}),
		},
		HealthChecks: map[string]api.HealthCheck{
			"user_store": a.users.Ping,
			"catalog": func(context.Context) error {
				if state := a.catalog.spotify.BreakerState(); state == "open" {
					return fmt.Errorf("circuit breaker %s", state)
				}
				return nil
			},
		},
		Stats: map[string]api.StatsSource{
			"engine": func(context.Context) (any, error) { return a.engine.Stats(), nil },
			"cluster_model": func(context.Context) (any, error) {
				return a.cluster.Stats(), nil
			},
			"catalog": func(context.Context) (any, error) {
				return map[string]string{"breaker": a.catalog.spotify.BreakerState()}, nil
			},
		},
		Logger: a.logger,
	}
	if a.catalog.cache != nil {
		deps.CacheClearers = append(deps.CacheClearers, a.catalog.cache)
		deps.Stats["catalog_cache"] = func(context.Context) (any, error) {
			return a.catalog.cache.Stats()
		}
	}

	router, err := api.NewRouter(deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              *addr,
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Data layer
	tree.AddDataService(services.NewModelReloadService(
		services.NewStoreModelSource(a.models),
		a.cluster,
		services.ModelReloadConfig{LoadOnStartup: true, Interval: cfg.Models.ReloadInterval},
		a.logger,
	))

	// Messaging layer
	tree.AddMessagingService(services.NewQuotaConsumerService(a.consumer, a.logger))

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	logging.Info().Msg("songrec stopped gracefully")
	return nil
}
