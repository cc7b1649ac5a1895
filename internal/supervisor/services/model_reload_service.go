// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/recommend/algorithms"
	"github.com/tomtom215/songrec/internal/recommend/storage"
)

const defaultLoadTimeout = 30 * time.Second

// ModelSource provides the newest persisted cluster model.
type ModelSource interface {
	// LatestVersion reports the newest stored version, or false when none exists.
	LatestVersion() (int, bool, error)
	Load(ctx context.Context) (*algorithms.FittedClusterModel, error)
}

// ModelSink holds the model used for scoring. *algorithms.ClusterScorer
// implements it.
type ModelSink interface {
	SetModel(model algorithms.ClusterModel)
	Model() algorithms.ClusterModel
}

// StoreModelSource reads cluster models from a storage.Store, rescanning
// the directory so models saved by fit-models are picked up.
type StoreModelSource struct {
	store *storage.Store
}

// NewStoreModelSource creates a ModelSource backed by store.
func NewStoreModelSource(store *storage.Store) *StoreModelSource {
	return &StoreModelSource{store: store}
}

// LatestVersion implements ModelSource.
func (s *StoreModelSource) LatestVersion() (int, bool, error) {
	if err := s.store.Refresh(); err != nil {
		return 0, false, err
	}
	v, ok := s.store.GetLatestVersion(storage.ModelKMeans)
	return v, ok, nil
}

// Load implements ModelSource.
func (s *StoreModelSource) Load(ctx context.Context) (*algorithms.FittedClusterModel, error) {
	return algorithms.LoadClusterModel(ctx, s.store)
}

// ModelReloadConfig controls when models are reloaded.
type ModelReloadConfig struct {
	// LoadOnStartup installs the newest model as soon as the service starts.
	LoadOnStartup bool

	// Interval between reload checks. Zero disables periodic checks.
	Interval time.Duration
}

// ModelReloadService keeps the cluster scorer on the newest stored model.
// A failed load leaves the installed model in place.
type ModelReloadService struct {
	source ModelSource
	sink   ModelSink
	config ModelReloadConfig
	logger zerolog.Logger
	name   string
}

// NewModelReloadService creates a reload service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewModelReloadService(source ModelSource, sink ModelSink, cfg ModelReloadConfig, logger zerolog.Logger) *ModelReloadService {
	return &ModelReloadService{
		source: source,
		sink:   sink,
		config: cfg,
		logger: logger.With().Str("service", "model-reload").Logger(),
		name:   "model-reload-service",
	}
}

// Serve implements suture.Service.
func (s *ModelReloadService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("load_on_startup", s.config.LoadOnStartup).
		Dur("interval", s.config.Interval).
		Msg("model reload service starting")

	if s.config.LoadOnStartup {
		s.reloadLogged(ctx)
	}

	if s.config.Interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("model reload service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.reloadLogged(ctx)
		}
	}
}

// Reload installs the newest stored model if its version differs from the
// installed one. It reports whether a model was installed.
func (s *ModelReloadService) Reload(ctx context.Context) (bool, error) {
	latest, ok, err := s.source.LatestVersion()
	if err != nil {
		metrics.ModelReloads.WithLabelValues("error").Inc()
		return false, err
	}
	if !ok {
		metrics.ModelReloads.WithLabelValues("missing").Inc()
		return false, nil
	}
	if installedVersion(s.sink.Model()) == latest {
		metrics.ModelReloads.WithLabelValues("unchanged").Inc()
		return false, nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, defaultLoadTimeout)
	defer cancel()

	model, err := s.source.Load(loadCtx)
	if err != nil {
		metrics.ModelReloads.WithLabelValues("error").Inc()
		return false, err
	}
	s.sink.SetModel(model)
	metrics.ModelReloads.WithLabelValues("installed").Inc()
	s.logger.Info().
		Int("version", model.Version()).
		Int("clusters", model.K()).
		Time("trained_at", model.TrainedAt()).
		Msg("cluster model reloaded")
	return true, nil
}

func (s *ModelReloadService) reloadLogged(ctx context.Context) {
	if _, err := s.Reload(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("cluster model reload failed, keeping current model")
	}
}

// String returns the service name for logging.
func (s *ModelReloadService) String() string {
	return s.name
}

// installedVersion is 0 when no versioned model is installed.
func installedVersion(m algorithms.ClusterModel) int {
	if v, ok := m.(interface{ Version() int }); ok {
		return v.Version()
	}
	return 0
}
