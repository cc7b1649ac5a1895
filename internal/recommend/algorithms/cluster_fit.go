// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/recommend"
	"github.com/tomtom215/songrec/internal/recommend/storage"
)

// FitClusterModel fits a standard scaler and k-means centroids on samples.
// The centroids live in standardized space.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func FitClusterModel(ctx context.Context, samples []recommend.FeatureVector, k int, logger zerolog.Logger) (*FittedClusterModel, error) {
	if k < 2 {
		return nil, fmt.Errorf("k must be >= 2, got %d", k)
	}
	if len(samples) < k {
		return nil, fmt.Errorf("need at least %d samples to fit %d clusters, got %d", k, k, len(samples))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	raw := make([][]float64, len(samples))
	for i := range samples {
		raw[i] = samples[i].Slice()
	}

	scaler, err := FitScaler(raw)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}

	obs := make(clusters.Observations, 0, len(raw))
	for _, r := range raw {
		obs = append(obs, clusters.Coordinates(scaler.Transform(r)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	partition, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return nil, fmt.Errorf("partition samples: %w", err)
	}

	centroids := make([][]float64, len(partition))
	for i, c := range partition {
		centroids[i] = append([]float64(nil), c.Center...)
	}

	model, err := NewFittedClusterModel(scaler, centroids, 0, time.Now())
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("samples", len(samples)).
		Int("clusters", len(centroids)).
		Dur("duration", time.Since(start)).
		Msg("cluster model fitted")
	return model, nil
}

// SaveClusterModel stores the scaler and centroids of model under a shared
// version and returns that version.
func SaveClusterModel(ctx context.Context, store *storage.Store, model *FittedClusterModel, samples int, trainingTime time.Duration) (int, error) {
	version := 1
	for _, name := range []string{storage.ModelScaler, storage.ModelKMeans} {
		if v, ok := store.GetLatestVersion(name); ok && v+1 > version {
			version = v + 1
		}
	}

	meta := storage.ModelMetadata{
		TrainedAt:          model.TrainedAt(),
		SampleCount:        samples,
		Dimensions:         recommend.FeatureDims,
		Clusters:           model.K(),
		TrainingDurationMS: trainingTime.Milliseconds(),
	}

	scaler := storage.ScalerState{Mean: model.scaler.Mean, Scale: model.scaler.Scale}
	if err := store.Save(ctx, storage.ModelScaler, version, scaler, meta); err != nil {
		return 0, fmt.Errorf("save scaler: %w", err)
	}
	centroids := storage.KMeansState{Centroids: model.Centroids()}
	if err := store.Save(ctx, storage.ModelKMeans, version, centroids, meta); err != nil {
		return 0, fmt.Errorf("save centroids: %w", err)
	}
	return version, nil
}

// LoadClusterModel reads the latest centroids and the scaler saved with them.
// A missing artifact is reported as recommend.ErrModelUnavailable.
func LoadClusterModel(ctx context.Context, store *storage.Store) (*FittedClusterModel, error) {
	var centroids storage.KMeansState
	meta, err := store.Load(ctx, storage.ModelKMeans, 0, &centroids)
	if err != nil {
		return nil, wrapLoadError(err)
	}

	var scaler storage.ScalerState
	if _, err := store.Load(ctx, storage.ModelScaler, meta.Version, &scaler); err != nil {
		return nil, wrapLoadError(err)
	}

	return NewFittedClusterModel(
		&StandardScaler{Mean: scaler.Mean, Scale: scaler.Scale},
		centroids.Centroids,
		meta.Version,
		meta.TrainedAt,
	)
}

func wrapLoadError(err error) error {
	if errors.Is(err, storage.ErrModelNotFound) {
		return recommend.ConfigurationError("load cluster model", fmt.Errorf("%w: %w", recommend.ErrModelUnavailable, err))
	}
	return recommend.ConfigurationError("load cluster model", err)
}
