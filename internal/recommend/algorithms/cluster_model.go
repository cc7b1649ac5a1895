// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package algorithms

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/muesli/clusters"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/songrec/internal/recommend"
)

// ClusterModel standardizes feature vectors and assigns them to clusters.
type ClusterModel interface {
	// Available reports whether the model can score.
	Available() bool

	// Standardize applies the fitted scaler to v.
	Standardize(v recommend.FeatureVector) []float64

	// Assign returns the cluster of a standardized vector.
	Assign(standardized []float64) int
}

// unavailableModel is the ClusterModel used before a fitted model exists.
type unavailableModel struct{}

func (unavailableModel) Available() bool { return false }

func (unavailableModel) Standardize(v recommend.FeatureVector) []float64 { return v.Slice() }

func (unavailableModel) Assign([]float64) int { return -1 }

// UnavailableModel returns a ClusterModel that never scores.
func UnavailableModel() ClusterModel {
	return unavailableModel{}
}

// StandardScaler removes the mean and scales to unit variance per dimension.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes the per-dimension mean and population standard
// deviation of samples. Constant dimensions get a scale of 1.
func FitScaler(samples [][]float64) (*StandardScaler, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to fit scaler")
	}
	dims := len(samples[0])
	for i, s := range samples {
		if len(s) != dims {
			return nil, fmt.Errorf("sample %d has %d dimensions, want %d", i, len(s), dims)
		}
	}

	mean := make([]float64, dims)
	scale := make([]float64, dims)
	column := make([]float64, len(samples))
	for d := 0; d < dims; d++ {
		for i, s := range samples {
			column[i] = s[d]
		}
		mean[d], scale[d] = stat.PopMeanStdDev(column, nil)
		if scale[d] == 0 {
			scale[d] = 1
		}
	}

	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// Validate checks the scaler shape against the feature vector length.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) != recommend.FeatureDims || len(s.Scale) != recommend.FeatureDims {
		return fmt.Errorf("scaler has %d/%d dimensions, want %d", len(s.Mean), len(s.Scale), recommend.FeatureDims)
	}
	for d, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) {
			return fmt.Errorf("scaler dimension %d has invalid scale %f", d, sc)
		}
	}
	return nil
}

// Transform returns the standardized copy of v.
func (s *StandardScaler) Transform(v []float64) []float64 {
	out := make([]float64, len(v))
	floats.SubTo(out, v, s.Mean)
	floats.Div(out, s.Scale)
	return out
}

// FittedClusterModel is a scaler plus k-means centroids.
type FittedClusterModel struct {
	scaler    *StandardScaler
	centers   clusters.Clusters
	version   int
	trainedAt time.Time
}

// NewFittedClusterModel builds a model from a scaler and centroids in
// standardized space.
func NewFittedClusterModel(scaler *StandardScaler, centroids [][]float64, version int, trainedAt time.Time) (*FittedClusterModel, error) {
	if scaler == nil {
		return nil, errors.New("scaler is required")
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	if len(centroids) == 0 {
		return nil, errors.New("at least one centroid is required")
	}

	centers := make(clusters.Clusters, len(centroids))
	for i, c := range centroids {
		if len(c) != recommend.FeatureDims {
			return nil, fmt.Errorf("centroid %d has %d dimensions, want %d", i, len(c), recommend.FeatureDims)
		}
		centers[i] = clusters.Cluster{Center: clusters.Coordinates(append([]float64(nil), c...))}
	}

	return &FittedClusterModel{
		scaler:    scaler,
		centers:   centers,
		version:   version,
		trainedAt: trainedAt,
	}, nil
}

// Available always reports true.
func (m *FittedClusterModel) Available() bool { return true }

// Standardize applies the scaler to v.
func (m *FittedClusterModel) Standardize(v recommend.FeatureVector) []float64 {
	return m.scaler.Transform(v[:])
}

// Assign returns the index of the nearest centroid.
func (m *FittedClusterModel) Assign(standardized []float64) int {
	return m.centers.Nearest(clusters.Coordinates(standardized))
}

// K returns the number of clusters.
func (m *FittedClusterModel) K() int { return len(m.centers) }

// Version returns the stored model version, 0 for unsaved models.
func (m *FittedClusterModel) Version() int { return m.version }

// TrainedAt returns when the model was fitted.
func (m *FittedClusterModel) TrainedAt() time.Time { return m.trainedAt }

// Centroids returns a copy of the centroids.
func (m *FittedClusterModel) Centroids() [][]float64 {
	out := make([][]float64, len(m.centers))
	for i, c := range m.centers {
		out[i] = append([]float64(nil), c.Center...)
	}
	return out
}
