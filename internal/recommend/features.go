// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"math"

	"github.com/tomtom215/songrec/internal/models"
)

// FeatureDims is the length of a feature vector.
const FeatureDims = 12

// Normalisation divisors and offsets applied by Extract.
const (
	keyDivisor           = 11.0
	loudnessOffset       = 60.0
	loudnessDivisor      = 60.0
	tempoDivisor         = 200.0
	timeSignatureDivisor = 4.0
)

// Vector positions.
const (
	IdxDanceability = iota
	IdxEnergy
	IdxKey
	IdxLoudness
	IdxMode
	IdxSpeechiness
	IdxAcousticness
	IdxInstrumentalness
	IdxLiveness
	IdxValence
	IdxTempo
	IdxTimeSignature
)

// FeatureVector is the fixed-length numeric representation of a track.
type FeatureVector [FeatureDims]float64

// Slice returns a copy of the vector as a slice.
func (v FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureDims)
	copy(out, v[:])
	return out
}

// IsZero reports whether every component is zero.
func (v FeatureVector) IsZero() bool {
	return v == FeatureVector{}
}

// FeatureVectorFromSlice converts s to a FeatureVector. It reports false when s
// has the wrong length.
func FeatureVectorFromSlice(s []float64) (FeatureVector, bool) {
	var v FeatureVector
	if len(s) != FeatureDims {
		return v, false
	}
	copy(v[:], s)
	return v, true
}

// Extract converts audio features into a feature vector.
//
// key, loudness, tempo and time signature are rescaled towards [0,1]; the
// remaining attributes are already unit-range and used as-is. Duration is not
// part of the vector. Out-of-range inputs are not clamped.
//
//nolint:gocritic // AudioFeatures is a value type
func Extract(f models.AudioFeatures) FeatureVector {
	return FeatureVector{
		IdxDanceability:     f.Danceability,
		IdxEnergy:           f.Energy,
		IdxKey:              float64(f.Key) / keyDivisor,
		IdxLoudness:         (f.Loudness + loudnessOffset) / loudnessDivisor,
		IdxMode:             float64(f.Mode),
		IdxSpeechiness:      f.Speechiness,
		IdxAcousticness:     f.Acousticness,
		IdxInstrumentalness: f.Instrumentalness,
		IdxLiveness:         f.Liveness,
		IdxValence:          f.Valence,
		IdxTempo:            f.Tempo / tempoDivisor,
		IdxTimeSignature:    float64(f.TimeSignature) / timeSignatureDivisor,
	}
}

// Inverse maps a vector back to audio features. Integer attributes are
// rounded to the nearest value and duration is zero.
func Inverse(v FeatureVector) models.AudioFeatures {
	return models.AudioFeatures{
		Danceability:     v[IdxDanceability],
		Energy:           v[IdxEnergy],
		Key:              int(math.Round(v[IdxKey] * keyDivisor)),
		Loudness:         v[IdxLoudness]*loudnessDivisor - loudnessOffset,
		Mode:             int(math.Round(v[IdxMode])),
		Speechiness:      v[IdxSpeechiness],
		Acousticness:     v[IdxAcousticness],
		Instrumentalness: v[IdxInstrumentalness],
		Liveness:         v[IdxLiveness],
		Valence:          v[IdxValence],
		Tempo:            v[IdxTempo] * tempoDivisor,
		TimeSignature:    int(math.Round(v[IdxTimeSignature] * timeSignatureDivisor)),
	}
}
