// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package models

import (
	"fmt"

	"github.com/tomtom215/songrec/internal/validation"
)

// AudioFeatures holds the acoustic attributes of a single track as reported by the catalog.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability" validate:"gte=0,lte=1"`
	Energy           float64 `json:"energy" validate:"gte=0,lte=1"`
	Key              int     `json:"key" validate:"gte=-1,lte=11"`     // Pitch class; -1 when undetected
	Loudness         float64 `json:"loudness" validate:"gte=-60,lte=0"` // dB
	Mode             int     `json:"mode" validate:"oneof=0 1"`         // 0 minor, 1 major
	Speechiness      float64 `json:"speechiness" validate:"gte=0,lte=1"`
	Acousticness     float64 `json:"acousticness" validate:"gte=0,lte=1"`
	Instrumentalness float64 `json:"instrumentalness" validate:"gte=0,lte=1"`
	Liveness         float64 `json:"liveness" validate:"gte=0,lte=1"`
	Valence          float64 `json:"valence" validate:"gte=0,lte=1"`
	Tempo            float64 `json:"tempo" validate:"gte=0"` // BPM
	DurationMs       int     `json:"duration_ms" validate:"gte=0"`
	TimeSignature    int     `json:"time_signature" validate:"gte=1,lte=12"`
}

// Validate checks every attribute against its documented range.
func (f AudioFeatures) Validate() error {
	if err := validation.ValidateStruct(&f); err != nil {
		return fmt.Errorf("invalid audio features: %w", err)
	}
	return nil
}

// NewAudioFeatures validates f and returns it unchanged when every attribute is in range.
//
//nolint:gocritic // AudioFeatures is a value type
func NewAudioFeatures(f AudioFeatures) (AudioFeatures, error) {
	if err := f.Validate(); err != nil {
		return AudioFeatures{}, err
	}
	return f, nil
}
