// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/zmb3/spotify"

	"github.com/tomtom215/songrec/internal/models"
)

// errEmptyFeatures marks an all-zero features payload, which the catalog
// returns for tracks it has not analysed.
var errEmptyFeatures = errors.New("audio features not analysed")

// mapAudioFeatures converts an API payload into validated domain features.
// Values drifting slightly outside the documented ranges are clamped.
func mapAudioFeatures(af *spotify.AudioFeatures) (models.AudioFeatures, error) {
	if allFeaturesZero(af) {
		return models.AudioFeatures{}, fmt.Errorf("track %s: %w", af.ID, errEmptyFeatures)
	}

	key := af.Key
	if key < -1 || key > 11 {
		key = -1
	}
	mode := 0
	if af.Mode == 1 {
		mode = 1
	}
	timeSignature := af.TimeSignature
	if timeSignature < 1 || timeSignature > 12 {
		timeSignature = 4
	}

	f, err := models.NewAudioFeatures(models.AudioFeatures{
		Danceability:     unit(af.Danceability),
		Energy:           unit(af.Energy),
		Key:              key,
		Loudness:         clamp(float64(af.Loudness), -60, 0),
		Mode:             mode,
		Speechiness:      unit(af.Speechiness),
		Acousticness:     unit(af.Acousticness),
		Instrumentalness: unit(af.Instrumentalness),
		Liveness:         unit(af.Liveness),
		Valence:          unit(af.Valence),
		Tempo:            math.Max(0, float64(af.Tempo)),
		DurationMs:       max(0, af.Duration),
		TimeSignature:    timeSignature,
	})
	if err != nil {
		return models.AudioFeatures{}, fmt.Errorf("track %s: %w", af.ID, err)
	}
	return f, nil
}

// mapTrack converts an API track into domain metadata.
func mapTrack(t *spotify.FullTrack) (models.Track, error) {
	uri := string(t.URI)
	if uri == "" {
		uri = TrackURI(string(t.ID))
	}

	track := models.Track{
		URI:       uri,
		ID:        string(t.ID),
		Name:      t.Name,
		AlbumURI:  string(t.Album.URI),
		AlbumName: t.Album.Name,
	}
	if len(t.Artists) > 0 {
		track.ArtistName = t.Artists[0].Name
		track.ArtistURI = string(t.Artists[0].URI)
	}

	if err := track.Validate(); err != nil {
		return models.Track{}, err
	}
	return track, nil
}

func allFeaturesZero(af *spotify.AudioFeatures) bool {
	return af.Danceability == 0 &&
		af.Energy == 0 &&
		af.Valence == 0 &&
		af.Tempo == 0 &&
		af.Instrumentalness == 0 &&
		af.Acousticness == 0
}

func unit(v float32) float64 {
	return clamp(float64(v), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
