// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package models

import (
	"fmt"

	"github.com/tomtom215/songrec/internal/validation"
)

// Track is the catalog metadata returned with each recommendation.
type Track struct {
	URI        string `json:"track_uri" validate:"required"`
	ID         string `json:"track_id,omitempty"`
	Name       string `json:"track_name" validate:"required"`
	ArtistName string `json:"artist_name,omitempty"`
	ArtistURI  string `json:"artist_uri,omitempty"`
	AlbumURI   string `json:"album_uri,omitempty"`
	AlbumName  string `json:"album_name,omitempty"`
}

// Validate checks that the identifying fields are present.
func (t *Track) Validate() error {
	if err := validation.ValidateStruct(t); err != nil {
		return fmt.Errorf("invalid track: %w", err)
	}
	return nil
}
