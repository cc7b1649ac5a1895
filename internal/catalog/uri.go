// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"fmt"
	"strings"

	"github.com/tomtom215/songrec/internal/validation"
)

const (
	trackURIPrefix    = "spotify:track:"
	playlistURIPrefix = "spotify:playlist:"
)

// NormalizeID returns the bare track ID of a track URI or ID.
func NormalizeID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case validation.IsTrackURI(ref):
		return strings.TrimPrefix(ref, trackURIPrefix), nil
	case validation.IsTrackID(ref):
		return ref, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTrackRef, ref)
	}
}

// TrackURI returns the URI form of a track ID.
func TrackURI(id string) string {
	return trackURIPrefix + id
}

// NormalizeURI returns the canonical URI form of a track URI or ID.
func NormalizeURI(ref string) (string, error) {
	id, err := NormalizeID(ref)
	if err != nil {
		return "", err
	}
	return TrackURI(id), nil
}

// NormalizePlaylistID returns the bare playlist ID of a playlist URI or ID.
func NormalizePlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !validation.IsPlaylistRef(ref) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlaylistRef, ref)
	}
	return strings.TrimPrefix(ref, playlistURIPrefix), nil
}
