// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/catalog"
	"github.com/tomtom215/songrec/internal/recommend"
)

// parseCandidates splits a comma or whitespace separated list of track
// references into canonical URIs.
func parseCandidates(list string) ([]string, error) {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, errors.New("-candidates is required")
	}
	uris := make([]string, 0, len(fields))
	for _, f := range fields {
		uri, err := catalog.NormalizeURI(f)
		if err != nil {
			return nil, err
		}
		uris = append(uris, uri)
	}
	return uris, nil
}

// readTrackList reads one track reference per line. Blank lines and lines
// starting with # are ignored; duplicates are dropped.
func readTrackList(r io.Reader) ([]string, error) {
	var uris []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		uri, err := catalog.NormalizeURI(text)
		if err != nil {
			return nil, fmt.Errorf("track list line %d: %w", line, err)
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		uris = append(uris, uri)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read track list: %w", err)
	}
	if len(uris) == 0 {
		return nil, errors.New("track list is empty")
	}
	return uris, nil
}

// playlistURIs returns the track URIs of a playlist in playlist order.
func playlistURIs(ctx context.Context, cat catalog.Catalog, playlist string) ([]string, error) {
	tracks, err := cat.FetchPlaylistTracks(ctx, playlist, catalog.MaxPlaylistTracks)
	if err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}
	return uris, nil
}

// mergeURIs appends the URIs of more not already in base.
func mergeURIs(base, more []string) []string {
	seen := make(map[string]struct{}, len(base)+len(more))
	out := make([]string, 0, len(base)+len(more))
	for _, list := range [][]string{base, more} {
		for _, uri := range list {
			if _, dup := seen[uri]; dup {
				continue
			}
			seen[uri] = struct{}{}
			out = append(out, uri)
		}
	}
	return out
}

// featureVectors extracts vectors from successful batch results and counts
// the failures.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func featureVectors(results []catalog.FeaturesResult, logger zerolog.Logger) ([]recommend.FeatureVector, int) {
	vectors := make([]recommend.FeatureVector, 0, len(results))
	skipped := 0
	for _, r := range results {
		if r.Err != nil {
			skipped++
			logger.Debug().Err(r.Err).Str("track_uri", r.URI).Msg("Skipping track without features")
			continue
		}
		vectors = append(vectors, recommend.Extract(r.Features))
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Int("total", len(results)).Msg("Some tracks had no audio features")
	}
	return vectors, skipped
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
