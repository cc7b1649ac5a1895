// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package catalog provides access to the Spotify track catalog.

It implements recommend.Catalog plus batch feature lookup and search, layered
as decorators:

	SpotifyClient      Web API client (client-credentials OAuth)
	  rate.Limiter       client-side request pacing
	  gobreaker          circuit breaker around every call
	  retry              exponential backoff on 429 and 5xx
	CachedCatalog      BadgerDB-backed persistent cache with TTL
	FallbackCatalog    deterministic synthetic features when the
	                   audio-features endpoint is unavailable

Track references are accepted either as URIs (spotify:track:<id>) or bare
IDs. Use NormalizeID and TrackURI to convert between the two.

Missing tracks are reported with ErrTrackNotFound, which is the same sentinel
the recommendation engine checks with errors.Is.

Example:

	client, err := catalog.NewSpotifyClient(ctx, &cfg.Catalog, logger)
	if err != nil {
	    return err
	}
	db, err := catalog.OpenCache(cfg.Catalog.CachePath)
	if err != nil {
	    return err
	}
	cat := catalog.NewCachedCatalog(client, db, cfg.Catalog.CacheTTL, logger)
	features, err := cat.FetchAudioFeatures(ctx, "spotify:track:4uLU6hMCjMI75M1A2tKUQC")
*/
package catalog
