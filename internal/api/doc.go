// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package api exposes the recommendation engine over HTTP using the chi router.

Routes:

	GET    /api/v1/health                           component health
	GET    /api/v1/stats                            engine, cache and cluster model counters
	GET    /metrics                                 Prometheus scrape endpoint
	GET    /api/v1/search?q=&limit=                 catalog track search
	GET    /api/v1/tracks/{id}?user=                track metadata, optionally recorded for user
	GET    /api/v1/tracks/{id}/features             audio features
	GET    /api/v1/playlists/{id}/tracks?limit=     playlist tracks, local files skipped
	POST   /api/v1/users                            create a user
	GET    /api/v1/users/{username}                 user profile and remaining quota
	PATCH  /api/v1/users/{username}/preferences     replace preference lists
	POST   /api/v1/users/{username}/recommendations generate recommendations
	DELETE /api/v1/cache/features                   clear feature caches

Track ids in the path may be bare catalog ids or full spotify:track: URIs.
Playlist ids likewise accept spotify:playlist: URIs.

Responses:

Every JSON response uses the same envelope:

	{"success": true,  "data": {...}, "meta": {"request_id": "...", "timestamp": "...", "duration_ms": 3}}
	{"success": false, "error": {"code": "QUOTA_EXHAUSTED", "message": "..."}, "meta": {...}}

Recommendation errors map to status codes by kind: validation 400 (422
when every candidate is already known to the user), upstream fetch 502,
configuration 503 and generation 500. A user with no remaining quota gets
429 QUOTA_EXHAUSTED before the engine runs.

Middleware:

Request IDs, panic recovery, CORS (go-chi/cors), per-IP rate limiting
(go-chi/httprate), Prometheus instrumentation and access logging apply to all
routes.
*/
package api
