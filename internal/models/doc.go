// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package models defines the shared data types exchanged between the catalog
// adapter, the user store, the recommendation engine and the HTTP API.
//
// Values are plain structs passed by value. Constructors such as
// NewAudioFeatures and NewRecommendationResult enforce the invariants that
// the rest of the system relies on; code that builds these types by literal
// is expected to call Validate before handing them on.
package models
