// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

// Package userstore persists listeners, their preference lists and their
// remaining recommendation quota in DuckDB.
//
// Preference lists are stored as JSON text columns. Writes are serialised
// by the store so quota decrements never race.
package userstore
