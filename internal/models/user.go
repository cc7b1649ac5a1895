// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package models

import "time"

// DefaultRecommendationQuota is the number of recommendation requests granted to a new user.
const DefaultRecommendationQuota = 10

// User holds a listener's preference lists and remaining recommendation quota.
// Every list contains track URIs.
type User struct {
	Username         string    `json:"username" validate:"username"`
	Email            string    `json:"email,omitempty" validate:"omitempty,email"`
	Count            int       `json:"count" validate:"gte=0"` // Remaining recommendation quota
	LovedIt          []string  `json:"loved_it"`
	LikeIt           []string  `json:"like_it"`
	Okay             []string  `json:"okay"`
	HateIt           []string  `json:"hate_it"`
	RecentlySearched []string  `json:"recently_searched"`
	CreatedAt        time.Time `json:"created_at"`
	LastLogin        time.Time `json:"last_login"`
}

// KnownTracks returns the set of every track the user has rated or searched,
// including hated tracks.
func (u *User) KnownTracks() map[string]struct{} {
	known := make(map[string]struct{},
		len(u.LovedIt)+len(u.LikeIt)+len(u.Okay)+len(u.HateIt)+len(u.RecentlySearched))
	for _, list := range [][]string{u.LovedIt, u.LikeIt, u.Okay, u.HateIt, u.RecentlySearched} {
		for _, uri := range list {
			known[uri] = struct{}{}
		}
	}
	return known
}

// LastSearched returns the most recent entry of RecentlySearched.
func (u *User) LastSearched() (string, bool) {
	if len(u.RecentlySearched) == 0 {
		return "", false
	}
	return u.RecentlySearched[len(u.RecentlySearched)-1], true
}

// PreferenceUpdate carries a partial replacement of a user's preference lists.
// Nil lists are left untouched.
type PreferenceUpdate struct {
	LovedIt          []string `json:"loved_it,omitempty" validate:"omitempty,dive,track_uri"`
	LikeIt           []string `json:"like_it,omitempty" validate:"omitempty,dive,track_uri"`
	Okay             []string `json:"okay,omitempty" validate:"omitempty,dive,track_uri"`
	HateIt           []string `json:"hate_it,omitempty" validate:"omitempty,dive,track_uri"`
	RecentlySearched []string `json:"recently_searched,omitempty" validate:"omitempty,dive,track_uri"`
}
