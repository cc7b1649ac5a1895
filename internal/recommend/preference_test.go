// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/models"
)

func newTestAggregator(catalog *mockCatalog, logger zerolog.Logger) *PreferenceAggregator {
	p := NewFeatureProvider(catalog, NewFeatureCache(), 4, logger)
	return NewPreferenceAggregator(p, DefaultConfig().Preference, logger)
}

func TestPreferenceAggregator_EmptyUser(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	a := newTestAggregator(catalog, zerolog.Nop())

	v, err := a.Build(context.Background(), &models.User{Username: "empty"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !v.IsZero() {
		t.Errorf("expected zero vector, got %v", v)
	}
	if catalog.featureCalls.Load() != 0 {
		t.Error("expected no catalog calls for empty user")
	}
}

func TestPreferenceAggregator_HatedExcluded(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	catalog.add("h", features(1, 1))
	a := newTestAggregator(catalog, zerolog.Nop())

	v, err := a.Build(context.Background(), &models.User{HateIt: []string{"h"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !v.IsZero() {
		t.Errorf("hated tracks must not contribute, got %v", v)
	}
}

func TestPreferenceAggregator_WeightedMean(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	catalog.add("loved", features(1.0, 0))
	catalog.add("okay", features(0.0, 0))
	a := newTestAggregator(catalog, zerolog.Nop())

	v, err := a.Build(context.Background(), &models.User{
		LovedIt: []string{"loved"},
		Okay:    []string{"okay"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := 1.0 / 1.4
	if math.Abs(v[IdxDanceability]-want) > 1e-12 {
		t.Errorf("danceability = %f, want %f", v[IdxDanceability], want)
	}
	if v[IdxDanceability] <= 0.5 {
		t.Error("loved track should dominate okay track")
	}
	if math.Abs(v[IdxTimeSignature]-1) > 1e-12 {
		t.Errorf("shared component = %f, want 1", v[IdxTimeSignature])
	}
}

func TestPreferenceAggregator_HighestPriorityWeightWins(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	catalog.add("x", features(1.0, 0))
	catalog.add("y", features(0.0, 0))
	a := newTestAggregator(catalog, zerolog.Nop())

	// x is both loved (1.0) and searched (0.3); both listings weigh 1.0.
	v, err := a.Build(context.Background(), &models.User{
		LovedIt:          []string{"x"},
		LikeIt:           []string{"y"},
		RecentlySearched: []string{"x"},
	})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := 2.0 / 2.7
	if math.Abs(v[IdxDanceability]-want) > 1e-12 {
		t.Errorf("danceability = %f, want %f", v[IdxDanceability], want)
	}
}

func TestPreferenceAggregator_RepeatedTrackCountsPerListing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		user *models.User
		want float64
	}{
		{
			name: "loved and okay",
			user: &models.User{LovedIt: []string{"a"}, LikeIt: []string{"b"}, Okay: []string{"a"}},
			want: 2.0 / 2.7,
		},
		{
			name: "liked and searched",
			user: &models.User{LikeIt: []string{"a"}, Okay: []string{"b"}, RecentlySearched: []string{"a"}},
			want: 1.4 / 1.8,
		},
		{
			name: "twice in one list",
			user: &models.User{Okay: []string{"a", "b", "a"}},
			want: 0.8 / 1.2,
		},
		{
			name: "disjoint lists",
			user: &models.User{LovedIt: []string{"a"}, LikeIt: []string{"b"}},
			want: 1.0 / 1.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			catalog := newMockCatalog()
			catalog.add("a", features(1.0, 0))
			catalog.add("b", features(0.0, 0))
			a := newTestAggregator(catalog, zerolog.Nop())

			v, err := a.Build(context.Background(), tt.user)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if math.Abs(v[IdxDanceability]-tt.want) > 1e-12 {
				t.Errorf("danceability = %f, want %f", v[IdxDanceability], tt.want)
			}
			if calls := catalog.callsFor("a"); calls != 1 {
				t.Errorf("track a fetched %d times, want 1", calls)
			}
		})
	}
}

func TestPreferenceAggregator_FailedFetchesDropped(t *testing.T) {
	t.Parallel()

	catalog := newMockCatalog()
	catalog.add("ok", features(0.8, 0.2))
	catalog.failFeatures["bad"] = true
	a := newTestAggregator(catalog, zerolog.Nop())

	v, err := a.Build(context.Background(), &models.User{LovedIt: []string{"bad", "ok"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if v != Extract(features(0.8, 0.2)) {
		t.Errorf("expected mean over surviving track only, got %v", v)
	}
}

func TestPreferenceAggregator_AllFetchesFail(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	catalog := newMockCatalog()
	catalog.failFeatures["a"] = true
	catalog.failFeatures["b"] = true
	a := newTestAggregator(catalog, zerolog.New(&buf))

	v, err := a.Build(context.Background(), &models.User{Username: "u", LikeIt: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !v.IsZero() {
		t.Errorf("expected zero vector, got %v", v)
	}
	if !strings.Contains(buf.String(), "no preference vectors could be fetched") {
		t.Errorf("expected warning, got: %s", buf.String())
	}
}
