// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type searchRequest struct {
	Query  string `validate:"required,min=1,max=100"`
	Limit  int    `validate:"min=1,max=50"`
	Market string `validate:"omitempty,market"`
}

type recommendRequest struct {
	Username   string   `validate:"username"`
	Candidates []string `validate:"required,min=1,dive,track_ref"`
	Seed       string   `validate:"omitempty,track_uri"`
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input interface{}
	}{
		{"search minimal", &searchRequest{Query: "a", Limit: 1}},
		{"search with market", &searchRequest{Query: "daft punk", Limit: 50, Market: "US"}},
		{"recommend uri and id", &recommendRequest{
			Username:   "alice_01",
			Candidates: []string{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC"},
			Seed:       "spotify:track:0000000000000000",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := ValidateStruct(tt.input); err != nil {
				t.Errorf("ValidateStruct() returned unexpected error: %v", err)
			}
		})
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     interface{}
		wantField string
		wantTag   string
	}{
		{"empty query", &searchRequest{Limit: 10}, "Query", "required"},
		{"limit too high", &searchRequest{Query: "x", Limit: 51}, "Limit", "max"},
		{"lowercase market", &searchRequest{Query: "x", Limit: 1, Market: "us"}, "Market", "market"},
		{"short username", &recommendRequest{Username: "ab", Candidates: []string{"4uLU6hMCjMI75M1A2tKUQC"}}, "Username", "username"},
		{"bad candidate", &recommendRequest{Username: "alice", Candidates: []string{"spotify:album:4uLU6hMCjMI75M1A2tKUQC"}}, "Candidates[0]", "track_ref"},
		{"no candidates", &recommendRequest{Username: "alice"}, "Candidates", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			errs := err.Errors()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), err)
			}
			if errs[0].Field() != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field(), tt.wantField)
			}
			if errs[0].Tag() != tt.wantTag {
				t.Errorf("tag = %q, want %q", errs[0].Tag(), tt.wantTag)
			}
		})
	}
}

func TestToAPIError_MultipleErrors(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&searchRequest{Limit: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "Query") || !strings.Contains(apiErr.Message, "Limit must be at least 1") {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields detail")
	}
}

func TestPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"uri ok", IsTrackURI, "spotify:track:4uLU6hMCjMI75M1A2tKUQC", true},
		{"uri too short", IsTrackURI, "spotify:track:abc", false},
		{"uri wrong type", IsTrackURI, "spotify:artist:4uLU6hMCjMI75M1A2tKUQC", false},
		{"id ok", IsTrackID, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"id symbols", IsTrackID, "4uLU6hMCjMI75M1A2-KUQC", false},
		{"username ok", IsUsername, "dj_khaled", true},
		{"username space", IsUsername, "dj khaled", false},
		{"username long", IsUsername, strings.Repeat("a", 31), false},
		{"market ok", IsMarket, "SE", true},
		{"market lowercase", IsMarket, "se", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("got %v, want %v for %q", got, tt.want, tt.in)
			}
		})
	}
}

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	if got := SanitizeString(`  <b>"daft" 'punk'</b> `); got != "bdaft punk/b" {
		t.Errorf("SanitizeString() = %q", got)
	}
}
