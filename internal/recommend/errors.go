// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package recommend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies recommendation failures.
type ErrorKind int

const (
	// KindUnknown is returned by KindOf for errors not produced by this package.
	KindUnknown ErrorKind = iota
	// KindConfiguration means a required model or setting is missing or malformed.
	KindConfiguration
	// KindUpstreamFetch means the catalog or user store failed.
	KindUpstreamFetch
	// KindValidation means the request itself was unacceptable.
	KindValidation
	// KindGeneration wraps any other failure inside the pipeline.
	KindGeneration
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindUpstreamFetch:
		return "upstream_fetch"
	case KindValidation:
		return "validation"
	case KindGeneration:
		return "generation"
	default:
		return "unknown"
	}
}

// Sentinel errors.
var (
	ErrNoNewTracks                = errors.New("no new tracks available")
	ErrInvalidRecommendationCount = errors.New("invalid recommendation count")
	ErrUnknownAlgorithm           = errors.New("unknown algorithm")
	ErrModelUnavailable           = errors.New("cluster model unavailable")
	ErrTrackNotFound              = errors.New("track not found")
	ErrScorerNotAvailable         = errors.New("scorer not registered")
)

// Error is a classified recommendation error.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ValidationError wraps err as a KindValidation error.
func ValidationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// UpstreamError wraps err as a KindUpstreamFetch error.
func UpstreamError(op string, err error) error {
	return &Error{Kind: KindUpstreamFetch, Op: op, Err: err}
}

// ConfigurationError wraps err as a KindConfiguration error.
func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

// generationError wraps err as a KindGeneration error unless it is already classified.
func generationError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindGeneration, Op: op, Err: fmt.Errorf("recommendation generation failed: %w", err)}
}
