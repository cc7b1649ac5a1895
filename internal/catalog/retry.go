// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify"
)

// statusOf extracts the HTTP status of a catalog API error, or 0 when the
// error did not come with one (network failures, undecodable bodies).
func statusOf(err error) int {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil {
		return sp.Status
	}
	return 0
}

// isNotFound reports whether err means the track does not exist.
// The catalog answers 400 for malformed ids and 404 for unknown ones.
func isNotFound(err error) bool {
	if errors.Is(err, ErrTrackNotFound) {
		return true
	}
	status := statusOf(err)
	return status == http.StatusNotFound || status == http.StatusBadRequest
}

// isClientError reports whether err is a 4xx answer other than 429.
func isClientError(err error) bool {
	if errors.Is(err, ErrTrackNotFound) || errors.Is(err, ErrInvalidTrackRef) {
		return true
	}
	status := statusOf(err)
	return status >= 400 && status < 500 && status != http.StatusTooManyRequests
}

// shouldRetry reports whether a failed attempt may succeed when repeated:
// rate limiting, server errors and transport failures.
func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrUnavailable) || isClientError(err) {
		return false
	}
	status := statusOf(err)
	return status == 0 || status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// backoffFor returns the delay before retry number attempt (0-based).
func backoffFor(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(1<<attempt)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("catalog request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// callWithContext runs fn and returns early when ctx is done. The API client
// does not take a context, so an abandoned call finishes in the background
// and is bounded by the HTTP client timeout.
func callWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.v, o.err
	}
}
