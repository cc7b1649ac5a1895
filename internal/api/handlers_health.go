// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// healthCheckTimeout bounds each dependency check.
const healthCheckTimeout = 2 * time.Second

// HealthStatus is the payload of GET /api/v1/health.
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy" or "degraded"
	Components map[string]string `json:"components"`
	Uptime     float64           `json:"uptime_seconds"`
}

// Health reports the status of every registered dependency.
// Any failing component makes the response 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	names := make([]string, 0, len(h.healthChecks))
	for name := range h.healthChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthStatus{
		Status:     "healthy",
		Components: make(map[string]string, len(names)),
		Uptime:     time.Since(h.startTime).Seconds(),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := h.healthChecks[name](ctx)
		cancel()

		if err != nil {
			status.Status = "degraded"
			status.Components[name] = err.Error()
			h.logger.Warn().Err(err).Str("check", name).Msg("health check failed")
			continue
		}
		status.Components[name] = "ok"
	}

	if status.Status != "healthy" {
		rw.write(http.StatusServiceUnavailable, &APIResponse{Success: false, Data: status, Meta: rw.meta()})
		return
	}
	rw.Success(status)
}

// StatsResponse is the payload of GET /api/v1/stats.
type StatsResponse struct {
	Sections map[string]any    `json:"sections"`
	Errors   map[string]string `json:"errors,omitempty"`
	Uptime   float64           `json:"uptime_seconds"`
}

// Stats collects every registered stats section. A failing section is
// reported under errors and does not fail the response.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	names := make([]string, 0, len(h.stats))
	for name := range h.stats {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := StatsResponse{
		Sections: make(map[string]any, len(names)),
		Uptime:   time.Since(h.startTime).Seconds(),
	}
	for _, name := range names {
		section, err := h.stats[name](r.Context())
		if err != nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			resp.Errors[name] = err.Error()
			h.logger.Warn().Err(err).Str("section", name).Msg("stats section failed")
			continue
		}
		resp.Sections[name] = section
	}
	rw.Success(resp)
}
