// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package events

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// LoggerAdapter implements watermill.LoggerAdapter on top of zerolog.
type LoggerAdapter struct {
	logger zerolog.Logger
}

// NewLoggerAdapter wraps a zerolog logger for Watermill components.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewLoggerAdapter(logger zerolog.Logger) *LoggerAdapter {
	return &LoggerAdapter{logger: logger}
}

// Error logs at error level.
func (a *LoggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	event := a.logger.Error().Err(err)
	withFields(event, fields).Msg(msg)
}

// Info logs at info level.
func (a *LoggerAdapter) Info(msg string, fields watermill.LogFields) {
	withFields(a.logger.Info(), fields).Msg(msg)
}

// Debug logs at debug level.
func (a *LoggerAdapter) Debug(msg string, fields watermill.LogFields) {
	withFields(a.logger.Debug(), fields).Msg(msg)
}

// Trace logs at trace level.
func (a *LoggerAdapter) Trace(msg string, fields watermill.LogFields) {
	withFields(a.logger.Trace(), fields).Msg(msg)
}

// With returns an adapter that adds fields to every entry.
func (a *LoggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &LoggerAdapter{logger: a.logger.With().Fields(map[string]interface{}(fields)).Logger()}
}

func withFields(event *zerolog.Event, fields watermill.LogFields) *zerolog.Event {
	if len(fields) == 0 {
		return event
	}
	return event.Fields(map[string]interface{}(fields))
}

var _ watermill.LoggerAdapter = (*LoggerAdapter)(nil)
