// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// QuotaConsumer is the part of *events.QuotaConsumer the service drives.
type QuotaConsumer interface {
	Run(ctx context.Context) error
}

// QuotaConsumerService supervises the quota consumer. A consumer that stops
// while the context is live is reported as a failure so it is resubscribed.
type QuotaConsumerService struct {
	consumer QuotaConsumer
	logger   zerolog.Logger
	name     string
}

// NewQuotaConsumerService wraps consumer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewQuotaConsumerService(consumer QuotaConsumer, logger zerolog.Logger) *QuotaConsumerService {
	return &QuotaConsumerService{
		consumer: consumer,
		logger:   logger.With().Str("service", "quota-consumer").Logger(),
		name:     "quota-consumer-service",
	}
}

// Serve implements suture.Service.
func (s *QuotaConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("quota consumer exited")
	}
	s.logger.Error().Err(err).Msg("quota consumer stopped unexpectedly")
	return err
}

// String returns the service name for logging.
func (s *QuotaConsumerService) String() string {
	return s.name
}
