// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/recommend"
)

// ErrNilPublisher is returned when NewPublisher receives no message publisher.
var ErrNilPublisher = errors.New("events: nil message publisher")

// Publisher emits completion events. It implements recommend.CompletionNotifier.
type Publisher struct {
	publisher message.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPublisher creates a completion publisher on top of a Watermill publisher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewPublisher(pub message.Publisher, logger zerolog.Logger) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	return &Publisher{
		publisher: pub,
		now:       time.Now,
		logger:    logger.With().Str("component", "event-publisher").Logger(),
	}, nil
}

// RecommendationsGenerated publishes one message for a completed request.
func (p *Publisher) RecommendationsGenerated(ctx context.Context, c recommend.Completion) error {
	payload, err := json.Marshal(RecommendationsGenerated{
		RequestID:        c.RequestID,
		Username:         c.Username,
		Algorithm:        c.Algorithm.String(),
		Count:            c.Count,
		ProcessingTimeMs: float64(c.ProcessingTime.Microseconds()) / 1000,
		OccurredAt:       p.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("request_id", c.RequestID)
	msg.Metadata.Set("username", c.Username)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(TopicRecommendationsGenerated, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicRecommendationsGenerated, err)
	}

	metrics.EventsPublished.WithLabelValues(TopicRecommendationsGenerated).Inc()
	p.logger.Debug().
		Str("message_id", msg.UUID).
		Str("request_id", c.RequestID).
		Str("username", c.Username).
		Msg("completion event published")
	return nil
}

var _ recommend.CompletionNotifier = (*Publisher)(nil)
