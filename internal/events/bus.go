// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/config"
)

// TopicRecommendationsGenerated receives one message per successful
// recommendation request.
const TopicRecommendationsGenerated = "recommendations.generated"

// RecommendationsGenerated is the JSON payload of a completion message.
type RecommendationsGenerated struct {
	RequestID        string    `json:"request_id"`
	Username         string    `json:"username"`
	Algorithm        string    `json:"algorithm"`
	Count            int       `json:"count"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewBus creates the in-process pub/sub shared by the publisher and the
// quota consumer. Publish blocks until every subscriber has acked.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewBus(cfg config.EventsConfig, logger zerolog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            cfg.BufferSize,
			BlockPublishUntilSubscriberAck: true,
		},
		NewLoggerAdapter(logger.With().Str("component", "event-bus").Logger()),
	)
}
