// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/songrec/internal/cache"
	"github.com/tomtom215/songrec/internal/config"
	"github.com/tomtom215/songrec/internal/metrics"
	"github.com/tomtom215/songrec/internal/userstore"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 50 * time.Millisecond
	dedupTTL           = time.Hour
)

var (
	// ErrNilSubscriber is returned when NewQuotaConsumer receives no subscriber.
	ErrNilSubscriber = errors.New("events: nil message subscriber")

	// ErrNilStore is returned when NewQuotaConsumer receives no quota store.
	ErrNilStore = errors.New("events: nil quota store")

	// ErrSubscriptionClosed is returned by Run when the bus closes the
	// subscription while the consumer is still running.
	ErrSubscriptionClosed = errors.New("events: subscription closed")
)

// QuotaStore decrements a user's remaining recommendation count.
// It is implemented by *userstore.Store.
type QuotaStore interface {
	DecrementCount(ctx context.Context, username string) (bool, error)
}

// QuotaConsumer decrements the user's quota once per completion message.
type QuotaConsumer struct {
	subscriber message.Subscriber
	store      QuotaStore
	logger     zerolog.Logger

	seen     *cache.LRU[struct{}]
	attempts *cache.LRU[int]

	maxAttempts int
	retryDelay  time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

// NewQuotaConsumer creates a consumer reading TopicRecommendationsGenerated.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewQuotaConsumer(sub message.Subscriber, store QuotaStore, cfg config.EventsConfig, logger zerolog.Logger) (*QuotaConsumer, error) {
	if sub == nil {
		return nil, ErrNilSubscriber
	}
	if store == nil {
		return nil, ErrNilStore
	}
	return &QuotaConsumer{
		subscriber:  sub,
		store:       store,
		logger:      logger.With().Str("component", "quota-consumer").Logger(),
		seen:        cache.NewLRU[struct{}](cfg.DedupCapacity, dedupTTL),
		attempts:    cache.NewLRU[int](cfg.DedupCapacity, dedupTTL),
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		ready:       make(chan struct{}),
	}, nil
}

// Ready is closed once the consumer has subscribed. Messages published
// before that are not delivered to it.
func (c *QuotaConsumer) Ready() <-chan struct{} {
	return c.ready
}

// Run subscribes and handles messages until ctx is cancelled.
func (c *QuotaConsumer) Run(ctx context.Context) error {
	msgs, err := c.subscriber.Subscribe(ctx, TopicRecommendationsGenerated)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicRecommendationsGenerated, err)
	}
	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Info().Str("topic", TopicRecommendationsGenerated).Msg("quota consumer started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("quota consumer stopped")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			c.handle(ctx, msg)
		}
	}
}

// handle processes one message and always either acks or nacks it.
func (c *QuotaConsumer) handle(ctx context.Context, msg *message.Message) {
	logger := c.logger.With().Str("message_id", msg.UUID).Logger()

	var event RecommendationsGenerated
	if err := json.Unmarshal(msg.Payload, &event); err != nil || event.Username == "" {
		if err == nil {
			err = errors.New("missing username")
		}
		logger.Error().Err(err).Msg("dropping malformed completion event")
		c.ack(msg, "rejected")
		return
	}
	logger = logger.With().Str("username", event.Username).Str("request_id", event.RequestID).Logger()

	if c.seen.Seen(msg.UUID, struct{}{}) {
		logger.Debug().Msg("duplicate completion event ignored")
		metrics.QuotaDecrements.WithLabelValues("duplicate").Inc()
		c.ack(msg, "ack")
		return
	}

	decremented, err := c.store.DecrementCount(ctx, event.Username)
	switch {
	case err == nil && decremented:
		c.attempts.Remove(msg.UUID)
		metrics.QuotaDecrements.WithLabelValues("decremented").Inc()
		logger.Debug().Msg("quota decremented")
		c.ack(msg, "ack")

	case err == nil:
		c.attempts.Remove(msg.UUID)
		metrics.QuotaDecrements.WithLabelValues("exhausted").Inc()
		logger.Warn().Msg("quota already exhausted")
		c.ack(msg, "ack")

	case errors.Is(err, userstore.ErrUserNotFound), ctx.Err() != nil:
		metrics.QuotaDecrements.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("quota decrement abandoned")
		c.ack(msg, "ack")

	default:
		c.retryOrGiveUp(ctx, msg, err, logger)
	}
}

// retryOrGiveUp nacks for redelivery until maxAttempts is reached.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func (c *QuotaConsumer) retryOrGiveUp(ctx context.Context, msg *message.Message, err error, logger zerolog.Logger) {
	attempt, _ := c.attempts.Get(msg.UUID)
	attempt++

	if attempt >= c.maxAttempts {
		c.attempts.Remove(msg.UUID)
		metrics.QuotaDecrements.WithLabelValues("error").Inc()
		logger.Error().Err(err).Int("attempts", attempt).Msg("quota decrement failed, giving up")
		c.ack(msg, "ack")
		return
	}

	c.attempts.Add(msg.UUID, attempt)
	c.seen.Remove(msg.UUID)
	logger.Warn().Err(err).Int("attempt", attempt).Msg("quota decrement failed, requesting redelivery")

	select {
	case <-ctx.Done():
	case <-time.After(c.retryDelay * time.Duration(attempt)):
	}
	msg.Nack()
	metrics.EventsProcessed.WithLabelValues(TopicRecommendationsGenerated, "nack").Inc()
}

func (c *QuotaConsumer) ack(msg *message.Message, result string) {
	msg.Ack()
	metrics.EventsProcessed.WithLabelValues(TopicRecommendationsGenerated, result).Inc()
}
