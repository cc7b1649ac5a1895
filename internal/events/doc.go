// Songrec - Audio Feature Music Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/songrec

/*
Package events carries recommendation completion events over an in-process
Watermill pub/sub.

The recommendation engine never touches user quotas. Instead a Publisher,
installed as the engine's recommend.CompletionNotifier, emits one message on
TopicRecommendationsGenerated per successful request, and a QuotaConsumer
decrements the user's remaining count once per message.

Flow:

	Engine.GenerateRecommendations
	    -> Publisher.RecommendationsGenerated
	    -> gochannel "recommendations.generated"
	    -> QuotaConsumer.handle -> userstore.Store.DecrementCount

Delivery:

The bus is created with BlockPublishUntilSubscriberAck, so Publish returns
after the consumer has handled the message. Redelivered messages are
recognised by their UUID and acknowledged without a second decrement. The set
of seen ids is a bounded LRU (cache.LRU) sized by events.dedup_capacity.

Logging:

Watermill components log through NewLoggerAdapter, which forwards to zerolog.
*/
package events
