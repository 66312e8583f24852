// Package messaging carries domain events to Kafka (or AMQP) and reads them back.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chessforge/gamecore/internal/domain/shared/events"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// Topic names.
const (
	TopicGameEvents    = "game.events"
	TopicMatches       = "matchmaking.matches"
	TopicRatingUpdated = "rating.updated"
)

// Publisher delivers one encoded message. Implementations must preserve the
// order of messages sharing a key.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// EventPublisher is what application code depends on.
type EventPublisher interface {
	PublishEvents(ctx context.Context, topic string, evs ...events.DomainEvent)
}

// EventBus encodes domain events and hands them to a Publisher. Delivery
// failures are logged and swallowed; the originating transaction has
// already committed.
type EventBus struct {
	publisher Publisher
	logger    logger.Interface
}

func NewEventBus(publisher Publisher, log logger.Interface) *EventBus {
	return &EventBus{publisher: publisher, logger: log}
}

func (b *EventBus) PublishEvents(ctx context.Context, topic string, evs ...events.DomainEvent) {
	for _, e := range evs {
		if err := b.publish(ctx, topic, e); err != nil {
			b.logger.Errorw("failed to publish event",
				"topic", topic,
				"event_type", e.GetEventType(),
				"aggregate_id", e.GetAggregateID(),
				"error", err,
			)
		}
	}
}

func (b *EventBus) publish(ctx context.Context, topic string, e events.DomainEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", e.GetEventType(), err)
	}
	return b.publisher.Publish(ctx, topic, events.PartitionKey(e), payload)
}

// NopPublisher drops everything. It backs KAFKA_ENABLED=false.
type NopPublisher struct {
	logger logger.Interface
}

func NewNopPublisher(log logger.Interface) *NopPublisher {
	return &NopPublisher{logger: log}
}

func (p *NopPublisher) Publish(ctx context.Context, topic, key string, payload []byte) error {
	p.logger.Debugw("event bus disabled, dropping message", "topic", topic, "key", key)
	return nil
}

func (p *NopPublisher) Close() error { return nil }

// TopicRenamer publishes the canonical topics above under the names a
// deployment configures. Unmapped or empty names pass through.
type TopicRenamer struct {
	next  Publisher
	names map[string]string
}

func NewTopicRenamer(next Publisher, names map[string]string) *TopicRenamer {
	return &TopicRenamer{next: next, names: names}
}

func (r *TopicRenamer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if name := r.names[topic]; name != "" {
		topic = name
	}
	return r.next.Publish(ctx, topic, key, payload)
}

func (r *TopicRenamer) Close() error { return r.next.Close() }
