// Package events defines the envelope shared by every event the core emits
// to the bus.
package events

import (
	"time"

	"github.com/chessforge/gamecore/internal/shared/id"
)

// Envelope schema version stamped on every event.
const CurrentVersion = 1

// DomainEvent represents a domain event interface
type DomainEvent interface {
	// GetEventID returns the unique id of this occurrence
	GetEventID() string

	// GetAggregateID returns the ID of the aggregate that generated the event
	GetAggregateID() string

	// GetEventType returns the type/name of the event
	GetEventType() string

	// GetOccurredAt returns when the event occurred
	GetOccurredAt() time.Time

	// GetVersion returns the event version for schema evolution
	GetVersion() int
}

// Keyed is implemented by events whose partition key differs from the aggregate id.
type Keyed interface {
	PartitionKey() string
}

// BaseEvent provides common fields for all domain events
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	EventType   string    `json:"event_type"`
	AggregateID string    `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Version     int       `json:"version"`
}

// NewBaseEvent stamps a fresh event id and the current envelope version.
func NewBaseEvent(eventType, aggregateID string, occurredAt time.Time) BaseEvent {
	return BaseEvent{
		EventID:     id.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  occurredAt.UTC(),
		Version:     CurrentVersion,
	}
}

func (e BaseEvent) GetEventID() string       { return e.EventID }
func (e BaseEvent) GetAggregateID() string   { return e.AggregateID }
func (e BaseEvent) GetEventType() string     { return e.EventType }
func (e BaseEvent) GetOccurredAt() time.Time { return e.OccurredAt }
func (e BaseEvent) GetVersion() int          { return e.Version }

// PartitionKey returns the bus key for e: its own key when Keyed, else the aggregate id.
func PartitionKey(e DomainEvent) string {
	if k, ok := e.(Keyed); ok {
		return k.PartitionKey()
	}
	return e.GetAggregateID()
}
