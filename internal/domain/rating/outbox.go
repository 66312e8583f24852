package rating

import "time"

// OutboxEntry stages an event until the publisher has delivered it.
// (AggregateID, EventType, EventKey) is unique.
type OutboxEntry struct {
	ID          string
	AggregateID string
	EventType   string
	EventKey    string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}
