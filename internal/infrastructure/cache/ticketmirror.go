package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/domain/ticket"
)

const ticketKeyPrefix = "matchmaking:ticket:"

// TicketMirror keeps a short-lived copy of active tickets and their
// heartbeat marker in Redis. Both keys expire at the heartbeat deadline, so
// a missing heartbeat key means the ticket has lapsed.
type TicketMirror struct {
	client      redis.UniversalClient
	fallbackTTL time.Duration
}

func NewTicketMirror(client redis.UniversalClient, fallbackTTL time.Duration) *TicketMirror {
	if fallbackTTL <= 0 {
		fallbackTTL = 30 * time.Second
	}
	return &TicketMirror{client: client, fallbackTTL: fallbackTTL}
}

func TicketKey(ticketID string) string {
	return ticketKeyPrefix + ticketID
}

func TicketHeartbeatKey(ticketID string) string {
	return ticketKeyPrefix + ticketID + ":heartbeat"
}

// Store writes the ticket snapshot and heartbeat marker. Inactive tickets
// are removed instead.
func (m *TicketMirror) Store(ctx context.Context, t *ticket.Ticket, now time.Time) error {
	if !t.IsActive() {
		return m.Remove(ctx, t.ID())
	}

	ttl := m.fallbackTTL
	if deadline := t.HeartbeatTimeoutAt(); deadline != nil {
		ttl = deadline.Sub(now)
	}
	if ttl <= 0 {
		return m.Remove(ctx, t.ID())
	}

	body, err := json.Marshal(t.State())
	if err != nil {
		return fmt.Errorf("failed to encode ticket: %w", err)
	}
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, TicketKey(t.ID()), body, ttl)
	pipe.Set(ctx, TicketHeartbeatKey(t.ID()), "1", ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mirror ticket %s: %w", t.ID(), err)
	}
	return nil
}

// Get returns nil, nil when the ticket is not mirrored.
func (m *TicketMirror) Get(ctx context.Context, ticketID string) (*ticket.State, error) {
	raw, err := m.client.Get(ctx, TicketKey(ticketID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ticket mirror: %w", err)
	}
	var s ticket.State
	if err := json.Unmarshal(raw, &s); err != nil {
		_ = m.client.Del(ctx, TicketKey(ticketID)).Err()
		return nil, nil
	}
	return &s, nil
}

func (m *TicketMirror) Alive(ctx context.Context, ticketID string) (bool, error) {
	n, err := m.client.Exists(ctx, TicketHeartbeatKey(ticketID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read heartbeat: %w", err)
	}
	return n == 1, nil
}

func (m *TicketMirror) Remove(ctx context.Context, ticketID string) error {
	if err := m.client.Del(ctx, TicketKey(ticketID), TicketHeartbeatKey(ticketID)).Err(); err != nil {
		return fmt.Errorf("failed to remove ticket mirror: %w", err)
	}
	return nil
}
