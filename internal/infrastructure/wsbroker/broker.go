// Package wsbroker tracks websocket subscribers per game and fans frames out
// to them, locally and across instances.
package wsbroker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/infrastructure/pubsub"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/id"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	connKeyPrefix = "ws:conn:"
	registryTTL   = time.Hour
	sendBuffer    = 64
)

// Server to client frame types.
const (
	MsgConnected  = "connected"
	MsgPing       = "ping"
	MsgMovePlayed = "move_played"
	MsgGameEnded  = "game_ended"
	MsgGameState  = "game_state"
	MsgSubscribed = "subscribed"
	MsgError      = "error"
)

// Client to server frame types.
const (
	MsgPong        = "pong"
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
)

// Message is the JSON frame exchanged with websocket clients.
type Message struct {
	Type      string `json:"type"`
	GameID    string `json:"game_id,omitempty"`
	Move      any    `json:"move,omitempty"`
	Result    string `json:"result,omitempty"`
	EndReason string `json:"end_reason,omitempty"`
	FEN       string `json:"fen,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Record mirrors a connection into Redis so other instances can see it.
type Record struct {
	ConnectionID string    `json:"connection_id"`
	GameID       string    `json:"game_id"`
	PlayerID     string    `json:"player_id,omitempty"`
	InstanceID   string    `json:"instance_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// Conn is one registered websocket. The transport drains Send.
type Conn struct {
	ID          string
	PlayerID    string
	Send        chan []byte
	ConnectedAt time.Time

	mu     sync.Mutex
	games  map[string]struct{}
	closed bool
}

// Games returns the games this connection currently follows.
func (c *Conn) Games() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.games))
	for g := range c.games {
		out = append(out, g)
	}
	return out
}

// TrySend queues frame unless the connection is closed or its buffer is full.
func (c *Conn) TrySend(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Broadcaster is what the game use cases see of the broker.
type Broadcaster interface {
	Broadcast(ctx context.Context, gameID string, msg *Message) error
}

// Broker keeps game_id -> connections in memory and reflects it in Redis
// under ws:conn:{id} and ws:game:{id}:subscribers.
type Broker struct {
	conns   map[string]*Conn
	games   map[string]map[string]*Conn
	connsMu sync.RWMutex

	client     redis.UniversalClient
	bus        pubsub.GamePublisher
	instanceID string
	logger     logger.Interface
}

// NewBroker creates a broker. client and bus may be nil, in which case the
// broker only serves connections held by this process.
func NewBroker(client redis.UniversalClient, bus pubsub.GamePublisher, instanceID string, log logger.Interface) *Broker {
	return &Broker{
		conns:      make(map[string]*Conn),
		games:      make(map[string]map[string]*Conn),
		client:     client,
		bus:        bus,
		instanceID: instanceID,
		logger:     log,
	}
}

func ConnKey(connID string) string {
	return connKeyPrefix + connID
}

func SubscribersKey(gameID string) string {
	return fmt.Sprintf("ws:game:%s:subscribers", gameID)
}

// Register tracks a new connection following gameID.
func (b *Broker) Register(ctx context.Context, gameID, playerID string) *Conn {
	conn := &Conn{
		ID:          id.New(),
		PlayerID:    playerID,
		Send:        make(chan []byte, sendBuffer),
		ConnectedAt: biztime.NowUTC(),
		games:       make(map[string]struct{}),
	}

	b.connsMu.Lock()
	b.conns[conn.ID] = conn
	b.connsMu.Unlock()

	b.Subscribe(ctx, conn, gameID)

	b.logger.Infow("websocket connection registered",
		"connection_id", conn.ID,
		"game_id", gameID,
		"player_id", playerID,
	)
	return conn
}

// Subscribe adds the connection to gameID's subscriber set.
func (b *Broker) Subscribe(ctx context.Context, conn *Conn, gameID string) {
	if gameID == "" {
		return
	}
	b.connsMu.Lock()
	set, ok := b.games[gameID]
	if !ok {
		set = make(map[string]*Conn)
		b.games[gameID] = set
	}
	set[conn.ID] = conn
	b.connsMu.Unlock()

	conn.mu.Lock()
	conn.games[gameID] = struct{}{}
	conn.mu.Unlock()

	b.mirror(ctx, conn, gameID)
}

// Unsubscribe removes the connection from gameID's subscriber set.
func (b *Broker) Unsubscribe(ctx context.Context, conn *Conn, gameID string) {
	b.connsMu.Lock()
	if set, ok := b.games[gameID]; ok {
		delete(set, conn.ID)
		if len(set) == 0 {
			delete(b.games, gameID)
		}
	}
	b.connsMu.Unlock()

	conn.mu.Lock()
	delete(conn.games, gameID)
	conn.mu.Unlock()

	if b.client != nil {
		if err := b.client.SRem(ctx, SubscribersKey(gameID), conn.ID).Err(); err != nil {
			b.logger.Warnw("failed to remove websocket subscriber", "game_id", gameID, "error", err)
		}
	}
}

// Unregister drops the connection from every game and closes its Send channel.
func (b *Broker) Unregister(ctx context.Context, conn *Conn) {
	b.connsMu.Lock()
	if _, ok := b.conns[conn.ID]; !ok {
		b.connsMu.Unlock()
		return
	}
	delete(b.conns, conn.ID)
	b.connsMu.Unlock()

	for _, gameID := range conn.Games() {
		b.Unsubscribe(ctx, conn, gameID)
	}
	conn.close()

	if b.client != nil {
		if err := b.client.Del(ctx, ConnKey(conn.ID)).Err(); err != nil {
			b.logger.Warnw("failed to delete websocket connection record", "connection_id", conn.ID, "error", err)
		}
	}

	b.logger.Infow("websocket connection unregistered", "connection_id", conn.ID)
}

// Broadcast sends msg to every subscriber of gameID on every instance. When
// the pub/sub relay is unavailable only local subscribers receive it.
func (b *Broker) Broadcast(ctx context.Context, gameID string, msg *Message) error {
	if msg.GameID == "" {
		msg.GameID = gameID
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = biztime.NowUTC().UnixMilli()
	}
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode websocket frame: %w", err)
	}

	if b.bus != nil {
		if err := b.bus.Publish(ctx, gameID, frame); err == nil {
			return nil
		}
		b.logger.Warnw("pub/sub relay failed, delivering locally only", "game_id", gameID)
	}
	b.DeliverLocal(gameID, frame)
	return nil
}

// DeliverLocal hands frame to this instance's subscribers of gameID. Slow
// consumers whose buffer is full miss the frame.
func (b *Broker) DeliverLocal(gameID string, frame []byte) {
	b.connsMu.RLock()
	targets := make([]*Conn, 0, len(b.games[gameID]))
	for _, c := range b.games[gameID] {
		targets = append(targets, c)
	}
	b.connsMu.RUnlock()

	for _, c := range targets {
		if !c.TrySend(frame) {
			b.logger.Warnw("dropping websocket frame for slow connection",
				"connection_id", c.ID,
				"game_id", gameID,
			)
		}
	}
}

// Run relays frames published by any instance to local subscribers until
// ctx is done.
func (b *Broker) Run(ctx context.Context, sub pubsub.GameSubscriber) error {
	return sub.Subscribe(ctx, b.DeliverLocal)
}

// LocalSubscribers returns how many connections on this instance follow gameID.
func (b *Broker) LocalSubscribers(gameID string) int {
	b.connsMu.RLock()
	defer b.connsMu.RUnlock()
	return len(b.games[gameID])
}

// ConnectionCount returns the number of connections held by this instance.
func (b *Broker) ConnectionCount() int {
	b.connsMu.RLock()
	defer b.connsMu.RUnlock()
	return len(b.conns)
}

// Subscribers lists connection ids following gameID across all instances.
func (b *Broker) Subscribers(ctx context.Context, gameID string) ([]string, error) {
	if b.client == nil {
		b.connsMu.RLock()
		defer b.connsMu.RUnlock()
		ids := make([]string, 0, len(b.games[gameID]))
		for connID := range b.games[gameID] {
			ids = append(ids, connID)
		}
		return ids, nil
	}
	ids, err := b.client.SMembers(ctx, SubscribersKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list websocket subscribers: %w", err)
	}
	return ids, nil
}

// RefreshRegistry extends the Redis TTL of every locally held connection so
// that records of crashed instances age out on their own.
func (b *Broker) RefreshRegistry(ctx context.Context) error {
	if b.client == nil {
		return nil
	}
	b.connsMu.RLock()
	conns := make([]*Conn, 0, len(b.conns))
	for _, c := range b.conns {
		conns = append(conns, c)
	}
	b.connsMu.RUnlock()

	pipe := b.client.Pipeline()
	for _, c := range conns {
		pipe.Expire(ctx, ConnKey(c.ID), registryTTL)
		for _, gameID := range c.Games() {
			pipe.Expire(ctx, SubscribersKey(gameID), registryTTL)
		}
	}
	if len(conns) == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh websocket registry: %w", err)
	}
	return nil
}

func (b *Broker) mirror(ctx context.Context, conn *Conn, gameID string) {
	if b.client == nil {
		return
	}
	rec := Record{
		ConnectionID: conn.ID,
		GameID:       gameID,
		PlayerID:     conn.PlayerID,
		InstanceID:   b.instanceID,
		ConnectedAt:  conn.ConnectedAt,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	pipe := b.client.TxPipeline()
	pipe.Set(ctx, ConnKey(conn.ID), data, registryTTL)
	pipe.SAdd(ctx, SubscribersKey(gameID), conn.ID)
	pipe.Expire(ctx, SubscribersKey(gameID), registryTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		b.logger.Warnw("failed to mirror websocket connection to redis",
			"connection_id", conn.ID,
			"game_id", gameID,
			"error", err,
		)
	}
}
