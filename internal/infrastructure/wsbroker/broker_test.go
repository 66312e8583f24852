package wsbroker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/infrastructure/pubsub"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

type failingBus struct{}

func (failingBus) Publish(ctx context.Context, gameID string, frame []byte) error {
	return errors.New("redis down")
}

func setupBroker(t *testing.T, withBus bool) (*miniredis.Miniredis, *redis.Client, *Broker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var bus pubsub.GamePublisher
	if withBus {
		bus = pubsub.NewRedisGameBus(client, logger.NewNopLogger())
	}
	return mr, client, NewBroker(client, bus, "test-instance", logger.NewNopLogger())
}

func receive(t *testing.T, c *Conn) Message {
	t.Helper()
	select {
	case frame := <-c.Send:
		var m Message
		require.NoError(t, json.Unmarshal(frame, &m))
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return Message{}
	}
}

func TestBroker_RegisterMirrorsToRedis(t *testing.T) {
	mr, _, b := setupBroker(t, false)
	ctx := context.Background()

	conn := b.Register(ctx, "g1", "p1")
	assert.Equal(t, 1, b.LocalSubscribers("g1"))
	assert.Equal(t, 1, b.ConnectionCount())

	raw, err := mr.Get(ConnKey(conn.ID))
	require.NoError(t, err)
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, "g1", rec.GameID)
	assert.Equal(t, "p1", rec.PlayerID)
	assert.Equal(t, "test-instance", rec.InstanceID)
	assert.Equal(t, registryTTL, mr.TTL(ConnKey(conn.ID)))

	members, err := b.Subscribers(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{conn.ID}, members)

	b.Unregister(ctx, conn)
	assert.False(t, mr.Exists(ConnKey(conn.ID)))
	assert.Equal(t, 0, b.LocalSubscribers("g1"))
	_, open := <-conn.Send
	assert.False(t, open)

	// idempotent
	b.Unregister(ctx, conn)
}

func TestBroker_BroadcastLocalWithoutBus(t *testing.T) {
	_, _, b := setupBroker(t, false)
	ctx := context.Background()

	c1 := b.Register(ctx, "g1", "p1")
	c2 := b.Register(ctx, "g1", "p2")
	other := b.Register(ctx, "g2", "p3")

	require.NoError(t, b.Broadcast(ctx, "g1", &Message{Type: MsgMovePlayed, FEN: "fen"}))

	for _, c := range []*Conn{c1, c2} {
		m := receive(t, c)
		assert.Equal(t, MsgMovePlayed, m.Type)
		assert.Equal(t, "g1", m.GameID)
		assert.NotZero(t, m.Timestamp)
	}
	assert.Len(t, other.Send, 0)
}

func TestBroker_BroadcastFallsBackWhenRelayFails(t *testing.T) {
	_, client, _ := setupBroker(t, false)
	b := NewBroker(client, failingBus{}, "i1", logger.NewNopLogger())
	ctx := context.Background()

	c := b.Register(ctx, "g1", "")
	require.NoError(t, b.Broadcast(ctx, "g1", &Message{Type: MsgGameEnded, Result: "1-0"}))
	assert.Equal(t, "1-0", receive(t, c).Result)
}

func TestBroker_BroadcastViaPubSub(t *testing.T) {
	mr, client, b := setupBroker(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = b.Run(ctx, pubsub.NewRedisGameBus(client, logger.NewNopLogger())) }()
	require.Eventually(t, func() bool { return mr.PubSubNumPat() > 0 }, 2*time.Second, 10*time.Millisecond)

	c := b.Register(ctx, "g1", "p1")
	require.NoError(t, b.Broadcast(ctx, "g1", &Message{Type: MsgMovePlayed}))
	assert.Equal(t, MsgMovePlayed, receive(t, c).Type)
}

func TestBroker_SubscribeUnsubscribe(t *testing.T) {
	mr, _, b := setupBroker(t, false)
	ctx := context.Background()

	c := b.Register(ctx, "g1", "p1")
	b.Subscribe(ctx, c, "g2")
	assert.ElementsMatch(t, []string{"g1", "g2"}, c.Games())

	b.Unsubscribe(ctx, c, "g1")
	assert.Equal(t, 0, b.LocalSubscribers("g1"))
	ok, err := mr.SIsMember(SubscribersKey("g1"), c.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, b.LocalSubscribers("g2"))
}

func TestBroker_RefreshRegistry(t *testing.T) {
	mr, _, b := setupBroker(t, false)
	ctx := context.Background()

	c := b.Register(ctx, "g1", "p1")
	mr.FastForward(50 * time.Minute)
	require.NoError(t, b.RefreshRegistry(ctx))
	assert.Equal(t, registryTTL, mr.TTL(ConnKey(c.ID)))
}

func TestBroker_SlowConsumerDoesNotBlock(t *testing.T) {
	_, _, b := setupBroker(t, false)
	ctx := context.Background()

	c := b.Register(ctx, "g1", "p1")
	for i := 0; i < sendBuffer+10; i++ {
		require.NoError(t, b.Broadcast(ctx, "g1", &Message{Type: MsgPing}))
	}
	assert.Len(t, c.Send, sendBuffer)
}
