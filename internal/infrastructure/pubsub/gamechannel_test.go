package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

type received struct {
	gameID string
	frame  string
}

func TestRedisGameBus_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	bus := NewRedisGameBus(client, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan received, 1)
	go func() {
		_ = bus.Subscribe(ctx, func(gameID string, frame []byte) {
			got <- received{gameID: gameID, frame: string(frame)}
		})
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumPat() > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, bus.Publish(ctx, "game-42", []byte(`{"type":"move_played"}`)))

	select {
	case r := <-got:
		assert.Equal(t, "game-42", r.gameID)
		assert.JSONEq(t, `{"type":"move_played"}`, r.frame)
	case <-time.After(2 * time.Second):
		t.Fatal("frame not delivered")
	}
}

func TestGameChannel(t *testing.T) {
	assert.Equal(t, "pubsub:game:abc", GameChannel("abc"))
}
