// Package pubsub relays websocket frames between instances over Redis Pub/Sub.
package pubsub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/shared/logger"
)

const gameChannelPrefix = "pubsub:game:"

// GameChannel returns the channel carrying frames for one game.
func GameChannel(gameID string) string {
	return gameChannelPrefix + gameID
}

// FrameHandler receives a frame published for gameID on any instance.
type FrameHandler func(gameID string, frame []byte)

type GamePublisher interface {
	Publish(ctx context.Context, gameID string, frame []byte) error
}

type GameSubscriber interface {
	Subscribe(ctx context.Context, handler FrameHandler) error
}

// RedisGameBus fans game frames out to every instance subscribed to pubsub:game:*.
type RedisGameBus struct {
	client redis.UniversalClient
	logger logger.Interface
}

func NewRedisGameBus(client redis.UniversalClient, log logger.Interface) *RedisGameBus {
	return &RedisGameBus{client: client, logger: log}
}

func (b *RedisGameBus) Publish(ctx context.Context, gameID string, frame []byte) error {
	if err := b.client.Publish(ctx, GameChannel(gameID), frame).Err(); err != nil {
		b.logger.Errorw("failed to publish game frame",
			"game_id", gameID,
			"error", err,
		)
		return fmt.Errorf("failed to publish game frame: %w", err)
	}
	return nil
}

// Subscribe blocks until ctx is done, reconnecting with exponential backoff.
func (b *RedisGameBus) Subscribe(ctx context.Context, handler FrameHandler) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.subscribe(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("game channel subscription lost, reconnecting",
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisGameBus) subscribe(ctx context.Context, handler FrameHandler) error {
	ps := b.client.PSubscribe(ctx, gameChannelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to game channels: %w", err)
	}
	b.logger.Infow("subscribed to game channels", "pattern", gameChannelPrefix+"*")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("game channel closed")
			}
			gameID := strings.TrimPrefix(msg.Channel, gameChannelPrefix)
			handler(gameID, []byte(msg.Payload))
		}
	}
}
