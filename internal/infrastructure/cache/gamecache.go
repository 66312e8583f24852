package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/chessforge/gamecore/internal/domain/game"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	gameKeyPrefix  = "game:"
	DefaultGameTTL = time.Hour
)

// GameLoader fetches a game from the database of record on a cache miss.
type GameLoader func(ctx context.Context) (*game.State, error)

// GameCache defines the interface for live game snapshots
type GameCache interface {
	Get(ctx context.Context, gameID string) (*game.State, error)
	GetOrLoad(ctx context.Context, gameID string, load GameLoader) (*game.State, error)
	Set(ctx context.Context, state *game.State) error
	Delete(ctx context.Context, gameID string) error
}

// RedisGameCache stores game.State as JSON under game:{id}.
type RedisGameCache struct {
	client redis.UniversalClient
	ttl    time.Duration
	group  singleflight.Group
	logger logger.Interface
}

// NewRedisGameCache creates a new Redis-backed game cache
func NewRedisGameCache(client redis.UniversalClient, ttl time.Duration, logger logger.Interface) *RedisGameCache {
	if ttl <= 0 {
		ttl = DefaultGameTTL
	}
	return &RedisGameCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func GameKey(gameID string) string {
	return gameKeyPrefix + gameID
}

// Get returns nil, nil on a miss. An entry that no longer decodes is removed
// and reported as a miss.
func (c *RedisGameCache) Get(ctx context.Context, gameID string) (*game.State, error) {
	key := GameKey(gameID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game from cache: %w", err)
	}

	var state game.State
	if err := json.Unmarshal(raw, &state); err != nil || state.ID == "" {
		c.logger.Warnw("dropping corrupt game cache entry", "game_id", gameID, "error", err)
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			c.logger.Warnw("failed to delete corrupt game cache entry", "game_id", gameID, "error", delErr)
		}
		return nil, nil
	}
	return &state, nil
}

// GetOrLoad reads through to load on a miss. Concurrent misses for the same
// game share a single load.
func (c *RedisGameCache) GetOrLoad(ctx context.Context, gameID string, load GameLoader) (*game.State, error) {
	state, err := c.Get(ctx, gameID)
	if err != nil {
		c.logger.Warnw("game cache read failed, falling back to loader", "game_id", gameID, "error", err)
	}
	if state != nil {
		return state, nil
	}

	v, err, _ := c.group.Do(gameID, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Set(ctx, loaded); err != nil {
			c.logger.Warnw("failed to populate game cache", "game_id", gameID, "error", err)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*game.State), nil
}

// Set writes the snapshot with the configured TTL.
func (c *RedisGameCache) Set(ctx context.Context, state *game.State) error {
	if state == nil {
		return nil
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode game %s: %w", state.ID, err)
	}
	if err := c.client.Set(ctx, GameKey(state.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set game in cache: %w", err)
	}
	return nil
}

func (c *RedisGameCache) Delete(ctx context.Context, gameID string) error {
	if err := c.client.Del(ctx, GameKey(gameID)).Err(); err != nil {
		return fmt.Errorf("failed to delete game from cache: %w", err)
	}
	return nil
}
