package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chessforge/gamecore/internal/shared/id"
)

const poolLeaderPrefix = "matchmaking:leader:"

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PoolLock elects one matchmaking leader per pool with SET NX.
type PoolLock struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewPoolLock(client redis.UniversalClient, ttl time.Duration) *PoolLock {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &PoolLock{client: client, ttl: ttl}
}

func PoolLeaderKey(poolKey string) string {
	return poolLeaderPrefix + poolKey
}

// TryAcquire returns a release func when this caller became leader for
// poolKey, or ok=false when another worker holds the pool.
func (l *PoolLock) TryAcquire(ctx context.Context, poolKey string) (release func(context.Context), ok bool, err error) {
	token := id.New()
	key := PoolLeaderKey(poolKey)

	acquired, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire pool lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return func(ctx context.Context) {
		_ = releaseScript.Run(ctx, l.client, []string{key}, token).Err()
	}, true, nil
}
