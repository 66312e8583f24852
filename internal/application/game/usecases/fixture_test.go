package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/infrastructure/cache"
	"github.com/chessforge/gamecore/internal/infrastructure/replay"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

var t0 = time.Date(2026, 4, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	deps   Dependencies
	games  *mockGameRepository
	tx     *passthroughTx
	events *mockEventPublisher
	ws     *mockBroadcaster
	clock  *biztime.FixedClock
	redis  *miniredis.Miniredis
	cache  *cache.RedisGameCache
	replay *replay.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		games:  newMockGameRepository(),
		tx:     &passthroughTx{},
		events: &mockEventPublisher{},
		ws:     &mockBroadcaster{},
		clock:  &biztime.FixedClock{T: t0},
		redis:  mr,
		cache:  cache.NewRedisGameCache(client, time.Hour, logger.NewNopLogger()),
		replay: replay.NewStore(client, time.Hour),
	}
	f.deps = Dependencies{
		Games:       f.games,
		TxMgr:       f.tx,
		Cache:       f.cache,
		Events:      f.events,
		Broadcaster: f.ws,
		Clock:       f.clock,
		Logger:      logger.NewNopLogger(),
	}
	return f
}

// challenge creates an unrated or rated 5+0 challenge with alice as white.
func (f *fixture) challenge(t *testing.T, rated bool) *GameView {
	t.Helper()
	view, err := NewCreateChallengeUseCase(f.deps).Execute(context.Background(), CreateChallengeCommand{
		CreatorID:       "alice",
		TimeControl:     TimeControlInput{Notation: "5+0"},
		ColorPreference: "white",
		Rated:           rated,
	})
	require.NoError(t, err)
	return view
}

// started returns the id of an in-progress alice (white) vs bob game.
func (f *fixture) started(t *testing.T, rated bool) string {
	t.Helper()
	view := f.challenge(t, rated)
	_, err := NewJoinGameUseCase(f.deps, nil).Execute(context.Background(), JoinGameCommand{
		GameID:   view.ID,
		PlayerID: "bob",
	})
	require.NoError(t, err)
	return view.ID
}

func (f *fixture) move(t *testing.T, uc *PlayMoveUseCase, gameID, player, from, to string) *PlayMoveResult {
	t.Helper()
	f.clock.Advance(time.Second)
	res, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: player, From: from, To: to})
	require.NoError(t, err)
	return res
}
