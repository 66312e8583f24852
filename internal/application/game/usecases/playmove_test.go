package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/replay"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

func TestPlayMove_FoolsMate(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, true)
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	f.move(t, uc, gameID, "alice", "f2", "f3")
	f.move(t, uc, gameID, "bob", "e7", "e5")
	f.move(t, uc, gameID, "alice", "g2", "g4")
	res := f.move(t, uc, gameID, "bob", "d8", "h4")

	require.NotNil(t, res.Move)
	assert.Contains(t, res.Move.SAN, "Qh4")
	assert.Equal(t, vo.StatusEnded, res.Status)
	assert.Equal(t, vo.ResultBlackWin, res.Result)
	assert.Equal(t, vo.EndCheckmate, res.EndReason)

	stored := f.games.state(gameID)
	assert.Len(t, stored.Moves, 4)
	assert.Equal(t, vo.StatusEnded, stored.Status)
	assert.False(t, f.redis.Exists("game:"+gameID), "ended games leave the cache")

	types := f.events.types()
	assert.Equal(t, game.EventGameEnded, types[len(types)-1])
	wsTypes := f.ws.types()
	assert.Equal(t, wsbroker.MsgGameEnded, wsTypes[len(wsTypes)-1])
	assert.Equal(t, wsbroker.MsgMovePlayed, wsTypes[len(wsTypes)-2])

	_, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "a2", To: "a3"})
	assert.ErrorIs(t, err, game.ErrNotInProgress)
}

func TestPlayMove_UpdatesCacheWhileInProgress(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	f.move(t, uc, gameID, "alice", "e2", "e4")

	cached, err := f.cache.Get(context.Background(), gameID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Len(t, cached.Moves, 1)
	assert.Equal(t, vo.Black, cached.SideToMove)
}

func TestPlayMove_Rejections(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, true)
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	tests := []struct {
		name   string
		cmd    PlayMoveCommand
		reason string
	}{
		{"not a player", PlayMoveCommand{PlayerID: "carol", From: "e2", To: "e4"}, apperrors.ReasonNotAPlayer},
		{"not your turn", PlayMoveCommand{PlayerID: "bob", From: "e7", To: "e5"}, apperrors.ReasonNotYourTurn},
		{"illegal move", PlayMoveCommand{PlayerID: "alice", From: "e2", To: "e5"}, apperrors.ReasonIllegalMove},
		{"off the board", PlayMoveCommand{PlayerID: "alice", From: "e9", To: "e4"}, apperrors.ReasonIllegalMove},
		{"bad promotion", PlayMoveCommand{PlayerID: "alice", From: "e2", To: "e4", Promotion: "k"}, apperrors.ReasonIllegalMove},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			cmd.GameID = gameID
			_, err := uc.Execute(context.Background(), cmd)
			require.Error(t, err)
			assert.True(t, apperrors.HasReason(err, tt.reason), "got %v", err)
		})
	}

	_, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: "missing", PlayerID: "alice", From: "e2", To: "e4"})
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestPlayMove_FlagFallEndsOnTime(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, true)
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	f.clock.Advance(6 * time.Minute)
	res, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Nil(t, res.Move)
	assert.Equal(t, vo.EndTimeout, res.EndReason)
	assert.Equal(t, vo.ResultBlackWin, res.Result)
	assert.Empty(t, f.games.state(gameID).Moves)
}

func TestPlayMove_ReplayReturnsStoredResponse(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)
	cmd := PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e4", MoveID: "client-1"}

	first, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.FEN, second.FEN)
	assert.Equal(t, first.Move.SAN, second.Move.SAN)
	assert.Len(t, f.games.state(gameID).Moves, 1)
}

func TestPlayMove_FailedSubmissionReleasesSignature(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)
	cmd := PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e5", MoveID: "client-2"}

	_, err := uc.Execute(context.Background(), cmd)
	require.Error(t, err)
	assert.False(t, f.redis.Exists(replay.Key(gameID, "client-2")))
}

func TestPlayMove_InFlightSubmission(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)
	require.NoError(t, f.redis.Set(replay.Key(gameID, "client-3"), "1"))

	_, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e4", MoveID: "client-3"})
	assert.True(t, apperrors.HasReason(err, apperrors.ReasonInFlight))
	assert.Empty(t, f.games.state(gameID).Moves)
}

func TestPlayMove_RedisDownDoesNotBlockPlay(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)
	f.redis.SetError("ERR server unavailable")

	res, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.Equal(t, "e4", res.Move.SAN)
}

func TestPlayMove_BroadcastFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	f.ws.BroadcastFunc = func(ctx context.Context, gameID string, msg *wsbroker.Message) error {
		return errors.New("redis gone")
	}
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	res := f.move(t, uc, gameID, "alice", "d2", "d4")
	assert.Equal(t, "d4", res.Move.SAN)
}

func TestPlayMove_RetriesDeadlock(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	attempts := 0
	f.games.UpdateFunc = func(ctx context.Context, g *game.Game) error {
		attempts++
		if attempts == 1 {
			return errors.New("Error 1213 (40001): Deadlock found when trying to get lock")
		}
		return nil
	}
	uc := NewPlayMoveUseCase(f.deps, nil)

	res := f.move(t, uc, gameID, "alice", "e2", "e4")
	assert.Equal(t, "e4", res.Move.SAN)
	assert.Equal(t, 2, attempts)
	assert.Len(t, f.games.state(gameID).Moves, 1)
}

func TestPlayMove_StorageErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	boom := errors.New("disk full")
	f.games.UpdateFunc = func(ctx context.Context, g *game.Game) error { return boom }
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	_, err := uc.Execute(context.Background(), PlayMoveCommand{GameID: gameID, PlayerID: "alice", From: "e2", To: "e4"})
	assert.ErrorIs(t, err, boom)
}

func TestPlayMoveCommand_Signature(t *testing.T) {
	a := PlayMoveCommand{PlayerID: "alice", From: "e2", To: "e4"}
	b := PlayMoveCommand{PlayerID: "alice", From: "E2", To: "E4"}

	assert.Equal(t, a.Signature(0), b.Signature(0))
	assert.NotEqual(t, a.Signature(0), a.Signature(4))
	assert.Equal(t, "m-1", PlayMoveCommand{MoveID: "m-1"}.Signature(7))

	pinned := PlayMoveCommand{PlayerID: "alice", From: "e2", To: "e4", ExpectedPly: ptr(4)}
	assert.Equal(t, a.Signature(4), pinned.Signature(0), "expected ply wins over the current ply")
}

func TestPlayMove_RepeatedMoveAtLaterPlyIsApplied(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)

	shuffle := [][3]string{
		{"alice", "g1", "f3"}, {"bob", "g8", "f6"},
		{"alice", "f3", "g1"}, {"bob", "f6", "g8"},
		{"alice", "g1", "f3"}, {"bob", "g8", "f6"},
		{"alice", "f3", "g1"}, {"bob", "f6", "g8"},
	}
	var last *PlayMoveResult
	for i, mv := range shuffle {
		last = f.move(t, uc, gameID, mv[0], mv[1], mv[2])
		require.False(t, last.Replayed, "ply %d served from the replay store", i+1)
		require.NotNil(t, last.Move, "ply %d", i+1)
	}

	assert.Len(t, f.games.state(gameID).Moves, len(shuffle))
	assert.Equal(t, vo.StatusEnded, last.Status)
	assert.Equal(t, vo.EndThreefoldRepetition, last.EndReason)
}

func TestPlayMove_ExpectedPlyPinsReplay(t *testing.T) {
	f := newFixture(t)
	gameID := f.started(t, false)
	uc := NewPlayMoveUseCase(f.deps, f.replay)
	ctx := context.Background()

	play := func(player, from, to string, ply int) (*PlayMoveResult, error) {
		f.clock.Advance(time.Second)
		return uc.Execute(ctx, PlayMoveCommand{GameID: gameID, PlayerID: player, From: from, To: to, ExpectedPly: ptr(ply)})
	}

	first, err := play("alice", "g1", "f3", 0)
	require.NoError(t, err)
	retried, err := play("alice", "g1", "f3", 0)
	require.NoError(t, err)
	assert.True(t, retried.Replayed)
	assert.Equal(t, first.FEN, retried.FEN)

	for i, mv := range [][3]string{{"bob", "g8", "f6"}, {"alice", "f3", "g1"}, {"bob", "f6", "g8"}} {
		_, err := play(mv[0], mv[1], mv[2], i+1)
		require.NoError(t, err)
	}
	again, err := play("alice", "g1", "f3", 4)
	require.NoError(t, err)
	assert.False(t, again.Replayed)
	assert.Len(t, f.games.state(gameID).Moves, 5)

	_, err = play("bob", "g8", "f6", 2)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	assert.True(t, apperrors.HasReason(err, apperrors.ReasonStale))
	assert.Len(t, f.games.state(gameID).Moves, 5)
}

func ptr[T any](v T) *T { return &v }
