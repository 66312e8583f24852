package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func blitz() vo.TimeControl {
	return vo.TimeControl{InitialMS: 300_000}
}

// newStartedGame creates a manual rated game with white=alice, black=bob.
func newStartedGame(t *testing.T, rated bool) *Game {
	t.Helper()
	g, err := NewChallenge(ChallengeParams{
		CreatorID:       "alice",
		TimeControl:     blitz(),
		ColorPreference: vo.PreferWhite,
		Decision:        Decision{Rated: rated, Reason: vo.DecisionManual},
		Now:             t0,
	})
	require.NoError(t, err)
	require.NoError(t, g.Join("bob", vo.PreferRandom, t0))
	g.PullEvents()
	return g
}

func play(t *testing.T, g *Game, player, from, to string, at time.Time) *Move {
	t.Helper()
	m, err := g.PlayMove(player, from, to, "", at)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestNewChallenge(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{
		CreatorID:       "alice",
		TimeControl:     blitz(),
		ColorPreference: vo.PreferBlack,
		Decision:        Decision{Rated: true, Reason: vo.DecisionManual},
		Now:             t0,
	})
	require.NoError(t, err)

	assert.Equal(t, vo.StatusWaiting, g.Status())
	assert.Equal(t, "alice", g.BlackID())
	assert.Empty(t, g.WhiteID())
	assert.True(t, g.Rated())
	assert.Equal(t, StandardFEN, g.FEN())
	assert.Equal(t, int64(300_000), g.WhiteClockMS())

	evs := g.PullEvents()
	require.Len(t, evs, 1)
	assert.Equal(t, EventGameCreated, evs[0].GetEventType())
	assert.Empty(t, g.PullEvents())
}

func TestNewChallenge_RandomColorUsesCoin(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{
		CreatorID:   "alice",
		TimeControl: blitz(),
		Now:         t0,
		Coin:        func() bool { return false },
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", g.BlackID())
}

func TestNewChallenge_InvalidFEN(t *testing.T) {
	_, err := NewChallenge(ChallengeParams{
		CreatorID:   "alice",
		TimeControl: blitz(),
		StartingFEN: "not a fen",
		Now:         t0,
	})
	assert.ErrorIs(t, err, ErrInvalidFEN)
}

func TestJoin(t *testing.T) {
	g := newStartedGame(t, true)

	assert.Equal(t, vo.StatusInProgress, g.Status())
	assert.Equal(t, "alice", g.WhiteID())
	assert.Equal(t, "bob", g.BlackID())
	assert.Equal(t, vo.White, g.SideToMove())
	require.NotNil(t, g.StartedAt())
	assert.Equal(t, t0, *g.StartedAt())

	err := g.Join("carol", vo.PreferRandom, t0)
	assert.ErrorIs(t, err, ErrGameFull)
}

func TestJoin_OwnGameRejected(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{CreatorID: "alice", TimeControl: blitz(), Now: t0})
	require.NoError(t, err)
	assert.ErrorIs(t, g.Join("alice", vo.PreferRandom, t0), ErrCannotJoinOwnGame)
}

func TestFoolsMate(t *testing.T) {
	g := newStartedGame(t, true)

	play(t, g, "alice", "f2", "f3", t0.Add(time.Second))
	play(t, g, "bob", "e7", "e5", t0.Add(2*time.Second))
	play(t, g, "alice", "g2", "g4", t0.Add(3*time.Second))
	last := play(t, g, "bob", "d8", "h4", t0.Add(4*time.Second))

	assert.Contains(t, last.SAN, "Qh4")
	assert.Equal(t, vo.StatusEnded, g.Status())
	assert.Equal(t, vo.ResultBlackWin, g.Result())
	assert.Equal(t, vo.EndCheckmate, g.EndReason())
	require.NotNil(t, g.EndedAt())
	assert.Len(t, g.Moves(), 4)

	evs := g.PullEvents()
	require.Len(t, evs, 5)
	ended, ok := evs[4].(GameEndedEvent)
	require.True(t, ok)
	assert.Equal(t, g.ID(), ended.GetAggregateID())
	assert.Equal(t, vo.ResultBlackWin, ended.Result)
	assert.True(t, ended.Rated)
}

func TestPlayMove_MoveInvariants(t *testing.T) {
	g := newStartedGame(t, false)

	play(t, g, "alice", "e2", "e4", t0.Add(1500*time.Millisecond))
	play(t, g, "bob", "e7", "e5", t0.Add(4*time.Second))
	play(t, g, "alice", "g1", "f3", t0.Add(5*time.Second))

	moves := g.Moves()
	prev := StandardFEN
	for i, m := range moves {
		assert.Equal(t, i+1, m.Ply)
		if i%2 == 0 {
			assert.Equal(t, vo.White, m.Color)
		} else {
			assert.Equal(t, vo.Black, m.Color)
		}
		require.True(t, IsLegal(prev, m.UCI()), "move %d must be legal from previous fen", m.Ply)
		prev = m.FENAfter
	}
	assert.Equal(t, prev, g.FEN())
	assert.Equal(t, vo.Black, g.SideToMove())

	assert.Equal(t, int64(1500), moves[0].ElapsedMS)
	assert.Equal(t, int64(2500), moves[1].ElapsedMS)
	assert.Equal(t, int64(300_000-1500-1000), g.WhiteClockMS())
	assert.Equal(t, int64(300_000-2500), g.BlackClockMS())
	assert.Equal(t, 2, moves[2].MoveNumber)
}

func TestPlayMove_Increment(t *testing.T) {
	g, err := NewMatchedGame(MatchedParams{
		WhiteID:     "alice",
		BlackID:     "bob",
		TimeControl: vo.TimeControl{InitialMS: 180_000, IncrementMS: 2000},
		Decision:    Decision{Rated: true, Reason: vo.DecisionManual},
		Now:         t0,
	})
	require.NoError(t, err)

	play(t, g, "alice", "d2", "d4", t0.Add(3*time.Second))
	assert.Equal(t, int64(180_000-3000+2000), g.WhiteClockMS())
}

func TestPlayMove_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(g *Game)
		player string
		from   string
		to     string
		reason string
	}{
		{name: "illegal move", player: "alice", from: "e2", to: "e5", reason: apperrors.ReasonIllegalMove},
		{name: "not a player", player: "mallory", from: "e2", to: "e4", reason: apperrors.ReasonNotAPlayer},
		{name: "not your turn", player: "bob", from: "e7", to: "e5", reason: apperrors.ReasonNotYourTurn},
		{
			name:   "ended game",
			setup:  func(g *Game) { require.NoError(t, g.Resign("alice", t0)) },
			player: "bob", from: "e7", to: "e5",
			reason: apperrors.ReasonNotInProgress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newStartedGame(t, true)
			if tt.setup != nil {
				tt.setup(g)
			}
			fenBefore := g.FEN()

			m, err := g.PlayMove(tt.player, tt.from, tt.to, "", t0.Add(time.Second))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, apperrors.HasReason(err, tt.reason), "got %v", err)
			assert.Equal(t, fenBefore, g.FEN())
		})
	}
}

func TestPlayMove_IllegalMoveMessage(t *testing.T) {
	g := newStartedGame(t, true)
	_, err := g.PlayMove("alice", "e2", "e5", "", t0)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.Code)
	assert.Equal(t, "illegal move", appErr.Message)
}

func TestPlayMove_FlagFall(t *testing.T) {
	g := newStartedGame(t, true)

	m, err := g.PlayMove("alice", "e2", "e4", "", t0.Add(301*time.Second))
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, vo.StatusEnded, g.Status())
	assert.Equal(t, vo.EndTimeout, g.EndReason())
	assert.Equal(t, vo.ResultBlackWin, g.Result())
	assert.Equal(t, int64(0), g.WhiteClockMS())
	assert.Empty(t, g.Moves())
}

func TestPlayMove_Promotion(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{
		CreatorID:       "alice",
		TimeControl:     blitz(),
		ColorPreference: vo.PreferWhite,
		StartingFEN:     "8/P7/8/8/8/8/8/k6K w - - 0 1",
		Now:             t0,
	})
	require.NoError(t, err)
	require.NoError(t, g.Join("bob", vo.PreferRandom, t0))

	m, err := g.PlayMove("alice", "a7", "a8", "Q", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "q", m.Promotion)
	assert.Equal(t, "a7a8q", m.UCI())
}

func TestThreefoldRepetition(t *testing.T) {
	g := newStartedGame(t, false)
	at := t0
	shuffle := [][3]string{
		{"alice", "g1", "f3"}, {"bob", "g8", "f6"},
		{"alice", "f3", "g1"}, {"bob", "f6", "g8"},
		{"alice", "g1", "f3"}, {"bob", "g8", "f6"},
		{"alice", "f3", "g1"}, {"bob", "f6", "g8"},
	}
	for i, mv := range shuffle {
		at = at.Add(time.Second)
		play(t, g, mv[0], mv[1], mv[2], at)
		if i < len(shuffle)-1 {
			require.Equal(t, vo.StatusInProgress, g.Status(), "ended early at ply %d", i+1)
		}
	}

	assert.Equal(t, vo.StatusEnded, g.Status())
	assert.Equal(t, vo.EndThreefoldRepetition, g.EndReason())
	assert.Equal(t, vo.ResultDraw, g.Result())
}

func TestResign(t *testing.T) {
	g := newStartedGame(t, true)
	play(t, g, "alice", "e2", "e4", t0.Add(time.Second))

	require.NoError(t, g.Resign("alice", t0.Add(2*time.Second)))
	assert.Equal(t, vo.StatusEnded, g.Status())
	assert.Equal(t, vo.ResultBlackWin, g.Result())
	assert.Equal(t, vo.EndResignation, g.EndReason())
	assert.NotNil(t, g.EndedAt())

	assert.ErrorIs(t, g.Resign("bob", t0), ErrNotInProgress)
}

func TestTakeback(t *testing.T) {
	t.Run("rated game refuses", func(t *testing.T) {
		g := newStartedGame(t, true)
		play(t, g, "alice", "e2", "e4", t0.Add(time.Second))

		_, err := g.Takeback("alice", t0)
		assert.ErrorIs(t, err, ErrTakebackNotAllowed)
		assert.True(t, apperrors.IsForbiddenError(err))
		assert.Len(t, g.Moves(), 1)
	})

	t.Run("unrated game pops last move", func(t *testing.T) {
		g := newStartedGame(t, false)
		first := play(t, g, "alice", "e2", "e4", t0.Add(time.Second))
		play(t, g, "bob", "e7", "e5", t0.Add(2*time.Second))

		popped, err := g.Takeback("bob", t0.Add(3*time.Second))
		require.NoError(t, err)
		assert.Equal(t, "e7e5", popped.UCI())
		assert.Equal(t, first.FENAfter, g.FEN())
		assert.Equal(t, vo.Black, g.SideToMove())

		_, err = g.Takeback("bob", t0)
		require.NoError(t, err)
		assert.Equal(t, StandardFEN, g.FEN())
		assert.Equal(t, vo.White, g.SideToMove())

		_, err = g.Takeback("bob", t0)
		assert.ErrorIs(t, err, ErrNothingToTakeBack)
	})
}

func TestSetPosition(t *testing.T) {
	const fen = "4k3/8/8/8/8/8/8/4K2R w K - 0 1"

	t.Run("rated refuses", func(t *testing.T) {
		g, err := NewChallenge(ChallengeParams{CreatorID: "alice", TimeControl: blitz(), Decision: Decision{Rated: true}, Now: t0})
		require.NoError(t, err)
		assert.ErrorIs(t, g.SetPosition("alice", fen, t0), ErrBoardEditNotAllowed)
	})

	t.Run("only creator", func(t *testing.T) {
		g, err := NewChallenge(ChallengeParams{CreatorID: "alice", TimeControl: blitz(), Now: t0})
		require.NoError(t, err)
		assert.ErrorIs(t, g.SetPosition("bob", fen, t0), ErrCreatorOnly)
	})

	t.Run("updates both fens while waiting", func(t *testing.T) {
		g, err := NewChallenge(ChallengeParams{CreatorID: "alice", TimeControl: blitz(), Now: t0})
		require.NoError(t, err)
		require.NoError(t, g.SetPosition("alice", fen, t0))
		assert.Equal(t, fen, g.FEN())
		assert.Equal(t, fen, g.StartingFEN())

		assert.ErrorIs(t, g.SetPosition("alice", "garbage", t0), ErrInvalidFEN)
	})

	t.Run("after start", func(t *testing.T) {
		g := newStartedGame(t, false)
		assert.ErrorIs(t, g.SetPosition("alice", fen, t0), ErrAlreadyStarted)
	})
}

func TestUpdateRated(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{CreatorID: "alice", TimeControl: blitz(), Now: t0})
	require.NoError(t, err)
	assert.False(t, g.Rated())

	policy := DefaultRatingPolicy()
	require.NoError(t, g.UpdateRated("alice", policy.Decide(g.DecisionInput(true)), t0))
	assert.True(t, g.Rated())
	assert.Equal(t, vo.DecisionManual, g.DecisionReason())

	assert.ErrorIs(t, g.UpdateRated("bob", Decision{}, t0), ErrCreatorOnly)

	require.NoError(t, g.Join("bob", vo.PreferRandom, t0))
	err = g.UpdateRated("alice", Decision{Rated: false, Reason: vo.DecisionManual}, t0)
	assert.ErrorIs(t, err, ErrRatedLocked)
	assert.True(t, apperrors.IsConflictError(err))
	assert.True(t, g.Rated())
}

func TestRecheckRated_RatingGap(t *testing.T) {
	g, err := NewChallenge(ChallengeParams{
		CreatorID:   "alice",
		TimeControl: blitz(),
		Decision:    Decision{Rated: true, Reason: vo.DecisionManual},
		Now:         t0,
	})
	require.NoError(t, err)

	w, b := 1500, 2001
	g.RecheckRated(DefaultRatingPolicy(), &w, &b)
	assert.False(t, g.Rated())
	assert.Equal(t, vo.DecisionRatingGapAuto, g.DecisionReason())
}

func TestDrawOffer(t *testing.T) {
	g := newStartedGame(t, true)

	assert.ErrorIs(t, g.AcceptDraw("bob", t0), ErrNoDrawOffer)
	require.NoError(t, g.OfferDraw("alice", t0))
	assert.ErrorIs(t, g.AcceptDraw("alice", t0), ErrNoDrawOffer)

	require.NoError(t, g.AcceptDraw("bob", t0.Add(time.Second)))
	assert.Equal(t, vo.ResultDraw, g.Result())
	assert.Equal(t, vo.EndDrawAgreed, g.EndReason())
}

func TestDrawOffer_ClearedByMove(t *testing.T) {
	g := newStartedGame(t, true)
	require.NoError(t, g.OfferDraw("bob", t0))
	play(t, g, "alice", "e2", "e4", t0.Add(time.Second))
	assert.ErrorIs(t, g.AcceptDraw("alice", t0), ErrNoDrawOffer)
}

func TestNewBotGame(t *testing.T) {
	g, err := NewBotGame(BotGameParams{
		CreatorID:   "alice",
		Bot:         BotForDifficulty("medium"),
		PlayerColor: vo.PreferWhite,
		TimeControl: blitz(),
		Now:         t0,
	})
	require.NoError(t, err)

	assert.Equal(t, "bot-medium-1200", g.BotID())
	assert.Equal(t, vo.Black, g.BotColor())
	assert.False(t, g.Rated())
	assert.Equal(t, vo.DecisionBotGame, g.DecisionReason())
	assert.Equal(t, vo.StatusInProgress, g.Status())
	assert.Equal(t, "alice", g.WhiteID())
	assert.Equal(t, "bot-medium-1200", g.BlackID())
	assert.False(t, g.IsBotTurn())

	play(t, g, "alice", "e2", "e4", t0.Add(time.Second))
	assert.True(t, g.IsBotTurn())
	assert.ErrorIs(t, g.OfferDraw("alice", t0.Add(2*time.Second)), ErrBotDeclinesDraw)
}

func TestCheckTimeout(t *testing.T) {
	g := newStartedGame(t, true)
	assert.False(t, g.CheckTimeout(t0.Add(time.Minute)))

	white, black := g.ClocksAt(t0.Add(time.Minute))
	assert.Equal(t, int64(240_000), white)
	assert.Equal(t, int64(300_000), black)

	assert.True(t, g.CheckTimeout(t0.Add(6*time.Minute)))
	assert.Equal(t, vo.EndTimeout, g.EndReason())
	assert.Equal(t, vo.ResultBlackWin, g.Result())
}

func TestExpire(t *testing.T) {
	abandonAfter := 30 * time.Second

	t.Run("first move never made", func(t *testing.T) {
		g := newStartedGame(t, true)
		assert.False(t, g.Stalled(t0.Add(29*time.Second), abandonAfter))
		assert.False(t, g.Expire(t0.Add(29*time.Second), abandonAfter))

		require.True(t, g.Stalled(t0.Add(30*time.Second), abandonAfter))
		require.True(t, g.Expire(t0.Add(30*time.Second), abandonAfter))
		assert.Equal(t, vo.StatusEnded, g.Status())
		assert.Equal(t, vo.EndAbandoned, g.EndReason())
		assert.Empty(t, g.Result())

		evs := g.PullEvents()
		require.Len(t, evs, 1)
		assert.Equal(t, EventGameEnded, evs[0].GetEventType())
		assert.False(t, g.Expire(t0.Add(time.Hour), abandonAfter))
	})

	t.Run("black never answers", func(t *testing.T) {
		g := newStartedGame(t, true)
		play(t, g, "alice", "e2", "e4", t0.Add(time.Second))
		require.True(t, g.Expire(t0.Add(31*time.Second), abandonAfter))
		assert.Equal(t, vo.EndAbandoned, g.EndReason())
	})

	t.Run("mover runs out of time", func(t *testing.T) {
		g := newStartedGame(t, true)
		play(t, g, "alice", "e2", "e4", t0.Add(time.Second))
		play(t, g, "bob", "e7", "e5", t0.Add(2*time.Second))

		at := t0.Add(2*time.Second + 4*time.Minute)
		assert.False(t, g.Stalled(at, abandonAfter))
		assert.False(t, g.Expire(at, abandonAfter))

		at = t0.Add(2*time.Second + 5*time.Minute)
		require.True(t, g.Stalled(at, abandonAfter))
		require.True(t, g.Expire(at, abandonAfter))
		assert.Equal(t, vo.EndTimeout, g.EndReason())
		assert.Equal(t, vo.ResultBlackWin, g.Result())
		assert.Zero(t, g.WhiteClockMS())
	})
}

func TestReconstructGame_RoundTrip(t *testing.T) {
	g := newStartedGame(t, true)
	play(t, g, "alice", "e2", "e4", t0.Add(time.Second))

	restored, err := ReconstructGame(g.State())
	require.NoError(t, err)
	assert.Equal(t, g.State(), restored.State())

	_, err = ReconstructGame(State{})
	assert.Error(t, err)
}

func TestErrorsAreAppErrors(t *testing.T) {
	var appErr *apperrors.AppError
	assert.True(t, errors.As(ErrIllegalMove, &appErr))
	assert.Equal(t, 403, ErrTakebackNotAllowed.Code)
	assert.Equal(t, 403, ErrBoardEditNotAllowed.Code)
	assert.Equal(t, 409, ErrRatedLocked.Code)
}
