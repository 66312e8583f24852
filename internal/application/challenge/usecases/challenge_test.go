package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock      *biztime.FixedClock
	challenges *mockChallengeRepository
	games      *mockGameCreator
	deps       Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      &biztime.FixedClock{T: t0},
		challenges: newMockChallengeRepository(),
		games:      &mockGameCreator{},
	}
	h.deps = Dependencies{
		Challenges: h.challenges,
		TxMgr:      passthroughTx{},
		Games:      h.games,
		Ratings:    &mockRatingLookup{ratings: map[string]int{"alice": 1610}},
		Clock:      h.clock,
		Coin:       func() bool { return true },
		Logger:     logger.NewNopLogger(),
	}
	return h
}

func (h *harness) create(t *testing.T, cmd CreateChallengeCommand) *ChallengeView {
	t.Helper()
	if cmd.ChallengerID == "" {
		cmd.ChallengerID = "alice"
	}
	if cmd.OpponentID == "" {
		cmd.OpponentID = "bob"
	}
	if cmd.TimeControl == "" {
		cmd.TimeControl = "5+3"
	}
	v, err := NewCreateChallengeUseCase(h.deps).Execute(context.Background(), cmd)
	require.NoError(t, err)
	return v
}

func TestCreateChallenge(t *testing.T) {
	h := newHarness(t)

	v := h.create(t, CreateChallengeCommand{Rated: true, ColorPreference: "black"})

	assert.Equal(t, "pending", v.Status)
	assert.Equal(t, "black", v.ColorPreference)
	assert.Equal(t, "standard", v.Variant)
	assert.Equal(t, t0.Add(challenge.DefaultTTL), v.ExpiresAt)

	_, err := NewCreateChallengeUseCase(h.deps).Execute(context.Background(), CreateChallengeCommand{
		ChallengerID: "alice", OpponentID: "alice", TimeControl: "5+3",
	})
	assert.ErrorIs(t, err, challenge.ErrSelfChallenge)

	_, err = NewCreateChallengeUseCase(h.deps).Execute(context.Background(), CreateChallengeCommand{
		ChallengerID: "alice", OpponentID: "bob", TimeControl: "blitz",
	})
	assert.Error(t, err)
}

func TestAcceptChallenge_CreatesGame(t *testing.T) {
	h := newHarness(t)
	v := h.create(t, CreateChallengeCommand{Rated: true, ColorPreference: "black"})

	got, err := NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), v.ID, "bob")
	require.NoError(t, err)

	assert.Equal(t, "accepted", got.Status)
	assert.Equal(t, "game-"+v.ID, got.GameID)
	require.Len(t, h.games.requests, 1)
	req := h.games.requests[0]
	assert.Equal(t, "bob", req.WhiteUserID)
	assert.Equal(t, "alice", req.BlackUserID)
	assert.Equal(t, vo.ModeRated, req.Mode)
	assert.Equal(t, "5+3", req.TimeControl)
	assert.Equal(t, map[string]int{"black": 1610}, req.RatingSnapshot)
	assert.Equal(t, "challenge", req.Metadata["matchmaking_source"])
	assert.Equal(t, "game-"+v.ID, h.challenges.get(v.ID).GameID)
}

func TestAcceptChallenge_RandomColorUsesCoin(t *testing.T) {
	for _, heads := range []bool{true, false} {
		h := newHarness(t)
		h.deps.Coin = func() bool { return heads }
		v := h.create(t, CreateChallengeCommand{})

		_, err := NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), v.ID, "bob")
		require.NoError(t, err)

		req := h.games.requests[0]
		if heads {
			assert.Equal(t, "alice", req.WhiteUserID)
		} else {
			assert.Equal(t, "bob", req.WhiteUserID)
		}
		assert.Equal(t, vo.ModeCasual, req.Mode)
	}
}

func TestAcceptChallenge_Rejections(t *testing.T) {
	h := newHarness(t)
	v := h.create(t, CreateChallengeCommand{})
	accept := NewAcceptChallengeUseCase(h.deps)

	_, err := accept.Execute(context.Background(), v.ID, "carol")
	assert.ErrorIs(t, err, challenge.ErrNotRecipient)
	_, err = accept.Execute(context.Background(), v.ID, "alice")
	assert.ErrorIs(t, err, challenge.ErrNotRecipient)
	_, err = accept.Execute(context.Background(), "missing", "bob")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)

	_, err = accept.Execute(context.Background(), v.ID, "bob")
	require.NoError(t, err)
	_, err = accept.Execute(context.Background(), v.ID, "bob")
	assert.ErrorIs(t, err, challenge.ErrNotPending)
	assert.Len(t, h.games.requests, 1)
}

func TestAcceptChallenge_ExpiredIsMarked(t *testing.T) {
	h := newHarness(t)
	v := h.create(t, CreateChallengeCommand{})
	h.clock.Advance(challenge.DefaultTTL)

	_, err := NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), v.ID, "bob")

	assert.ErrorIs(t, err, challenge.ErrExpired)
	assert.Equal(t, challenge.StatusExpired, h.challenges.get(v.ID).Status)
	assert.Empty(t, h.games.requests)
}

func TestAcceptChallenge_GameFailureReopens(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("live game service down")
	h.games.CreateFn = func(ctx context.Context, req clients.MatchedGameRequest) (string, error) {
		return "", boom
	}
	v := h.create(t, CreateChallengeCommand{})

	_, err := NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), v.ID, "bob")
	assert.ErrorIs(t, err, boom)

	stored := h.challenges.get(v.ID)
	assert.Equal(t, challenge.StatusPending, stored.Status)
	assert.Empty(t, stored.GameID)

	h.games.CreateFn = nil
	got, err := NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), v.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "accepted", got.Status)
}

func TestDeclineAndCancelChallenge(t *testing.T) {
	h := newHarness(t)
	a := h.create(t, CreateChallengeCommand{})
	b := h.create(t, CreateChallengeCommand{})

	_, err := NewDeclineChallengeUseCase(h.deps).Execute(context.Background(), a.ID, "alice")
	assert.ErrorIs(t, err, challenge.ErrNotRecipient)
	got, err := NewDeclineChallengeUseCase(h.deps).Execute(context.Background(), a.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, "declined", got.Status)

	_, err = NewCancelChallengeUseCase(h.deps).Execute(context.Background(), b.ID, "bob")
	assert.ErrorIs(t, err, challenge.ErrNotChallenger)
	got, err = NewCancelChallengeUseCase(h.deps).Execute(context.Background(), b.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", got.Status)

	_, err = NewAcceptChallengeUseCase(h.deps).Execute(context.Background(), b.ID, "bob")
	assert.ErrorIs(t, err, challenge.ErrNotPending)
}

func TestGetChallenge_OnlyPlayersSeeIt(t *testing.T) {
	h := newHarness(t)
	v := h.create(t, CreateChallengeCommand{})
	get := NewGetChallengeUseCase(h.deps)

	for _, user := range []string{"alice", "bob"} {
		got, err := get.Execute(context.Background(), v.ID, user)
		require.NoError(t, err)
		assert.Equal(t, v.ID, got.ID)
	}
	_, err := get.Execute(context.Background(), v.ID, "carol")
	assert.ErrorIs(t, err, challenge.ErrChallengeNotFound)
}

func TestListIncomingChallenges_HidesLapsed(t *testing.T) {
	h := newHarness(t)
	old := h.create(t, CreateChallengeCommand{})
	h.clock.Advance(3 * time.Minute)
	fresh := h.create(t, CreateChallengeCommand{ChallengerID: "carol"})
	h.create(t, CreateChallengeCommand{OpponentID: "dave"})
	h.clock.Advance(2 * time.Minute)

	got, err := NewListIncomingChallengesUseCase(h.deps).Execute(context.Background(), "bob")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, fresh.ID, got[0].ID)
	assert.Equal(t, challenge.StatusPending, h.challenges.get(old.ID).Status)
}

func TestExpireChallenges(t *testing.T) {
	h := newHarness(t)
	old := h.create(t, CreateChallengeCommand{})
	h.clock.Advance(4 * time.Minute)
	fresh := h.create(t, CreateChallengeCommand{ChallengerID: "carol"})
	h.clock.Advance(time.Minute)

	n, err := NewExpireChallengesUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, challenge.StatusExpired, h.challenges.get(old.ID).Status)
	assert.Equal(t, challenge.StatusPending, h.challenges.get(fresh.ID).Status)
}
