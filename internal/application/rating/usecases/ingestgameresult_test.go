package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/rating"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

type ingestFixture struct {
	pools       *mockPoolRepository
	ratings     *mockUserRatingRepository
	ingestions  *mockIngestionRepository
	events      *mockEventRepository
	outbox      *mockOutboxRepository
	leaderboard *mockLeaderboardRepository
	tx          *passthroughTx
	uc          *IngestGameResultUseCase
}

func newIngestFixture() *ingestFixture {
	f := &ingestFixture{
		pools:       newMockPoolRepository("blitz_standard"),
		ratings:     newMockUserRatingRepository(),
		ingestions:  newMockIngestionRepository(),
		events:      &mockEventRepository{},
		outbox:      &mockOutboxRepository{},
		leaderboard: &mockLeaderboardRepository{},
		tx:          &passthroughTx{},
	}
	f.uc = NewIngestGameResultUseCase(f.pools, f.ratings, f.ingestions, f.events, f.outbox, f.leaderboard, f.tx, logger.NewNopLogger())
	return f
}

func blitzCommand(result string) IngestGameResultCommand {
	return IngestGameResultCommand{
		GameID:      "game-1",
		PoolCode:    "blitz_standard",
		WhiteUserID: "alice",
		BlackUserID: "bob",
		Result:      result,
		Rated:       true,
		EndedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestIngestGameResult_AppliesGlicko2(t *testing.T) {
	f := newIngestFixture()

	res, err := f.uc.Execute(context.Background(), blitzCommand("white_win"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Greater(t, res.White.Rating, rating.DefaultInitialRating)
	assert.Less(t, res.Black.Rating, rating.DefaultInitialRating)
	assert.InDelta(t, res.White.Rating-1500, 1500-res.Black.Rating, 1e-6)
	assert.Equal(t, 1, res.White.GamesPlayed)
	assert.True(t, res.White.Provisional)

	assert.Len(t, f.events.created, 2)
	for _, e := range f.events.created {
		assert.Equal(t, rating.ReasonGame, e.Reason)
		assert.Equal(t, "game-1", e.GameID)
	}

	require.Len(t, f.outbox.entries, 2)
	assert.Equal(t, "alice:blitz_standard", f.outbox.entries[0].AggregateID)
	assert.Equal(t, "bob:blitz_standard", f.outbox.entries[1].AggregateID)
	for _, e := range f.outbox.entries {
		assert.Equal(t, rating.EventRatingUpdated, e.EventType)
		assert.Equal(t, "game-1", e.EventKey)
	}

	var payload map[string]any
	require.NoError(t, json.Unmarshal(f.outbox.entries[0].Payload, &payload))
	assert.Equal(t, "rating.updated", payload["event_type"])
	assert.Equal(t, "blitz_standard", payload["pool_id"])
	assert.EqualValues(t, 1, payload["version"])

	assert.Len(t, f.leaderboard.upserts, 2)
	assert.Equal(t, []string{"blitz_standard"}, f.leaderboard.recomputed)

	ing, err := f.ingestions.Get(context.Background(), "game-1", "blitz_standard")
	require.NoError(t, err)
	require.True(t, ing.IsComplete())
	assert.Equal(t, 1500.0, *ing.WhiteRatingBefore)
	assert.Equal(t, res.White.Rating, *ing.WhiteRatingAfter)
}

func TestIngestGameResult_ExactlyOnce(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, blitzCommand("1-0"))
	require.NoError(t, err)

	second, err := f.uc.Execute(ctx, blitzCommand("1-0"))
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.White.Rating, second.WhiteRatingAfter)
	assert.Equal(t, first.Black.Rating, second.BlackRatingAfter)

	firstBody, err := json.Marshal(first)
	require.NoError(t, err)
	secondBody, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstBody), string(secondBody))
	assert.Contains(t, string(secondBody), `"rating_deviation"`)

	alice, err := f.ratings.Get(ctx, "alice", "blitz_standard")
	require.NoError(t, err)
	assert.Equal(t, 1, alice.GamesPlayed)
	assert.Len(t, f.events.created, 2)
	assert.Len(t, f.outbox.entries, 2)
}

func TestIngestGameResult_InFlight(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	require.NoError(t, f.ingestions.Insert(ctx, &rating.Ingestion{GameID: "game-1", PoolCode: "blitz_standard"}))

	_, err := f.uc.Execute(ctx, blitzCommand("draw"))
	require.Error(t, err)
	assert.ErrorIs(t, err, rating.ErrIngestionInFlight)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestIngestGameResult_Draw(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.ratings.put(&rating.UserRating{
		UserID:   "alice",
		PoolCode: "blitz_standard",
		State:    rating.State{Rating: 1800, RD: 80, Volatility: 0.06},
	})

	res, err := f.uc.Execute(ctx, blitzCommand("1/2-1/2"))
	require.NoError(t, err)
	assert.Less(t, res.White.Rating, 1800.0)
	assert.Greater(t, res.Black.Rating, 1500.0)
}

func TestIngestGameResult_LockedSideKeepsRating(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	f.ratings.put(&rating.UserRating{
		UserID:      "alice",
		PoolCode:    "blitz_standard",
		State:       rating.State{Rating: 2000, RD: 60, Volatility: 0.06},
		GamesPlayed: 40,
		Locked:      true,
	})

	res, err := f.uc.Execute(ctx, blitzCommand("black_win"))
	require.NoError(t, err)
	assert.Equal(t, 2000.0, res.White.Rating)
	assert.Equal(t, 41, res.White.GamesPlayed)
	assert.Greater(t, res.Black.Rating, 1500.0)

	assert.Len(t, f.events.created, 1)
	require.Len(t, f.outbox.entries, 1)
	assert.Equal(t, "bob:blitz_standard", f.outbox.entries[0].AggregateID)
}

func TestIngestGameResult_UnratedLeavesRatings(t *testing.T) {
	f := newIngestFixture()
	cmd := blitzCommand("1-0")
	cmd.Rated = false

	res, err := f.uc.Execute(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, res.White.Rating)
	assert.Zero(t, f.tx.calls)
	assert.Empty(t, f.outbox.entries)
}

func TestIngestGameResult_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IngestGameResultCommand)
		want   error
	}{
		{"same player", func(c *IngestGameResultCommand) { c.BlackUserID = c.WhiteUserID }, rating.ErrSamePlayer},
		{"bad result", func(c *IngestGameResultCommand) { c.Result = "white" }, rating.ErrInvalidResult},
		{"unknown pool", func(c *IngestGameResultCommand) { c.PoolCode = "hyper_standard" }, rating.ErrPoolNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newIngestFixture()
			cmd := blitzCommand("1-0")
			tt.mutate(&cmd)

			_, err := f.uc.Execute(context.Background(), cmd)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, f.tx.calls)
		})
	}
}

func TestIngestGameResult_StorageErrorPropagates(t *testing.T) {
	f := newIngestFixture()
	boom := errors.New("disk full")
	f.ratings.SaveFunc = func(ctx context.Context, u *rating.UserRating) error { return boom }

	_, err := f.uc.Execute(context.Background(), blitzCommand("1-0"))
	assert.ErrorIs(t, err, boom)
}

func TestIngestGameResult_ReplayWithoutStoredResponse(t *testing.T) {
	f := newIngestFixture()
	ctx := context.Background()
	ing := &rating.Ingestion{GameID: "game-1", PoolCode: "blitz_standard", WhiteUserID: "alice", BlackUserID: "bob"}
	ing.Complete(1500, 1500, 1662.3, 1337.7, nil)
	require.NoError(t, f.ingestions.Insert(ctx, ing))

	res, err := f.uc.Execute(ctx, blitzCommand("1-0"))
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, 1662.3, res.WhiteRatingAfter)
	assert.Equal(t, 1337.7, res.BlackRatingAfter)
	assert.Equal(t, "alice", res.White.UserID)
}
