package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

func TestGetRatings(t *testing.T) {
	pools := newMockPoolRepository("blitz_standard", "rapid_standard")
	ratings := newMockUserRatingRepository()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ratings.put(rating.NewUserRating("alice", pools.pools["blitz_standard"], now))
	ratings.put(rating.NewUserRating("alice", pools.pools["rapid_standard"], now))
	ratings.put(rating.NewUserRating("bob", pools.pools["blitz_standard"], now))
	uc := NewGetRatingsUseCase(pools, ratings, logger.NewNopLogger())
	ctx := context.Background()

	t.Run("all pools of a user", func(t *testing.T) {
		views, err := uc.ForUser(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, views, 2)
		assert.Equal(t, "blitz_standard", views[0].PoolID)
		assert.True(t, views[0].Provisional)
	})

	t.Run("single pool", func(t *testing.T) {
		view, err := uc.ForPool(ctx, "bob", "blitz_standard")
		require.NoError(t, err)
		assert.Equal(t, 1500.0, view.Rating)

		_, err = uc.ForPool(ctx, "bob", "rapid_standard")
		assert.ErrorIs(t, err, rating.ErrRatingNotFound)

		_, err = uc.ForPool(ctx, "bob", "nope")
		assert.ErrorIs(t, err, rating.ErrPoolNotFound)
	})

	t.Run("bulk omits unknown users", func(t *testing.T) {
		views, err := uc.Bulk(ctx, BulkRatingsCommand{UserIDs: []string{"alice", "bob", "carol"}, PoolCode: "blitz_standard"})
		require.NoError(t, err)
		assert.Len(t, views, 2)

		too := make([]string, maxBulkUsers+1)
		_, err = uc.Bulk(ctx, BulkRatingsCommand{UserIDs: too})
		assert.Error(t, err)
	})

	t.Run("current rating by time control", func(t *testing.T) {
		r, err := uc.CurrentRating(ctx, "bob", 300_000, "")
		require.NoError(t, err)
		require.NotNil(t, r)
		assert.Equal(t, 1500, *r)

		none, err := uc.CurrentRating(ctx, "bob", 600_000, "standard")
		require.NoError(t, err)
		assert.Nil(t, none)
	})
}

func TestGetLeaderboard_ClampsPaging(t *testing.T) {
	var gotLimit, gotOffset int
	board := &mockLeaderboardRepository{
		ListFunc: func(ctx context.Context, poolCode string, limit, offset int) ([]rating.LeaderboardEntry, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []rating.LeaderboardEntry{{PoolCode: poolCode, UserID: "alice", RatingInt: 182345, Rank: 1}}, 1, nil
		},
	}
	uc := NewGetLeaderboardUseCase(newMockPoolRepository("blitz_standard"), board, logger.NewNopLogger())

	res, err := uc.Execute(context.Background(), GetLeaderboardQuery{PoolCode: "blitz_standard", Limit: 10_000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, maxLeaderboardLimit, gotLimit)
	assert.Zero(t, gotOffset)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, 1823.45, res.Entries[0].Rating)

	_, err = uc.Execute(context.Background(), GetLeaderboardQuery{PoolCode: "missing"})
	assert.ErrorIs(t, err, rating.ErrPoolNotFound)
}

func TestGetLeaderboard_Entry(t *testing.T) {
	board := &mockLeaderboardRepository{upserts: []rating.LeaderboardEntry{
		{PoolCode: "blitz_standard", UserID: "alice", RatingInt: 182345, Rank: 3},
	}}
	uc := NewGetLeaderboardUseCase(newMockPoolRepository("blitz_standard"), board, logger.NewNopLogger())
	ctx := context.Background()

	row, err := uc.Entry(ctx, "blitz_standard", "alice")
	require.NoError(t, err)
	assert.Equal(t, &LeaderboardRow{Rank: 3, UserID: "alice", Rating: 1823.45}, row)

	_, err = uc.Entry(ctx, "blitz_standard", "bob")
	assert.ErrorIs(t, err, rating.ErrNotRanked)

	_, err = uc.Entry(ctx, "missing", "alice")
	assert.ErrorIs(t, err, rating.ErrPoolNotFound)
}
