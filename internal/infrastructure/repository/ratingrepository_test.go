package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/db"
)

// openTestDB returns an in-memory sqlite database pinned to one connection,
// since every new :memory: connection would see an empty schema.
func openTestDB(t *testing.T, tables ...any) *gorm.DB {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(tables...))
	return conn
}

func setupRatingDB(t *testing.T) *gorm.DB {
	return openTestDB(t,
		&models.RatingPoolModel{},
		&models.UserRatingModel{},
		&models.RatingIngestionModel{},
		&models.RatingEventModel{},
		&models.EventOutboxModel{},
		&models.LeaderboardModel{},
		&models.BackfillJobModel{},
	)
}

func TestRatingPoolRepository_EnsureExists(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewRatingPoolRepository(conn)
	ctx := context.Background()

	blitz := rating.NewPool("blitz_standard", 0.5)
	require.NoError(t, repo.EnsureExists(ctx, blitz, rating.NewPool("rapid_standard", 0.5)))

	custom := blitz
	custom.Tau = 1.2
	require.NoError(t, repo.EnsureExists(ctx, custom))

	got, err := repo.GetByCode(ctx, "blitz_standard")
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.Tau)
	assert.Equal(t, rating.DefaultRD, got.DefaultRD)

	pools, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pools, 2)

	_, err = repo.GetByCode(ctx, "missing")
	assert.ErrorIs(t, err, rating.ErrPoolNotFound)
}

func TestUserRatingRepository(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewUserRatingRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	pool := rating.NewPool("blitz_standard", 0.5)

	missing, err := repo.Get(ctx, "u1", pool.Code)
	require.NoError(t, err)
	assert.Nil(t, missing)

	u := rating.NewUserRating("u1", pool, now)
	require.NoError(t, repo.Save(ctx, u))

	u.ApplyGame(rating.State{Rating: 1600, RD: 300, Volatility: 0.06}, now)
	require.NoError(t, repo.Save(ctx, u))

	got, err := repo.GetForUpdate(ctx, "u1", pool.Code)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1600.0, got.State.Rating)
	assert.Equal(t, 1, got.GamesPlayed)
	assert.True(t, got.Provisional)

	require.NoError(t, repo.Save(ctx, rating.NewUserRating("u2", pool, now)))
	require.NoError(t, repo.Save(ctx, rating.NewUserRating("u1", rating.NewPool("rapid_standard", 0.5), now)))

	byUser, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	bulk, err := repo.ListByUsers(ctx, []string{"u1", "u2", "u3"}, pool.Code)
	require.NoError(t, err)
	assert.Len(t, bulk, 2)
}

func TestRatingIngestionRepository_InsertDuplicate(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewRatingIngestionRepository(conn)
	ctx := context.Background()

	ing := &rating.Ingestion{
		GameID:      "g1",
		PoolCode:    "blitz_standard",
		WhiteUserID: "w",
		BlackUserID: "b",
		Result:      rating.WhiteWin,
		Rated:       true,
		EndedAt:     time.Now().UTC(),
	}
	require.NoError(t, repo.Insert(ctx, ing))
	assert.ErrorIs(t, repo.Insert(ctx, ing), rating.ErrDuplicateIngestion)

	got, err := repo.Get(ctx, "g1", "blitz_standard")
	require.NoError(t, err)
	assert.False(t, got.IsComplete())

	ing.Complete(1500, 1500, 1662.3, 1337.7, []byte(`{"white_rating_after":1662.3}`))
	require.NoError(t, repo.Update(ctx, ing))

	got, err = repo.Get(ctx, "g1", "blitz_standard")
	require.NoError(t, err)
	require.True(t, got.IsComplete())
	assert.InDelta(t, 1662.3, *got.WhiteRatingAfter, 1e-9)
	assert.JSONEq(t, `{"white_rating_after":1662.3}`, string(got.Response))

	none, err := repo.Get(ctx, "g2", "blitz_standard")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestEventOutboxRepository(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewEventOutboxRepository(conn)
	txMgr := db.NewTransactionManager(conn, 0)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	entries := []*rating.OutboxEntry{
		{ID: "o2", AggregateID: "u1:blitz_standard", EventType: rating.EventRatingUpdated, EventKey: "g2", Payload: []byte(`{"n":2}`), CreatedAt: base.Add(time.Second)},
		{ID: "o1", AggregateID: "u1:blitz_standard", EventType: rating.EventRatingUpdated, EventKey: "g1", Payload: []byte(`{"n":1}`), CreatedAt: base},
	}
	for _, e := range entries {
		require.NoError(t, repo.Create(ctx, e))
	}
	dup := *entries[0]
	dup.ID = "o3"
	require.NoError(t, repo.Create(ctx, &dup))

	err := txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		pending, err := repo.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, "o1", pending[0].ID)
		assert.JSONEq(t, `{"n":1}`, string(pending[0].Payload))
		return repo.MarkPublished(ctx, []string{"o1"}, base)
	})
	require.NoError(t, err)

	pending, err := repo.FetchUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "o2", pending[0].ID)
}

func TestLeaderboardRepository_Ranks(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewLeaderboardRepository(conn)
	ctx := context.Background()
	pool := "blitz_standard"

	for user, r := range map[string]float64{"a": 1500, "b": 1720.5, "c": 1610} {
		require.NoError(t, repo.Upsert(ctx, rating.LeaderboardEntry{PoolCode: pool, UserID: user, RatingInt: rating.RatingInt(r)}))
	}
	require.NoError(t, repo.RecomputeRanks(ctx, pool))

	entries, total, err := repo.List(ctx, pool, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, entries, 3)
	assert.Equal(t, "b", entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 1720.5, entries[0].Rating())
	assert.Equal(t, "a", entries[2].UserID)

	require.NoError(t, repo.Upsert(ctx, rating.LeaderboardEntry{PoolCode: pool, UserID: "a", RatingInt: rating.RatingInt(1800)}))
	require.NoError(t, repo.RecomputeRanks(ctx, pool))

	entries, _, err = repo.List(ctx, pool, 1, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].UserID)

	page, _, err := repo.List(ctx, pool, 10, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 3, page[0].Rank)

	entry, err := repo.Get(ctx, pool, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Rank)
	assert.Equal(t, 1720.5, entry.Rating())

	_, err = repo.Get(ctx, pool, "nobody")
	assert.ErrorIs(t, err, rating.ErrNotRanked)
	_, err = repo.Get(ctx, "bullet_standard", "b")
	assert.ErrorIs(t, err, rating.ErrNotRanked)
}

func TestBackfillJobRepository(t *testing.T) {
	conn := setupRatingDB(t)
	repo := NewBackfillJobRepository(conn)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	running, err := repo.GetRunning(ctx)
	require.NoError(t, err)
	assert.Nil(t, running)

	job := &rating.BackfillJob{
		ID:          "job-1",
		Status:      rating.BackfillRunning,
		WindowStart: now.Add(-time.Hour),
		WindowEnd:   now,
		StartedAt:   now,
	}
	require.NoError(t, repo.Create(ctx, job))

	running, err = repo.GetRunning(ctx)
	require.NoError(t, err)
	require.NotNil(t, running)
	assert.Equal(t, "job-1", running.ID)

	job.Processed = 4
	job.Finish(rating.BackfillCompleted, now)
	require.NoError(t, repo.Update(ctx, job))

	got, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillCompleted, got.Status)
	assert.Equal(t, 4, got.Processed)
	require.NotNil(t, got.FinishedAt)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, rating.ErrBackfillNotFound)
}
