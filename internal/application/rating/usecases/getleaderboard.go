package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
)

type GetLeaderboardQuery struct {
	PoolCode string
	Limit    int
	Offset   int
}

type LeaderboardRow struct {
	Rank   int     `json:"rank"`
	UserID string  `json:"user_id"`
	Rating float64 `json:"rating"`
}

type GetLeaderboardResult struct {
	PoolID  string           `json:"pool_id"`
	Total   int64            `json:"total"`
	Entries []LeaderboardRow `json:"entries"`
}

type GetLeaderboardUseCase struct {
	pools       rating.PoolRepository
	leaderboard rating.LeaderboardRepository
	logger      logger.Interface
}

func NewGetLeaderboardUseCase(pools rating.PoolRepository, leaderboard rating.LeaderboardRepository, logger logger.Interface) *GetLeaderboardUseCase {
	return &GetLeaderboardUseCase{pools: pools, leaderboard: leaderboard, logger: logger}
}

func (uc *GetLeaderboardUseCase) Execute(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if _, err := uc.pools.GetByCode(ctx, q.PoolCode); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	offset := max(q.Offset, 0)

	entries, total, err := uc.leaderboard.List(ctx, q.PoolCode, limit, offset)
	if err != nil {
		uc.logger.Errorw("failed to list leaderboard", "pool_code", q.PoolCode, "error", err)
		return nil, err
	}

	rows := make([]LeaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = LeaderboardRow{Rank: e.Rank, UserID: e.UserID, Rating: e.Rating()}
	}
	return &GetLeaderboardResult{PoolID: q.PoolCode, Total: total, Entries: rows}, nil
}

// Entry returns one user's rank in a pool.
func (uc *GetLeaderboardUseCase) Entry(ctx context.Context, poolCode, userID string) (*LeaderboardRow, error) {
	if _, err := uc.pools.GetByCode(ctx, poolCode); err != nil {
		return nil, err
	}
	e, err := uc.leaderboard.Get(ctx, poolCode, userID)
	if err != nil {
		return nil, err
	}
	return &LeaderboardRow{Rank: e.Rank, UserID: e.UserID, Rating: e.Rating()}, nil
}
