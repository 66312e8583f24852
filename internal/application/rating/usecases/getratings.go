package usecases

import (
	"context"
	"math"

	"github.com/chessforge/gamecore/internal/domain/rating"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const maxBulkUsers = 200

type RatingView struct {
	UserID        string  `json:"user_id"`
	PoolID        string  `json:"pool_id"`
	Rating        float64 `json:"rating"`
	RD            float64 `json:"rating_deviation"`
	Volatility    float64 `json:"volatility"`
	GamesPlayed   int     `json:"games_played"`
	Provisional   bool    `json:"provisional"`
	Locked        bool    `json:"locked"`
	LastUpdatedAt string  `json:"last_updated_at"`
}

func toRatingView(u *rating.UserRating) RatingView {
	return RatingView{
		UserID:        u.UserID,
		PoolID:        u.PoolCode,
		Rating:        u.State.Rating,
		RD:            u.State.RD,
		Volatility:    u.State.Volatility,
		GamesPlayed:   u.GamesPlayed,
		Provisional:   u.Provisional,
		Locked:        u.Locked,
		LastUpdatedAt: u.LastUpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// GetRatingsUseCase serves the read side: per-user, per-pool, bulk and the
// pool catalogue.
type GetRatingsUseCase struct {
	pools   rating.PoolRepository
	ratings rating.UserRatingRepository
	logger  logger.Interface
}

func NewGetRatingsUseCase(pools rating.PoolRepository, ratings rating.UserRatingRepository, logger logger.Interface) *GetRatingsUseCase {
	return &GetRatingsUseCase{pools: pools, ratings: ratings, logger: logger}
}

func (uc *GetRatingsUseCase) ForUser(ctx context.Context, userID string) ([]RatingView, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user_id is required")
	}
	rows, err := uc.ratings.ListByUser(ctx, userID)
	if err != nil {
		uc.logger.Errorw("failed to list ratings", "user_id", userID, "error", err)
		return nil, err
	}
	views := make([]RatingView, len(rows))
	for i, r := range rows {
		views[i] = toRatingView(r)
	}
	return views, nil
}

func (uc *GetRatingsUseCase) ForPool(ctx context.Context, userID, poolCode string) (*RatingView, error) {
	if _, err := uc.pools.GetByCode(ctx, poolCode); err != nil {
		return nil, err
	}
	u, err := uc.ratings.Get(ctx, userID, poolCode)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, rating.ErrRatingNotFound
	}
	view := toRatingView(u)
	return &view, nil
}

type BulkRatingsCommand struct {
	UserIDs  []string
	PoolCode string
}

// Bulk returns the ratings of the listed users; missing players are omitted.
func (uc *GetRatingsUseCase) Bulk(ctx context.Context, cmd BulkRatingsCommand) ([]RatingView, error) {
	if len(cmd.UserIDs) == 0 {
		return []RatingView{}, nil
	}
	if len(cmd.UserIDs) > maxBulkUsers {
		return nil, apperrors.NewValidationError("too many user_ids")
	}
	rows, err := uc.ratings.ListByUsers(ctx, cmd.UserIDs, cmd.PoolCode)
	if err != nil {
		uc.logger.Errorw("failed to load bulk ratings", "count", len(cmd.UserIDs), "error", err)
		return nil, err
	}
	views := make([]RatingView, len(rows))
	for i, r := range rows {
		views[i] = toRatingView(r)
	}
	return views, nil
}

func (uc *GetRatingsUseCase) Pools(ctx context.Context) ([]rating.Pool, error) {
	return uc.pools.List(ctx)
}

// CurrentRating returns the rounded rating of userID in the pool a game with
// the given time control and variant counts towards, or nil when the player
// has no rating there yet.
func (uc *GetRatingsUseCase) CurrentRating(ctx context.Context, userID string, initialMS int64, variant string) (*int, error) {
	u, err := uc.ratings.Get(ctx, userID, rating.PoolCodeFor(initialMS, variant))
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, nil
	}
	r := int(math.Round(u.State.Rating))
	return &r, nil
}
