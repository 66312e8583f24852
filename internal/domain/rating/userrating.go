package rating

import "time"

// UserRating is a player's standing in one pool.
type UserRating struct {
	UserID        string
	PoolCode      string
	State         State
	GamesPlayed   int
	Provisional   bool
	Locked        bool
	LastUpdatedAt time.Time
}

// NewUserRating starts userID at the pool's initial rating.
func NewUserRating(userID string, pool Pool, now time.Time) *UserRating {
	return &UserRating{
		UserID:        userID,
		PoolCode:      pool.Code,
		State:         pool.InitialState(),
		Provisional:   true,
		LastUpdatedAt: now,
	}
}

// ApplyGame records one more game. A locked rating keeps its state.
func (u *UserRating) ApplyGame(after State, now time.Time) {
	if !u.Locked {
		u.State = after
	}
	u.GamesPlayed++
	u.Provisional = u.GamesPlayed < ProvisionalGames
	u.LastUpdatedAt = now
}

// RatingInt is the leaderboard form of a rating, in hundredths.
func RatingInt(r float64) int64 {
	return int64(r * 100)
}
