package rating

// LeaderboardEntry is one row of a pool's materialised ranking.
type LeaderboardEntry struct {
	PoolCode  string
	UserID    string
	RatingInt int64
	Rank      int
}

// Rating returns the entry's rating on the public scale.
func (e LeaderboardEntry) Rating() float64 {
	return float64(e.RatingInt) / 100
}
