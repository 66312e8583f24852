package rating

import "time"

// Ingestion is the exactly-once guard for one (game, pool). A row whose
// after-ratings are still nil is being processed.
type Ingestion struct {
	GameID      string
	PoolCode    string
	WhiteUserID string
	BlackUserID string
	Result      GameResult
	Rated       bool
	EndedAt     time.Time

	WhiteRatingBefore *float64
	BlackRatingBefore *float64
	WhiteRatingAfter  *float64
	BlackRatingAfter  *float64

	// Response is the answer given to the first delivery. Replays return it
	// unchanged.
	Response []byte

	CreatedAt time.Time
}

func (i *Ingestion) IsComplete() bool {
	return i.WhiteRatingAfter != nil && i.BlackRatingAfter != nil
}

// Complete stores both sides' ratings around the update and the response
// that reported them.
func (i *Ingestion) Complete(whiteBefore, blackBefore, whiteAfter, blackAfter float64, response []byte) {
	i.Response = response
	i.WhiteRatingBefore = &whiteBefore
	i.BlackRatingBefore = &blackBefore
	i.WhiteRatingAfter = &whiteAfter
	i.BlackRatingAfter = &blackAfter
}
