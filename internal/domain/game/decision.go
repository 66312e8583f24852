package game

import (
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

// RatingPolicy holds the knobs of the rated/unrated arbitration.
type RatingPolicy struct {
	MaxRatingGap        int
	AllowCustomFENRated bool
	AllowOddsRated      bool
}

func DefaultRatingPolicy() RatingPolicy {
	return RatingPolicy{MaxRatingGap: 500}
}

type DecisionInput struct {
	RequestedRated bool
	IsLocal        bool
	Player1Rating  *int
	Player2Rating  *int
	HasCustomFEN   bool
	IsOdds         bool
	IsBotGame      bool
}

type Decision struct {
	Rated  bool
	Reason vo.DecisionReason
}

// Decide returns the authoritative rated flag. Rules are ordered and the first
// match wins; every automatic rule forces an unrated game.
func (p RatingPolicy) Decide(in DecisionInput) Decision {
	switch {
	case in.IsBotGame:
		return Decision{Rated: false, Reason: vo.DecisionBotGame}
	case in.IsLocal:
		return Decision{Rated: false, Reason: vo.DecisionLocalAuto}
	case in.HasCustomFEN && !p.AllowCustomFENRated:
		return Decision{Rated: false, Reason: vo.DecisionCustomPositionAuto}
	case in.IsOdds && !p.AllowOddsRated:
		return Decision{Rated: false, Reason: vo.DecisionOddsAuto}
	case in.Player1Rating != nil && in.Player2Rating != nil && absInt(*in.Player1Rating-*in.Player2Rating) > p.MaxRatingGap:
		return Decision{Rated: false, Reason: vo.DecisionRatingGapAuto}
	}
	return Decision{Rated: in.RequestedRated, Reason: vo.DecisionManual}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
