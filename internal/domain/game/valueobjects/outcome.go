package valueobjects

type Result string

const (
	ResultWhiteWin Result = "1-0"
	ResultBlackWin Result = "0-1"
	ResultDraw     Result = "1/2-1/2"
)

func (r Result) IsValid() bool {
	return r == ResultWhiteWin || r == ResultBlackWin || r == ResultDraw
}

// WinFor returns the decisive result in favour of c.
func WinFor(c Color) Result {
	if c == White {
		return ResultWhiteWin
	}
	return ResultBlackWin
}

type EndReason string

const (
	EndCheckmate            EndReason = "checkmate"
	EndResignation          EndReason = "resignation"
	EndTimeout              EndReason = "timeout"
	EndStalemate            EndReason = "stalemate"
	EndInsufficientMaterial EndReason = "insufficient_material"
	EndFiftyMoveRule        EndReason = "fifty_move_rule"
	EndThreefoldRepetition  EndReason = "threefold_repetition"
	EndDrawAgreed           EndReason = "draw_agreed"
	EndAbandoned            EndReason = "abandoned"
)

var validEndReasons = map[EndReason]bool{
	EndCheckmate:            true,
	EndResignation:          true,
	EndTimeout:              true,
	EndStalemate:            true,
	EndInsufficientMaterial: true,
	EndFiftyMoveRule:        true,
	EndThreefoldRepetition:  true,
	EndDrawAgreed:           true,
	EndAbandoned:            true,
}

func (r EndReason) IsValid() bool {
	return validEndReasons[r]
}

// DecisionReason records which rule fixed the rated flag.
type DecisionReason string

const (
	DecisionManual             DecisionReason = "manual"
	DecisionLocalAuto          DecisionReason = "local_auto"
	DecisionRatingGapAuto      DecisionReason = "rating_gap_auto"
	DecisionCustomPositionAuto DecisionReason = "custom_position_auto"
	DecisionOddsAuto           DecisionReason = "odds_auto"
	DecisionBotGame            DecisionReason = "bot_game"
)

func (d DecisionReason) IsValid() bool {
	switch d {
	case DecisionManual, DecisionLocalAuto, DecisionRatingGapAuto,
		DecisionCustomPositionAuto, DecisionOddsAuto, DecisionBotGame:
		return true
	}
	return false
}
