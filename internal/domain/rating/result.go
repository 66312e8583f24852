package rating

import "strings"

// GameResult is the outcome of a game from white's perspective.
type GameResult string

const (
	WhiteWin GameResult = "white_win"
	BlackWin GameResult = "black_win"
	Draw     GameResult = "draw"
)

func (r GameResult) IsValid() bool {
	return r == WhiteWin || r == BlackWin || r == Draw
}

// Scores converts r to (s_white, s_black).
func (r GameResult) Scores() (white, black float64) {
	switch r {
	case WhiteWin:
		return 1, 0
	case BlackWin:
		return 0, 1
	default:
		return 0.5, 0.5
	}
}

// ParseGameResult accepts both the rating form and board notation.
func ParseGameResult(s string) (GameResult, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white_win", "1-0", "1_0":
		return WhiteWin, true
	case "black_win", "0-1", "0_1":
		return BlackWin, true
	case "draw", "1/2-1/2", "1/2_1/2", "0.5", "½-½":
		return Draw, true
	}
	return "", false
}
