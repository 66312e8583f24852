package game

import (
	"github.com/chessforge/gamecore/internal/application/game/usecases"
)

type TimeControlRequest struct {
	Notation    string `json:"time_control" binding:"omitempty,time_control"`
	InitialMS   int64  `json:"initial_ms" binding:"min=0"`
	IncrementMS int64  `json:"increment_ms" binding:"min=0"`
}

func (r TimeControlRequest) input() usecases.TimeControlInput {
	return usecases.TimeControlInput{
		Notation:    r.Notation,
		InitialMS:   r.InitialMS,
		IncrementMS: r.IncrementMS,
	}
}

type CreateGameRequest struct {
	TimeControlRequest
	Variant         string `json:"variant"`
	ColorPreference string `json:"color_preference" binding:"omitempty,oneof=white black random"`
	Rated           bool   `json:"rated"`
	StartingFEN     string `json:"starting_fen" binding:"omitempty,fen"`
	IsOdds          bool   `json:"is_odds_game"`
	IsLocal         bool   `json:"is_local_game"`
}

// InternalCreateGameRequest is sent by matchmaking once a pairing is final.
type InternalCreateGameRequest struct {
	TimeControlRequest
	WhiteID        string         `json:"white_user_id" binding:"required"`
	BlackID        string         `json:"black_user_id" binding:"required"`
	Variant        string         `json:"variant"`
	Rated          bool           `json:"rated"`
	Mode           string         `json:"mode" binding:"omitempty,oneof=rated casual"`
	WhiteRating    *int           `json:"white_rating"`
	BlackRating    *int           `json:"black_rating"`
	RatingSnapshot map[string]int `json:"rating_snapshot"`
	MatchID        string         `json:"match_id"`
}

func (r InternalCreateGameRequest) rated() bool {
	return r.Rated || r.Mode == "rated"
}

// ratings prefers explicit fields over the snapshot keyed by colour.
func (r InternalCreateGameRequest) ratings() (white, black *int) {
	white, black = r.WhiteRating, r.BlackRating
	if v, ok := r.RatingSnapshot["white"]; ok && white == nil {
		white = &v
	}
	if v, ok := r.RatingSnapshot["black"]; ok && black == nil {
		black = &v
	}
	return white, black
}

type CreateBotGameRequest struct {
	TimeControlRequest
	Difficulty  string `json:"difficulty" binding:"required"`
	PlayerColor string `json:"player_color" binding:"omitempty,oneof=white black random"`
}

type JoinGameRequest struct {
	ColorPreference string `json:"color_preference" binding:"omitempty,oneof=white black random"`
}

type MoveRequest struct {
	From        string `json:"from" binding:"required,square"`
	To          string `json:"to" binding:"required,square"`
	Promotion   string `json:"promotion" binding:"omitempty,oneof=q r b n Q R B N"`
	MoveID      string `json:"move_id" binding:"max=128"`
	ExpectedPly *int   `json:"expected_ply" binding:"omitempty,min=0"`
}

type SetPositionRequest struct {
	FEN string `json:"fen" binding:"required,fen"`
}

type UpdateRatedRequest struct {
	Rated *bool `json:"rated" binding:"required"`
}
