package mappers

import (
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
)

// GameToModel flattens a game and its moves into rows.
func GameToModel(g *game.Game) *models.GameModel {
	s := g.State()
	m := &models.GameModel{
		ID:             s.ID,
		CreatorID:      s.CreatorID,
		WhiteID:        optional(s.WhiteID),
		BlackID:        optional(s.BlackID),
		BotID:          optional(s.BotID),
		BotColor:       optional(string(s.BotColor)),
		Status:         string(s.Status),
		Rated:          s.Rated,
		DecisionReason: string(s.DecisionReason),
		Variant:        s.Variant,
		InitialMS:      s.TimeControl.InitialMS,
		IncrementMS:    s.TimeControl.IncrementMS,
		WhiteClockMS:   s.WhiteClockMS,
		BlackClockMS:   s.BlackClockMS,
		SideToMove:     string(s.SideToMove),
		FEN:            s.FEN,
		StartingFEN:    optional(s.StartingFEN),
		IsOdds:         s.IsOdds,
		IsLocal:        s.IsLocal,
		Result:         optional(string(s.Result)),
		EndReason:      optional(string(s.EndReason)),
		DrawOfferBy:    optional(string(s.DrawOfferBy)),
		CreatedAt:      s.CreatedAt,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	m.Moves = MovesToModels(s.ID, s.Moves)
	return m
}

func MovesToModels(gameID string, moves []game.Move) []models.GameMoveModel {
	out := make([]models.GameMoveModel, len(moves))
	for i, mv := range moves {
		out[i] = models.GameMoveModel{
			GameID:     gameID,
			Ply:        mv.Ply,
			MoveNumber: mv.MoveNumber,
			Color:      string(mv.Color),
			FromSquare: mv.FromSquare,
			ToSquare:   mv.ToSquare,
			Promotion:  optional(mv.Promotion),
			SAN:        mv.SAN,
			FENAfter:   mv.FENAfter,
			PlayedAt:   mv.PlayedAt,
			ElapsedMS:  mv.ElapsedMS,
		}
	}
	return out
}

// GameToDomain rebuilds the aggregate. Moves must already be ordered by ply.
func GameToDomain(m *models.GameModel) (*game.Game, error) {
	moves := make([]game.Move, len(m.Moves))
	for i, mv := range m.Moves {
		moves[i] = game.Move{
			Ply:        mv.Ply,
			MoveNumber: mv.MoveNumber,
			Color:      vo.Color(mv.Color),
			FromSquare: mv.FromSquare,
			ToSquare:   mv.ToSquare,
			Promotion:  deref(mv.Promotion),
			SAN:        mv.SAN,
			FENAfter:   mv.FENAfter,
			PlayedAt:   mv.PlayedAt.UTC(),
			ElapsedMS:  mv.ElapsedMS,
		}
	}

	return game.ReconstructGame(game.State{
		ID:             m.ID,
		CreatorID:      m.CreatorID,
		WhiteID:        deref(m.WhiteID),
		BlackID:        deref(m.BlackID),
		BotID:          deref(m.BotID),
		BotColor:       vo.Color(deref(m.BotColor)),
		Status:         vo.GameStatus(m.Status),
		Rated:          m.Rated,
		DecisionReason: vo.DecisionReason(m.DecisionReason),
		Variant:        m.Variant,
		TimeControl:    vo.TimeControl{InitialMS: m.InitialMS, IncrementMS: m.IncrementMS},
		WhiteClockMS:   m.WhiteClockMS,
		BlackClockMS:   m.BlackClockMS,
		SideToMove:     vo.Color(m.SideToMove),
		FEN:            m.FEN,
		StartingFEN:    deref(m.StartingFEN),
		IsOdds:         m.IsOdds,
		IsLocal:        m.IsLocal,
		Moves:          moves,
		Result:         vo.Result(deref(m.Result)),
		EndReason:      vo.EndReason(deref(m.EndReason)),
		DrawOfferBy:    vo.Color(deref(m.DrawOfferBy)),
		CreatedAt:      m.CreatedAt.UTC(),
		StartedAt:      utcPtr(m.StartedAt),
		EndedAt:        utcPtr(m.EndedAt),
		UpdatedAt:      m.UpdatedAt.UTC(),
	})
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
