package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

// GetGameUseCase reads games through the Redis cache.
type GetGameUseCase struct {
	w *gameWriter
}

func NewGetGameUseCase(deps Dependencies) *GetGameUseCase {
	return &GetGameUseCase{w: newGameWriter(deps)}
}

func (uc *GetGameUseCase) Execute(ctx context.Context, gameID string) (*GameView, error) {
	g, err := uc.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return ToGameView(g, uc.w.now()), nil
}

type LegalMovesResult struct {
	GameID     string   `json:"game_id"`
	FEN        string   `json:"fen"`
	SideToMove vo.Color `json:"side_to_move"`
	Moves      []string `json:"legal_moves"`
}

// LegalMoves lists the UCI moves available to the side to move. A game that
// is not in progress has none.
func (uc *GetGameUseCase) LegalMoves(ctx context.Context, gameID string) (*LegalMovesResult, error) {
	g, err := uc.load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	res := &LegalMovesResult{
		GameID:     g.ID(),
		FEN:        g.FEN(),
		SideToMove: g.SideToMove(),
		Moves:      []string{},
	}
	if g.Status() != vo.StatusInProgress {
		return res, nil
	}
	moves, err := game.LegalMoves(g.FEN())
	if err != nil {
		uc.w.Logger.Errorw("stored position does not parse", "game_id", g.ID(), "fen", g.FEN(), "error", err)
		return nil, err
	}
	res.Moves = moves
	return res, nil
}

func (uc *GetGameUseCase) load(ctx context.Context, gameID string) (*game.Game, error) {
	if uc.w.Cache == nil {
		return uc.w.Games.GetByID(ctx, gameID)
	}
	state, err := uc.w.Cache.GetOrLoad(ctx, gameID, func(ctx context.Context) (*game.State, error) {
		g, err := uc.w.Games.GetByID(ctx, gameID)
		if err != nil {
			return nil, err
		}
		s := g.State()
		return &s, nil
	})
	if err != nil {
		return nil, err
	}
	return game.ReconstructGame(*state)
}
