package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

type TakebackCommand struct {
	GameID   string
	PlayerID string
}

type TakebackResult struct {
	Game  *GameView  `json:"game"`
	Taken *game.Move `json:"taken_back"`
}

// TakebackUseCase pops the last move of an unrated game.
type TakebackUseCase struct {
	w *gameWriter
}

func NewTakebackUseCase(deps Dependencies) *TakebackUseCase {
	return &TakebackUseCase{w: newGameWriter(deps)}
}

func (uc *TakebackUseCase) Execute(ctx context.Context, cmd TakebackCommand) (*TakebackResult, error) {
	uc.w.Logger.Infow("executing takeback use case", "game_id", cmd.GameID, "player_id", cmd.PlayerID)

	var taken *game.Move
	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		var err error
		taken, err = g.Takeback(cmd.PlayerID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)

	uc.w.Logger.Infow("move taken back", "game_id", g.ID(), "ply", taken.Ply)
	return &TakebackResult{Game: ToGameView(g, uc.w.now()), Taken: taken}, nil
}
