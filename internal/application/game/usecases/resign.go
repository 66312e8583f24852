package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

type ResignCommand struct {
	GameID   string
	PlayerID string
}

type ResignUseCase struct {
	w *gameWriter
}

func NewResignUseCase(deps Dependencies) *ResignUseCase {
	return &ResignUseCase{w: newGameWriter(deps)}
}

func (uc *ResignUseCase) Execute(ctx context.Context, cmd ResignCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing resign use case", "game_id", cmd.GameID, "player_id", cmd.PlayerID)

	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		return g.Resign(cmd.PlayerID, now)
	})
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)

	uc.w.Logger.Infow("player resigned", "game_id", g.ID(), "player_id", cmd.PlayerID, "result", g.Result())
	return ToGameView(g, uc.w.now()), nil
}
