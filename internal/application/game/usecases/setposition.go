package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

type SetPositionCommand struct {
	GameID   string
	PlayerID string
	FEN      string
}

// SetPositionUseCase edits the starting position of an unrated game before
// it starts.
type SetPositionUseCase struct {
	w *gameWriter
}

func NewSetPositionUseCase(deps Dependencies) *SetPositionUseCase {
	return &SetPositionUseCase{w: newGameWriter(deps)}
}

func (uc *SetPositionUseCase) Execute(ctx context.Context, cmd SetPositionCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing set position use case", "game_id", cmd.GameID, "player_id", cmd.PlayerID)

	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		return g.SetPosition(cmd.PlayerID, cmd.FEN, now)
	})
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)
	return ToGameView(g, uc.w.now()), nil
}
