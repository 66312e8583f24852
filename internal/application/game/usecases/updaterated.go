package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

type UpdateRatedCommand struct {
	GameID   string
	PlayerID string
	Rated    bool
}

// UpdateRatedUseCase lets the creator toggle the rated flag while the game
// waits. The decision engine still has the last word.
type UpdateRatedUseCase struct {
	w *gameWriter
}

func NewUpdateRatedUseCase(deps Dependencies) *UpdateRatedUseCase {
	return &UpdateRatedUseCase{w: newGameWriter(deps)}
}

func (uc *UpdateRatedUseCase) Execute(ctx context.Context, cmd UpdateRatedCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing update rated use case",
		"game_id", cmd.GameID,
		"player_id", cmd.PlayerID,
		"rated", cmd.Rated,
	)

	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		decision := uc.w.Policy.Decide(g.DecisionInput(cmd.Rated))
		return g.UpdateRated(cmd.PlayerID, decision, now)
	})
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)

	uc.w.Logger.Infow("rated status updated",
		"game_id", g.ID(),
		"rated", g.Rated(),
		"decision_reason", g.DecisionReason(),
	)
	return ToGameView(g, uc.w.now()), nil
}
