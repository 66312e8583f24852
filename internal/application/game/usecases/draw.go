package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
)

type DrawCommand struct {
	GameID   string
	PlayerID string
}

// DrawUseCase handles draw offers; an accepted offer ends the game as
// draw_agreed.
type DrawUseCase struct {
	w *gameWriter
}

func NewDrawUseCase(deps Dependencies) *DrawUseCase {
	return &DrawUseCase{w: newGameWriter(deps)}
}

func (uc *DrawUseCase) Offer(ctx context.Context, cmd DrawCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing offer draw use case", "game_id", cmd.GameID, "player_id", cmd.PlayerID)
	return uc.run(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		return g.OfferDraw(cmd.PlayerID, now)
	})
}

func (uc *DrawUseCase) Accept(ctx context.Context, cmd DrawCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing accept draw use case", "game_id", cmd.GameID, "player_id", cmd.PlayerID)
	return uc.run(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		return g.AcceptDraw(cmd.PlayerID, now)
	})
}

func (uc *DrawUseCase) run(ctx context.Context, gameID string, fn func(g *game.Game, now time.Time) error) (*GameView, error) {
	g, evs, err := uc.w.mutate(ctx, gameID, fn)
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)
	return ToGameView(g, uc.w.now()), nil
}
