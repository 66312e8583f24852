package usecases

import (
	"context"

	gameusecases "github.com/chessforge/gamecore/internal/application/game/usecases"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/breaker"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
)

type matchedGameCreator interface {
	Execute(ctx context.Context, cmd gameusecases.CreateGameCommand) (*gameusecases.GameView, error)
}

// LocalGameCreator creates matched games in this process when no remote
// live-game service is configured. Calls still pass through the live-game
// breaker so both deployments fail the same way.
type LocalGameCreator struct {
	create  matchedGameCreator
	breaker *breaker.Breaker
}

func NewLocalGameCreator(create matchedGameCreator, b *breaker.Breaker) *LocalGameCreator {
	return &LocalGameCreator{create: create, breaker: b}
}

func (c *LocalGameCreator) CreateMatchedGame(ctx context.Context, req clients.MatchedGameRequest) (string, error) {
	cmd := gameusecases.CreateGameCommand{
		WhiteID:     req.WhiteUserID,
		BlackID:     req.BlackUserID,
		TimeControl: gameusecases.TimeControlInput{Notation: req.TimeControl},
		Variant:     req.Variant,
		Rated:       req.Mode == vo.ModeRated,
		MatchID:     req.MatchID,
	}
	if r, ok := req.RatingSnapshot["white"]; ok {
		cmd.WhiteRating = &r
	}
	if r, ok := req.RatingSnapshot["black"]; ok {
		cmd.BlackRating = &r
	}

	run := func() (string, error) {
		view, err := c.create.Execute(ctx, cmd)
		if err != nil {
			return "", err
		}
		return view.ID, nil
	}
	if c.breaker == nil {
		return run()
	}
	return breaker.Do(c.breaker, run)
}
