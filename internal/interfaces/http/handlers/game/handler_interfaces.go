package game

import (
	"context"

	"github.com/chessforge/gamecore/internal/application/game/usecases"
)

type createChallengeExecutor interface {
	Execute(ctx context.Context, cmd usecases.CreateChallengeCommand) (*usecases.GameView, error)
}

type createGameExecutor interface {
	Execute(ctx context.Context, cmd usecases.CreateGameCommand) (*usecases.GameView, error)
}

type createBotGameExecutor interface {
	Execute(ctx context.Context, cmd usecases.CreateBotGameCommand) (*usecases.GameView, error)
}

type joinExecutor interface {
	Execute(ctx context.Context, cmd usecases.JoinGameCommand) (*usecases.GameView, error)
}

type moveExecutor interface {
	Execute(ctx context.Context, cmd usecases.PlayMoveCommand) (*usecases.PlayMoveResult, error)
}

type resignExecutor interface {
	Execute(ctx context.Context, cmd usecases.ResignCommand) (*usecases.GameView, error)
}

type takebackExecutor interface {
	Execute(ctx context.Context, cmd usecases.TakebackCommand) (*usecases.TakebackResult, error)
}

type setPositionExecutor interface {
	Execute(ctx context.Context, cmd usecases.SetPositionCommand) (*usecases.GameView, error)
}

type updateRatedExecutor interface {
	Execute(ctx context.Context, cmd usecases.UpdateRatedCommand) (*usecases.GameView, error)
}

type drawExecutor interface {
	Offer(ctx context.Context, cmd usecases.DrawCommand) (*usecases.GameView, error)
	Accept(ctx context.Context, cmd usecases.DrawCommand) (*usecases.GameView, error)
}

type gameReader interface {
	Execute(ctx context.Context, gameID string) (*usecases.GameView, error)
	LegalMoves(ctx context.Context, gameID string) (*usecases.LegalMovesResult, error)
}

type UseCases struct {
	CreateChallenge createChallengeExecutor
	CreateGame      createGameExecutor
	CreateBotGame   createBotGameExecutor
	Join            joinExecutor
	Move            moveExecutor
	Resign          resignExecutor
	Takeback        takebackExecutor
	SetPosition     setPositionExecutor
	UpdateRated     updateRatedExecutor
	Draw            drawExecutor
	Get             gameReader
}
