package challenge

import (
	"context"

	"github.com/chessforge/gamecore/internal/application/challenge/usecases"
)

type createExecutor interface {
	Execute(ctx context.Context, cmd usecases.CreateChallengeCommand) (*usecases.ChallengeView, error)
}

// answerExecutor covers accept, decline, cancel and get, which all act on one
// challenge for one user.
type answerExecutor interface {
	Execute(ctx context.Context, challengeID, userID string) (*usecases.ChallengeView, error)
}

type incomingExecutor interface {
	Execute(ctx context.Context, userID string) ([]*usecases.ChallengeView, error)
}

type UseCases struct {
	Create   createExecutor
	Accept   answerExecutor
	Decline  answerExecutor
	Cancel   answerExecutor
	Get      answerExecutor
	Incoming incomingExecutor
}
