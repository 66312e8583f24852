package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/infrastructure/replay"
)

type transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReplayGuard reserves move signatures so a resubmitted move gets the stored
// response instead of being applied twice.
type ReplayGuard interface {
	Reserve(ctx context.Context, gameID, signature string) (*replay.Outcome, error)
	Complete(ctx context.Context, gameID, signature string, response []byte) error
	Release(ctx context.Context, gameID, signature string) error
}

// RatingLookup reads a player's current rating in the pool a game counts
// towards. A player without a rating yields nil.
type RatingLookup interface {
	CurrentRating(ctx context.Context, userID string, initialMS int64, variant string) (*int, error)
}

// BotMover obtains the next move of a bot, remotely or in process.
type BotMover interface {
	RequestMove(ctx context.Context, botID string, req bot.MoveRequest) (*bot.MoveResponse, error)
}

// BotTurnScheduler is told about games in which the bot has to move next.
type BotTurnScheduler interface {
	ScheduleBotMove(gameID string)
}
