package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/infrastructure/matchqueue"
)

type transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TicketMirror keeps a Redis copy of active tickets and their heartbeat.
type TicketMirror interface {
	Store(ctx context.Context, t *ticket.Ticket, now time.Time) error
	Remove(ctx context.Context, ticketID string) error
}

// PoolLocker elects a single matching leader per pool.
type PoolLocker interface {
	TryAcquire(ctx context.Context, poolKey string) (release func(context.Context), ok bool, err error)
}

// GameCreator starts the game of a finalized pairing and returns its id.
type GameCreator interface {
	CreateMatchedGame(ctx context.Context, req clients.MatchedGameRequest) (string, error)
}

// FailedMatchQueue parks pairings whose game could not be created.
type FailedMatchQueue interface {
	Enqueue(ctx context.Context, fm *matchqueue.FailedMatch) error
	DequeueReady(ctx context.Context, now time.Time, limit int) ([]*matchqueue.FailedMatch, error)
	Remove(ctx context.Context, matchID string) error
	IncrementRetry(ctx context.Context, fm *matchqueue.FailedMatch, reason string, now time.Time) (bool, error)
}
