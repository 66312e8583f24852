package ticket

import (
	"context"
	"time"
)

// Repository persists tickets with their player rows. Methods that lock
// hold the row locks until the surrounding transaction ends.
type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	Update(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, ticketID string) (*Ticket, error)
	GetForUpdate(ctx context.Context, ticketID string) (*Ticket, error)

	// FindByPlayers returns every ticket, in any status, that seats one of playerIDs.
	FindByPlayers(ctx context.Context, playerIDs []string) ([]*Ticket, error)

	ListProposable(ctx context.Context, poolKey string) ([]*Ticket, error)
	ListPoolsWithProposable(ctx context.Context, minTickets int) ([]string, error)
	LockForProposal(ctx context.Context, ticketIDs []string) ([]*Ticket, error)
	ListByProposalForUpdate(ctx context.Context, proposalID string) ([]*Ticket, error)

	FindHeartbeatLapsed(ctx context.Context, now time.Time) ([]*Ticket, error)
	FindQueuedBefore(ctx context.Context, cutoff time.Time) ([]*Ticket, error)
	FindExpiredProposals(ctx context.Context, now time.Time) ([]string, error)
}

type MatchRecordRepository interface {
	Create(ctx context.Context, m *MatchRecord) error
	GetByID(ctx context.Context, matchID string) (*MatchRecord, error)
}
