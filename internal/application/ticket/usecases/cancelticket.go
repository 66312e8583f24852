package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type CancelTicketCommand struct {
	TicketID string
}

// CancelTicketUseCase withdraws a ticket. When the ticket was in a proposal
// the other tickets of that proposal go back to the queue.
type CancelTicketUseCase struct {
	m *matchmaker
}

func NewCancelTicketUseCase(deps Dependencies) *CancelTicketUseCase {
	return &CancelTicketUseCase{m: newMatchmaker(deps)}
}

func (uc *CancelTicketUseCase) Execute(ctx context.Context, cmd CancelTicketCommand) (*dto.TicketDTO, error) {
	uc.m.Logger.Infow("executing cancel ticket use case", "ticket_id", cmd.TicketID)
	if cmd.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}

	var (
		cancelled *ticket.Ticket
		requeued  []*ticket.Ticket
	)
	err := uc.m.inTx(ctx, "cancel", func(ctx context.Context, now time.Time) error {
		t, err := uc.m.Tickets.GetForUpdate(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		if t.Status() == vo.StatusProposing {
			requeued, err = uc.m.withdraw(ctx, t, now)
			return err
		}
		if err := t.Cancel(now); err != nil {
			return err
		}
		if err := uc.m.Tickets.Update(ctx, t); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		cancelled, requeued = requeued[0], requeued[1:]
	}
	uc.m.mirror(ctx, append([]*ticket.Ticket{cancelled}, requeued...)...)
	uc.m.Logger.Infow("ticket cancelled", "ticket_id", cancelled.ID(), "requeued", len(requeued))
	return dto.ToTicketDTO(cancelled), nil
}

// withdraw cancels t, which must be proposing, and returns the other
// tickets of its proposal to the queue. The first ticket returned is t.
func (m *matchmaker) withdraw(ctx context.Context, t *ticket.Ticket, now time.Time) ([]*ticket.Ticket, error) {
	peers, err := m.Tickets.ListByProposalForUpdate(ctx, t.ProposalID())
	if err != nil {
		return nil, err
	}
	if err := t.Cancel(now); err != nil {
		return nil, err
	}
	if err := m.Tickets.Update(ctx, t); err != nil {
		return nil, err
	}
	out := []*ticket.Ticket{t}
	for _, p := range peers {
		if p.ID() == t.ID() || p.Status() != vo.StatusProposing {
			continue
		}
		if err := p.ReturnToQueue(false, now); err != nil {
			return nil, err
		}
		if err := m.Tickets.Update(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
