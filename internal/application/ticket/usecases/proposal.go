package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type RespondProposalCommand struct {
	TicketID string
}

type ProposalResult struct {
	Ticket *dto.TicketDTO
	// Match is set once every ticket of the proposal has accepted.
	Match *MatchResult
}

// AcceptProposalUseCase records a ready-check acceptance. The acceptance
// that completes a proposal finalizes the match.
type AcceptProposalUseCase struct {
	m *matchmaker
}

func NewAcceptProposalUseCase(deps Dependencies) *AcceptProposalUseCase {
	return &AcceptProposalUseCase{m: newMatchmaker(deps)}
}

func (uc *AcceptProposalUseCase) Execute(ctx context.Context, cmd RespondProposalCommand) (*ProposalResult, error) {
	uc.m.Logger.Infow("executing accept proposal use case", "ticket_id", cmd.TicketID)
	if cmd.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}

	var (
		accepted   *ticket.Ticket
		proposalID string
		complete   bool
	)
	err := uc.m.inTx(ctx, "accept", func(ctx context.Context, now time.Time) error {
		t, err := uc.m.Tickets.GetForUpdate(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		replay := t.IsAccepted()
		if err := t.Accept(now); err != nil {
			return err
		}
		accepted, proposalID, complete = t, t.ProposalID(), false
		if replay {
			return nil
		}
		if err := uc.m.Tickets.Update(ctx, t); err != nil {
			return err
		}
		peers, err := uc.m.Tickets.ListByProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		complete = ticket.AllAccepted(peers)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ProposalResult{Ticket: dto.ToTicketDTO(accepted)}
	if !complete {
		return result, nil
	}
	match, err := uc.m.finalize(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	result.Match = match
	if t, err := uc.m.Tickets.GetByID(ctx, accepted.ID()); err == nil {
		result.Ticket = dto.ToTicketDTO(t)
	}
	return result, nil
}

// DeclineProposalUseCase cancels the declining ticket and returns the rest
// of its proposal to the queue.
type DeclineProposalUseCase struct {
	m *matchmaker
}

func NewDeclineProposalUseCase(deps Dependencies) *DeclineProposalUseCase {
	return &DeclineProposalUseCase{m: newMatchmaker(deps)}
}

func (uc *DeclineProposalUseCase) Execute(ctx context.Context, cmd RespondProposalCommand) (*ProposalResult, error) {
	uc.m.Logger.Infow("executing decline proposal use case", "ticket_id", cmd.TicketID)
	if cmd.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}

	var touched []*ticket.Ticket
	err := uc.m.inTx(ctx, "decline", func(ctx context.Context, now time.Time) error {
		t, err := uc.m.Tickets.GetForUpdate(ctx, cmd.TicketID)
		if err != nil {
			return err
		}
		if t.Status() != vo.StatusProposing {
			return ticket.ErrNotProposing
		}
		touched, err = uc.m.withdraw(ctx, t, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.m.mirror(ctx, touched...)
	uc.m.Logger.Infow("proposal declined", "ticket_id", cmd.TicketID, "requeued", len(touched)-1)
	return &ProposalResult{Ticket: dto.ToTicketDTO(touched[0])}, nil
}
