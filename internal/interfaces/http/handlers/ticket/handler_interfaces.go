package ticket

import (
	"context"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/application/ticket/usecases"
)

type enqueueExecutor interface {
	Execute(ctx context.Context, cmd usecases.EnqueueCommand) (*usecases.EnqueueResult, error)
}

type heartbeatExecutor interface {
	Execute(ctx context.Context, cmd usecases.HeartbeatCommand) (*dto.TicketDTO, error)
}

type cancelExecutor interface {
	Execute(ctx context.Context, cmd usecases.CancelTicketCommand) (*dto.TicketDTO, error)
}

type updateExecutor interface {
	Execute(ctx context.Context, cmd usecases.UpdateSoftConstraintsCommand) (*dto.TicketDTO, error)
}

type getExecutor interface {
	Execute(ctx context.Context, query usecases.GetTicketQuery) (*dto.TicketDTO, error)
}

type proposalExecutor interface {
	Execute(ctx context.Context, cmd usecases.RespondProposalCommand) (*usecases.ProposalResult, error)
}

// UseCases groups what the ticket handler needs.
type UseCases struct {
	Enqueue   enqueueExecutor
	Heartbeat heartbeatExecutor
	Cancel    cancelExecutor
	Update    updateExecutor
	Get       getExecutor
	Accept    proposalExecutor
	Decline   proposalExecutor
}
