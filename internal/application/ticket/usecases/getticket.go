package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

type GetTicketQuery struct {
	TicketID string
}

type GetTicketUseCase struct {
	tickets ticket.Repository
	logger  logger.Interface
}

func NewGetTicketUseCase(tickets ticket.Repository, logger logger.Interface) *GetTicketUseCase {
	return &GetTicketUseCase{tickets: tickets, logger: logger}
}

func (uc *GetTicketUseCase) Execute(ctx context.Context, query GetTicketQuery) (*dto.TicketDTO, error) {
	if query.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}
	t, err := uc.tickets.GetByID(ctx, query.TicketID)
	if err != nil {
		if !apperrors.IsNotFoundError(err) {
			uc.logger.Errorw("failed to get ticket", "ticket_id", query.TicketID, "error", err)
		}
		return nil, err
	}
	return dto.ToTicketDTO(t), nil
}
