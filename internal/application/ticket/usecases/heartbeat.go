package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type HeartbeatCommand struct {
	TicketID string
	// At is the client's heartbeat time; zero means now.
	At time.Time
}

type HeartbeatUseCase struct {
	m *matchmaker
}

func NewHeartbeatUseCase(deps Dependencies) *HeartbeatUseCase {
	return &HeartbeatUseCase{m: newMatchmaker(deps)}
}

func (uc *HeartbeatUseCase) Execute(ctx context.Context, cmd HeartbeatCommand) (*dto.TicketDTO, error) {
	uc.m.Logger.Debugw("executing heartbeat use case", "ticket_id", cmd.TicketID)
	if cmd.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}

	t, err := uc.m.mutate(ctx, cmd.TicketID, func(t *ticket.Ticket, now time.Time) error {
		at := cmd.At
		if at.IsZero() || at.After(now) {
			at = now
		}
		return t.Heartbeat(at, uc.m.Settings.HeartbeatTimeout)
	})
	if err != nil {
		return nil, err
	}
	uc.m.mirror(ctx, t)
	return dto.ToTicketDTO(t), nil
}
