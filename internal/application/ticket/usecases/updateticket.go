package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type UpdateSoftConstraintsCommand struct {
	TicketID      string
	MutationSeq   int64
	Soft          map[string]any
	WideningStage *int
}

// UpdateSoftConstraintsUseCase merges new soft preferences into a ticket.
// The mutation_seq guard makes reordered or replayed updates fail as stale.
type UpdateSoftConstraintsUseCase struct {
	m *matchmaker
}

func NewUpdateSoftConstraintsUseCase(deps Dependencies) *UpdateSoftConstraintsUseCase {
	return &UpdateSoftConstraintsUseCase{m: newMatchmaker(deps)}
}

func (uc *UpdateSoftConstraintsUseCase) Execute(ctx context.Context, cmd UpdateSoftConstraintsCommand) (*dto.TicketDTO, error) {
	uc.m.Logger.Infow("executing update soft constraints use case",
		"ticket_id", cmd.TicketID,
		"mutation_seq", cmd.MutationSeq,
	)
	if cmd.TicketID == "" {
		return nil, apperrors.NewValidationError("ticket_id is required")
	}

	t, err := uc.m.mutate(ctx, cmd.TicketID, func(t *ticket.Ticket, now time.Time) error {
		return t.UpdateSoftConstraints(cmd.MutationSeq, vo.SoftConstraints(cmd.Soft), cmd.WideningStage, now)
	})
	if err != nil {
		return nil, err
	}
	uc.m.mirror(ctx, t)
	return dto.ToTicketDTO(t), nil
}
