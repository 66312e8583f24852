package usecases

import (
	"cmp"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type PlayerInput struct {
	PlayerID  string
	MMR       int
	RD        float64
	Platform  string
	InputType string
	Metadata  map[string]any
}

type EnqueueCommand struct {
	EnqueueKey   string
	MutationSeq  int64
	TimeControl  string
	Mode         string
	Variant      string
	Region       string
	Players      []PlayerInput
	Soft         map[string]any
	Widening     vo.WideningConfig
	SearchParams map[string]any
}

type EnqueueResult struct {
	Ticket   *dto.TicketDTO
	Replayed bool
}

// EnqueueUseCase admits a ticket into its pool. Resubmitting the same
// enqueue_key into the same pool returns the ticket created the first time.
type EnqueueUseCase struct {
	m *matchmaker
}

func NewEnqueueUseCase(deps Dependencies) *EnqueueUseCase {
	return &EnqueueUseCase{m: newMatchmaker(deps)}
}

func (uc *EnqueueUseCase) Execute(ctx context.Context, cmd EnqueueCommand) (*EnqueueResult, error) {
	uc.m.Logger.Infow("executing enqueue ticket use case",
		"enqueue_key", cmd.EnqueueKey,
		"mutation_seq", cmd.MutationSeq,
		"players", len(cmd.Players),
	)

	players := make([]ticket.Player, len(cmd.Players))
	for i, p := range cmd.Players {
		players[i] = ticket.Player{
			PlayerID:  p.PlayerID,
			MMR:       p.MMR,
			RD:        p.RD,
			Platform:  p.Platform,
			InputType: p.InputType,
			Metadata:  p.Metadata,
		}
	}

	var (
		result   *ticket.Ticket
		replayed bool
	)
	err := uc.m.inTx(ctx, "enqueue", func(ctx context.Context, now time.Time) error {
		t, err := ticket.NewTicket(ticket.EnqueueParams{
			EnqueueKey:  cmd.EnqueueKey,
			MutationSeq: cmd.MutationSeq,
			Hard: vo.HardConstraints{
				TimeControl: cmd.TimeControl,
				Mode:        cmd.Mode,
				Variant:     cmd.Variant,
				Region:      cmp.Or(strings.TrimSpace(cmd.Region), uc.m.Settings.DefaultRegion),
			},
			Soft:             cmd.Soft,
			Widening:         cmd.Widening,
			SearchParams:     cmd.SearchParams,
			Players:          players,
			Limits:           uc.m.Settings.Limits,
			HeartbeatTimeout: uc.m.Settings.HeartbeatTimeout,
			Now:              now,
		})
		if err != nil {
			return err
		}

		existing, err := uc.m.Tickets.FindByPlayers(ctx, t.PlayerIDs())
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.IsReplayOf(t.EnqueueKey(), t.PoolKey()) {
				result, replayed = e, true
				return nil
			}
		}
		for _, e := range existing {
			if e.IsActive() {
				uc.m.Logger.Warnw("player already queued",
					"ticket_id", e.ID(),
					"pool_key", e.PoolKey(),
				)
				return ticket.ErrAlreadyInQueue
			}
		}

		if err := uc.m.Tickets.Create(ctx, t); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		if errors.Is(err, ticket.ErrAlreadyInQueue) {
			return nil, ticket.ErrAlreadyInQueue
		}
		if apperrors.GetAppError(err) == nil {
			uc.m.Logger.Errorw("failed to enqueue ticket", "enqueue_key", cmd.EnqueueKey, "error", err)
		}
		return nil, err
	}

	if replayed {
		uc.m.Logger.Infow("enqueue replayed", "ticket_id", result.ID(), "enqueue_key", cmd.EnqueueKey)
	} else {
		uc.m.mirror(ctx, result)
		uc.m.Logger.Infow("ticket enqueued",
			"ticket_id", result.ID(),
			"pool_key", result.PoolKey(),
			"type", result.Type(),
		)
	}
	return &EnqueueResult{Ticket: dto.ToTicketDTO(result), Replayed: replayed}, nil
}
