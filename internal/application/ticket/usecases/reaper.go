package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

type ReapResult struct {
	HeartbeatExpired int
	AgedOut          int
	ProposalsExpired int
}

// ReapTicketsUseCase expires tickets whose heartbeat lapsed or which have
// waited longer than the maximum queue time, and returns tickets of timed
// out proposals to the queue with a wider search.
type ReapTicketsUseCase struct {
	m *matchmaker
}

func NewReapTicketsUseCase(deps Dependencies) *ReapTicketsUseCase {
	return &ReapTicketsUseCase{m: newMatchmaker(deps)}
}

func (uc *ReapTicketsUseCase) Execute(ctx context.Context) (*ReapResult, error) {
	now := uc.m.now()
	res := &ReapResult{}

	lapsed, err := uc.m.Tickets.FindHeartbeatLapsed(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, t := range lapsed {
		if uc.expire(ctx, t.ID(), func(t *ticket.Ticket, now time.Time) bool { return t.HeartbeatLapsed(now) }) {
			res.HeartbeatExpired++
		}
	}

	stale, err := uc.m.Tickets.FindQueuedBefore(ctx, now.Add(-uc.m.Settings.MaxQueueTime))
	if err != nil {
		return nil, err
	}
	for _, t := range stale {
		if uc.expire(ctx, t.ID(), func(t *ticket.Ticket, now time.Time) bool {
			return t.Status().IsProposable() && t.WaitTime(now) > uc.m.Settings.MaxQueueTime
		}) {
			res.AgedOut++
		}
	}

	proposals, err := uc.m.Tickets.FindExpiredProposals(ctx, now)
	if err != nil {
		return nil, err
	}
	for _, proposalID := range proposals {
		if uc.requeueProposal(ctx, proposalID) {
			res.ProposalsExpired++
		}
	}

	if *res != (ReapResult{}) {
		uc.m.Logger.Infow("reaper pass finished",
			"heartbeat_expired", res.HeartbeatExpired,
			"aged_out", res.AgedOut,
			"proposals_expired", res.ProposalsExpired,
		)
	}
	return res, nil
}

// expire re-reads the ticket under lock and expires it if still warranted.
func (uc *ReapTicketsUseCase) expire(ctx context.Context, ticketID string, due func(*ticket.Ticket, time.Time) bool) bool {
	expired := false
	t, err := uc.m.mutate(ctx, ticketID, func(t *ticket.Ticket, now time.Time) error {
		expired = false
		if !t.IsActive() || !due(t, now) {
			return nil
		}
		expired = true
		return t.Expire(now)
	})
	if err != nil {
		uc.m.Logger.Warnw("failed to expire ticket", "ticket_id", ticketID, "error", err)
		return false
	}
	if expired {
		uc.m.mirror(ctx, t)
		uc.m.Logger.Infow("ticket expired", "ticket_id", ticketID, "pool_key", t.PoolKey())
	}
	return expired
}

// requeueProposal returns the tickets of a timed-out proposal to the queue.
// A proposal every ticket accepted is being finalized and is left alone.
func (uc *ReapTicketsUseCase) requeueProposal(ctx context.Context, proposalID string) bool {
	var requeued []*ticket.Ticket
	err := uc.m.inTx(ctx, "requeue-proposal", func(ctx context.Context, now time.Time) error {
		requeued = nil
		locked, err := uc.m.Tickets.ListByProposalForUpdate(ctx, proposalID)
		if err != nil {
			return err
		}
		if len(locked) == 0 || ticket.AllAccepted(locked) {
			return nil
		}
		for _, t := range locked {
			if t.Status() != vo.StatusProposing || !t.ProposalExpired(now) {
				continue
			}
			if err := t.ReturnToQueue(true, now); err != nil {
				return err
			}
			if err := uc.m.Tickets.Update(ctx, t); err != nil {
				return err
			}
			requeued = append(requeued, t)
		}
		return nil
	})
	if err != nil {
		uc.m.Logger.Warnw("failed to requeue expired proposal", "proposal_id", proposalID, "error", err)
		return false
	}
	if len(requeued) == 0 {
		return false
	}
	uc.m.mirror(ctx, requeued...)
	uc.m.Logger.Infow("proposal expired", "proposal_id", proposalID, "requeued", len(requeued))
	return true
}
