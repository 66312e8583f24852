package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	"github.com/chessforge/gamecore/internal/shared/id"
)

type MatchCycleResult struct {
	Pools     int
	Proposals int
}

// RunMatchCycleUseCase is one pass of the matcher over every pool holding
// at least two pairable tickets. Each pool is matched by at most one
// instance at a time through the pool lock.
type RunMatchCycleUseCase struct {
	m *matchmaker
}

func NewRunMatchCycleUseCase(deps Dependencies) *RunMatchCycleUseCase {
	return &RunMatchCycleUseCase{m: newMatchmaker(deps)}
}

func (uc *RunMatchCycleUseCase) Execute(ctx context.Context) (*MatchCycleResult, error) {
	pools, err := uc.m.Tickets.ListPoolsWithProposable(ctx, 2)
	if err != nil {
		return nil, err
	}

	res := &MatchCycleResult{}
	for _, pool := range pools {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		n, err := uc.matchPool(ctx, pool)
		if err != nil {
			uc.m.Logger.Warnw("matching pool failed", "pool_key", pool, "error", err)
			continue
		}
		res.Pools++
		res.Proposals += n
	}
	if res.Proposals > 0 {
		uc.m.Logger.Infow("match cycle finished", "pools", res.Pools, "proposals", res.Proposals)
	}
	return res, nil
}

func (uc *RunMatchCycleUseCase) matchPool(ctx context.Context, pool string) (int, error) {
	if uc.m.Locks != nil {
		release, ok, err := uc.m.Locks.TryAcquire(ctx, pool)
		if err != nil {
			return 0, err
		}
		if !ok {
			uc.m.Logger.Debugw("pool owned by another matcher", "pool_key", pool)
			return 0, nil
		}
		defer release(context.WithoutCancel(ctx))
	}

	tickets, err := uc.m.Tickets.ListProposable(ctx, pool)
	if err != nil {
		return 0, err
	}
	pairs := uc.m.Settings.Widening.FindPairs(tickets, uc.m.now())

	proposed := 0
	for _, pair := range pairs {
		ok, err := uc.propose(ctx, pair)
		if err != nil {
			uc.m.Logger.Warnw("failed to create proposal",
				"pool_key", pool,
				"ticket_ids", pair.TicketIDs(),
				"error", err,
			)
			continue
		}
		if ok {
			proposed++
		}
	}
	return proposed, nil
}

// propose moves both tickets of pair into a proposal under row locks. It is
// all or nothing: if either ticket changed since it was read, neither moves.
func (uc *RunMatchCycleUseCase) propose(ctx context.Context, pair ticket.Pair) (bool, error) {
	proposalID := id.New()
	var proposed []*ticket.Ticket
	err := uc.m.inTx(ctx, "propose", func(ctx context.Context, now time.Time) error {
		proposed = nil
		locked, err := uc.m.Tickets.LockForProposal(ctx, pair.TicketIDs())
		if err != nil {
			return err
		}
		if len(locked) != 2 {
			return nil
		}
		for _, t := range locked {
			if !t.Status().IsProposable() || t.HeartbeatLapsed(now) {
				return nil
			}
		}
		timeoutAt := now.Add(uc.m.Settings.ProposalTimeout)
		for _, t := range locked {
			if err := t.Propose(proposalID, timeoutAt, now); err != nil {
				return err
			}
			if err := uc.m.Tickets.Update(ctx, t); err != nil {
				return err
			}
		}
		proposed = locked
		return nil
	})
	if err != nil || proposed == nil {
		return false, err
	}

	uc.m.mirror(ctx, proposed...)
	uc.m.Logger.Infow("proposal created",
		"proposal_id", proposalID,
		"ticket_ids", pair.TicketIDs(),
		"rating_diff", pair.RatingDiff,
		"region", pair.Region,
	)
	return true, nil
}
