package http

import (
	"context"
	"fmt"
	"time"

	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/infrastructure/scheduler"
)

// wsRegistryRefreshInterval keeps connection records well inside their
// one hour TTL.
const wsRegistryRefreshInterval = 10 * time.Minute

func (c *Container) initScheduler() error {
	cfg := c.cfg
	mm := &cfg.Matchmaking
	u := c.ucs

	sm, err := scheduler.NewSchedulerManager(c.log.Named("scheduler"), c.metrics)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	c.schedulerManager = sm

	jobs := scheduler.MatchmakingJobs{
		Cycle: scheduler.BatchFunc(func(ctx context.Context) (int, error) {
			res, err := u.matchCycleUC.Execute(ctx)
			if err != nil {
				return 0, err
			}
			c.metrics.CountMatchmaking(metrics.EventProposalCreated, res.Proposals)
			return res.Proposals, nil
		}),
		CycleInterval: time.Duration(mm.CycleIntervalMS) * time.Millisecond,
		Reaper: scheduler.BatchFunc(func(ctx context.Context) (int, error) {
			res, err := u.reapTicketsUC.Execute(ctx)
			if err != nil {
				return 0, err
			}
			c.metrics.CountMatchmaking(metrics.EventTicketExpired, res.HeartbeatExpired+res.AgedOut)
			c.metrics.CountMatchmaking(metrics.EventProposalExpired, res.ProposalsExpired)
			return res.HeartbeatExpired + res.AgedOut + res.ProposalsExpired, nil
		}),
		ReaperInterval: time.Duration(mm.ReaperIntervalSeconds) * time.Second,
		Retry: scheduler.BatchFunc(func(ctx context.Context) (int, error) {
			res, err := u.retryFailedUC.Execute(ctx)
			if err != nil {
				return 0, err
			}
			c.metrics.CountMatchmaking(metrics.EventMatchCreated, res.Created)
			c.metrics.CountMatchmaking(metrics.EventMatchAbandoned, res.Abandoned)
			return res.Attempted, nil
		}),
		RetryInterval: time.Duration(mm.FailedMatchRetryInterval) * time.Second,
	}
	if err := sm.RegisterMatchmakingJobs(jobs); err != nil {
		return fmt.Errorf("failed to register matchmaking jobs: %w", err)
	}

	if u.publishOutboxUC != nil {
		publish := scheduler.BatchFunc(func(ctx context.Context) (int, error) {
			res, err := u.publishOutboxUC.Execute(ctx)
			if err != nil {
				return 0, err
			}
			return res.Published, nil
		})
		interval := time.Duration(cfg.Rating.OutboxIntervalSeconds) * time.Second
		if err := sm.RegisterOutboxJob(publish, interval); err != nil {
			return fmt.Errorf("failed to register outbox job: %w", err)
		}
	}

	sweep := scheduler.BatchFunc(func(ctx context.Context) (int, error) {
		res, err := u.expireGamesUC.Execute(ctx)
		if err != nil {
			return 0, err
		}
		return res.TimedOut + res.Abandoned, nil
	})
	sweepInterval := time.Duration(cfg.Game.ExpirySweepIntervalMS) * time.Millisecond
	if err := sm.RegisterGameExpiryJob(sweep, sweepInterval); err != nil {
		return fmt.Errorf("failed to register game expiry job: %w", err)
	}

	challengeInterval := time.Duration(cfg.Challenge.ExpiryIntervalSeconds) * time.Second
	if err := sm.RegisterChallengeExpiryJob(u.expireChallengesUC, challengeInterval); err != nil {
		return fmt.Errorf("failed to register challenge expiry job: %w", err)
	}

	refresh := scheduler.BatchFunc(func(ctx context.Context) (int, error) {
		return 0, c.broker.RefreshRegistry(ctx)
	})
	if err := sm.RegisterWSRegistryJob(refresh, wsRegistryRefreshInterval); err != nil {
		return fmt.Errorf("failed to register websocket registry job: %w", err)
	}
	return nil
}
