package usecases

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	sideEffectTimeout = 5 * time.Second
	maxTxAttempts     = 3
)

// Settings are the matchmaking knobs read from configuration.
type Settings struct {
	HeartbeatTimeout  time.Duration
	ProposalTimeout   time.Duration
	MaxQueueTime      time.Duration
	GameCreateTimeout time.Duration
	RetryBatchSize    int
	DefaultRegion     string
	Limits            ticket.Limits
	Widening          ticket.WideningPolicy
}

func DefaultSettings() Settings {
	return Settings{
		HeartbeatTimeout:  30 * time.Second,
		ProposalTimeout:   15 * time.Second,
		MaxQueueTime:      600 * time.Second,
		GameCreateTimeout: 5 * time.Second,
		RetryBatchSize:    20,
		DefaultRegion:     vo.DefaultRegion,
		Limits:            ticket.DefaultLimits(),
		Widening:          ticket.DefaultWideningPolicy(),
	}
}

// Dependencies are shared by every matchmaking use case. Mirror, Locks,
// Games, Failed and Events are optional.
type Dependencies struct {
	Tickets  ticket.Repository
	Matches  ticket.MatchRecordRepository
	TxMgr    transactor
	Mirror   TicketMirror
	Locks    PoolLocker
	Games    GameCreator
	Failed   FailedMatchQueue
	Events   messaging.EventPublisher
	Settings Settings
	Clock    biztime.Clock
	Coin     func() bool
	Logger   logger.Interface
}

// matchmaker holds the transaction and side-effect plumbing the use cases
// have in common.
type matchmaker struct {
	Dependencies
}

func newMatchmaker(d Dependencies) *matchmaker {
	def := DefaultSettings()
	if d.Clock == nil {
		d.Clock = biztime.SystemClock
	}
	if d.Settings.HeartbeatTimeout <= 0 {
		d.Settings.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if d.Settings.ProposalTimeout <= 0 {
		d.Settings.ProposalTimeout = def.ProposalTimeout
	}
	if d.Settings.MaxQueueTime <= 0 {
		d.Settings.MaxQueueTime = def.MaxQueueTime
	}
	if d.Settings.GameCreateTimeout <= 0 {
		d.Settings.GameCreateTimeout = def.GameCreateTimeout
	}
	if d.Settings.RetryBatchSize <= 0 {
		d.Settings.RetryBatchSize = def.RetryBatchSize
	}
	if d.Settings.DefaultRegion == "" {
		d.Settings.DefaultRegion = def.DefaultRegion
	}
	if d.Settings.Limits == (ticket.Limits{}) {
		d.Settings.Limits = def.Limits
	}
	if d.Settings.Widening == (ticket.WideningPolicy{}) {
		d.Settings.Widening = def.Widening
	}
	if d.Coin == nil {
		d.Coin = coinFlip
	}
	return &matchmaker{Dependencies: d}
}

func (m *matchmaker) now() time.Time {
	return m.Clock.Now()
}

// inTx runs fn in a transaction, rerunning it on deadlocks and
// serialization failures.
func (m *matchmaker) inTx(ctx context.Context, op string, fn func(ctx context.Context, now time.Time) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := m.TxMgr.RunInTransaction(ctx, func(ctx context.Context) error {
			return fn(ctx, m.now())
		})
		if err != nil && !db.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			m.Logger.Warnw("retrying ticket transaction", "operation", op, "error", err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTxAttempts),
	)
	return err
}

// mutate loads ticketID FOR UPDATE, applies fn and saves it.
func (m *matchmaker) mutate(ctx context.Context, ticketID string, fn func(t *ticket.Ticket, now time.Time) error) (*ticket.Ticket, error) {
	var saved *ticket.Ticket
	err := m.inTx(ctx, "mutate", func(ctx context.Context, now time.Time) error {
		t, err := m.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := fn(t, now); err != nil {
			return err
		}
		if err := m.Tickets.Update(ctx, t); err != nil {
			return err
		}
		saved = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// mirror refreshes the Redis copy of each ticket. Failures are logged only.
func (m *matchmaker) mirror(ctx context.Context, tickets ...*ticket.Ticket) {
	if m.Mirror == nil || len(tickets) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	now := m.now()
	for _, t := range tickets {
		if err := m.Mirror.Store(ctx, t, now); err != nil {
			m.Logger.Warnw("failed to mirror ticket", "ticket_id", t.ID(), "error", err)
		}
	}
}
