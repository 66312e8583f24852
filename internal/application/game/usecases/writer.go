package usecases

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/chessforge/gamecore/internal/domain/game"
	"github.com/chessforge/gamecore/internal/domain/shared/events"
	"github.com/chessforge/gamecore/internal/infrastructure/cache"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	sideEffectTimeout = 5 * time.Second
	maxTxAttempts     = 3
)

// Dependencies are shared by every game use case.
type Dependencies struct {
	Games       game.Repository
	TxMgr       transactor
	Cache       cache.GameCache
	Events      messaging.EventPublisher
	Broadcaster wsbroker.Broadcaster
	Bots        BotTurnScheduler
	Policy      game.RatingPolicy
	Clock       biztime.Clock
	Logger      logger.Interface
}

// gameWriter runs a game mutation in a locked transaction and performs the
// post-commit side effects. Side effects never fail the operation.
type gameWriter struct {
	Dependencies
}

func newGameWriter(d Dependencies) *gameWriter {
	if d.Clock == nil {
		d.Clock = biztime.SystemClock
	}
	if d.Policy == (game.RatingPolicy{}) {
		d.Policy = game.DefaultRatingPolicy()
	}
	return &gameWriter{Dependencies: d}
}

func (w *gameWriter) now() time.Time {
	return w.Clock.Now()
}

// mutate loads gameID FOR UPDATE, applies fn and saves the result. Deadlocks
// and serialization failures rerun the whole transaction.
func (w *gameWriter) mutate(ctx context.Context, gameID string, fn func(g *game.Game, now time.Time) error) (*game.Game, []events.DomainEvent, error) {
	var (
		saved *game.Game
		evs   []events.DomainEvent
	)
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := w.TxMgr.RunInTransaction(ctx, func(ctx context.Context) error {
			g, err := w.Games.GetForUpdate(ctx, gameID)
			if err != nil {
				return err
			}
			if err := fn(g, w.now()); err != nil {
				return err
			}
			if err := w.Games.Update(ctx, g); err != nil {
				return err
			}
			saved, evs = g, g.PullEvents()
			return nil
		})
		if err != nil && !db.IsRetryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			w.Logger.Warnw("retrying game transaction", "game_id", gameID, "error", err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxTxAttempts),
	)
	if err != nil {
		return nil, nil, err
	}
	return saved, evs, nil
}

// create persists a new game and runs the post-commit side effects.
func (w *gameWriter) create(ctx context.Context, g *game.Game) error {
	if err := w.Games.Create(ctx, g); err != nil {
		w.Logger.Errorw("failed to create game", "game_id", g.ID(), "error", err)
		return err
	}
	w.afterCommit(ctx, g, g.PullEvents())
	return nil
}

// afterCommit publishes the recorded events, refreshes the cache, fans the
// change out to websocket subscribers and hands bot turns to the scheduler.
func (w *gameWriter) afterCommit(ctx context.Context, g *game.Game, evs []events.DomainEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if w.Events != nil && len(evs) > 0 {
		w.Events.PublishEvents(ctx, messaging.TopicGameEvents, evs...)
	}

	if w.Cache != nil {
		var err error
		if g.Status().IsTerminal() {
			err = w.Cache.Delete(ctx, g.ID())
		} else {
			state := g.State()
			err = w.Cache.Set(ctx, &state)
		}
		if err != nil {
			w.Logger.Warnw("failed to refresh game cache", "game_id", g.ID(), "error", err)
		}
	}

	if w.Broadcaster != nil {
		for _, msg := range broadcastsFor(g, evs, w.now()) {
			if err := w.Broadcaster.Broadcast(ctx, g.ID(), msg); err != nil {
				w.Logger.Warnw("failed to broadcast game update",
					"game_id", g.ID(),
					"type", msg.Type,
					"error", err,
				)
			}
		}
	}

	if w.Bots != nil && g.IsBotTurn() {
		w.Bots.ScheduleBotMove(g.ID())
	}
}

func broadcastsFor(g *game.Game, evs []events.DomainEvent, now time.Time) []*wsbroker.Message {
	var msgs []*wsbroker.Message
	for _, e := range evs {
		switch ev := e.(type) {
		case game.MovePlayedEvent:
			msgs = append(msgs, &wsbroker.Message{
				Type:   wsbroker.MsgMovePlayed,
				GameID: g.ID(),
				Move:   ev.Move,
				FEN:    ev.FEN,
				Data: map[string]int64{
					"white_clock_ms": ev.WhiteClockMS,
					"black_clock_ms": ev.BlackClockMS,
				},
			})
		case game.GameEndedEvent:
			msgs = append(msgs, &wsbroker.Message{
				Type:      wsbroker.MsgGameEnded,
				GameID:    g.ID(),
				Result:    string(ev.Result),
				EndReason: string(ev.EndReason),
				FEN:       g.FEN(),
			})
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, &wsbroker.Message{
			Type:   wsbroker.MsgGameState,
			GameID: g.ID(),
			FEN:    g.FEN(),
			Data:   ToGameView(g, now),
		})
	}
	return msgs
}
