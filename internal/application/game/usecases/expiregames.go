package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
)

const (
	defaultExpireBatchSize = 500
	DefaultAbandonAfter    = 60 * time.Second
)

var errNotStalled = errors.New("game is no longer stalled")

type ExpireGamesResult struct {
	Checked   int
	TimedOut  int
	Abandoned int
}

// ExpireGamesUseCase ends in-progress games nobody is moving in: on time
// when the side to move has run out of clock, abandoned when a side never
// made its first move. Each game ends through the same locked write path as
// a move, so game.ended is published and subscribers are told.
type ExpireGamesUseCase struct {
	w            *gameWriter
	abandonAfter time.Duration
	batchSize    int
}

func NewExpireGamesUseCase(deps Dependencies, abandonAfter time.Duration) *ExpireGamesUseCase {
	if abandonAfter <= 0 {
		abandonAfter = DefaultAbandonAfter
	}
	return &ExpireGamesUseCase{
		w:            newGameWriter(deps),
		abandonAfter: abandonAfter,
		batchSize:    defaultExpireBatchSize,
	}
}

// WithBatchSize caps how many games one run inspects.
func (uc *ExpireGamesUseCase) WithBatchSize(n int) *ExpireGamesUseCase {
	if n > 0 {
		uc.batchSize = n
	}
	return uc
}

func (uc *ExpireGamesUseCase) Execute(ctx context.Context) (*ExpireGamesResult, error) {
	ids, err := uc.w.Games.ListInProgressIDs(ctx, uc.batchSize)
	if err != nil {
		uc.w.Logger.Errorw("failed to list in-progress games", "error", err)
		return nil, err
	}

	res := &ExpireGamesResult{}
	for _, gameID := range ids {
		if ctx.Err() != nil {
			break
		}
		res.Checked++

		current, err := uc.w.Games.GetByID(ctx, gameID)
		if err != nil {
			uc.w.Logger.Warnw("failed to load game for expiry", "game_id", gameID, "error", err)
			continue
		}
		if !current.Stalled(uc.w.now(), uc.abandonAfter) {
			continue
		}

		g, evs, err := uc.w.mutate(ctx, gameID, func(g *game.Game, now time.Time) error {
			if !g.Expire(now, uc.abandonAfter) {
				return errNotStalled
			}
			return nil
		})
		if errors.Is(err, errNotStalled) {
			continue
		}
		if err != nil {
			uc.w.Logger.Warnw("failed to expire game", "game_id", gameID, "error", err)
			continue
		}
		uc.w.afterCommit(ctx, g, evs)

		if g.EndReason() == vo.EndAbandoned {
			res.Abandoned++
		} else {
			res.TimedOut++
		}
		uc.w.Logger.Infow("game expired",
			"game_id", gameID,
			"end_reason", g.EndReason(),
			"result", g.Result(),
		)
	}

	if res.TimedOut+res.Abandoned > 0 {
		uc.w.Logger.Infow("game expiry sweep completed",
			"checked", res.Checked,
			"timed_out", res.TimedOut,
			"abandoned", res.Abandoned,
		)
	}
	return res, nil
}
