package usecases

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/goroutine"
)

const (
	botRequestTimeout = 35 * time.Second
	botRequestTries   = 3
)

var errBotTurnPassed = errors.New("bot turn already played")

// BotMoveDispatcher plays bot moves in the background. A failed or
// unusable bot answer is replaced by a random legal move so the game never
// stalls on the bot's clock.
type BotMoveDispatcher struct {
	w     *gameWriter
	mover BotMover

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewBotMoveDispatcher creates a dispatcher. Close stops pending dispatches.
func NewBotMoveDispatcher(deps Dependencies, mover BotMover) *BotMoveDispatcher {
	deps.Bots = nil
	ctx, cancel := context.WithCancel(context.Background())
	return &BotMoveDispatcher{
		w:        newGameWriter(deps),
		mover:    mover,
		ctx:      ctx,
		cancel:   cancel,
		inFlight: make(map[string]bool),
	}
}

// ScheduleBotMove starts one dispatch per game; repeated calls while a
// dispatch runs are ignored.
func (d *BotMoveDispatcher) ScheduleBotMove(gameID string) {
	d.mu.Lock()
	if d.inFlight[gameID] || d.ctx.Err() != nil {
		d.mu.Unlock()
		return
	}
	d.inFlight[gameID] = true
	d.wg.Add(1)
	d.mu.Unlock()

	goroutine.SafeGo(d.w.Logger, "bot-move-"+gameID, func() {
		defer d.wg.Done()
		defer func() {
			d.mu.Lock()
			delete(d.inFlight, gameID)
			d.mu.Unlock()
		}()
		if err := d.Dispatch(d.ctx, gameID); err != nil {
			d.w.Logger.Errorw("bot move dispatch failed", "game_id", gameID, "error", err)
		}
	})
}

// Dispatch asks the bot for its move and applies it. It is a no-op when it
// is not the bot's turn.
func (d *BotMoveDispatcher) Dispatch(ctx context.Context, gameID string) error {
	g, err := d.w.Games.GetByID(ctx, gameID)
	if err != nil {
		return err
	}
	if !g.IsBotTurn() {
		return nil
	}

	fen := g.FEN()
	uci := d.requestMove(ctx, g)
	if uci == "" || !game.IsLegal(fen, uci) {
		d.w.Logger.Warnw("bot move unusable, playing a random legal move",
			"game_id", gameID,
			"bot_id", g.BotID(),
			"move", uci,
		)
		if uci, err = randomLegalMove(fen); err != nil {
			return err
		}
	}

	saved, evs, err := d.w.mutate(ctx, gameID, func(g *game.Game, now time.Time) error {
		if !g.IsBotTurn() || g.FEN() != fen {
			return errBotTurnPassed
		}
		_, err := g.PlayMove(g.BotID(), uci[0:2], uci[2:4], uci[4:], now)
		return err
	})
	if errors.Is(err, errBotTurnPassed) {
		return nil
	}
	if err != nil {
		return err
	}
	d.w.afterCommit(ctx, saved, evs)

	d.w.Logger.Infow("bot move played", "game_id", gameID, "bot_id", saved.BotID(), "move", uci)
	return nil
}

func (d *BotMoveDispatcher) requestMove(ctx context.Context, g *game.Game) string {
	if d.mover == nil {
		return ""
	}
	white, black := g.ClocksAt(d.w.now())
	req := bot.MoveRequest{
		GameID:     g.ID(),
		FEN:        g.FEN(),
		MoveNumber: game.FullmoveNumber(g.FEN()),
		BotColor:   colorName(g.BotColor()),
		Clocks:     bot.Clocks{WhiteMS: white, BlackMS: black},
	}

	resp, err := backoff.Retry(ctx, func() (*bot.MoveResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, botRequestTimeout)
		defer cancel()
		resp, err := d.mover.RequestMove(callCtx, g.BotID(), req)
		if err != nil && (apperrors.IsValidationError(err) || apperrors.IsNotFoundError(err)) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(botRequestTries),
	)
	if err != nil {
		d.w.Logger.Warnw("bot move request failed", "game_id", g.ID(), "bot_id", g.BotID(), "error", err)
		return ""
	}
	return resp.Move
}

// Close cancels running dispatches and waits for them to return.
func (d *BotMoveDispatcher) Close() {
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
}

func randomLegalMove(fen string) (string, error) {
	moves, err := game.LegalMoves(fen)
	if err != nil {
		return "", err
	}
	if len(moves) == 0 {
		return "", apperrors.NewValidationError("no legal moves in position")
	}
	return moves[rand.IntN(len(moves))], nil
}

func colorName(c vo.Color) string {
	if c == vo.Black {
		return "black"
	}
	return "white"
}
