package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type PlayMoveCommand struct {
	GameID    string
	PlayerID  string
	From      string
	To        string
	Promotion string
	// MoveID is the client's idempotency token. Without it the signature is
	// derived from the move and the ply it was submitted at.
	MoveID string
	// ExpectedPly, when set, is the number of moves the client saw. A game
	// that has moved on rejects the submission as stale.
	ExpectedPly *int
}

// Signature identifies a submission for replay protection. ply is the
// game's ply when the submission arrived; ExpectedPly overrides it so that a
// retry after the move landed still maps to the first submission.
func (c PlayMoveCommand) Signature(ply int) string {
	if c.MoveID != "" {
		return c.MoveID
	}
	if c.ExpectedPly != nil {
		ply = *c.ExpectedPly
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		c.PlayerID,
		strings.ToLower(c.From),
		strings.ToLower(c.To),
		strings.ToLower(c.Promotion),
		strconv.Itoa(ply),
	}, "|")))
	return hex.EncodeToString(sum[:16])
}

type PlayMoveResult struct {
	GameID       string        `json:"game_id"`
	Move         *game.Move    `json:"move,omitempty"`
	FEN          string        `json:"fen"`
	Status       vo.GameStatus `json:"status"`
	SideToMove   vo.Color      `json:"side_to_move"`
	WhiteClockMS int64         `json:"white_clock_ms"`
	BlackClockMS int64         `json:"black_clock_ms"`
	Result       vo.Result     `json:"result,omitempty"`
	EndReason    vo.EndReason  `json:"end_reason,omitempty"`
	// Replayed marks a response served from the replay store.
	Replayed bool `json:"-"`
}

// PlayMoveUseCase validates and applies a move under a row lock.
type PlayMoveUseCase struct {
	w      *gameWriter
	replay ReplayGuard
}

func NewPlayMoveUseCase(deps Dependencies, replay ReplayGuard) *PlayMoveUseCase {
	return &PlayMoveUseCase{w: newGameWriter(deps), replay: replay}
}

func (uc *PlayMoveUseCase) Execute(ctx context.Context, cmd PlayMoveCommand) (*PlayMoveResult, error) {
	uc.w.Logger.Infow("executing play move use case",
		"game_id", cmd.GameID,
		"player_id", cmd.PlayerID,
		"from", cmd.From,
		"to", cmd.To,
	)

	if err := validateMoveCommand(cmd); err != nil {
		return nil, err
	}

	var signature string
	if uc.replay != nil {
		ply, err := uc.submissionPly(ctx, cmd)
		if err != nil {
			return nil, err
		}
		signature = cmd.Signature(ply)
		outcome, err := uc.replay.Reserve(ctx, cmd.GameID, signature)
		if err != nil {
			if apperrors.IsConflictError(err) {
				return nil, err
			}
			// Redis trouble must not block play.
			uc.w.Logger.Warnw("replay store unavailable, continuing without protection",
				"game_id", cmd.GameID,
				"error", err,
			)
		} else if !outcome.Fresh {
			var stored PlayMoveResult
			if err := json.Unmarshal(outcome.Response, &stored); err == nil {
				uc.w.Logger.Infow("returning stored response for replayed move", "game_id", cmd.GameID)
				stored.Replayed = true
				return &stored, nil
			}
			uc.w.Logger.Warnw("stored move response unreadable, applying again", "game_id", cmd.GameID)
		}
	}

	res, err := uc.apply(ctx, cmd)
	if err != nil {
		if uc.replay != nil {
			if relErr := uc.replay.Release(ctx, cmd.GameID, signature); relErr != nil {
				uc.w.Logger.Warnw("failed to release move signature", "game_id", cmd.GameID, "error", relErr)
			}
		}
		return nil, err
	}

	if uc.replay != nil {
		body, _ := json.Marshal(res)
		if err := uc.replay.Complete(ctx, cmd.GameID, signature, body); err != nil {
			uc.w.Logger.Warnw("failed to store move response", "game_id", cmd.GameID, "error", err)
		}
	}
	return res, nil
}

// submissionPly is the ply a submission without a client token is bound to.
// Two identical moves at different plies are distinct submissions.
func (uc *PlayMoveUseCase) submissionPly(ctx context.Context, cmd PlayMoveCommand) (int, error) {
	if cmd.MoveID != "" || cmd.ExpectedPly != nil {
		return 0, nil
	}
	g, err := uc.w.Games.GetByID(ctx, cmd.GameID)
	if err != nil {
		return 0, err
	}
	return g.MoveCount(), nil
}

func (uc *PlayMoveUseCase) apply(ctx context.Context, cmd PlayMoveCommand) (*PlayMoveResult, error) {
	var move *game.Move
	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		if cmd.ExpectedPly != nil && *cmd.ExpectedPly != g.MoveCount() {
			return apperrors.NewConflictError("game has moved on",
				fmt.Sprintf("expected ply %d, game is at ply %d", *cmd.ExpectedPly, g.MoveCount())).
				WithReason(apperrors.ReasonStale)
		}
		var err error
		move, err = g.PlayMove(cmd.PlayerID, cmd.From, cmd.To, cmd.Promotion, now)
		return err
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			uc.w.Logger.Errorw("failed to play move", "game_id", cmd.GameID, "error", err)
		}
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)

	if move == nil {
		uc.w.Logger.Infow("flag fell before the move was applied", "game_id", g.ID(), "player_id", cmd.PlayerID)
	} else if g.Status().IsTerminal() {
		uc.w.Logger.Infow("game ended", "game_id", g.ID(), "result", g.Result(), "end_reason", g.EndReason())
	}
	return moveResult(g, move), nil
}

func moveResult(g *game.Game, move *game.Move) *PlayMoveResult {
	return &PlayMoveResult{
		GameID:       g.ID(),
		Move:         move,
		FEN:          g.FEN(),
		Status:       g.Status(),
		SideToMove:   g.SideToMove(),
		WhiteClockMS: g.WhiteClockMS(),
		BlackClockMS: g.BlackClockMS(),
		Result:       g.Result(),
		EndReason:    g.EndReason(),
	}
}

func validateMoveCommand(cmd PlayMoveCommand) error {
	switch {
	case cmd.GameID == "":
		return apperrors.NewValidationError("game_id is required")
	case cmd.PlayerID == "":
		return apperrors.NewValidationError("player_id is required")
	case !isSquare(cmd.From) || !isSquare(cmd.To):
		return apperrors.NewValidationError("from and to must be board squares").WithReason(apperrors.ReasonIllegalMove)
	}
	switch strings.ToLower(cmd.Promotion) {
	case "", "q", "r", "b", "n":
		return nil
	}
	return apperrors.NewValidationError("promotion must be one of q, r, b, n").WithReason(apperrors.ReasonIllegalMove)
}

func isSquare(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return len(s) == 2 && s[0] >= 'a' && s[0] <= 'h' && s[1] >= '1' && s[1] <= '8'
}
