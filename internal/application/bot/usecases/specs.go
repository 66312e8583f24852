package usecases

import (
	"context"

	"github.com/chessforge/gamecore/internal/domain/bot"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

var ErrBotNotConfigured = apperrors.NewNotFoundError("bot not configured").WithReason(apperrors.ReasonBotNotConfigured)

// BuiltinSpecs serves the profiles compiled into the bot package.
type BuiltinSpecs struct{}

func (BuiltinSpecs) Spec(_ context.Context, botID string) (bot.Spec, error) {
	s, err := bot.SpecFor(botID)
	if err != nil {
		nf := *ErrBotNotConfigured
		nf.Details = err.Error()
		return bot.Spec{}, &nf
	}
	return s, nil
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = bot.DefaultMoveLogSize
)

type ListRecentMovesUseCase struct {
	moves *bot.MoveLog
}

func NewListRecentMovesUseCase(moves *bot.MoveLog) *ListRecentMovesUseCase {
	return &ListRecentMovesUseCase{moves: moves}
}

func (uc *ListRecentMovesUseCase) Execute(_ context.Context, botID string, limit int) []bot.RecordedMove {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return uc.moves.Recent(botID, min(limit, maxRecentLimit))
}
