package usecases

import (
	"context"
	"time"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

type JoinGameCommand struct {
	GameID          string
	PlayerID        string
	ColorPreference string
}

// JoinGameUseCase fills the open seat of a challenge and starts it. A rated
// challenge is re-arbitrated with both players' ratings first. Ratings are
// read before the game row is locked.
type JoinGameUseCase struct {
	w       *gameWriter
	ratings RatingLookup
}

func NewJoinGameUseCase(deps Dependencies, ratings RatingLookup) *JoinGameUseCase {
	return &JoinGameUseCase{w: newGameWriter(deps), ratings: ratings}
}

func (uc *JoinGameUseCase) Execute(ctx context.Context, cmd JoinGameCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing join game use case",
		"game_id", cmd.GameID,
		"player_id", cmd.PlayerID,
	)

	if cmd.PlayerID == "" {
		return nil, apperrors.NewValidationError("player_id is required")
	}
	pref, err := vo.NewColorPreference(cmd.ColorPreference)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid color preference", err.Error())
	}

	current, err := uc.w.Games.GetByID(ctx, cmd.GameID)
	if err != nil {
		return nil, err
	}
	var creatorRating, joinerRating *int
	looked := current.Rated() && current.Status() == vo.StatusWaiting
	if looked {
		creatorRating = uc.lookup(ctx, current, current.CreatorID())
		joinerRating = uc.lookup(ctx, current, cmd.PlayerID)
	}

	g, evs, err := uc.w.mutate(ctx, cmd.GameID, func(g *game.Game, now time.Time) error {
		if g.Rated() && g.Status() == vo.StatusWaiting {
			if !looked || g.CreatorID() != current.CreatorID() {
				return apperrors.NewConflictError("game changed while joining").WithReason(apperrors.ReasonStale)
			}
			g.RecheckRated(uc.w.Policy, creatorRating, joinerRating)
		}
		return g.Join(cmd.PlayerID, pref, now)
	})
	if err != nil {
		return nil, err
	}
	uc.w.afterCommit(ctx, g, evs)

	uc.w.Logger.Infow("game joined",
		"game_id", g.ID(),
		"white_id", g.WhiteID(),
		"black_id", g.BlackID(),
		"rated", g.Rated(),
		"decision_reason", g.DecisionReason(),
	)
	return ToGameView(g, uc.w.now()), nil
}

// lookup tolerates rating service failures; the gap rule is then skipped.
func (uc *JoinGameUseCase) lookup(ctx context.Context, g *game.Game, userID string) *int {
	if uc.ratings == nil {
		return nil
	}
	r, err := uc.ratings.CurrentRating(ctx, userID, g.TimeControl().InitialMS, g.Variant())
	if err != nil {
		uc.w.Logger.Warnw("rating lookup failed", "game_id", g.ID(), "user_id", userID, "error", err)
		return nil
	}
	return r
}
