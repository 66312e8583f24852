package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	gamevo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
)

type AcceptChallengeUseCase struct {
	*service
}

func NewAcceptChallengeUseCase(d Dependencies) *AcceptChallengeUseCase {
	return &AcceptChallengeUseCase{service: newService(d)}
}

// Execute claims the challenge, creates its game and records the game id.
// The row lock is not held while the game is created; a failed creation
// hands the challenge back to the opponent as pending.
func (uc *AcceptChallengeUseCase) Execute(ctx context.Context, challengeID, userID string) (*ChallengeView, error) {
	expired := false
	c, err := uc.mutate(ctx, challengeID, func(c *challenge.Challenge, now time.Time) error {
		err := c.Accept(userID, now)
		if errors.Is(err, challenge.ErrExpired) {
			expired = c.Expire(now)
			return nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		uc.Logger.Infow("challenge expired before acceptance", "challenge_id", challengeID)
		return nil, challenge.ErrExpired
	}

	gameID, err := uc.createGame(ctx, c)
	if err != nil {
		uc.Logger.Errorw("failed to create challenge game", "challenge_id", c.ID, "error", err)
		if _, rerr := uc.mutate(ctx, c.ID, func(c *challenge.Challenge, now time.Time) error {
			c.Reopen(now)
			return nil
		}); rerr != nil {
			uc.Logger.Errorw("failed to reopen challenge", "challenge_id", c.ID, "error", rerr)
		}
		return nil, err
	}

	c, err = uc.mutate(ctx, c.ID, func(c *challenge.Challenge, now time.Time) error {
		return c.AttachGame(gameID, now)
	})
	if err != nil {
		return nil, err
	}
	uc.Logger.Infow("challenge accepted", "challenge_id", c.ID, "game_id", gameID)
	return toView(c), nil
}

func (uc *AcceptChallengeUseCase) createGame(ctx context.Context, c *challenge.Challenge) (string, error) {
	white, black := uc.seat(c)

	mode := vo.ModeCasual
	if c.Rated {
		mode = vo.ModeRated
	}
	snapshot := map[string]int{}
	if uc.Ratings != nil {
		tc, err := gamevo.ParseTimeControl(c.TimeControl)
		if err != nil {
			return "", err
		}
		for seat, userID := range map[string]string{"white": white, "black": black} {
			r, err := uc.Ratings.CurrentRating(ctx, userID, tc.InitialMS, c.Variant)
			if err != nil {
				return "", err
			}
			if r != nil {
				snapshot[seat] = *r
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, uc.GameCreateTimeout)
	defer cancel()
	return uc.Games.CreateMatchedGame(ctx, clients.MatchedGameRequest{
		MatchID:        c.ID,
		WhiteUserID:    white,
		BlackUserID:    black,
		TimeControl:    c.TimeControl,
		Mode:           mode,
		Variant:        c.Variant,
		RatingSnapshot: snapshot,
		Metadata: map[string]any{
			"matchmaking_source": "challenge",
			"challenge_id":       c.ID,
		},
	})
}

// seat applies the challenger's color preference.
func (uc *AcceptChallengeUseCase) seat(c *challenge.Challenge) (white, black string) {
	switch c.ColorPreference {
	case gamevo.PreferWhite:
		return c.ChallengerID, c.OpponentID
	case gamevo.PreferBlack:
		return c.OpponentID, c.ChallengerID
	}
	if uc.Coin() {
		return c.ChallengerID, c.OpponentID
	}
	return c.OpponentID, c.ChallengerID
}
