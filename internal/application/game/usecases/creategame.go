package usecases

import (
	"context"
	"strings"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
)

// TimeControlInput accepts either explicit milliseconds or the
// "minutes+seconds" notation.
type TimeControlInput struct {
	Notation    string
	InitialMS   int64
	IncrementMS int64
}

func (in TimeControlInput) parse() (vo.TimeControl, error) {
	var (
		tc  vo.TimeControl
		err error
	)
	if strings.TrimSpace(in.Notation) != "" {
		tc, err = vo.ParseTimeControl(in.Notation)
	} else {
		tc, err = vo.NewTimeControl(in.InitialMS, in.IncrementMS)
	}
	if err != nil {
		return vo.TimeControl{}, apperrors.NewValidationError("invalid time control", err.Error())
	}
	return tc, nil
}

type CreateChallengeCommand struct {
	CreatorID       string
	TimeControl     TimeControlInput
	Variant         string
	ColorPreference string
	Rated           bool
	StartingFEN     string
	IsOdds          bool
	IsLocal         bool
}

// CreateChallengeUseCase opens a game that waits for a second player.
type CreateChallengeUseCase struct {
	w *gameWriter
}

func NewCreateChallengeUseCase(deps Dependencies) *CreateChallengeUseCase {
	return &CreateChallengeUseCase{w: newGameWriter(deps)}
}

func (uc *CreateChallengeUseCase) Execute(ctx context.Context, cmd CreateChallengeCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing create challenge use case",
		"creator_id", cmd.CreatorID,
		"rated", cmd.Rated,
		"is_local", cmd.IsLocal,
	)

	if cmd.CreatorID == "" {
		return nil, apperrors.NewValidationError("creator_id is required")
	}
	tc, err := cmd.TimeControl.parse()
	if err != nil {
		return nil, err
	}
	pref, err := vo.NewColorPreference(cmd.ColorPreference)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid color preference", err.Error())
	}

	decision := uc.w.Policy.Decide(game.DecisionInput{
		RequestedRated: cmd.Rated,
		IsLocal:        cmd.IsLocal,
		HasCustomFEN:   strings.TrimSpace(cmd.StartingFEN) != "",
		IsOdds:         cmd.IsOdds,
	})

	now := uc.w.now()
	g, err := game.NewChallenge(game.ChallengeParams{
		CreatorID:       cmd.CreatorID,
		TimeControl:     tc,
		Variant:         cmd.Variant,
		ColorPreference: pref,
		StartingFEN:     cmd.StartingFEN,
		IsOdds:          cmd.IsOdds,
		IsLocal:         cmd.IsLocal,
		Decision:        decision,
		Now:             now,
	})
	if err != nil {
		if apperrors.GetAppError(err) != nil {
			return nil, err
		}
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.w.create(ctx, g); err != nil {
		return nil, err
	}
	uc.w.Logger.Infow("challenge created",
		"game_id", g.ID(),
		"rated", g.Rated(),
		"decision_reason", g.DecisionReason(),
	)
	return ToGameView(g, now), nil
}

type CreateGameCommand struct {
	WhiteID     string
	BlackID     string
	TimeControl TimeControlInput
	Variant     string
	Rated       bool
	WhiteRating *int
	BlackRating *int
	MatchID     string
}

// CreateGameUseCase starts a game for a matchmaking pairing. Both players
// are known, so the game is in progress immediately.
type CreateGameUseCase struct {
	w *gameWriter
}

func NewCreateGameUseCase(deps Dependencies) *CreateGameUseCase {
	return &CreateGameUseCase{w: newGameWriter(deps)}
}

func (uc *CreateGameUseCase) Execute(ctx context.Context, cmd CreateGameCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing create game use case",
		"white_id", cmd.WhiteID,
		"black_id", cmd.BlackID,
		"match_id", cmd.MatchID,
	)

	tc, err := cmd.TimeControl.parse()
	if err != nil {
		return nil, err
	}
	decision := uc.w.Policy.Decide(game.DecisionInput{
		RequestedRated: cmd.Rated,
		Player1Rating:  cmd.WhiteRating,
		Player2Rating:  cmd.BlackRating,
	})

	now := uc.w.now()
	g, err := game.NewMatchedGame(game.MatchedParams{
		WhiteID:     cmd.WhiteID,
		BlackID:     cmd.BlackID,
		TimeControl: tc,
		Variant:     cmd.Variant,
		Decision:    decision,
		Now:         now,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.w.create(ctx, g); err != nil {
		return nil, err
	}
	uc.w.Logger.Infow("matched game created", "game_id", g.ID(), "match_id", cmd.MatchID, "rated", g.Rated())
	return ToGameView(g, now), nil
}

type CreateBotGameCommand struct {
	PlayerID    string
	Difficulty  string
	PlayerColor string
	TimeControl TimeControlInput
}

// CreateBotGameUseCase seats a player against a bot. The game starts at once
// and the bot is asked for its move when it has white.
type CreateBotGameUseCase struct {
	w *gameWriter
}

func NewCreateBotGameUseCase(deps Dependencies) *CreateBotGameUseCase {
	return &CreateBotGameUseCase{w: newGameWriter(deps)}
}

func (uc *CreateBotGameUseCase) Execute(ctx context.Context, cmd CreateBotGameCommand) (*GameView, error) {
	uc.w.Logger.Infow("executing create bot game use case",
		"player_id", cmd.PlayerID,
		"difficulty", cmd.Difficulty,
	)

	if cmd.PlayerID == "" {
		return nil, apperrors.NewValidationError("player_id is required")
	}
	tc, err := cmd.TimeControl.parse()
	if err != nil {
		return nil, err
	}
	pref, err := vo.NewColorPreference(cmd.PlayerColor)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid player color", err.Error())
	}

	now := uc.w.now()
	g, err := game.NewBotGame(game.BotGameParams{
		CreatorID:   cmd.PlayerID,
		Bot:         game.BotForDifficulty(strings.ToLower(strings.TrimSpace(cmd.Difficulty))),
		PlayerColor: pref,
		TimeControl: tc,
		Now:         now,
	})
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.w.create(ctx, g); err != nil {
		return nil, err
	}
	uc.w.Logger.Infow("bot game created", "game_id", g.ID(), "bot_id", g.BotID(), "bot_color", g.BotColor())
	return ToGameView(g, now), nil
}
