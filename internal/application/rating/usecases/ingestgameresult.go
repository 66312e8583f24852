package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/id"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

type transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type IngestGameResultCommand struct {
	GameID      string
	PoolCode    string
	WhiteUserID string
	BlackUserID string
	Result      string
	Rated       bool
	EndedAt     time.Time
}

type SideRating struct {
	UserID      string  `json:"user_id"`
	Rating      float64 `json:"rating"`
	RD          float64 `json:"rating_deviation"`
	Volatility  float64 `json:"volatility"`
	GamesPlayed int     `json:"games_played"`
	Provisional bool    `json:"provisional"`
}

// IngestGameResultResult is stored with the ingestion row, so a duplicate
// delivery gets back exactly what the first one did.
type IngestGameResultResult struct {
	GameID           string     `json:"game_id"`
	PoolCode         string     `json:"pool_id"`
	WhiteRatingAfter float64    `json:"white_rating_after"`
	BlackRatingAfter float64    `json:"black_rating_after"`
	White            SideRating `json:"white"`
	Black            SideRating `json:"black"`
	// Replayed is set when the result had already been applied.
	Replayed bool `json:"-"`
}

func newIngestResult(gameID, poolCode string, white, black SideRating) *IngestGameResultResult {
	return &IngestGameResultResult{
		GameID:           gameID,
		PoolCode:         poolCode,
		WhiteRatingAfter: white.Rating,
		BlackRatingAfter: black.Rating,
		White:            white,
		Black:            black,
	}
}

// IngestGameResultUseCase applies one finished game to both players'
// ratings exactly once per (game, pool).
type IngestGameResultUseCase struct {
	pools       rating.PoolRepository
	ratings     rating.UserRatingRepository
	ingestions  rating.IngestionRepository
	events      rating.EventRepository
	outbox      rating.OutboxRepository
	leaderboard rating.LeaderboardRepository
	txMgr       transactor
	logger      logger.Interface
}

func NewIngestGameResultUseCase(
	pools rating.PoolRepository,
	ratings rating.UserRatingRepository,
	ingestions rating.IngestionRepository,
	events rating.EventRepository,
	outbox rating.OutboxRepository,
	leaderboard rating.LeaderboardRepository,
	txMgr transactor,
	logger logger.Interface,
) *IngestGameResultUseCase {
	return &IngestGameResultUseCase{
		pools:       pools,
		ratings:     ratings,
		ingestions:  ingestions,
		events:      events,
		outbox:      outbox,
		leaderboard: leaderboard,
		txMgr:       txMgr,
		logger:      logger,
	}
}

func (uc *IngestGameResultUseCase) Execute(ctx context.Context, cmd IngestGameResultCommand) (*IngestGameResultResult, error) {
	uc.logger.Infow("executing ingest game result use case",
		"game_id", cmd.GameID,
		"pool_code", cmd.PoolCode,
		"result", cmd.Result,
		"rated", cmd.Rated,
	)

	result, err := uc.validate(cmd)
	if err != nil {
		return nil, err
	}

	pool, err := uc.pools.GetByCode(ctx, cmd.PoolCode)
	if err != nil {
		return nil, err
	}

	if !cmd.Rated {
		return uc.currentRatings(ctx, cmd, *pool)
	}

	var out *IngestGameResultResult
	err = uc.txMgr.RunInTransaction(ctx, func(ctx context.Context) error {
		var txErr error
		out, txErr = uc.apply(ctx, cmd, result, *pool)
		return txErr
	})
	if errors.Is(err, rating.ErrDuplicateIngestion) {
		return uc.replay(ctx, cmd)
	}
	if err != nil {
		uc.logger.Errorw("failed to ingest game result", "game_id", cmd.GameID, "error", err)
		return nil, err
	}

	uc.logger.Infow("game result ingested",
		"game_id", cmd.GameID,
		"pool_code", cmd.PoolCode,
		"white_rating", out.White.Rating,
		"black_rating", out.Black.Rating,
	)
	return out, nil
}

func (uc *IngestGameResultUseCase) validate(cmd IngestGameResultCommand) (rating.GameResult, error) {
	if cmd.GameID == "" {
		return "", apperrors.NewValidationError("game_id is required")
	}
	if cmd.PoolCode == "" {
		return "", apperrors.NewValidationError("pool_id is required")
	}
	if cmd.WhiteUserID == "" || cmd.BlackUserID == "" {
		return "", apperrors.NewValidationError("white and black players are required")
	}
	if cmd.WhiteUserID == cmd.BlackUserID {
		return "", rating.ErrSamePlayer
	}
	result, ok := rating.ParseGameResult(cmd.Result)
	if !ok {
		return "", rating.ErrInvalidResult
	}
	return result, nil
}

func (uc *IngestGameResultUseCase) apply(ctx context.Context, cmd IngestGameResultCommand, result rating.GameResult, pool rating.Pool) (*IngestGameResultResult, error) {
	now := biztime.NowUTC()
	endedAt := cmd.EndedAt
	if endedAt.IsZero() {
		endedAt = now
	}

	ing := &rating.Ingestion{
		GameID:      cmd.GameID,
		PoolCode:    pool.Code,
		WhiteUserID: cmd.WhiteUserID,
		BlackUserID: cmd.BlackUserID,
		Result:      result,
		Rated:       true,
		EndedAt:     endedAt,
	}
	if err := uc.ingestions.Insert(ctx, ing); err != nil {
		return nil, err
	}

	white, err := uc.loadOrDefault(ctx, cmd.WhiteUserID, pool, now)
	if err != nil {
		return nil, err
	}
	black, err := uc.loadOrDefault(ctx, cmd.BlackUserID, pool, now)
	if err != nil {
		return nil, err
	}

	whiteBefore, blackBefore := white.State, black.State
	sWhite, sBlack := result.Scores()
	engine := rating.NewGlicko2(pool.Tau)
	whiteAfter := engine.Update(whiteBefore, []rating.State{blackBefore}, []float64{sWhite})
	blackAfter := engine.Update(blackBefore, []rating.State{whiteBefore}, []float64{sBlack})

	white.ApplyGame(whiteAfter, now)
	black.ApplyGame(blackAfter, now)

	for _, side := range []struct {
		user   *rating.UserRating
		before rating.State
	}{
		{white, whiteBefore},
		{black, blackBefore},
	} {
		if err := uc.persistSide(ctx, side.user, side.before, cmd.GameID, now); err != nil {
			return nil, err
		}
	}

	if err := uc.leaderboard.RecomputeRanks(ctx, pool.Code); err != nil {
		return nil, err
	}

	out := newIngestResult(cmd.GameID, pool.Code, toSideRating(white), toSideRating(black))
	response, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ingestion response: %w", err)
	}
	ing.Complete(whiteBefore.Rating, blackBefore.Rating, white.State.Rating, black.State.Rating, response)
	if err := uc.ingestions.Update(ctx, ing); err != nil {
		return nil, err
	}
	return out, nil
}

// persistSide saves u, writes the audit row, refreshes the leaderboard entry
// and stages rating.updated. Locked ratings are saved for games_played only.
func (uc *IngestGameResultUseCase) persistSide(ctx context.Context, u *rating.UserRating, before rating.State, gameID string, now time.Time) error {
	if err := uc.ratings.Save(ctx, u); err != nil {
		return err
	}
	if u.Locked {
		return nil
	}

	if err := uc.events.Create(ctx, &rating.Event{
		ID:        id.New(),
		UserID:    u.UserID,
		PoolCode:  u.PoolCode,
		GameID:    gameID,
		Old:       before,
		New:       u.State,
		Reason:    rating.ReasonGame,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	if err := uc.leaderboard.Upsert(ctx, rating.LeaderboardEntry{
		PoolCode:  u.PoolCode,
		UserID:    u.UserID,
		RatingInt: rating.RatingInt(u.State.Rating),
	}); err != nil {
		return err
	}

	payload, err := json.Marshal(rating.NewRatingUpdatedEvent(u, gameID, now))
	if err != nil {
		return fmt.Errorf("failed to encode rating.updated: %w", err)
	}
	return uc.outbox.Create(ctx, &rating.OutboxEntry{
		ID:          id.New(),
		AggregateID: rating.OutboxAggregateID(u.UserID, u.PoolCode),
		EventType:   rating.EventRatingUpdated,
		EventKey:    gameID,
		Payload:     payload,
		CreatedAt:   now,
	})
}

func (uc *IngestGameResultUseCase) loadOrDefault(ctx context.Context, userID string, pool rating.Pool, now time.Time) (*rating.UserRating, error) {
	u, err := uc.ratings.GetForUpdate(ctx, userID, pool.Code)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u = rating.NewUserRating(userID, pool, now)
	}
	return u, nil
}

// replay answers a duplicate delivery from the stored ingestion row.
func (uc *IngestGameResultUseCase) replay(ctx context.Context, cmd IngestGameResultCommand) (*IngestGameResultResult, error) {
	ing, err := uc.ingestions.Get(ctx, cmd.GameID, cmd.PoolCode)
	if err != nil {
		return nil, err
	}
	if ing == nil || !ing.IsComplete() {
		uc.logger.Warnw("game result ingestion in flight", "game_id", cmd.GameID, "pool_code", cmd.PoolCode)
		return nil, rating.ErrIngestionInFlight
	}

	uc.logger.Infow("game result already ingested", "game_id", cmd.GameID, "pool_code", cmd.PoolCode)
	var out IngestGameResultResult
	if err := json.Unmarshal(ing.Response, &out); err != nil {
		uc.logger.Warnw("stored ingestion response unreadable, rebuilding from ratings",
			"game_id", cmd.GameID,
			"pool_code", cmd.PoolCode,
			"error", err,
		)
		out = *newIngestResult(ing.GameID, ing.PoolCode,
			SideRating{UserID: ing.WhiteUserID, Rating: *ing.WhiteRatingAfter},
			SideRating{UserID: ing.BlackUserID, Rating: *ing.BlackRatingAfter},
		)
	}
	out.Replayed = true
	return &out, nil
}

// currentRatings reports ratings for an unrated game without touching them.
func (uc *IngestGameResultUseCase) currentRatings(ctx context.Context, cmd IngestGameResultCommand, pool rating.Pool) (*IngestGameResultResult, error) {
	now := biztime.NowUTC()
	white, err := uc.ratings.Get(ctx, cmd.WhiteUserID, pool.Code)
	if err != nil {
		return nil, err
	}
	if white == nil {
		white = rating.NewUserRating(cmd.WhiteUserID, pool, now)
	}
	black, err := uc.ratings.Get(ctx, cmd.BlackUserID, pool.Code)
	if err != nil {
		return nil, err
	}
	if black == nil {
		black = rating.NewUserRating(cmd.BlackUserID, pool, now)
	}

	uc.logger.Infow("unrated game result ignored", "game_id", cmd.GameID)
	return newIngestResult(cmd.GameID, pool.Code, toSideRating(white), toSideRating(black)), nil
}

func toSideRating(u *rating.UserRating) SideRating {
	return SideRating{
		UserID:      u.UserID,
		Rating:      u.State.Rating,
		RD:          u.State.RD,
		Volatility:  u.State.Volatility,
		GamesPlayed: u.GamesPlayed,
		Provisional: u.Provisional,
	}
}
