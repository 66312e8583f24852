package rating

import (
	"context"

	"github.com/chessforge/gamecore/internal/application/rating/usecases"
	domain "github.com/chessforge/gamecore/internal/domain/rating"
)

type ingestExecutor interface {
	Execute(ctx context.Context, cmd usecases.IngestGameResultCommand) (*usecases.IngestGameResultResult, error)
}

type ratingsReader interface {
	ForUser(ctx context.Context, userID string) ([]usecases.RatingView, error)
	ForPool(ctx context.Context, userID, poolCode string) (*usecases.RatingView, error)
	Bulk(ctx context.Context, cmd usecases.BulkRatingsCommand) ([]usecases.RatingView, error)
	Pools(ctx context.Context) ([]domain.Pool, error)
}

type leaderboardReader interface {
	Execute(ctx context.Context, q usecases.GetLeaderboardQuery) (*usecases.GetLeaderboardResult, error)
	Entry(ctx context.Context, poolCode, userID string) (*usecases.LeaderboardRow, error)
}

type backfillRunner interface {
	Start(ctx context.Context, cmd usecases.StartBackfillCommand) (*domain.BackfillJob, error)
	Status(ctx context.Context, jobID string) (*domain.BackfillJob, error)
	Cancel(ctx context.Context, jobID string) (*domain.BackfillJob, error)
}

type UseCases struct {
	Ingest      ingestExecutor
	Ratings     ratingsReader
	Leaderboard leaderboardReader
	Backfill    backfillRunner
}
