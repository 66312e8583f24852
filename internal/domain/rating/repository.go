package rating

import (
	"context"
	"time"
)

type PoolRepository interface {
	GetByCode(ctx context.Context, code string) (*Pool, error)
	List(ctx context.Context) ([]Pool, error)
	EnsureExists(ctx context.Context, pools ...Pool) error
}

// UserRatingRepository returns nil, nil from Get when the player has no
// rating in the pool yet.
type UserRatingRepository interface {
	Get(ctx context.Context, userID, poolCode string) (*UserRating, error)
	GetForUpdate(ctx context.Context, userID, poolCode string) (*UserRating, error)
	ListByUser(ctx context.Context, userID string) ([]*UserRating, error)
	ListByUsers(ctx context.Context, userIDs []string, poolCode string) ([]*UserRating, error)
	Save(ctx context.Context, u *UserRating) error
}

// IngestionRepository.Insert returns ErrDuplicateIngestion when the
// (game, pool) row already exists.
type IngestionRepository interface {
	Insert(ctx context.Context, i *Ingestion) error
	Get(ctx context.Context, gameID, poolCode string) (*Ingestion, error)
	Update(ctx context.Context, i *Ingestion) error
}

type EventRepository interface {
	Create(ctx context.Context, e *Event) error
	ListByUser(ctx context.Context, userID, poolCode string, limit int) ([]*Event, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, e *OutboxEntry) error
	// FetchUnpublished locks up to limit pending rows for the current transaction.
	FetchUnpublished(ctx context.Context, limit int) ([]*OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []string, at time.Time) error
}

type LeaderboardRepository interface {
	Upsert(ctx context.Context, e LeaderboardEntry) error
	RecomputeRanks(ctx context.Context, poolCode string) error
	List(ctx context.Context, poolCode string, limit, offset int) ([]LeaderboardEntry, int64, error)
	// Get returns ErrNotRanked when the user has no row in the pool.
	Get(ctx context.Context, poolCode, userID string) (*LeaderboardEntry, error)
}

type BackfillJobRepository interface {
	Create(ctx context.Context, j *BackfillJob) error
	Update(ctx context.Context, j *BackfillJob) error
	GetByID(ctx context.Context, jobID string) (*BackfillJob, error)
	GetRunning(ctx context.Context) (*BackfillJob, error)
}
