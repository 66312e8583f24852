package http

import (
	"time"

	"gorm.io/gorm"

	"github.com/chessforge/gamecore/internal/infrastructure/repository"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const transactionTimeout = 30 * time.Second

// repositories holds every repository instance of the process. Types match
// the return types of the repository constructors.
type repositories struct {
	txMgr *db.TransactionManager

	ticketRepo      *repository.TicketRepository
	matchRecordRepo *repository.MatchRecordRepository
	gameRepo        *repository.GameRepository
	challengeRepo   *repository.ChallengeRepository

	ratingPoolRepo      *repository.RatingPoolRepository
	userRatingRepo      *repository.UserRatingRepository
	ratingIngestionRepo *repository.RatingIngestionRepository
	ratingEventRepo     *repository.RatingEventRepository
	eventOutboxRepo     *repository.EventOutboxRepository
	leaderboardRepo     *repository.LeaderboardRepository
	backfillJobRepo     *repository.BackfillJobRepository
}

// newRepositories builds every repository. A non-positive txTimeout falls
// back to transactionTimeout.
func newRepositories(gdb *gorm.DB, txTimeout time.Duration, log logger.Interface) *repositories {
	if txTimeout <= 0 {
		txTimeout = transactionTimeout
	}
	return &repositories{
		txMgr: db.NewTransactionManager(gdb, txTimeout),

		ticketRepo:      repository.NewTicketRepository(gdb, log),
		matchRecordRepo: repository.NewMatchRecordRepository(gdb),
		gameRepo:        repository.NewGameRepository(gdb, log),
		challengeRepo:   repository.NewChallengeRepository(gdb),

		ratingPoolRepo:      repository.NewRatingPoolRepository(gdb),
		userRatingRepo:      repository.NewUserRatingRepository(gdb),
		ratingIngestionRepo: repository.NewRatingIngestionRepository(gdb),
		ratingEventRepo:     repository.NewRatingEventRepository(gdb),
		eventOutboxRepo:     repository.NewEventOutboxRepository(gdb),
		leaderboardRepo:     repository.NewLeaderboardRepository(gdb),
		backfillJobRepo:     repository.NewBackfillJobRepository(gdb),
	}
}
