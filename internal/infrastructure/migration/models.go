package migration

import (
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
)

// Models lists every table the core owns, in creation order.
func Models() []any {
	return append(initialModels(), challengeModels()...)
}

// initialModels are the tables version 1 creates.
func initialModels() []any {
	return []any{
		&models.TicketModel{},
		&models.TicketPlayerModel{},
		&models.MatchRecordModel{},
		&models.GameModel{},
		&models.GameMoveModel{},
		&models.RatingPoolModel{},
		&models.UserRatingModel{},
		&models.RatingIngestionModel{},
		&models.RatingEventModel{},
		&models.EventOutboxModel{},
		&models.LeaderboardModel{},
		&models.BackfillJobModel{},
	}
}

func challengeModels() []any {
	return []any{&models.ChallengeModel{}}
}

// secondaryIndexes are the query-path indexes the model tags do not express.
var secondaryIndexes = []struct {
	table   string
	name    string
	columns string
}{
	{"match_tickets", "idx_tickets_heartbeat", "status, heartbeat_timeout_at"},
	{"match_tickets", "idx_tickets_proposal", "proposal_id, status"},
	{"games", "idx_games_status_updated", "status, updated_at"},
	{"event_outbox", "idx_outbox_pending", "published_at, id"},
}
