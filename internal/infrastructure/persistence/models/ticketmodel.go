package models

import (
	"time"

	"gorm.io/datatypes"
)

// TicketModel is one matchmaking ticket. Constraint and preference columns
// hold JSON documents.
type TicketModel struct {
	ID                 string         `gorm:"primaryKey;size:36"`
	EnqueueKey         string         `gorm:"size:128;not null;index:idx_tickets_enqueue,priority:1"`
	IdempotencyKey     string         `gorm:"size:160;not null"`
	PoolKey            string         `gorm:"size:128;not null;index:idx_tickets_enqueue,priority:2;index:idx_tickets_pool_status,priority:1"`
	Status             string         `gorm:"size:16;not null;index:idx_tickets_pool_status,priority:2"`
	Type               string         `gorm:"size:8;not null;default:solo"`
	Constraints        datatypes.JSON `gorm:"column:constraints"`
	SoftConstraints    datatypes.JSON `gorm:"column:soft_constraints"`
	WideningConfig     datatypes.JSON `gorm:"column:widening_config"`
	SearchParams       datatypes.JSON `gorm:"column:search_params"`
	MutationSeq        int64          `gorm:"not null;default:0"`
	WideningStage      int            `gorm:"not null;default:0"`
	LeaderPlayerID     string         `gorm:"size:64;not null"`
	LastHeartbeatAt    *time.Time
	HeartbeatTimeoutAt *time.Time `gorm:"index"`
	ProposalID         *string    `gorm:"size:36;index"`
	ProposalTimeoutAt  *time.Time
	AcceptedAt         *time.Time
	MatchID            *string `gorm:"size:36"`
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Players []TicketPlayerModel `gorm:"foreignKey:TicketID;references:ID"`
}

func (TicketModel) TableName() string {
	return "match_tickets"
}

// TicketPlayerModel carries the per-player copy of status, pool and enqueue
// key so active-ticket lookups by player need no join.
type TicketPlayerModel struct {
	ID         string         `gorm:"primaryKey;size:36"`
	TicketID   string         `gorm:"size:36;not null;index"`
	PlayerID   string         `gorm:"size:64;not null;uniqueIndex:idx_ticket_players_key,priority:2;index"`
	EnqueueKey string         `gorm:"size:128;not null;uniqueIndex:idx_ticket_players_key,priority:1"`
	PoolKey    string         `gorm:"size:128;not null;uniqueIndex:idx_ticket_players_key,priority:3"`
	Position   int            `gorm:"not null;default:0"`
	MMR        int            `gorm:"column:mmr;not null"`
	RD         float64        `gorm:"column:rd;not null"`
	Platform   string         `gorm:"size:32"`
	InputType  string         `gorm:"size:32"`
	Metadata   datatypes.JSON `gorm:"column:metadata"`
	Status     string         `gorm:"size:16;not null;index"`
	CreatedAt  time.Time
}

func (TicketPlayerModel) TableName() string {
	return "match_ticket_players"
}

type MatchRecordModel struct {
	MatchID        string         `gorm:"primaryKey;size:36"`
	GameID         string         `gorm:"size:36;not null;uniqueIndex"`
	WhiteID        string         `gorm:"size:64;not null;index"`
	BlackID        string         `gorm:"size:64;not null;index"`
	PoolKey        string         `gorm:"size:128;not null"`
	TimeControl    string         `gorm:"size:16;not null"`
	Mode           string         `gorm:"size:8;not null"`
	Variant        string         `gorm:"size:32;not null"`
	Region         string         `gorm:"size:32;not null"`
	TicketIDs      datatypes.JSON `gorm:"column:ticket_ids"`
	RatingSnapshot datatypes.JSON `gorm:"column:rating_snapshot"`
	CreatedAt      time.Time
}

func (MatchRecordModel) TableName() string {
	return "match_records"
}
