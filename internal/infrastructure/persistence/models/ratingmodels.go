package models

import (
	"time"

	"gorm.io/datatypes"
)

type RatingPoolModel struct {
	Code          string  `gorm:"primaryKey;size:64"`
	RatingSystem  string  `gorm:"size:32;not null;default:glicko2"`
	InitialRating float64 `gorm:"not null;default:1500"`
	GlickoTau     float64 `gorm:"not null;default:0.5"`
	DefaultRD     float64 `gorm:"column:glicko_default_rd;not null;default:350"`
	CreatedAt     time.Time
}

func (RatingPoolModel) TableName() string {
	return "rating_pools"
}

type UserRatingModel struct {
	UserID        string    `gorm:"primaryKey;size:64"`
	PoolCode      string    `gorm:"primaryKey;size:64;index"`
	Rating        float64   `gorm:"not null"`
	RD            float64   `gorm:"column:rating_deviation;not null"`
	Volatility    float64   `gorm:"not null;default:0.06"`
	GamesPlayed   int       `gorm:"not null;default:0"`
	Provisional   bool      `gorm:"not null;default:true"`
	Locked        bool      `gorm:"not null;default:false"`
	LastUpdatedAt time.Time `gorm:"not null"`
}

func (UserRatingModel) TableName() string {
	return "user_ratings"
}

type RatingIngestionModel struct {
	GameID            string `gorm:"primaryKey;size:64"`
	PoolCode          string `gorm:"primaryKey;size:64"`
	WhiteUserID       string `gorm:"size:64;not null"`
	BlackUserID       string `gorm:"size:64;not null"`
	Result            string `gorm:"size:16;not null"`
	Rated             bool   `gorm:"not null"`
	EndedAt           time.Time
	WhiteRatingBefore *float64
	BlackRatingBefore *float64
	WhiteRatingAfter  *float64
	BlackRatingAfter  *float64
	Response          datatypes.JSON
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (RatingIngestionModel) TableName() string {
	return "rating_ingestions"
}

type RatingEventModel struct {
	ID            string  `gorm:"primaryKey;size:36"`
	UserID        string  `gorm:"size:64;not null;index:idx_rating_events_user_pool"`
	PoolCode      string  `gorm:"size:64;not null;index:idx_rating_events_user_pool"`
	GameID        *string `gorm:"size:64;index"`
	OldRating     float64
	NewRating     float64
	OldRD         float64
	NewRD         float64
	OldVolatility float64
	NewVolatility float64
	Reason        string    `gorm:"size:32;not null"`
	CreatedAt     time.Time `gorm:"not null;index"`
}

func (RatingEventModel) TableName() string {
	return "rating_events"
}

type EventOutboxModel struct {
	ID          string         `gorm:"primaryKey;size:36"`
	AggregateID string         `gorm:"size:160;not null;uniqueIndex:uk_outbox_event"`
	EventType   string         `gorm:"size:64;not null;uniqueIndex:uk_outbox_event"`
	EventKey    string         `gorm:"size:64;not null;uniqueIndex:uk_outbox_event"`
	Payload     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null;index"`
	PublishedAt *time.Time     `gorm:"index"`
}

func (EventOutboxModel) TableName() string {
	return "event_outbox"
}

type LeaderboardModel struct {
	PoolCode  string `gorm:"primaryKey;size:64;index:idx_leaderboard_pool_rating,priority:1"`
	UserID    string `gorm:"primaryKey;size:64"`
	RatingInt int64  `gorm:"column:rating;not null;index:idx_leaderboard_pool_rating,priority:2,sort:desc"`
	Rank      int    `gorm:"column:rank_no;not null;default:0"`
	UpdatedAt time.Time
}

func (LeaderboardModel) TableName() string {
	return "leaderboards"
}

type BackfillJobModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Status       string    `gorm:"size:16;not null;index"`
	WindowStart  time.Time `gorm:"not null"`
	WindowEnd    time.Time `gorm:"not null"`
	PoolFilter   string    `gorm:"size:64"`
	Processed    int       `gorm:"not null;default:0"`
	Skipped      int       `gorm:"not null;default:0"`
	Errors       int       `gorm:"not null;default:0"`
	ErrorMessage string    `gorm:"type:text"`
	StartedAt    time.Time `gorm:"not null"`
	FinishedAt   *time.Time
}

func (BackfillJobModel) TableName() string {
	return "rating_backfill_jobs"
}
