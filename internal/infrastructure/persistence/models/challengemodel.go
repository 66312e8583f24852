package models

import "time"

type ChallengeModel struct {
	ID              string    `gorm:"primaryKey;size:36"`
	ChallengerID    string    `gorm:"size:64;not null;index"`
	OpponentID      string    `gorm:"size:64;not null;index:idx_challenges_opponent_status,priority:1"`
	TimeControl     string    `gorm:"size:16;not null"`
	Variant         string    `gorm:"size:32;not null;default:standard"`
	Rated           bool      `gorm:"not null;default:false"`
	ColorPreference string    `gorm:"size:8;not null;default:random"`
	Status          string    `gorm:"size:16;not null;index:idx_challenges_opponent_status,priority:2;index:idx_challenges_status_expiry,priority:1"`
	GameID          *string   `gorm:"size:36"`
	ExpiresAt       time.Time `gorm:"not null;index:idx_challenges_status_expiry,priority:2"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ChallengeModel) TableName() string {
	return "challenges"
}
