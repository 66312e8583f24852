package models

import (
	"time"
)

type GameModel struct {
	ID             string  `gorm:"primaryKey;size:36"`
	CreatorID      string  `gorm:"size:64;not null;index"`
	WhiteID        *string `gorm:"size:64;index"`
	BlackID        *string `gorm:"size:64;index"`
	BotID          *string `gorm:"size:64"`
	BotColor       *string `gorm:"size:1"`
	Status         string  `gorm:"size:16;not null;index"`
	Rated          bool    `gorm:"not null;default:false"`
	DecisionReason string  `gorm:"size:32;not null;default:manual"`
	Variant        string  `gorm:"size:32;not null;default:standard"`
	InitialMS      int64   `gorm:"column:time_control_initial_ms;not null"`
	IncrementMS    int64   `gorm:"column:time_control_increment_ms;not null"`
	WhiteClockMS   int64   `gorm:"not null"`
	BlackClockMS   int64   `gorm:"not null"`
	SideToMove     string  `gorm:"size:1;not null"`
	FEN            string  `gorm:"column:fen;size:128;not null"`
	StartingFEN    *string `gorm:"column:starting_fen;size:128"`
	IsOdds         bool    `gorm:"column:is_odds_game;not null;default:false"`
	IsLocal        bool    `gorm:"column:is_local_game;not null;default:false"`
	Result         *string `gorm:"size:8"`
	EndReason      *string `gorm:"size:32"`
	DrawOfferBy    *string `gorm:"size:1"`
	CreatedAt      time.Time
	StartedAt      *time.Time
	EndedAt        *time.Time
	UpdatedAt      time.Time

	Moves []GameMoveModel `gorm:"foreignKey:GameID;references:ID"`
}

func (GameModel) TableName() string {
	return "games"
}

type GameMoveModel struct {
	GameID     string  `gorm:"primaryKey;size:36"`
	Ply        int     `gorm:"primaryKey"`
	MoveNumber int     `gorm:"not null"`
	Color      string  `gorm:"size:1;not null"`
	FromSquare string  `gorm:"size:2;not null"`
	ToSquare   string  `gorm:"size:2;not null"`
	Promotion  *string `gorm:"size:1"`
	SAN        string  `gorm:"column:san;size:16;not null"`
	FENAfter   string  `gorm:"column:fen_after;size:128;not null"`
	PlayedAt   time.Time
	ElapsedMS  int64 `gorm:"not null;default:0"`
}

func (GameMoveModel) TableName() string {
	return "game_moves"
}
