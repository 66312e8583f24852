package game

import (
	"context"
)

// Repository persists games. GetForUpdate must hold a row lock on the game
// until the surrounding transaction ends.
type Repository interface {
	Create(ctx context.Context, g *Game) error
	Update(ctx context.Context, g *Game) error
	GetByID(ctx context.Context, gameID string) (*Game, error)
	GetForUpdate(ctx context.Context, gameID string) (*Game, error)
	ListActiveByPlayer(ctx context.Context, playerID string) ([]*Game, error)
	// ListInProgressIDs returns up to limit in-progress games, least
	// recently updated first.
	ListInProgressIDs(ctx context.Context, limit int) ([]string, error)
}
