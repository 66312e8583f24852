package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/mappers"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/db"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// GameRepository stores games in games and their move lists in game_moves.
type GameRepository struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewGameRepository(db *gorm.DB, logger logger.Interface) *GameRepository {
	return &GameRepository{db: db, logger: logger}
}

func (r *GameRepository) Create(ctx context.Context, g *game.Game) error {
	model := mappers.GameToModel(g)
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		if db.IsDuplicateKey(err) {
			return fmt.Errorf("game %s already exists: %w", g.ID(), err)
		}
		r.logger.Errorw("failed to create game", "game_id", g.ID(), "error", err)
		return fmt.Errorf("failed to create game: %w", err)
	}
	if len(model.Moves) > 0 {
		if err := tx.Create(&model.Moves).Error; err != nil {
			return fmt.Errorf("failed to create game moves: %w", err)
		}
	}
	return nil
}

// Update writes the game row and reconciles game_moves with the aggregate's
// move list: plies past the current length are removed (takeback) and new
// plies are appended. Existing plies are never rewritten.
func (r *GameRepository) Update(ctx context.Context, g *game.Game) error {
	model := mappers.GameToModel(g)
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.GameModel{}).
		Where("id = ?", model.ID).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(model)
	if result.Error != nil {
		r.logger.Errorw("failed to update game", "game_id", g.ID(), "error", result.Error)
		return fmt.Errorf("failed to update game: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return game.ErrGameNotFound
	}

	if err := tx.Where("game_id = ? AND ply > ?", model.ID, len(model.Moves)).
		Delete(&models.GameMoveModel{}).Error; err != nil {
		return fmt.Errorf("failed to trim game moves: %w", err)
	}
	if len(model.Moves) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.Moves).Error; err != nil {
			return fmt.Errorf("failed to append game moves: %w", err)
		}
	}
	return nil
}

func (r *GameRepository) GetByID(ctx context.Context, gameID string) (*game.Game, error) {
	return r.load(db.GetTxFromContext(ctx, r.db), gameID, false)
}

// GetForUpdate locks the games row until the surrounding transaction ends.
func (r *GameRepository) GetForUpdate(ctx context.Context, gameID string) (*game.Game, error) {
	return r.load(db.GetTxFromContext(ctx, r.db), gameID, true)
}

func (r *GameRepository) ListActiveByPlayer(ctx context.Context, playerID string) ([]*game.Game, error) {
	var rows []models.GameModel
	tx := db.GetTxFromContext(ctx, r.db)
	err := tx.
		Where("status IN ?", []string{string(vo.StatusWaiting), string(vo.StatusInProgress)}).
		Where("white_id = ? OR black_id = ? OR creator_id = ?", playerID, playerID, playerID).
		Order("created_at DESC").
		Preload("Moves", func(q *gorm.DB) *gorm.DB { return q.Order("ply ASC") }).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active games: %w", err)
	}

	games := make([]*game.Game, 0, len(rows))
	for i := range rows {
		g, err := mappers.GameToDomain(&rows[i])
		if err != nil {
			r.logger.Warnw("skipping unreadable game row", "game_id", rows[i].ID, "error", err)
			continue
		}
		games = append(games, g)
	}
	return games, nil
}

func (r *GameRepository) ListInProgressIDs(ctx context.Context, limit int) ([]string, error) {
	var ids []string
	err := db.GetTxFromContext(ctx, r.db).
		Model(&models.GameModel{}).
		Where("status = ?", string(vo.StatusInProgress)).
		Order("updated_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list in-progress games: %w", err)
	}
	return ids, nil
}

func (r *GameRepository) load(tx *gorm.DB, gameID string, lock bool) (*game.Game, error) {
	var model models.GameModel
	q := tx
	if lock {
		q = db.ForUpdate(tx)
	}
	if err := q.Where("id = ?", gameID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to find game: %w", err)
	}
	if err := tx.Where("game_id = ?", gameID).Order("ply ASC").Find(&model.Moves).Error; err != nil {
		return nil, fmt.Errorf("failed to load game moves: %w", err)
	}
	return mappers.GameToDomain(&model)
}
