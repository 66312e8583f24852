package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/mappers"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/db"
)

type ChallengeRepository struct {
	db *gorm.DB
}

func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

func (r *ChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.ChallengeToModel(c)).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *ChallengeRepository) GetByID(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	return r.load(db.GetTxFromContext(ctx, r.db), challengeID)
}

func (r *ChallengeRepository) GetForUpdate(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	return r.load(db.ForUpdate(db.GetTxFromContext(ctx, r.db)), challengeID)
}

func (r *ChallengeRepository) load(tx *gorm.DB, challengeID string) (*challenge.Challenge, error) {
	var model models.ChallengeModel
	if err := tx.Where("id = ?", challengeID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, challenge.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	return mappers.ChallengeToDomain(&model), nil
}

func (r *ChallengeRepository) Update(ctx context.Context, c *challenge.Challenge) error {
	m := mappers.ChallengeToModel(c)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.ChallengeModel{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"status":     m.Status,
			"game_id":    m.GameID,
			"updated_at": m.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update challenge: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return challenge.ErrChallengeNotFound
	}
	return nil
}

func (r *ChallengeRepository) ListIncoming(ctx context.Context, userID string, limit int) ([]*challenge.Challenge, error) {
	var rows []models.ChallengeModel
	err := db.GetTxFromContext(ctx, r.db).
		Where("opponent_id = ? AND status = ?", userID, string(challenge.StatusPending)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming challenges: %w", err)
	}
	out := make([]*challenge.Challenge, len(rows))
	for i := range rows {
		out[i] = mappers.ChallengeToDomain(&rows[i])
	}
	return out, nil
}

func (r *ChallengeRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.ChallengeModel{}).
		Where("status = ? AND expires_at <= ?", string(challenge.StatusPending), now.UTC()).
		Updates(map[string]any{
			"status":     string(challenge.StatusExpired),
			"updated_at": now.UTC(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}
