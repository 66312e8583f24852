package mappers

import (
	"github.com/chessforge/gamecore/internal/domain/challenge"
	gamevo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
	"github.com/chessforge/gamecore/internal/shared/biztime"
)

func ChallengeToModel(c *challenge.Challenge) *models.ChallengeModel {
	m := &models.ChallengeModel{
		ID:              c.ID,
		ChallengerID:    c.ChallengerID,
		OpponentID:      c.OpponentID,
		TimeControl:     c.TimeControl,
		Variant:         c.Variant,
		Rated:           c.Rated,
		ColorPreference: string(c.ColorPreference),
		Status:          string(c.Status),
		ExpiresAt:       c.ExpiresAt,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.GameID != "" {
		gameID := c.GameID
		m.GameID = &gameID
	}
	return m
}

func ChallengeToDomain(m *models.ChallengeModel) *challenge.Challenge {
	c := &challenge.Challenge{
		ID:              m.ID,
		ChallengerID:    m.ChallengerID,
		OpponentID:      m.OpponentID,
		TimeControl:     m.TimeControl,
		Variant:         m.Variant,
		Rated:           m.Rated,
		ColorPreference: gamevo.ColorPreference(m.ColorPreference),
		Status:          challenge.Status(m.Status),
		ExpiresAt:       biztime.ToUTC(m.ExpiresAt),
		CreatedAt:       biztime.ToUTC(m.CreatedAt),
		UpdatedAt:       biztime.ToUTC(m.UpdatedAt),
	}
	if m.GameID != nil {
		c.GameID = *m.GameID
	}
	return c
}
