package mappers

import (
	"gorm.io/datatypes"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/infrastructure/persistence/models"
)

func PoolToDomain(m *models.RatingPoolModel) *rating.Pool {
	return &rating.Pool{
		Code:          m.Code,
		RatingSystem:  m.RatingSystem,
		InitialRating: m.InitialRating,
		Tau:           m.GlickoTau,
		DefaultRD:     m.DefaultRD,
	}
}

func PoolToModel(p rating.Pool) *models.RatingPoolModel {
	return &models.RatingPoolModel{
		Code:          p.Code,
		RatingSystem:  p.RatingSystem,
		InitialRating: p.InitialRating,
		GlickoTau:     p.Tau,
		DefaultRD:     p.DefaultRD,
	}
}

func UserRatingToDomain(m *models.UserRatingModel) *rating.UserRating {
	return &rating.UserRating{
		UserID:   m.UserID,
		PoolCode: m.PoolCode,
		State: rating.State{
			Rating:     m.Rating,
			RD:         m.RD,
			Volatility: m.Volatility,
		},
		GamesPlayed:   m.GamesPlayed,
		Provisional:   m.Provisional,
		Locked:        m.Locked,
		LastUpdatedAt: m.LastUpdatedAt.UTC(),
	}
}

func UserRatingToModel(u *rating.UserRating) *models.UserRatingModel {
	return &models.UserRatingModel{
		UserID:        u.UserID,
		PoolCode:      u.PoolCode,
		Rating:        u.State.Rating,
		RD:            u.State.RD,
		Volatility:    u.State.Volatility,
		GamesPlayed:   u.GamesPlayed,
		Provisional:   u.Provisional,
		Locked:        u.Locked,
		LastUpdatedAt: u.LastUpdatedAt,
	}
}

func IngestionToDomain(m *models.RatingIngestionModel) *rating.Ingestion {
	return &rating.Ingestion{
		GameID:            m.GameID,
		PoolCode:          m.PoolCode,
		WhiteUserID:       m.WhiteUserID,
		BlackUserID:       m.BlackUserID,
		Result:            rating.GameResult(m.Result),
		Rated:             m.Rated,
		EndedAt:           m.EndedAt.UTC(),
		WhiteRatingBefore: m.WhiteRatingBefore,
		BlackRatingBefore: m.BlackRatingBefore,
		WhiteRatingAfter:  m.WhiteRatingAfter,
		BlackRatingAfter:  m.BlackRatingAfter,
		Response:          []byte(m.Response),
		CreatedAt:         m.CreatedAt.UTC(),
	}
}

func IngestionToModel(i *rating.Ingestion) *models.RatingIngestionModel {
	return &models.RatingIngestionModel{
		GameID:            i.GameID,
		PoolCode:          i.PoolCode,
		WhiteUserID:       i.WhiteUserID,
		BlackUserID:       i.BlackUserID,
		Result:            string(i.Result),
		Rated:             i.Rated,
		EndedAt:           i.EndedAt,
		WhiteRatingBefore: i.WhiteRatingBefore,
		BlackRatingBefore: i.BlackRatingBefore,
		WhiteRatingAfter:  i.WhiteRatingAfter,
		BlackRatingAfter:  i.BlackRatingAfter,
		Response:          datatypes.JSON(i.Response),
		CreatedAt:         i.CreatedAt,
	}
}

func RatingEventToModel(e *rating.Event) *models.RatingEventModel {
	m := &models.RatingEventModel{
		ID:            e.ID,
		UserID:        e.UserID,
		PoolCode:      e.PoolCode,
		OldRating:     e.Old.Rating,
		NewRating:     e.New.Rating,
		OldRD:         e.Old.RD,
		NewRD:         e.New.RD,
		OldVolatility: e.Old.Volatility,
		NewVolatility: e.New.Volatility,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
	}
	if e.GameID != "" {
		gameID := e.GameID
		m.GameID = &gameID
	}
	return m
}

func RatingEventToDomain(m *models.RatingEventModel) *rating.Event {
	e := &rating.Event{
		ID:        m.ID,
		UserID:    m.UserID,
		PoolCode:  m.PoolCode,
		Old:       rating.State{Rating: m.OldRating, RD: m.OldRD, Volatility: m.OldVolatility},
		New:       rating.State{Rating: m.NewRating, RD: m.NewRD, Volatility: m.NewVolatility},
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.UTC(),
	}
	if m.GameID != nil {
		e.GameID = *m.GameID
	}
	return e
}

func OutboxToModel(e *rating.OutboxEntry) *models.EventOutboxModel {
	return &models.EventOutboxModel{
		ID:          e.ID,
		AggregateID: e.AggregateID,
		EventType:   e.EventType,
		EventKey:    e.EventKey,
		Payload:     e.Payload,
		CreatedAt:   e.CreatedAt,
		PublishedAt: e.PublishedAt,
	}
}

func OutboxToDomain(m *models.EventOutboxModel) *rating.OutboxEntry {
	return &rating.OutboxEntry{
		ID:          m.ID,
		AggregateID: m.AggregateID,
		EventType:   m.EventType,
		EventKey:    m.EventKey,
		Payload:     []byte(m.Payload),
		CreatedAt:   m.CreatedAt.UTC(),
		PublishedAt: m.PublishedAt,
	}
}

func BackfillJobToModel(j *rating.BackfillJob) *models.BackfillJobModel {
	return &models.BackfillJobModel{
		ID:           j.ID,
		Status:       string(j.Status),
		WindowStart:  j.WindowStart,
		WindowEnd:    j.WindowEnd,
		PoolFilter:   j.PoolFilter,
		Processed:    j.Processed,
		Skipped:      j.Skipped,
		Errors:       j.Errors,
		ErrorMessage: j.ErrorMessage,
		StartedAt:    j.StartedAt,
		FinishedAt:   j.FinishedAt,
	}
}

func BackfillJobToDomain(m *models.BackfillJobModel) *rating.BackfillJob {
	return &rating.BackfillJob{
		ID:           m.ID,
		Status:       rating.BackfillStatus(m.Status),
		WindowStart:  m.WindowStart.UTC(),
		WindowEnd:    m.WindowEnd.UTC(),
		PoolFilter:   m.PoolFilter,
		Processed:    m.Processed,
		Skipped:      m.Skipped,
		Errors:       m.Errors,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt.UTC(),
		FinishedAt:   m.FinishedAt,
	}
}
