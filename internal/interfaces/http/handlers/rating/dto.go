package rating

import (
	"time"

	domain "github.com/chessforge/gamecore/internal/domain/rating"
)

type GameResultRequest struct {
	GameID      string     `json:"game_id" binding:"required"`
	PoolID      string     `json:"pool_id" binding:"required"`
	WhiteUserID string     `json:"white_user_id" binding:"required"`
	BlackUserID string     `json:"black_user_id" binding:"required"`
	Result      string     `json:"result" binding:"required"`
	Rated       *bool      `json:"rated"`
	EndedAt     *time.Time `json:"ended_at"`
}

type BulkRatingsRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=200"`
	PoolID  string   `json:"pool_id"`
}

type StartBackfillRequest struct {
	WindowStart time.Time `json:"window_start" binding:"required"`
	WindowEnd   time.Time `json:"window_end" binding:"required"`
	PoolFilter  string    `json:"pool_filter"`
}

type PoolDTO struct {
	PoolID        string  `json:"pool_id"`
	RatingSystem  string  `json:"rating_system"`
	InitialRating float64 `json:"initial_rating"`
	Tau           float64 `json:"tau"`
	DefaultRD     float64 `json:"default_rd"`
}

func toPoolDTOs(pools []domain.Pool) []PoolDTO {
	out := make([]PoolDTO, 0, len(pools))
	for _, p := range pools {
		out = append(out, PoolDTO{
			PoolID:        p.Code,
			RatingSystem:  p.RatingSystem,
			InitialRating: p.InitialRating,
			Tau:           p.Tau,
			DefaultRD:     p.DefaultRD,
		})
	}
	return out
}

type BackfillJobDTO struct {
	JobID        string     `json:"job_id"`
	Status       string     `json:"status"`
	WindowStart  time.Time  `json:"window_start"`
	WindowEnd    time.Time  `json:"window_end"`
	PoolFilter   string     `json:"pool_filter,omitempty"`
	Processed    int        `json:"processed"`
	Skipped      int        `json:"skipped"`
	Errors       int        `json:"errors"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func toBackfillJobDTO(j *domain.BackfillJob) *BackfillJobDTO {
	return &BackfillJobDTO{
		JobID:        j.ID,
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
