package rating

import "time"

type BackfillStatus string

const (
	BackfillRunning   BackfillStatus = "running"
	BackfillCompleted BackfillStatus = "completed"
	BackfillFailed    BackfillStatus = "failed"
	BackfillCancelled BackfillStatus = "cancelled"
)

func (s BackfillStatus) IsTerminal() bool {
	return s != BackfillRunning
}

// BackfillJob tracks an admin-triggered replay of game.ended events.
type BackfillJob struct {
	ID           string
	Status       BackfillStatus
	WindowStart  time.Time
	WindowEnd    time.Time
	PoolFilter   string
	Processed    int
	Skipped      int
	Errors       int
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

func (j *BackfillJob) Finish(status BackfillStatus, at time.Time) {
	if j.Status.IsTerminal() {
		return
	}
	j.Status = status
	j.FinishedAt = &at
}
