package usecases

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	apperrors "github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/goroutine"
	"github.com/chessforge/gamecore/internal/shared/id"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

const (
	maxBackfillWindow     = 31 * 24 * time.Hour
	backfillProgressEvery = 100
)

// EventReplayer feeds historical game events between two instants.
type EventReplayer interface {
	Replay(ctx context.Context, from, to time.Time, fn func(ctx context.Context, payload []byte) error) error
}

type StartBackfillCommand struct {
	WindowStart time.Time
	WindowEnd   time.Time
	PoolFilter  string
}

// BackfillUseCase replays game.ended events through the same path as the
// live consumer. At most one job runs at a time.
type BackfillUseCase struct {
	jobs     rating.BackfillJobRepository
	replayer EventReplayer
	handler  *GameEndedHandler
	logger   logger.Interface

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewBackfillUseCase(jobs rating.BackfillJobRepository, replayer EventReplayer, handler *GameEndedHandler, logger logger.Interface) *BackfillUseCase {
	return &BackfillUseCase{
		jobs:     jobs,
		replayer: replayer,
		handler:  handler,
		logger:   logger,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start records a running job and replays it in the background.
func (uc *BackfillUseCase) Start(ctx context.Context, cmd StartBackfillCommand) (*rating.BackfillJob, error) {
	job, err := uc.create(ctx, cmd)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	uc.mu.Lock()
	uc.cancels[job.ID] = cancel
	uc.mu.Unlock()

	snapshot := *job
	goroutine.SafeGo(uc.logger, "rating-backfill", func() {
		defer cancel()
		uc.run(runCtx, job)
	})
	return &snapshot, nil
}

// Run executes a job to completion on the caller's goroutine.
func (uc *BackfillUseCase) Run(ctx context.Context, cmd StartBackfillCommand) (*rating.BackfillJob, error) {
	job, err := uc.create(ctx, cmd)
	if err != nil {
		return nil, err
	}
	uc.run(ctx, job)
	return job, nil
}

func (uc *BackfillUseCase) create(ctx context.Context, cmd StartBackfillCommand) (*rating.BackfillJob, error) {
	uc.logger.Infow("executing start backfill use case",
		"window_start", cmd.WindowStart,
		"window_end", cmd.WindowEnd,
		"pool_filter", cmd.PoolFilter,
	)

	if cmd.WindowStart.IsZero() || cmd.WindowEnd.IsZero() {
		return nil, apperrors.NewValidationError("window_start and window_end are required")
	}
	if !cmd.WindowEnd.After(cmd.WindowStart) {
		return nil, apperrors.NewValidationError("window_end must be after window_start")
	}
	if cmd.WindowEnd.Sub(cmd.WindowStart) > maxBackfillWindow {
		return nil, apperrors.NewValidationError("backfill window cannot exceed 31 days")
	}

	running, err := uc.jobs.GetRunning(ctx)
	if err != nil {
		return nil, err
	}
	if running != nil {
		return nil, rating.ErrBackfillRunning
	}

	job := &rating.BackfillJob{
		ID:          id.New(),
		Status:      rating.BackfillRunning,
		WindowStart: cmd.WindowStart.UTC(),
		WindowEnd:   cmd.WindowEnd.UTC(),
		PoolFilter:  cmd.PoolFilter,
		StartedAt:   biztime.NowUTC(),
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		uc.logger.Errorw("failed to create backfill job", "error", err)
		return nil, err
	}
	return job, nil
}

func (uc *BackfillUseCase) run(ctx context.Context, job *rating.BackfillJob) {
	defer func() {
		uc.mu.Lock()
		delete(uc.cancels, job.ID)
		uc.mu.Unlock()
	}()

	err := uc.replayer.Replay(ctx, job.WindowStart, job.WindowEnd, func(ctx context.Context, payload []byte) error {
		if err := uc.replayOne(ctx, job, payload); err != nil {
			return err
		}
		if (job.Processed+job.Skipped+job.Errors)%backfillProgressEvery == 0 {
			if err := uc.jobs.Update(ctx, job); err != nil {
				uc.logger.Warnw("failed to record backfill progress", "job_id", job.ID, "error", err)
			}
		}
		return nil
	})

	// Persist the final state on a fresh context so a cancelled job still records it.
	saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	current, getErr := uc.jobs.GetByID(saveCtx, job.ID)
	if getErr == nil && current.Status == rating.BackfillCancelled {
		job.Status = rating.BackfillCancelled
		job.FinishedAt = current.FinishedAt
	}

	switch {
	case job.Status == rating.BackfillCancelled:
	case errors.Is(err, context.Canceled):
		job.Finish(rating.BackfillCancelled, biztime.NowUTC())
	case err != nil:
		job.ErrorMessage = err.Error()
		job.Finish(rating.BackfillFailed, biztime.NowUTC())
	default:
		job.Finish(rating.BackfillCompleted, biztime.NowUTC())
	}

	if err := uc.jobs.Update(saveCtx, job); err != nil {
		uc.logger.Errorw("failed to save backfill job", "job_id", job.ID, "error", err)
	}
	uc.logger.Infow("backfill job finished",
		"job_id", job.ID,
		"status", job.Status,
		"processed", job.Processed,
		"skipped", job.Skipped,
		"errors", job.Errors,
	)
}

// replayOne counts the event against job. Only errors that stop the whole
// replay are returned.
func (uc *BackfillUseCase) replayOne(ctx context.Context, job *rating.BackfillJob, payload []byte) error {
	cmd, err := uc.handler.Parse(payload)
	if err != nil {
		job.Errors++
		return nil
	}
	if cmd == nil || (job.PoolFilter != "" && cmd.PoolCode != job.PoolFilter) {
		job.Skipped++
		return nil
	}

	outcome, err := uc.handler.apply(ctx, *cmd)
	switch {
	case err == nil && outcome == OutcomeApplied:
		job.Processed++
	case err == nil:
		job.Skipped++
	case errors.Is(err, rating.ErrIngestionInFlight):
		job.Skipped++
	case IsPermanent(err):
		uc.logger.Warnw("backfill event rejected", "job_id", job.ID, "game_id", cmd.GameID, "error", err)
		job.Errors++
	default:
		return err
	}
	return nil
}

func (uc *BackfillUseCase) Status(ctx context.Context, jobID string) (*rating.BackfillJob, error) {
	return uc.jobs.GetByID(ctx, jobID)
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (uc *BackfillUseCase) Cancel(ctx context.Context, jobID string) (*rating.BackfillJob, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	job.Finish(rating.BackfillCancelled, biztime.NowUTC())
	if err := uc.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	cancel, ok := uc.cancels[jobID]
	uc.mu.Unlock()
	if ok {
		cancel()
	}

	uc.logger.Infow("backfill job cancelled", "job_id", jobID)
	return job, nil
}

// Shutdown cancels every job running on this instance; each records itself
// as cancelled.
func (uc *BackfillUseCase) Shutdown() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for jobID, cancel := range uc.cancels {
		cancel()
		delete(uc.cancels, jobID)
	}
}
