// Package scheduler runs the background workers on a single gocron v2
// scheduler.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

// BatchJob processes one batch per call and returns how many items it touched.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchFunc adapts a plain function to BatchJob.
type BatchFunc func(ctx context.Context) (int, error)

func (f BatchFunc) Execute(ctx context.Context) (int, error) { return f(ctx) }

// Job names, also used as metric labels.
const (
	JobMatchCycle    = "match-cycle"
	JobTicketReaper  = "ticket-reaper"
	JobFailedMatches = "failed-match-retry"
	JobOutbox        = "rating-outbox"
	JobWSRegistry    = "ws-registry-refresh"
	JobGameExpiry    = "game-expiry"
	JobChallenges    = "challenge-expiry"
)

// MatchmakingJobs groups the matchmaking workers and their intervals.
type MatchmakingJobs struct {
	Cycle          BatchJob
	CycleInterval  time.Duration
	Reaper         BatchJob
	ReaperInterval time.Duration
	Retry          BatchJob
	RetryInterval  time.Duration
}

type SchedulerManager struct {
	scheduler gocron.Scheduler
	metrics   *metrics.Metrics
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates the scheduler. m may be nil.
func NewSchedulerManager(log logger.Interface, m *metrics.Metrics) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		metrics:   m,
		logger:    log,
	}, nil
}

// RegisterMatchmakingJobs registers the pairing cycle, the ticket reaper and
// the failed-match retry. Nil jobs are skipped.
func (m *SchedulerManager) RegisterMatchmakingJobs(jobs MatchmakingJobs) error {
	if jobs.Cycle != nil {
		if err := m.RegisterIntervalJob(JobMatchCycle, jobs.CycleInterval, jobs.Cycle, "matchmaking"); err != nil {
			return err
		}
	}
	if jobs.Reaper != nil {
		if err := m.RegisterIntervalJob(JobTicketReaper, jobs.ReaperInterval, jobs.Reaper, "matchmaking"); err != nil {
			return err
		}
	}
	if jobs.Retry != nil {
		if err := m.RegisterIntervalJob(JobFailedMatches, jobs.RetryInterval, jobs.Retry, "matchmaking"); err != nil {
			return err
		}
	}
	return nil
}

// RegisterOutboxJob registers the rating outbox publisher.
func (m *SchedulerManager) RegisterOutboxJob(publish BatchJob, interval time.Duration) error {
	return m.RegisterIntervalJob(JobOutbox, interval, publish, "rating")
}

// RegisterGameExpiryJob registers the sweep that ends timed-out and
// abandoned games.
func (m *SchedulerManager) RegisterGameExpiryJob(sweep BatchJob, interval time.Duration) error {
	return m.RegisterIntervalJob(JobGameExpiry, interval, sweep, "game")
}

func (m *SchedulerManager) RegisterChallengeExpiryJob(expire BatchJob, interval time.Duration) error {
	return m.RegisterIntervalJob(JobChallenges, interval, expire, "challenge")
}

// RegisterWSRegistryJob keeps this instance's websocket records alive in Redis.
func (m *SchedulerManager) RegisterWSRegistryJob(refresh BatchJob, interval time.Duration) error {
	return m.RegisterIntervalJob(JobWSRegistry, interval, refresh, "websocket")
}

// RegisterIntervalJob runs job every interval in singleton mode. A run may
// take at most ten intervals, and never less than thirty seconds.
func (m *SchedulerManager) RegisterIntervalJob(name string, interval time.Duration, job BatchJob, tags ...string) error {
	if interval <= 0 {
		interval = time.Second
	}
	timeout := max(10*interval, 30*time.Second)

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			m.run(ctx, name, job)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags(append([]string{name}, tags...)...),
		gocron.WithName(name),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered scheduled job", "job", name, "interval", interval)
	return nil
}

func (m *SchedulerManager) run(ctx context.Context, name string, job BatchJob) {
	start := biztime.NowUTC()
	count, err := job.Execute(ctx)
	elapsed := time.Since(start)
	m.metrics.ObserveJob(name, err, elapsed)

	switch {
	case err != nil:
		m.logger.Errorw("scheduled job failed", "job", name, "error", err, "duration", elapsed)
	case count > 0:
		m.logger.Infow("scheduled job processed items", "job", name, "count", count, "duration", elapsed)
	default:
		m.logger.Debugw("scheduled job idle", "job", name, "duration", elapsed)
	}
}

func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to finish.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")
	err := m.scheduler.Shutdown()
	m.started = false
	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
