package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/infrastructure/metrics"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

func TestRegisterMatchmakingJobsSkipsNil(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewNopLogger(), nil)
	require.NoError(t, err)

	noop := BatchFunc(func(context.Context) (int, error) { return 0, nil })
	require.NoError(t, m.RegisterMatchmakingJobs(MatchmakingJobs{
		Cycle:         noop,
		CycleInterval: time.Second,
		Reaper:        noop,
	}))
	require.NoError(t, m.RegisterOutboxJob(noop, 2*time.Second))

	names := make([]string, 0, len(m.Jobs()))
	for _, j := range m.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{JobMatchCycle, JobTicketReaper, JobOutbox}, names)
}

func TestJobRunsImmediatelyAndStops(t *testing.T) {
	m, err := NewSchedulerManager(logger.NewNopLogger(), nil)
	require.NoError(t, err)

	var calls atomic.Int32
	require.NoError(t, m.RegisterIntervalJob("sample", time.Hour, BatchFunc(func(context.Context) (int, error) {
		calls.Add(1)
		return 1, nil
	})))

	m.Start()
	m.Start()
	assert.True(t, m.IsStarted())
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
	require.NoError(t, m.Stop())
}

func TestRunRecordsOutcome(t *testing.T) {
	reg := metrics.New()
	m, err := NewSchedulerManager(logger.NewNopLogger(), reg)
	require.NoError(t, err)

	m.run(context.Background(), JobOutbox, BatchFunc(func(context.Context) (int, error) {
		return 0, errors.New("broker unreachable")
	}))
	m.run(context.Background(), JobOutbox, BatchFunc(func(context.Context) (int, error) {
		return 3, nil
	}))

	count, err := testutil.GatherAndCount(reg.Registry(), "gamecore_scheduler_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
