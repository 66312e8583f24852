package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/rating"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

func backfillWindow() StartBackfillCommand {
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return StartBackfillCommand{WindowStart: end.Add(-24 * time.Hour), WindowEnd: end}
}

func TestBackfill_RunCountsOutcomes(t *testing.T) {
	f := newIngestFixture()
	jobs := newMockBackfillJobRepository()
	replayer := &mockReplayer{payloads: [][]byte{
		[]byte(`{"event_type":"game.ended","game_id":"g1","white_id":"w","black_id":"b","result":"1-0","time_control":{"initial_ms":300000}}`),
		[]byte(`{"event_type":"game.ended","game_id":"g1","white_id":"w","black_id":"b","result":"1-0","time_control":{"initial_ms":300000}}`),
		[]byte(`{"event_type":"move.played","game_id":"g1"}`),
		[]byte(`{"event_type":"game.ended","game_id":"g2","white_id":"w","black_id":"b","result":"1-0","time_control":{"initial_ms":1200000}}`),
		[]byte(`not json`),
	}}
	uc := NewBackfillUseCase(jobs, replayer, NewGameEndedHandler(f.uc, logger.NewNopLogger()), logger.NewNopLogger())

	job, err := uc.Run(context.Background(), backfillWindow())
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillCompleted, job.Status)
	assert.Equal(t, 1, job.Processed)
	assert.Equal(t, 2, job.Skipped)
	assert.Equal(t, 2, job.Errors)
	require.NotNil(t, job.FinishedAt)

	stored, err := uc.Status(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillCompleted, stored.Status)
}

func TestBackfill_PoolFilter(t *testing.T) {
	f := newIngestFixture()
	replayer := &mockReplayer{payloads: [][]byte{
		[]byte(`{"game_id":"g1","white_id":"w","black_id":"b","result":"1-0","time_control":{"initial_ms":60000}}`),
		[]byte(`{"game_id":"g2","white_id":"w","black_id":"b","result":"1-0","time_control":{"initial_ms":300000}}`),
	}}
	uc := NewBackfillUseCase(newMockBackfillJobRepository(), replayer, NewGameEndedHandler(f.uc, logger.NewNopLogger()), logger.NewNopLogger())

	cmd := backfillWindow()
	cmd.PoolFilter = "blitz_standard"
	job, err := uc.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, 1, job.Processed)
	assert.Equal(t, 1, job.Skipped)
}

func TestBackfill_ReplayFailureFailsJob(t *testing.T) {
	f := newIngestFixture()
	replayer := &mockReplayer{err: errors.New("broker down")}
	uc := NewBackfillUseCase(newMockBackfillJobRepository(), replayer, NewGameEndedHandler(f.uc, logger.NewNopLogger()), logger.NewNopLogger())

	job, err := uc.Run(context.Background(), backfillWindow())
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillFailed, job.Status)
	assert.Equal(t, "broker down", job.ErrorMessage)
}

func TestBackfill_Validation(t *testing.T) {
	jobs := newMockBackfillJobRepository()
	uc := NewBackfillUseCase(jobs, &mockReplayer{}, NewGameEndedHandler(nil, logger.NewNopLogger()), logger.NewNopLogger())
	ctx := context.Background()

	_, err := uc.Start(ctx, StartBackfillCommand{})
	assert.Error(t, err)

	w := backfillWindow()
	_, err = uc.Start(ctx, StartBackfillCommand{WindowStart: w.WindowEnd, WindowEnd: w.WindowStart})
	assert.Error(t, err)

	require.NoError(t, jobs.Create(ctx, &rating.BackfillJob{ID: "busy", Status: rating.BackfillRunning}))
	_, err = uc.Start(ctx, w)
	assert.ErrorIs(t, err, rating.ErrBackfillRunning)
}

func TestBackfill_Cancel(t *testing.T) {
	jobs := newMockBackfillJobRepository()
	release := make(chan struct{})
	blocking := &blockingReplayer{release: release, done: make(chan struct{})}
	uc := NewBackfillUseCase(jobs, blocking, NewGameEndedHandler(nil, logger.NewNopLogger()), logger.NewNopLogger())
	ctx := context.Background()

	job, err := uc.Start(ctx, backfillWindow())
	require.NoError(t, err)

	cancelled, err := uc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillCancelled, cancelled.Status)

	require.Eventually(t, func() bool {
		j, err := uc.Status(ctx, job.ID)
		return err == nil && j.Status == rating.BackfillCancelled && blocking.stopped()
	}, time.Second, 10*time.Millisecond)

	again, err := uc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, rating.BackfillCancelled, again.Status)

	_, err = uc.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, rating.ErrBackfillNotFound)
}

type blockingReplayer struct {
	release chan struct{}
	done    chan struct{}
}

func (b *blockingReplayer) Replay(ctx context.Context, from, to time.Time, fn func(ctx context.Context, payload []byte) error) error {
	defer close(b.done)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.release:
		return nil
	}
}

func (b *blockingReplayer) stopped() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
