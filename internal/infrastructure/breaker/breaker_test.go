package breaker

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/shared/errors"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

var errEngineDown = stderrors.New("engine cluster unreachable")

func newTestBreaker(timeout time.Duration) *Breaker {
	st := DefaultSettings("engine")
	st.Timeout = timeout
	return New(st, logger.NewNopLogger())
}

func failN(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error { return errEngineDown })
		require.ErrorIs(t, err, errEngineDown)
	}
}

func TestBreaker_OpensAfterFiveExpectedFailures(t *testing.T) {
	b := newTestBreaker(time.Minute)

	failN(t, b, 4)
	assert.Equal(t, StateClosed, b.State())

	failN(t, b, 1)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Execute(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called, "no call may be admitted while open")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, errors.HasReason(err, errors.ReasonCircuitOpen))
	assert.True(t, errors.IsUnavailableError(err))

	snap := b.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	require.NotNil(t, snap.LastFailureTime)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(time.Minute)

	failN(t, b, 4)
	require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	failN(t, b, 4)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, uint32(4), b.Snapshot().FailureCount)
}

func TestBreaker_UnexpectedErrorsDoNotTrip(t *testing.T) {
	b := newTestBreaker(time.Minute)
	notFound := errors.NewNotFoundError("bot not configured")

	for i := 0; i < 10; i++ {
		err := b.Execute(context.Background(), func(ctx context.Context) error { return notFound })
		assert.ErrorIs(t, err, notFound)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenClosesAfterTwoSuccesses(t *testing.T) {
	b := newTestBreaker(30 * time.Millisecond)
	failN(t, b, 5)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(30 * time.Millisecond)
	failN(t, b, 5)

	time.Sleep(50 * time.Millisecond)
	failN(t, b, 1)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenAdmitsOneTrialAtATime(t *testing.T) {
	b := newTestBreaker(30 * time.Millisecond)
	failN(t, b, 5)
	time.Sleep(50 * time.Millisecond)

	for round := 0; round < 2; round++ {
		started := make(chan struct{})
		unblock := make(chan struct{})
		done := make(chan error, 1)
		go func() {
			done <- b.Execute(context.Background(), func(ctx context.Context) error {
				close(started)
				<-unblock
				return nil
			})
		}()
		<-started

		called := false
		err := b.Execute(context.Background(), func(ctx context.Context) error {
			called = true
			return nil
		})
		assert.False(t, called, "round %d admitted a second trial", round)
		assert.ErrorIs(t, err, ErrCircuitOpen)

		close(unblock)
		require.NoError(t, <-done)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_FailureAfterFirstTrialReopens(t *testing.T) {
	var transitions []string
	st := DefaultSettings("engine")
	st.Timeout = 30 * time.Millisecond
	st.OnStateChange = func(name string, from, to State) {
		transitions = append(transitions, string(from)+">"+string(to))
	}
	b := New(st, logger.NewNopLogger())
	failN(t, b, 5)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, b.Execute(context.Background(), func(ctx context.Context) error { return nil }))
	require.Equal(t, StateHalfOpen, b.State())

	failN(t, b, 1)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, []string{"closed>open", "open>half_open", "half_open>open"}, transitions)
}

func TestDo_ReturnsTypedResult(t *testing.T) {
	b := newTestBreaker(time.Minute)

	moves, err := Do(b, func() ([]string, error) {
		return []string{"e2e4", "d2d4"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"e2e4", "d2d4"}, moves)
}

func TestIsExpectedFailure(t *testing.T) {
	assert.False(t, IsExpectedFailure(nil))
	assert.False(t, IsExpectedFailure(context.Canceled))
	assert.True(t, IsExpectedFailure(context.DeadlineExceeded))
	assert.True(t, IsExpectedFailure(errors.NewUnavailableError("upstream 503")))
	assert.False(t, IsExpectedFailure(errors.NewValidationError("bad fen")))
}

func TestRegistry_ReusesBreakers(t *testing.T) {
	r := NewRegistry(nil, logger.NewNopLogger())
	assert.Same(t, r.Get("knowledge"), r.Get("knowledge"))
	assert.NotSame(t, r.Get("knowledge"), r.Get("engine"))
	assert.Len(t, r.Snapshots(), 2)
}
