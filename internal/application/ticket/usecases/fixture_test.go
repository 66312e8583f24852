package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/application/ticket/dto"
	"github.com/chessforge/gamecore/internal/shared/biztime"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	clock   *biztime.FixedClock
	tickets *mockTicketRepository
	matches *mockMatchRecordRepository
	mirror  *mockMirror
	locks   *mockLocker
	games   *mockGameCreator
	failed  *mockFailedQueue
	events  *mockEventPublisher
	deps    Dependencies
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:   &biztime.FixedClock{T: t0},
		tickets: newMockTicketRepository(),
		matches: newMockMatchRecordRepository(),
		mirror:  newMockMirror(),
		locks:   &mockLocker{held: map[string]bool{}},
		games:   &mockGameCreator{},
		failed:  newMockFailedQueue(),
		events:  &mockEventPublisher{},
	}
	h.deps = Dependencies{
		Tickets:  h.tickets,
		Matches:  h.matches,
		TxMgr:    passthroughTx{},
		Mirror:   h.mirror,
		Locks:    h.locks,
		Games:    h.games,
		Failed:   h.failed,
		Events:   h.events,
		Settings: DefaultSettings(),
		Clock:    h.clock,
		Coin:     func() bool { return true },
		Logger:   logger.NewNopLogger(),
	}
	return h
}

func enqueueCmd(key, playerID string, mmr int, soft map[string]any) EnqueueCommand {
	return EnqueueCommand{
		EnqueueKey:  key,
		MutationSeq: 1,
		TimeControl: "5+0",
		Mode:        "rated",
		Players:     []PlayerInput{{PlayerID: playerID, MMR: mmr, RD: 60}},
		Soft:        soft,
	}
}

func (h *harness) enqueue(t *testing.T, key, playerID string, mmr int) *dto.TicketDTO {
	t.Helper()
	res, err := NewEnqueueUseCase(h.deps).Execute(context.Background(), enqueueCmd(key, playerID, mmr, nil))
	require.NoError(t, err)
	return res.Ticket
}

// proposePair enqueues two tickets a second apart and runs one match cycle.
func (h *harness) proposePair(t *testing.T) (first, second *dto.TicketDTO) {
	t.Helper()
	first = h.enqueue(t, "k-alice", "alice", 1500)
	h.clock.Advance(time.Second)
	second = h.enqueue(t, "k-bob", "bob", 1520)

	res, err := NewRunMatchCycleUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, res.Proposals)
	return first, second
}
