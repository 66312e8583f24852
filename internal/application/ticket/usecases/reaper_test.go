package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
)

func TestReapTicketsUseCase_HeartbeatLapse(t *testing.T) {
	h := newHarness(t)
	stale := h.enqueue(t, "k-a", "alice", 1500)
	h.clock.Advance(20 * time.Second)
	fresh := h.enqueue(t, "k-b", "bob", 1500)

	h.clock.Advance(10 * time.Second)
	res, err := NewReapTicketsUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.HeartbeatExpired)
	assert.Equal(t, vo.StatusExpired, h.tickets.state(stale.TicketID).Status)
	assert.Equal(t, vo.StatusQueued, h.tickets.state(fresh.TicketID).Status)
	assert.Equal(t, vo.StatusExpired, h.mirror.stored[stale.TicketID])
}

func TestReapTicketsUseCase_MaxQueueTime(t *testing.T) {
	h := newHarness(t)
	h.deps.Settings.HeartbeatTimeout = time.Hour
	tk := h.enqueue(t, "k-a", "alice", 1500)
	uc := NewReapTicketsUseCase(h.deps)

	h.clock.Advance(600 * time.Second)
	res, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.AgedOut, "exactly the limit is still allowed")

	h.clock.Advance(time.Second)
	res, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AgedOut)
	assert.Equal(t, vo.StatusExpired, h.tickets.state(tk.TicketID).Status)
}

func TestReapTicketsUseCase_ExpiredProposalWidens(t *testing.T) {
	h := newHarness(t)
	first, second := h.proposePair(t)
	_, err := NewAcceptProposalUseCase(h.deps).Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)

	h.clock.Advance(15 * time.Second)
	res, err := NewReapTicketsUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ProposalsExpired)

	for _, id := range []string{first.TicketID, second.TicketID} {
		s := h.tickets.state(id)
		assert.Equal(t, vo.StatusQueued, s.Status)
		assert.Equal(t, 1, s.WideningStage)
		assert.Empty(t, s.ProposalID)
		assert.Nil(t, s.AcceptedAt)
	}
}
