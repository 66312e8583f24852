package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/messaging"
	"github.com/chessforge/gamecore/internal/shared/logger"
)

func TestRunMatchCycleUseCase_WideningPairsAfterWaiting(t *testing.T) {
	h := newHarness(t)
	a := h.enqueue(t, "k-a", "alice", 1500)
	b := h.enqueue(t, "k-b", "bob", 1640)
	uc := NewRunMatchCycleUseCase(h.deps)

	res, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Proposals, "140 apart is outside the initial window")

	h.clock.Advance(21 * time.Second)
	for _, id := range []string{a.TicketID, b.TicketID} {
		_, err := NewHeartbeatUseCase(h.deps).Execute(context.Background(), HeartbeatCommand{TicketID: id})
		require.NoError(t, err)
	}

	res, err = uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Proposals)

	sa, sb := h.tickets.state(a.TicketID), h.tickets.state(b.TicketID)
	assert.Equal(t, vo.StatusProposing, sa.Status)
	assert.Equal(t, vo.StatusProposing, sb.Status)
	assert.NotEmpty(t, sa.ProposalID)
	assert.Equal(t, sa.ProposalID, sb.ProposalID)
	require.NotNil(t, sa.ProposalTimeoutAt)
	assert.Equal(t, h.clock.Now().Add(15*time.Second), *sa.ProposalTimeoutAt)
	assert.Equal(t, []string{"standard_5+0_rated_DEFAULT"}, h.locks.released)
}

func TestRunMatchCycleUseCase_SkipsPoolHeldElsewhere(t *testing.T) {
	h := newHarness(t)
	h.enqueue(t, "k-a", "alice", 1500)
	h.enqueue(t, "k-b", "bob", 1510)
	h.locks.held["standard_5+0_rated_DEFAULT"] = true

	res, err := NewRunMatchCycleUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Proposals)
}

func TestAcceptProposalUseCase_FinalizesMatch(t *testing.T) {
	h := newHarness(t)
	first, second := h.proposePair(t)
	uc := NewAcceptProposalUseCase(h.deps)

	res, err := uc.Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)
	assert.Nil(t, res.Match, "one acceptance is not enough")

	res, err = uc.Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)
	assert.Nil(t, res.Match, "accepting twice changes nothing")

	res, err = uc.Execute(context.Background(), RespondProposalCommand{TicketID: second.TicketID})
	require.NoError(t, err)
	require.NotNil(t, res.Match)
	assert.False(t, res.Match.Pending)
	assert.Equal(t, "alice", res.Match.WhiteID)
	assert.Equal(t, "bob", res.Match.BlackID)
	assert.Equal(t, "game-"+res.Match.MatchID, res.Match.GameID)
	assert.Equal(t, "matched", res.Ticket.Status)

	for _, id := range []string{first.TicketID, second.TicketID} {
		s := h.tickets.state(id)
		assert.Equal(t, vo.StatusMatched, s.Status)
		assert.Equal(t, res.Match.MatchID, s.MatchID)
	}

	require.Len(t, h.games.requests, 1)
	req := h.games.requests[0]
	assert.Equal(t, "5+0", req.TimeControl)
	assert.Equal(t, "rated", req.Mode)
	assert.Equal(t, map[string]int{"white": 1500, "black": 1520}, req.RatingSnapshot)

	record, err := h.matches.GetByID(context.Background(), res.Match.MatchID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.TicketID, second.TicketID}, record.TicketIDs)
	assert.Equal(t, "DEFAULT", record.Region)

	require.Len(t, h.events.events, 1)
	assert.Equal(t, messaging.TopicMatches, h.events.topics[0])
	evt, ok := h.events.events[0].(ticket.MatchCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, res.Match.MatchID, evt.GetAggregateID())
	assert.Equal(t, res.Match.GameID, evt.GameID)
}

func TestAcceptProposalUseCase_ColourPreference(t *testing.T) {
	h := newHarness(t)
	enq := NewEnqueueUseCase(h.deps)
	a, err := enq.Execute(context.Background(), enqueueCmd("k-a", "alice", 1500, map[string]any{"color_preference": "black"}))
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	b, err := enq.Execute(context.Background(), enqueueCmd("k-b", "bob", 1500, nil))
	require.NoError(t, err)

	_, err = NewRunMatchCycleUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)
	accept := NewAcceptProposalUseCase(h.deps)
	_, err = accept.Execute(context.Background(), RespondProposalCommand{TicketID: a.Ticket.TicketID})
	require.NoError(t, err)
	res, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: b.Ticket.TicketID})
	require.NoError(t, err)

	require.NotNil(t, res.Match)
	assert.Equal(t, "bob", res.Match.WhiteID)
	assert.Equal(t, "alice", res.Match.BlackID)
}

func TestAcceptProposalUseCase_NotProposing(t *testing.T) {
	h := newHarness(t)
	tk := h.enqueue(t, "k-a", "alice", 1500)

	_, err := NewAcceptProposalUseCase(h.deps).Execute(context.Background(), RespondProposalCommand{TicketID: tk.TicketID})
	assert.ErrorIs(t, err, ticket.ErrNotProposing)
}

func TestDeclineProposalUseCase(t *testing.T) {
	h := newHarness(t)
	first, second := h.proposePair(t)

	res, err := NewDeclineProposalUseCase(h.deps).Execute(context.Background(), RespondProposalCommand{TicketID: second.TicketID})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", res.Ticket.Status)

	other := h.tickets.state(first.TicketID)
	assert.Equal(t, vo.StatusQueued, other.Status)
	assert.Empty(t, other.ProposalID)
	assert.Nil(t, other.AcceptedAt)

	_, err = NewDeclineProposalUseCase(h.deps).Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	assert.ErrorIs(t, err, ticket.ErrNotProposing)
}

func TestAcceptProposalUseCase_GameCreationFailureIsRetried(t *testing.T) {
	h := newHarness(t)
	down := true
	h.games.CreateFn = func(ctx context.Context, req clientsRequest) (string, error) {
		if down {
			return "", errLiveGameDown
		}
		return "g-late", nil
	}
	first, second := h.proposePair(t)
	accept := NewAcceptProposalUseCase(h.deps)

	_, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)
	res, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: second.TicketID})
	require.NoError(t, err)

	require.NotNil(t, res.Match)
	assert.True(t, res.Match.Pending)
	assert.Empty(t, res.Match.GameID)
	assert.Equal(t, vo.StatusMatched, h.tickets.state(first.TicketID).Status)
	require.Contains(t, h.failed.entries, res.Match.MatchID)
	assert.Empty(t, h.events.events)

	retry := NewRetryFailedMatchesUseCase(h.deps)
	out, err := retry.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RetryFailedMatchesResult{Attempted: 1}, *out)
	assert.Equal(t, 1, h.failed.entries[res.Match.MatchID].RetryCount)

	down = false
	out, err = retry.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Created)
	assert.Empty(t, h.failed.entries)

	record, err := h.matches.GetByID(context.Background(), res.Match.MatchID)
	require.NoError(t, err)
	assert.Equal(t, "g-late", record.GameID)
	assert.Equal(t, "alice", record.WhiteID)
	require.Len(t, h.events.events, 1)
}

func TestRetryFailedMatchesUseCase_GivesUp(t *testing.T) {
	h := newHarness(t)
	h.games.CreateFn = func(ctx context.Context, req clientsRequest) (string, error) {
		return "", errLiveGameDown
	}
	first, second := h.proposePair(t)
	accept := NewAcceptProposalUseCase(h.deps)
	_, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)
	_, err = accept.Execute(context.Background(), RespondProposalCommand{TicketID: second.TicketID})
	require.NoError(t, err)

	retry := NewRetryFailedMatchesUseCase(h.deps)
	var abandoned int
	for range 5 {
		out, err := retry.Execute(context.Background())
		require.NoError(t, err)
		abandoned += out.Abandoned
	}
	assert.Equal(t, 1, abandoned)
	assert.Empty(t, h.failed.entries)
	assert.Empty(t, h.matches.records)
}

func TestRetryFailedMatchesUseCase_RecordWriteFailureIsLogged(t *testing.T) {
	h := newHarness(t)
	var logs bytes.Buffer
	h.deps.Logger = logger.NewLoggerWithSlog(slog.New(slog.NewJSONHandler(&logs, nil)))

	down := true
	h.games.CreateFn = func(ctx context.Context, req clientsRequest) (string, error) {
		if down {
			return "", errLiveGameDown
		}
		return "g-late", nil
	}
	first, second := h.proposePair(t)
	accept := NewAcceptProposalUseCase(h.deps)
	_, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: first.TicketID})
	require.NoError(t, err)
	res, err := accept.Execute(context.Background(), RespondProposalCommand{TicketID: second.TicketID})
	require.NoError(t, err)
	matchID := res.Match.MatchID

	down = false
	h.matches.CreateFn = func(ctx context.Context, r *ticket.MatchRecord) error {
		return errors.New("matches table unavailable")
	}
	out, err := NewRetryFailedMatchesUseCase(h.deps).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, out.Created)
	assert.Empty(t, h.failed.entries, "a created game is never retried")

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["msg"] != "failed to complete retried match" {
			continue
		}
		found = true
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, matchID, entry["match_id"])
		assert.Equal(t, "g-late", entry["game_id"])
		assert.Equal(t, "matches table unavailable", entry["error"])
	}
	assert.True(t, found, "missing warning for match %s", matchID)
}
