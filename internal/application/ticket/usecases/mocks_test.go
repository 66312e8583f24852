package usecases

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/chessforge/gamecore/internal/domain/shared/events"
	"github.com/chessforge/gamecore/internal/domain/ticket"
	vo "github.com/chessforge/gamecore/internal/domain/ticket/valueobjects"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
	"github.com/chessforge/gamecore/internal/infrastructure/matchqueue"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockTicketRepository keeps ticket.State snapshots so each load returns a
// fresh aggregate.
type mockTicketRepository struct {
	mu         sync.Mutex
	states     map[string]ticket.State
	CreateFunc func(ctx context.Context, t *ticket.Ticket) error
}

func newMockTicketRepository() *mockTicketRepository {
	return &mockTicketRepository{states: make(map[string]ticket.State)}
}

func (m *mockTicketRepository) Create(ctx context.Context, t *ticket.Ticket) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, t); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[t.ID()] = t.State()
	return nil
}

func (m *mockTicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[t.ID()]; !ok {
		return ticket.ErrTicketNotFound
	}
	m.states[t.ID()] = t.State()
	return nil
}

func (m *mockTicketRepository) GetByID(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[ticketID]
	if !ok {
		return nil, ticket.ErrTicketNotFound
	}
	return ticket.ReconstructTicket(s)
}

func (m *mockTicketRepository) GetForUpdate(ctx context.Context, ticketID string) (*ticket.Ticket, error) {
	return m.GetByID(ctx, ticketID)
}

func (m *mockTicketRepository) where(keep func(s ticket.State) bool) []*ticket.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var states []ticket.State
	for _, s := range m.states {
		if keep(s) {
			states = append(states, s)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		if states[i].CreatedAt.Equal(states[j].CreatedAt) {
			return states[i].ID < states[j].ID
		}
		return states[i].CreatedAt.Before(states[j].CreatedAt)
	})
	out := make([]*ticket.Ticket, 0, len(states))
	for _, s := range states {
		t, _ := ticket.ReconstructTicket(s)
		out = append(out, t)
	}
	return out
}

func (m *mockTicketRepository) FindByPlayers(ctx context.Context, playerIDs []string) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool {
		for _, p := range s.Players {
			for _, want := range playerIDs {
				if p.PlayerID == want {
					return true
				}
			}
		}
		return false
	}), nil
}

func (m *mockTicketRepository) ListProposable(ctx context.Context, poolKey string) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool {
		return s.PoolKey == poolKey && s.Status.IsProposable()
	}), nil
}

func (m *mockTicketRepository) ListPoolsWithProposable(ctx context.Context, minTickets int) ([]string, error) {
	counts := map[string]int{}
	for _, t := range m.where(func(s ticket.State) bool { return s.Status.IsProposable() }) {
		counts[t.PoolKey()]++
	}
	var pools []string
	for pool, n := range counts {
		if n >= minTickets {
			pools = append(pools, pool)
		}
	}
	sort.Strings(pools)
	return pools, nil
}

func (m *mockTicketRepository) LockForProposal(ctx context.Context, ticketIDs []string) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool {
		for _, id := range ticketIDs {
			if s.ID == id {
				return true
			}
		}
		return false
	}), nil
}

func (m *mockTicketRepository) ListByProposalForUpdate(ctx context.Context, proposalID string) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool { return s.ProposalID == proposalID }), nil
}

func (m *mockTicketRepository) FindHeartbeatLapsed(ctx context.Context, now time.Time) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool {
		return s.Status.IsActive() && s.HeartbeatTimeoutAt != nil && !now.Before(*s.HeartbeatTimeoutAt)
	}), nil
}

func (m *mockTicketRepository) FindQueuedBefore(ctx context.Context, cutoff time.Time) ([]*ticket.Ticket, error) {
	return m.where(func(s ticket.State) bool {
		return s.Status.IsProposable() && s.CreatedAt.Before(cutoff)
	}), nil
}

func (m *mockTicketRepository) FindExpiredProposals(ctx context.Context, now time.Time) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, t := range m.where(func(s ticket.State) bool {
		return s.Status == vo.StatusProposing && s.ProposalTimeoutAt != nil && !s.ProposalTimeoutAt.After(now)
	}) {
		if !seen[t.ProposalID()] {
			seen[t.ProposalID()] = true
			ids = append(ids, t.ProposalID())
		}
	}
	return ids, nil
}

func (m *mockTicketRepository) state(ticketID string) ticket.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[ticketID]
}

type mockMatchRecordRepository struct {
	mu       sync.Mutex
	records  map[string]*ticket.MatchRecord
	CreateFn func(ctx context.Context, r *ticket.MatchRecord) error
}

func newMockMatchRecordRepository() *mockMatchRecordRepository {
	return &mockMatchRecordRepository{records: make(map[string]*ticket.MatchRecord)}
}

func (m *mockMatchRecordRepository) Create(ctx context.Context, r *ticket.MatchRecord) error {
	if m.CreateFn != nil {
		if err := m.CreateFn(ctx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.records[r.MatchID] = &cp
	return nil
}

func (m *mockMatchRecordRepository) GetByID(ctx context.Context, matchID string) (*ticket.MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[matchID]
	if !ok {
		return nil, ticket.ErrMatchNotFound
	}
	return r, nil
}

type mockMirror struct {
	mu      sync.Mutex
	stored  map[string]vo.TicketStatus
	removed []string
}

func newMockMirror() *mockMirror {
	return &mockMirror{stored: make(map[string]vo.TicketStatus)}
}

func (m *mockMirror) Store(ctx context.Context, t *ticket.Ticket, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored[t.ID()] = t.Status()
	return nil
}

func (m *mockMirror) Remove(ctx context.Context, ticketID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, ticketID)
	return nil
}

type mockLocker struct {
	held     map[string]bool
	released []string
}

func (m *mockLocker) TryAcquire(ctx context.Context, poolKey string) (func(context.Context), bool, error) {
	if m.held[poolKey] {
		return nil, false, nil
	}
	return func(context.Context) { m.released = append(m.released, poolKey) }, true, nil
}

type mockGameCreator struct {
	mu       sync.Mutex
	requests []clients.MatchedGameRequest
	CreateFn func(ctx context.Context, req clients.MatchedGameRequest) (string, error)
}

func (m *mockGameCreator) CreateMatchedGame(ctx context.Context, req clients.MatchedGameRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	return "game-" + req.MatchID, nil
}

type mockFailedQueue struct {
	mu      sync.Mutex
	entries map[string]*matchqueue.FailedMatch
	max     int
}

func newMockFailedQueue() *mockFailedQueue {
	return &mockFailedQueue{entries: make(map[string]*matchqueue.FailedMatch), max: matchqueue.DefaultMaxRetries}
}

func (m *mockFailedQueue) Enqueue(ctx context.Context, fm *matchqueue.FailedMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fm.MatchID] = fm
	return nil
}

func (m *mockFailedQueue) DequeueReady(ctx context.Context, now time.Time, limit int) ([]*matchqueue.FailedMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*matchqueue.FailedMatch
	for _, fm := range m.entries {
		if len(out) == limit {
			break
		}
		out = append(out, fm)
	}
	return out, nil
}

func (m *mockFailedQueue) Remove(ctx context.Context, matchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, matchID)
	return nil
}

func (m *mockFailedQueue) IncrementRetry(ctx context.Context, fm *matchqueue.FailedMatch, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fm.RetryCount++
	fm.FailureReason = reason
	if fm.RetryCount >= m.max {
		delete(m.entries, fm.MatchID)
		return false, nil
	}
	m.entries[fm.MatchID] = fm
	return true, nil
}

type mockEventPublisher struct {
	mu     sync.Mutex
	topics []string
	events []events.DomainEvent
}

func (m *mockEventPublisher) PublishEvents(ctx context.Context, topic string, evs ...events.DomainEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range evs {
		m.topics = append(m.topics, topic)
		m.events = append(m.events, e)
	}
}

type clientsRequest = clients.MatchedGameRequest

var errLiveGameDown = errors.New("live-game unavailable")
