package usecases

import (
	"context"
	"sort"
	"sync"

	"github.com/chessforge/gamecore/internal/domain/bot"
	"github.com/chessforge/gamecore/internal/domain/game"
	vo "github.com/chessforge/gamecore/internal/domain/game/valueobjects"
	"github.com/chessforge/gamecore/internal/domain/shared/events"
	"github.com/chessforge/gamecore/internal/infrastructure/wsbroker"
)

type passthroughTx struct {
	mu    sync.Mutex
	calls int
}

func (p *passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return fn(ctx)
}

// mockGameRepository keeps game.State snapshots so every load hands out a
// fresh aggregate, like a real database would.
type mockGameRepository struct {
	mu         sync.Mutex
	states     map[string]game.State
	lockCalls  int
	UpdateFunc func(ctx context.Context, g *game.Game) error
}

func newMockGameRepository() *mockGameRepository {
	return &mockGameRepository{states: make(map[string]game.State)}
}

func (m *mockGameRepository) Create(ctx context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[g.ID()] = g.State()
	return nil
}

func (m *mockGameRepository) Update(ctx context.Context, g *game.Game) error {
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, g); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[g.ID()]; !ok {
		return game.ErrGameNotFound
	}
	m.states[g.ID()] = g.State()
	return nil
}

func (m *mockGameRepository) GetByID(ctx context.Context, gameID string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[gameID]
	if !ok {
		return nil, game.ErrGameNotFound
	}
	return game.ReconstructGame(s)
}

func (m *mockGameRepository) GetForUpdate(ctx context.Context, gameID string) (*game.Game, error) {
	m.mu.Lock()
	m.lockCalls++
	m.mu.Unlock()
	return m.GetByID(ctx, gameID)
}

func (m *mockGameRepository) ListActiveByPlayer(ctx context.Context, playerID string) ([]*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*game.Game
	for _, s := range m.states {
		if s.Status.IsTerminal() {
			continue
		}
		if s.WhiteID == playerID || s.BlackID == playerID || s.CreatorID == playerID {
			g, _ := game.ReconstructGame(s)
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGameRepository) ListInProgressIDs(ctx context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, s := range m.states {
		if s.Status == vo.StatusInProgress {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockGameRepository) state(gameID string) game.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[gameID]
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

func (m *mockEventPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.GetEventType()
	}
	return out
}

type mockBroadcaster struct {
	mu            sync.Mutex
	messages      []*wsbroker.Message
	BroadcastFunc func(ctx context.Context, gameID string, msg *wsbroker.Message) error
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, gameID string, msg *wsbroker.Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	if m.BroadcastFunc != nil {
		return m.BroadcastFunc(ctx, gameID, msg)
	}
	return nil
}

func (m *mockBroadcaster) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	for i, msg := range m.messages {
		out[i] = msg.Type
	}
	return out
}

type mockRatingLookup struct {
	ratings  map[string]int
	err      error
	OnLookup func(userID string)
}

func (m *mockRatingLookup) CurrentRating(ctx context.Context, userID string, initialMS int64, variant string) (*int, error) {
	if m.OnLookup != nil {
		m.OnLookup(userID)
	}
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.ratings[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type mockBotMover struct {
	mu              sync.Mutex
	requests        []bot.MoveRequest
	RequestMoveFunc func(ctx context.Context, botID string, req bot.MoveRequest) (*bot.MoveResponse, error)
}

func (m *mockBotMover) RequestMove(ctx context.Context, botID string, req bot.MoveRequest) (*bot.MoveResponse, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.RequestMoveFunc(ctx, botID, req)
}

type recordingScheduler struct {
	mu    sync.Mutex
	games []string
}

func (r *recordingScheduler) ScheduleBotMove(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.games = append(r.games, gameID)
}
