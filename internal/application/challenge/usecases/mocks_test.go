package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chessforge/gamecore/internal/domain/challenge"
	"github.com/chessforge/gamecore/internal/infrastructure/clients"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockChallengeRepository stores copies so callers never share a pointer
// with the stored row.
type mockChallengeRepository struct {
	mu    sync.Mutex
	rows  map[string]challenge.Challenge
	locks int
}

func newMockChallengeRepository() *mockChallengeRepository {
	return &mockChallengeRepository{rows: make(map[string]challenge.Challenge)}
}

func (m *mockChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.ID] = *c
	return nil
}

func (m *mockChallengeRepository) GetByID(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[challengeID]
	if !ok {
		return nil, challenge.ErrChallengeNotFound
	}
	return &c, nil
}

func (m *mockChallengeRepository) GetForUpdate(ctx context.Context, challengeID string) (*challenge.Challenge, error) {
	m.mu.Lock()
	m.locks++
	m.mu.Unlock()
	return m.GetByID(ctx, challengeID)
}

func (m *mockChallengeRepository) Update(ctx context.Context, c *challenge.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[c.ID]; !ok {
		return challenge.ErrChallengeNotFound
	}
	m.rows[c.ID] = *c
	return nil
}

func (m *mockChallengeRepository) ListIncoming(ctx context.Context, userID string, limit int) ([]*challenge.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*challenge.Challenge
	for _, c := range m.rows {
		if c.OpponentID == userID && c.IsPending() {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockChallengeRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, c := range m.rows {
		if c.Expire(now) {
			m.rows[id] = c
			n++
		}
	}
	return n, nil
}

func (m *mockChallengeRepository) get(challengeID string) challenge.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[challengeID]
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

type mockRatingLookup struct {
	ratings map[string]int
}

func (m *mockRatingLookup) CurrentRating(ctx context.Context, userID string, initialMS int64, variant string) (*int, error) {
	r, ok := m.ratings[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}
