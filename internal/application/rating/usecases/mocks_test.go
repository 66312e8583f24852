package usecases

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chessforge/gamecore/internal/domain/rating"
)

type passthroughTx struct {
	calls int
}

func (p *passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

type mockPoolRepository struct {
	pools map[string]rating.Pool
}

func newMockPoolRepository(codes ...string) *mockPoolRepository {
	m := &mockPoolRepository{pools: make(map[string]rating.Pool)}
	for _, c := range codes {
		m.pools[c] = rating.NewPool(c, rating.DefaultTau)
	}
	return m
}

func (m *mockPoolRepository) GetByCode(ctx context.Context, code string) (*rating.Pool, error) {
	p, ok := m.pools[code]
	if !ok {
		return nil, rating.ErrPoolNotFound
	}
	return &p, nil
}

func (m *mockPoolRepository) List(ctx context.Context) ([]rating.Pool, error) {
	out := make([]rating.Pool, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *mockPoolRepository) EnsureExists(ctx context.Context, pools ...rating.Pool) error {
	for _, p := range pools {
		if _, ok := m.pools[p.Code]; !ok {
			m.pools[p.Code] = p
		}
	}
	return nil
}

type mockUserRatingRepository struct {
	mu       sync.Mutex
	rows     map[string]rating.UserRating
	SaveFunc func(ctx context.Context, u *rating.UserRating) error
}

func newMockUserRatingRepository() *mockUserRatingRepository {
	return &mockUserRatingRepository{rows: make(map[string]rating.UserRating)}
}

func (m *mockUserRatingRepository) put(u *rating.UserRating) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[u.UserID+"|"+u.PoolCode] = *u
}

func (m *mockUserRatingRepository) Get(ctx context.Context, userID, poolCode string) (*rating.UserRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.rows[userID+"|"+poolCode]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *mockUserRatingRepository) GetForUpdate(ctx context.Context, userID, poolCode string) (*rating.UserRating, error) {
	return m.Get(ctx, userID, poolCode)
}

func (m *mockUserRatingRepository) ListByUser(ctx context.Context, userID string) ([]*rating.UserRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*rating.UserRating
	for _, u := range m.rows {
		if u.UserID == userID {
			u := u
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PoolCode < out[j].PoolCode })
	return out, nil
}

func (m *mockUserRatingRepository) ListByUsers(ctx context.Context, userIDs []string, poolCode string) ([]*rating.UserRating, error) {
	var out []*rating.UserRating
	for _, id := range userIDs {
		u, _ := m.Get(ctx, id, poolCode)
		if u != nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRatingRepository) Save(ctx context.Context, u *rating.UserRating) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, u)
	}
	m.put(u)
	return nil
}

type mockIngestionRepository struct {
	mu         sync.Mutex
	rows       map[string]rating.Ingestion
	InsertFunc func(ctx context.Context, i *rating.Ingestion) error
}

func newMockIngestionRepository() *mockIngestionRepository {
	return &mockIngestionRepository{rows: make(map[string]rating.Ingestion)}
}

func (m *mockIngestionRepository) Insert(ctx context.Context, i *rating.Ingestion) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, i)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := i.GameID + "|" + i.PoolCode
	if _, ok := m.rows[key]; ok {
		return rating.ErrDuplicateIngestion
	}
	m.rows[key] = *i
	return nil
}

func (m *mockIngestionRepository) Get(ctx context.Context, gameID, poolCode string) (*rating.Ingestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.rows[gameID+"|"+poolCode]
	if !ok {
		return nil, nil
	}
	return &i, nil
}

func (m *mockIngestionRepository) Update(ctx context.Context, i *rating.Ingestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[i.GameID+"|"+i.PoolCode] = *i
	return nil
}

type mockEventRepository struct {
	created []*rating.Event
}

func (m *mockEventRepository) Create(ctx context.Context, e *rating.Event) error {
	m.created = append(m.created, e)
	return nil
}

func (m *mockEventRepository) ListByUser(ctx context.Context, userID, poolCode string, limit int) ([]*rating.Event, error) {
	return nil, nil
}

type mockOutboxRepository struct {
	entries   []*rating.OutboxEntry
	marked    []string
	FetchFunc func(ctx context.Context, limit int) ([]*rating.OutboxEntry, error)
	MarkFunc  func(ctx context.Context, ids []string, at time.Time) error
}

func (m *mockOutboxRepository) Create(ctx context.Context, e *rating.OutboxEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockOutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*rating.OutboxEntry, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, limit)
	}
	var out []*rating.OutboxEntry
	for _, e := range m.entries {
		if e.PublishedAt == nil && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockOutboxRepository) MarkPublished(ctx context.Context, ids []string, at time.Time) error {
	if m.MarkFunc != nil {
		return m.MarkFunc(ctx, ids, at)
	}
	m.marked = append(m.marked, ids...)
	for _, e := range m.entries {
		for _, id := range ids {
			if e.ID == id {
				e.PublishedAt = &at
			}
		}
	}
	return nil
}

type mockLeaderboardRepository struct {
	upserts    []rating.LeaderboardEntry
	recomputed []string
	ListFunc   func(ctx context.Context, poolCode string, limit, offset int) ([]rating.LeaderboardEntry, int64, error)
}

func (m *mockLeaderboardRepository) Get(ctx context.Context, poolCode, userID string) (*rating.LeaderboardEntry, error) {
	for i := len(m.upserts) - 1; i >= 0; i-- {
		if e := m.upserts[i]; e.PoolCode == poolCode && e.UserID == userID {
			return &e, nil
		}
	}
	return nil, rating.ErrNotRanked
}

func (m *mockLeaderboardRepository) Upsert(ctx context.Context, e rating.LeaderboardEntry) error {
	m.upserts = append(m.upserts, e)
	return nil
}

func (m *mockLeaderboardRepository) RecomputeRanks(ctx context.Context, poolCode string) error {
	m.recomputed = append(m.recomputed, poolCode)
	return nil
}

func (m *mockLeaderboardRepository) List(ctx context.Context, poolCode string, limit, offset int) ([]rating.LeaderboardEntry, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, poolCode, limit, offset)
	}
	return nil, 0, nil
}

type mockBackfillJobRepository struct {
	mu   sync.Mutex
	jobs map[string]rating.BackfillJob
}

func newMockBackfillJobRepository() *mockBackfillJobRepository {
	return &mockBackfillJobRepository{jobs: make(map[string]rating.BackfillJob)}
}

func (m *mockBackfillJobRepository) Create(ctx context.Context, j *rating.BackfillJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = *j
	return nil
}

func (m *mockBackfillJobRepository) Update(ctx context.Context, j *rating.BackfillJob) error {
	return m.Create(ctx, j)
}

func (m *mockBackfillJobRepository) GetByID(ctx context.Context, jobID string) (*rating.BackfillJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return nil, rating.ErrBackfillNotFound
	}
	return &j, nil
}

func (m *mockBackfillJobRepository) GetRunning(ctx context.Context) (*rating.BackfillJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == rating.BackfillRunning {
			return &j, nil
		}
	}
	return nil, nil
}

type mockSink struct {
	PublishFunc func(ctx context.Context, topic, key string, payload []byte) error
	keys        []string
}

func (m *mockSink) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, topic, key, payload); err != nil {
			return err
		}
	}
	m.keys = append(m.keys, key)
	return nil
}

type mockReplayer struct {
	payloads [][]byte
	err      error
}

func (m *mockReplayer) Replay(ctx context.Context, from, to time.Time, fn func(ctx context.Context, payload []byte) error) error {
	for _, p := range m.payloads {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, p); err != nil {
			return err
		}
	}
	return m.err
}
