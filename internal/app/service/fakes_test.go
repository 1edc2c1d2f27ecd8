package service

import (
	"context"
	"errors"
	"sync"

	"viral-search-service/internal/domain"
	"viral-search-service/internal/ratelimit"
)

type fakeGateway struct {
	page       *domain.SearchPage
	publishers []domain.Publisher
	searchErr  error
	pubErr     error

	searchCalls int
	pubCalls    int
	requested   []string
}

func (g *fakeGateway) Search(_ context.Context, _ string, _ int, _ string, _ domain.SearchOptions) (*domain.SearchPage, error) {
	g.searchCalls++
	if g.searchErr != nil {
		return nil, g.searchErr
	}

	return g.page, nil
}

func (g *fakeGateway) GetPublishers(_ context.Context, ids []string) ([]domain.Publisher, error) {
	g.pubCalls++
	g.requested = append(g.requested, ids...)
	if g.pubErr != nil {
		return nil, g.pubErr
	}

	return g.publishers, nil
}

type fakeLimiter struct {
	decision ratelimit.Decision
	err      error
	calls    int
	keys     []string
}

func (l *fakeLimiter) Check(_ context.Context, key string) (ratelimit.Decision, error) {
	l.calls++
	l.keys = append(l.keys, key)

	return l.decision, l.err
}

func allow() *fakeLimiter {
	return &fakeLimiter{decision: ratelimit.Decision{Allowed: true, Remaining: 49}}
}

type fakeRepo struct {
	mu sync.Mutex

	calls      []string
	publishers []domain.Publisher
	items      []domain.Item
	scores     []domain.ScoredItem
	history    []domain.SearchHistoryEntry

	failOn     map[string]error
	historyErr error
}

func (r *fakeRepo) record(stage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, stage)

	return r.failOn[stage]
}

func (r *fakeRepo) UpsertPublishers(_ context.Context, p []domain.Publisher) error {
	if err := r.record(StagePublishers); err != nil {
		return err
	}
	r.mu.Lock()
	r.publishers = append(r.publishers, p...)
	r.mu.Unlock()

	return nil
}

func (r *fakeRepo) UpsertItems(_ context.Context, items []domain.Item) error {
	if err := r.record(StageItems); err != nil {
		return err
	}
	r.mu.Lock()
	r.items = append(r.items, items...)
	r.mu.Unlock()

	return nil
}

func (r *fakeRepo) InsertScores(_ context.Context, scored []domain.ScoredItem) error {
	if err := r.record(StageScores); err != nil {
		return err
	}
	r.mu.Lock()
	r.scores = append(r.scores, scored...)
	r.mu.Unlock()

	return nil
}

func (r *fakeRepo) SaveSearch(_ context.Context, entry domain.SearchHistoryEntry) error {
	if err := r.record(StageHistory); err != nil {
		return err
	}
	r.mu.Lock()
	r.history = append(r.history, entry)
	r.mu.Unlock()

	return nil
}

func (r *fakeRepo) RecentSearches(_ context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if r.historyErr != nil {
		return nil, r.historyErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.SearchHistoryEntry, 0, limit)
	for i := len(r.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.history[i].UserID == userID {
			out = append(out, r.history[i])
		}
	}

	return out, nil
}

func (r *fakeRepo) stages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.SearchEvent
	err    error
}

func (e *fakeEvents) PublishSearch(_ context.Context, event domain.SearchEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.err != nil {
		return e.err
	}
	e.events = append(e.events, event)

	return nil
}

var errBoom = errors.New("boom")
