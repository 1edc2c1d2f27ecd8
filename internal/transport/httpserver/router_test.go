package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"viral-search-service/internal/app/service"
	"viral-search-service/internal/domain"
	"viral-search-service/internal/ratelimit"
	"viral-search-service/internal/transport/httpserver/middleware"
)

type stubSearcher struct{}

func (stubSearcher) Search(context.Context, domain.SearchQuery, service.Caller) (*domain.ScoredPage, error) {
	return &domain.ScoredPage{}, nil
}

func (stubSearcher) History(context.Context, string, int) ([]domain.SearchHistoryEntry, error) {
	return nil, nil
}

type stubSaved struct{}

func (stubSaved) List(context.Context, string, int) ([]domain.SavedItem, error) { return nil, nil }

func (stubSaved) Save(context.Context, string, string) (bool, error) { return true, nil }

func (stubSaved) Remove(context.Context, string, string) error { return nil }

func newTestServer(ready error) *Server {
	return NewServer(
		ServerConfig{MetricsPath: "/metrics"},
		Dependencies{
			Search: stubSearcher{},
			Saved:  stubSaved{},
			Readiness: map[string]middleware.ReadinessCheck{
				"database": func(context.Context) error { return ready },
			},
		},
		zap.NewNop(),
	)
}

func status(t *testing.T, s *Server, target string) (int, string) {
	t.Helper()

	resp, err := s.App.Test(httptest.NewRequest(fiber.MethodGet, target, nil))
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(nil)

	code, _ := status(t, s, "/livez")
	assert.Equal(t, fiber.StatusOK, code)

	code, _ = status(t, s, "/readyz")
	assert.Equal(t, fiber.StatusOK, code)

	code, body := status(t, s, "/metrics")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, body, "go_goroutines")

	code, body = status(t, s, "/api/v1/search?q=cats")
	assert.Equal(t, fiber.StatusOK, code)
	assert.JSONEq(t, `{"items":[],"totalResults":0}`, body)

	code, _ = status(t, s, "/api/v1/history")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = status(t, s, "/api/v1/saved")
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, body = status(t, s, "/nope")
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Contains(t, body, "UNHANDLED_ERROR")
}

func TestServer_SavedRoutesNeedService(t *testing.T) {
	s := NewServer(ServerConfig{}, Dependencies{Search: stubSearcher{}}, zap.NewNop())

	code, _ := status(t, s, "/api/v1/saved")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestServer_NotReady(t *testing.T) {
	s := newTestServer(errors.New("connection refused"))

	code, _ := status(t, s, "/readyz")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)

	code, _ = status(t, s, "/livez")
	assert.Equal(t, fiber.StatusOK, code)
}

type oneItemCatalog struct{}

func (oneItemCatalog) Search(context.Context, string, int, string, domain.SearchOptions) (*domain.SearchPage, error) {
	return &domain.SearchPage{
		Items:        []domain.Item{{ID: "v1", PublisherID: "ch1", PublishedAt: time.Now().Add(-time.Hour)}},
		TotalResults: 1,
	}, nil
}

func (oneItemCatalog) GetPublishers(context.Context, []string) ([]domain.Publisher, error) {
	return []domain.Publisher{{ID: "ch1"}}, nil
}

type historyRecorder struct {
	mu      sync.Mutex
	queries []string
}

func (*historyRecorder) UpsertPublishers(context.Context, []domain.Publisher) error { return nil }
func (*historyRecorder) UpsertItems(context.Context, []domain.Item) error { return nil }
func (*historyRecorder) InsertScores(context.Context, []domain.ScoredItem) error { return nil }

func (r *historyRecorder) SaveSearch(_ context.Context, entry domain.SearchHistoryEntry) error {
	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, entry.Query)

	return nil
}

func (*historyRecorder) RecentSearches(context.Context, string, int) ([]domain.SearchHistoryEntry, error) {
	return nil, nil
}

type subjectVerifier struct{}

func (subjectVerifier) UserID(token string) (string, error) { return token, nil }

// newPipelineServer wires a real limiter and persister behind the server.
func newPipelineServer(t *testing.T, cfg ServerConfig, maxRequests int) (*Server, *ratelimit.MemoryStore, *service.Persister, *historyRecorder) {
	t.Helper()

	store := ratelimit.NewMemoryStore()
	limiter := ratelimit.New(ratelimit.Config{MaxRequests: maxRequests, Window: time.Hour}, zap.NewNop(),
		ratelimit.WithStore(store),
	)

	repo := &historyRecorder{}
	persister := service.NewPersister(repo, nil, service.PersisterConfig{Workers: 1}, zap.NewNop())
	persister.Start()

	svc := service.NewSearchService(oneItemCatalog{}, limiter, zap.NewNop(),
		service.WithRepository(repo),
		service.WithPersister(persister),
	)

	s := NewServer(cfg, Dependencies{Search: svc, Identity: subjectVerifier{}}, zap.NewNop())

	return s, store, persister, repo
}

func search(t *testing.T, s *Server, query, forwardedFor string) int {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/search?q="+query, nil)
	req.Header.Set(fiber.HeaderXForwardedFor, forwardedFor)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer user-1")

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	return resp.StatusCode
}

func TestServer_RequestStringsOutliveRequests(t *testing.T) {
	s, store, persister, repo := newPipelineServer(t, ServerConfig{
		ProxyHeader:    fiber.HeaderXForwardedFor,
		TrustedProxies: []string{"0.0.0.0"},
	}, 1)

	var wantKeys, wantQueries []string
	for i := 0; i < 4; i++ {
		ip := fmt.Sprintf("203.0.113.%d", 10+i)
		query := fmt.Sprintf("query%02dxyz", i)
		wantKeys = append(wantKeys, ip)
		wantQueries = append(wantQueries, query)

		assert.Equal(t, fiber.StatusOK, search(t, s, query, ip), "first request of %s", ip)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, persister.Stop(ctx))

	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, wantKeys, keys)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, wantQueries, repo.queries)
}

func TestServer_ForwardedForFromUntrustedPeerIsIgnored(t *testing.T) {
	s, store, persister, _ := newPipelineServer(t, ServerConfig{}, 1)
	defer func() { _ = persister.Stop(context.Background()) }()

	assert.Equal(t, fiber.StatusOK, search(t, s, "cats", "198.51.100.1"))
	for i := 2; i <= 5; i++ {
		assert.Equal(t, fiber.StatusTooManyRequests, search(t, s, "cats", fmt.Sprintf("198.51.100.%d", i)))
	}

	keys, err := store.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0.0.0.0"}, keys)
}
