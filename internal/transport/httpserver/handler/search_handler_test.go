package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"viral-search-service/internal/app/service"
	"viral-search-service/internal/domain"
	"viral-search-service/internal/transport/httpserver/middleware"
	"viral-search-service/internal/validator"
)

type fakeSearcher struct {
	page    *domain.ScoredPage
	err     error
	entries []domain.SearchHistoryEntry
	histErr error

	lastQuery  domain.SearchQuery
	lastCaller service.Caller
	lastLimit  int
	calls      int

	queries []domain.SearchQuery
	callers []service.Caller
}

func (f *fakeSearcher) Search(_ context.Context, q domain.SearchQuery, caller service.Caller) (*domain.ScoredPage, error) {
	f.calls++
	f.lastQuery = q
	f.lastCaller = caller
	f.queries = append(f.queries, q)
	f.callers = append(f.callers, caller)

	return f.page, f.err
}

func (f *fakeSearcher) History(_ context.Context, _ string, limit int) ([]domain.SearchHistoryEntry, error) {
	f.lastLimit = limit

	return f.entries, f.histErr
}

type tokenVerifier struct{}

func (tokenVerifier) UserID(token string) (string, error) {
	if token == "valid" {
		return "user-1", nil
	}

	return "", errors.New("invalid")
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestApp(svc Searcher) *fiber.App {
	h := NewSearchHandler(svc, validator.New(), zap.NewNop())
	h.now = func() time.Time { return testNow }

	app := fiber.New(proxyConfig("0.0.0.0"))
	app.Use(middleware.OptionalIdentity(tokenVerifier{}, zap.NewNop()))
	app.Get("/api/v1/search", h.Search)
	app.Get("/api/v1/history", h.History)

	return app
}

// proxyConfig trusts X-Forwarded-For from the given peers. The test
// transport connects from 0.0.0.0.
func proxyConfig(trusted ...string) fiber.Config {
	return fiber.Config{
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          trusted,
		EnableIPValidation:      true,
	}
}

func doGet(t *testing.T, app *fiber.App, target string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return resp, body
}

func TestSearch_OK(t *testing.T) {
	svc := &fakeSearcher{page: &domain.ScoredPage{
		Items: []domain.ScoredItem{{
			Item:       domain.Item{ID: "v1", Title: "cats"},
			Publisher:  domain.Publisher{ID: "ch1"},
			ViralScore: 87,
			Potential:  domain.PotentialHigh,
		}},
		NextPageToken: "next",
		TotalResults:  120,
	}}
	app := newTestApp(svc)

	resp, body := doGet(t, app, "/api/v1/search?q=cats&maxResults=10&sortBy=viewCount&minViews=100", map[string]string{
		fiber.HeaderXForwardedFor: "203.0.113.9, 10.0.0.1",
		fiber.HeaderAuthorization: "Bearer valid",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, SearchCacheControl, resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, "next", body["nextPageToken"])
	assert.EqualValues(t, 120, body["totalResults"])

	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "v1", first["id"])
	assert.EqualValues(t, 87, first["viralScore"])
	assert.Equal(t, "ch1", first["channel"].(map[string]any)["id"])

	assert.Equal(t, "cats", svc.lastQuery.Query)
	assert.Equal(t, 10, svc.lastQuery.MaxResults)
	assert.Equal(t, domain.SortViewCount, svc.lastQuery.Options.SortBy)
	assert.Equal(t, int64(100), *svc.lastQuery.Filter.MinViews)
	assert.Equal(t, service.Caller{Key: "203.0.113.9", UserID: "user-1"}, svc.lastCaller)
}

func TestSearch_AnonymousCallerUsesRemoteAddress(t *testing.T) {
	svc := &fakeSearcher{page: &domain.ScoredPage{}}
	app := newTestApp(svc)

	resp, body := doGet(t, app, "/api/v1/search?q=cats", map[string]string{
		fiber.HeaderAuthorization: "Bearer forged",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, svc.lastCaller.UserID)
	assert.NotEmpty(t, svc.lastCaller.Key)
	assert.NotNil(t, body["items"])
}

func TestSearch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"max results too large", "/api/v1/search?q=cats&maxResults=51"},
		{"unknown sort", "/api/v1/search?q=cats&sortBy=likes"},
		{"bad timestamp", "/api/v1/search?q=cats&publishedAfter=yesterday"},
		{"negative bound", "/api/v1/search?q=cats&minViews=-1"},
		{"not a number", "/api/v1/search?q=cats&maxResults=ten"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSearcher{}
			app := newTestApp(svc)

			resp, body := doGet(t, app, tt.target, nil)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Zero(t, svc.calls)
		})
	}
}

func TestSearch_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		message    string
		code       string
		retryAfter string
	}{
		{
			name:    "blank query",
			err:     &domain.ValidationError{Message: "query is required"},
			status:  fiber.StatusBadRequest,
			message: "Query parameter is required",
			code:    "VALIDATION_ERROR",
		},
		{
			name:       "rate limited",
			err:        &domain.RateLimitError{ResetAt: testNow.Add(90 * time.Second)},
			status:     fiber.StatusTooManyRequests,
			message:    "Rate limit exceeded. Please try again later.",
			code:       "RATE_LIMITED",
			retryAfter: "90",
		},
		{
			name:    "internal",
			err:     fmt.Errorf("%w: searching catalog: %w", domain.ErrInternal, &domain.UpstreamError{Code: 403, Message: "quota"}),
			status:  fiber.StatusInternalServerError,
			message: "Failed to search videos",
			code:    "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeSearcher{err: tt.err})

			resp, body := doGet(t, app, "/api/v1/search?q=%20", nil)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.message, body["error"])
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, tt.retryAfter, resp.Header.Get(fiber.HeaderRetryAfter))
			assert.Empty(t, resp.Header.Get(fiber.HeaderCacheControl))
		})
	}
}

func TestSearch_RateLimitBody(t *testing.T) {
	reset := testNow.Add(time.Minute)
	app := newTestApp(&fakeSearcher{err: &domain.RateLimitError{ResetAt: reset}})

	_, body := doGet(t, app, "/api/v1/search?q=cats", nil)

	assert.EqualValues(t, 0, body["remainingRequests"])
	assert.EqualValues(t, reset.UnixMilli(), body["resetTime"])
}

func TestHistory(t *testing.T) {
	svc := &fakeSearcher{entries: []domain.SearchHistoryEntry{
		{Query: "cats", ResultsCount: 4, CreatedAt: testNow},
	}}
	app := newTestApp(svc)

	resp, body := doGet(t, app, "/api/v1/history?limit=5", map[string]string{
		fiber.HeaderAuthorization: "Bearer valid",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, HistoryCacheControl, resp.Header.Get(fiber.HeaderCacheControl))
	assert.Equal(t, 5, svc.lastLimit)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, map[string]any{
		"query":        "cats",
		"resultsCount": float64(4),
		"createdAt":    "2024-06-01T12:00:00Z",
	}, items[0])
}

func TestHistory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *fakeSearcher
		headers map[string]string
		target  string
		status  int
	}{
		{"anonymous", &fakeSearcher{}, nil, "/api/v1/history", fiber.StatusUnauthorized},
		{"invalid token", &fakeSearcher{}, map[string]string{fiber.HeaderAuthorization: "Bearer nope"}, "/api/v1/history", fiber.StatusUnauthorized},
		{"limit too large", &fakeSearcher{}, map[string]string{fiber.HeaderAuthorization: "Bearer valid"}, "/api/v1/history?limit=500", fiber.StatusBadRequest},
		{"unavailable", &fakeSearcher{histErr: service.ErrHistoryUnavailable}, map[string]string{fiber.HeaderAuthorization: "Bearer valid"}, "/api/v1/history", fiber.StatusServiceUnavailable},
		{"store failure", &fakeSearcher{histErr: domain.ErrInternal}, map[string]string{fiber.HeaderAuthorization: "Bearer valid"}, "/api/v1/history", fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(tt.svc)

			resp, _ := doGet(t, app, tt.target, tt.headers)

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, HistoryCacheControl, resp.Header.Get(fiber.HeaderCacheControl))
		})
	}
}

func TestSearch_RetainedStringsSurviveLaterRequests(t *testing.T) {
	svc := &fakeSearcher{page: &domain.ScoredPage{}}
	app := newTestApp(svc)

	for i := 0; i < 4; i++ {
		target := fmt.Sprintf("/api/v1/search?q=query%02dxyz&pageToken=tok%02d&sortBy=date", i, i)
		resp, _ := doGet(t, app, target, map[string]string{
			fiber.HeaderXForwardedFor: fmt.Sprintf("203.0.113.%d", 10+i),
		})
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	require.Len(t, svc.queries, 4)
	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("query%02dxyz", i), svc.queries[i].Query)
		assert.Equal(t, fmt.Sprintf("tok%02d", i), svc.queries[i].PageToken)
		assert.Equal(t, domain.SortDate, svc.queries[i].Options.SortBy)
		assert.Equal(t, fmt.Sprintf("203.0.113.%d", 10+i), svc.callers[i].Key)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		name     string
		config   fiber.Config
		header   string
		expected string
	}{
		{"no proxy header ignores forwarding", fiber.Config{}, "198.51.100.7", "0.0.0.0"},
		{"untrusted peer cannot spoof", proxyConfig("10.0.0.1"), "198.51.100.7", "0.0.0.0"},
		{"trusted peer single", proxyConfig("0.0.0.0"), "198.51.100.7", "198.51.100.7"},
		{"trusted peer chain", proxyConfig("0.0.0.0"), "198.51.100.7, 10.0.0.1", "198.51.100.7"},
		{"trusted peer garbage", proxyConfig("0.0.0.0"), "not-an-ip", "0.0.0.0"},
		{"absent", proxyConfig("0.0.0.0"), "", "0.0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New(tt.config)
			app.Get("/", func(c *fiber.Ctx) error {
				return c.SendString(ClientKey(c))
			})

			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderXForwardedFor, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(body))
		})
	}
}
