// Package service provides application use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
	"viral-search-service/internal/metrics"
	"viral-search-service/internal/ratelimit"
)

// History bounds.
const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 50
)

// topItemsInEvent caps the item ids carried by a search event.
const topItemsInEvent = 10

// ErrHistoryUnavailable is returned by History when no store is configured.
var ErrHistoryUnavailable = errors.New("search history is not available")

var tracer = otel.Tracer("viral-search-service/service")

// RateLimiter admits or denies a request for a client key.
type RateLimiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
}

// Caller identifies who is searching.
type Caller struct {
	// Key is the rate-limit key, normally the client address.
	Key string
	// UserID is set for authenticated callers and tags search history.
	UserID string
}

// SearchService runs the search-and-score pipeline.
type SearchService struct {
	gateway   domain.CatalogGateway
	limiter   RateLimiter
	engine    *domain.ScoreEngine
	repo      domain.ScoreRepository
	persister *Persister
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a SearchService.
type Option func(*SearchService)

// WithRepository enables the search history read path.
func WithRepository(repo domain.ScoreRepository) Option {
	return func(s *SearchService) { s.repo = repo }
}

// WithPersister enables background persistence of results.
func WithPersister(p *Persister) Option {
	return func(s *SearchService) { s.persister = p }
}

// WithScoreEngine replaces the wall-clock score engine.
func WithScoreEngine(e *domain.ScoreEngine) Option {
	return func(s *SearchService) { s.engine = e }
}

// NewSearchService creates a new SearchService.
func NewSearchService(
	gateway domain.CatalogGateway,
	limiter RateLimiter,
	logger *zap.Logger,
	opts ...Option,
) *SearchService {
	s := &SearchService{
		gateway: gateway,
		limiter: limiter,
		engine:  domain.NewScoreEngine(),
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Search validates and throttles the request, fetches and scores the
// catalog page, filters and sorts it, and schedules persistence.
//
// Errors are *domain.ValidationError, *domain.RateLimitError, or wrap
// domain.ErrInternal.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery, caller Caller) (*domain.ScoredPage, error) {
	ctx, span := tracer.Start(ctx, "SearchService.Search")
	defer span.End()

	if strings.TrimSpace(q.Query) == "" {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()

		return nil, &domain.ValidationError{Message: "query is required"}
	}
	q.Normalize()

	span.SetAttributes(
		attribute.String("search.sort_by", string(q.Options.SortBy)),
		attribute.Int("search.max_results", q.MaxResults),
	)

	decision, err := s.limiter.Check(ctx, caller.Key)
	if err != nil {
		return nil, s.fail(span, "checking rate limit", err)
	}
	if !decision.Allowed {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		metrics.RateLimitedTotal.Inc()
		s.logger.Info("rate limit exceeded", zap.String("client", caller.Key))

		return nil, &domain.RateLimitError{
			Remaining: decision.Remaining,
			ResetAt:   decision.ResetAt,
		}
	}

	page, err := s.gateway.Search(ctx, q.Query, q.MaxResults, q.PageToken, q.Options)
	if err != nil {
		return nil, s.fail(span, "searching catalog", err)
	}

	if len(page.Items) == 0 {
		metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

		return &domain.ScoredPage{
			Items:         []domain.ScoredItem{},
			NextPageToken: page.NextPageToken,
		}, nil
	}

	publishers, err := s.gateway.GetPublishers(ctx, domain.UniquePublisherIDs(page.Items))
	if err != nil {
		return nil, s.fail(span, "fetching publishers", err)
	}

	byID := make(map[string]domain.Publisher, len(publishers))
	for _, p := range publishers {
		byID[p.ID] = p
	}

	scored := make([]domain.ScoredItem, 0, len(page.Items))
	for _, item := range page.Items {
		publisher, ok := byID[item.PublisherID]
		if !ok {
			continue
		}
		scored = append(scored, s.engine.NewScoredItem(item, publisher))
	}

	if dropped := len(page.Items) - len(scored); dropped > 0 {
		metrics.DroppedItemsTotal.Add(float64(dropped))
		s.logger.Debug("dropped items without publisher", zap.Int("dropped", dropped))
	}

	results := q.Filter.Apply(scored)
	domain.SortItems(results, q.Options.SortBy, q.Order)

	s.schedulePersist(q.Query, caller, scored, results)

	metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	span.SetAttributes(attribute.Int("search.results", len(results)))

	return &domain.ScoredPage{
		Items:         results,
		NextPageToken: page.NextPageToken,
		TotalResults:  page.TotalResults,
	}, nil
}

// History returns the newest saved searches of userID.
func (s *SearchService) History(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error) {
	if s.repo == nil {
		return nil, ErrHistoryUnavailable
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err := s.repo.RecentSearches(ctx, userID, limit)
	if err != nil {
		s.logger.Error("loading search history failed", zap.String("user_id", userID), zap.Error(err))

		return nil, fmt.Errorf("%w: loading history: %w", domain.ErrInternal, err)
	}

	return entries, nil
}

// schedulePersist hands the results to the persister. Publishers without a
// surviving item are not written; every scored item gets a snapshot.
func (s *SearchService) schedulePersist(query string, caller Caller, scored, results []domain.ScoredItem) {
	if s.persister == nil {
		return
	}

	job := PersistJob{
		Publishers: make([]domain.Publisher, 0, len(scored)),
		Items:      make([]domain.Item, 0, len(scored)),
		Scored:     scored,
	}

	seen := make(map[string]struct{}, len(scored))
	for i := range scored {
		job.Items = append(job.Items, scored[i].Item)
		if _, ok := seen[scored[i].Publisher.ID]; !ok {
			seen[scored[i].Publisher.ID] = struct{}{}
			job.Publishers = append(job.Publishers, scored[i].Publisher)
		}
	}

	now := s.now().UTC()
	if caller.UserID != "" {
		job.History = &domain.SearchHistoryEntry{
			UserID:       caller.UserID,
			Query:        query,
			ResultsCount: len(results),
			CreatedAt:    now,
		}
	}

	top := make([]string, 0, min(len(results), topItemsInEvent))
	for i := 0; i < len(results) && i < topItemsInEvent; i++ {
		top = append(top, results[i].ID)
	}
	job.Event = &domain.SearchEvent{
		Query:       query,
		UserID:      caller.UserID,
		ResultCount: len(results),
		TopItemIDs:  top,
		At:          now,
	}

	s.persister.Enqueue(job)
}

func (s *SearchService) fail(span trace.Span, op string, err error) error {
	metrics.SearchRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Error("search failed", zap.String("operation", op), zap.Error(err))

	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}
