package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"viral-search-service/internal/domain"
)

// CachedCatalog is a domain.CatalogGateway that keeps catalog answers in a
// domain.Cache (normally the Redis Cache) for a short TTL. Only raw catalog data is cached; scores are always
// computed by the caller. Cache failures fall through to the catalog.
type CachedCatalog struct {
	next   domain.CatalogGateway
	cache  domain.Cache
	ttl    time.Duration
	logger *zap.Logger
}

var _ domain.CatalogGateway = (*CachedCatalog)(nil)

// NewCachedCatalog wraps next with a cache.
func NewCachedCatalog(next domain.CatalogGateway, cache domain.Cache, ttl time.Duration, logger *zap.Logger) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Search returns a cached page for an equivalent query or asks the catalog.
func (c *CachedCatalog) Search(
	ctx context.Context,
	query string,
	maxResults int,
	pageToken string,
	opts domain.SearchOptions,
) (*domain.SearchPage, error) {
	key := SearchKey(query, maxResults, pageToken, opts)

	if data, err := c.cache.Get(ctx, key); err == nil && data != nil {
		var page domain.SearchPage
		if err := json.Unmarshal(data, &page); err == nil {
			if page.Items == nil {
				page.Items = []domain.Item{}
			}

			return &page, nil
		}
		c.logger.Warn("discarding undecodable cached page", zap.String("key", key))
	}

	page, err := c.next.Search(ctx, query, maxResults, pageToken, opts)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, page)

	return page, nil
}

// GetPublishers serves cached publishers and fetches only the missing ones.
func (c *CachedCatalog) GetPublishers(ctx context.Context, ids []string) ([]domain.Publisher, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = publisherKey(id)
	}

	cached, err := c.cache.GetMany(ctx, keys)
	if err != nil {
		cached = nil
	}

	publishers := make([]domain.Publisher, 0, len(ids))
	missing := make([]string, 0, len(ids))
	for i, id := range ids {
		if i < len(cached) && cached[i] != nil {
			var p domain.Publisher
			if err := json.Unmarshal(cached[i], &p); err == nil {
				publishers = append(publishers, p)

				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return publishers, nil
	}

	fetched, err := c.next.GetPublishers(ctx, missing)
	if err != nil {
		return nil, err
	}

	for i := range fetched {
		c.store(ctx, publisherKey(fetched[i].ID), &fetched[i])
	}

	return append(publishers, fetched...), nil
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("encoding cache entry failed", zap.String("key", key), zap.Error(err))

		return
	}

	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Debug("cache store skipped", zap.String("key", key), zap.Error(err))
	}
}

// NormalizeQuery folds case, applies NFKC and collapses whitespace so that
// equivalent spellings of a query share one cache entry.
func NormalizeQuery(q string) string {
	q = norm.NFKC.String(q)
	q = cases.Fold().String(q)

	return strings.Join(strings.Fields(q), " ")
}

// SearchKey builds the cache key of a search call.
func SearchKey(query string, maxResults int, pageToken string, opts domain.SearchOptions) string {
	after := ""
	if opts.PublishedAfter != nil {
		after = opts.PublishedAfter.UTC().Format(time.RFC3339)
	}

	raw := fmt.Sprintf("%s\x00%d\x00%s\x00%s\x00%s\x00%s",
		NormalizeQuery(query), maxResults, pageToken, opts.UpstreamOrder(), after, opts.Duration)
	sum := sha256.Sum256([]byte(raw))

	return "search:" + hex.EncodeToString(sum[:])
}

func publisherKey(id string) string {
	return "publisher:" + id
}
