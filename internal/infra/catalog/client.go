// Package catalog implements the video catalog gateway over its REST API.
package catalog

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
	"viral-search-service/internal/metrics"
)

// Catalog API paths.
const (
	SearchEndpoint   = "/search"
	VideosEndpoint   = "/videos"
	ChannelsEndpoint = "/channels"
)

var tracer = otel.Tracer("viral-search-service/catalog")

// Client implements domain.CatalogGateway.
type Client struct {
	client *resty.Client
	cb     *gobreaker.CircuitBreaker[*resty.Response]
	apiKey string
	logger *zap.Logger
}

var _ domain.CatalogGateway = (*Client)(nil)

// New creates a catalog client.
func New(cfg ClientConfig, logger *zap.Logger) *Client {
	return &Client{
		client: newRestyClient(cfg),
		cb:     newCircuitBreaker("catalog", cfg.CB, logger),
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// Search runs a search and enriches the hits with full metrics in one
// batched /videos call. Hits keep the catalog's order; hits without an id or
// missing from the /videos answer are dropped.
func (c *Client) Search(
	ctx context.Context,
	query string,
	maxResults int,
	pageToken string,
	opts domain.SearchOptions,
) (*domain.SearchPage, error) {
	params := map[string]string{
		"part":       "snippet",
		"type":       "video",
		"q":          query,
		"maxResults": strconv.Itoa(maxResults),
	}
	if pageToken != "" {
		params["pageToken"] = pageToken
	}
	if order := opts.UpstreamOrder(); order != "" {
		params["order"] = order
	}
	if opts.PublishedAfter != nil {
		params["publishedAfter"] = opts.PublishedAfter.UTC().Format(time.RFC3339)
	}
	if opts.Duration != "" {
		params["videoDuration"] = string(opts.Duration)
	}

	var search searchResponse
	if err := c.get(ctx, "search", SearchEndpoint, params, &search); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(search.Items))
	for _, hit := range search.Items {
		if hit.ID.VideoID != "" {
			ids = append(ids, hit.ID.VideoID)
		}
	}
	ids = dedupe(ids)

	if len(ids) == 0 {
		return &domain.SearchPage{
			Items:         []domain.Item{},
			NextPageToken: search.NextPageToken,
		}, nil
	}

	var videos videosResponse
	err := c.get(ctx, "videos", VideosEndpoint, map[string]string{
		"part": "snippet,statistics,contentDetails",
		"id":   strings.Join(ids, ","),
	}, &videos)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*videoResource, len(videos.Items))
	for i := range videos.Items {
		byID[videos.Items[i].ID] = &videos.Items[i]
	}

	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			items = append(items, v.ToDomain())
		}
	}

	if missing := len(ids) - len(items); missing > 0 {
		c.logger.Debug("search hits missing from videos response",
			zap.Int("missing", missing),
		)
	}

	return &domain.SearchPage{
		Items:         items,
		NextPageToken: search.NextPageToken,
		TotalResults:  search.PageInfo.TotalResults,
	}, nil
}

// GetPublishers fetches all publishers in one /channels call.
func (c *Client) GetPublishers(ctx context.Context, ids []string) ([]domain.Publisher, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var channels channelsResponse
	err := c.get(ctx, "channels", ChannelsEndpoint, map[string]string{
		"part": "snippet,statistics",
		"id":   strings.Join(ids, ","),
	}, &channels)
	if err != nil {
		return nil, err
	}

	publishers := make([]domain.Publisher, 0, len(channels.Items))
	for i := range channels.Items {
		publishers = append(publishers, channels.Items[i].ToDomain())
	}

	return publishers, nil
}

// get performs one guarded GET and decodes the body into result.
func (c *Client) get(ctx context.Context, op, path string, params map[string]string, result any) error {
	ctx, span := tracer.Start(ctx, "catalog."+op)
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.UpstreamDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	_, err := c.cb.Execute(func() (*resty.Response, error) {
		req := c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(result).
			SetError(&errorResponse{})
		if c.apiKey != "" {
			req.SetQueryParam("key", c.apiKey)
		}

		r, err := req.Get(path)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return r, upstreamError(r)
		}

		return r, nil
	})
	if err != nil {
		upErr := toUpstreamError(err)
		span.RecordError(upErr)
		span.SetStatus(codes.Error, upErr.Message)
		span.SetAttributes(attribute.Int("catalog.status", upErr.Code))

		c.logger.Warn("catalog call failed",
			zap.String("operation", op),
			zap.Int("code", upErr.Code),
			zap.String("state", c.cb.State().String()),
			zap.Error(err),
		)

		return upErr
	}

	return nil
}

// upstreamError builds an UpstreamError from a non-2xx response, preferring
// the code and message of the catalog's error envelope.
func upstreamError(r *resty.Response) *domain.UpstreamError {
	upErr := &domain.UpstreamError{
		Code:    r.StatusCode(),
		Message: http.StatusText(r.StatusCode()),
	}

	if body, ok := r.Error().(*errorResponse); ok && body.Error.Message != "" {
		upErr.Message = body.Error.Message
		if body.Error.Code != 0 {
			upErr.Code = body.Error.Code
		}
	}

	return upErr
}

func toUpstreamError(err error) *domain.UpstreamError {
	var upErr *domain.UpstreamError
	if errors.As(err, &upErr) {
		return upErr
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.UpstreamError{Code: http.StatusServiceUnavailable, Message: "catalog unavailable: " + err.Error()}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &domain.UpstreamError{Code: http.StatusGatewayTimeout, Message: "catalog timeout"}
	}

	return &domain.UpstreamError{Message: err.Error()}
}

// dedupe drops empty and repeated ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
