// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/utils"

	"viral-search-service/internal/domain"
)

// SearchRequest represents the query parameters of GET /api/v1/search.
// A blank q is rejected by the search service, not here.
type SearchRequest struct {
	Query          string `query:"q" validate:"max=500"`
	PageToken      string `query:"pageToken" validate:"max=512"`
	MaxResults     int    `query:"maxResults" validate:"omitempty,min=1,max=50"`
	SortBy         string `query:"sortBy" validate:"omitempty,oneof=relevance date viewCount rating viralScore"`
	SortOrder      string `query:"sortOrder" validate:"omitempty,oneof=asc desc"`
	PublishedAfter string `query:"publishedAfter" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	VideoDuration  string `query:"videoDuration" validate:"omitempty,oneof=any short medium long"`
	MinSubscribers *int64 `query:"minSubscribers" validate:"omitempty,min=0"`
	MaxSubscribers *int64 `query:"maxSubscribers" validate:"omitempty,min=0"`
	MinViews       *int64 `query:"minViews" validate:"omitempty,min=0"`
	MaxViews       *int64 `query:"maxViews" validate:"omitempty,min=0"`
}

// ToSearchQuery converts a validated SearchRequest to domain.SearchQuery.
// Strings are copied: the query outlives the request in background jobs,
// while parsed parameters may share the request buffer.
func (r *SearchRequest) ToSearchQuery() (domain.SearchQuery, error) {
	q := domain.SearchQuery{
		Query:      utils.CopyString(strings.TrimSpace(r.Query)),
		PageToken:  utils.CopyString(r.PageToken),
		MaxResults: r.MaxResults,
		Options: domain.SearchOptions{
			SortBy:   domain.SortKey(utils.CopyString(r.SortBy)),
			Duration: domain.DurationBucket(utils.CopyString(r.VideoDuration)),
		},
		Order: domain.SortOrder(utils.CopyString(r.SortOrder)),
		Filter: domain.FilterCriteria{
			MinSubscribers: r.MinSubscribers,
			MaxSubscribers: r.MaxSubscribers,
			MinViews:       r.MinViews,
			MaxViews:       r.MaxViews,
		},
	}

	if r.PublishedAfter != "" {
		ts, err := time.Parse(time.RFC3339, r.PublishedAfter)
		if err != nil {
			return domain.SearchQuery{}, fmt.Errorf("publishedAfter: %w", err)
		}
		ts = ts.UTC()
		q.Options.PublishedAfter = &ts
	}

	q.Normalize()

	return q, nil
}

// HistoryRequest represents the query parameters of GET /api/v1/history.
type HistoryRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=50"`
}
