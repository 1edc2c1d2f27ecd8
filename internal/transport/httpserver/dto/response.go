package dto

import (
	"time"

	"viral-search-service/internal/domain"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeNotFound     = "NOT_FOUND"
	CodeUnavailable  = "UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
	CodePanic        = "PANIC"
	CodeUnhandled    = "UNHANDLED_ERROR"
)

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Items         []domain.ScoredItem `json:"items"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
	TotalResults  int64               `json:"totalResults"`
}

// FromScoredPage converts a domain.ScoredPage to SearchResponse.
func FromScoredPage(page *domain.ScoredPage) SearchResponse {
	items := page.Items
	if items == nil {
		items = []domain.ScoredItem{}
	}

	return SearchResponse{
		Items:         items,
		NextPageToken: page.NextPageToken,
		TotalResults:  page.TotalResults,
	}
}

// HistoryItem is one saved search.
type HistoryItem struct {
	Query        string `json:"query"`
	ResultsCount int    `json:"resultsCount"`
	CreatedAt    string `json:"createdAt"`
}

// HistoryResponse lists the saved searches of the caller.
type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
}

// FromHistory converts history entries to HistoryResponse.
func FromHistory(entries []domain.SearchHistoryEntry) HistoryResponse {
	items := make([]HistoryItem, len(entries))
	for i, e := range entries {
		items[i] = HistoryItem{
			Query:        e.Query,
			ResultsCount: e.ResultsCount,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	return HistoryResponse{Items: items}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// RateLimitResponse is the body of a 429 answer. ResetTime is in unix
// milliseconds, zero when the caller has no history.
type RateLimitResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RemainingRequests int    `json:"remainingRequests"`
	ResetTime         int64  `json:"resetTime"`
}

// FromRateLimitError converts a domain.RateLimitError to RateLimitResponse.
func FromRateLimitError(e *domain.RateLimitError) RateLimitResponse {
	var reset int64
	if !e.ResetAt.IsZero() {
		reset = e.ResetAt.UnixMilli()
	}

	return RateLimitResponse{
		Error:             "Rate limit exceeded. Please try again later.",
		Code:              CodeRateLimited,
		RemainingRequests: e.Remaining,
		ResetTime:         reset,
	}
}
