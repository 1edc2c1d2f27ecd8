package domain

import (
	"sort"
	"time"
)

// SortKey is the ranking criterion requested by the caller.
type SortKey string

const (
	SortRelevance  SortKey = "relevance"
	SortDate       SortKey = "date"
	SortViewCount  SortKey = "viewCount"
	SortRating     SortKey = "rating"
	SortViralScore SortKey = "viralScore"
)

// SortOrder represents the sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// DurationBucket is an upstream duration hint. It is advisory only.
type DurationBucket string

const (
	DurationAny    DurationBucket = "any"
	DurationShort  DurationBucket = "short"
	DurationMedium DurationBucket = "medium"
	DurationLong   DurationBucket = "long"
)

// Search bounds.
const (
	DefaultMaxResults = 20
	MaxMaxResults     = 50
)

// SearchOptions are hints forwarded to the catalog search call.
type SearchOptions struct {
	SortBy         SortKey
	PublishedAfter *time.Time
	Duration       DurationBucket
}

// UpstreamOrder returns the sort order the catalog understands.
// The catalog has no notion of viral score, so view count is used as a proxy.
func (o SearchOptions) UpstreamOrder() string {
	if o.SortBy == SortViralScore {
		return string(SortViewCount)
	}

	return string(o.SortBy)
}

// FilterCriteria holds optional bounds applied after scoring.
// A nil bound imposes no constraint.
type FilterCriteria struct {
	MinSubscribers *int64
	MaxSubscribers *int64
	MinViews       *int64
	MaxViews       *int64
}

// Matches reports whether a scored item satisfies every bound that is set.
func (f FilterCriteria) Matches(s *ScoredItem) bool {
	subs := s.Publisher.Metrics.SubscriberCount
	views := s.Metrics.ViewCount

	if f.MinSubscribers != nil && subs < *f.MinSubscribers {
		return false
	}
	if f.MaxSubscribers != nil && subs > *f.MaxSubscribers {
		return false
	}
	if f.MinViews != nil && views < *f.MinViews {
		return false
	}
	if f.MaxViews != nil && views > *f.MaxViews {
		return false
	}

	return true
}

// Apply returns the items matching f, preserving order.
func (f FilterCriteria) Apply(items []ScoredItem) []ScoredItem {
	out := make([]ScoredItem, 0, len(items))
	for i := range items {
		if f.Matches(&items[i]) {
			out = append(out, items[i])
		}
	}

	return out
}

// SearchQuery is a validated search request.
type SearchQuery struct {
	Query      string
	PageToken  string
	MaxResults int
	Options    SearchOptions
	Order      SortOrder
	Filter     FilterCriteria
}

// Normalize applies defaults and bound correction.
func (q *SearchQuery) Normalize() {
	if q.MaxResults < 1 {
		q.MaxResults = DefaultMaxResults
	}
	if q.MaxResults > MaxMaxResults {
		q.MaxResults = MaxMaxResults
	}
	if q.Options.SortBy == "" {
		q.Options.SortBy = SortViralScore
	}
	if q.Order == "" {
		q.Order = SortOrderDesc
	}
}

// SearchPage is one page of catalog hits with full metrics.
type SearchPage struct {
	Items         []Item `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
	TotalResults  int64  `json:"totalResults"`
}

// ScoredPage is the search response.
type ScoredPage struct {
	Items         []ScoredItem `json:"items"`
	NextPageToken string       `json:"nextPageToken,omitempty"`
	TotalResults  int64        `json:"totalResults"`
}

// SortItems orders items in place by key and order.
// The sort is stable: ties keep their upstream order. SortRelevance keeps
// the upstream order entirely.
func SortItems(items []ScoredItem, key SortKey, order SortOrder) {
	var less func(a, b *ScoredItem) bool

	switch key {
	case SortRelevance:
		return
	case SortViewCount:
		less = func(a, b *ScoredItem) bool { return a.Metrics.ViewCount < b.Metrics.ViewCount }
	case SortDate:
		less = func(a, b *ScoredItem) bool { return a.PublishedAt.Before(b.PublishedAt) }
	case SortRating:
		less = func(a, b *ScoredItem) bool { return a.EngagementRate < b.EngagementRate }
	default:
		less = func(a, b *ScoredItem) bool { return a.ViralScore < b.ViralScore }
	}

	sort.SliceStable(items, func(i, j int) bool {
		if order == SortOrderAsc {
			return less(&items[i], &items[j])
		}

		return less(&items[j], &items[i])
	})
}

// SearchHistoryEntry is a saved search of an identified caller.
type SearchHistoryEntry struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"resultsCount"`
	CreatedAt    time.Time `json:"createdAt"`
}
