package domain

import (
	"context"
	"time"
)

// CatalogGateway fetches items and publishers from the external catalog.
// Implementations: internal/infra/catalog/client.go
type CatalogGateway interface {
	// Search runs a paginated search and returns hits with full metrics.
	Search(ctx context.Context, query string, maxResults int, pageToken string, opts SearchOptions) (*SearchPage, error)

	// GetPublishers fetches publishers by id. Unknown ids are omitted.
	GetPublishers(ctx context.Context, ids []string) ([]Publisher, error)
}

// ScoreRepository persists search results and history.
// Implementations: internal/infra/postgres/repository.go
type ScoreRepository interface {
	// UpsertPublishers creates or updates publishers by id.
	UpsertPublishers(ctx context.Context, publishers []Publisher) error

	// UpsertItems creates or updates items by id.
	// Referenced publishers must already exist.
	UpsertItems(ctx context.Context, items []Item) error

	// InsertScores appends score snapshots for already stored items.
	InsertScores(ctx context.Context, scored []ScoredItem) error

	// SaveSearch appends a history entry.
	SaveSearch(ctx context.Context, entry SearchHistoryEntry) error

	// RecentSearches returns the newest history entries of a user.
	RecentSearches(ctx context.Context, userID string, limit int) ([]SearchHistoryEntry, error)
}

// SavedItemRepository stores the items users bookmarked.
// Implementations: internal/infra/postgres/repository.go
type SavedItemRepository interface {
	// SaveItem bookmarks a stored item for userID. It reports false when the
	// bookmark already existed and returns ErrNotFound for unknown items.
	SaveItem(ctx context.Context, userID, itemID string) (bool, error)

	// RemoveSavedItem deletes a bookmark. A missing bookmark is not an error.
	RemoveSavedItem(ctx context.Context, userID, itemID string) error

	// SavedItems returns the newest bookmarks of userID with their items,
	// publishers and latest scores.
	SavedItems(ctx context.Context, userID string, limit int) ([]SavedItem, error)
}

// Cache defines the interface for caching operations.
// Implementations: internal/infra/redis/cache.go
type Cache interface {
	// Get retrieves a value by key. Returns nil if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// GetMany retrieves several keys at once. The result is aligned with
	// keys; missing keys yield nil.
	GetMany(ctx context.Context, keys []string) ([][]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SearchEvent describes a completed search.
type SearchEvent struct {
	Query       string    `json:"query"`
	UserID      string    `json:"userId,omitempty"`
	ResultCount int       `json:"resultCount"`
	TopItemIDs  []string  `json:"topItemIds"`
	At          time.Time `json:"at"`
}

// EventPublisher announces completed searches.
// Implementations: internal/infra/events/nats.go
type EventPublisher interface {
	PublishSearch(ctx context.Context, event SearchEvent) error
}
