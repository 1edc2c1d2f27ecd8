// Package domain contains the core business logic and entities.
// This package has no external dependencies (only stdlib).
package domain

import (
	"time"
)

// Thumbnail describes a preview image served by the catalog.
type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ItemMetrics holds the engagement counters of a single item.
type ItemMetrics struct {
	ViewCount    int64 `json:"viewCount"`
	LikeCount    int64 `json:"likeCount"`
	CommentCount int64 `json:"commentCount"`
}

// Item is a content item (video) as returned by the catalog.
// It is a per-request snapshot and is never mutated after normalization.
type Item struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	PublisherID string      `json:"channelId"`
	Tags        []string    `json:"tags,omitempty"`
	PublishedAt time.Time   `json:"publishedAt"`
	Thumbnail   Thumbnail   `json:"thumbnail"`
	Metrics     ItemMetrics `json:"statistics"`

	// DurationSeconds is nil when the catalog did not report a duration.
	// Zero is a valid duration.
	DurationSeconds *int64 `json:"duration,omitempty"`
}

// PublisherMetrics holds the aggregate counters of a publisher.
type PublisherMetrics struct {
	ViewCount       int64 `json:"viewCount"`
	SubscriberCount int64 `json:"subscriberCount"`
	ItemCount       int64 `json:"videoCount"`
}

// Publisher is the channel that published an item.
type Publisher struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Handle      string           `json:"customUrl,omitempty"`
	PublishedAt time.Time        `json:"publishedAt"`
	Thumbnail   Thumbnail        `json:"thumbnail"`
	Metrics     PublisherMetrics `json:"statistics"`
}

// AgeInDays returns the fractional number of days between publication and now.
// Items published in the future have an age of zero.
func (i *Item) AgeInDays(now time.Time) float64 {
	days := now.Sub(i.PublishedAt).Hours() / 24
	if days < 0 {
		return 0
	}

	return days
}

// UniquePublisherIDs returns the distinct publisher ids referenced by items,
// in first-seen order. Empty ids are skipped.
func UniquePublisherIDs(items []Item) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))

	for _, it := range items {
		if it.PublisherID == "" {
			continue
		}
		if _, ok := seen[it.PublisherID]; ok {
			continue
		}
		seen[it.PublisherID] = struct{}{}
		ids = append(ids, it.PublisherID)
	}

	return ids
}
