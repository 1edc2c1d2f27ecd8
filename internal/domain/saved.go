package domain

import "time"

// SavedItem is an item a user bookmarked, joined with its publisher and the
// newest stored score. ScoredAt is nil when the item was never scored.
type SavedItem struct {
	Item
	Publisher      Publisher  `json:"channel"`
	ViralScore     int        `json:"viralScore"`
	Multiplier     float64    `json:"multiplier"`
	EngagementRate float64    `json:"engagementRate"`
	Potential      string     `json:"viralPotential,omitempty"`
	ScoredAt       *time.Time `json:"scoredAt,omitempty"`
	SavedAt        time.Time  `json:"savedAt"`
}
