package postgres

import (
	"time"

	"github.com/lib/pq"

	"viral-search-service/internal/domain"
)

// PublisherModel is the GORM model for the publishers table.
type PublisherModel struct {
	ID              string `gorm:"type:varchar(64);primaryKey"`
	Title           string `gorm:"type:varchar(500);not null"`
	Description     string `gorm:"type:text"`
	Handle          string `gorm:"type:varchar(200)"`
	PublishedAt     time.Time
	ThumbnailURL    string `gorm:"type:text"`
	ThumbnailWidth  int
	ThumbnailHeight int

	// Metrics
	ViewCount       int64 `gorm:"default:0"`
	SubscriberCount int64 `gorm:"default:0"`
	ItemCount       int64 `gorm:"default:0"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for PublisherModel.
func (PublisherModel) TableName() string {
	return "publishers"
}

// ToDomain converts PublisherModel to domain.Publisher.
func (m *PublisherModel) ToDomain() domain.Publisher {
	return domain.Publisher{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Handle:      m.Handle,
		PublishedAt: m.PublishedAt,
		Thumbnail: domain.Thumbnail{
			URL:    m.ThumbnailURL,
			Width:  m.ThumbnailWidth,
			Height: m.ThumbnailHeight,
		},
		Metrics: domain.PublisherMetrics{
			ViewCount:       m.ViewCount,
			SubscriberCount: m.SubscriberCount,
			ItemCount:       m.ItemCount,
		},
	}
}

// PublisherFromDomain creates a PublisherModel from domain.Publisher.
func PublisherFromDomain(p *domain.Publisher) *PublisherModel {
	return &PublisherModel{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		Handle:          p.Handle,
		PublishedAt:     p.PublishedAt,
		ThumbnailURL:    p.Thumbnail.URL,
		ThumbnailWidth:  p.Thumbnail.Width,
		ThumbnailHeight: p.Thumbnail.Height,
		ViewCount:       p.Metrics.ViewCount,
		SubscriberCount: p.Metrics.SubscriberCount,
		ItemCount:       p.Metrics.ItemCount,
	}
}

// ItemModel is the GORM model for the items table.
type ItemModel struct {
	ID              string         `gorm:"type:varchar(64);primaryKey"`
	PublisherID     string         `gorm:"type:varchar(64);not null;index"`
	Title           string         `gorm:"type:varchar(500);not null"`
	Description     string         `gorm:"type:text"`
	Tags            pq.StringArray `gorm:"type:text[]"`
	PublishedAt     time.Time      `gorm:"not null;index"`
	ThumbnailURL    string         `gorm:"type:text"`
	ThumbnailWidth  int
	ThumbnailHeight int

	// Metrics
	ViewCount       int64 `gorm:"default:0"`
	LikeCount       int64 `gorm:"default:0"`
	CommentCount    int64 `gorm:"default:0"`
	DurationSeconds *int64

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for ItemModel.
func (ItemModel) TableName() string {
	return "items"
}

// ToDomain converts ItemModel to domain.Item.
func (m *ItemModel) ToDomain() domain.Item {
	return domain.Item{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		PublisherID: m.PublisherID,
		Tags:        m.Tags,
		PublishedAt: m.PublishedAt,
		Thumbnail: domain.Thumbnail{
			URL:    m.ThumbnailURL,
			Width:  m.ThumbnailWidth,
			Height: m.ThumbnailHeight,
		},
		Metrics: domain.ItemMetrics{
			ViewCount:    m.ViewCount,
			LikeCount:    m.LikeCount,
			CommentCount: m.CommentCount,
		},
		DurationSeconds: m.DurationSeconds,
	}
}

// ItemFromDomain creates an ItemModel from domain.Item.
func ItemFromDomain(i *domain.Item) *ItemModel {
	return &ItemModel{
		ID:              i.ID,
		PublisherID:     i.PublisherID,
		Title:           i.Title,
		Description:     i.Description,
		Tags:            i.Tags,
		PublishedAt:     i.PublishedAt,
		ThumbnailURL:    i.Thumbnail.URL,
		ThumbnailWidth:  i.Thumbnail.Width,
		ThumbnailHeight: i.Thumbnail.Height,
		ViewCount:       i.Metrics.ViewCount,
		LikeCount:       i.Metrics.LikeCount,
		CommentCount:    i.Metrics.CommentCount,
		DurationSeconds: i.DurationSeconds,
	}
}

// ScoreSnapshotModel is one append-only row of the score_snapshots table.
type ScoreSnapshotModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	ItemID           string `gorm:"type:varchar(64);not null;index"`
	PublisherID      string `gorm:"type:varchar(64);not null"`
	ViralScore       int    `gorm:"not null"`
	Multiplier       float64
	EngagementRate   float64
	SubscriberImpact int
	ViewVelocity     int
	EngagementScore  int
	FreshnessBonus   int
	ViewCount        int64
	SubscriberCount  int64
	Potential        string    `gorm:"type:varchar(100)"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for ScoreSnapshotModel.
func (ScoreSnapshotModel) TableName() string {
	return "score_snapshots"
}

// SnapshotFromDomain captures the score of s under the given id.
func SnapshotFromDomain(id string, s *domain.ScoredItem) *ScoreSnapshotModel {
	return &ScoreSnapshotModel{
		ID:               id,
		ItemID:           s.ID,
		PublisherID:      s.PublisherID,
		ViralScore:       s.ViralScore,
		Multiplier:       s.Multiplier,
		EngagementRate:   s.EngagementRate,
		SubscriberImpact: s.Breakdown.SubscriberImpact,
		ViewVelocity:     s.Breakdown.ViewVelocity,
		EngagementScore:  s.Breakdown.EngagementScore,
		FreshnessBonus:   s.Breakdown.FreshnessBonus,
		ViewCount:        s.Metrics.ViewCount,
		SubscriberCount:  s.Publisher.Metrics.SubscriberCount,
		Potential:        s.Potential,
	}
}

// SearchHistoryModel is the GORM model for the search_history table.
type SearchHistoryModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	UserID       string    `gorm:"type:varchar(200);not null"`
	Query        string    `gorm:"type:text;not null"`
	ResultsCount int       `gorm:"not null;default:0"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for SearchHistoryModel.
func (SearchHistoryModel) TableName() string {
	return "search_history"
}

// ToDomain converts SearchHistoryModel to domain.SearchHistoryEntry.
func (m *SearchHistoryModel) ToDomain() domain.SearchHistoryEntry {
	return domain.SearchHistoryEntry{
		ID:           m.ID,
		UserID:       m.UserID,
		Query:        m.Query,
		ResultsCount: m.ResultsCount,
		CreatedAt:    m.CreatedAt,
	}
}

// SavedItemModel is the GORM model for the saved_items table.
type SavedItemModel struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	UserID    string    `gorm:"type:varchar(200);not null"`
	ItemID    string    `gorm:"type:varchar(64);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for SavedItemModel.
func (SavedItemModel) TableName() string {
	return "saved_items"
}
