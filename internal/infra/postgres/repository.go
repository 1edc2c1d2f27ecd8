package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"viral-search-service/internal/domain"
)

const batchSize = 100

// Repository implements domain.ScoreRepository using PostgreSQL.
type Repository struct {
	db *gorm.DB
}

var (
	_ domain.ScoreRepository     = (*Repository)(nil)
	_ domain.SavedItemRepository = (*Repository)(nil)
)

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertPublishers creates or updates publishers by id.
// When an id repeats, the last occurrence wins.
func (r *Repository) UpsertPublishers(ctx context.Context, publishers []domain.Publisher) error {
	if len(publishers) == 0 {
		return nil
	}

	models := make([]*PublisherModel, 0, len(publishers))
	for _, i := range lastByID(publishers, func(p *domain.Publisher) string { return p.ID }) {
		models = append(models, PublisherFromDomain(&publishers[i]))
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "description", "handle", "published_at",
			"thumbnail_url", "thumbnail_width", "thumbnail_height",
			"view_count", "subscriber_count", "item_count", "updated_at",
		}),
	}).CreateInBatches(models, batchSize).Error
	if err != nil {
		return fmt.Errorf("upserting publishers: %w", err)
	}

	return nil
}

// UpsertItems creates or updates items by id.
func (r *Repository) UpsertItems(ctx context.Context, items []domain.Item) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]*ItemModel, 0, len(items))
	for _, i := range lastByID(items, func(it *domain.Item) string { return it.ID }) {
		models = append(models, ItemFromDomain(&items[i]))
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"publisher_id", "title", "description", "tags", "published_at",
			"thumbnail_url", "thumbnail_width", "thumbnail_height",
			"view_count", "like_count", "comment_count", "duration_seconds", "updated_at",
		}),
	}).CreateInBatches(models, batchSize).Error
	if err != nil {
		return fmt.Errorf("upserting items: %w", err)
	}

	return nil
}

// InsertScores appends one snapshot per scored item.
func (r *Repository) InsertScores(ctx context.Context, scored []domain.ScoredItem) error {
	if len(scored) == 0 {
		return nil
	}

	models := make([]*ScoreSnapshotModel, len(scored))
	for i := range scored {
		models[i] = SnapshotFromDomain(uuid.NewString(), &scored[i])
	}

	if err := r.db.WithContext(ctx).CreateInBatches(models, batchSize).Error; err != nil {
		return fmt.Errorf("inserting score snapshots: %w", err)
	}

	return nil
}

// SaveSearch appends a history entry. A missing id is generated.
func (r *Repository) SaveSearch(ctx context.Context, entry domain.SearchHistoryEntry) error {
	model := &SearchHistoryModel{
		ID:           entry.ID,
		UserID:       entry.UserID,
		Query:        entry.Query,
		ResultsCount: entry.ResultsCount,
		CreatedAt:    entry.CreatedAt,
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("saving search: %w", err)
	}

	return nil
}

// RecentSearches returns the newest entries of userID, newest first.
func (r *Repository) RecentSearches(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error) {
	var models []SearchHistoryModel

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}

	entries := make([]domain.SearchHistoryEntry, len(models))
	for i := range models {
		entries[i] = models[i].ToDomain()
	}

	return entries, nil
}

// LatestScore returns the newest snapshot of an item, or nil if none exists.
func (r *Repository) LatestScore(ctx context.Context, itemID string) (*ScoreSnapshotModel, error) {
	var models []ScoreSnapshotModel

	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at DESC").
		Limit(1).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("getting latest score: %w", err)
	}
	if len(models) == 0 {
		return nil, nil
	}

	return &models[0], nil
}

// SaveItem bookmarks itemID for userID. It reports whether a new bookmark
// was created.
func (r *Repository) SaveItem(ctx context.Context, userID, itemID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&ItemModel{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking item: %w", err)
	}
	if count == 0 {
		return false, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}},
		DoNothing: true,
	}).Create(&SavedItemModel{
		ID:     uuid.NewString(),
		UserID: userID,
		ItemID: itemID,
	})
	if res.Error != nil {
		return false, fmt.Errorf("saving item: %w", res.Error)
	}

	return res.RowsAffected == 1, nil
}

// RemoveSavedItem deletes the bookmark of itemID for userID, if any.
func (r *Repository) RemoveSavedItem(ctx context.Context, userID, itemID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Delete(&SavedItemModel{}).Error
	if err != nil {
		return fmt.Errorf("removing saved item: %w", err)
	}

	return nil
}

// SavedItems returns the newest bookmarks of userID, newest first, joined
// with the stored item, its publisher and the latest score snapshot.
func (r *Repository) SavedItems(ctx context.Context, userID string, limit int) ([]domain.SavedItem, error) {
	var saved []SavedItemModel

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&saved).Error
	if err != nil {
		return nil, fmt.Errorf("listing saved items: %w", err)
	}
	if len(saved) == 0 {
		return []domain.SavedItem{}, nil
	}

	itemIDs := make([]string, len(saved))
	for i := range saved {
		itemIDs[i] = saved[i].ItemID
	}

	var items []ItemModel
	if err := r.db.WithContext(ctx).Where("id IN ?", itemIDs).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("loading saved items: %w", err)
	}

	itemsByID := make(map[string]*ItemModel, len(items))
	publisherIDs := make([]string, 0, len(items))
	for i := range items {
		itemsByID[items[i].ID] = &items[i]
		publisherIDs = append(publisherIDs, items[i].PublisherID)
	}

	var publishers []PublisherModel
	if err := r.db.WithContext(ctx).Where("id IN ?", publisherIDs).Find(&publishers).Error; err != nil {
		return nil, fmt.Errorf("loading saved item publishers: %w", err)
	}

	publishersByID := make(map[string]*PublisherModel, len(publishers))
	for i := range publishers {
		publishersByID[publishers[i].ID] = &publishers[i]
	}

	out := make([]domain.SavedItem, 0, len(saved))
	for i := range saved {
		item, ok := itemsByID[saved[i].ItemID]
		if !ok {
			continue
		}
		publisher, ok := publishersByID[item.PublisherID]
		if !ok {
			continue
		}

		entry := domain.SavedItem{
			Item:      item.ToDomain(),
			Publisher: publisher.ToDomain(),
			SavedAt:   saved[i].CreatedAt,
		}

		snapshot, err := r.LatestScore(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			scoredAt := snapshot.CreatedAt
			entry.ViralScore = snapshot.ViralScore
			entry.Multiplier = snapshot.Multiplier
			entry.EngagementRate = snapshot.EngagementRate
			entry.Potential = snapshot.Potential
			entry.ScoredAt = &scoredAt
		}

		out = append(out, entry)
	}

	return out, nil
}

// lastByID returns the indexes of the last occurrence of every id in
// first-seen order. A single upsert statement may not touch a row twice.
func lastByID[T any](rows []T, id func(*T) string) []int {
	last := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))

	for i := range rows {
		key := id(&rows[i])
		if _, ok := last[key]; !ok {
			order = append(order, key)
		}
		last[key] = i
	}

	idx := make([]int, len(order))
	for i, key := range order {
		idx[i] = last[key]
	}

	return idx
}
