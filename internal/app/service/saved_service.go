package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"viral-search-service/internal/domain"
)

// Saved item bounds.
const (
	DefaultSavedLimit = 50
	MaxSavedLimit     = 100
)

// ErrSavedUnavailable is returned when no store is configured.
var ErrSavedUnavailable = errors.New("saved items are not available")

// SavedService manages the items users bookmarked.
type SavedService struct {
	repo   domain.SavedItemRepository
	logger *zap.Logger
}

// NewSavedService creates a SavedService. A nil repo makes every call
// return ErrSavedUnavailable.
func NewSavedService(repo domain.SavedItemRepository, logger *zap.Logger) *SavedService {
	return &SavedService{
		repo:   repo,
		logger: logger,
	}
}

// List returns the newest bookmarks of userID.
func (s *SavedService) List(ctx context.Context, userID string, limit int) ([]domain.SavedItem, error) {
	if s.repo == nil {
		return nil, ErrSavedUnavailable
	}

	if limit <= 0 {
		limit = DefaultSavedLimit
	}
	if limit > MaxSavedLimit {
		limit = MaxSavedLimit
	}

	items, err := s.repo.SavedItems(ctx, userID, limit)
	if err != nil {
		return nil, s.internal("listing saved items", userID, err)
	}

	return items, nil
}

// Save bookmarks itemID. It reports false when it was already saved.
// Unknown items yield domain.ErrNotFound.
func (s *SavedService) Save(ctx context.Context, userID, itemID string) (bool, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return false, &domain.ValidationError{Message: "Video ID is required"}
	}
	if s.repo == nil {
		return false, ErrSavedUnavailable
	}

	created, err := s.repo.SaveItem(ctx, userID, itemID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if err != nil {
		return false, s.internal("saving item", userID, err)
	}

	s.logger.Debug("item saved",
		zap.String("user_id", userID),
		zap.String("item_id", itemID),
		zap.Bool("created", created),
	)

	return created, nil
}

// Remove deletes the bookmark of itemID, if any.
func (s *SavedService) Remove(ctx context.Context, userID, itemID string) error {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return &domain.ValidationError{Message: "Video ID is required"}
	}
	if s.repo == nil {
		return ErrSavedUnavailable
	}

	if err := s.repo.RemoveSavedItem(ctx, userID, itemID); err != nil {
		return s.internal("removing saved item", userID, err)
	}

	return nil
}

func (s *SavedService) internal(op, userID string, err error) error {
	s.logger.Error("saved items failed",
		zap.String("operation", op),
		zap.String("user_id", userID),
		zap.Error(err),
	)

	return fmt.Errorf("%w: %s: %w", domain.ErrInternal, op, err)
}
