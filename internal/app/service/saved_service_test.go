package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"viral-search-service/internal/domain"
)

type fakeSavedRepo struct {
	saved   map[string]bool
	items   []domain.SavedItem
	known   map[string]bool
	err     error
	lastArg struct {
		userID string
		itemID string
		limit  int
	}
}

func newFakeSavedRepo(known ...string) *fakeSavedRepo {
	r := &fakeSavedRepo{saved: map[string]bool{}, known: map[string]bool{}}
	for _, id := range known {
		r.known[id] = true
	}

	return r
}

func (r *fakeSavedRepo) SaveItem(_ context.Context, userID, itemID string) (bool, error) {
	r.lastArg.userID, r.lastArg.itemID = userID, itemID
	if r.err != nil {
		return false, r.err
	}
	if !r.known[itemID] {
		return false, fmt.Errorf("item %s: %w", itemID, domain.ErrNotFound)
	}

	key := userID + "/" + itemID
	if r.saved[key] {
		return false, nil
	}
	r.saved[key] = true

	return true, nil
}

func (r *fakeSavedRepo) RemoveSavedItem(_ context.Context, userID, itemID string) error {
	r.lastArg.userID, r.lastArg.itemID = userID, itemID
	delete(r.saved, userID+"/"+itemID)

	return r.err
}

func (r *fakeSavedRepo) SavedItems(_ context.Context, userID string, limit int) ([]domain.SavedItem, error) {
	r.lastArg.userID, r.lastArg.limit = userID, limit

	return r.items, r.err
}

func TestSavedService_Save(t *testing.T) {
	repo := newFakeSavedRepo("v1")
	svc := NewSavedService(repo, zap.NewNop())
	ctx := context.Background()

	created, err := svc.Save(ctx, "user-1", " v1 ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "v1", repo.lastArg.itemID, "id is trimmed")

	created, err = svc.Save(ctx, "user-1", "v1")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = svc.Save(ctx, "user-1", "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrInternal)
}

func TestSavedService_Validation(t *testing.T) {
	svc := NewSavedService(newFakeSavedRepo(), zap.NewNop())

	_, err := svc.Save(context.Background(), "user-1", "  ")
	var validationErr *domain.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "Video ID is required", validationErr.Message)

	err = svc.Remove(context.Background(), "user-1", "")
	assert.True(t, errors.As(err, &validationErr))
}

func TestSavedService_ListLimits(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{"default", 0, DefaultSavedLimit},
		{"explicit", 5, 5},
		{"clamped", 1000, MaxSavedLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeSavedRepo()
			repo.items = []domain.SavedItem{{Item: domain.Item{ID: "v1"}}}
			svc := NewSavedService(repo, zap.NewNop())

			items, err := svc.List(context.Background(), "user-1", tt.limit)
			require.NoError(t, err)
			assert.Len(t, items, 1)
			assert.Equal(t, tt.expected, repo.lastArg.limit)
			assert.Equal(t, "user-1", repo.lastArg.userID)
		})
	}
}

func TestSavedService_Remove(t *testing.T) {
	repo := newFakeSavedRepo("v1")
	svc := NewSavedService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Save(ctx, "user-1", "v1")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "user-1", "v1"))
	assert.Empty(t, repo.saved)
}

func TestSavedService_StoreErrors(t *testing.T) {
	repo := newFakeSavedRepo("v1")
	repo.err = errBoom
	svc := NewSavedService(repo, zap.NewNop())
	ctx := context.Background()

	_, err := svc.List(ctx, "user-1", 0)
	assert.ErrorIs(t, err, domain.ErrInternal)
	assert.ErrorIs(t, err, errBoom)

	_, err = svc.Save(ctx, "user-1", "v1")
	assert.ErrorIs(t, err, domain.ErrInternal)

	err = svc.Remove(ctx, "user-1", "v1")
	assert.ErrorIs(t, err, domain.ErrInternal)
}

func TestSavedService_Unavailable(t *testing.T) {
	svc := NewSavedService(nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.List(ctx, "user-1", 0)
	assert.ErrorIs(t, err, ErrSavedUnavailable)

	_, err = svc.Save(ctx, "user-1", "v1")
	assert.ErrorIs(t, err, ErrSavedUnavailable)

	err = svc.Remove(ctx, "user-1", "v1")
	assert.ErrorIs(t, err, ErrSavedUnavailable)
}
