package dto

import (
	"viral-search-service/internal/domain"
)

// SavedListRequest represents the query parameters of GET /api/v1/saved.
type SavedListRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// SaveItemRequest is the body of POST /api/v1/saved.
// A blank videoId is rejected by the service.
type SaveItemRequest struct {
	VideoID string `json:"videoId" validate:"max=64"`
}

// RemoveItemRequest represents the query parameters of DELETE /api/v1/saved.
type RemoveItemRequest struct {
	VideoID string `query:"videoId" validate:"max=64"`
}

// SavedItemsResponse lists the bookmarks of the caller.
type SavedItemsResponse struct {
	Items []domain.SavedItem `json:"items"`
}

// FromSavedItems converts saved items to SavedItemsResponse.
func FromSavedItems(items []domain.SavedItem) SavedItemsResponse {
	if items == nil {
		items = []domain.SavedItem{}
	}

	return SavedItemsResponse{Items: items}
}

// MessageResponse is the body of a successful write without payload.
type MessageResponse struct {
	Message string `json:"message"`
}
