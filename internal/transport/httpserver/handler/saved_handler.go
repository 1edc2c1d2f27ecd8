package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"viral-search-service/internal/app/service"
	"viral-search-service/internal/domain"
	"viral-search-service/internal/transport/httpserver/dto"
	"viral-search-service/internal/transport/httpserver/middleware"
	"viral-search-service/internal/validator"
)

// SavedCacheControl is the Cache-Control value of saved item responses.
const SavedCacheControl = "private, no-store"

// SavedItems manages the bookmarks of a user.
type SavedItems interface {
	List(ctx context.Context, userID string, limit int) ([]domain.SavedItem, error)
	Save(ctx context.Context, userID, itemID string) (bool, error)
	Remove(ctx context.Context, userID, itemID string) error
}

// SavedHandler handles the saved items endpoints.
type SavedHandler struct {
	service   SavedItems
	validator *validator.Validator
	logger    *zap.Logger
}

// NewSavedHandler creates a new SavedHandler.
func NewSavedHandler(svc SavedItems, v *validator.Validator, logger *zap.Logger) *SavedHandler {
	return &SavedHandler{
		service:   svc,
		validator: v,
		logger:    logger,
	}
}

// List handles GET /api/v1/saved
func (h *SavedHandler) List(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, SavedCacheControl)

	userID := middleware.UserID(c)
	if userID == "" {
		return unauthorized(c)
	}

	var req dto.SavedListRequest
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, "invalid query parameters", nil)
	}
	if err := h.validator.Validate(&req); err != nil {
		return badRequest(c, "validation failed", err)
	}

	items, err := h.service.List(c.UserContext(), userID, req.Limit)
	if err != nil {
		return h.savedError(c, userID, err, "failed to fetch saved videos")
	}

	return c.JSON(dto.FromSavedItems(items))
}

// Save handles POST /api/v1/saved
func (h *SavedHandler) Save(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, SavedCacheControl)

	userID := middleware.UserID(c)
	if userID == "" {
		return unauthorized(c)
	}

	var req dto.SaveItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body", nil)
	}
	if err := h.validator.Validate(&req); err != nil {
		return badRequest(c, "validation failed", err)
	}

	created, err := h.service.Save(c.UserContext(), userID, req.VideoID)
	if err != nil {
		return h.savedError(c, userID, err, "failed to save video")
	}

	if !created {
		return c.JSON(dto.MessageResponse{Message: "Video already saved"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.MessageResponse{Message: "Video saved successfully"})
}

// Remove handles DELETE /api/v1/saved?videoId=
func (h *SavedHandler) Remove(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, SavedCacheControl)

	userID := middleware.UserID(c)
	if userID == "" {
		return unauthorized(c)
	}

	var req dto.RemoveItemRequest
	if err := c.QueryParser(&req); err != nil {
		return badRequest(c, "invalid query parameters", nil)
	}
	if err := h.validator.Validate(&req); err != nil {
		return badRequest(c, "validation failed", err)
	}

	if err := h.service.Remove(c.UserContext(), userID, req.VideoID); err != nil {
		return h.savedError(c, userID, err, "failed to remove video")
	}

	return c.JSON(dto.MessageResponse{Message: "Video removed successfully"})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: "authentication required",
		Code:  dto.CodeUnauthorized,
	})
}

func (h *SavedHandler) savedError(c *fiber.Ctx, userID string, err error, message string) error {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return badRequest(c, validationErr.Message, nil)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "video not found",
			Code:  dto.CodeNotFound,
		})
	case errors.Is(err, service.ErrSavedUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: "saved videos are not available",
			Code:  dto.CodeUnavailable,
		})
	}

	h.logger.Error("saved items request failed", zap.String("user_id", userID), zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: message,
		Code:  dto.CodeInternal,
	})
}

func badRequest(c *fiber.Ctx, message string, details error) error {
	resp := dto.ErrorResponse{
		Error: message,
		Code:  dto.CodeValidation,
	}
	if details != nil {
		resp.Details = details
	}

	return c.Status(fiber.StatusBadRequest).JSON(resp)
}
