// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"viral-search-service/internal/app/service"
	"viral-search-service/internal/domain"
	"viral-search-service/internal/ratelimit"
	"viral-search-service/internal/transport/httpserver/dto"
	"viral-search-service/internal/transport/httpserver/middleware"
	"viral-search-service/internal/validator"
)

// Cache-Control values of the API responses.
const (
	SearchCacheControl  = "public, max-age=120, s-maxage=300, stale-while-revalidate=3600"
	HistoryCacheControl = "private, no-store"
)

// Searcher runs searches and reads search history.
type Searcher interface {
	Search(ctx context.Context, q domain.SearchQuery, caller service.Caller) (*domain.ScoredPage, error)
	History(ctx context.Context, userID string, limit int) ([]domain.SearchHistoryEntry, error)
}

// SearchHandler handles search-related HTTP requests.
type SearchHandler struct {
	service   Searcher
	validator *validator.Validator
	now       func() time.Time
	logger    *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc Searcher, v *validator.Validator, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service:   svc,
		validator: v,
		now:       time.Now,
		logger:    logger,
	}
}

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	var req dto.SearchRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  dto.CodeValidation,
		})
	}

	if err := h.validator.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Code:    dto.CodeValidation,
			Details: err,
		})
	}

	q, err := req.ToSearchQuery()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: err.Error(),
			Code:  dto.CodeValidation,
		})
	}

	caller := service.Caller{
		Key:    ClientKey(c),
		UserID: middleware.UserID(c),
	}

	page, err := h.service.Search(c.UserContext(), q, caller)
	if err != nil {
		return h.searchError(c, err)
	}

	c.Set(fiber.HeaderCacheControl, SearchCacheControl)

	return c.JSON(dto.FromScoredPage(page))
}

func (h *SearchHandler) searchError(c *fiber.Ctx, err error) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "Query parameter is required",
			Code:  dto.CodeValidation,
		})
	}

	var rateErr *domain.RateLimitError
	if errors.As(err, &rateErr) {
		if !rateErr.ResetAt.IsZero() {
			secs := math.Ceil(rateErr.ResetAt.Sub(h.now()).Seconds())
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(1, int(secs))))
		}

		return c.Status(fiber.StatusTooManyRequests).JSON(dto.FromRateLimitError(rateErr))
	}

	h.logger.Error("search failed", zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: "Failed to search videos",
		Code:  dto.CodeInternal,
	})
}

// History handles GET /api/v1/history
func (h *SearchHandler) History(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, HistoryCacheControl)

	userID := middleware.UserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: "authentication required",
			Code:  dto.CodeUnauthorized,
		})
	}

	var req dto.HistoryRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid query parameters",
			Code:  dto.CodeValidation,
		})
	}
	if err := h.validator.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Code:    dto.CodeValidation,
			Details: err,
		})
	}

	entries, err := h.service.History(c.UserContext(), userID, req.Limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryUnavailable) {
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Error: "search history is not available",
				Code:  dto.CodeUnavailable,
			})
		}

		h.logger.Error("history failed", zap.String("user_id", userID), zap.Error(err))

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: "failed to load search history",
			Code:  dto.CodeInternal,
		})
	}

	return c.JSON(dto.FromHistory(entries))
}

// ClientKey returns the rate-limit key of the caller: the client address as
// resolved by the server's trusted proxy settings, else the anonymous key.
// Forwarding headers from untrusted peers are ignored. The key is copied
// because the limiter keeps it after the request ends.
func ClientKey(c *fiber.Ctx) string {
	ip := strings.TrimSpace(c.IP())
	if ip == "" {
		return ratelimit.AnonymousKey
	}

	return utils.CopyString(ip)
}
