// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"viral-search-service/internal/metrics"
	"viral-search-service/internal/transport/httpserver/dto"
	"viral-search-service/internal/transport/httpserver/handler"
	"viral-search-service/internal/transport/httpserver/middleware"
	"viral-search-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port        int
	BodyLimit   int
	MetricsPath string // empty disables /metrics
	// ProxyHeader, when set, makes c.IP() read the client address from it.
	// Only requests arriving from TrustedProxies may set it.
	ProxyHeader    string
	TrustedProxies []string
}

// Dependencies are the collaborators the routes need.
type Dependencies struct {
	Search    handler.Searcher
	Saved     handler.SavedItems          // nil: no /api/v1/saved routes
	Identity  middleware.IdentityVerifier // nil: every caller is anonymous
	Readiness map[string]middleware.ReadinessCheck
	Validator *validator.Validator
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg ServerConfig, deps Dependencies, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "viral-search-service",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(logger),
		DisableStartupMessage: true,
		// Request strings are kept by the rate limiter and background jobs.
		Immutable: true,

		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxies,
		EnableIPValidation:      true,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(deps.Readiness, logger))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.OptionalIdentity(deps.Identity, logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.CORS())
	app.Use(compress.New())

	if cfg.MetricsPath != "" {
		app.Get(cfg.MetricsPath, adaptor.HTTPHandler(metrics.Handler()))
	}

	v := deps.Validator
	if v == nil {
		v = validator.New()
	}

	searchHandler := handler.NewSearchHandler(deps.Search, v, logger)

	var savedHandler *handler.SavedHandler
	if deps.Saved != nil {
		savedHandler = handler.NewSavedHandler(deps.Saved, v, logger)
	}

	registerRoutes(app, searchHandler, savedHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all API routes.
func registerRoutes(app *fiber.App, searchHandler *handler.SearchHandler, savedHandler *handler.SavedHandler) {
	// Health checks are handled by middleware (/livez, /readyz)

	v1 := app.Group("/api/v1")
	v1.Get("/search", searchHandler.Search)
	v1.Get("/history", searchHandler.History)

	if savedHandler != nil {
		v1.Get("/saved", savedHandler.List)
		v1.Post("/saved", savedHandler.Save)
		v1.Delete("/saved", savedHandler.Remove)
	}
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error: message,
			Code:  dto.CodeUnhandled,
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.ShutdownWithContext(ctx)
}
