// Package api exposes the persisted status document over HTTP for the
// dashboard and CI. Every route is read-only.
package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/macadmins/sofa-status/internal/domain"
	"github.com/macadmins/sofa-status/internal/health"
	"github.com/macadmins/sofa-status/internal/manifest"
	"github.com/macadmins/sofa-status/internal/middleware"
)

// RouterConfig contains configuration for the HTTP router.
type RouterConfig struct {
	CORSOrigins    []string
	RateLimitRPS   int
	RateLimitBurst int
}

// RouterResult contains the configured app and cleanup function.
type RouterResult struct {
	App     *fiber.App
	Cleanup func()
}

// SetupRouter creates and configures the Fiber app with all routes and
// middleware.
func SetupRouter(store *manifest.Store, checker *health.Checker, config RouterConfig) *RouterResult {
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	handlers := NewHandlers(store, checker)

	// Middleware pipeline (order is critical)

	// 1. RequestID middleware for UUID generation
	app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return uuid.New().String()
		},
	}))

	// 2. Structured logging middleware with zerolog
	app.Use(structuredLoggingMiddleware())

	// 3. Panic recovery middleware with stack trace logging
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			requestID := ""
			if rid, ok := c.Locals("requestid").(string); ok {
				requestID = rid
			}
			log.Error().
				Str("request_id", requestID).
				Interface("panic", e).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("Panic recovered")
		},
	}))

	// 4. Security headers middleware
	app.Use(securityHeadersMiddleware())

	// 5. Rate limiting middleware (before CORS to limit all requests)
	var stopRateLimiter func()
	if config.RateLimitRPS > 0 {
		rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
		stopRateLimiter = rateLimiter.StartCleanupRoutine()
		app.Use(rateLimiter.Middleware())
	}

	// 6. CORS middleware with origin restrictions
	if len(config.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.Join(config.CORSOrigins, ","),
			AllowMethods:     "GET,OPTIONS",
			AllowHeaders:     "Origin,Content-Type,Accept,X-Request-ID",
			AllowCredentials: false,
			MaxAge:           86400, // 24 hours
		}))
	}

	// API routes (read-only)
	v1 := app.Group("/v1")
	v1.Get("/status", handlers.StatusHandler)
	v1.Get("/status/:stage", handlers.StageHandler)
	v1.Get("/changes", handlers.ChangesHandler)

	app.Get("/health", handlers.HealthHandler)

	cleanup := func() {
		if stopRateLimiter != nil {
			stopRateLimiter()
		}
	}

	return &RouterResult{App: app, Cleanup: cleanup}
}

// customErrorHandler handles Fiber framework errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	switch code {
	case fiber.StatusNotFound:
		return c.Status(404).JSON(ErrorResponse{
			Status:  "error",
			Code:    domain.ErrNotFound,
			Message: message,
		})
	case fiber.StatusBadRequest:
		return c.Status(400).JSON(ErrorResponse{
			Status:  "error",
			Code:    domain.ErrInvalidInput,
			Message: message,
		})
	default:
		return c.Status(code).JSON(ErrorResponse{
			Status:  "error",
			Code:    domain.ErrInternal,
			Message: message,
		})
	}
}

// structuredLoggingMiddleware creates structured JSON logging middleware
// with zerolog.
func structuredLoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		requestID := "unknown"
		if rid, ok := c.Locals("requestid").(string); ok {
			requestID = rid
		}

		latency := time.Since(start)
		status := c.Response().StatusCode()

		logEvent := log.Info()
		if status >= 400 {
			logEvent = log.Error()
		}

		logEvent.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", latency).
			Str("ip", c.IP()).
			Int("response_size", len(c.Response().Body())).
			Msg("HTTP request processed")

		return err
	}
}

// securityHeadersMiddleware adds security headers.
func securityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")

		return c.Next()
	}
}
