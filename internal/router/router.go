package router

import (
	"github.com/anonto42/dank-memes/backend/internal/handlers"
	"github.com/anonto42/dank-memes/backend/internal/logger"
	"github.com/anonto42/dank-memes/backend/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all application routes
func SetupRoutes(e *echo.Echo, events *handlers.EventHandler, signingSecret string) {
	e.Validator = handlers.NewValidator()

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)
	e.GET("/", handlers.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := e.Group("/events")
	g.Use(middleware.EventAuthMiddleware(signingSecret))
	events.RegisterEventRoutes(g)

	logger.Log.Info("All routes configured")
}
