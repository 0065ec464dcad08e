package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/tixit/internal/api/http/handlers"
	"github.com/spec-kit/tixit/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Google         *handlers.GoogleHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Policies       Policies
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api")

	authGroup := api.Group("/auth", cfg.RateLimiter.Limit(cfg.Policies.Auth))
	authGroup.Post("/signup", cfg.Auth.Signup)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/google", cfg.Google.Start)
	authGroup.Get("/google/callback", cfg.Google.Callback)
	authGroup.Post("/change-password", cfg.AuthMiddleware.RequireUser, cfg.Auth.ChangePassword)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.RateLimiter.Limit(cfg.Policies.TicketCreate), cfg.AuthMiddleware.OptionalUser, cfg.Tickets.Create)
	tickets.Get("/", cfg.RateLimiter.Limit(cfg.Policies.TicketList), cfg.Tickets.List)
}
