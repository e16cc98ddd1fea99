package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	"github.com/spec-kit/ticket-portal/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Notifications  *handlers.NotificationsHandler
	Settings       *handlers.SettingsHandler
	Pending        *handlers.PendingHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        http.Handler
	RateLimit      fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	limit := cfg.RateLimit
	if limit == nil {
		limit = func(c *fiber.Ctx) error { return c.Next() }
	}

	app.Post("/tickets", limit, cfg.Tickets.CreateTicket)

	notifications := app.Group("/notifications")
	notifications.Post("/send", limit, cfg.Notifications.Send)
	notifications.Post("/resend", limit, cfg.Notifications.Resend)
	notifications.Get("/status", cfg.Notifications.Status)
	notifications.Get("/diagnostics", cfg.Notifications.Diagnostics)

	app.Post("/auth/admin/login", limit, cfg.Auth.Login)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Get("/tickets", cfg.Tickets.ListTickets)
	admin.Get("/tickets/:id", cfg.Tickets.GetTicket)
	admin.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)

	admin.Get("/settings/email", cfg.Settings.GetEmailSettings)
	admin.Put("/settings/email", cfg.Settings.SaveEmailSettings)
	admin.Get("/country-managers", cfg.Settings.ListCountryManagers)
	admin.Put("/country-managers/:country", cfg.Settings.UpsertCountryManager)
	admin.Delete("/country-managers/:country", cfg.Settings.DeleteCountryManager)

	admin.Get("/notifications/pending", cfg.Pending.List)
	admin.Patch("/notifications/:id", cfg.Pending.Update)
}
