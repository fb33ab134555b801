package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atelier-boutique/support-service/internal/api/http/handlers"
	"github.com/atelier-boutique/support-service/internal/auth"
	"github.com/atelier-boutique/support-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Realtime       *handlers.RealtimeHandler
	AuthMiddleware *auth.Middleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/messages", cfg.Tickets.AppendMessage)
	tickets.Delete("/:id/messages/:messageId/attachments/:attachmentId", cfg.Tickets.RemoveAttachment)

	staff := app.Group("/staff/tickets", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	staff.Get("/", cfg.StaffTickets.List)
	staff.Put("/:id/status", cfg.StaffTickets.UpdateStatus)
	staff.Put("/:id/assign", cfg.StaffTickets.Assign)
	staff.Put("/:id/archive", cfg.StaffTickets.Archive)
	staff.Delete("/:id", cfg.StaffTickets.Delete)
	staff.Get("/:id/history", cfg.StaffTickets.History)

	app.Get("/ws", cfg.AuthMiddleware.Handle, cfg.Realtime.Upgrade, cfg.Realtime.Serve())
}
