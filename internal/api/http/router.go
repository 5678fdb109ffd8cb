package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamwatch/report-service/internal/api/http/handlers"
	"github.com/streamwatch/report-service/internal/auth"
	"github.com/streamwatch/report-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Reports        *handlers.ReportsHandler
	StaffReports   *handlers.StaffReportsHandler
	Moderation     *handlers.ModerationHandler
	Liveboard      *handlers.LiveboardHandler
	Staff          *handlers.StaffHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. The /reports group is called by the
// messaging gateway on behalf of reporters; the /staff group requires a
// staff token.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/staff/login", cfg.Staff.Login)

	reports := app.Group("/reports")
	reports.Post("/tv", cfg.Reports.SubmitTV)
	reports.Post("/vod", cfg.Reports.SubmitVOD)
	reports.Get("/:id", cfg.Reports.GetReport)
	reports.Post("/:id/reply", cfg.Reports.ReporterReply)

	staff := app.Group("/staff", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	staff.Get("/reports", cfg.StaffReports.ListActive)
	staff.Get("/reports/:id", cfg.StaffReports.GetReport)
	staff.Post("/reports/:id/actions", cfg.StaffReports.ApplyAction)

	staff.Get("/liveboard", cfg.Liveboard.Get)

	staff.Get("/blocks", cfg.Moderation.ListBlocks)
	staff.Post("/blocks", cfg.Moderation.CreateBlock)
	staff.Delete("/blocks/:reporterRef", cfg.Moderation.RemoveBlock)
	staff.Post("/settings/report-pings/toggle", cfg.Moderation.TogglePings)

	admin := staff.Group("", auth.RequireStaffRole(domain.StaffRoleAdmin))
	admin.Post("/members", cfg.Staff.CreateStaff)
}
