package report

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller *ReportController
	config     *config.Config
}

func NewReportApi(controller *ReportController, config *config.Config) api.Route {
	return &ReportApi{
		controller: controller,
		config:     config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	group := app.Group("/api/reports",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(role.RoleAuditor))

	group.Get("/", h.controller.ListReports)
	group.Get("/:id", h.controller.GetReport)
	group.Post("/", h.controller.CreateReport)
	group.Put("/:id", h.controller.UpdateReport)
	group.Delete("/:id", h.controller.DeleteReport)
	group.Post("/:id/run", h.controller.RunReport)
	group.Get("/:id/export", h.controller.ExportReport)

	schedules := app.Group("/api/report-schedules",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(role.RoleAuditor))

	schedules.Get("/", h.controller.ListSchedules)
	schedules.Post("/", h.controller.CreateSchedule)
	schedules.Delete("/:id", h.controller.DeleteSchedule)
}
