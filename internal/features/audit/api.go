package audit

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) api.Route {
	return &AuditApi{
		controller: controller,
		config:     config,
	}
}

func (h *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit-logs", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", middleware.RequireRole(role.RoleAuditor), h.controller.ListLogs)
}
