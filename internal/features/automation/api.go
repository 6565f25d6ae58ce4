package automation

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AutomationApi struct {
	controller *AutomationController
	config     *config.Config
}

func NewAutomationApi(controller *AutomationController, config *config.Config) api.Route {
	return &AutomationApi{
		controller: controller,
		config:     config,
	}
}

func (h *AutomationApi) Setup(app *fiber.App) {
	// Rules run arbitrary scripts and webhooks; administration only.
	group := app.Group("/api/automation-rules",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(role.RoleAdmin))

	group.Get("/", h.controller.ListRules)
	group.Get("/:id", h.controller.GetRule)
	group.Post("/", h.controller.CreateRule)
	group.Put("/:id", h.controller.UpdateRule)
	group.Delete("/:id", h.controller.DeleteRule)
}
