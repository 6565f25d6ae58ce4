package template

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateApi struct {
	controller *TemplateController
	config     *config.Config
}

func NewTemplateApi(controller *TemplateController, config *config.Config) api.Route {
	return &TemplateApi{
		controller: controller,
		config:     config,
	}
}

func (h *TemplateApi) Setup(app *fiber.App) {
	group := app.Group("/api/templates", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListTemplates)
	group.Get("/:id", h.controller.GetTemplate)

	// Template management is restricted to managers and above.
	group.Post("/", middleware.RequireRole(role.RoleManager), h.controller.CreateTemplate)
	group.Put("/:id", middleware.RequireRole(role.RoleManager), h.controller.UpdateTemplate)
	group.Delete("/:id", middleware.RequireRole(role.RoleManager), h.controller.DeleteTemplate)
}
