package archive

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ArchiveApi struct {
	controller *ArchiveController
	config     *config.Config
}

func NewArchiveApi(controller *ArchiveController, config *config.Config) api.Route {
	return &ArchiveApi{
		controller: controller,
		config:     config,
	}
}

func (h *ArchiveApi) Setup(app *fiber.App) {
	group := app.Group("/api/archive",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(role.RoleAdmin))

	group.Post("/run", h.controller.Run)
	group.Get("/runs", h.controller.ListRuns)
}
