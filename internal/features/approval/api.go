package approval

import (
	"go-grc/internal/common/api"
	"go-grc/internal/config"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ApprovalApi struct {
	controller *ApprovalController
	config     *config.Config
}

func NewApprovalApi(controller *ApprovalController, config *config.Config) api.Route {
	return &ApprovalApi{
		controller: controller,
		config:     config,
	}
}

func (h *ApprovalApi) Setup(app *fiber.App) {
	group := app.Group("/api/approvals", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.ListInstances)
	group.Get("/my-tasks", h.controller.ListMyTasks)
	group.Get("/:id", h.controller.GetInstance)
	group.Get("/:id/actions", h.controller.ListActions)

	group.Post("/", h.controller.StartWorkflow)

	// Authorization for decisions is per-step (assignee role or pinned
	// user), enforced in the service, not by a route-level role gate.
	group.Post("/:id/approve", h.controller.Approve)
	group.Post("/:id/reject", h.controller.Reject)
	group.Post("/:id/request-revision", h.controller.RequestRevision)
	group.Post("/:id/skip", h.controller.SkipStep)
	group.Post("/:id/resubmit", h.controller.Resubmit)
}
