package approval

import (
	"strconv"

	"go-grc/internal/common/apperr"
	"go-grc/internal/features/role"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ApprovalController struct {
	Service ApprovalService
}

func NewApprovalController(service ApprovalService) *ApprovalController {
	return &ApprovalController{Service: service}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

func actorFrom(ctx *fiber.Ctx) (Actor, error) {
	claims, ok := middleware.Claims(ctx)
	if !ok {
		return Actor{}, apperr.Authorization("missing authentication claims")
	}
	r, err := role.Parse(claims.Role)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: claims.UserID, Role: r}, nil
}

// StartWorkflow godoc
// @Summary Start an approval workflow for an entity
// @Tags approvals
// @Accept json
// @Produce json
// @Param request body StartWorkflowInput true "Entity and template"
// @Success 201 {object} ApprovalRequest
// @Failure 400 {object} map[string]string "Invalid input or inactive template"
// @Failure 409 {object} map[string]string "Entity already has an approval in progress"
// @Router /api/approvals [post]
func (c *ApprovalController) StartWorkflow(ctx *fiber.Ctx) error {
	var input StartWorkflowInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	actor, err := actorFrom(ctx)
	if err != nil {
		return respondErr(ctx, err)
	}

	req, err := c.Service.StartWorkflow(ctx.UserContext(), actor, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(req)
}

func (c *ApprovalController) decision(ctx *fiber.Ctx, fn func(actor Actor, id string, input DecisionInput) error) error {
	var input DecisionInput
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&input); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	actor, err := actorFrom(ctx)
	if err != nil {
		return respondErr(ctx, err)
	}

	if err := fn(actor, ctx.Params("id"), input); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(fiber.Map{"message": "ok"})
}

// Approve godoc
// @Summary Approve the current step of an approval request
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body DecisionInput false "Comment and optional expected step"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Actor does not satisfy the assignee constraint"
// @Failure 409 {object} map[string]string "Step already resolved or instance terminal"
// @Router /api/approvals/{id}/approve [post]
func (c *ApprovalController) Approve(ctx *fiber.Ctx) error {
	return c.decision(ctx, func(actor Actor, id string, input DecisionInput) error {
		return c.Service.Approve(ctx.UserContext(), actor, id, input)
	})
}

// Reject godoc
// @Summary Reject the current step, terminating the approval request
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body DecisionInput false "Comment and optional expected step"
// @Success 200 {object} map[string]string
// @Router /api/approvals/{id}/reject [post]
func (c *ApprovalController) Reject(ctx *fiber.Ctx) error {
	return c.decision(ctx, func(actor Actor, id string, input DecisionInput) error {
		return c.Service.Reject(ctx.UserContext(), actor, id, input)
	})
}

// RequestRevision godoc
// @Summary Send the approval request back to its requester for revision
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body DecisionInput false "Comment and optional expected step"
// @Success 200 {object} map[string]string
// @Router /api/approvals/{id}/request-revision [post]
func (c *ApprovalController) RequestRevision(ctx *fiber.Ctx) error {
	return c.decision(ctx, func(actor Actor, id string, input DecisionInput) error {
		return c.Service.RequestRevision(ctx.UserContext(), actor, id, input)
	})
}

// SkipStep godoc
// @Summary Skip the current step (non-required steps only)
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body DecisionInput false "Comment and optional expected step"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Step is required"
// @Router /api/approvals/{id}/skip [post]
func (c *ApprovalController) SkipStep(ctx *fiber.Ctx) error {
	return c.decision(ctx, func(actor Actor, id string, input DecisionInput) error {
		return c.Service.SkipStep(ctx.UserContext(), actor, id, input)
	})
}

// Resubmit godoc
// @Summary Resubmit a revision_required approval request for re-review
// @Tags approvals
// @Accept json
// @Produce json
// @Param id path string true "Approval request ID"
// @Param decision body DecisionInput false "Comment"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Only the requester can resubmit"
// @Router /api/approvals/{id}/resubmit [post]
func (c *ApprovalController) Resubmit(ctx *fiber.Ctx) error {
	return c.decision(ctx, func(actor Actor, id string, input DecisionInput) error {
		return c.Service.Resubmit(ctx.UserContext(), actor, id, input.Comments)
	})
}

// ListInstances godoc
// @Summary List approval requests
// @Tags approvals
// @Produce json
// @Param entity_type query string false "Entity type filter"
// @Param status query string false "Status filter"
// @Success 200 {array} ApprovalRequest
// @Router /api/approvals [get]
func (c *ApprovalController) ListInstances(ctx *fiber.Ctx) error {
	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)

	requests, total, err := c.Service.ListInstances(ctx.UserContext(), ListFilter{
		EntityType: ctx.Query("entity_type"),
		Status:     ctx.Query("status"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data":  requests,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetInstance godoc
// @Summary Get an approval request with its steps and action history
// @Tags approvals
// @Produce json
// @Param id path string true "Approval request ID"
// @Success 200 {object} InstanceDetail
// @Failure 404 {object} map[string]string "Approval request not found"
// @Router /api/approvals/{id} [get]
func (c *ApprovalController) GetInstance(ctx *fiber.Ctx) error {
	detail, err := c.Service.GetInstance(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(detail)
}

// ListActions godoc
// @Summary List the chronological action log of an approval request
// @Tags approvals
// @Produce json
// @Param id path string true "Approval request ID"
// @Success 200 {array} ApprovalActionLog
// @Router /api/approvals/{id}/actions [get]
func (c *ApprovalController) ListActions(ctx *fiber.Ctx) error {
	actions, err := c.Service.ListActions(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(actions)
}

// ListMyTasks godoc
// @Summary List pending steps actionable by the caller
// @Tags approvals
// @Produce json
// @Success 200 {array} PendingTask
// @Router /api/approvals/my-tasks [get]
func (c *ApprovalController) ListMyTasks(ctx *fiber.Ctx) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return respondErr(ctx, err)
	}

	tasks, err := c.Service.ListMyPendingSteps(ctx.UserContext(), actor)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(tasks)
}
