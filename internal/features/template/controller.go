package template

import (
	"strconv"

	"go-grc/internal/common/apperr"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TemplateController struct {
	Service TemplateService
}

func NewTemplateController(service TemplateService) *TemplateController {
	return &TemplateController{Service: service}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// ListTemplates godoc
// @Summary List workflow templates
// @Tags templates
// @Produce json
// @Param entity_type query string false "Entity type filter"
// @Param search query string false "Name substring (case-insensitive)"
// @Success 200 {array} WorkflowTemplate
// @Router /api/templates [get]
func (c *TemplateController) ListTemplates(ctx *fiber.Ctx) error {
	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)

	templates, total, err := c.Service.ListTemplates(ctx.UserContext(), ListFilter{
		EntityType: ctx.Query("entity_type"),
		Search:     ctx.Query("search"),
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return respondErr(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data":  templates,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetTemplate godoc
// @Summary Get a workflow template with its ordered steps
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} WorkflowTemplate
// @Failure 404 {object} map[string]string "Template not found"
// @Router /api/templates/{id} [get]
func (c *TemplateController) GetTemplate(ctx *fiber.Ctx) error {
	tmpl, err := c.Service.GetTemplate(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(tmpl)
}

// CreateTemplate godoc
// @Summary Create a workflow template
// @Tags templates
// @Accept json
// @Produce json
// @Param template body CreateTemplateInput true "Template"
// @Success 201 {object} WorkflowTemplate
// @Failure 400 {object} map[string]string "Invalid payload"
// @Router /api/templates [post]
func (c *TemplateController) CreateTemplate(ctx *fiber.Ctx) error {
	var input CreateTemplateInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	tmpl, err := c.Service.CreateTemplate(ctx.UserContext(), claims.UserID, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(tmpl)
}

// UpdateTemplate godoc
// @Summary Update a workflow template
// @Description Partial update of scalar fields; supplying steps replaces the list wholesale
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body UpdateTemplateInput true "Fields to update"
// @Success 200 {object} WorkflowTemplate
// @Router /api/templates/{id} [put]
func (c *TemplateController) UpdateTemplate(ctx *fiber.Ctx) error {
	var input UpdateTemplateInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	tmpl, err := c.Service.UpdateTemplate(ctx.UserContext(), claims.UserID, ctx.Params("id"), input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(tmpl)
}

// DeleteTemplate godoc
// @Summary Delete a workflow template
// @Tags templates
// @Param id path string true "Template ID"
// @Success 204 {object} nil "No Content"
// @Router /api/templates/{id} [delete]
func (c *TemplateController) DeleteTemplate(ctx *fiber.Ctx) error {
	claims, _ := middleware.Claims(ctx)

	if err := c.Service.DeleteTemplate(ctx.UserContext(), claims.UserID, ctx.Params("id")); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
