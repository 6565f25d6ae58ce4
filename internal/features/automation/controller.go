package automation

import (
	"go-grc/internal/common/apperr"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AutomationController struct {
	Service AutomationService
}

func NewAutomationController(service AutomationService) *AutomationController {
	return &AutomationController{Service: service}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// ListRules godoc
// @Summary List automation rules
// @Tags automation
// @Produce json
// @Success 200 {array} AutomationRule
// @Router /api/automation-rules [get]
func (c *AutomationController) ListRules(ctx *fiber.Ctx) error {
	rules, err := c.Service.ListRules(ctx.UserContext())
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(rules)
}

// GetRule godoc
// @Summary Get an automation rule
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} AutomationRule
// @Router /api/automation-rules/{id} [get]
func (c *AutomationController) GetRule(ctx *fiber.Ctx) error {
	rule, err := c.Service.GetRule(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(rule)
}

// CreateRule godoc
// @Summary Create an automation rule
// @Description Condition scripts are compile-checked before the rule is saved
// @Tags automation
// @Accept json
// @Produce json
// @Param rule body CreateRuleInput true "Rule"
// @Success 201 {object} AutomationRule
// @Router /api/automation-rules [post]
func (c *AutomationController) CreateRule(ctx *fiber.Ctx) error {
	var input CreateRuleInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	rule, err := c.Service.CreateRule(ctx.UserContext(), claims.UserID, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(rule)
}

// UpdateRule godoc
// @Summary Update an automation rule
// @Tags automation
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param rule body UpdateRuleInput true "Fields to update"
// @Success 200 {object} AutomationRule
// @Router /api/automation-rules/{id} [put]
func (c *AutomationController) UpdateRule(ctx *fiber.Ctx) error {
	var input UpdateRuleInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	rule, err := c.Service.UpdateRule(ctx.UserContext(), claims.UserID, ctx.Params("id"), input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(rule)
}

// DeleteRule godoc
// @Summary Delete an automation rule
// @Tags automation
// @Param id path string true "Rule ID"
// @Success 204 {object} nil "No Content"
// @Router /api/automation-rules/{id} [delete]
func (c *AutomationController) DeleteRule(ctx *fiber.Ctx) error {
	claims, _ := middleware.Claims(ctx)

	if err := c.Service.DeleteRule(ctx.UserContext(), claims.UserID, ctx.Params("id")); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
