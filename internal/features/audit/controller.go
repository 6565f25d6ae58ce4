package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListLogs godoc
// @Summary List audit logs
// @Tags audit
// @Produce json
// @Success 200 {array} models.AuditLog
// @Router /api/audit-logs [get]
func (c *AuditController) ListLogs(ctx *fiber.Ctx) error {
	page, _ := strconv.ParseInt(ctx.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)

	filters := map[string]interface{}{
		"module":    ctx.Query("module"),
		"record_id": ctx.Query("record_id"),
		"actor_id":  ctx.Query("actor_id"),
	}

	logs, err := c.Service.ListLogs(ctx.UserContext(), filters, page, limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return ctx.JSON(fiber.Map{
		"data":  logs,
		"page":  page,
		"limit": limit,
	})
}
