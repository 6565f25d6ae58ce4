package archive

import (
	"strconv"

	"go-grc/internal/common/apperr"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ArchiveController struct {
	Service ArchiveService
}

func NewArchiveController(service ArchiveService) *ArchiveController {
	return &ArchiveController{Service: service}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// Run godoc
// @Summary Archive resolved approvals to cold storage
// @Tags archive
// @Accept json
// @Produce json
// @Param input body RunInput false "Age filter"
// @Success 200 {object} ArchiveRun
// @Failure 400 {object} map[string]string "Archiving not configured"
// @Router /api/archive/run [post]
func (c *ArchiveController) Run(ctx *fiber.Ctx) error {
	var input RunInput
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&input); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	claims, _ := middleware.Claims(ctx)

	run, err := c.Service.Run(ctx.UserContext(), claims.UserID, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(run)
}

// ListRuns godoc
// @Summary List archive runs, newest first
// @Tags archive
// @Produce json
// @Success 200 {array} ArchiveRun
// @Router /api/archive/runs [get]
func (c *ArchiveController) ListRuns(ctx *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(ctx.Query("limit", "20"), 10, 64)

	runs, err := c.Service.ListRuns(ctx.UserContext(), limit)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(runs)
}
