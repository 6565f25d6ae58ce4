package report

import (
	"go-grc/internal/common/apperr"
	"go-grc/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportController struct {
	Service ReportService
}

func NewReportController(service ReportService) *ReportController {
	return &ReportController{Service: service}
}

func respondErr(ctx *fiber.Ctx, err error) error {
	return ctx.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// ListReports godoc
// @Summary List saved reports
// @Tags reports
// @Produce json
// @Success 200 {array} Report
// @Router /api/reports [get]
func (c *ReportController) ListReports(ctx *fiber.Ctx) error {
	reports, err := c.Service.ListReports(ctx.UserContext())
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(reports)
}

// GetReport godoc
// @Summary Get a saved report
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} Report
// @Router /api/reports/{id} [get]
func (c *ReportController) GetReport(ctx *fiber.Ctx) error {
	report, err := c.Service.GetReport(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(report)
}

// CreateReport godoc
// @Summary Create a saved report
// @Tags reports
// @Accept json
// @Produce json
// @Param report body CreateReportInput true "Report"
// @Success 201 {object} Report
// @Router /api/reports [post]
func (c *ReportController) CreateReport(ctx *fiber.Ctx) error {
	var input CreateReportInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	report, err := c.Service.CreateReport(ctx.UserContext(), claims.UserID, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(report)
}

// UpdateReport godoc
// @Summary Update a saved report
// @Tags reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param report body CreateReportInput true "Report"
// @Success 200 {object} Report
// @Router /api/reports/{id} [put]
func (c *ReportController) UpdateReport(ctx *fiber.Ctx) error {
	var input CreateReportInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	report, err := c.Service.UpdateReport(ctx.UserContext(), claims.UserID, ctx.Params("id"), input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(report)
}

// DeleteReport godoc
// @Summary Delete a saved report and its schedules
// @Tags reports
// @Param id path string true "Report ID"
// @Success 204 {object} nil "No Content"
// @Router /api/reports/{id} [delete]
func (c *ReportController) DeleteReport(ctx *fiber.Ctx) error {
	claims, _ := middleware.Claims(ctx)

	if err := c.Service.DeleteReport(ctx.UserContext(), claims.UserID, ctx.Params("id")); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// RunReport godoc
// @Summary Run a saved report and return its rows
// @Tags reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/reports/{id}/run [post]
func (c *ReportController) RunReport(ctx *fiber.Ctx) error {
	columns, rows, err := c.Service.RunReport(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(fiber.Map{
		"columns": columns,
		"rows":    rows,
		"total":   len(rows),
	})
}

// ExportReport godoc
// @Summary Export a saved report as CSV or XLSX
// @Tags reports
// @Produce application/octet-stream
// @Param id path string true "Report ID"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Router /api/reports/{id}/export [get]
func (c *ReportController) ExportReport(ctx *fiber.Ctx) error {
	data, filename, err := c.Service.ExportReport(ctx.UserContext(), ctx.Params("id"), ctx.Query("format", "csv"))
	if err != nil {
		return respondErr(ctx, err)
	}

	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	if ctx.Query("format", "csv") == "xlsx" {
		ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	} else {
		ctx.Set(fiber.HeaderContentType, "text/csv")
	}
	return ctx.Send(data)
}

// ListSchedules godoc
// @Summary List report schedules
// @Tags reports
// @Produce json
// @Success 200 {array} ReportSchedule
// @Router /api/report-schedules [get]
func (c *ReportController) ListSchedules(ctx *fiber.Ctx) error {
	schedules, err := c.Service.ListSchedules(ctx.UserContext())
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.JSON(schedules)
}

// CreateSchedule godoc
// @Summary Schedule a saved report on a cron expression
// @Tags reports
// @Accept json
// @Produce json
// @Param schedule body CreateScheduleInput true "Schedule"
// @Success 201 {object} ReportSchedule
// @Router /api/report-schedules [post]
func (c *ReportController) CreateSchedule(ctx *fiber.Ctx) error {
	var input CreateScheduleInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	claims, _ := middleware.Claims(ctx)

	schedule, err := c.Service.CreateSchedule(ctx.UserContext(), claims.UserID, input)
	if err != nil {
		return respondErr(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(schedule)
}

// DeleteSchedule godoc
// @Summary Delete a report schedule
// @Tags reports
// @Param id path string true "Schedule ID"
// @Success 204 {object} nil "No Content"
// @Router /api/report-schedules/{id} [delete]
func (c *ReportController) DeleteSchedule(ctx *fiber.Ctx) error {
	claims, _ := middleware.Claims(ctx)

	if err := c.Service.DeleteSchedule(ctx.UserContext(), claims.UserID, ctx.Params("id")); err != nil {
		return respondErr(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
