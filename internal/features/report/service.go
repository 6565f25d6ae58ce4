package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/approval"
	"go-grc/internal/features/audit"
	"go-grc/internal/features/notification"

	"github.com/robfig/cron/v3"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ReportService interface {
	CreateReport(ctx context.Context, actorID string, input CreateReportInput) (*Report, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context) ([]Report, error)
	UpdateReport(ctx context.Context, actorID string, id string, input CreateReportInput) (*Report, error)
	DeleteReport(ctx context.Context, actorID string, id string) error

	RunReport(ctx context.Context, id string) ([]string, []map[string]interface{}, error)
	ExportReport(ctx context.Context, id string, format string) ([]byte, string, error)

	CreateSchedule(ctx context.Context, actorID string, input CreateScheduleInput) (*ReportSchedule, error)
	ListSchedules(ctx context.Context) ([]ReportSchedule, error)
	DeleteSchedule(ctx context.Context, actorID string, id string) error

	InitializeScheduler(ctx context.Context) error
	StopScheduler()
}

type ReportServiceImpl struct {
	Repo                ReportRepository
	ApprovalRepo        approval.ApprovalRepository
	ActionLogs          approval.ActionLogRepository
	NotificationService notification.NotificationService
	AuditService        audit.AuditService
	Logger              *zap.Logger

	scheduler *cron.Cron
	entries   map[string]cron.EntryID
	mu        sync.Mutex
}

func NewReportService(
	repo ReportRepository,
	approvalRepo approval.ApprovalRepository,
	actionLogs approval.ActionLogRepository,
	notificationService notification.NotificationService,
	auditService audit.AuditService,
	logger *zap.Logger,
) ReportService {
	return &ReportServiceImpl{
		Repo:                repo,
		ApprovalRepo:        approvalRepo,
		ActionLogs:          actionLogs,
		NotificationService: notificationService,
		AuditService:        auditService,
		Logger:              logger,
		entries:             make(map[string]cron.EntryID),
	}
}

func validateReportInput(input CreateReportInput) error {
	if input.Name == "" {
		return apperr.Validation("name is required")
	}
	switch input.ReportType {
	case ReportTypeInstanceSummary, ReportTypeApprovalActivity:
	default:
		return apperr.Validation("unknown report_type %q", input.ReportType)
	}
	if input.Filters.EntityType != "" && !common_models.ValidEntityType(input.Filters.EntityType) {
		return apperr.Validation("unknown entity_type %q", input.Filters.EntityType)
	}
	return nil
}

func (s *ReportServiceImpl) CreateReport(ctx context.Context, actorID string, input CreateReportInput) (*Report, error) {
	if err := validateReportInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	report := &Report{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		ReportType:  input.ReportType,
		Filters:     input.Filters,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.Repo.Create(ctx, report); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionReport, "reports", report.ID.Hex(), map[string]common_models.Change{
		"report": {New: report},
	})

	return report, nil
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, id string) (*Report, error) {
	report, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report == nil {
		return nil, apperr.NotFound("report %s not found", id)
	}
	return report, nil
}

func (s *ReportServiceImpl) ListReports(ctx context.Context) ([]Report, error) {
	return s.Repo.List(ctx)
}

func (s *ReportServiceImpl) UpdateReport(ctx context.Context, actorID string, id string, input CreateReportInput) (*Report, error) {
	existing, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateReportInput(input); err != nil {
		return nil, err
	}

	set := bson.M{
		"name":        input.Name,
		"description": input.Description,
		"report_type": input.ReportType,
		"filters":     input.Filters,
	}
	if err := s.Repo.Update(ctx, id, set); err != nil {
		return nil, err
	}

	updated, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionReport, "reports", id, map[string]common_models.Change{
		"report": {Old: existing, New: updated},
	})

	return updated, nil
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, actorID string, id string) error {
	existing, err := s.GetReport(ctx, id)
	if err != nil {
		return err
	}

	// Schedules referencing the report go with it; they unregister lazily on
	// the next scheduler reload.
	if err := s.Repo.DeleteSchedulesByReport(ctx, existing.ID); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionReport, "reports", id, map[string]common_models.Change{
		"report": {Old: existing, New: "DELETED"},
	})

	return nil
}

// reportPageSize bounds how many instances one report run reads.
const reportPageSize = 10000

func (s *ReportServiceImpl) RunReport(ctx context.Context, id string) ([]string, []map[string]interface{}, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	requests, _, err := s.ApprovalRepo.List(ctx, approval.ListFilter{
		EntityType: report.Filters.EntityType,
		Status:     report.Filters.Status,
		Page:       1,
		Limit:      reportPageSize,
	})
	if err != nil {
		return nil, nil, err
	}
	requests = filterByWindow(requests, report.Filters.From, report.Filters.To)

	switch report.ReportType {
	case ReportTypeApprovalActivity:
		return s.activityRows(ctx, requests)
	default:
		return instanceSummaryRows(requests)
	}
}

func filterByWindow(requests []approval.ApprovalRequest, from, to *time.Time) []approval.ApprovalRequest {
	if from == nil && to == nil {
		return requests
	}
	var out []approval.ApprovalRequest
	for _, req := range requests {
		if from != nil && req.RequestedAt.Before(*from) {
			continue
		}
		if to != nil && req.RequestedAt.After(*to) {
			continue
		}
		out = append(out, req)
	}
	return out
}

func instanceSummaryRows(requests []approval.ApprovalRequest) ([]string, []map[string]interface{}, error) {
	columns := []string{"id", "entity_type", "entity_id", "workflow_id", "status", "current_step", "total_steps", "requested_by", "requested_at", "completed_at"}
	rows := make([]map[string]interface{}, 0, len(requests))
	for _, req := range requests {
		row := map[string]interface{}{
			"id":           req.ID,
			"entity_type":  req.EntityType,
			"entity_id":    req.EntityID,
			"workflow_id":  req.WorkflowID,
			"status":       req.Status,
			"current_step": req.CurrentStep,
			"total_steps":  req.TotalSteps,
			"requested_by": req.RequestedBy,
			"requested_at": req.RequestedAt,
		}
		if req.CompletedAt != nil {
			row["completed_at"] = *req.CompletedAt
		}
		rows = append(rows, row)
	}
	return columns, rows, nil
}

func (s *ReportServiceImpl) activityRows(ctx context.Context, requests []approval.ApprovalRequest) ([]string, []map[string]interface{}, error) {
	columns := []string{"request_id", "entity_type", "entity_id", "action", "performer_id", "comments", "created_at"}
	var rows []map[string]interface{}
	for _, req := range requests {
		logs, err := s.ActionLogs.ListByRequest(ctx, req.ID)
		if err != nil {
			return nil, nil, err
		}
		for _, log := range logs {
			rows = append(rows, map[string]interface{}{
				"request_id":   req.ID,
				"entity_type":  req.EntityType,
				"entity_id":    req.EntityID,
				"action":       log.Action,
				"performer_id": log.PerformerID,
				"comments":     log.Comments,
				"created_at":   log.CreatedAt,
			})
		}
	}
	return columns, rows, nil
}

func (s *ReportServiceImpl) ExportReport(ctx context.Context, id string, format string) ([]byte, string, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		return nil, "", err
	}
	columns, rows, err := s.RunReport(ctx, id)
	if err != nil {
		return nil, "", err
	}

	filename := strings.ReplaceAll(strings.ToLower(report.Name), " ", "_")

	switch format {
	case "", "csv":
		data, err := exportToCSV(columns, rows)
		return data, filename + ".csv", err
	case "xlsx":
		return exportToExcel(columns, rows, filename)
	default:
		return nil, "", apperr.Validation("unsupported export format %q", format)
	}
}

func exportToCSV(columns []string, rows []map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = cellString(row[col])
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportToExcel(columns []string, rows []map[string]interface{}, filename string) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		for colIdx, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			switch v := row[col].(type) {
			case time.Time:
				f.SetCellValue(sheetName, cell, v.Format("2006-01-02 15:04:05"))
			case primitive.ObjectID:
				f.SetCellValue(sheetName, cell, v.Hex())
			default:
				f.SetCellValue(sheetName, cell, v)
			}
		}
	}

	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 18)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	return buffer.Bytes(), filename + ".xlsx", nil
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format(time.RFC3339)
	case primitive.ObjectID:
		return val.Hex()
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (s *ReportServiceImpl) CreateSchedule(ctx context.Context, actorID string, input CreateScheduleInput) (*ReportSchedule, error) {
	report, err := s.GetReport(ctx, input.ReportID)
	if err != nil {
		return nil, err
	}

	parsed, err := cron.ParseStandard(input.Schedule)
	if err != nil {
		return nil, apperr.Validation("invalid cron expression: %v", err)
	}
	switch input.Format {
	case "csv", "xlsx":
	default:
		return nil, apperr.Validation("unsupported export format %q", input.Format)
	}
	if input.Recipient == "" {
		return nil, apperr.Validation("recipient is required")
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	now := time.Now()
	nextRun := parsed.Next(now)
	schedule := &ReportSchedule{
		ID:        primitive.NewObjectID(),
		ReportID:  report.ID,
		Schedule:  input.Schedule,
		Format:    input.Format,
		Recipient: input.Recipient,
		Active:    active,
		NextRun:   &nextRun,
		CreatedBy: actorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.Repo.CreateSchedule(ctx, schedule); err != nil {
		return nil, err
	}

	if active {
		s.registerSchedule(*schedule)
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionReport, "report_schedules", schedule.ID.Hex(), map[string]common_models.Change{
		"schedule": {New: schedule},
	})

	return schedule, nil
}

func (s *ReportServiceImpl) ListSchedules(ctx context.Context) ([]ReportSchedule, error) {
	return s.Repo.ListSchedules(ctx, false)
}

func (s *ReportServiceImpl) DeleteSchedule(ctx context.Context, actorID string, id string) error {
	existing, err := s.Repo.GetScheduleByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.NotFound("report schedule %s not found", id)
	}

	s.unregisterSchedule(id)
	if err := s.Repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionReport, "report_schedules", id, map[string]common_models.Change{
		"schedule": {Old: existing, New: "DELETED"},
	})

	return nil
}

// InitializeScheduler starts the cron runner and registers every active
// schedule. Called once from the app lifecycle.
func (s *ReportServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.mu.Lock()
	s.scheduler = cron.New()
	s.mu.Unlock()

	schedules, err := s.Repo.ListSchedules(ctx, true)
	if err != nil {
		return err
	}
	for _, schedule := range schedules {
		s.registerSchedule(schedule)
	}

	s.scheduler.Start()
	s.Logger.Info("report scheduler started", zap.Int("schedules", len(schedules)))
	return nil
}

func (s *ReportServiceImpl) StopScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *ReportServiceImpl) registerSchedule(schedule ReportSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return
	}
	id := schedule.ID.Hex()
	entryID, err := s.scheduler.AddFunc(schedule.Schedule, func() {
		s.runSchedule(schedule)
	})
	if err != nil {
		s.Logger.Error("failed to register report schedule",
			zap.String("schedule_id", id),
			zap.Error(err))
		return
	}
	s.entries[id] = entryID
}

func (s *ReportServiceImpl) unregisterSchedule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok && s.scheduler != nil {
		s.scheduler.Remove(entryID)
		delete(s.entries, id)
	}
}

func (s *ReportServiceImpl) runSchedule(schedule ReportSchedule) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	id := schedule.ID.Hex()
	data, filename, err := s.ExportReport(ctx, schedule.ReportID.Hex(), schedule.Format)
	if err != nil {
		s.Logger.Error("scheduled report run failed",
			zap.String("schedule_id", id),
			zap.Error(err))
		return
	}

	if err := s.NotificationService.Send(ctx, schedule.Recipient,
		"Scheduled report ready",
		fmt.Sprintf("Report export %s generated (%d bytes).", filename, len(data)),
		notification.NotificationTypeInfo); err != nil {
		s.Logger.Error("failed to notify report recipient",
			zap.String("schedule_id", id),
			zap.Error(err))
	}

	now := time.Now()
	var nextRun *time.Time
	if parsed, err := cron.ParseStandard(schedule.Schedule); err == nil {
		n := parsed.Next(now)
		nextRun = &n
	}
	if err := s.Repo.UpdateScheduleRun(ctx, id, now, nextRun); err != nil {
		s.Logger.Error("failed to record schedule run",
			zap.String("schedule_id", id),
			zap.Error(err))
	}

	_ = s.AuditService.LogChange(ctx, "", common_models.AuditActionReport, "report_schedules", id, map[string]common_models.Change{
		"run": {New: filename},
	})
}
