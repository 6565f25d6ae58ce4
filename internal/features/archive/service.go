package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/config"
	"go-grc/internal/features/approval"
	"go-grc/internal/features/audit"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ArchiveService interface {
	// Run copies terminal approval instances, with their step ledgers and
	// action logs, into the Postgres archive. Source rows stay in Mongo; the
	// archive upsert is idempotent, so re-running is safe.
	Run(ctx context.Context, actorID string, input RunInput) (*ArchiveRun, error)
	ListRuns(ctx context.Context, limit int64) ([]ArchiveRun, error)
}

type ArchiveServiceImpl struct {
	RunRepo      ArchiveRunRepository
	ApprovalRepo approval.ApprovalRepository
	StepRepo     approval.StepRepository
	ActionLogs   approval.ActionLogRepository
	AuditService audit.AuditService
	Config       *config.Config
	Logger       *zap.Logger
}

func NewArchiveService(
	runRepo ArchiveRunRepository,
	approvalRepo approval.ApprovalRepository,
	stepRepo approval.StepRepository,
	actionLogs approval.ActionLogRepository,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) ArchiveService {
	return &ArchiveServiceImpl{
		RunRepo:      runRepo,
		ApprovalRepo: approvalRepo,
		StepRepo:     stepRepo,
		ActionLogs:   actionLogs,
		AuditService: auditService,
		Config:       cfg,
		Logger:       logger,
	}
}

const archiveTableDDL = `
CREATE TABLE IF NOT EXISTS approval_archive (
	id           TEXT PRIMARY KEY,
	entity_type  TEXT NOT NULL,
	entity_id    TEXT NOT NULL,
	status       TEXT NOT NULL,
	requested_by TEXT NOT NULL,
	requested_at TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ,
	request      JSONB NOT NULL,
	steps        JSONB NOT NULL,
	actions      JSONB NOT NULL,
	archived_at  TIMESTAMPTZ NOT NULL
)`

func (s *ArchiveServiceImpl) Run(ctx context.Context, actorID string, input RunInput) (*ArchiveRun, error) {
	if s.Config.ArchiveDBURL == "" {
		return nil, apperr.Validation("archiving is not configured (ARCHIVE_DB_URL is empty)")
	}
	if input.OlderThanDays < 0 {
		return nil, apperr.Validation("older_than_days cannot be negative")
	}

	run := &ArchiveRun{
		ID:          primitive.NewObjectID(),
		StartedAt:   time.Now(),
		Status:      "running",
		TriggeredBy: actorID,
	}
	if err := s.RunRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	archived, err := s.execute(ctx, input)

	now := time.Now()
	run.CompletedAt = &now
	run.InstancesArchived = archived
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	} else {
		run.Status = "success"
	}
	if updateErr := s.RunRepo.Update(ctx, run); updateErr != nil {
		s.Logger.Error("failed to record archive run", zap.Error(updateErr))
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionArchive, "archive_runs", run.ID.Hex(), map[string]common_models.Change{
		"status":   {New: run.Status},
		"archived": {New: archived},
	})

	if err != nil {
		return run, apperr.Internal("archive run failed", err)
	}
	return run, nil
}

func (s *ArchiveServiceImpl) execute(ctx context.Context, input RunInput) (int, error) {
	db, err := sql.Open("postgres", s.Config.ArchiveDBURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, archiveTableDDL); err != nil {
		return 0, fmt.Errorf("failed to ensure archive table: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -input.OlderThanDays)
	archived := 0

	for _, status := range []approval.RequestStatus{approval.StatusApproved, approval.StatusRejected, approval.StatusCancelled} {
		requests, _, err := s.ApprovalRepo.List(ctx, approval.ListFilter{
			Status: string(status),
			Page:   1,
			Limit:  archiveBatchSize,
		})
		if err != nil {
			return archived, err
		}

		for _, req := range requests {
			if req.CompletedAt != nil && req.CompletedAt.After(cutoff) {
				continue
			}
			if err := s.archiveOne(ctx, db, req); err != nil {
				return archived, fmt.Errorf("failed to archive %s: %w", req.ID.Hex(), err)
			}
			archived++
		}
	}

	return archived, nil
}

const archiveBatchSize = 5000

func (s *ArchiveServiceImpl) archiveOne(ctx context.Context, db *sql.DB, req approval.ApprovalRequest) error {
	steps, err := s.StepRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}
	actions, err := s.ActionLogs.ListByRequest(ctx, req.ID)
	if err != nil {
		return err
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return err
	}
	stepsJSON, err := json.Marshal(steps)
	if err != nil {
		return err
	}
	actionsJSON, err := json.Marshal(actions)
	if err != nil {
		return err
	}

	var completedAt interface{}
	if req.CompletedAt != nil {
		completedAt = *req.CompletedAt
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO approval_archive
			(id, entity_type, entity_id, status, requested_by, requested_at, completed_at, request, steps, actions, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`,
		req.ID.Hex(), string(req.EntityType), req.EntityID, string(req.Status),
		req.RequestedBy, req.RequestedAt, completedAt,
		reqJSON, stepsJSON, actionsJSON, time.Now())
	return err
}

func (s *ArchiveServiceImpl) ListRuns(ctx context.Context, limit int64) ([]ArchiveRun, error) {
	return s.RunRepo.List(ctx, limit)
}
