package template

import (
	"context"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/audit"
	"go-grc/internal/features/role"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InstanceCounter reports how many approval instances reference a template.
// Implemented by the approval repository; injected as an interface to avoid a
// package cycle.
type InstanceCounter interface {
	CountByTemplate(ctx context.Context, templateID string) (int64, error)
}

type TemplateService interface {
	ListTemplates(ctx context.Context, filter ListFilter) ([]WorkflowTemplate, int64, error)
	GetTemplate(ctx context.Context, id string) (*WorkflowTemplate, error)
	CreateTemplate(ctx context.Context, actorID string, input CreateTemplateInput) (*WorkflowTemplate, error)
	UpdateTemplate(ctx context.Context, actorID string, id string, input UpdateTemplateInput) (*WorkflowTemplate, error)
	DeleteTemplate(ctx context.Context, actorID string, id string) error
}

type TemplateServiceImpl struct {
	Repo         TemplateRepository
	Instances    InstanceCounter
	AuditService audit.AuditService
}

func NewTemplateService(repo TemplateRepository, instances InstanceCounter, auditService audit.AuditService) TemplateService {
	return &TemplateServiceImpl{
		Repo:         repo,
		Instances:    instances,
		AuditService: auditService,
	}
}

func (s *TemplateServiceImpl) ListTemplates(ctx context.Context, filter ListFilter) ([]WorkflowTemplate, int64, error) {
	if filter.EntityType != "" && !common_models.ValidEntityType(filter.EntityType) {
		return nil, 0, apperr.Validation("unknown entity_type %q", filter.EntityType)
	}
	return s.Repo.List(ctx, filter)
}

func (s *TemplateServiceImpl) GetTemplate(ctx context.Context, id string) (*WorkflowTemplate, error) {
	tmpl, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, apperr.NotFound("template %s not found", id)
	}
	return tmpl, nil
}

func (s *TemplateServiceImpl) CreateTemplate(ctx context.Context, actorID string, input CreateTemplateInput) (*WorkflowTemplate, error) {
	if input.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if input.EntityType == "" {
		return nil, apperr.Validation("entity_type is required")
	}
	if !common_models.ValidEntityType(input.EntityType) {
		return nil, apperr.Validation("unknown entity_type %q", input.EntityType)
	}
	if err := validateSteps(input.Steps); err != nil {
		return nil, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	now := time.Now()
	tmpl := &WorkflowTemplate{
		ID:          primitive.NewObjectID(),
		Name:        input.Name,
		Description: input.Description,
		EntityType:  common_models.EntityType(input.EntityType),
		IsActive:    isActive,
		Steps:       input.Steps,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tmpl.Steps == nil {
		tmpl.Steps = []StepTemplate{}
	}

	if err := s.Repo.Create(ctx, tmpl); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionCreate, "workflow_templates", tmpl.ID.Hex(), map[string]common_models.Change{
		"template": {New: tmpl},
	})

	return tmpl, nil
}

func (s *TemplateServiceImpl) UpdateTemplate(ctx context.Context, actorID string, id string, input UpdateTemplateInput) (*WorkflowTemplate, error) {
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		set["name"] = *input.Name
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.IsActive != nil {
		set["is_active"] = *input.IsActive
	}
	if input.EntityType != nil && *input.EntityType != string(existing.EntityType) {
		if !common_models.ValidEntityType(*input.EntityType) {
			return nil, apperr.Validation("unknown entity_type %q", *input.EntityType)
		}
		// entity_type is frozen once any instance runs against this template;
		// changing it would invalidate those instances' semantics.
		count, err := s.Instances.CountByTemplate(ctx, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, apperr.Conflict("entity_type is immutable while instances reference this template")
		}
		set["entity_type"] = *input.EntityType
	}
	if input.Steps != nil {
		if err := validateSteps(*input.Steps); err != nil {
			return nil, err
		}
		// Wholesale replace: prior step identity is discarded. Instances keep
		// their own cloned copies, so this cannot corrupt in-flight runs.
		set["steps"] = *input.Steps
	}

	if len(set) > 0 {
		if err := s.Repo.Update(ctx, id, set); err != nil {
			return nil, err
		}
	}

	updated, err := s.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionUpdate, "workflow_templates", id, map[string]common_models.Change{
		"template": {Old: existing, New: updated},
	})

	return updated, nil
}

func (s *TemplateServiceImpl) DeleteTemplate(ctx context.Context, actorID string, id string) error {
	existing, err := s.GetTemplate(ctx, id)
	if err != nil {
		return err
	}

	// TODO: block deletion while historical instances reference this template,
	// or switch to soft delete. Instances keep working off their cloned steps,
	// but their workflow_id would dangle.
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionDelete, "workflow_templates", id, map[string]common_models.Change{
		"template": {Old: existing, New: "DELETED"},
	})

	return nil
}

// validateSteps checks names, roles, and that step orders form a gapless
// 1..N sequence.
func validateSteps(steps []StepTemplate) error {
	seen := make(map[int]bool, len(steps))
	for _, st := range steps {
		if st.StepName == "" {
			return apperr.Validation("step %d: step_name is required", st.StepOrder)
		}
		if !role.Valid(st.AssigneeRole) {
			return apperr.Validation("step %d: unknown assignee_role %q", st.StepOrder, st.AssigneeRole)
		}
		if st.StepOrder < 1 {
			return apperr.Validation("step_order must be positive, got %d", st.StepOrder)
		}
		if seen[st.StepOrder] {
			return apperr.Validation("duplicate step_order %d", st.StepOrder)
		}
		seen[st.StepOrder] = true
	}
	for i := 1; i <= len(steps); i++ {
		if !seen[i] {
			return apperr.Validation("step_order sequence has a gap at %d", i)
		}
	}
	return nil
}
