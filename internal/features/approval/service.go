package approval

import (
	"context"
	"sort"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/audit"
	"go-grc/internal/features/role"
	"go-grc/internal/features/template"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier mirrors committed transitions into user notifications. Best
// effort: failures are logged, never surfaced to the caller.
type Notifier interface {
	NotifyWorkflowEvent(ctx context.Context, event WorkflowEvent)
}

// AutomationTrigger hands committed transitions to the automation rules.
type AutomationTrigger interface {
	OnWorkflowEvent(ctx context.Context, event WorkflowEvent)
}

type ApprovalService interface {
	StartWorkflow(ctx context.Context, actor Actor, input StartWorkflowInput) (*ApprovalRequest, error)

	// Decision operations. Each implicitly targets the instance's current
	// step for the given actor; none take a step id.
	Approve(ctx context.Context, actor Actor, requestID string, input DecisionInput) error
	Reject(ctx context.Context, actor Actor, requestID string, input DecisionInput) error
	RequestRevision(ctx context.Context, actor Actor, requestID string, input DecisionInput) error
	SkipStep(ctx context.Context, actor Actor, requestID string, input DecisionInput) error

	// Resubmit recovers a revision_required instance: the requester puts the
	// current step back to pending for re-review.
	Resubmit(ctx context.Context, actor Actor, requestID string, comments string) error

	GetInstance(ctx context.Context, id string) (*InstanceDetail, error)
	ListInstances(ctx context.Context, filter ListFilter) ([]ApprovalRequest, int64, error)
	ListMyPendingSteps(ctx context.Context, actor Actor) ([]PendingTask, error)
	ListActions(ctx context.Context, requestID string) ([]ApprovalActionLog, error)
}

type ApprovalServiceImpl struct {
	Repo         ApprovalRepository
	StepRepo     StepRepository
	LogRepo      ActionLogRepository
	Templates    template.TemplateService
	AuditService audit.AuditService
	Notifier     Notifier
	Automation   AutomationTrigger
	Logger       *zap.Logger
}

func NewApprovalService(
	repo ApprovalRepository,
	stepRepo StepRepository,
	logRepo ActionLogRepository,
	templates template.TemplateService,
	auditService audit.AuditService,
	notifier Notifier,
	automation AutomationTrigger,
	logger *zap.Logger,
) ApprovalService {
	return &ApprovalServiceImpl{
		Repo:         repo,
		StepRepo:     stepRepo,
		LogRepo:      logRepo,
		Templates:    templates,
		AuditService: auditService,
		Notifier:     notifier,
		Automation:   automation,
		Logger:       logger,
	}
}

func (s *ApprovalServiceImpl) StartWorkflow(ctx context.Context, actor Actor, input StartWorkflowInput) (*ApprovalRequest, error) {
	if input.EntityID == "" {
		return nil, apperr.Validation("entity_id is required")
	}
	if !common_models.ValidEntityType(input.EntityType) {
		return nil, apperr.Validation("unknown entity_type %q", input.EntityType)
	}
	if input.WorkflowID == "" {
		return nil, apperr.Validation("workflow_id is required")
	}

	tmpl, err := s.Templates.GetTemplate(ctx, input.WorkflowID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, apperr.Validation("template %s is not active", input.WorkflowID)
	}
	if string(tmpl.EntityType) != input.EntityType {
		return nil, apperr.Validation("template targets entity_type %s, got %s", tmpl.EntityType, input.EntityType)
	}
	if len(tmpl.Steps) == 0 {
		// A zero-step instance would resolve to nothing; reject at the door.
		return nil, apperr.Validation("template %s has no steps", input.WorkflowID)
	}

	// At most one non-terminal instance per entity.
	active, err := s.Repo.FindActiveByEntity(ctx, input.EntityType, input.EntityID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Conflict("entity %s/%s already has an approval in progress", input.EntityType, input.EntityID)
	}

	now := time.Now()
	req := &ApprovalRequest{
		ID:          primitive.NewObjectID(),
		EntityType:  common_models.EntityType(input.EntityType),
		EntityID:    input.EntityID,
		WorkflowID:  input.WorkflowID,
		CurrentStep: 1,
		TotalSteps:  len(tmpl.Steps),
		Status:      StatusPendingApproval,
		RequestedBy: actor.ID,
		RequestedAt: now,
	}

	steps := make([]ApprovalRequestStep, 0, len(tmpl.Steps))
	ordered := make([]template.StepTemplate, len(tmpl.Steps))
	copy(ordered, tmpl.Steps)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StepOrder < ordered[j].StepOrder })
	for _, st := range ordered {
		steps = append(steps, ApprovalRequestStep{
			ID:           primitive.NewObjectID(),
			RequestID:    req.ID,
			StepOrder:    st.StepOrder,
			StepName:     st.StepName,
			AssigneeRole: st.AssigneeRole,
			AssigneeID:   st.AssigneeID,
			Required:     st.Required,
			Status:       StepPending,
		})
	}

	if err := s.Repo.CreateWithSteps(ctx, req, steps); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actor.ID, common_models.AuditActionApproval, "approval_requests", req.ID.Hex(), map[string]common_models.Change{
		"status": {New: req.Status},
	})

	s.publish(ctx, WorkflowEvent{
		Type:      EventWorkflowStarted,
		Request:   *req,
		Step:      &steps[0],
		ActorID:   actor.ID,
		Timestamp: now,
	})

	return req, nil
}

func (s *ApprovalServiceImpl) Approve(ctx context.Context, actor Actor, requestID string, input DecisionInput) error {
	return s.decide(ctx, actor, requestID, ActionApprove, input)
}

func (s *ApprovalServiceImpl) Reject(ctx context.Context, actor Actor, requestID string, input DecisionInput) error {
	return s.decide(ctx, actor, requestID, ActionReject, input)
}

func (s *ApprovalServiceImpl) RequestRevision(ctx context.Context, actor Actor, requestID string, input DecisionInput) error {
	return s.decide(ctx, actor, requestID, ActionRequestRevision, input)
}

func (s *ApprovalServiceImpl) SkipStep(ctx context.Context, actor Actor, requestID string, input DecisionInput) error {
	return s.decide(ctx, actor, requestID, ActionSkip, input)
}

// decide runs the shared transition sequence: load, precondition checks,
// authorization, conditional step write, instance update, log append, event.
func (s *ApprovalServiceImpl) decide(ctx context.Context, actor Actor, requestID string, action Action, input DecisionInput) error {
	req, err := s.Repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return apperr.NotFound("approval request %s not found", requestID)
	}
	if req.Status.Terminal() {
		return apperr.Conflict("approval request %s is already %s", requestID, req.Status)
	}
	if input.ExpectedStep != 0 && input.ExpectedStep != req.CurrentStep {
		return apperr.Conflict("expected step %d but current step is %d", input.ExpectedStep, req.CurrentStep)
	}

	step, err := s.StepRepo.Get(ctx, req.ID, req.CurrentStep)
	if err != nil {
		return err
	}
	if step == nil {
		return apperr.Internal("step ledger has no step for current position", nil)
	}
	if step.Status != StepPending {
		return apperr.Conflict("step %d was already resolved (%s)", step.StepOrder, step.Status)
	}

	if !CanAct(actor, step) {
		return apperr.Authorization("actor %s does not satisfy the assignee constraint of step %d", actor.ID, step.StepOrder)
	}

	if action == ActionSkip && step.Required {
		return apperr.Validation("step %d is required and cannot be skipped", step.StepOrder)
	}

	now := time.Now()
	stepStatus := stepStatusFor(action)

	// The race boundary: of two concurrent deciders, exactly one transitions
	// the pending step; the loser gets a conflict, not a double-apply.
	matched, err := s.StepRepo.Transition(ctx, req.ID, req.CurrentStep, stepStatus, action, actor.ID, input.Comments, now)
	if err != nil {
		return err
	}
	if !matched {
		return apperr.Conflict("step %d was concurrently resolved", req.CurrentStep)
	}

	eventType := EventStepAdvanced
	var nextStep *ApprovalRequestStep
	switch action {
	case ActionApprove, ActionSkip:
		if req.CurrentStep == req.TotalSteps {
			// A fully skipped chain still resolves to approved; there is no
			// neutral terminal status.
			if _, err := s.Repo.Finalize(ctx, req.ID, req.CurrentStep, StatusApproved, now); err != nil {
				return err
			}
			req.Status = StatusApproved
			req.CompletedAt = &now
			eventType = EventInstanceApproved
		} else {
			if _, err := s.Repo.Advance(ctx, req.ID, req.CurrentStep); err != nil {
				return err
			}
			req.CurrentStep++
			req.Status = StatusInProgress
			if nextStep, err = s.StepRepo.Get(ctx, req.ID, req.CurrentStep); err != nil {
				return err
			}
		}
	case ActionReject:
		if _, err := s.Repo.Finalize(ctx, req.ID, req.CurrentStep, StatusRejected, now); err != nil {
			return err
		}
		req.Status = StatusRejected
		req.CompletedAt = &now
		eventType = EventInstanceRejected
	case ActionRequestRevision:
		// The pointer stays put: the same step_order remains current until
		// the requester resubmits.
		if _, err := s.Repo.SetStatus(ctx, req.ID, req.CurrentStep, NonTerminalStatuses, StatusRevisionRequired); err != nil {
			return err
		}
		req.Status = StatusRevisionRequired
		eventType = EventRevisionRequested
	}

	logEntry := &ApprovalActionLog{
		ID:          primitive.NewObjectID(),
		RequestID:   req.ID,
		StepID:      step.ID,
		PerformerID: actor.ID,
		Action:      action,
		Comments:    input.Comments,
		CreatedAt:   now,
	}
	if err := s.LogRepo.Append(ctx, logEntry); err != nil {
		s.Logger.Error("failed to append approval action log",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	_ = s.AuditService.LogChange(ctx, actor.ID, common_models.AuditActionApproval, "approval_requests", requestID, map[string]common_models.Change{
		"step_" + step.StepName: {Old: StepPending, New: stepStatus},
		"status":                {New: req.Status},
	})

	stepCopy := *step
	stepCopy.Status = stepStatus
	stepCopy.Action = action
	stepCopy.ActionBy = actor.ID
	stepCopy.ActionAt = &now
	stepCopy.Comments = input.Comments

	s.publish(ctx, WorkflowEvent{
		Type:      eventType,
		Request:   *req,
		Step:      &stepCopy,
		NextStep:  nextStep,
		ActorID:   actor.ID,
		Comments:  input.Comments,
		Timestamp: now,
	})

	return nil
}

func (s *ApprovalServiceImpl) Resubmit(ctx context.Context, actor Actor, requestID string, comments string) error {
	req, err := s.Repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return apperr.NotFound("approval request %s not found", requestID)
	}
	if req.Status != StatusRevisionRequired {
		return apperr.Conflict("approval request %s is not awaiting revision", requestID)
	}
	if actor.ID != req.RequestedBy {
		return apperr.Authorization("only the requester can resubmit")
	}

	matched, err := s.StepRepo.ResetToPending(ctx, req.ID, req.CurrentStep)
	if err != nil {
		return err
	}
	if !matched {
		return apperr.Conflict("step %d was concurrently modified", req.CurrentStep)
	}
	if _, err := s.Repo.SetStatus(ctx, req.ID, req.CurrentStep, []RequestStatus{StatusRevisionRequired}, StatusInProgress); err != nil {
		return err
	}
	req.Status = StatusInProgress

	now := time.Now()
	step, err := s.StepRepo.Get(ctx, req.ID, req.CurrentStep)
	if err != nil {
		return err
	}

	logEntry := &ApprovalActionLog{
		ID:          primitive.NewObjectID(),
		RequestID:   req.ID,
		PerformerID: actor.ID,
		Action:      ActionResubmit,
		Comments:    comments,
		CreatedAt:   now,
	}
	if step != nil {
		logEntry.StepID = step.ID
	}
	if err := s.LogRepo.Append(ctx, logEntry); err != nil {
		s.Logger.Error("failed to append approval action log",
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	s.publish(ctx, WorkflowEvent{
		Type:      EventResubmitted,
		Request:   *req,
		Step:      step,
		ActorID:   actor.ID,
		Comments:  comments,
		Timestamp: now,
	})

	return nil
}

func (s *ApprovalServiceImpl) GetInstance(ctx context.Context, id string) (*InstanceDetail, error) {
	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("approval request %s not found", id)
	}

	steps, err := s.StepRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	actions, err := s.LogRepo.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	return &InstanceDetail{
		ApprovalRequest: *req,
		Steps:           steps,
		Actions:         actions,
	}, nil
}

func (s *ApprovalServiceImpl) ListInstances(ctx context.Context, filter ListFilter) ([]ApprovalRequest, int64, error) {
	if filter.EntityType != "" && !common_models.ValidEntityType(filter.EntityType) {
		return nil, 0, apperr.Validation("unknown entity_type %q", filter.EntityType)
	}
	return s.Repo.List(ctx, filter)
}

// ListMyPendingSteps is the actor-facing inbox. It applies the same assignee
// predicate as the decision gate, so a listed task is always actionable by
// the caller at the moment of listing.
func (s *ApprovalServiceImpl) ListMyPendingSteps(ctx context.Context, actor Actor) ([]PendingTask, error) {
	requests, err := s.Repo.ListNonTerminal(ctx)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return []PendingTask{}, nil
	}

	byID := make(map[primitive.ObjectID]ApprovalRequest, len(requests))
	ids := make([]primitive.ObjectID, 0, len(requests))
	for _, req := range requests {
		byID[req.ID] = req
		ids = append(ids, req.ID)
	}

	steps, err := s.StepRepo.ListPendingByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}

	tasks := []PendingTask{}
	for _, step := range steps {
		req, ok := byID[step.RequestID]
		if !ok {
			continue
		}
		// Only the current step is actionable; later pending steps are not
		// tasks yet.
		if step.StepOrder != req.CurrentStep {
			continue
		}
		if !CanAct(actor, &step) {
			continue
		}
		tasks = append(tasks, PendingTask{Step: step, Request: req})
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Step.StepOrder != tasks[j].Step.StepOrder {
			return tasks[i].Step.StepOrder < tasks[j].Step.StepOrder
		}
		return tasks[i].Request.RequestedAt.Before(tasks[j].Request.RequestedAt)
	})

	return tasks, nil
}

func (s *ApprovalServiceImpl) ListActions(ctx context.Context, requestID string) ([]ApprovalActionLog, error) {
	req, err := s.Repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.NotFound("approval request %s not found", requestID)
	}
	return s.LogRepo.ListByRequest(ctx, req.ID)
}

// CanAct checks the assignee constraint of a step against an actor. A pinned
// assignee_id narrows the step to that exact user; otherwise the actor's role
// must rank at or above the required role.
func CanAct(actor Actor, step *ApprovalRequestStep) bool {
	if step.AssigneeID != "" {
		return actor.ID == step.AssigneeID
	}
	return actor.Role.Satisfies(role.Role(step.AssigneeRole))
}

func stepStatusFor(action Action) StepStatus {
	switch action {
	case ActionApprove:
		return StepCompleted
	case ActionReject:
		return StepRejected
	case ActionRequestRevision:
		return StepRevisionRequired
	case ActionSkip:
		return StepSkipped
	}
	return StepPending
}

func (s *ApprovalServiceImpl) publish(ctx context.Context, event WorkflowEvent) {
	if s.Notifier != nil {
		s.Notifier.NotifyWorkflowEvent(ctx, event)
	}
	if s.Automation != nil {
		s.Automation.OnWorkflowEvent(ctx, event)
	}
}
