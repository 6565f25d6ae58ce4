package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/role"
	"go-grc/internal/features/template"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// In-memory fakes honoring the same conditional-update contracts as the
// Mongo repositories: a write whose precondition no longer holds reports
// matched=false instead of applying.

type fakeApprovalRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*ApprovalRequest
}

func newFakeApprovalRepo() *fakeApprovalRepo {
	return &fakeApprovalRepo{requests: map[primitive.ObjectID]*ApprovalRequest{}}
}

func (r *fakeApprovalRepo) CreateWithSteps(ctx context.Context, req *ApprovalRequest, steps []ApprovalRequestStep) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeApprovalRepo) GetByID(ctx context.Context, id string) (*ApprovalRequest, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[oid]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *fakeApprovalRepo) List(ctx context.Context, filter ListFilter) ([]ApprovalRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ApprovalRequest
	for _, req := range r.requests {
		if filter.EntityType != "" && string(req.EntityType) != filter.EntityType {
			continue
		}
		if filter.Status != "" && string(req.Status) != filter.Status {
			continue
		}
		out = append(out, *req)
	}
	return out, int64(len(out)), nil
}

func (r *fakeApprovalRepo) ListNonTerminal(ctx context.Context) ([]ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ApprovalRequest
	for _, req := range r.requests {
		if !req.Status.Terminal() {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) FindActiveByEntity(ctx context.Context, entityType, entityID string) (*ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if string(req.EntityType) == entityType && req.EntityID == entityID && !req.Status.Terminal() {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeApprovalRepo) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, req := range r.requests {
		if req.WorkflowID == templateID {
			n++
		}
	}
	return n, nil
}

func (r *fakeApprovalRepo) Advance(ctx context.Context, id primitive.ObjectID, fromStep int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.CurrentStep != fromStep || req.Status.Terminal() {
		return false, nil
	}
	req.CurrentStep++
	req.Status = StatusInProgress
	return true, nil
}

func (r *fakeApprovalRepo) Finalize(ctx context.Context, id primitive.ObjectID, fromStep int, status RequestStatus, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.CurrentStep != fromStep || req.Status.Terminal() {
		return false, nil
	}
	req.Status = status
	req.CompletedAt = &completedAt
	return true, nil
}

func (r *fakeApprovalRepo) SetStatus(ctx context.Context, id primitive.ObjectID, fromStep int, from []RequestStatus, to RequestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.CurrentStep != fromStep {
		return false, nil
	}
	matched := false
	for _, st := range from {
		if req.Status == st {
			matched = true
		}
	}
	if !matched {
		return false, nil
	}
	req.Status = to
	return true, nil
}

type fakeStepRepo struct {
	mu    sync.Mutex
	steps []*ApprovalRequestStep
}

func (r *fakeStepRepo) seed(steps []ApprovalRequestStep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range steps {
		cp := steps[i]
		r.steps = append(r.steps, &cp)
	}
}

func (r *fakeStepRepo) Get(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (*ApprovalRequestStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.steps {
		if s.RequestID == requestID && s.StepOrder == stepOrder {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeStepRepo) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalRequestStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ApprovalRequestStep
	for _, s := range r.steps {
		if s.RequestID == requestID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeStepRepo) Transition(ctx context.Context, requestID primitive.ObjectID, stepOrder int, to StepStatus, action Action, actorID, comments string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.steps {
		if s.RequestID == requestID && s.StepOrder == stepOrder && s.Status == StepPending {
			s.Status = to
			s.Action = action
			s.ActionBy = actorID
			s.ActionAt = &at
			s.Comments = comments
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStepRepo) ResetToPending(ctx context.Context, requestID primitive.ObjectID, stepOrder int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.steps {
		if s.RequestID == requestID && s.StepOrder == stepOrder && s.Status == StepRevisionRequired {
			s.Status = StepPending
			s.Action = ""
			s.ActionBy = ""
			s.ActionAt = nil
			s.Comments = ""
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStepRepo) ListPendingByRequests(ctx context.Context, requestIDs []primitive.ObjectID) ([]ApprovalRequestStep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[primitive.ObjectID]bool{}
	for _, id := range requestIDs {
		want[id] = true
	}
	var out []ApprovalRequestStep
	for _, s := range r.steps {
		if want[s.RequestID] && s.Status == StepPending {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeLogRepo struct {
	mu   sync.Mutex
	logs []ApprovalActionLog
}

func (r *fakeLogRepo) Append(ctx context.Context, log *ApprovalActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, *log)
	return nil
}

func (r *fakeLogRepo) ListByRequest(ctx context.Context, requestID primitive.ObjectID) ([]ApprovalActionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ApprovalActionLog
	for _, l := range r.logs {
		if l.RequestID == requestID {
			out = append(out, l)
		}
	}
	return out, nil
}

type fakeTemplates struct {
	templates map[string]*template.WorkflowTemplate
}

func (f *fakeTemplates) GetTemplate(ctx context.Context, id string) (*template.WorkflowTemplate, error) {
	tmpl, ok := f.templates[id]
	if !ok {
		return nil, apperr.NotFound("template %s not found", id)
	}
	return tmpl, nil
}

func (f *fakeTemplates) ListTemplates(ctx context.Context, filter template.ListFilter) ([]template.WorkflowTemplate, int64, error) {
	return nil, 0, nil
}

func (f *fakeTemplates) CreateTemplate(ctx context.Context, actorID string, input template.CreateTemplateInput) (*template.WorkflowTemplate, error) {
	return nil, nil
}

func (f *fakeTemplates) UpdateTemplate(ctx context.Context, actorID string, id string, input template.UpdateTemplateInput) (*template.WorkflowTemplate, error) {
	return nil, nil
}

func (f *fakeTemplates) DeleteTemplate(ctx context.Context, actorID string, id string) error {
	return nil
}

type fakeAudit struct{}

func (fakeAudit) LogChange(ctx context.Context, actorID string, action common_models.AuditAction, module string, recordID string, changes map[string]common_models.Change) error {
	return nil
}

func (fakeAudit) ListLogs(ctx context.Context, filters map[string]interface{}, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type captureSink struct {
	mu     sync.Mutex
	events []WorkflowEvent
}

func (c *captureSink) NotifyWorkflowEvent(ctx context.Context, event WorkflowEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) OnWorkflowEvent(ctx context.Context, event WorkflowEvent) {}

func (c *captureSink) types() []EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []EventType
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

type engineFixture struct {
	svc      ApprovalService
	repo     *fakeApprovalRepo
	steps    *fakeStepRepo
	logs     *fakeLogRepo
	sink     *captureSink
	template *template.WorkflowTemplate
}

func newEngineFixture(t *testing.T, steps []template.StepTemplate) *engineFixture {
	t.Helper()

	tmpl := &template.WorkflowTemplate{
		ID:         primitive.NewObjectID(),
		Name:       "Audit Closure Review",
		EntityType: common_models.EntityTypeAudit,
		IsActive:   true,
		Steps:      steps,
	}

	repo := newFakeApprovalRepo()
	stepRepo := &fakeStepRepo{}
	logRepo := &fakeLogRepo{}
	sink := &captureSink{}

	// CreateWithSteps on the real repo also persists steps; the fake splits
	// the two stores, so mirror the insert here.
	wrapped := &seedingRepo{fakeApprovalRepo: repo, steps: stepRepo}

	svc := NewApprovalService(
		wrapped, stepRepo, logRepo,
		&fakeTemplates{templates: map[string]*template.WorkflowTemplate{tmpl.ID.Hex(): tmpl}},
		fakeAudit{}, sink, sink, zap.NewNop(),
	)

	return &engineFixture{svc: svc, repo: repo, steps: stepRepo, logs: logRepo, sink: sink, template: tmpl}
}

type seedingRepo struct {
	*fakeApprovalRepo
	steps *fakeStepRepo
}

func (r *seedingRepo) CreateWithSteps(ctx context.Context, req *ApprovalRequest, steps []ApprovalRequestStep) error {
	if err := r.fakeApprovalRepo.CreateWithSteps(ctx, req, steps); err != nil {
		return err
	}
	r.steps.seed(steps)
	return nil
}

func twoStepTemplate() []template.StepTemplate {
	return []template.StepTemplate{
		{StepOrder: 1, StepName: "Reviewer sign-off", AssigneeRole: string(role.RoleReviewer), Required: true},
		{StepOrder: 2, StepName: "Manager sign-off", AssigneeRole: string(role.RoleManager), Required: true},
	}
}

var (
	requester = Actor{ID: "user-req", Role: role.RoleContributor}
	reviewer  = Actor{ID: "user-rev", Role: role.RoleReviewer}
	manager   = Actor{ID: "user-mgr", Role: role.RoleManager}
	admin     = Actor{ID: "user-adm", Role: role.RoleAdmin}
	viewer    = Actor{ID: "user-view", Role: role.RoleViewer}
)

func startInstance(t *testing.T, f *engineFixture) *ApprovalRequest {
	t.Helper()
	req, err := f.svc.StartWorkflow(context.Background(), requester, StartWorkflowInput{
		EntityType: string(common_models.EntityTypeAudit),
		EntityID:   "audit-1",
		WorkflowID: f.template.ID.Hex(),
	})
	if err != nil {
		t.Fatalf("StartWorkflow: %v", err)
	}
	return req
}

func TestStartWorkflowClonesSteps(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)

	if req.Status != StatusPendingApproval {
		t.Errorf("status = %s, want %s", req.Status, StatusPendingApproval)
	}
	if req.CurrentStep != 1 || req.TotalSteps != 2 {
		t.Errorf("pointer = %d/%d, want 1/2", req.CurrentStep, req.TotalSteps)
	}

	steps, _ := f.steps.ListByRequest(context.Background(), req.ID)
	if len(steps) != 2 {
		t.Fatalf("cloned %d steps, want 2", len(steps))
	}
	for _, s := range steps {
		if s.Status != StepPending {
			t.Errorf("step %d status = %s, want pending", s.StepOrder, s.Status)
		}
	}

	// Cloned steps are copies: editing the template later must not touch them.
	f.template.Steps[0].AssigneeRole = string(role.RoleAdmin)
	steps, _ = f.steps.ListByRequest(context.Background(), req.ID)
	if steps[0].AssigneeRole != string(role.RoleReviewer) {
		t.Errorf("step snapshot leaked template mutation: role = %s", steps[0].AssigneeRole)
	}
}

func TestStartWorkflowValidation(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())

	tests := []struct {
		name  string
		input StartWorkflowInput
		setup func()
		kind  apperr.Kind
	}{
		{
			name:  "unknown template",
			input: StartWorkflowInput{EntityType: "audit", EntityID: "a1", WorkflowID: primitive.NewObjectID().Hex()},
			kind:  apperr.KindNotFound,
		},
		{
			name:  "bad entity type",
			input: StartWorkflowInput{EntityType: "invoice", EntityID: "a1", WorkflowID: f.template.ID.Hex()},
			kind:  apperr.KindValidation,
		},
		{
			name:  "entity type mismatch",
			input: StartWorkflowInput{EntityType: "risk", EntityID: "a1", WorkflowID: f.template.ID.Hex()},
			kind:  apperr.KindValidation,
		},
		{
			name:  "inactive template",
			input: StartWorkflowInput{EntityType: "audit", EntityID: "a1", WorkflowID: f.template.ID.Hex()},
			setup: func() { f.template.IsActive = false },
			kind:  apperr.KindValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := f.svc.StartWorkflow(context.Background(), requester, tt.input)
			if apperr.KindOf(err) != tt.kind {
				t.Errorf("kind = %v, want %v (err %v)", apperr.KindOf(err), tt.kind, err)
			}
		})
	}
}

func TestStartWorkflowRejectsZeroStepTemplate(t *testing.T) {
	f := newEngineFixture(t, nil)
	_, err := f.svc.StartWorkflow(context.Background(), requester, StartWorkflowInput{
		EntityType: "audit", EntityID: "a1", WorkflowID: f.template.ID.Hex(),
	})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for zero-step template, got %v", err)
	}
}

func TestStartWorkflowOneActiveInstancePerEntity(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	startInstance(t, f)

	_, err := f.svc.StartWorkflow(context.Background(), requester, StartWorkflowInput{
		EntityType: "audit", EntityID: "audit-1", WorkflowID: f.template.ID.Hex(),
	})
	if !apperr.IsConflict(err) {
		t.Fatalf("expected conflict for duplicate active instance, got %v", err)
	}
}

// Full happy path: reviewer approves step 1, manager approves step 2, the
// instance lands on approved with a two-row action log.
func TestApproveChainToApproved(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{Comments: "looks good"}); err != nil {
		t.Fatalf("step 1 approve: %v", err)
	}
	mid, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if mid.Status != StatusInProgress || mid.CurrentStep != 2 {
		t.Fatalf("after step 1: status=%s step=%d, want in_progress/2", mid.Status, mid.CurrentStep)
	}

	if err := f.svc.Approve(ctx, manager, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("step 2 approve: %v", err)
	}
	final, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if final.Status != StatusApproved {
		t.Fatalf("final status = %s, want approved", final.Status)
	}
	if final.CompletedAt == nil {
		t.Error("completed_at not set on terminal instance")
	}

	logs, _ := f.logs.ListByRequest(ctx, req.ID)
	if len(logs) != 2 {
		t.Fatalf("action log rows = %d, want 2", len(logs))
	}
	if logs[0].PerformerID != reviewer.ID || logs[0].Action != ActionApprove {
		t.Errorf("log[0] = %s/%s", logs[0].PerformerID, logs[0].Action)
	}
	if logs[0].Comments != "looks good" {
		t.Errorf("log[0] comments = %q", logs[0].Comments)
	}
}

func TestRejectTerminatesImmediately(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Reject(ctx, reviewer, req.ID.Hex(), DecisionInput{Comments: "evidence missing"}); err != nil {
		t.Fatalf("reject: %v", err)
	}
	got, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if got.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", got.Status)
	}
	// Remaining steps are untouched; the instance is simply done.
	steps, _ := f.steps.ListByRequest(ctx, req.ID)
	if steps[1].Status != StepPending {
		t.Errorf("step 2 status = %s, want pending (unvisited)", steps[1].Status)
	}

	if err := f.svc.Approve(ctx, manager, req.ID.Hex(), DecisionInput{}); !apperr.IsConflict(err) {
		t.Errorf("decision on terminal instance: got %v, want conflict", err)
	}
}

func TestSkipStep(t *testing.T) {
	steps := []template.StepTemplate{
		{StepOrder: 1, StepName: "Optional pre-check", AssigneeRole: string(role.RoleReviewer), Required: false},
		{StepOrder: 2, StepName: "Manager sign-off", AssigneeRole: string(role.RoleManager), Required: true},
	}
	f := newEngineFixture(t, steps)
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.SkipStep(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("skip optional step: %v", err)
	}
	got, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if got.CurrentStep != 2 {
		t.Fatalf("current_step = %d, want 2", got.CurrentStep)
	}

	if err := f.svc.SkipStep(ctx, manager, req.ID.Hex(), DecisionInput{}); !apperr.IsValidation(err) {
		t.Fatalf("skip required step: got %v, want validation error", err)
	}
}

// A chain of only optional steps, all skipped, still resolves to approved.
func TestAllSkippedResolvesApproved(t *testing.T) {
	steps := []template.StepTemplate{
		{StepOrder: 1, StepName: "First look", AssigneeRole: string(role.RoleReviewer), Required: false},
		{StepOrder: 2, StepName: "Second look", AssigneeRole: string(role.RoleReviewer), Required: false},
	}
	f := newEngineFixture(t, steps)
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.SkipStep(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("skip 1: %v", err)
	}
	if err := f.svc.SkipStep(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("skip 2: %v", err)
	}

	got, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if got.Status != StatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
}

func TestRevisionRoundTrip(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.RequestRevision(ctx, reviewer, req.ID.Hex(), DecisionInput{Comments: "please add scope"}); err != nil {
		t.Fatalf("request revision: %v", err)
	}
	got, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if got.Status != StatusRevisionRequired {
		t.Fatalf("status = %s, want revision_required", got.Status)
	}
	if got.CurrentStep != 1 {
		t.Fatalf("current_step moved to %d during revision", got.CurrentStep)
	}

	// No decision is possible while the instance awaits resubmission.
	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); !apperr.IsConflict(err) {
		t.Fatalf("approve during revision: got %v, want conflict", err)
	}

	// Only the requester can resubmit.
	if err := f.svc.Resubmit(ctx, reviewer, req.ID.Hex(), ""); !apperr.IsAuthorization(err) {
		t.Fatalf("resubmit by non-requester: got %v, want authorization error", err)
	}

	if err := f.svc.Resubmit(ctx, requester, req.ID.Hex(), "scope added"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	got, _ = f.repo.GetByID(ctx, req.ID.Hex())
	if got.Status != StatusInProgress || got.CurrentStep != 1 {
		t.Fatalf("after resubmit: status=%s step=%d, want in_progress/1", got.Status, got.CurrentStep)
	}
	step, _ := f.steps.Get(ctx, req.ID, 1)
	if step.Status != StepPending || step.ActionBy != "" {
		t.Fatalf("step not reset: status=%s action_by=%q", step.Status, step.ActionBy)
	}

	// The same step can now be decided again.
	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("approve after resubmit: %v", err)
	}

	logs, _ := f.logs.ListByRequest(ctx, req.ID)
	wantActions := []Action{ActionRequestRevision, ActionResubmit, ActionApprove}
	if len(logs) != len(wantActions) {
		t.Fatalf("log rows = %d, want %d", len(logs), len(wantActions))
	}
	for i, want := range wantActions {
		if logs[i].Action != want {
			t.Errorf("log[%d].Action = %s, want %s", i, logs[i].Action, want)
		}
	}
}

func TestResubmitRequiresRevisionState(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)

	if err := f.svc.Resubmit(context.Background(), requester, req.ID.Hex(), ""); !apperr.IsConflict(err) {
		t.Fatalf("resubmit on pending instance: got %v, want conflict", err)
	}
}

func TestAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		actor   Actor
		wantErr bool
	}{
		{"exact role", reviewer, false},
		{"higher role satisfies", admin, false},
		{"lower role denied", viewer, true},
		{"contributor denied", requester, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, twoStepTemplate())
			req := startInstance(t, f)
			err := f.svc.Approve(context.Background(), tt.actor, req.ID.Hex(), DecisionInput{})
			if tt.wantErr {
				if !apperr.IsAuthorization(err) {
					t.Fatalf("got %v, want authorization error", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

// A pinned assignee narrows the step to that user: role rank no longer helps.
func TestPinnedAssignee(t *testing.T) {
	steps := []template.StepTemplate{
		{StepOrder: 1, StepName: "Named sign-off", AssigneeRole: string(role.RoleReviewer), AssigneeID: "user-rev", Required: true},
	}
	f := newEngineFixture(t, steps)
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, admin, req.ID.Hex(), DecisionInput{}); !apperr.IsAuthorization(err) {
		t.Fatalf("admin on pinned step: got %v, want authorization error", err)
	}
	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("pinned user approve: %v", err)
	}
}

// Two deciders against the same pending step: the first wins, the second
// conflicts. The step repository's pending-only conditional write is what
// prevents a double apply.
func TestConcurrentDecisionLoserConflicts(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{ExpectedStep: 1}); err != nil {
		t.Fatalf("winner: %v", err)
	}
	err := f.svc.Reject(ctx, admin, req.ID.Hex(), DecisionInput{ExpectedStep: 1})
	if !apperr.IsConflict(err) {
		t.Fatalf("loser: got %v, want conflict", err)
	}

	// The winner's outcome stands untouched.
	got, _ := f.repo.GetByID(ctx, req.ID.Hex())
	if got.Status != StatusInProgress || got.CurrentStep != 2 {
		t.Fatalf("instance = %s/%d, want in_progress/2", got.Status, got.CurrentStep)
	}
	step, _ := f.steps.Get(ctx, req.ID, 1)
	if step.Action != ActionApprove || step.ActionBy != reviewer.ID {
		t.Fatalf("step 1 = %s by %s, want approve by %s", step.Action, step.ActionBy, reviewer.ID)
	}
	logs, _ := f.logs.ListByRequest(ctx, req.ID)
	if len(logs) != 1 {
		t.Fatalf("log rows = %d, want 1 (loser must not log)", len(logs))
	}
}

func TestExpectedStepToken(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	// A caller still holding step 1 gets a conflict instead of silently
	// acting on step 2.
	err := f.svc.Approve(ctx, manager, req.ID.Hex(), DecisionInput{ExpectedStep: 1})
	if !apperr.IsConflict(err) {
		t.Fatalf("stale token: got %v, want conflict", err)
	}
	if err := f.svc.Approve(ctx, manager, req.ID.Hex(), DecisionInput{ExpectedStep: 2}); err != nil {
		t.Fatalf("fresh token: %v", err)
	}
}

func TestDecisionOnMissingRequest(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	err := f.svc.Approve(context.Background(), reviewer, primitive.NewObjectID().Hex(), DecisionInput{})
	if !apperr.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestGetInstanceDetail(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{Comments: "ok"}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	detail, err := f.svc.GetInstance(ctx, req.ID.Hex())
	if err != nil {
		t.Fatalf("GetInstance: %v", err)
	}
	if len(detail.Steps) != 2 || len(detail.Actions) != 1 {
		t.Fatalf("detail: %d steps, %d actions; want 2/1", len(detail.Steps), len(detail.Actions))
	}
	if detail.Steps[0].Status != StepCompleted {
		t.Errorf("step 1 status = %s, want completed", detail.Steps[0].Status)
	}
}

func TestListMyPendingSteps(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	// Step 1 (reviewer) is current: reviewer sees it, manager does not see
	// the not-yet-current step 2, viewer sees nothing.
	tasks, err := f.svc.ListMyPendingSteps(ctx, reviewer)
	if err != nil {
		t.Fatalf("ListMyPendingSteps: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Step.StepOrder != 1 {
		t.Fatalf("reviewer tasks = %+v, want exactly step 1", tasks)
	}

	tasks, _ = f.svc.ListMyPendingSteps(ctx, manager)
	// Manager outranks reviewer, so step 1 is actionable for them too.
	if len(tasks) != 1 {
		t.Fatalf("manager tasks = %d, want 1", len(tasks))
	}

	tasks, _ = f.svc.ListMyPendingSteps(ctx, viewer)
	if len(tasks) != 0 {
		t.Fatalf("viewer tasks = %d, want 0", len(tasks))
	}

	// After step 1 resolves, only step 2 (manager) remains a task.
	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	tasks, _ = f.svc.ListMyPendingSteps(ctx, reviewer)
	if len(tasks) != 0 {
		t.Fatalf("reviewer tasks after advance = %d, want 0", len(tasks))
	}
	tasks, _ = f.svc.ListMyPendingSteps(ctx, manager)
	if len(tasks) != 1 || tasks[0].Step.StepOrder != 2 {
		t.Fatalf("manager tasks after advance = %+v, want step 2", tasks)
	}
}

func TestEventsPublishedPerTransition(t *testing.T) {
	f := newEngineFixture(t, twoStepTemplate())
	req := startInstance(t, f)
	ctx := context.Background()

	if err := f.svc.Approve(ctx, reviewer, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("approve 1: %v", err)
	}
	if err := f.svc.Approve(ctx, manager, req.ID.Hex(), DecisionInput{}); err != nil {
		t.Fatalf("approve 2: %v", err)
	}

	want := []EventType{EventWorkflowStarted, EventStepAdvanced, EventInstanceApproved}
	got := f.sink.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
