package approval

import (
	"time"

	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/role"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the instance-level lifecycle.
// pending_approval -> in_progress -> {approved | rejected | cancelled},
// with revision_required as a recoverable side branch at the same step.
type RequestStatus string

const (
	StatusPendingApproval  RequestStatus = "pending_approval"
	StatusInProgress       RequestStatus = "in_progress"
	StatusApproved         RequestStatus = "approved"
	StatusRejected         RequestStatus = "rejected"
	StatusRevisionRequired RequestStatus = "revision_required"
	StatusCancelled        RequestStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// NonTerminalStatuses is used in queries that must only touch live instances.
var NonTerminalStatuses = []RequestStatus{StatusPendingApproval, StatusInProgress, StatusRevisionRequired}

// StepStatus is the per-step lifecycle. A step leaves pending exactly once;
// only a requester resubmission after revision_required puts it back.
type StepStatus string

const (
	StepPending          StepStatus = "pending"
	StepCompleted        StepStatus = "completed"
	StepSkipped          StepStatus = "skipped"
	StepRejected         StepStatus = "rejected"
	StepRevisionRequired StepStatus = "revision_required"
)

// Action is one recorded decision against a step.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
	ActionSkip            Action = "skip"
	ActionResubmit        Action = "resubmit"
)

// Actor is the authenticated identity a transition runs as. It is passed
// explicitly into every engine call so the authorization precondition is
// testable without ambient session state.
type Actor struct {
	ID   string
	Role role.Role
}

// ApprovalRequest is one run of a template against one entity.
type ApprovalRequest struct {
	ID          primitive.ObjectID       `bson:"_id,omitempty" json:"id"`
	EntityType  common_models.EntityType `bson:"entity_type" json:"entity_type"`
	EntityID    string                   `bson:"entity_id" json:"entity_id"`
	WorkflowID  string                   `bson:"workflow_id" json:"workflow_id"`
	CurrentStep int                      `bson:"current_step" json:"current_step"` // 1-based pointer into the step sequence
	TotalSteps  int                      `bson:"total_steps" json:"total_steps"`
	Status      RequestStatus            `bson:"status" json:"status"`
	RequestedBy string                   `bson:"requested_by" json:"requested_by"`
	RequestedAt time.Time                `bson:"requested_at" json:"requested_at"`
	CompletedAt *time.Time               `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// ApprovalRequestStep is the per-instance materialized copy of a template
// step. Cloned at instance creation; evolves independently of the template.
type ApprovalRequestStep struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID    primitive.ObjectID `bson:"request_id" json:"request_id"`
	StepOrder    int                `bson:"step_order" json:"step_order"`
	StepName     string             `bson:"step_name" json:"step_name"`
	AssigneeRole string             `bson:"assignee_role" json:"assignee_role"`
	AssigneeID   string             `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"`
	Required     bool               `bson:"required" json:"required"`
	Status       StepStatus         `bson:"status" json:"status"`
	Action       Action             `bson:"action,omitempty" json:"action,omitempty"`
	ActionBy     string             `bson:"action_by,omitempty" json:"action_by,omitempty"`
	ActionAt     *time.Time         `bson:"action_at,omitempty" json:"action_at,omitempty"`
	Comments     string             `bson:"comments,omitempty" json:"comments,omitempty"`
}

// ApprovalActionLog is the append-only audit trail of decisions. Rows are
// never updated or deleted.
type ApprovalActionLog struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID   primitive.ObjectID `bson:"request_id" json:"request_id"`
	StepID      primitive.ObjectID `bson:"step_id,omitempty" json:"step_id,omitempty"`
	PerformerID string             `bson:"performer_id" json:"performer_id"`
	Action      Action             `bson:"action" json:"action"`
	Comments    string             `bson:"comments,omitempty" json:"comments,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// StartWorkflowInput starts a new approval run.
type StartWorkflowInput struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	WorkflowID string `json:"workflow_id"`
}

// DecisionInput carries the optional comment plus an optional optimistic
// concurrency token: when ExpectedStep is non-zero and does not match the
// instance's current step, the decision fails with a conflict instead of
// silently acting on whatever became current.
type DecisionInput struct {
	Comments     string `json:"comments"`
	ExpectedStep int    `json:"expected_step"`
}

// InstanceDetail is the full fetch: instance + ordered steps + chronological
// action log.
type InstanceDetail struct {
	ApprovalRequest
	Steps   []ApprovalRequestStep `json:"steps"`
	Actions []ApprovalActionLog   `json:"actions"`
}

// PendingTask is one inbox row: a step awaiting the caller.
type PendingTask struct {
	Step    ApprovalRequestStep `json:"step"`
	Request ApprovalRequest     `json:"request"`
}

// ListFilter narrows ListInstances.
type ListFilter struct {
	EntityType string
	Status     string
	Page       int64
	Limit      int64
}

// EventType classifies a workflow event published after a transition commits.
type EventType string

const (
	EventStepAdvanced      EventType = "step_advanced"
	EventInstanceApproved  EventType = "instance_approved"
	EventInstanceRejected  EventType = "instance_rejected"
	EventRevisionRequested EventType = "revision_requested"
	EventResubmitted       EventType = "resubmitted"
	EventWorkflowStarted   EventType = "workflow_started"
)

// WorkflowEvent is the best-effort fan-out payload. Consumers must never
// treat it as authoritative for whether a transition occurred.
type WorkflowEvent struct {
	Type      EventType            `json:"type"`
	Request   ApprovalRequest      `json:"request"`
	Step      *ApprovalRequestStep `json:"step,omitempty"`      // the step the action ran against
	NextStep  *ApprovalRequestStep `json:"next_step,omitempty"` // set on step_advanced: the newly current step
	ActorID   string               `json:"actor_id"`
	Comments  string               `json:"comments,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}
