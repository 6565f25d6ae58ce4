package automation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ValidationOperator string

const (
	OperatorEquals      ValidationOperator = "equals"
	OperatorNotEquals   ValidationOperator = "not_equals"
	OperatorContains    ValidationOperator = "contains"
	OperatorGreaterThan ValidationOperator = "gt"
	OperatorLessThan    ValidationOperator = "lt"
)

type ActionType string

const (
	ActionWebhook          ActionType = "webhook"
	ActionRunScript        ActionType = "run_script"
	ActionSendNotification ActionType = "send_notification"
)

// RuleCondition is one structured predicate against the flattened event
// payload. Field uses dot paths ("request.status", "step.step_name").
type RuleCondition struct {
	Field    string             `json:"field" bson:"field"`
	Operator ValidationOperator `json:"operator" bson:"operator"`
	Value    interface{}        `json:"value" bson:"value"`
}

type RuleAction struct {
	Type   ActionType             `json:"type" bson:"type"`
	Config map[string]interface{} `json:"config" bson:"config"`
}

// AutomationRule fires actions when a workflow event matches. TriggerEvent is
// one of the workflow event types, or "*" for all. Structured conditions and
// the optional condition script must both pass; the script gets the event as
// a map and must leave its verdict in a `match` variable.
type AutomationRule struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name            string             `json:"name" bson:"name"`
	TriggerEvent    string             `json:"trigger_event" bson:"trigger_event"`
	EntityType      string             `json:"entity_type,omitempty" bson:"entity_type,omitempty"`
	Active          bool               `json:"active" bson:"active"`
	Conditions      []RuleCondition    `json:"conditions" bson:"conditions"`
	ConditionScript string             `json:"condition_script,omitempty" bson:"condition_script,omitempty"`
	Actions         []RuleAction       `json:"actions" bson:"actions"`
	CreatedBy       string             `json:"created_by" bson:"created_by"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreateRuleInput is the create payload.
type CreateRuleInput struct {
	Name            string          `json:"name"`
	TriggerEvent    string          `json:"trigger_event"`
	EntityType      string          `json:"entity_type"`
	Active          *bool           `json:"active"`
	Conditions      []RuleCondition `json:"conditions"`
	ConditionScript string          `json:"condition_script"`
	Actions         []RuleAction    `json:"actions"`
}

// UpdateRuleInput is a partial update; nil fields are left untouched.
type UpdateRuleInput struct {
	Name            *string          `json:"name"`
	TriggerEvent    *string          `json:"trigger_event"`
	EntityType      *string          `json:"entity_type"`
	Active          *bool            `json:"active"`
	Conditions      *[]RuleCondition `json:"conditions"`
	ConditionScript *string          `json:"condition_script"`
	Actions         *[]RuleAction    `json:"actions"`
}
