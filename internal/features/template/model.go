package template

import (
	"time"

	common_models "go-grc/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WorkflowTemplate is a named, reusable approval definition for one entity
// type. Steps are embedded and replaced wholesale on update; running
// instances hold their own cloned copies, so template edits never touch
// in-flight approvals.
type WorkflowTemplate struct {
	ID          primitive.ObjectID       `bson:"_id,omitempty" json:"id"`
	Name        string                   `bson:"name" json:"name"`
	Description string                   `bson:"description,omitempty" json:"description,omitempty"`
	EntityType  common_models.EntityType `bson:"entity_type" json:"entity_type"`
	IsActive    bool                     `bson:"is_active" json:"is_active"`
	Steps       []StepTemplate           `bson:"steps" json:"steps"`
	CreatedBy   string                   `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time                `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time                `bson:"updated_at" json:"updated_at"`
}

// StepTemplate is one ordered step within a template. StepOrder values must
// form a gapless 1..N sequence; the engine advances by integer increment.
type StepTemplate struct {
	StepOrder    int    `bson:"step_order" json:"step_order"`
	StepName     string `bson:"step_name" json:"step_name"`
	AssigneeRole string `bson:"assignee_role" json:"assignee_role"`
	AssigneeID   string `bson:"assignee_id,omitempty" json:"assignee_id,omitempty"` // pins the step to one user
	Required     bool   `bson:"required" json:"required"`
}

// CreateTemplateInput is the create payload.
type CreateTemplateInput struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	EntityType  string         `json:"entity_type"`
	IsActive    *bool          `json:"is_active"`
	Steps       []StepTemplate `json:"steps"`
}

// UpdateTemplateInput is a partial update; nil fields are left untouched.
// Steps, when supplied, replace the existing list wholesale.
type UpdateTemplateInput struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	EntityType  *string         `json:"entity_type"`
	IsActive    *bool           `json:"is_active"`
	Steps       *[]StepTemplate `json:"steps"`
}

// ListFilter narrows ListTemplates.
type ListFilter struct {
	EntityType string
	Search     string
	Page       int64
	Limit      int64
}
