package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ContextKey string

// EntityType is the closed set of business objects an approval workflow can
// target.
type EntityType string

const (
	EntityTypeAudit   EntityType = "audit"
	EntityTypeFinding EntityType = "finding"
	EntityTypeControl EntityType = "control"
	EntityTypeRisk    EntityType = "risk"
)

// ValidEntityType reports whether s names a known entity type.
func ValidEntityType(s string) bool {
	switch EntityType(s) {
	case EntityTypeAudit, EntityTypeFinding, EntityTypeControl, EntityTypeRisk:
		return true
	}
	return false
}

type AuditAction string

const (
	AuditActionCreate   AuditAction = "CREATE"
	AuditActionUpdate   AuditAction = "UPDATE"
	AuditActionDelete   AuditAction = "DELETE"
	AuditActionApproval AuditAction = "APPROVAL"
	AuditActionReport   AuditAction = "REPORT"
	AuditActionArchive  AuditAction = "ARCHIVE"
	AuditActionRule     AuditAction = "RULE"
)

type Change struct {
	Old interface{} `bson:"old" json:"old"`
	New interface{} `bson:"new" json:"new"`
}

// AuditLog is the generic change trail, distinct from the per-instance
// approval action log which lives in the approval feature.
type AuditLog struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Action    AuditAction        `bson:"action" json:"action"`
	Module    string             `bson:"module" json:"module"`
	RecordID  string             `bson:"record_id" json:"record_id"`
	ActorID   string             `bson:"actor_id" json:"actor_id"`
	Changes   map[string]Change  `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// Log is the row shape written by the async zap DB writer.
type Log struct {
	Message      string    `bson:"message" json:"message"`
	Caller       string    `bson:"caller" json:"caller"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
