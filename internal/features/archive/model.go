package archive

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArchiveRun records one archival pass. Runs are append-only history, queried
// for operational review.
type ArchiveRun struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StartedAt         time.Time          `bson:"started_at" json:"started_at"`
	CompletedAt       *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Status            string             `bson:"status" json:"status"` // running, success, failed
	InstancesArchived int                `bson:"instances_archived" json:"instances_archived"`
	Error             string             `bson:"error,omitempty" json:"error,omitempty"`
	TriggeredBy       string             `bson:"triggered_by" json:"triggered_by"`
}

// RunInput controls which terminal instances an archival pass picks up.
type RunInput struct {
	// OlderThanDays archives only instances that reached a terminal status at
	// least this many days ago. Zero archives all terminal instances.
	OlderThanDays int `json:"older_than_days"`
}
