package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportType string

const (
	// ReportTypeInstanceSummary lists approval instances with their state.
	ReportTypeInstanceSummary ReportType = "instance_summary"
	// ReportTypeApprovalActivity lists individual decisions from the action
	// logs of matching instances.
	ReportTypeApprovalActivity ReportType = "approval_activity"
)

// ReportFilters narrows which instances feed a report.
type ReportFilters struct {
	EntityType string     `json:"entity_type,omitempty" bson:"entity_type,omitempty"`
	Status     string     `json:"status,omitempty" bson:"status,omitempty"`
	From       *time.Time `json:"from,omitempty" bson:"from,omitempty"`
	To         *time.Time `json:"to,omitempty" bson:"to,omitempty"`
}

// Report is a saved report configuration.
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	ReportType  ReportType         `json:"report_type" bson:"report_type"`
	Filters     ReportFilters      `json:"filters" bson:"filters"`
	CreatedBy   string             `json:"created_by" bson:"created_by"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// ReportSchedule runs a saved report on a cron expression and notifies the
// recipient when the export is ready.
type ReportSchedule struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportID  primitive.ObjectID `json:"report_id" bson:"report_id"`
	Schedule  string             `json:"schedule" bson:"schedule"` // standard 5-field cron expression
	Format    string             `json:"format" bson:"format"`     // csv or xlsx
	Recipient string             `json:"recipient" bson:"recipient"`
	Active    bool               `json:"active" bson:"active"`
	LastRun   *time.Time         `json:"last_run,omitempty" bson:"last_run,omitempty"`
	NextRun   *time.Time         `json:"next_run,omitempty" bson:"next_run,omitempty"`
	CreatedBy string             `json:"created_by" bson:"created_by"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// CreateReportInput is the create payload.
type CreateReportInput struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ReportType  ReportType    `json:"report_type"`
	Filters     ReportFilters `json:"filters"`
}

// CreateScheduleInput is the schedule create payload.
type CreateScheduleInput struct {
	ReportID  string `json:"report_id"`
	Schedule  string `json:"schedule"`
	Format    string `json:"format"`
	Recipient string `json:"recipient"`
	Active    *bool  `json:"active"`
}
