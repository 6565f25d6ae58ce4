package report

import (
	"strings"
	"testing"
	"time"

	"go-grc/internal/common/apperr"
	"go-grc/internal/features/approval"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleRequests() []approval.ApprovalRequest {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	done := base.Add(48 * time.Hour)
	return []approval.ApprovalRequest{
		{
			ID:          primitive.NewObjectID(),
			EntityType:  "audit",
			EntityID:    "audit-1",
			WorkflowID:  "wf-1",
			CurrentStep: 2,
			TotalSteps:  2,
			Status:      approval.StatusApproved,
			RequestedBy: "user-a",
			RequestedAt: base,
			CompletedAt: &done,
		},
		{
			ID:          primitive.NewObjectID(),
			EntityType:  "risk",
			EntityID:    "risk-9",
			WorkflowID:  "wf-2",
			CurrentStep: 1,
			TotalSteps:  3,
			Status:      approval.StatusInProgress,
			RequestedBy: "user-b",
			RequestedAt: base.Add(240 * time.Hour),
		},
	}
}

func TestInstanceSummaryRows(t *testing.T) {
	columns, rows, err := instanceSummaryRows(sampleRequests())
	if err != nil {
		t.Fatalf("instanceSummaryRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["status"] != approval.StatusApproved {
		t.Errorf("row 0 status = %v", rows[0]["status"])
	}
	if _, ok := rows[1]["completed_at"]; ok {
		t.Error("open instance should not carry completed_at")
	}
	if columns[0] != "id" {
		t.Errorf("columns = %v", columns)
	}
}

func TestFilterByWindow(t *testing.T) {
	requests := sampleRequests()
	cut := requests[0].RequestedAt.Add(time.Hour)

	got := filterByWindow(requests, nil, &cut)
	if len(got) != 1 || got[0].EntityID != "audit-1" {
		t.Fatalf("to-filter: got %d rows", len(got))
	}

	got = filterByWindow(requests, &cut, nil)
	if len(got) != 1 || got[0].EntityID != "risk-9" {
		t.Fatalf("from-filter: got %d rows", len(got))
	}

	got = filterByWindow(requests, nil, nil)
	if len(got) != 2 {
		t.Fatalf("no window: got %d rows", len(got))
	}
}

func TestExportToCSV(t *testing.T) {
	columns, rows, err := instanceSummaryRows(sampleRequests())
	if err != nil {
		t.Fatalf("instanceSummaryRows: %v", err)
	}

	data, err := exportToCSV(columns, rows)
	if err != nil {
		t.Fatalf("exportToCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,entity_type,entity_id") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "audit-1") || !strings.Contains(lines[1], "approved") {
		t.Errorf("row 1 = %q", lines[1])
	}
	// ObjectIDs must render as hex, not as struct dumps.
	if strings.Contains(lines[1], "ObjectID") {
		t.Errorf("row 1 leaks ObjectID formatting: %q", lines[1])
	}
}

func TestExportToExcel(t *testing.T) {
	columns, rows, err := instanceSummaryRows(sampleRequests())
	if err != nil {
		t.Fatalf("instanceSummaryRows: %v", err)
	}

	data, filename, err := exportToExcel(columns, rows, "weekly_audit")
	if err != nil {
		t.Fatalf("exportToExcel: %v", err)
	}
	if filename != "weekly_audit.xlsx" {
		t.Errorf("filename = %q", filename)
	}
	if len(data) == 0 {
		t.Error("empty workbook")
	}
}

func TestValidateReportInput(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateReportInput
		wantErr bool
	}{
		{"valid", CreateReportInput{Name: "Weekly", ReportType: ReportTypeInstanceSummary}, false},
		{"valid with filter", CreateReportInput{Name: "Audits", ReportType: ReportTypeApprovalActivity, Filters: ReportFilters{EntityType: "audit"}}, false},
		{"missing name", CreateReportInput{ReportType: ReportTypeInstanceSummary}, true},
		{"bad type", CreateReportInput{Name: "x", ReportType: "pivot"}, true},
		{"bad entity type", CreateReportInput{Name: "x", ReportType: ReportTypeInstanceSummary, Filters: ReportFilters{EntityType: "invoice"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReportInput(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperr.IsValidation(err) {
				t.Errorf("error kind: %v", err)
			}
		})
	}
}
