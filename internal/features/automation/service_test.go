package automation

import (
	"testing"
	"time"

	"go-grc/internal/features/approval"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func samplePayload(t *testing.T) map[string]interface{} {
	t.Helper()
	event := approval.WorkflowEvent{
		Type: approval.EventInstanceApproved,
		Request: approval.ApprovalRequest{
			ID:          primitive.NewObjectID(),
			EntityType:  "audit",
			EntityID:    "audit-7",
			CurrentStep: 2,
			TotalSteps:  2,
			Status:      approval.StatusApproved,
			RequestedBy: "user-req",
		},
		ActorID:   "user-mgr",
		Timestamp: time.Now(),
	}
	payload, err := eventToMap(event)
	if err != nil {
		t.Fatalf("eventToMap: %v", err)
	}
	return payload
}

func TestEvaluateConditions(t *testing.T) {
	payload := samplePayload(t)

	tests := []struct {
		name       string
		conditions []RuleCondition
		want       bool
	}{
		{"no conditions always match", nil, true},
		{"equals on nested field", []RuleCondition{{Field: "request.status", Operator: OperatorEquals, Value: "approved"}}, true},
		{"equals mismatch", []RuleCondition{{Field: "request.status", Operator: OperatorEquals, Value: "rejected"}}, false},
		{"not equals", []RuleCondition{{Field: "request.entity_type", Operator: OperatorNotEquals, Value: "risk"}}, true},
		{"contains", []RuleCondition{{Field: "request.entity_id", Operator: OperatorContains, Value: "audit"}}, true},
		{"greater than", []RuleCondition{{Field: "request.total_steps", Operator: OperatorGreaterThan, Value: 1}}, true},
		{"less than fails", []RuleCondition{{Field: "request.total_steps", Operator: OperatorLessThan, Value: 1}}, false},
		{"missing field fails", []RuleCondition{{Field: "request.nonexistent", Operator: OperatorEquals, Value: "x"}}, false},
		{
			"all conditions must hold",
			[]RuleCondition{
				{Field: "request.status", Operator: OperatorEquals, Value: "approved"},
				{Field: "actor_id", Operator: OperatorEquals, Value: "someone-else"},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluateConditions(tt.conditions, payload); got != tt.want {
				t.Errorf("evaluateConditions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalConditionScript(t *testing.T) {
	payload := samplePayload(t)

	tests := []struct {
		name    string
		script  string
		want    bool
		wantErr bool
	}{
		{"match on status", `match := event.request.status == "approved"`, true, false},
		{"no match", `match := event.request.status == "rejected"`, false, false},
		{"compound expression", `match := event.request.total_steps >= 2 && event.type == "instance_approved"`, true, false},
		{"script without match variable", `x := 1`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalConditionScript(tt.script, payload)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("evalConditionScript: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	webhook := []RuleAction{{Type: ActionWebhook, Config: map[string]interface{}{"url": "https://example.com/hook"}}}

	tests := []struct {
		name    string
		rule    func() (string, string, string, []RuleCondition, []RuleAction)
		wantErr bool
	}{
		{
			"valid rule",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "escalate", "instance_rejected", "", nil, webhook
			},
			false,
		},
		{
			"wildcard trigger",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "log all", "*", "", nil, webhook
			},
			false,
		},
		{
			"unknown trigger",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "bad", "instance_exploded", "", nil, webhook
			},
			true,
		},
		{
			"no actions",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "inert", "*", "", nil, nil
			},
			true,
		},
		{
			"broken condition script",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "bad script", "*", `match := (`, nil, webhook
			},
			true,
		},
		{
			"broken action script",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "bad action", "*", "", nil,
					[]RuleAction{{Type: ActionRunScript, Config: map[string]interface{}{"script": "if {"}}}
			},
			true,
		},
		{
			"unknown operator",
			func() (string, string, string, []RuleCondition, []RuleAction) {
				return "bad op", "*", "", []RuleCondition{{Field: "x", Operator: "regex", Value: "y"}}, webhook
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, trigger, script, conds, actions := tt.rule()
			err := validateRule(name, trigger, script, conds, actions)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateRule error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReplacePlaceholders(t *testing.T) {
	payload := samplePayload(t)

	got := replacePlaceholders("Approval for {{request.entity_id}} is {{request.status}}", payload)
	want := "Approval for audit-7 is approved"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = replacePlaceholders("unknown: {{does.not.exist}}!", payload)
	if got != "unknown: !" {
		t.Errorf("unknown path: got %q", got)
	}
}
