package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go-grc/internal/common/apperr"
	common_models "go-grc/internal/common/models"
	"go-grc/internal/features/approval"
	"go-grc/internal/features/audit"

	"github.com/d5/tengo/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AutomationService interface {
	approval.AutomationTrigger

	CreateRule(ctx context.Context, actorID string, input CreateRuleInput) (*AutomationRule, error)
	GetRule(ctx context.Context, id string) (*AutomationRule, error)
	ListRules(ctx context.Context) ([]AutomationRule, error)
	UpdateRule(ctx context.Context, actorID string, id string, input UpdateRuleInput) (*AutomationRule, error)
	DeleteRule(ctx context.Context, actorID string, id string) error
}

type AutomationServiceImpl struct {
	Repo           AutomationRepository
	ActionExecutor ActionExecutor
	AuditService   audit.AuditService
	Logger         *zap.Logger
}

func NewAutomationService(repo AutomationRepository, executor ActionExecutor, auditService audit.AuditService, logger *zap.Logger) AutomationService {
	return &AutomationServiceImpl{
		Repo:           repo,
		ActionExecutor: executor,
		AuditService:   auditService,
		Logger:         logger,
	}
}

var validTriggerEvents = map[string]bool{
	"*":                                     true,
	string(approval.EventWorkflowStarted):   true,
	string(approval.EventStepAdvanced):      true,
	string(approval.EventInstanceApproved):  true,
	string(approval.EventInstanceRejected):  true,
	string(approval.EventRevisionRequested): true,
	string(approval.EventResubmitted):       true,
}

func validateRule(name, triggerEvent, conditionScript string, conditions []RuleCondition, actions []RuleAction) error {
	if name == "" {
		return apperr.Validation("name is required")
	}
	if !validTriggerEvents[triggerEvent] {
		return apperr.Validation("unknown trigger_event %q", triggerEvent)
	}
	for i, cond := range conditions {
		if cond.Field == "" {
			return apperr.Validation("condition %d: field is required", i)
		}
		switch cond.Operator {
		case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorGreaterThan, OperatorLessThan:
		default:
			return apperr.Validation("condition %d: unknown operator %q", i, cond.Operator)
		}
	}
	if len(actions) == 0 {
		return apperr.Validation("at least one action is required")
	}
	for i, action := range actions {
		switch action.Type {
		case ActionWebhook, ActionRunScript, ActionSendNotification:
		default:
			return apperr.Validation("action %d: unknown type %q", i, action.Type)
		}
		if action.Type == ActionRunScript {
			script, _ := action.Config["script"].(string)
			if err := compileCheck(script); err != nil {
				return apperr.Validation("action %d: %v", i, err)
			}
		}
	}
	if conditionScript != "" {
		if err := compileCheck(conditionScript); err != nil {
			return apperr.Validation("condition_script: %v", err)
		}
	}
	return nil
}

// compileCheck rejects scripts that would fail at fire time. The event binding
// is stubbed with an empty map so references to it compile.
func compileCheck(script string) error {
	if script == "" {
		return fmt.Errorf("script content is required")
	}
	s := tengo.NewScript([]byte(script))
	if err := s.Add("event", map[string]interface{}{}); err != nil {
		return err
	}
	if _, err := s.Compile(); err != nil {
		return fmt.Errorf("script does not compile: %v", err)
	}
	return nil
}

func (s *AutomationServiceImpl) CreateRule(ctx context.Context, actorID string, input CreateRuleInput) (*AutomationRule, error) {
	if err := validateRule(input.Name, input.TriggerEvent, input.ConditionScript, input.Conditions, input.Actions); err != nil {
		return nil, err
	}

	active := true
	if input.Active != nil {
		active = *input.Active
	}

	now := time.Now()
	rule := &AutomationRule{
		ID:              primitive.NewObjectID(),
		Name:            input.Name,
		TriggerEvent:    input.TriggerEvent,
		EntityType:      input.EntityType,
		Active:          active,
		Conditions:      input.Conditions,
		ConditionScript: input.ConditionScript,
		Actions:         input.Actions,
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rule.Conditions == nil {
		rule.Conditions = []RuleCondition{}
	}

	if err := s.Repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionRule, "automation_rules", rule.ID.Hex(), map[string]common_models.Change{
		"rule": {New: rule},
	})

	return rule, nil
}

func (s *AutomationServiceImpl) GetRule(ctx context.Context, id string) (*AutomationRule, error) {
	rule, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, apperr.NotFound("automation rule %s not found", id)
	}
	return rule, nil
}

func (s *AutomationServiceImpl) ListRules(ctx context.Context) ([]AutomationRule, error) {
	return s.Repo.List(ctx)
}

func (s *AutomationServiceImpl) UpdateRule(ctx context.Context, actorID string, id string, input UpdateRuleInput) (*AutomationRule, error) {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	name := existing.Name
	if input.Name != nil {
		name = *input.Name
	}
	trigger := existing.TriggerEvent
	if input.TriggerEvent != nil {
		trigger = *input.TriggerEvent
	}
	script := existing.ConditionScript
	if input.ConditionScript != nil {
		script = *input.ConditionScript
	}
	conditions := existing.Conditions
	if input.Conditions != nil {
		conditions = *input.Conditions
	}
	actions := existing.Actions
	if input.Actions != nil {
		actions = *input.Actions
	}

	if err := validateRule(name, trigger, script, conditions, actions); err != nil {
		return nil, err
	}

	set := bson.M{
		"name":             name,
		"trigger_event":    trigger,
		"condition_script": script,
		"conditions":       conditions,
		"actions":          actions,
	}
	if input.EntityType != nil {
		set["entity_type"] = *input.EntityType
	}
	if input.Active != nil {
		set["active"] = *input.Active
	}

	if err := s.Repo.Update(ctx, id, set); err != nil {
		return nil, err
	}

	updated, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionRule, "automation_rules", id, map[string]common_models.Change{
		"rule": {Old: existing, New: updated},
	})

	return updated, nil
}

func (s *AutomationServiceImpl) DeleteRule(ctx context.Context, actorID string, id string) error {
	existing, err := s.GetRule(ctx, id)
	if err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}

	_ = s.AuditService.LogChange(ctx, actorID, common_models.AuditActionRule, "automation_rules", id, map[string]common_models.Change{
		"rule": {Old: existing, New: "DELETED"},
	})

	return nil
}

// OnWorkflowEvent matches active rules against a committed transition and
// fires their actions. Rule failures are logged; the event source never sees
// them.
func (s *AutomationServiceImpl) OnWorkflowEvent(ctx context.Context, event approval.WorkflowEvent) {
	rules, err := s.Repo.ListActiveByTrigger(ctx, string(event.Type))
	if err != nil {
		s.Logger.Error("failed to load automation rules", zap.Error(err))
		return
	}
	if len(rules) == 0 {
		return
	}

	payload, err := eventToMap(event)
	if err != nil {
		s.Logger.Error("failed to flatten workflow event", zap.Error(err))
		return
	}

	for _, rule := range rules {
		if rule.EntityType != "" && rule.EntityType != string(event.Request.EntityType) {
			continue
		}
		if !evaluateConditions(rule.Conditions, payload) {
			continue
		}
		if rule.ConditionScript != "" {
			match, err := evalConditionScript(rule.ConditionScript, payload)
			if err != nil {
				s.Logger.Error("automation condition script failed",
					zap.String("rule", rule.Name),
					zap.Error(err))
				continue
			}
			if !match {
				continue
			}
		}

		if err := s.ActionExecutor.ExecuteActions(ctx, rule.Actions, payload); err != nil {
			s.Logger.Error("automation rule execution failed",
				zap.String("rule", rule.Name),
				zap.Error(err))
		}
	}
}

// eventToMap flattens the event through JSON so scripts and conditions see
// the same field names as API clients.
func eventToMap(event approval.WorkflowEvent) (map[string]interface{}, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func evaluateConditions(conditions []RuleCondition, payload map[string]interface{}) bool {
	for _, cond := range conditions {
		val, ok := lookupPath(payload, cond.Field)
		if !ok {
			return false
		}

		match := false
		switch cond.Operator {
		case OperatorEquals:
			match = fmt.Sprintf("%v", val) == fmt.Sprintf("%v", cond.Value)
		case OperatorNotEquals:
			match = fmt.Sprintf("%v", val) != fmt.Sprintf("%v", cond.Value)
		case OperatorContains:
			match = strings.Contains(fmt.Sprintf("%v", val), fmt.Sprintf("%v", cond.Value))
		case OperatorGreaterThan:
			a, aok := toFloat(val)
			b, bok := toFloat(cond.Value)
			match = aok && bok && a > b
		case OperatorLessThan:
			a, aok := toFloat(val)
			b, bok := toFloat(cond.Value)
			match = aok && bok && a < b
		}
		if !match {
			return false
		}
	}
	return true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// evalConditionScript runs the rule's tengo script against the event payload
// and reads the verdict from its `match` variable.
func evalConditionScript(script string, payload map[string]interface{}) (bool, error) {
	s := tengo.NewScript([]byte(script))
	if err := s.Add("event", payload); err != nil {
		return false, err
	}
	compiled, err := s.Compile()
	if err != nil {
		return false, err
	}
	if err := compiled.Run(); err != nil {
		return false, err
	}
	v := compiled.Get("match")
	if v == nil || v.IsUndefined() {
		return false, fmt.Errorf("condition script did not set match")
	}
	return v.Bool(), nil
}
