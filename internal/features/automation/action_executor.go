package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go-grc/internal/features/notification"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"
)

// ActionExecutor runs the actions of a matched rule. Each action failure is
// logged and does not stop the remaining actions.
type ActionExecutor interface {
	ExecuteActions(ctx context.Context, actions []RuleAction, event map[string]interface{}) error
	ExecuteAction(ctx context.Context, action RuleAction, event map[string]interface{}) error
}

type ActionExecutorImpl struct {
	notificationService notification.NotificationService
	httpClient          *http.Client
	logger              *zap.Logger
}

func NewActionExecutor(notificationService notification.NotificationService, logger *zap.Logger) ActionExecutor {
	return &ActionExecutorImpl{
		notificationService: notificationService,
		httpClient:          &http.Client{Timeout: 30 * time.Second},
		logger:              logger,
	}
}

func (e *ActionExecutorImpl) ExecuteActions(ctx context.Context, actions []RuleAction, event map[string]interface{}) error {
	for i, action := range actions {
		if err := e.ExecuteAction(ctx, action, event); err != nil {
			e.logger.Error("automation action failed",
				zap.Int("action_index", i),
				zap.String("action_type", string(action.Type)),
				zap.Error(err))
		}
	}
	return nil
}

func (e *ActionExecutorImpl) ExecuteAction(ctx context.Context, action RuleAction, event map[string]interface{}) error {
	switch action.Type {
	case ActionWebhook:
		return e.executeWebhook(ctx, action.Config, event)
	case ActionRunScript:
		return e.executeRunScript(action.Config, event)
	case ActionSendNotification:
		return e.executeSendNotification(ctx, action.Config, event)
	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) executeWebhook(ctx context.Context, config map[string]interface{}, event map[string]interface{}) error {
	url, _ := config["url"].(string)
	method, _ := config["method"].(string)

	if url == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if method == "" {
		method = http.MethodPost
	}

	payload := map[string]interface{}{
		"event":     event,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if headers, ok := config["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (e *ActionExecutorImpl) executeRunScript(config map[string]interface{}, event map[string]interface{}) error {
	scriptContent, _ := config["script"].(string)
	if scriptContent == "" {
		return fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(scriptContent))
	if err := script.Add("event", event); err != nil {
		return fmt.Errorf("failed to bind event: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("failed to compile script: %w", err)
	}
	if err := compiled.Run(); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}

func (e *ActionExecutorImpl) executeSendNotification(ctx context.Context, config map[string]interface{}, event map[string]interface{}) error {
	userID, _ := config["user_id"].(string)
	title, _ := config["title"].(string)
	message, _ := config["message"].(string)

	if userID == "" {
		return fmt.Errorf("notification user_id is required")
	}
	if title == "" {
		title = "Workflow automation"
	}

	title = replacePlaceholders(title, event)
	message = replacePlaceholders(message, event)

	return e.notificationService.Send(ctx, userID, title, message, notification.NotificationTypeInfo)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// replacePlaceholders substitutes {{dot.path}} tokens with values from the
// flattened event payload. Unknown paths become empty strings.
func replacePlaceholders(s string, event map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		path := placeholderPattern.FindStringSubmatch(token)[1]
		val, ok := lookupPath(event, path)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", val)
	})
}

// lookupPath resolves a dot path ("request.status") in a nested map.
func lookupPath(m map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = m
	for _, part := range parts {
		node, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
