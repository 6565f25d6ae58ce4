package notification

import (
	"context"
	"fmt"
	"time"

	"go-grc/internal/features/approval"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type NotificationService interface {
	approval.Notifier

	// Send persists a notification for one user and pushes it live.
	Send(ctx context.Context, userID, title, message string, typ NotificationType) error

	GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	MarkAsRead(ctx context.Context, id string, userID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
}

type NotificationServiceImpl struct {
	Repo   NotificationRepository
	Hub    *Hub
	Logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, hub *Hub, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Repo:   repo,
		Hub:    hub,
		Logger: logger,
	}
}

// NotifyWorkflowEvent translates a committed workflow transition into inbox
// rows and live pushes. Rows are persisted only for concrete user IDs
// (requester, pinned assignee); role-addressed tasks go out on the role's
// websocket channel, since there is no user directory to expand a role
// against. Failures are logged and swallowed: notifications never veto a
// transition that already committed.
func (s *NotificationServiceImpl) NotifyWorkflowEvent(ctx context.Context, event approval.WorkflowEvent) {
	link := "/approvals/" + event.Request.ID.Hex()
	entity := fmt.Sprintf("%s %s", event.Request.EntityType, event.Request.EntityID)

	var rows []Notification

	addRow := func(userID, title, message string, typ NotificationType) {
		if userID == "" {
			return
		}
		rows = append(rows, Notification{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Title:     title,
			Message:   message,
			Type:      typ,
			Link:      link,
			CreatedAt: time.Now(),
		})
	}

	notifyAssignee := func(step *approval.ApprovalRequestStep) {
		if step == nil {
			return
		}
		title := "Approval step awaiting action"
		message := fmt.Sprintf("Step %q of the approval for %s is waiting on you.", step.StepName, entity)
		if step.AssigneeID != "" {
			addRow(step.AssigneeID, title, message, NotificationTypeTask)
			return
		}
		s.Hub.Push(RoleKey(step.AssigneeRole), event)
	}

	switch event.Type {
	case approval.EventWorkflowStarted:
		notifyAssignee(event.Step)
	case approval.EventStepAdvanced:
		if event.Step != nil {
			addRow(event.Request.RequestedBy, "Approval step completed",
				fmt.Sprintf("Step %q of the approval for %s was resolved (%s).", event.Step.StepName, entity, event.Step.Status),
				NotificationTypeInfo)
		}
		notifyAssignee(event.NextStep)
	case approval.EventInstanceApproved:
		addRow(event.Request.RequestedBy, "Approval granted",
			fmt.Sprintf("The approval for %s completed all steps.", entity),
			NotificationTypeSuccess)
	case approval.EventInstanceRejected:
		addRow(event.Request.RequestedBy, "Approval rejected",
			fmt.Sprintf("The approval for %s was rejected. %s", entity, event.Comments),
			NotificationTypeError)
	case approval.EventRevisionRequested:
		addRow(event.Request.RequestedBy, "Revision requested",
			fmt.Sprintf("The approval for %s needs revision before it can proceed. %s", entity, event.Comments),
			NotificationTypeWarning)
	case approval.EventResubmitted:
		notifyAssignee(event.Step)
	}

	if err := s.Repo.CreateMany(ctx, rows); err != nil {
		s.Logger.Error("failed to persist workflow notifications",
			zap.String("request_id", event.Request.ID.Hex()),
			zap.Error(err))
	}

	for _, row := range rows {
		s.Hub.Push(UserKey(row.UserID), row)
	}
}

func (s *NotificationServiceImpl) Send(ctx context.Context, userID, title, message string, typ NotificationType) error {
	n := &Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return err
	}
	s.Hub.Push(UserKey(userID), n)
	return nil
}

func (s *NotificationServiceImpl) GetUserNotifications(ctx context.Context, userID string, page, limit int64) ([]Notification, int64, error) {
	return s.Repo.ListByUser(ctx, userID, page, limit)
}

func (s *NotificationServiceImpl) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.Repo.CountUnread(ctx, userID)
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, id string, userID string) error {
	return s.Repo.MarkAsRead(ctx, id, userID)
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.Repo.MarkAllAsRead(ctx, userID)
}
