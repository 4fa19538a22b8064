package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/events"
)

// NotificationService turns domain events into operator-facing log lines. Escalations and
// urgent priorities are logged at warn level so alerting can pick them up.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventComplaintCreated, n.handleComplaintCreated)
	n.dispatcher.Subscribe(events.EventComplaintStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventComplaintAssigned, n.handleAssigned)
	n.dispatcher.Subscribe(events.EventComplaintPriorityChanged, n.handlePriorityChanged)
	n.dispatcher.Subscribe(events.EventPolicyUpdated, n.handlePolicyUpdated)
	n.dispatcher.Subscribe(events.EventUserChanged, n.handleUserChanged)
}

func (n *NotificationService) handleComplaintCreated(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ComplaintCreatedPayload)
	fields := append(n.eventFields(event),
		zap.String("region", payload.Region),
		zap.String("priority", string(payload.Priority)),
		zap.Bool("public", payload.Public),
	)
	n.logger.Info("complaint created", fields...)
	return nil
}

func (n *NotificationService) handleStatusChanged(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ComplaintStatusChangedPayload)
	fields := append(n.eventFields(event),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
	)
	if payload.NewStatus == domain.StatusEscalated {
		n.logger.Warn("complaint escalated", fields...)
		return nil
	}
	n.logger.Info("complaint status changed", fields...)
	return nil
}

func (n *NotificationService) handleAssigned(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ComplaintAssignedPayload)
	n.logger.Info("complaint assigned", append(n.eventFields(event),
		zap.String("assignee", payload.Assignee),
		zap.String("previous_assignee", payload.PreviousAssignee),
	)...)
	return nil
}

func (n *NotificationService) handlePriorityChanged(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.ComplaintPriorityChangedPayload)
	fields := append(n.eventFields(event), zap.String("priority", string(payload.NewPriority)))
	if payload.NewPriority.Restricted() {
		n.logger.Warn("complaint priority raised", fields...)
		return nil
	}
	n.logger.Info("complaint priority changed", fields...)
	return nil
}

func (n *NotificationService) handlePolicyUpdated(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PolicyUpdatedPayload)
	n.logger.Info("policy version published", append(n.eventFields(event), zap.Int64("version", payload.Version))...)
	return nil
}

func (n *NotificationService) handleUserChanged(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.UserChangedPayload)
	n.logger.Info("user account changed", append(n.eventFields(event), zap.String("change", payload.Change))...)
	return nil
}

func (n *NotificationService) eventFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID),
		zap.String("actor_id", event.Actor.ID),
	}
}
