package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/service"
)

// StartNotificationWorker subscribes the complaint and policy notifiers to dispatcher.
// Handlers run synchronously inside Publish, so there is no goroutine to stop.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := service.NewNotificationService(dispatcher, logger)
	notifier.RegisterHandlers()
	logger.Info("notification handlers registered")
	return notifier
}
