package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/config"
	"github.com/spec-kit/demand-service/internal/events"
	"github.com/spec-kit/demand-service/internal/service"
)

// StartNotificationWorker subscribes notification handlers to dispatcher.
// Notifications are logged until a real notifier is configured.
func StartNotificationWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *service.NotificationService {
	if dispatcher == nil {
		return nil
	}
	notifications := service.NewNotificationService(dispatcher, nil, logger, cfg)
	notifications.RegisterHandlers()
	return notifications
}
