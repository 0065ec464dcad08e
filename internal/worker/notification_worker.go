package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/tixit/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
	logger.Debug("notification handlers registered")
}
