package worker

import (
	"go.uber.org/zap"

	"github.com/pixelvault/marketplace/internal/service"
)

// StartNotificationWorker subscribes the notification handlers. Delivery is synchronous,
// so there is no goroutine to stop.
func StartNotificationWorker(notifications *service.NotificationService, logger *zap.Logger) int {
	if notifications == nil {
		return 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	subscribed := notifications.RegisterHandlers()
	types := make([]string, 0, len(subscribed))
	for _, t := range subscribed {
		types = append(types, string(t))
	}
	logger.Info("notification handlers registered", zap.Strings("event_types", types))
	return len(subscribed)
}
