package worker

import (
	"github.com/spec-kit/incident-tracker/internal/service"
)

// StartNotificationWorker subscribes the notification log to ticket
// events so created, status-changed and escalated tickets are recorded.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
