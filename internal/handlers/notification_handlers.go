package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"invoicer/internal/services"
)

// NotificationHandlers handles notification-related HTTP requests
type NotificationHandlers struct {
	notificationSvc services.NotificationService
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(notificationSvc services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{
		notificationSvc: notificationSvc,
	}
}

// ListNotifications handles GET /notifications, oldest first
func (h *NotificationHandlers) ListNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, h.notificationSvc.List())
}
