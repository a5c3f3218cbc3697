package routes

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sidhant-sriv/homie-api/middleware"
	"github.com/sidhant-sriv/homie-api/models"
	"gorm.io/gorm"
)

// Notification kinds.
const (
	kindApplicationSubmitted = "application_submitted"
	kindApplicationDecided   = "application_decided"
	kindMaintenanceCreated   = "maintenance_created"
	kindMaintenanceUpdated   = "maintenance_updated"
)

// NotificationRoutes sets up the routes for the caller's notifications
func (h *Handler) NotificationRoutes(group *gin.RouterGroup, authed gin.HandlerFunc) {
	group.Use(authed)
	group.GET("", middleware.WithPrincipal(h.ListNotifications))
	group.PUT("/:id/read", middleware.WithPrincipal(h.MarkNotificationRead))
}

// notify records a notification inside the caller's transaction.
func notify(tx *gorm.DB, userID uint, kind, message string) error {
	n := models.Notification{UserID: userID, Kind: kind, Message: message}
	if err := tx.Create(&n).Error; err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}
	return nil
}

func (h *Handler) notificationsFor(c *gin.Context, userID uint) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := h.DB.WithContext(c.Request.Context()).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (h *Handler) ListNotifications(c *gin.Context, p middleware.Principal) {
	notifications, err := h.notificationsFor(c, p.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (h *Handler) MarkNotificationRead(c *gin.Context, p middleware.Principal) {
	id, err := parseID(c, "id")
	if err != nil {
		fail(c, err)
		return
	}

	res := h.DB.WithContext(c.Request.Context()).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, p.UserID).
		Update("read", true)
	if res.Error != nil {
		fail(c, fmt.Errorf("mark notification %d read: %w", id, res.Error))
		return
	}
	if res.RowsAffected == 0 {
		fail(c, models.NotFound("Notification not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
