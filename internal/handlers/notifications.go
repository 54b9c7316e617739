package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yocodex/backend/internal/notify"
)

// GetNotifications returns a page of the user's notification feed
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	opts := notify.ListOptions{
		Page:       parseInt(c.DefaultQuery("page", "1"), 1),
		Limit:      parseInt(c.DefaultQuery("limit", "10"), 10),
		UnreadOnly: parseBool(c.Query("unreadOnly")),
	}

	feed, err := h.notifications.List(c.Request.Context(), user.ID, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, feed)
}

// GetUnreadCount returns just the unread count for badge display
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead marks one notification as read
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	notification, err := h.notifications.MarkAsRead(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

// MarkAllNotificationsRead marks every unread notification as read
// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllAsRead(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification removes one notification
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.notifications.Delete(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// DeleteAllNotifications clears the user's entire feed
// DELETE /api/v1/notifications
func (h *Handlers) DeleteAllNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	removed, err := h.notifications.DeleteAll(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
