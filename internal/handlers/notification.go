package handlers

import (
	"net/http"

	"blogtalk/internal/services"
	"blogtalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List 当前用户的通知列表（不含已隐藏），最新在前
func (h *NotificationHandler) List(c *gin.Context) {
	result, err := h.notifications.List(c.Request.Context(), currentCaller(c), page(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.notifications.UnreadCount(c.Request.Context(), currentCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// Read 标记单条通知为已读
func (h *NotificationHandler) Read(c *gin.Context) {
	id, ok := utils.ParseNumber(c.Param("id"))
	if !ok {
		writeError(c, services.ErrNotFound)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentCaller(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Hide 隐藏单条通知
func (h *NotificationHandler) Hide(c *gin.Context) {
	id, ok := utils.ParseNumber(c.Param("id"))
	if !ok {
		writeError(c, services.ErrNotFound)
		return
	}
	if err := h.notifications.Hide(c.Request.Context(), currentCaller(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ReadAll 全部通知标记为已读
func (h *NotificationHandler) ReadAll(c *gin.Context) {
	n, err := h.notifications.MarkAllRead(c.Request.Context(), currentCaller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
