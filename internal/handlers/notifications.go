package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"collab-service/internal/middleware"
	"collab-service/internal/notify"
)

// NotificationHandler exposes recipient operations on notifications.
type NotificationHandler struct {
	fanout *notify.Fanout
}

func NewNotificationHandler(fanout *notify.Fanout) *NotificationHandler {
	return &NotificationHandler{fanout: fanout}
}

// List handles GET /notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.fanout.List(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}

// MarkRead handles POST /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.fanout.MarkRead(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /notifications/:id.
func (h *NotificationHandler) Delete(c *gin.Context) {
	if err := h.fanout.Delete(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
