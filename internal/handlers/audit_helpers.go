package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"collab-service/internal/middleware"
	"collab-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if id := middleware.UserID(c); id != "" {
		return &id
	}
	return nil
}

func emitAudit(c *gin.Context, audit *telemetry.AuditEmitter, level, text, resource string) {
	audit.Emit(c.Request.Context(), level, text, resource, requestIDFromContext(c), userIDFromContext(c))
}
