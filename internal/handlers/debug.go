package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/telemetry"
)

// Counter reports live counts keyed by table or connection kind.
type Counter interface {
	Stats() map[string]int
}

// DebugSources feeds the debug endpoints. Any field may be nil.
type DebugSources struct {
	Audit       *telemetry.AuditEmitter
	Feed        Counter
	Connections Counter
}

// RegisterDebugRoutes wires debug-only endpoints: change feed subscriptions
// and websocket connections in this process, and an audit round trip.
func RegisterDebugRoutes(router gin.IRouter, src DebugSources, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/realtime", func(c *gin.Context) {
		out := gin.H{"subscriptions": map[string]int{}, "connections": map[string]int{}}
		if src.Feed != nil {
			out["subscriptions"] = src.Feed.Stats()
		}
		if src.Connections != nil {
			out["connections"] = src.Connections.Stats()
		}
		c.JSON(http.StatusOK, out)
	})

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if src.Audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(c, src.Audit, "INFO", "audit test", "debug")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
