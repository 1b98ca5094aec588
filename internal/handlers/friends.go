package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/friends"
	"collab-service/internal/middleware"
	"collab-service/internal/telemetry"
)

// FriendHandler serves the relationship engine.
type FriendHandler struct {
	friends *friends.Service
	audit   *telemetry.AuditEmitter
}

func NewFriendHandler(friends *friends.Service, audit *telemetry.AuditEmitter) *FriendHandler {
	return &FriendHandler{friends: friends, audit: audit}
}

// Request handles POST /friends/requests.
func (h *FriendHandler) Request(c *gin.Context) {
	var req struct {
		AddresseeID string `json:"addressee_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := h.friends.Request(c.Request.Context(), middleware.UserID(c), req.AddresseeID)
	if err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "Friend request sent", "friendship:"+f.ID)
	c.JSON(http.StatusOK, f)
}

// Accept handles POST /friends/requests/:user_id/accept.
func (h *FriendHandler) Accept(c *gin.Context) {
	f, accepted, err := h.friends.Accept(c.Request.Context(), middleware.UserID(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !accepted {
		c.JSON(http.StatusConflict, gin.H{"error": "no pending request from this user", "friendship": f})
		return
	}
	emitAudit(c, h.audit, "INFO", "Friend request accepted", "friendship:"+f.ID)
	c.JSON(http.StatusOK, f)
}

// Decline handles DELETE /friends/requests/:user_id. The requester uses
// the same route to withdraw.
func (h *FriendHandler) Decline(c *gin.Context) {
	removed, err := h.friends.Decline(c.Request.Context(), middleware.UserID(c), c.Param("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending request"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListFriends handles GET /friends.
func (h *FriendHandler) ListFriends(c *gin.Context) {
	list, err := h.friends.ListFriends(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": list})
}

// ListRequests handles GET /friends/requests.
func (h *FriendHandler) ListRequests(c *gin.Context) {
	list, err := h.friends.ListPendingIncoming(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": list})
}

// Search handles GET /users/search?q=.
func (h *FriendHandler) Search(c *gin.Context) {
	list, err := h.friends.Search(c.Request.Context(), middleware.UserID(c), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": list})
}
