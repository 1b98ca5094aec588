package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/blob"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/rooms"
	"collab-service/internal/telemetry"
)

// RoomHandler serves the room directory.
type RoomHandler struct {
	rooms    *rooms.Service
	uploader blob.Uploader
	audit    *telemetry.AuditEmitter
}

// NewRoomHandler constructs a RoomHandler. uploader may be nil when no blob
// store is configured.
func NewRoomHandler(rooms *rooms.Service, uploader blob.Uploader, audit *telemetry.AuditEmitter) *RoomHandler {
	return &RoomHandler{rooms: rooms, uploader: uploader, audit: audit}
}

type roomView struct {
	models.Room
	CanChat bool `json:"can_chat"`
}

// ListRooms handles GET /rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	userID := middleware.UserID(c)
	list, err := h.rooms.ListRoomsForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]roomView, 0, len(list))
	for _, r := range list {
		ok, err := h.rooms.ChatAllowed(c.Request.Context(), r, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		resp = append(resp, roomView{Room: r, CanChat: ok})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": resp})
}

// ResolvePrivateRoom handles POST /rooms/private.
func (h *RoomHandler) ResolvePrivateRoom(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.ResolvePrivateRoom(c.Request.Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// CreateGroup handles POST /rooms/groups.
func (h *RoomHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Name      string   `json:"name" binding:"required"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload", "room")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.CreateGroup(c.Request.Context(), middleware.UserID(c), req.Name, req.MemberIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "Group created", "room:"+room.ID)
	c.JSON(http.StatusCreated, room)
}

// UpdateGroup handles PATCH /rooms/:room_id.
func (h *RoomHandler) UpdateGroup(c *gin.Context) {
	var patch models.GroupPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.rooms.UpdateGroup(c.Request.Context(), c.Param("room_id"), middleware.UserID(c), patch)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "Group updated", "room:"+room.ID)
	c.JSON(http.StatusOK, room)
}

// UploadAvatar handles POST /rooms/:room_id/avatar.
func (h *RoomHandler) UploadAvatar(c *gin.Context) {
	roomID := c.Param("room_id")
	userID := middleware.UserID(c)

	room, err := h.rooms.AuthorizeView(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if room.IsPrivate() {
		respondError(c, apperr.Validation("private rooms have no avatar"))
		return
	}
	if h.uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "uploads not configured"})
		return
	}

	file, err := readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}
	if !strings.HasPrefix(file.contentType, "image/") {
		respondError(c, apperr.Validation("avatar must be an image"))
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), "avatars/"+roomID, file.data, file.contentType)
	if err != nil {
		respondError(c, uploadErr(err))
		return
	}

	room, err = h.rooms.UpdateGroup(c.Request.Context(), roomID, userID, models.GroupPatch{AvatarURL: &url})
	if err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "Group avatar uploaded", "room:"+roomID)
	c.JSON(http.StatusOK, room)
}

// LeaveGroup handles DELETE /rooms/:room_id/members/me.
func (h *RoomHandler) LeaveGroup(c *gin.Context) {
	roomID := c.Param("room_id")
	if err := h.rooms.LeaveGroup(c.Request.Context(), roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "Group left", "room:"+roomID)
	c.Status(http.StatusNoContent)
}
