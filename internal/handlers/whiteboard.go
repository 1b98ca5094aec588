package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/blob"
	"collab-service/internal/middleware"
	"collab-service/internal/rooms"
)

// WhiteboardHandler stores images placed on a room's whiteboard.
type WhiteboardHandler struct {
	rooms    *rooms.Service
	uploader blob.Uploader
}

func NewWhiteboardHandler(rooms *rooms.Service, uploader blob.Uploader) *WhiteboardHandler {
	return &WhiteboardHandler{rooms: rooms, uploader: uploader}
}

// UploadMedia handles POST /whiteboards/:room_id/media.
func (h *WhiteboardHandler) UploadMedia(c *gin.Context) {
	roomID := c.Param("room_id")
	if _, err := h.rooms.AuthorizeView(c.Request.Context(), roomID, middleware.UserID(c)); err != nil {
		respondError(c, err)
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
		respondError(c, apperr.Validation("whiteboard media must be an image"))
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), "whiteboards/"+roomID, file.data, file.contentType)
	if err != nil {
		respondError(c, uploadErr(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
