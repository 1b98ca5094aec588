package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
	"collab-service/internal/blob"
	"collab-service/internal/messages"
	"collab-service/internal/middleware"
	"collab-service/internal/models"
	"collab-service/internal/rooms"
	"collab-service/internal/telemetry"
)

// MessageHandler serves the message pipeline.
type MessageHandler struct {
	messages *messages.Service
	rooms    *rooms.Service
	uploader blob.Uploader
	audit    *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(msgs *messages.Service, rooms *rooms.Service, uploader blob.Uploader, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{messages: msgs, rooms: rooms, uploader: uploader, audit: audit}
}

type messageView struct {
	models.Message
	Parsed messages.Content `json:"parsed"`
}

func viewOf(msg models.Message, viewerID string) messageView {
	msg = msg.ForViewer(viewerID)
	return messageView{Message: msg, Parsed: messages.ParseContent(msg.Content)}
}

// History handles GET /rooms/:room_id/messages.
func (h *MessageHandler) History(c *gin.Context) {
	userID := middleware.UserID(c)

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = parsed
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	list, err := h.messages.History(c.Request.Context(), c.Param("room_id"), userID, since, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]messageView, 0, len(list))
	for _, m := range list {
		resp = append(resp, viewOf(m, userID))
	}
	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// Send handles POST /rooms/:room_id/messages.
func (h *MessageHandler) Send(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload", "message")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	msg, err := h.messages.Send(c.Request.Context(), c.Param("room_id"), userID, req.Content)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) {
			emitAudit(c, h.audit, "ERROR", "not allowed", "room:"+c.Param("room_id"))
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, viewOf(msg, userID))
}

// UploadMedia handles POST /rooms/:room_id/media. The response carries the
// tagged content to send as a message.
func (h *MessageHandler) UploadMedia(c *gin.Context) {
	roomID := c.Param("room_id")
	if _, err := h.rooms.AuthorizeChat(c.Request.Context(), roomID, middleware.UserID(c)); err != nil {
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
	kind, ok := messages.KindForContentType(file.contentType)
	if !ok {
		respondError(c, apperr.Validation("unsupported media type %s", file.contentType))
		return
	}

	url, err := h.uploader.Upload(c.Request.Context(), "rooms/"+roomID, file.data, file.contentType)
	if err != nil {
		respondError(c, uploadErr(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url, "kind": kind, "content": messages.MediaContent(kind, url)})
}

// Edit handles PATCH /messages/:message_id.
func (h *MessageHandler) Edit(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)
	msg, err := h.messages.Edit(c.Request.Context(), c.Param("message_id"), userID, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(msg, userID))
}

// Delete handles DELETE /messages/:message_id?scope=self|everyone.
func (h *MessageHandler) Delete(c *gin.Context) {
	scope, err := messages.ParseScope(c.DefaultQuery("scope", string(messages.ScopeSelf)))
	if err != nil {
		respondError(c, err)
		return
	}

	userID := middleware.UserID(c)
	msg, err := h.messages.Delete(c.Request.Context(), c.Param("message_id"), userID, scope)
	if err != nil {
		respondError(c, err)
		return
	}

	emitAudit(c, h.audit, "INFO", "Message deleted scope="+string(scope), "message:"+msg.ID)
	c.JSON(http.StatusOK, viewOf(msg, userID))
}
