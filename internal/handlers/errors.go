package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
)

// respondError writes the status for a service error. Storage failures are
// marked retryable so clients keep the user's input.
func respondError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.KindStorage:
		log.Printf("request failed: method=%s path=%s err=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable", "retryable": true})
	default:
		log.Printf("request failed: method=%s path=%s err=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
