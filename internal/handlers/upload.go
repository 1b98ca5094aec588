package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"collab-service/internal/apperr"
)

const maxUploadBytes = 25 << 20

type upload struct {
	data        []byte
	contentType string
}

// readUpload loads the multipart "file" field into memory.
func readUpload(c *gin.Context) (upload, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		return upload{}, apperr.Validation("file is required")
	}
	if fh.Size > maxUploadBytes {
		return upload{}, apperr.Validation("file exceeds %d bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return upload{}, apperr.Validation("unreadable file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, apperr.Validation("unreadable file: %v", err)
	}
	if len(data) == 0 {
		return upload{}, apperr.Validation("file is empty")
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return upload{data: data, contentType: contentType}, nil
}

func uploadErr(err error) error {
	return apperr.Storage("upload file", fmt.Errorf("blob store: %w", err))
}
