package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxUploadSize = 10 << 20 // 10 MB

// allowedExtensions for chat attachments: images, common documents, audio.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".pdf": true, ".doc": true, ".docx": true, ".txt": true, ".xls": true, ".xlsx": true,
	".mp3": true, ".wav": true, ".ogg": true, ".m4a": true,
}

// UploadHandler stores attachment files under the server-controlled upload
// directory. Upload and send are two separate steps: the returned url/name/
// size triple is attached by the client to a later send.
type UploadHandler struct {
	uploadDir string
	urlPrefix string
}

// NewUploadHandler builds an UploadHandler writing under uploadDir and
// returning URLs below urlPrefix.
func NewUploadHandler(uploadDir, urlPrefix string) *UploadHandler {
	return &UploadHandler{uploadDir: uploadDir, urlPrefix: urlPrefix}
}

// Upload accepts one multipart file under the "file" field.
func (h *UploadHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  gin.H{"file": "file field is required"},
		})
		return
	}

	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  gin.H{"file": "file exceeds 10 MB limit"},
		})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  gin.H{"file": "file type not allowed"},
		})
		return
	}

	// Generated name, original extension; the client keeps the display name.
	stored := uuid.NewString() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, stored)); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"file": gin.H{
			"url":  h.urlPrefix + "/" + stored,
			"name": file.Filename,
			"size": file.Size,
		},
	})
}
