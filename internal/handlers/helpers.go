package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"serveease-chat/internal/chat"
	"serveease-chat/internal/observability"
	"serveease-chat/internal/repositories"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func fail(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// respondServiceError maps domain errors to status codes and keeps
// infrastructure detail out of responses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrNotParticipant),
		errors.Is(err, chat.ErrNotSender),
		errors.Is(err, chat.ErrNotRequestParty):
		c.JSON(http.StatusForbidden, fail(err.Error()))
	case errors.Is(err, repositories.ErrConversationNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrServiceRequestNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		c.JSON(http.StatusNotFound, fail(err.Error()))
	case errors.Is(err, chat.ErrSelfConversation),
		errors.Is(err, chat.ErrSameRole),
		errors.Is(err, chat.ErrEmptyContent),
		errors.Is(err, chat.ErrInvalidMessageType):
		c.JSON(http.StatusBadRequest, fail(err.Error()))
	default:
		log.Printf("%s %s failed (request_id=%s): %v",
			c.Request.Method, c.FullPath(), observability.RequestIDFromRequest(c.Request), err)
		c.JSON(http.StatusInternalServerError, fail("internal error"))
	}
}

// paramID parses a well-formed positive id or writes a per-field 400.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  gin.H{name: "must be a positive integer"},
		})
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxPageSize {
			limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
