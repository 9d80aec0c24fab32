package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"serveease-chat/internal/chat"
	"serveease-chat/internal/models"
	"serveease-chat/internal/observability"
)

// ChatHandler is the HTTP transport adapter over the conversation/message
// service. It parses and validates, then delegates; all domain rules live in
// the service so this path can never diverge from the realtime one.
type ChatHandler struct {
	svc *chat.Service
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// ListConversations returns the caller's active conversations, newest
// message first, with previews and unread counts.
func (h *ChatHandler) ListConversations(c *gin.Context) {
	userID := c.GetInt("userID")
	limit, offset := pagination(c)

	conversations, err := h.svc.ListConversations(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if conversations == nil {
		conversations = []models.ConversationSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": conversations})
}

// GetConversation returns one conversation the caller is a party to.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	conversation, err := h.svc.GetConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": conversation})
}

// CreateConversation opens, or returns, the conversation for a service
// request or a direct peer. Retries land on the same conversation.
func (h *ChatHandler) CreateConversation(c *gin.Context) {
	var req struct {
		ServiceRequestID *int `json:"service_request_id"`
		ParticipantID    *int `json:"participant_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	fieldErrs := gin.H{}
	if req.ServiceRequestID == nil && req.ParticipantID == nil {
		fieldErrs["service_request_id"] = "either service_request_id or participant_id is required"
	}
	if req.ServiceRequestID != nil && *req.ServiceRequestID <= 0 {
		fieldErrs["service_request_id"] = "must be a positive integer"
	}
	if req.ParticipantID != nil && *req.ParticipantID <= 0 {
		fieldErrs["participant_id"] = "must be a positive integer"
	}
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "validation failed", "errors": fieldErrs})
		return
	}

	userID := c.GetInt("userID")
	conversation, err := h.svc.CreateConversation(c.Request.Context(), userID, chat.CreateConversationInput{
		ServiceRequestID: req.ServiceRequestID,
		ParticipantID:    req.ParticipantID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "conversation": conversation})
}

// ListMessages returns the conversation history, oldest first.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	limit, offset := pagination(c)

	messages, err := h.svc.ListMessages(c.Request.Context(), userID, conversationID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// SendMessage persists and broadcasts a message sent over plain HTTP, for
// clients without a live socket.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Content          string  `json:"content"`
		MessageType      string  `json:"message_type"`
		FileURL          *string `json:"file_url"`
		FileName         *string `json:"file_name"`
		FileSize         *int64  `json:"file_size"`
		ReplyToMessageID *int    `json:"reply_to_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	if req.ReplyToMessageID != nil && *req.ReplyToMessageID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "validation failed",
			"errors":  gin.H{"reply_to_message_id": "must be a positive integer"},
		})
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.SendMessage(c.Request.Context(), userID, conversationID, chat.SendMessageInput{
		Content:          req.Content,
		MessageType:      req.MessageType,
		FileURL:          req.FileURL,
		FileName:         req.FileName,
		FileSize:         req.FileSize,
		ReplyToMessageID: req.ReplyToMessageID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	observability.IncMessageSent("http")
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

// EditMessage updates the caller's own message.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, fail(err.Error()))
		return
	}

	userID := c.GetInt("userID")
	msg, err := h.svc.EditMessage(c.Request.Context(), userID, messageID, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// DeleteMessage removes the caller's own message and, best effort, its
// attachment file.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := h.svc.DeleteMessage(c.Request.Context(), userID, messageID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkRead records receipts for the caller; same semantics as the realtime
// mark_messages_read event.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	// An absent body means the same as an empty id list: mark everything.
	var req struct {
		MessageIDs []int `json:"message_ids"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, fail(err.Error()))
			return
		}
	}

	userID := c.GetInt("userID")
	marked, err := h.svc.MarkRead(c.Request.Context(), userID, conversationID, req.MessageIDs)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "marked": marked})
}

// UnreadCount reports the caller's unread-message count for one conversation.
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	unread, err := h.svc.UnreadCount(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unread": unread})
}

// Participants lists the conversation's active participants.
func (h *ChatHandler) Participants(c *gin.Context) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	participants, err := h.svc.Participants(c.Request.Context(), userID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if participants == nil {
		participants = []models.ParticipantInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "participants": participants})
}

// Archive moves the conversation to archived.
func (h *ChatHandler) Archive(c *gin.Context) {
	h.transition(c, h.svc.Archive)
}

// Block moves the conversation to blocked.
func (h *ChatHandler) Block(c *gin.Context) {
	h.transition(c, h.svc.Block)
}

func (h *ChatHandler) transition(c *gin.Context, op func(ctx context.Context, callerID, conversationID int) error) {
	conversationID, ok := paramID(c, "id")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if err := op(c.Request.Context(), userID, conversationID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
