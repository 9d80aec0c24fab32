package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"serveease-chat/internal/chat"
	"serveease-chat/internal/mocks"
	"serveease-chat/internal/models"
	"serveease-chat/internal/repositories"
)

type handlerMocks struct {
	conversations   *mocks.ConversationRepositoryMock
	messages        *mocks.MessageRepositoryMock
	receipts        *mocks.ReceiptRepositoryMock
	users           *mocks.UserRepositoryMock
	serviceRequests *mocks.ServiceRequestRepositoryMock
}

func setupRouter(userID int) (*gin.Engine, handlerMocks) {
	gin.SetMode(gin.TestMode)

	m := handlerMocks{
		conversations:   new(mocks.ConversationRepositoryMock),
		messages:        new(mocks.MessageRepositoryMock),
		receipts:        new(mocks.ReceiptRepositoryMock),
		users:           new(mocks.UserRepositoryMock),
		serviceRequests: new(mocks.ServiceRequestRepositoryMock),
	}
	svc := chat.NewService(chat.Config{
		Conversations:   m.conversations,
		Messages:        m.messages,
		Receipts:        m.receipts,
		Typing:          new(mocks.TypingRepositoryMock),
		Users:           m.users,
		ServiceRequests: m.serviceRequests,
	})
	h := NewChatHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	router.GET("/api/chat/conversations", h.ListConversations)
	router.POST("/api/chat/conversations", h.CreateConversation)
	router.GET("/api/chat/conversations/:id", h.GetConversation)
	router.GET("/api/chat/conversations/:id/messages", h.ListMessages)
	router.POST("/api/chat/conversations/:id/messages", h.SendMessage)
	router.POST("/api/chat/conversations/:id/read", h.MarkRead)
	router.GET("/api/chat/conversations/:id/unread", h.UnreadCount)
	router.GET("/api/chat/conversations/:id/participants", h.Participants)
	router.PUT("/api/chat/conversations/:id/archive", h.Archive)
	router.PUT("/api/chat/conversations/:id/block", h.Block)
	router.PUT("/api/chat/messages/:id", h.EditMessage)
	router.DELETE("/api/chat/messages/:id", h.DeleteMessage)
	return router, m
}

func doJSON(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListConversations(t *testing.T) {
	router, m := setupRouter(1)

	summaries := []models.ConversationSummary{
		{ConversationID: 2, OtherUserID: 5, OtherUserName: "Bob", UnreadCount: 3},
	}
	m.conversations.On("ListForUser", mock.Anything, 1, 50, 0).Return(summaries, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success       bool                         `json:"success"`
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, 3, resp.Conversations[0].UnreadCount)
	m.conversations.AssertExpectations(t)
}

func TestListConversationsEmpty(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("ListForUser", mock.Anything, 1, 50, 0).Return(nil, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conversations":[]`)
}

func TestListConversationsRepositoryError(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("ListForUser", mock.Anything, 1, 50, 0).
		Return(nil, errors.New("connection refused")).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal error")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestListConversationsPagination(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("ListForUser", mock.Anything, 1, 20, 40).Return(nil, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations?limit=20&offset=40", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	m.conversations.AssertExpectations(t)
}

func TestCreateConversationValidation(t *testing.T) {
	router, _ := setupRouter(1)

	w := doJSON(router, http.MethodPost, "/api/chat/conversations", gin.H{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "service_request_id")
}

func TestCreateConversationForServiceRequest(t *testing.T) {
	router, m := setupRouter(1)

	m.serviceRequests.On("GetServiceRequest", mock.Anything, 7).
		Return(models.ServiceRequest{ID: 7, SeekerID: 1, ProviderID: 2}, nil).Once()
	m.conversations.On("CreateForServiceRequest", mock.Anything, 7, 1, 2).
		Return(models.Conversation{ID: 11, SeekerID: 1, ProviderID: 2, Status: models.ConversationActive}, nil).Once()

	w := doJSON(router, http.MethodPost, "/api/chat/conversations", gin.H{"service_request_id": 7})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":11`)
	m.conversations.AssertExpectations(t)
}

func TestCreateConversationThirdPartyForbidden(t *testing.T) {
	router, m := setupRouter(3)

	m.serviceRequests.On("GetServiceRequest", mock.Anything, 7).
		Return(models.ServiceRequest{ID: 7, SeekerID: 1, ProviderID: 2}, nil).Once()

	w := doJSON(router, http.MethodPost, "/api/chat/conversations", gin.H{"service_request_id": 7})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetConversationInvalidID(t *testing.T) {
	router, _ := setupRouter(1)

	w := doJSON(router, http.MethodGet, "/api/chat/conversations/abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must be a positive integer")
}

func TestGetConversationNonPartyNotFound(t *testing.T) {
	router, m := setupRouter(3)

	m.conversations.On("GetForUser", mock.Anything, 5, 3).
		Return(models.ConversationSummary{}, repositories.ErrConversationNotFound).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations/5", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetConversationEnriched(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("GetForUser", mock.Anything, 5, 1).Return(models.ConversationSummary{
		ConversationID: 5,
		OtherUserID:    2,
		OtherUserName:  "Bob",
		OtherUserRole:  models.RoleProvider,
		LastMessage:    &models.MessagePreview{Content: "hi", MessageType: models.MessageText, SenderID: 2},
	}, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations/5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"other_user_name":"Bob"`)
	assert.Contains(t, w.Body.String(), `"last_message"`)
}

func TestListMessagesForbiddenForNonParticipant(t *testing.T) {
	router, m := setupRouter(3)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 3).Return(false, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations/5/messages", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSendMessage(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, mock.Anything).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 1, Content: "hello", MessageType: models.MessageText, CreatedAt: time.Now()}, nil).Once()
	m.conversations.On("TouchLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/messages", gin.H{"content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":9`)
	m.messages.AssertExpectations(t)
}

func TestSendMessageEmptyContent(t *testing.T) {
	router, _ := setupRouter(1)

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/messages", gin.H{"content": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content is required")
}

func TestSendMessageWhitespaceOnlyContent(t *testing.T) {
	router, m := setupRouter(1)

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/messages", gin.H{"content": "   "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content is required")
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageUnknownType(t *testing.T) {
	router, _ := setupRouter(1)

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/messages",
		gin.H{"content": "hi", "message_type": "video"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid message type")
}

func TestEditMessageNotSender(t *testing.T) {
	router, m := setupRouter(1)

	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 2}, nil).Once()

	w := doJSON(router, http.MethodPut, "/api/chat/messages/9", gin.H{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteMessage(t *testing.T) {
	router, m := setupRouter(1)

	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 1}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 9, 1).Return(nil).Once()

	w := doJSON(router, http.MethodDelete, "/api/chat/messages/9", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	m.messages.AssertExpectations(t)
}

func TestMarkRead(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.receipts.On("MarkMessagesRead", mock.Anything, 5, 1, []int(nil)).Return(4, nil).Once()

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/read", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"marked":4`)
}

func TestMarkReadWithoutBody(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.receipts.On("MarkMessagesRead", mock.Anything, 5, 1, []int(nil)).Return(2, nil).Once()

	w := doJSON(router, http.MethodPost, "/api/chat/conversations/5/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"marked":2`)
}

func TestUnreadCount(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.receipts.On("CountUnread", mock.Anything, 5, 1).Return(7, nil).Once()

	w := doJSON(router, http.MethodGet, "/api/chat/conversations/5/unread", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"unread":7`)
}

func TestArchiveConversation(t *testing.T) {
	router, m := setupRouter(1)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.conversations.On("UpdateStatus", mock.Anything, 5, models.ConversationArchived).Return(nil).Once()

	w := doJSON(router, http.MethodPut, "/api/chat/conversations/5/archive", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	m.conversations.AssertExpectations(t)
}

func TestBlockConversation(t *testing.T) {
	router, m := setupRouter(2)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 2).Return(true, nil).Once()
	m.conversations.On("UpdateStatus", mock.Anything, 5, models.ConversationBlocked).Return(nil).Once()

	w := doJSON(router, http.MethodPut, "/api/chat/conversations/5/block", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
