package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"serveease-chat/internal/models"
	"serveease-chat/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) CreateForServiceRequest(ctx context.Context, serviceRequestID, seekerID, providerID int) (models.Conversation, error) {
	args := m.Called(ctx, serviceRequestID, seekerID, providerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateDirect(ctx context.Context, seekerID, providerID int) (models.Conversation, error) {
	args := m.Called(ctx, seekerID, providerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetForUser(ctx context.Context, conversationID, userID int) (models.ConversationSummary, error) {
	args := m.Called(ctx, conversationID, userID)
	var summary models.ConversationSummary
	if val := args.Get(0); val != nil {
		summary = val.(models.ConversationSummary)
	}
	return summary, args.Error(1)
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID, limit, offset int) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID, limit, offset)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) IsActiveParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ConversationRepositoryMock) ListParticipants(ctx context.Context, conversationID int) ([]models.ParticipantInfo, error) {
	args := m.Called(ctx, conversationID)
	var list []models.ParticipantInfo
	if val := args.Get(0); val != nil {
		list = val.([]models.ParticipantInfo)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) UpdateStatus(ctx context.Context, conversationID int, status string) error {
	args := m.Called(ctx, conversationID, status)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) TouchLastMessage(ctx context.Context, conversationID int, at time.Time) error {
	args := m.Called(ctx, conversationID, at)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, params repositories.CreateMessageParams) (models.Message, error) {
	args := m.Called(ctx, params)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID, callerID, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, callerID, limit, offset)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) EditMessage(ctx context.Context, messageID, senderID int, content string) (models.Message, error) {
	args := m.Called(ctx, messageID, senderID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID, senderID int) error {
	args := m.Called(ctx, messageID, senderID)
	return args.Error(0)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) MarkMessagesRead(ctx context.Context, conversationID, userID int, messageIDs []int) (int, error) {
	args := m.Called(ctx, conversationID, userID, messageIDs)
	return args.Int(0), args.Error(1)
}

func (m *ReceiptRepositoryMock) CountUnread(ctx context.Context, conversationID, userID int) (int, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Int(0), args.Error(1)
}

type TypingRepositoryMock struct {
	mock.Mock
}

func (m *TypingRepositoryMock) SetTyping(ctx context.Context, conversationID, userID int, isTyping bool) error {
	args := m.Called(ctx, conversationID, userID, isTyping)
	return args.Error(0)
}

func (m *TypingRepositoryMock) DeleteForUser(ctx context.Context, userID int) ([]int, error) {
	args := m.Called(ctx, userID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *TypingRepositoryMock) SweepStale(ctx context.Context, olderThan time.Time) ([]models.TypingKey, error) {
	args := m.Called(ctx, olderThan)
	var keys []models.TypingKey
	if val := args.Get(0); val != nil {
		keys = val.([]models.TypingKey)
	}
	return keys, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

type ServiceRequestRepositoryMock struct {
	mock.Mock
}

func (m *ServiceRequestRepositoryMock) GetServiceRequest(ctx context.Context, serviceRequestID int) (models.ServiceRequest, error) {
	args := m.Called(ctx, serviceRequestID)
	var sr models.ServiceRequest
	if val := args.Get(0); val != nil {
		sr = val.(models.ServiceRequest)
	}
	return sr, args.Error(1)
}

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) ToConversation(conversationID int, event models.ServerEvent) {
	m.Called(conversationID, event)
}

func (m *BroadcasterMock) ToConversationExcept(conversationID, exceptUserID int, event models.ServerEvent) {
	m.Called(conversationID, exceptUserID, event)
}

func (m *BroadcasterMock) ToUser(userID int, event models.ServerEvent) {
	m.Called(userID, event)
}

func (m *BroadcasterMock) IsOnline(userID int) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) NotifyOffline(ctx context.Context, userID int, msg models.Message) {
	m.Called(ctx, userID, msg)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReceiptRepository = (*ReceiptRepositoryMock)(nil)
var _ repositories.TypingRepository = (*TypingRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.ServiceRequestRepository = (*ServiceRequestRepositoryMock)(nil)
