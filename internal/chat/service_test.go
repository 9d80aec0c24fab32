package chat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"serveease-chat/internal/mocks"
	"serveease-chat/internal/models"
	"serveease-chat/internal/repositories"
)

type serviceMocks struct {
	conversations   *mocks.ConversationRepositoryMock
	messages        *mocks.MessageRepositoryMock
	receipts        *mocks.ReceiptRepositoryMock
	typing          *mocks.TypingRepositoryMock
	users           *mocks.UserRepositoryMock
	serviceRequests *mocks.ServiceRequestRepositoryMock
}

func newTestService(uploadDir string, broadcaster Broadcaster, notifier Notifier) (*Service, serviceMocks) {
	m := serviceMocks{
		conversations:   new(mocks.ConversationRepositoryMock),
		messages:        new(mocks.MessageRepositoryMock),
		receipts:        new(mocks.ReceiptRepositoryMock),
		typing:          new(mocks.TypingRepositoryMock),
		users:           new(mocks.UserRepositoryMock),
		serviceRequests: new(mocks.ServiceRequestRepositoryMock),
	}
	svc := NewService(Config{
		Conversations:   m.conversations,
		Messages:        m.messages,
		Receipts:        m.receipts,
		Typing:          m.typing,
		Users:           m.users,
		ServiceRequests: m.serviceRequests,
		Broadcaster:     broadcaster,
		Notifier:        notifier,
		UploadDir:       uploadDir,
	})
	return svc, m
}

func TestSendMessageRequiresActiveParticipant(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(false, nil).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotParticipant)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
	m.conversations.AssertExpectations(t)
}

func TestParticipancyRevocationTakesEffectImmediately(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	msg := models.Message{ID: 9, ConversationID: 5, SenderID: 1, Content: "hi", CreatedAt: time.Now()}
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(msg, nil).Once()
	m.conversations.On("TouchLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "hi"})
	require.NoError(t, err)

	// Participant row revoked between calls: the very next operation fails.
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(false, nil).Once()
	_, err = svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "again"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	m.conversations.AssertExpectations(t)
	m.messages.AssertExpectations(t)
}

func TestSendMessageRejectsWhitespaceContent(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyContent)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageAllowsAttachmentWithoutContent(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	fileURL := "/uploads/chat/doc.pdf"
	msg := models.Message{ID: 9, ConversationID: 5, SenderID: 1, FileURL: &fileURL, CreatedAt: time.Now()}
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(msg, nil).Once()
	m.conversations.On("TouchLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{FileURL: &fileURL, MessageType: models.MessageFile})
	assert.NoError(t, err)
}

func TestSendMessageRejectsUnknownType(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "hi", MessageType: "video"})
	assert.ErrorIs(t, err, ErrInvalidMessageType)
	m.messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

func TestSendMessageBroadcastsAndNotifiesOffline(t *testing.T) {
	broadcaster := new(mocks.BroadcasterMock)
	notifier := new(mocks.NotifierMock)
	svc, m := newTestService("", broadcaster, notifier)

	msg := models.Message{ID: 9, ConversationID: 5, SenderID: 1, SenderName: "Ada", Content: "hi", CreatedAt: time.Now()}
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(msg, nil).Once()
	m.conversations.On("TouchLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()
	m.conversations.On("ListParticipants", mock.Anything, 5).Return([]models.ParticipantInfo{
		{UserID: 1, Name: "Ada"},
		{UserID: 2, Name: "Bob"},
	}, nil).Once()

	broadcaster.On("ToConversation", 5, mock.MatchedBy(func(e models.ServerEvent) bool {
		return e.Type == models.EventNewMessage
	})).Once()
	broadcaster.On("IsOnline", 2).Return(false).Once()

	notified := make(chan int, 1)
	notifier.On("NotifyOffline", mock.Anything, 2, mock.Anything).
		Run(func(args mock.Arguments) { notified <- args.Int(1) }).Once()

	got, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 9, got.ID)

	select {
	case recipient := <-notified:
		assert.Equal(t, 2, recipient)
	case <-time.After(time.Second):
		t.Fatal("notification hook was not invoked for the offline participant")
	}

	broadcaster.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSendMessageSkipsNotifyForOnlineParticipant(t *testing.T) {
	broadcaster := new(mocks.BroadcasterMock)
	notifier := new(mocks.NotifierMock)
	svc, m := newTestService("", broadcaster, notifier)

	msg := models.Message{ID: 9, ConversationID: 5, SenderID: 1, CreatedAt: time.Now()}
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.messages.On("CreateMessage", mock.Anything, mock.Anything).Return(msg, nil).Once()
	m.conversations.On("TouchLastMessage", mock.Anything, 5, mock.Anything).Return(nil).Once()
	m.conversations.On("ListParticipants", mock.Anything, 5).Return([]models.ParticipantInfo{
		{UserID: 1}, {UserID: 2},
	}, nil).Once()
	broadcaster.On("ToConversation", 5, mock.Anything).Once()
	broadcaster.On("IsOnline", 2).Return(true).Once()

	_, err := svc.SendMessage(context.Background(), 1, 5, SendMessageInput{Content: "hi"})
	require.NoError(t, err)

	notifier.AssertNotCalled(t, "NotifyOffline", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateConversationRejectsThirdParty(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	srID := 7
	m.serviceRequests.On("GetServiceRequest", mock.Anything, 7).
		Return(models.ServiceRequest{ID: 7, SeekerID: 1, ProviderID: 2}, nil).Once()

	_, err := svc.CreateConversation(context.Background(), 3, CreateConversationInput{ServiceRequestID: &srID})
	assert.ErrorIs(t, err, ErrNotRequestParty)
	m.conversations.AssertNotCalled(t, "CreateForServiceRequest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateConversationIdempotentForServiceRequest(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	srID := 7
	conv := models.Conversation{ID: 11, SeekerID: 1, ProviderID: 2}
	m.serviceRequests.On("GetServiceRequest", mock.Anything, 7).
		Return(models.ServiceRequest{ID: 7, SeekerID: 1, ProviderID: 2}, nil).Twice()
	m.conversations.On("CreateForServiceRequest", mock.Anything, 7, 1, 2).Return(conv, nil).Twice()

	first, err := svc.CreateConversation(context.Background(), 1, CreateConversationInput{ServiceRequestID: &srID})
	require.NoError(t, err)
	second, err := svc.CreateConversation(context.Background(), 1, CreateConversationInput{ServiceRequestID: &srID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	m.conversations.AssertExpectations(t)
}

func TestCreateDirectConversationResolvesRolesFromUsers(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	peer := 2
	m.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleProvider}, nil).Once()
	m.users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Role: models.RoleSeeker}, nil).Once()
	// Caller is the provider, so the peer becomes the seeker party.
	m.conversations.On("CreateDirect", mock.Anything, 2, 1).Return(models.Conversation{ID: 3}, nil).Once()

	_, err := svc.CreateConversation(context.Background(), 1, CreateConversationInput{ParticipantID: &peer})
	require.NoError(t, err)
	m.conversations.AssertExpectations(t)
}

func TestCreateDirectConversationWithSelf(t *testing.T) {
	svc, _ := newTestService("", nil, nil)

	self := 1
	_, err := svc.CreateConversation(context.Background(), 1, CreateConversationInput{ParticipantID: &self})
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestCreateDirectConversationSameRole(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	peer := 2
	m.users.On("GetUser", mock.Anything, 1).Return(models.User{ID: 1, Role: models.RoleSeeker}, nil).Once()
	m.users.On("GetUser", mock.Anything, 2).Return(models.User{ID: 2, Role: models.RoleSeeker}, nil).Once()

	_, err := svc.CreateConversation(context.Background(), 1, CreateConversationInput{ParticipantID: &peer})
	assert.ErrorIs(t, err, ErrSameRole)
	m.conversations.AssertNotCalled(t, "CreateDirect", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetConversationHidesNonParty(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.conversations.On("GetForUser", mock.Anything, 5, 3).
		Return(models.ConversationSummary{}, repositories.ErrConversationNotFound).Once()

	_, err := svc.GetConversation(context.Background(), 3, 5)
	assert.ErrorIs(t, err, repositories.ErrConversationNotFound)
}

func TestGetConversationReturnsEnrichedSummary(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	summary := models.ConversationSummary{
		ConversationID: 5,
		OtherUserID:    2,
		OtherUserName:  "Bob",
		OtherUserRole:  models.RoleProvider,
		LastMessage:    &models.MessagePreview{Content: "hi", MessageType: models.MessageText, SenderID: 2},
	}
	m.conversations.On("GetForUser", mock.Anything, 5, 1).Return(summary, nil).Once()

	got, err := svc.GetConversation(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "Bob", got.OtherUserName)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, "hi", got.LastMessage.Content)
}

func TestEditMessageOwnershipEnforced(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 2}, nil).Once()

	_, err := svc.EditMessage(context.Background(), 1, 9, "edited")
	assert.ErrorIs(t, err, ErrNotSender)
	m.messages.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessageOwnershipEnforced(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 2}, nil).Once()

	err := svc.DeleteMessage(context.Background(), 1, 9)
	assert.ErrorIs(t, err, ErrNotSender)
	m.messages.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteMessageRemovesAttachment(t *testing.T) {
	dir := t.TempDir()
	svc, m := newTestService(dir, nil, nil)

	path := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("attachment"), 0o644))

	fileURL := "/uploads/chat/doc.pdf"
	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 1, FileURL: &fileURL}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 9, 1).Return(nil).Once()

	require.NoError(t, svc.DeleteMessage(context.Background(), 1, 9))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "attachment should be removed")
}

func TestDeleteMessageSurvivesMissingAttachment(t *testing.T) {
	svc, m := newTestService(t.TempDir(), nil, nil)

	fileURL := "/uploads/chat/already-gone.pdf"
	m.messages.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ConversationID: 5, SenderID: 1, FileURL: &fileURL}, nil).Once()
	m.messages.On("DeleteMessage", mock.Anything, 9, 1).Return(nil).Once()

	// Unlink failure is non-fatal; the deletion still reports success.
	assert.NoError(t, svc.DeleteMessage(context.Background(), 1, 9))
}

func TestMarkReadBroadcastsToRestOfRoom(t *testing.T) {
	broadcaster := new(mocks.BroadcasterMock)
	svc, m := newTestService("", broadcaster, nil)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Once()
	m.receipts.On("MarkMessagesRead", mock.Anything, 5, 1, []int(nil)).Return(3, nil).Once()
	broadcaster.On("ToConversationExcept", 5, 1, mock.MatchedBy(func(e models.ServerEvent) bool {
		return e.Type == models.EventMessagesRead
	})).Once()

	marked, err := svc.MarkRead(context.Background(), 1, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, marked)
	broadcaster.AssertExpectations(t)
}

func TestMarkReadDuplicateIsNoOp(t *testing.T) {
	broadcaster := new(mocks.BroadcasterMock)
	svc, m := newTestService("", broadcaster, nil)

	ids := []int{8, 9}
	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 1).Return(true, nil).Twice()
	m.receipts.On("MarkMessagesRead", mock.Anything, 5, 1, ids).Return(2, nil).Once()
	m.receipts.On("MarkMessagesRead", mock.Anything, 5, 1, ids).Return(0, nil).Once()
	broadcaster.On("ToConversationExcept", 5, 1, mock.Anything).Twice()

	first, err := svc.MarkRead(context.Background(), 1, 5, ids)
	require.NoError(t, err)
	second, err := svc.MarkRead(context.Background(), 1, 5, ids)
	require.NoError(t, err)

	assert.Equal(t, 2, first)
	assert.Equal(t, 0, second, "second mark of the same messages creates no receipts")
}

func TestSetTypingGatedByParticipancy(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 3).Return(false, nil).Once()

	err := svc.SetTyping(context.Background(), 3, "Eve", 5, true)
	assert.ErrorIs(t, err, ErrNotParticipant)
	m.typing.AssertNotCalled(t, "SetTyping", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClearTypingBroadcastsSyntheticStops(t *testing.T) {
	broadcaster := new(mocks.BroadcasterMock)
	svc, m := newTestService("", broadcaster, nil)

	m.typing.On("DeleteForUser", mock.Anything, 1).Return([]int{5, 6}, nil).Once()
	broadcaster.On("ToConversationExcept", 5, 1, mock.MatchedBy(func(e models.ServerEvent) bool {
		typing, ok := e.Data.(models.TypingEvent)
		return ok && !typing.IsTyping
	})).Once()
	broadcaster.On("ToConversationExcept", 6, 1, mock.Anything).Once()

	require.NoError(t, svc.ClearTyping(context.Background(), 1, "Ada"))
	broadcaster.AssertExpectations(t)
}

func TestArchiveRequiresParticipancy(t *testing.T) {
	svc, m := newTestService("", nil, nil)

	m.conversations.On("IsActiveParticipant", mock.Anything, 5, 3).Return(false, nil).Once()

	err := svc.Archive(context.Background(), 3, 5)
	assert.ErrorIs(t, err, ErrNotParticipant)
	m.conversations.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
