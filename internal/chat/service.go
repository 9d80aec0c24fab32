package chat

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"serveease-chat/internal/models"
	"serveease-chat/internal/repositories"
)

var (
	// ErrNotParticipant means the caller has no active participant row for the
	// target conversation.
	ErrNotParticipant = errors.New("not an active participant of this conversation")
	// ErrNotSender means the caller tried to edit or delete someone else's message.
	ErrNotSender = errors.New("only the sender can modify this message")
	// ErrNotRequestParty means the caller is neither seeker nor provider on the
	// service request they tried to open a conversation for.
	ErrNotRequestParty = errors.New("not a party to this service request")
	// ErrSelfConversation rejects a direct conversation with oneself.
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	// ErrSameRole rejects a direct conversation between two users of the same role.
	ErrSameRole = errors.New("conversation requires a seeker and a provider")
	// ErrEmptyContent rejects sends with neither content nor an attachment.
	ErrEmptyContent = errors.New("message content is required")
	// ErrInvalidMessageType rejects sends with an unknown message type.
	ErrInvalidMessageType = errors.New("invalid message type")
)

// Broadcaster fans events out to realtime clients when a gateway runs in the
// same process. A nil Broadcaster disables realtime delivery, never the write.
type Broadcaster interface {
	ToConversation(conversationID int, event models.ServerEvent)
	ToConversationExcept(conversationID, exceptUserID int, event models.ServerEvent)
	ToUser(userID int, event models.ServerEvent)
	IsOnline(userID int) bool
}

// Notifier is the best-effort side channel for participants with no live
// connection. Failures are logged, never surfaced to the sender.
type Notifier interface {
	NotifyOffline(ctx context.Context, userID int, msg models.Message)
}

// Service is the authoritative read/write path for conversation and message
// state. The HTTP handlers and the websocket gateway are thin adapters over
// it, so the two transports cannot diverge in validation or ordering.
type Service struct {
	conversations   repositories.ConversationRepository
	messages        repositories.MessageRepository
	receipts        repositories.ReceiptRepository
	typing          repositories.TypingRepository
	users           repositories.UserRepository
	serviceRequests repositories.ServiceRequestRepository
	broadcaster     Broadcaster
	notifier        Notifier
	uploadDir       string
}

// Config wires the Service's collaborators.
type Config struct {
	Conversations   repositories.ConversationRepository
	Messages        repositories.MessageRepository
	Receipts        repositories.ReceiptRepository
	Typing          repositories.TypingRepository
	Users           repositories.UserRepository
	ServiceRequests repositories.ServiceRequestRepository
	Broadcaster     Broadcaster
	Notifier        Notifier
	UploadDir       string
}

// NewService constructs the conversation/message service.
func NewService(cfg Config) *Service {
	return &Service{
		conversations:   cfg.Conversations,
		messages:        cfg.Messages,
		receipts:        cfg.Receipts,
		typing:          cfg.Typing,
		users:           cfg.Users,
		serviceRequests: cfg.ServiceRequests,
		broadcaster:     cfg.Broadcaster,
		notifier:        cfg.Notifier,
		uploadDir:       cfg.UploadDir,
	}
}

// SetBroadcaster attaches the realtime gateway's hub after construction.
// The hub needs the service for its event handlers and vice versa.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// AuthorizeParticipant fails unless the user is an active participant of the
// conversation right now. Called per operation; never cached.
func (s *Service) AuthorizeParticipant(ctx context.Context, conversationID, userID int) error {
	ok, err := s.conversations.IsActiveParticipant(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// CreateConversationInput selects either a service request or a direct peer.
type CreateConversationInput struct {
	ServiceRequestID *int
	ParticipantID    *int
}

// CreateConversation opens (or returns) the one conversation for a service
// request or a direct pair. Roles come from the service request's own records
// or from each user's role, never from caller input.
func (s *Service) CreateConversation(ctx context.Context, callerID int, in CreateConversationInput) (models.Conversation, error) {
	if in.ServiceRequestID != nil {
		sr, err := s.serviceRequests.GetServiceRequest(ctx, *in.ServiceRequestID)
		if err != nil {
			return models.Conversation{}, err
		}
		if callerID != sr.SeekerID && callerID != sr.ProviderID {
			return models.Conversation{}, ErrNotRequestParty
		}
		return s.conversations.CreateForServiceRequest(ctx, sr.ID, sr.SeekerID, sr.ProviderID)
	}

	if callerID == *in.ParticipantID {
		return models.Conversation{}, ErrSelfConversation
	}
	caller, err := s.users.GetUser(ctx, callerID)
	if err != nil {
		return models.Conversation{}, err
	}
	other, err := s.users.GetUser(ctx, *in.ParticipantID)
	if err != nil {
		return models.Conversation{}, err
	}

	if caller.Role == other.Role {
		return models.Conversation{}, ErrSameRole
	}
	seekerID, providerID := caller.ID, other.ID
	if caller.Role == models.RoleProvider {
		seekerID, providerID = other.ID, caller.ID
	}
	return s.conversations.CreateDirect(ctx, seekerID, providerID)
}

// ListConversations returns the caller's active conversations, enriched.
func (s *Service) ListConversations(ctx context.Context, callerID, limit, offset int) ([]models.ConversationSummary, error) {
	return s.conversations.ListForUser(ctx, callerID, limit, offset)
}

// GetConversation returns one conversation the caller is a party to, in the
// same enriched shape as a list item without the unread count. Non-parties
// get not-found: ownership is not inferable from the id alone.
func (s *Service) GetConversation(ctx context.Context, callerID, conversationID int) (models.ConversationSummary, error) {
	return s.conversations.GetForUser(ctx, conversationID, callerID)
}

// ListMessages returns the conversation history, oldest first, for an active
// participant.
func (s *Service) ListMessages(ctx context.Context, callerID, conversationID, limit, offset int) ([]models.Message, error) {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	return s.messages.ListForConversation(ctx, conversationID, callerID, limit, offset)
}

// SendMessageInput is the transport-independent send request.
type SendMessageInput struct {
	Content          string
	MessageType      string
	FileURL          *string
	FileName         *string
	FileSize         *int64
	ReplyToMessageID *int
}

// SendMessage is the single append path shared by HTTP and realtime sends:
// validate, re-check participancy, persist, bump conversation ordering,
// broadcast to the room, then fire the offline notification hook without
// blocking the send. Validation lives here so the two transports cannot
// diverge on what a sendable message is.
func (s *Service) SendMessage(ctx context.Context, senderID, conversationID int, in SendMessageInput) (models.Message, error) {
	if strings.TrimSpace(in.Content) == "" && in.FileURL == nil {
		return models.Message{}, ErrEmptyContent
	}
	if in.MessageType != "" && !models.ValidMessageType(in.MessageType) {
		return models.Message{}, ErrInvalidMessageType
	}
	if err := s.AuthorizeParticipant(ctx, conversationID, senderID); err != nil {
		return models.Message{}, err
	}

	messageType := in.MessageType
	if messageType == "" {
		messageType = models.MessageText
	}

	msg, err := s.messages.CreateMessage(ctx, repositories.CreateMessageParams{
		ConversationID:   conversationID,
		SenderID:         senderID,
		MessageType:      messageType,
		Content:          in.Content,
		FileURL:          in.FileURL,
		FileName:         in.FileName,
		FileSize:         in.FileSize,
		ReplyToMessageID: in.ReplyToMessageID,
	})
	if err != nil {
		return models.Message{}, err
	}

	if err := s.conversations.TouchLastMessage(ctx, conversationID, msg.CreatedAt); err != nil {
		log.Printf("touch last message for conversation %d: %v", conversationID, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.ToConversation(conversationID, models.ServerEvent{
			Type: models.EventNewMessage,
			Data: msg,
		})
	}
	s.notifyOfflineParticipants(ctx, conversationID, msg)

	return msg, nil
}

// notifyOfflineParticipants fires the hook for every active participant with
// no entry in the connection registry. Best effort only.
func (s *Service) notifyOfflineParticipants(ctx context.Context, conversationID int, msg models.Message) {
	if s.notifier == nil {
		return
	}
	participants, err := s.conversations.ListParticipants(ctx, conversationID)
	if err != nil {
		log.Printf("list participants for notification: %v", err)
		return
	}
	for _, p := range participants {
		if p.UserID == msg.SenderID {
			continue
		}
		if s.broadcaster != nil && s.broadcaster.IsOnline(p.UserID) {
			continue
		}
		go s.notifier.NotifyOffline(context.WithoutCancel(ctx), p.UserID, msg)
	}
}

// EditMessage updates a message's content for its sender only.
func (s *Service) EditMessage(ctx context.Context, callerID, messageID int, content string) (models.Message, error) {
	existing, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if existing.SenderID != callerID {
		return models.Message{}, ErrNotSender
	}

	msg, err := s.messages.EditMessage(ctx, messageID, callerID, content)
	if err != nil {
		return models.Message{}, err
	}

	if s.broadcaster != nil && msg.EditedAt != nil {
		s.broadcaster.ToConversation(msg.ConversationID, models.ServerEvent{
			Type: models.EventMessageEdited,
			Data: models.MessageEditedEvent{MessageID: msg.ID, Content: msg.Content, EditedAt: *msg.EditedAt},
		})
	}
	return msg, nil
}

// DeleteMessage removes the sender's own message. The attachment file, if
// any, is removed best effort: a failed unlink is logged and the deletion
// still succeeds.
func (s *Service) DeleteMessage(ctx context.Context, callerID, messageID int) error {
	existing, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if existing.SenderID != callerID {
		return ErrNotSender
	}

	if err := s.messages.DeleteMessage(ctx, messageID, callerID); err != nil {
		return err
	}

	if existing.FileURL != nil && *existing.FileURL != "" {
		path := filepath.Join(s.uploadDir, filepath.Base(*existing.FileURL))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("remove attachment %s for message %d: %v", path, messageID, err)
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.ToConversation(existing.ConversationID, models.ServerEvent{
			Type: models.EventMessageDeleted,
			Data: models.MessageDeletedEvent{MessageID: messageID, ConversationID: existing.ConversationID},
		})
	}
	return nil
}

// MarkRead records receipts for the caller and tells the rest of the room.
// A nil id list marks everything unread from other senders, the same set the
// conversation list counts. Returns the number of receipts created.
func (s *Service) MarkRead(ctx context.Context, callerID, conversationID int, messageIDs []int) (int, error) {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return 0, err
	}

	marked, err := s.receipts.MarkMessagesRead(ctx, conversationID, callerID, messageIDs)
	if err != nil {
		return 0, err
	}

	if s.broadcaster != nil {
		s.broadcaster.ToConversationExcept(conversationID, callerID, models.ServerEvent{
			Type: models.EventMessagesRead,
			Data: models.MessagesReadEvent{
				ConversationID: conversationID,
				UserID:         callerID,
				MessageIDs:     messageIDs,
				ReadAt:         time.Now().UTC(),
			},
		})
	}
	return marked, nil
}

// SetTyping upserts the caller's typing flag and rebroadcasts it to the rest
// of the room. Participancy is checked the same as for sends.
func (s *Service) SetTyping(ctx context.Context, callerID int, callerName string, conversationID int, isTyping bool) error {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	if err := s.typing.SetTyping(ctx, conversationID, callerID, isTyping); err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.ToConversationExcept(conversationID, callerID, models.ServerEvent{
			Type: models.EventUserTyping,
			Data: models.TypingEvent{
				ConversationID: conversationID,
				UserID:         callerID,
				UserName:       callerName,
				IsTyping:       isTyping,
			},
		})
	}
	return nil
}

// ClearTyping removes every typing row for a disconnecting user and sends a
// synthetic stop to each affected room, so indicators disappear immediately
// instead of waiting for the sweep.
func (s *Service) ClearTyping(ctx context.Context, userID int, userName string) error {
	conversationIDs, err := s.typing.DeleteForUser(ctx, userID)
	if err != nil {
		return err
	}
	if s.broadcaster == nil {
		return nil
	}
	for _, conversationID := range conversationIDs {
		s.broadcaster.ToConversationExcept(conversationID, userID, models.ServerEvent{
			Type: models.EventUserTyping,
			Data: models.TypingEvent{
				ConversationID: conversationID,
				UserID:         userID,
				UserName:       userName,
				IsTyping:       false,
			},
		})
	}
	return nil
}

// UnreadCount reports how many messages from other senders the caller has not
// read in the conversation; the same set a bulk mark-read would clear.
func (s *Service) UnreadCount(ctx context.Context, callerID, conversationID int) (int, error) {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return 0, err
	}
	return s.receipts.CountUnread(ctx, conversationID, callerID)
}

// Participants lists the conversation's active participants.
func (s *Service) Participants(ctx context.Context, callerID, conversationID int) ([]models.ParticipantInfo, error) {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return nil, err
	}
	return s.conversations.ListParticipants(ctx, conversationID)
}

// Archive moves the conversation to archived. One-way.
func (s *Service) Archive(ctx context.Context, callerID, conversationID int) error {
	return s.transition(ctx, callerID, conversationID, models.ConversationArchived)
}

// Block moves the conversation to blocked. One-way.
func (s *Service) Block(ctx context.Context, callerID, conversationID int) error {
	return s.transition(ctx, callerID, conversationID, models.ConversationBlocked)
}

func (s *Service) transition(ctx context.Context, callerID, conversationID int, status string) error {
	if err := s.AuthorizeParticipant(ctx, conversationID, callerID); err != nil {
		return err
	}
	return s.conversations.UpdateStatus(ctx, conversationID, status)
}
