package notify

import (
	"context"
	"time"

	"serveease-chat/internal/models"
	"serveease-chat/internal/rabbitmq"
)

// RoutingKey for offline-delivery notifications.
const RoutingKey = "chat.notifications.offline"

// Envelope is the payload handed to the downstream notification integration.
type Envelope struct {
	SchemaVersion  int       `json:"schema_version"`
	OccurredAt     time.Time `json:"occurred_at"`
	RecipientID    int       `json:"recipient_id"`
	ConversationID int       `json:"conversation_id"`
	MessageID      int       `json:"message_id"`
	SenderID       int       `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	MessageType    string    `json:"message_type"`
	Preview        string    `json:"preview"`
}

// OfflineNotifier publishes a best-effort event when a message is delivered
// to a participant with no live connection. No ordering or delivery
// guarantee; publish failures are logged by the publisher and swallowed.
type OfflineNotifier struct {
	publisher rabbitmq.Publisher
}

// NewOfflineNotifier constructs an OfflineNotifier.
func NewOfflineNotifier(publisher rabbitmq.Publisher) *OfflineNotifier {
	return &OfflineNotifier{publisher: publisher}
}

// NotifyOffline publishes the delivery event for one recipient.
func (n *OfflineNotifier) NotifyOffline(ctx context.Context, userID int, msg models.Message) {
	preview := msg.Content
	if len(preview) > 140 {
		preview = preview[:140]
	}
	_ = n.publisher.Publish(ctx, RoutingKey, Envelope{
		SchemaVersion:  1,
		OccurredAt:     time.Now().UTC(),
		RecipientID:    userID,
		ConversationID: msg.ConversationID,
		MessageID:      msg.ID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		MessageType:    msg.MessageType,
		Preview:        preview,
	})
}
