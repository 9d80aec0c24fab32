package models

import "time"

// Message types accepted on send.
const (
	MessageText     = "text"
	MessageImage    = "image"
	MessageFile     = "file"
	MessageLocation = "location"
)

// Message is a chat message with sender identity and reply preview inlined,
// so receivers never need a follow-up lookup.
type Message struct {
	ID               int        `db:"id" json:"id"`
	ConversationID   int        `db:"conversation_id" json:"conversation_id"`
	SenderID         int        `db:"sender_id" json:"sender_id"`
	SenderName       string     `db:"sender_name" json:"sender_name"`
	SenderEmail      string     `db:"sender_email" json:"sender_email"`
	MessageType      string     `db:"message_type" json:"message_type"`
	Content          string     `db:"content" json:"content"`
	FileURL          *string    `db:"file_url" json:"file_url,omitempty"`
	FileName         *string    `db:"file_name" json:"file_name,omitempty"`
	FileSize         *int64     `db:"file_size" json:"file_size,omitempty"`
	ReplyToMessageID *int       `db:"reply_to_message_id" json:"reply_to_message_id,omitempty"`
	ReplyContent     *string    `db:"reply_content" json:"reply_content,omitempty"`
	ReplySenderName  *string    `db:"reply_sender_name" json:"reply_sender_name,omitempty"`
	IsEdited         bool       `db:"is_edited" json:"is_edited"`
	EditedAt         *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	ReadCount        int        `db:"read_count" json:"read_count"`
	IsFromMe         bool       `json:"is_from_me"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// ValidMessageType reports whether t is one of the accepted message types.
func ValidMessageType(t string) bool {
	switch t {
	case MessageText, MessageImage, MessageFile, MessageLocation:
		return true
	}
	return false
}

// TypingKey identifies one typing-indicator row.
type TypingKey struct {
	ConversationID int `db:"conversation_id"`
	UserID         int `db:"user_id"`
}
