package models

import "time"

// Conversation status values. Archive and block are one-way transitions.
const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationBlocked  = "blocked"
)

// Conversation links a seeker and a provider, optionally through a service request.
type Conversation struct {
	ID               int       `db:"id" json:"id"`
	ServiceRequestID *int      `db:"service_request_id" json:"service_request_id,omitempty"`
	SeekerID         int       `db:"seeker_id" json:"seeker_id"`
	ProviderID       int       `db:"provider_id" json:"provider_id"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	LastMessageAt    time.Time `db:"last_message_at" json:"last_message_at"`
}

// Participant is the membership row every chat operation is authorized against.
// A participant is active while left_at is unset.
type Participant struct {
	ConversationID int        `db:"conversation_id" json:"conversation_id"`
	UserID         int        `db:"user_id" json:"user_id"`
	Role           string     `db:"role" json:"role"`
	JoinedAt       time.Time  `db:"joined_at" json:"joined_at"`
	LeftAt         *time.Time `db:"left_at" json:"left_at,omitempty"`
	IsMuted        bool       `db:"is_muted" json:"is_muted"`
}

// ParticipantInfo is a participant row joined with the user's identity.
type ParticipantInfo struct {
	UserID   int       `db:"user_id" json:"user_id"`
	Name     string    `db:"name" json:"name"`
	Email    string    `db:"email" json:"email"`
	Role     string    `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
	IsMuted  bool      `db:"is_muted" json:"is_muted"`
}

// MessagePreview is the denormalized last-message snippet on a conversation summary.
type MessagePreview struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	SenderID    int    `json:"sender_id"`
	IsFromMe    bool   `json:"is_from_me"`
}

// ConversationSummary is the per-caller view returned by the conversation list.
type ConversationSummary struct {
	ConversationID   int             `json:"conversation_id"`
	ServiceRequestID *int            `json:"service_request_id,omitempty"`
	Status           string          `json:"status"`
	OtherUserID      int             `json:"other_user_id"`
	OtherUserName    string          `json:"other_user_name"`
	OtherUserRole    string          `json:"other_user_role"`
	LastMessage      *MessagePreview `json:"last_message,omitempty"`
	UnreadCount      int             `json:"unread_count"`
	CreatedAt        time.Time       `json:"created_at"`
	LastMessageAt    time.Time       `json:"last_message_at"`
}
