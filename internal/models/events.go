package models

import (
	"encoding/json"
	"time"
)

// Websocket event names, client to server.
const (
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
	EventMarkMessagesRead  = "mark_messages_read"
)

// Websocket event names, server to client.
const (
	EventNewMessage     = "new_message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventMessagesRead   = "messages_read"
	EventUserTyping     = "user_typing"
	EventUserOnline     = "user_online"
	EventUserOffline    = "user_offline"
	EventError          = "error"
)

// ClientEvent is the envelope for events sent by websocket clients.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is the envelope for events pushed to websocket clients.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ConversationPayload carries join/leave/typing requests.
type ConversationPayload struct {
	ConversationID int `json:"conversation_id"`
}

// SendMessagePayload is the realtime send request.
type SendMessagePayload struct {
	ConversationID   int     `json:"conversation_id"`
	Content          string  `json:"content"`
	MessageType      string  `json:"message_type,omitempty"`
	FileURL          *string `json:"file_url,omitempty"`
	FileName         *string `json:"file_name,omitempty"`
	FileSize         *int64  `json:"file_size,omitempty"`
	ReplyToMessageID *int    `json:"reply_to_message_id,omitempty"`
}

// MarkReadPayload marks either the listed messages or, with no list, every
// unread message in the conversation.
type MarkReadPayload struct {
	ConversationID int   `json:"conversation_id"`
	MessageIDs     []int `json:"message_ids,omitempty"`
}

// MessagesReadEvent names the reader and what they have seen.
type MessagesReadEvent struct {
	ConversationID int       `json:"conversation_id"`
	UserID         int       `json:"user_id"`
	MessageIDs     []int     `json:"message_ids,omitempty"`
	ReadAt         time.Time `json:"read_at"`
}

// TypingEvent rebroadcasts a typing-state change to the rest of the room.
type TypingEvent struct {
	ConversationID int    `json:"conversation_id"`
	UserID         int    `json:"user_id"`
	UserName       string `json:"user_name"`
	IsTyping       bool   `json:"is_typing"`
}

// PresenceEvent announces a user going online or offline.
type PresenceEvent struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
}

// MessageEditedEvent carries the new content of an edited message.
type MessageEditedEvent struct {
	MessageID int       `json:"message_id"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"edited_at"`
}

// MessageDeletedEvent announces a hard message deletion.
type MessageDeletedEvent struct {
	MessageID      int `json:"message_id"`
	ConversationID int `json:"conversation_id"`
}

// ErrorEvent is emitted to the requester only, never to the room.
type ErrorEvent struct {
	Message string `json:"message"`
}
