package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"serveease-chat/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// CreateMessageParams carries everything needed to persist one message.
type CreateMessageParams struct {
	ConversationID   int
	SenderID         int
	MessageType      string
	Content          string
	FileURL          *string
	FileName         *string
	FileSize         *int64
	ReplyToMessageID *int
}

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID, callerID, limit, offset int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	EditMessage(ctx context.Context, messageID, senderID int, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID, senderID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns it with the sender's identity
// inlined, so broadcasts need no follow-up lookup.
func (r *MessageRepo) CreateMessage(ctx context.Context, params CreateMessageParams) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`WITH inserted AS (
            INSERT INTO messages (conversation_id, sender_id, message_type, content, file_url, file_name, file_size, reply_to_message_id)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING id, conversation_id, sender_id, message_type, content, file_url, file_name, file_size,
                      reply_to_message_id, is_edited, edited_at, created_at
        )
        SELECT i.id, i.conversation_id, i.sender_id, u.name AS sender_name, u.email AS sender_email,
               i.message_type, i.content, i.file_url, i.file_name, i.file_size,
               i.reply_to_message_id, i.is_edited, i.edited_at, i.created_at
        FROM inserted i JOIN users u ON u.id = i.sender_id`,
		params.ConversationID, params.SenderID, params.MessageType, params.Content,
		params.FileURL, params.FileName, params.FileSize, params.ReplyToMessageID).StructScan(&msg)
	return msg, err
}

// ListForConversation returns messages newest-first from storage, reordered
// oldest-first for the response, each with sender identity, reply preview and
// read count. IsFromMe is resolved against the caller.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID, callerID, limit, offset int) ([]models.Message, error) {
	query := `SELECT m.id, m.conversation_id, m.sender_id, u.name AS sender_name, u.email AS sender_email,
            m.message_type, m.content, m.file_url, m.file_name, m.file_size,
            m.reply_to_message_id, rm.content AS reply_content, ru.name AS reply_sender_name,
            m.is_edited, m.edited_at, m.created_at,
            (SELECT COUNT(*) FROM message_read_receipts r WHERE r.message_id = m.id) AS read_count
        FROM messages m
        JOIN users u ON u.id = m.sender_id
        LEFT JOIN messages rm ON rm.id = m.reply_to_message_id
        LEFT JOIN users ru ON ru.id = rm.sender_id
        WHERE m.conversation_id=$1
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT $2 OFFSET $3`

	var msgs []models.Message
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit, offset); err != nil {
		return nil, err
	}
	// Consumers render top-to-bottom chronologically.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	for i := range msgs {
		msgs[i].IsFromMe = msgs[i].SenderID == callerID
	}
	return msgs, nil
}

// GetMessage retrieves a single message with sender identity.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg,
		`SELECT m.id, m.conversation_id, m.sender_id, u.name AS sender_name, u.email AS sender_email,
                m.message_type, m.content, m.file_url, m.file_name, m.file_size,
                m.reply_to_message_id, m.is_edited, m.edited_at, m.created_at
         FROM messages m JOIN users u ON u.id = m.sender_id
         WHERE m.id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// EditMessage updates content for the sender's own message and stamps the edit.
func (r *MessageRepo) EditMessage(ctx context.Context, messageID, senderID int, content string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`WITH updated AS (
            UPDATE messages SET content=$3, is_edited=TRUE, edited_at=NOW()
            WHERE id=$1 AND sender_id=$2
            RETURNING id, conversation_id, sender_id, message_type, content, file_url, file_name, file_size,
                      reply_to_message_id, is_edited, edited_at, created_at
        )
        SELECT up.id, up.conversation_id, up.sender_id, u.name AS sender_name, u.email AS sender_email,
               up.message_type, up.content, up.file_url, up.file_name, up.file_size,
               up.reply_to_message_id, up.is_edited, up.edited_at, up.created_at
        FROM updated up JOIN users u ON u.id = up.sender_id`,
		messageID, senderID, content).StructScan(&msg)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// DeleteMessage hard-deletes the sender's own message.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID, senderID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id=$1 AND sender_id=$2`, messageID, senderID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
