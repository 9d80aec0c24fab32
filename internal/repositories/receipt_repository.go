package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// unreadFilter renders the one unread predicate: messages in the given
// conversation not authored by the given user and lacking a read receipt for
// them. CountUnread, the bulk MarkMessagesRead and the conversation-list
// unread count all render it, so the reported count is exactly what a
// mark-read clears. convRef and userRef are SQL references (placeholder or
// column), never user input.
func unreadFilter(convRef, userRef string) string {
	return `m.conversation_id = ` + convRef + ` AND m.sender_id <> ` + userRef + `
        AND NOT EXISTS (SELECT 1 FROM message_read_receipts r WHERE r.message_id = m.id AND r.user_id = ` + userRef + `)`
}

// ReceiptRepository manages read receipts.
type ReceiptRepository interface {
	MarkMessagesRead(ctx context.Context, conversationID, userID int, messageIDs []int) (int, error)
	CountUnread(ctx context.Context, conversationID, userID int) (int, error)
}

// ReceiptRepo is a sqlx implementation of ReceiptRepository.
type ReceiptRepo struct {
	db *sqlx.DB
}

// NewReceiptRepo constructs a ReceiptRepo.
func NewReceiptRepo(db *sqlx.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// MarkMessagesRead upserts receipts for the given message ids, or, with a nil
// list, for every unread message from other senders in the conversation.
// Receipts are never created for the caller's own messages; duplicates are
// no-ops. Returns the number of receipts actually created.
func (r *ReceiptRepo) MarkMessagesRead(ctx context.Context, conversationID, userID int, messageIDs []int) (int, error) {
	var query string
	args := []any{conversationID, userID}
	if len(messageIDs) > 0 {
		query = `INSERT INTO message_read_receipts (message_id, user_id)
            SELECT m.id, $2 FROM messages m
            WHERE m.conversation_id = $1 AND m.sender_id <> $2 AND m.id = ANY($3)
            ON CONFLICT (message_id, user_id) DO NOTHING`
		args = append(args, pq.Array(messageIDs))
	} else {
		query = `INSERT INTO message_read_receipts (message_id, user_id)
            SELECT m.id, $2 FROM messages m
            WHERE ` + unreadFilter("$1", "$2") + `
            ON CONFLICT (message_id, user_id) DO NOTHING`
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	count, err := res.RowsAffected()
	return int(count), err
}

// CountUnread counts messages the bulk mark-read above would clear.
func (r *ReceiptRepo) CountUnread(ctx context.Context, conversationID, userID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages m WHERE `+unreadFilter("$1", "$2"), conversationID, userID)
	return count, err
}
