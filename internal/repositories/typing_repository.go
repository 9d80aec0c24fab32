package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"serveease-chat/internal/models"
)

// TypingRepository manages transient typing-indicator rows.
type TypingRepository interface {
	SetTyping(ctx context.Context, conversationID, userID int, isTyping bool) error
	DeleteForUser(ctx context.Context, userID int) ([]int, error)
	SweepStale(ctx context.Context, olderThan time.Time) ([]models.TypingKey, error)
}

// TypingRepo is a sqlx implementation of TypingRepository.
type TypingRepo struct {
	db *sqlx.DB
}

// NewTypingRepo constructs a TypingRepo.
func NewTypingRepo(db *sqlx.DB) *TypingRepo {
	return &TypingRepo{db: db}
}

// SetTyping upserts the indicator row and refreshes its timestamp.
func (r *TypingRepo) SetTyping(ctx context.Context, conversationID, userID int, isTyping bool) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO typing_indicators (conversation_id, user_id, is_typing, updated_at)
         VALUES ($1, $2, $3, NOW())
         ON CONFLICT (conversation_id, user_id) DO UPDATE SET is_typing = EXCLUDED.is_typing, updated_at = NOW()`,
		conversationID, userID, isTyping)
	return err
}

// DeleteForUser clears a disconnecting user's indicators across all
// conversations and reports which conversations were affected.
func (r *TypingRepo) DeleteForUser(ctx context.Context, userID int) ([]int, error) {
	var conversationIDs []int
	err := r.db.SelectContext(ctx, &conversationIDs,
		`DELETE FROM typing_indicators WHERE user_id=$1 RETURNING conversation_id`, userID)
	return conversationIDs, err
}

// SweepStale removes rows not refreshed since olderThan, covering clients that
// crashed without a clean disconnect.
func (r *TypingRepo) SweepStale(ctx context.Context, olderThan time.Time) ([]models.TypingKey, error) {
	var keys []models.TypingKey
	err := r.db.SelectContext(ctx, &keys,
		`DELETE FROM typing_indicators WHERE updated_at < $1 RETURNING conversation_id, user_id`, olderThan)
	return keys, err
}
