package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"serveease-chat/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation and participant persistence.
type ConversationRepository interface {
	CreateForServiceRequest(ctx context.Context, serviceRequestID, seekerID, providerID int) (models.Conversation, error)
	CreateDirect(ctx context.Context, seekerID, providerID int) (models.Conversation, error)
	GetForUser(ctx context.Context, conversationID, userID int) (models.ConversationSummary, error)
	ListForUser(ctx context.Context, userID, limit, offset int) ([]models.ConversationSummary, error)
	IsActiveParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	ListParticipants(ctx context.Context, conversationID int) ([]models.ParticipantInfo, error)
	UpdateStatus(ctx context.Context, conversationID int, status string) error
	TouchLastMessage(ctx context.Context, conversationID int, at time.Time) error
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

const conversationColumns = `id, service_request_id, seeker_id, provider_id, status, created_at, last_message_at`

// CreateForServiceRequest creates the conversation for a service request, or
// returns the existing one. The partial unique index on service_request_id
// makes concurrent first-contact requests converge on a single row.
func (r *ConversationRepo) CreateForServiceRequest(ctx context.Context, serviceRequestID, seekerID, providerID int) (models.Conversation, error) {
	return r.createConversation(ctx, &serviceRequestID, seekerID, providerID,
		`SELECT `+conversationColumns+` FROM conversations WHERE service_request_id=$1`,
		serviceRequestID)
}

// CreateDirect creates a direct conversation between a seeker and a provider,
// or returns the existing one for that pair.
func (r *ConversationRepo) CreateDirect(ctx context.Context, seekerID, providerID int) (models.Conversation, error) {
	return r.createConversation(ctx, nil, seekerID, providerID,
		`SELECT `+conversationColumns+` FROM conversations WHERE seeker_id=$1 AND provider_id=$2 AND service_request_id IS NULL`,
		seekerID, providerID)
}

func (r *ConversationRepo) createConversation(ctx context.Context, serviceRequestID *int, seekerID, providerID int, lookupQuery string, lookupArgs ...any) (models.Conversation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, err
	}
	defer tx.Rollback()

	var conv models.Conversation
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO conversations (service_request_id, seeker_id, provider_id)
         VALUES ($1, $2, $3)
         ON CONFLICT DO NOTHING
         RETURNING `+conversationColumns,
		serviceRequestID, seekerID, providerID).StructScan(&conv)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict: the conversation and its participants already exist.
		if err := r.db.GetContext(ctx, &conv, lookupQuery, lookupArgs...); err != nil {
			return models.Conversation{}, err
		}
		return conv, nil
	}
	if err != nil {
		return models.Conversation{}, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_participants (conversation_id, user_id, role)
         VALUES ($1, $2, 'seeker'), ($1, $3, 'provider')`,
		conv.ID, seekerID, providerID)
	if err != nil {
		return models.Conversation{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetForUser fetches one conversation the user is a party to, in the same
// enriched shape as a list item but without the unread count. Non-parties get
// ErrConversationNotFound straight from the party filter in the query.
func (r *ConversationRepo) GetForUser(ctx context.Context, conversationID, userID int) (models.ConversationSummary, error) {
	query := `SELECT c.id, c.service_request_id, c.status, c.created_at, c.last_message_at,
            CASE WHEN c.seeker_id=$1 THEN c.provider_id ELSE c.seeker_id END AS other_user_id,
            u.name AS other_user_name,
            u.role AS other_user_role,
            lm.content AS last_content,
            lm.message_type AS last_type,
            lm.sender_id AS last_sender_id
        FROM conversations c
        JOIN users u ON u.id = CASE WHEN c.seeker_id=$1 THEN c.provider_id ELSE c.seeker_id END
        LEFT JOIN LATERAL (
            SELECT content, message_type, sender_id FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC LIMIT 1
        ) lm ON TRUE
        WHERE c.id=$2 AND (c.seeker_id=$1 OR c.provider_id=$1)`

	var row conversationListRow
	err := r.db.GetContext(ctx, &row, query, userID, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ConversationSummary{}, ErrConversationNotFound
	}
	if err != nil {
		return models.ConversationSummary{}, err
	}
	return row.summary(userID), nil
}

type conversationListRow struct {
	ID               int            `db:"id"`
	ServiceRequestID *int           `db:"service_request_id"`
	Status           string         `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	LastMessageAt    time.Time      `db:"last_message_at"`
	OtherUserID      int            `db:"other_user_id"`
	OtherUserName    string         `db:"other_user_name"`
	OtherUserRole    string         `db:"other_user_role"`
	LastContent      sql.NullString `db:"last_content"`
	LastType         sql.NullString `db:"last_type"`
	LastSenderID     sql.NullInt64  `db:"last_sender_id"`
	UnreadCount      int            `db:"unread_count"`
}

func (row conversationListRow) summary(userID int) models.ConversationSummary {
	s := models.ConversationSummary{
		ConversationID:   row.ID,
		ServiceRequestID: row.ServiceRequestID,
		Status:           row.Status,
		OtherUserID:      row.OtherUserID,
		OtherUserName:    row.OtherUserName,
		OtherUserRole:    row.OtherUserRole,
		UnreadCount:      row.UnreadCount,
		CreatedAt:        row.CreatedAt,
		LastMessageAt:    row.LastMessageAt,
	}
	if row.LastSenderID.Valid {
		s.LastMessage = &models.MessagePreview{
			Content:     row.LastContent.String,
			MessageType: row.LastType.String,
			SenderID:    int(row.LastSenderID.Int64),
			IsFromMe:    int(row.LastSenderID.Int64) == userID,
		}
	}
	return s
}

// ListForUser returns active conversations for the user, newest message first,
// each enriched with the other party, a last-message preview and the unread
// count. The unread predicate is the same one the bulk mark-read clears.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID, limit, offset int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, c.service_request_id, c.status, c.created_at, c.last_message_at,
            CASE WHEN c.seeker_id=$1 THEN c.provider_id ELSE c.seeker_id END AS other_user_id,
            u.name AS other_user_name,
            u.role AS other_user_role,
            lm.content AS last_content,
            lm.message_type AS last_type,
            lm.sender_id AS last_sender_id,
            (SELECT COUNT(*) FROM messages m
                WHERE ` + unreadFilter("c.id", "$1") + `
            ) AS unread_count
        FROM conversations c
        JOIN users u ON u.id = CASE WHEN c.seeker_id=$1 THEN c.provider_id ELSE c.seeker_id END
        LEFT JOIN LATERAL (
            SELECT content, message_type, sender_id FROM messages
            WHERE conversation_id = c.id
            ORDER BY created_at DESC, id DESC LIMIT 1
        ) lm ON TRUE
        WHERE (c.seeker_id=$1 OR c.provider_id=$1) AND c.status='active'
        ORDER BY c.last_message_at DESC
        LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryxContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ConversationSummary
	for rows.Next() {
		var row conversationListRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		result = append(result, row.summary(userID))
	}
	return result, rows.Err()
}

// IsActiveParticipant reports whether the user has a participant row with no
// left_at for the conversation. Every read and write path re-checks this.
func (r *ConversationRepo) IsActiveParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM conversation_participants
            WHERE conversation_id=$1 AND user_id=$2 AND left_at IS NULL)`,
		conversationID, userID)
	return exists, err
}

// ListParticipants returns active participants joined with user identity.
func (r *ConversationRepo) ListParticipants(ctx context.Context, conversationID int) ([]models.ParticipantInfo, error) {
	var participants []models.ParticipantInfo
	err := r.db.SelectContext(ctx, &participants,
		`SELECT p.user_id, u.name, u.email, p.role, p.joined_at, p.is_muted
         FROM conversation_participants p
         JOIN users u ON u.id = p.user_id
         WHERE p.conversation_id=$1 AND p.left_at IS NULL
         ORDER BY p.joined_at`,
		conversationID)
	return participants, err
}

// UpdateStatus moves a conversation to archived or blocked.
func (r *ConversationRepo) UpdateStatus(ctx context.Context, conversationID int, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET status=$2 WHERE id=$1`, conversationID, status)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// TouchLastMessage bumps the denormalized ordering timestamp.
func (r *ConversationRepo) TouchLastMessage(ctx context.Context, conversationID int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE conversations SET last_message_at=$2 WHERE id=$1`, conversationID, at)
	return err
}
