package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

const conversationColumns = `id, chat_key, user_lo, user_hi, created_at, last_updated`

// ChatKey derives the canonical conversation key for an unordered pair:
// the numerically sorted ids joined with an underscore. Callers address
// conversations by participant pair, never by a caller-built id.
func ChatKey(a, b int) string {
	lo, hi := orderPair(a, b)
	return strconv.Itoa(lo) + "_" + strconv.Itoa(hi)
}

// ConversationRepository owns canonical conversation identity.
type ConversationRepository interface {
	GetOrCreate(ctx context.Context, userID int, peerID int) (models.Conversation, error)
	GetByPair(ctx context.Context, userID int, peerID int) (models.Conversation, error)
	ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// GetOrCreate looks up the pair's conversation and lazily creates it.
// Concurrent opens of the same pair converge on one row: the insert is
// guarded by the unique chat key and the loser re-reads the winner's row.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, apperrors.ErrSelfConversation
	}
	key := ChatKey(userID, peerID)
	lo, hi := orderPair(userID, peerID)

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE chat_key=$1`, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	insertErr := r.db.QueryRowxContext(ctx,
		`INSERT INTO conversations (chat_key, user_lo, user_hi) VALUES ($1, $2, $3)
         ON CONFLICT (chat_key) DO NOTHING
         RETURNING `+conversationColumns, key, lo, hi).StructScan(&conv)
	if insertErr == nil {
		return conv, nil
	}
	if !errors.Is(insertErr, sql.ErrNoRows) {
		return models.Conversation{}, insertErr
	}

	// duplicate-key conflict: a concurrent open won, re-read its row
	if err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE chat_key=$1`, key); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// GetByPair fetches the pair's conversation without creating it.
func (r *ConversationRepo) GetByPair(ctx context.Context, userID int, peerID int) (models.Conversation, error) {
	if userID == peerID {
		return models.Conversation{}, apperrors.ErrSelfConversation
	}
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE chat_key=$1`, ChatKey(userID, peerID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperrors.ErrConversationNotFound
	}
	return conv, err
}

// ListForUser returns the user's conversations, most recently active
// first, each summarized with its peer and last message.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.ConversationSummary, error) {
	query := `SELECT c.id, c.chat_key, c.user_lo, c.user_hi, c.created_at, c.last_updated,
            m.id AS msg_id, m.sender_id, m.recipient_id, m.content, m.read, m.attachments, m.created_at AS msg_created_at
        FROM conversations c
        LEFT JOIN LATERAL (
            SELECT id, sender_id, recipient_id, content, read, attachments, created_at
            FROM messages WHERE conversation_id = c.id
            ORDER BY id DESC LIMIT 1
        ) m ON TRUE
        WHERE c.user_lo=$1 OR c.user_hi=$1
        ORDER BY c.last_updated DESC`
	rows, err := r.db.QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ConversationSummary
	for rows.Next() {
		var row struct {
			models.Conversation
			MsgID        *int            `db:"msg_id"`
			SenderID     *int            `db:"sender_id"`
			RecipientID  *int            `db:"recipient_id"`
			Content      *string         `db:"content"`
			Read         *bool           `db:"read"`
			Attachments  *pq.StringArray `db:"attachments"`
			MsgCreatedAt sql.NullTime    `db:"msg_created_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}

		summary := models.ConversationSummary{
			ConversationID: row.ID,
			PeerID:         row.Conversation.Peer(userID),
			LastUpdated:    row.LastUpdated,
		}
		if row.MsgID != nil {
			msg := models.Message{
				ID:             *row.MsgID,
				ConversationID: row.ID,
				SenderID:       *row.SenderID,
				RecipientID:    *row.RecipientID,
				Content:        *row.Content,
				Read:           *row.Read,
			}
			if row.Attachments != nil {
				msg.Attachments = []string(*row.Attachments)
			}
			if row.MsgCreatedAt.Valid {
				msg.CreatedAt = row.MsgCreatedAt.Time
			}
			summary.LastMessage = &msg
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}
