package repositories

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, recipient_id, content, read, attachments, created_at`

// MessageRepository owns the append-only message log. Messages are never
// mutated after insert except the read flag.
type MessageRepository interface {
	Append(ctx context.Context, conversationID int, senderID int, recipientID int, content string, attachments []string) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID int, readerID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append stores a message and bumps the conversation's last_updated in
// one transaction. Content must be non-empty after trimming. The
// returned message carries the server-assigned id, which is strictly
// increasing and is the ordering and de-duplication key for live merges.
func (r *MessageRepo) Append(ctx context.Context, conversationID int, senderID int, recipientID int, content string, attachments []string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, apperrors.ErrEmptyContent
	}
	if attachments == nil {
		attachments = []string{}
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var msg models.Message
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO messages (conversation_id, sender_id, recipient_id, content, attachments)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING `+messageColumns,
		conversationID, senderID, recipientID, content, pq.Array(attachments)).StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_updated=NOW() WHERE id=$1`, conversationID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns the full ordered log, insertion order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id=$1 ORDER BY id ASC`, conversationID)
	return msgs, err
}

// MarkRead flips the read flag on messages addressed to the reader. The
// only permitted mutation of a persisted message.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID int, readerID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read=TRUE WHERE conversation_id=$1 AND recipient_id=$2 AND read=FALSE`,
		conversationID, readerID)
	return err
}
