package models

import (
	"time"

	"github.com/lib/pq"
)

// Message is an append-only chat message. Once persisted only the Read
// flag ever changes; ordering within a conversation is id order.
type Message struct {
	ID             int            `db:"id" json:"id"`
	ConversationID int            `db:"conversation_id" json:"conversation_id"`
	SenderID       int            `db:"sender_id" json:"sender_id"`
	RecipientID    int            `db:"recipient_id" json:"recipient_id"`
	Content        string         `db:"content" json:"content"`
	Read           bool           `db:"read" json:"read"`
	Attachments    pq.StringArray `db:"attachments" json:"attachments"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// MessageView is the read-side projection with sender identity resolved.
type MessageView struct {
	Message
	SenderUsername string `json:"sender_username,omitempty"`
	SenderAvatar   string `json:"sender_avatar,omitempty"`
}
