package models

import "time"

// Conversation is a private message thread between exactly two users.
// ChatKey is the sorted, underscore-joined pair of participant ids and is
// unique, so conversation identity is a pure function of the pair.
type Conversation struct {
	ID          int       `db:"id" json:"id"`
	ChatKey     string    `db:"chat_key" json:"chat_key"`
	UserLo      int       `db:"user_lo" json:"user_lo"`
	UserHi      int       `db:"user_hi" json:"user_hi"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// Peer returns the participant that is not userID.
func (c Conversation) Peer(userID int) int {
	if c.UserLo == userID {
		return c.UserHi
	}
	return c.UserLo
}

// ConversationSummary provides the API-friendly inbox view of a thread.
type ConversationSummary struct {
	ConversationID int       `json:"conversation_id"`
	PeerID         int       `json:"peer_id"`
	LastMessage    *Message  `json:"last_message,omitempty"`
	LastUpdated    time.Time `json:"last_updated"`
}

// UserInfo is the display projection maintained by the profile service.
type UserInfo struct {
	ID        int    `db:"id" json:"id"`
	Username  string `db:"username" json:"username"`
	AvatarURL string `db:"avatar_url" json:"avatar_url"`
}
