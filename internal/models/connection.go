package models

import "time"

type ConnectionStatus string

const (
	ConnectionPending  ConnectionStatus = "pending"
	ConnectionAccepted ConnectionStatus = "accepted"
	ConnectionRejected ConnectionStatus = "rejected"
	ConnectionBlocked  ConnectionStatus = "blocked"
)

// Connection is the single edge record for an unordered user pair.
// UserLo < UserHi always; RequesterID identifies which side initiated.
type Connection struct {
	ID          int              `db:"id" json:"id"`
	UserLo      int              `db:"user_lo" json:"user_lo"`
	UserHi      int              `db:"user_hi" json:"user_hi"`
	RequesterID int              `db:"requester_id" json:"requester_id"`
	Status      ConnectionStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// Peer returns the edge endpoint that is not userID.
func (c Connection) Peer(userID int) int {
	if c.UserLo == userID {
		return c.UserHi
	}
	return c.UserLo
}

// FriendEdge is the per-user view of a connection.
type FriendEdge struct {
	PeerID    int              `json:"peer_id"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// FriendState groups a user's edges the way clients consume them.
type FriendState struct {
	Friends  []FriendEdge `json:"friends"`
	Incoming []FriendEdge `json:"incoming"`
	Outgoing []FriendEdge `json:"outgoing"`
}
