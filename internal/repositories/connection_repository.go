package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

const connectionColumns = `id, user_lo, user_hi, requester_id, status, created_at, updated_at`

// ConnectionRepository owns the friend-request lifecycle and the accepted
// edge set. One row per unordered user pair, so every transition is a
// single atomic statement.
type ConnectionRepository interface {
	SendRequest(ctx context.Context, fromID int, toID int) (models.Connection, error)
	AcceptRequest(ctx context.Context, selfID int, requesterID int) (models.Connection, error)
	RejectRequest(ctx context.Context, selfID int, requesterID int) (models.Connection, error)
	RemoveConnection(ctx context.Context, selfID int, peerID int) error
	ListFriendState(ctx context.Context, userID int) (models.FriendState, error)
}

// ConnectionRepo is a sqlx implementation of ConnectionRepository.
type ConnectionRepo struct {
	db *sqlx.DB
}

// NewConnectionRepo constructs a ConnectionRepo.
func NewConnectionRepo(db *sqlx.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

func orderPair(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

// requestBlocker maps an existing edge's status to the error a new
// request fails with. Only a resolved rejection lets the request
// through to re-enter pending.
func requestBlocker(status models.ConnectionStatus) error {
	switch status {
	case models.ConnectionAccepted:
		return apperrors.ErrAlreadyConnected
	case models.ConnectionPending:
		return apperrors.ErrRequestPending
	case models.ConnectionBlocked:
		return apperrors.ErrConnectionBlocked
	}
	return nil
}

// partitionEdges splits a user's edge rows into the friend-state view:
// accepted edges first, then pending edges by direction.
func partitionEdges(rows []models.Connection, userID int) models.FriendState {
	state := models.FriendState{
		Friends:  []models.FriendEdge{},
		Incoming: []models.FriendEdge{},
		Outgoing: []models.FriendEdge{},
	}
	for _, conn := range rows {
		edge := models.FriendEdge{PeerID: conn.Peer(userID), Status: conn.Status, CreatedAt: conn.CreatedAt}
		switch {
		case conn.Status == models.ConnectionAccepted:
			state.Friends = append(state.Friends, edge)
		case conn.RequesterID == userID:
			state.Outgoing = append(state.Outgoing, edge)
		default:
			state.Incoming = append(state.Incoming, edge)
		}
	}
	return state
}

// SendRequest creates a pending edge between the pair. A resolved
// rejection re-enters pending with the new requester; accepted, pending
// and blocked edges refuse the request.
func (r *ConnectionRepo) SendRequest(ctx context.Context, fromID int, toID int) (models.Connection, error) {
	if fromID == toID {
		return models.Connection{}, apperrors.ErrSelfConnection
	}
	lo, hi := orderPair(fromID, toID)

	var existing models.Connection
	err := r.db.GetContext(ctx, &existing,
		`SELECT `+connectionColumns+` FROM connections WHERE user_lo=$1 AND user_hi=$2`, lo, hi)
	switch {
	case err == nil:
		if blockErr := requestBlocker(existing.Status); blockErr != nil {
			return models.Connection{}, blockErr
		}
		var conn models.Connection
		if err := r.db.QueryRowxContext(ctx,
			`UPDATE connections SET status='pending', requester_id=$3, updated_at=NOW()
             WHERE user_lo=$1 AND user_hi=$2 AND status='rejected'
             RETURNING `+connectionColumns, lo, hi, fromID).StructScan(&conn); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// lost a race against a concurrent transition
				return models.Connection{}, apperrors.ErrRequestPending
			}
			return models.Connection{}, err
		}
		return conn, nil
	case errors.Is(err, sql.ErrNoRows):
		var conn models.Connection
		insertErr := r.db.QueryRowxContext(ctx,
			`INSERT INTO connections (user_lo, user_hi, requester_id) VALUES ($1, $2, $3)
             ON CONFLICT (user_lo, user_hi) DO NOTHING
             RETURNING `+connectionColumns, lo, hi, fromID).StructScan(&conn)
		if insertErr == nil {
			return conn, nil
		}
		if errors.Is(insertErr, sql.ErrNoRows) {
			// concurrent creator won; the request is effectively pending
			return models.Connection{}, apperrors.ErrRequestPending
		}
		return models.Connection{}, insertErr
	default:
		return models.Connection{}, err
	}
}

// AcceptRequest flips a pending edge addressed to self into accepted.
func (r *ConnectionRepo) AcceptRequest(ctx context.Context, selfID int, requesterID int) (models.Connection, error) {
	return r.resolveRequest(ctx, selfID, requesterID, models.ConnectionAccepted)
}

// RejectRequest resolves a pending edge addressed to self as rejected.
func (r *ConnectionRepo) RejectRequest(ctx context.Context, selfID int, requesterID int) (models.Connection, error) {
	return r.resolveRequest(ctx, selfID, requesterID, models.ConnectionRejected)
}

func (r *ConnectionRepo) resolveRequest(ctx context.Context, selfID int, requesterID int, status models.ConnectionStatus) (models.Connection, error) {
	if selfID == requesterID {
		return models.Connection{}, apperrors.ErrSelfConnection
	}
	lo, hi := orderPair(selfID, requesterID)

	var conn models.Connection
	err := r.db.QueryRowxContext(ctx,
		`UPDATE connections SET status=$4, updated_at=NOW()
         WHERE user_lo=$1 AND user_hi=$2 AND status='pending' AND requester_id=$3
         RETURNING `+connectionColumns, lo, hi, requesterID, status).StructScan(&conn)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, apperrors.ErrNoPendingRequest
	}
	if err != nil {
		return models.Connection{}, err
	}
	return conn, nil
}

// RemoveConnection deletes the pair edge. Removing a non-existent edge is
// a no-op, not an error.
func (r *ConnectionRepo) RemoveConnection(ctx context.Context, selfID int, peerID int) error {
	lo, hi := orderPair(selfID, peerID)
	_, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE user_lo=$1 AND user_hi=$2`, lo, hi)
	return err
}

// ListFriendState returns accepted edges plus pending edges split by
// direction, the shape clients gate UI and messaging eligibility on.
func (r *ConnectionRepo) ListFriendState(ctx context.Context, userID int) (models.FriendState, error) {
	var rows []models.Connection
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+connectionColumns+` FROM connections
         WHERE (user_lo=$1 OR user_hi=$1) AND status IN ('accepted', 'pending')
         ORDER BY created_at DESC`, userID)
	if err != nil {
		return models.FriendState{}, err
	}

	return partitionEdges(rows, userID), nil
}
