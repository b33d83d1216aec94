package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var connectionCols = []string{"id", "user_lo", "user_hi", "requester_id", "status", "created_at", "updated_at"}

func TestRequestBlocker(t *testing.T) {
	require.ErrorIs(t, requestBlocker(models.ConnectionAccepted), apperrors.ErrAlreadyConnected)
	require.ErrorIs(t, requestBlocker(models.ConnectionPending), apperrors.ErrRequestPending)
	require.ErrorIs(t, requestBlocker(models.ConnectionBlocked), apperrors.ErrConnectionBlocked)
	require.NoError(t, requestBlocker(models.ConnectionRejected))
}

func TestSendRequestReopensRejectedEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepo(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM connections WHERE user_lo=").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(connectionCols).
			AddRow(4, 1, 2, 2, "rejected", now, now))
	mock.ExpectQuery("UPDATE connections SET status='pending'").
		WithArgs(1, 2, 1).
		WillReturnRows(sqlmock.NewRows(connectionCols).
			AddRow(4, 1, 2, 1, "pending", now, now))

	conn, err := repo.SendRequest(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionPending, conn.Status)
	assert.Equal(t, 1, conn.RequesterID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRequestRefusesPendingEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepo(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM connections WHERE user_lo=").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(connectionCols).
			AddRow(4, 1, 2, 2, "pending", now, now))

	_, err := repo.SendRequest(context.Background(), 1, 2)
	require.ErrorIs(t, err, apperrors.ErrRequestPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendRequestLostInsertRace(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepo(db)

	// the pair row appears between the lookup and the guarded insert
	mock.ExpectQuery("SELECT (.+) FROM connections WHERE user_lo=").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows(connectionCols))
	mock.ExpectQuery("INSERT INTO connections").
		WithArgs(1, 2, 1).
		WillReturnRows(sqlmock.NewRows(connectionCols))

	_, err := repo.SendRequest(context.Background(), 1, 2)
	require.ErrorIs(t, err, apperrors.ErrRequestPending)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptRequestResolvesPendingEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepo(db)
	now := time.Now()

	mock.ExpectQuery("UPDATE connections SET status=").
		WithArgs(1, 2, 2, "accepted").
		WillReturnRows(sqlmock.NewRows(connectionCols).
			AddRow(4, 1, 2, 2, "accepted", now, now))

	conn, err := repo.AcceptRequest(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ConnectionAccepted, conn.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptRequestWithoutPendingEdge(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectionRepo(db)

	mock.ExpectQuery("UPDATE connections SET status=").
		WithArgs(1, 9, 9, "accepted").
		WillReturnRows(sqlmock.NewRows(connectionCols))

	_, err := repo.AcceptRequest(context.Background(), 1, 9)
	require.ErrorIs(t, err, apperrors.ErrNoPendingRequest)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionEdgesMutualAcceptance(t *testing.T) {
	// one accepted row surfaces as a friend for both endpoints, with
	// nothing left pending in either direction
	rows := []models.Connection{{ID: 4, UserLo: 1, UserHi: 2, RequesterID: 1, Status: models.ConnectionAccepted}}

	for _, viewer := range []int{1, 2} {
		state := partitionEdges(rows, viewer)
		require.Len(t, state.Friends, 1)
		assert.Empty(t, state.Incoming)
		assert.Empty(t, state.Outgoing)
	}
	assert.Equal(t, 2, partitionEdges(rows, 1).Friends[0].PeerID)
	assert.Equal(t, 1, partitionEdges(rows, 2).Friends[0].PeerID)
}

func TestPartitionEdgesPendingDirections(t *testing.T) {
	rows := []models.Connection{{ID: 4, UserLo: 1, UserHi: 2, RequesterID: 1, Status: models.ConnectionPending}}

	sender := partitionEdges(rows, 1)
	require.Len(t, sender.Outgoing, 1)
	assert.Empty(t, sender.Incoming)
	assert.Empty(t, sender.Friends)

	receiver := partitionEdges(rows, 2)
	require.Len(t, receiver.Incoming, 1)
	assert.Equal(t, 1, receiver.Incoming[0].PeerID)
	assert.Empty(t, receiver.Outgoing)
}
