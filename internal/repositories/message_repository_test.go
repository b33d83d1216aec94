package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/apperrors"
)

var messageCols = []string{"id", "conversation_id", "sender_id", "recipient_id", "content", "read", "attachments", "created_at"}

func TestAppendCommitsMessageAndBump(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, 2, "hello", pq.Array([]string{})).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(9, 5, 1, 2, "hello", false, "{}", time.Now()))
	mock.ExpectExec("UPDATE conversations SET last_updated").
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	msg, err := repo.Append(context.Background(), 5, 1, 2, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 9, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRollsBackWhenBumpFails(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	// the insert must not survive a failed last_updated bump
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, 2, "hello", pq.Array([]string{})).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(9, 5, 1, 2, "hello", false, "{}", time.Now()))
	mock.ExpectExec("UPDATE conversations SET last_updated").
		WithArgs(5).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Append(context.Background(), 5, 1, 2, "hello", nil)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRejectsBlankContent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewMessageRepo(db)

	_, err := repo.Append(context.Background(), 5, 1, 2, "   ", nil)
	require.ErrorIs(t, err, apperrors.ErrEmptyContent)
	require.NoError(t, mock.ExpectationsWereMet())
}
