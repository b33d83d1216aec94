package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
)

func newTestSession(history ...models.Message) *Session {
	s := &Session{
		peerID:         2,
		conversationID: 5,
		byID:           make(map[int]models.Message, len(history)),
		closed:         make(chan struct{}),
		Notices:        make(chan string, 16),
	}
	for _, m := range history {
		s.byID[m.ID] = m
	}
	return s
}

func TestMessagesOrderedByServerID(t *testing.T) {
	s := newTestSession(
		models.Message{ID: 3, Content: "third"},
		models.Message{ID: 1, Content: "first"},
		models.Message{ID: 2, Content: "second"},
	)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestIngestDeduplicatesByID(t *testing.T) {
	s := newTestSession(models.Message{ID: 1, ConversationID: 5, Content: "hi"})

	// A live frame overlapping the hydrated history must not duplicate.
	s.ingest(models.Message{ID: 1, ConversationID: 5, Content: "hi"})
	s.ingest(models.Message{ID: 2, ConversationID: 5, Content: "hey"})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, 1, msgs[0].ID)
	assert.Equal(t, 2, msgs[1].ID)
}

func TestIngestReplacesOptimisticEntry(t *testing.T) {
	s := newTestSession()
	s.pending = append(s.pending, models.Message{ConversationID: 5, RecipientID: 2, Content: "hello"})

	// Live echo for the optimistic send collapses into one entry.
	s.ingest(models.Message{ID: 4, ConversationID: 5, SenderID: 1, RecipientID: 2, Content: "hello"})

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, 4, msgs[0].ID)
	assert.Empty(t, s.pending)
}

func TestMessagesAppendsPendingAfterPersisted(t *testing.T) {
	s := newTestSession(models.Message{ID: 1, Content: "stored"})
	s.pending = append(s.pending, models.Message{Content: "in flight"})

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "stored", msgs[0].Content)
	assert.Equal(t, "in flight", msgs[1].Content)
	assert.Zero(t, msgs[1].ID)
}

func TestSendRejectsEmptyContent(t *testing.T) {
	s := newTestSession()

	_, err := s.Send("   ")
	require.Error(t, err)
	assert.Empty(t, s.pending)
	assert.Empty(t, s.Messages())
}

func TestNotifyNeverBlocks(t *testing.T) {
	s := newTestSession()

	for i := 0; i < cap(s.Notices)+5; i++ {
		s.notify("notice")
	}
	assert.Len(t, s.Notices, cap(s.Notices))
}
