package client

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

// Session is an open chat with one peer. Rendered messages are the merge
// of hydrated history and live envelopes, ordered by the server-assigned
// message id; the id doubles as the de-duplication key, so an optimistic
// echo, a hydration overlap and a live frame collapse into one entry.
type Session struct {
	client         *Client
	peerID         int
	conversationID int

	mu      sync.Mutex
	byID    map[int]models.Message
	pending []models.Message

	conn   *websocket.Conn
	closed chan struct{}

	// Notices receives non-fatal session notices, e.g. system frames
	// or the transport closing. Never blocks the read loop.
	Notices chan string
}

type openResponse struct {
	ConversationID int                  `json:"conversation_id"`
	ChatKey        string               `json:"chat_key"`
	Messages       []models.MessageView `json:"messages"`
}

// Open fetches or creates the conversation with the peer, hydrates its
// history and subscribes to live envelopes for the session's lifetime.
func (c *Client) Open(peerID int) (*Session, error) {
	var resp openResponse
	if err := c.get(fmt.Sprintf("/conversation/%d", peerID), &resp); err != nil {
		return nil, err
	}

	conn, err := c.dialSocket()
	if err != nil {
		return nil, err
	}

	s := &Session{
		client:         c,
		peerID:         peerID,
		conversationID: resp.ConversationID,
		byID:           make(map[int]models.Message, len(resp.Messages)),
		conn:           conn,
		closed:         make(chan struct{}),
		Notices:        make(chan string, 16),
	}
	for _, view := range resp.Messages {
		s.byID[view.ID] = view.Message
	}

	go s.readLoop()
	return s, nil
}

// Send rejects empty content locally, appends optimistically and posts
// the message. The persisted record replaces the optimistic entry.
func (s *Session) Send(content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, apperrors.ErrEmptyContent
	}

	optimistic := models.Message{
		ConversationID: s.conversationID,
		RecipientID:    s.peerID,
		Content:        content,
	}
	s.mu.Lock()
	s.pending = append(s.pending, optimistic)
	s.mu.Unlock()

	var msg models.Message
	err := s.client.post(fmt.Sprintf("/message/%d", s.peerID), map[string]interface{}{"content": content}, &msg)

	s.mu.Lock()
	s.dropPending(content)
	if err == nil {
		s.byID[msg.ID] = msg
	}
	s.mu.Unlock()

	if err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Messages returns the current merged view: persisted messages in id
// order followed by optimistic sends not yet acknowledged.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, 0, len(s.byID)+len(s.pending))
	for _, msg := range s.byID {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	out = append(out, s.pending...)
	return out
}

// Close unsubscribes from live envelopes. History is untouched.
func (s *Session) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	return s.conn.Close()
}

func (s *Session) readLoop() {
	for {
		var env models.Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			select {
			case <-s.closed:
			default:
				s.notify("transport closed: " + err.Error())
			}
			return
		}

		switch env.Type {
		case models.FrameMessage:
			if env.Message == nil || env.Message.ConversationID != s.conversationID {
				continue
			}
			s.ingest(*env.Message)
		case models.FrameSystem:
			s.notify(env.Text)
		}
	}
}

// ingest merges one live message into the session view, replacing a
// matching optimistic entry.
func (s *Session) ingest(msg models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.byID[msg.ID]; seen {
		return
	}
	s.byID[msg.ID] = msg
	s.dropPending(msg.Content)
}

func (s *Session) dropPending(content string) {
	for i, p := range s.pending {
		if p.Content == content {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

func (s *Session) notify(text string) {
	select {
	case s.Notices <- text:
	default:
		log.Printf("session notice dropped: %s", text)
	}
}
