package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Relay is the process-wide registry mapping an online user to its one
// live transport. Delivery is best-effort: durability belongs to the
// conversation store, the relay only adds immediacy.
type Relay struct {
	mu       sync.RWMutex
	sessions map[int]*session
}

type session struct {
	conn *websocket.Conn
	info ConnInfo

	writeMu sync.Mutex
}

func (s *session) write(env models.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// NewRelay creates an empty relay.
func NewRelay() *Relay {
	return &Relay{sessions: make(map[int]*session)}
}

// Register stores the user's transport and acks with a system frame.
// Last connection wins: a previous socket for the same user is closed
// and replaced.
func (r *Relay) Register(userID int, conn *websocket.Conn, info ConnInfo) {
	s := &session{conn: conn, info: info}

	// The ack goes out before the session is visible to Deliver, so it
	// is always the first frame on a new socket.
	if err := s.write(models.SystemEnvelope(userID, "registered")); err != nil {
		log.Printf("relay ack write error: %v", err)
	}

	r.mu.Lock()
	prev := r.sessions[userID]
	r.sessions[userID] = s
	r.mu.Unlock()

	if prev == nil {
		observability.IncRelayActive()
	} else if prev.conn != conn {
		prev.conn.Close()
	}
	observability.IncRelayEvent("register")
}

// Unregister removes the user's mapping only while it still points at
// conn, so a replaced socket cannot evict its successor.
func (r *Relay) Unregister(userID int, conn *websocket.Conn) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	if ok && s.conn == conn {
		delete(r.sessions, userID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		observability.DecRelayActive()
	}
}

// Online reports whether the user currently has a live transport.
func (r *Relay) Online(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[userID]
	return ok
}

// Deliver pushes the envelope to the recipient's transport if one is
// registered. An offline recipient or a failed write drops the envelope;
// the caller has already persisted the message and is never failed here.
func (r *Relay) Deliver(env models.Envelope) {
	r.Push(env.Recipient, env)
}

// Push routes an envelope to an explicit user, regardless of the
// envelope's recipient field. Used for sender-side echo frames.
func (r *Relay) Push(userID int, env models.Envelope) {
	r.mu.RLock()
	s := r.sessions[userID]
	r.mu.RUnlock()

	if s == nil {
		observability.IncRelayDropped()
		return
	}

	if err := s.write(env); err != nil {
		log.Printf("relay write error: %v", err)
		s.conn.Close()
		r.Unregister(userID, s.conn)
		observability.IncRelayEvent("ws_error")
		publishSessionEvent(context.Background(), "ws_error", s.info, err.Error())
		return
	}
	observability.IncRelayEvent("deliver")
}

// publishSessionEvent ships one socket lifecycle event to the broker.
func publishSessionEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(ctx, "ws_events.relay", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
