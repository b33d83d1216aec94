package ws

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/auth"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
)

// SessionHandler owns the realtime socket endpoint. After the upgrade the
// first client frame must be a register; message frames are durably
// appended through the conversation store before being relayed live.
type SessionHandler struct {
	relay            *Relay
	verifier         *auth.Verifier
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(relay *Relay, verifier *auth.Verifier, conversationRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository) *SessionHandler {
	return &SessionHandler{relay: relay, verifier: verifier, conversationRepo: conversationRepo, messageRepo: messageRepo}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the session read loop.
func (h *SessionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.principal(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHENTICATED", "message": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	meta := observability.MetaFromRequest(c.Request)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   meta.RequestID,
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	// The client announces itself before anything is routed to it.
	var frame models.ClientFrame
	if err := conn.ReadJSON(&frame); err != nil || frame.Type != models.FrameRegister {
		writeSystem(conn, "expected a register frame")
		conn.Close()
		return
	}

	h.relay.Register(userID, conn, info)
	observability.IncRelayEvent("ws_connect")
	publishSessionEvent(ctx, "ws_connect", info, "")

	go h.readLoop(conn, userID, info)
}

func (h *SessionHandler) readLoop(conn *websocket.Conn, userID int, info ConnInfo) {
	ctx := context.Background()
	var closeReason string
	defer func() {
		h.relay.Unregister(userID, conn)
		observability.IncRelayEvent("ws_disconnect")
		publishSessionEvent(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		var frame models.ClientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncRelayEvent("ws_error")
				publishSessionEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}

		switch frame.Type {
		case models.FrameRegister:
			// idempotent; the session is already the registered one
			h.relay.Push(userID, models.SystemEnvelope(userID, "registered"))
		case models.FrameMessage:
			h.handleMessage(ctx, userID, frame)
		default:
			h.relay.Push(userID, models.SystemEnvelope(userID, fmt.Sprintf("unknown frame type %q", frame.Type)))
		}
	}
}

// handleMessage appends the message durably, echoes the persisted record
// to the sender and relays it live to the recipient.
func (h *SessionHandler) handleMessage(ctx context.Context, userID int, frame models.ClientFrame) {
	if frame.Sender != 0 && frame.Sender != userID {
		h.pushError(userID, apperrors.ErrNotPrincipal)
		return
	}

	conv, err := h.conversationRepo.GetByPair(ctx, userID, frame.Recipient)
	if err != nil {
		h.pushError(userID, err)
		return
	}

	msg, err := h.messageRepo.Append(ctx, conv.ID, userID, frame.Recipient, frame.Content, frame.Attachments)
	if err != nil {
		h.pushError(userID, err)
		return
	}

	env := models.MessageEnvelope(msg)
	h.relay.Push(userID, env)
	h.relay.Deliver(env)
}

func (h *SessionHandler) pushError(userID int, err error) {
	text := fmt.Sprintf("%s: %s", apperrors.CodeOf(err), err.Error())
	h.relay.Push(userID, models.SystemEnvelope(userID, text))
}

func (h *SessionHandler) principal(header string) (int, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Principal(parts[1])
	}
	return 0, fmt.Errorf("invalid token")
}

// writeSystem is only safe before the conn is registered with the relay;
// afterwards all writes go through the relay's per-session lock.
func writeSystem(conn *websocket.Conn, text string) {
	_ = conn.WriteJSON(models.Envelope{Type: models.FrameSystem, Text: text})
}
