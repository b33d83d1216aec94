package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

// ConversationHandler manages the direct-message endpoints.
type ConversationHandler struct {
	conversationRepo repositories.ConversationRepository
	messageRepo      repositories.MessageRepository
	userRepo         repositories.UserRepository
	relay            *ws.Relay
	audit            *telemetry.AuditEmitter
}

// NewConversationHandler builds a ConversationHandler.
func NewConversationHandler(conversationRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, relay *ws.Relay, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		relay:            relay,
		audit:            audit,
	}
}

// Open returns the conversation with the peer, creating it lazily, and
// hydrates the full ordered history with sender identity resolved.
// Messages addressed to the caller are marked read before hydration so
// the returned view reflects the persisted state.
func (h *ConversationHandler) Open(c *gin.Context) {
	peerID, ok := pathID(c, "peer_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	conv, err := h.conversationRepo.GetOrCreate(c.Request.Context(), userID, peerID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.messageRepo.MarkRead(c.Request.Context(), conv.ID, userID); err != nil {
		respondError(c, err)
		return
	}

	msgs, err := h.messageRepo.ListForConversation(c.Request.Context(), conv.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	users, err := h.userRepo.BulkUsers(c.Request.Context(), []int{userID, peerID})
	if err != nil {
		respondError(c, err)
		return
	}
	infoByID := map[int]models.UserInfo{}
	for _, u := range users {
		infoByID[u.ID] = u
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		sender := infoByID[m.SenderID]
		views = append(views, models.MessageView{
			Message:        m,
			SenderUsername: sender.Username,
			SenderAvatar:   sender.AvatarURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID, "chat_key": conv.ChatKey, "messages": views})
}

// List returns the caller's conversations, most recently active first.
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.GetInt("userID")

	summaries, err := h.conversationRepo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	peerIDs := make([]int, 0, len(summaries))
	for _, s := range summaries {
		peerIDs = append(peerIDs, s.PeerID)
	}
	users, err := h.userRepo.BulkUsers(c.Request.Context(), peerIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	infoByID := map[int]models.UserInfo{}
	for _, u := range users {
		infoByID[u.ID] = u
	}

	type conversationResponse struct {
		models.ConversationSummary
		PeerUsername string `json:"peer_username,omitempty"`
		PeerAvatar   string `json:"peer_avatar,omitempty"`
	}

	responses := make([]conversationResponse, 0, len(summaries))
	for _, s := range summaries {
		peer := infoByID[s.PeerID]
		responses = append(responses, conversationResponse{
			ConversationSummary: s,
			PeerUsername:        peer.Username,
			PeerAvatar:          peer.AvatarURL,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": responses})
}

// Send appends a message to the existing conversation with the recipient
// and mirrors it through the relay. The send path never auto-creates a
// conversation; only the open path does.
func (h *ConversationHandler) Send(c *gin.Context) {
	recipientID, ok := pathID(c, "recipient_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	var req struct {
		Content     string   `json:"content"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_ARGUMENT", "message": err.Error()})
		return
	}

	conv, err := h.conversationRepo.GetByPair(c.Request.Context(), userID, recipientID)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := h.messageRepo.Append(c.Request.Context(), conv.ID, userID, recipientID, req.Content, req.Attachments)
	if err != nil {
		respondError(c, err)
		return
	}

	h.relay.Deliver(models.MessageEnvelope(msg))
	h.audit.Emit(c.Request.Context(), "message_sent", recipientID, "", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, msg)
}
