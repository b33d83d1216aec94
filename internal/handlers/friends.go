package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ConnectionHandler manages the friend-connection endpoints.
type ConnectionHandler struct {
	connectionRepo repositories.ConnectionRepository
	audit          *telemetry.AuditEmitter
}

// NewConnectionHandler builds a ConnectionHandler.
func NewConnectionHandler(connectionRepo repositories.ConnectionRepository, audit *telemetry.AuditEmitter) *ConnectionHandler {
	return &ConnectionHandler{connectionRepo: connectionRepo, audit: audit}
}

// SendRequest creates a pending connection request to the target user.
func (h *ConnectionHandler) SendRequest(c *gin.Context) {
	targetID, ok := pathID(c, "target_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	conn, err := h.connectionRepo.SendRequest(c.Request.Context(), userID, targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "connection_requested", targetID, "", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusCreated, conn)
}

// AcceptRequest accepts a pending request from the requester.
func (h *ConnectionHandler) AcceptRequest(c *gin.Context) {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	conn, err := h.connectionRepo.AcceptRequest(c.Request.Context(), userID, requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "connection_accepted", requesterID, "", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, conn)
}

// RejectRequest resolves a pending request from the requester as rejected.
func (h *ConnectionHandler) RejectRequest(c *gin.Context) {
	requesterID, ok := pathID(c, "requester_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	conn, err := h.connectionRepo.RejectRequest(c.Request.Context(), userID, requesterID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "connection_rejected", requesterID, "", requestIDFromContext(c), userIDFromContext(c))
	c.JSON(http.StatusOK, conn)
}

// RemoveConnection deletes the edge with the peer. Idempotent.
func (h *ConnectionHandler) RemoveConnection(c *gin.Context) {
	peerID, ok := pathID(c, "peer_id")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if err := h.connectionRepo.RemoveConnection(c.Request.Context(), userID, peerID); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Emit(c.Request.Context(), "connection_removed", peerID, "", requestIDFromContext(c), userIDFromContext(c))
	c.Status(http.StatusNoContent)
}

// ListFriendState returns the caller's accepted, incoming and outgoing
// edges. Clients gate messaging eligibility on this.
func (h *ConnectionHandler) ListFriendState(c *gin.Context) {
	userID := c.GetInt("userID")

	state, err := h.connectionRepo.ListFriendState(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"friends":  state.Friends,
		"incoming": state.Incoming,
		"outgoing": state.Outgoing,
	})
}

func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_ARGUMENT", "message": "invalid " + name})
		return 0, false
	}
	return id, true
}
