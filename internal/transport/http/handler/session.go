package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"propchat/internal/platform/logger"
	"propchat/internal/store"
	"propchat/internal/transport/http/response"
)

type SessionHandler struct {
	sessions *store.SessionStore
	log      *logger.Logger
}

func NewSessionHandler(sessions *store.SessionStore, log *logger.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

type cleanupRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

type cleanupResponse struct {
	SessionID        string `json:"session_id"`
	DocumentsRemoved int    `json:"documents_removed"`
}

// Cleanup discards all state held for a session.
func (h *SessionHandler) Cleanup(c *gin.Context) {
	var req cleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.SessionID) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "session_id is required")
		return
	}

	removed, err := h.sessions.DeleteSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.log.Error("session cleanup failed", "session_id", req.SessionID, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "session cleanup failed")
		return
	}

	response.OK(c, cleanupResponse{SessionID: req.SessionID, DocumentsRemoved: removed})
}
