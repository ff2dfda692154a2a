// Package handler contains the gin route handlers for the chat API.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"propchat/internal/chat"
	"propchat/internal/transport/http/response"
)

// maxQueryChars bounds the accepted query length at the transport edge.
const maxQueryChars = 5000

// Answerer runs the answer pipeline for one chat turn.
type Answerer interface {
	Answer(ctx context.Context, sessionID, query string) chat.Result
}

type ChatHandler struct {
	orchestrator   Answerer
	requestTimeout time.Duration
}

func NewChatHandler(orchestrator Answerer, requestTimeout time.Duration) *ChatHandler {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &ChatHandler{orchestrator: orchestrator, requestTimeout: requestTimeout}
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"session_id"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "message is required")
		return
	}
	query := strings.TrimSpace(req.Message)
	if query == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "message is required")
		return
	}
	if len([]rune(query)) > maxQueryChars {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "message too long")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	result := h.orchestrator.Answer(ctx, req.SessionID, query)
	response.OK(c, result)
}
