package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propchat/internal/store"
	"propchat/internal/transport/http/response"
)

type HealthHandler struct {
	sessions *store.SessionStore
}

func NewHealthHandler(sessions *store.SessionStore) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// Health reports liveness. The session store is the only hard runtime
// dependency; search and LLM failures already degrade per request.
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.sessions.Ping(c.Request.Context()); err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeDegraded, "session store unreachable")
		return
	}
	response.OK(c, gin.H{"status": "ok"})
}
