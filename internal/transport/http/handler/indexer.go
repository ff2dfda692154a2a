package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"propchat/internal/platform/logger"
	"propchat/internal/searchindex"
	"propchat/internal/transport/http/response"
)

type IndexerHandler struct {
	search *searchindex.Client
	log    *logger.Logger
}

func NewIndexerHandler(search *searchindex.Client, log *logger.Logger) *IndexerHandler {
	return &IndexerHandler{search: search, log: log}
}

// Status reports the ingestion pipeline's last run state.
func (h *IndexerHandler) Status(c *gin.Context) {
	status, err := h.search.Status(c.Request.Context())
	if err != nil {
		h.log.Error("indexer status check failed", "error", err)
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "indexer status unavailable")
		return
	}
	response.OK(c, status)
}

// Run triggers an on-demand indexer run.
func (h *IndexerHandler) Run(c *gin.Context) {
	if err := h.search.RunIndexer(c.Request.Context()); err != nil {
		h.log.Error("indexer run failed", "error", err)
		response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "indexer run failed")
		return
	}
	response.OK(c, gin.H{"status": "started"})
}
