package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"propchat/internal/extract"
	"propchat/internal/model"
	"propchat/internal/platform/logger"
	"propchat/internal/store"
	"propchat/internal/transport/http/response"
)

// DocumentStore attaches extracted documents to a session.
type DocumentStore interface {
	AddDocument(ctx context.Context, sessionID string, doc model.SessionDocument) (int, error)
}

type UploadHandler struct {
	extractor    extract.Extractor
	sessions     DocumentStore
	maxFileBytes int64
	log          *logger.Logger
}

func NewUploadHandler(extractor extract.Extractor, sessions DocumentStore, maxFileBytes int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		extractor:    extractor,
		sessions:     sessions,
		maxFileBytes: maxFileBytes,
		log:          log,
	}
}

type uploadResponse struct {
	SessionID     string `json:"session_id"`
	Filename      string `json:"filename"`
	PageCount     int    `json:"page_count"`
	DocumentCount int    `json:"document_count"`
}

// Upload accepts one multipart file, extracts its text, and attaches it to
// the session's document context.
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return
	}
	if fileHeader.Size > h.maxFileBytes {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "file exceeds size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reading upload failed")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileBytes+1))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reading upload failed")
		return
	}
	if int64(len(data)) > h.maxFileBytes {
		response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge, "file exceeds size limit")
		return
	}

	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result, err := h.extractor.ExtractText(c.Request.Context(), data, fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.log.Warn("upload extraction failed",
			"session_id", sessionID, "filename", fileHeader.Filename, "error", err)
		response.Error(c, http.StatusBadRequest, response.CodeBadFileFormat,
			"could not extract text from file: "+err.Error())
		return
	}

	doc := model.SessionDocument{
		Filename:  result.Filename,
		Content:   result.Text,
		PageTexts: result.PageTexts,
		PageCount: result.PageCount,
	}
	count, err := h.sessions.AddDocument(c.Request.Context(), sessionID, doc)
	if err != nil {
		if errors.Is(err, store.ErrTooManyUploads) {
			response.Error(c, http.StatusBadRequest, response.CodeTooManyUploads, "session upload limit reached")
			return
		}
		h.log.Error("storing uploaded document failed",
			"session_id", sessionID, "filename", result.Filename, "error", err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "storing document failed")
		return
	}

	h.log.Info("document uploaded",
		"session_id", sessionID, "filename", result.Filename, "page_count", result.PageCount)
	response.OK(c, uploadResponse{
		SessionID:     sessionID,
		Filename:      result.Filename,
		PageCount:     result.PageCount,
		DocumentCount: count,
	})
}
