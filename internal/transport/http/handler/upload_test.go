package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"propchat/internal/extract"
	"propchat/internal/model"
	"propchat/internal/platform/logger"
	"propchat/internal/store"
)

type fakeDocStore struct {
	added  []model.SessionDocument
	addErr error
}

func (f *fakeDocStore) AddDocument(ctx context.Context, sessionID string, doc model.SessionDocument) (int, error) {
	if f.addErr != nil {
		return len(f.added), f.addErr
	}
	f.added = append(f.added, doc)
	return len(f.added), nil
}

func newUploadRouter(docs *fakeDocStore, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	extractor := extract.NewService(nil, 2000, 15, logger.NewNop())
	h := NewUploadHandler(extractor, docs, maxBytes, logger.NewNop())
	router.POST("/api/upload", h.Upload)
	return router
}

func multipartUpload(t *testing.T, filename string, content []byte, sessionID string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if sessionID != "" {
		if err := writer.WriteField("session_id", sessionID); err != nil {
			t.Fatalf("write session field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func TestUploadPlainText(t *testing.T) {
	docs := &fakeDocStore{}
	router := newUploadRouter(docs, 1<<20)

	body, contentType := multipartUpload(t, "notes.txt", []byte("the tenant pays utilities"), "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(docs.added) != 1 {
		t.Fatalf("len(docs.added) = %d, want 1", len(docs.added))
	}
	if docs.added[0].Filename != "notes.txt" || docs.added[0].PageCount != 1 {
		t.Errorf("stored doc = %+v", docs.added[0])
	}
}

func TestUploadPlainTextByContentType(t *testing.T) {
	docs := &fakeDocStore{}
	router := newUploadRouter(docs, 1<<20)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="inspection-notes"`)
	header.Set("Content-Type", "text/plain; charset=utf-8")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte("unit 4B passed inspection")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(docs.added) != 1 || docs.added[0].Filename != "inspection-notes" {
		t.Errorf("stored docs = %+v", docs.added)
	}
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	docs := &fakeDocStore{}
	router := newUploadRouter(docs, 10)

	body, contentType := multipartUpload(t, "big.txt", bytes.Repeat([]byte("a"), 100), "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(docs.added) != 0 {
		t.Errorf("oversized file must not be stored")
	}
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	docs := &fakeDocStore{}
	router := newUploadRouter(docs, 1<<20)

	body, contentType := multipartUpload(t, "mystery.bin", []byte{0x00, 0x01, 0x02, 0x03}, "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}

	// The rejection must carry the extraction failure reason.
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(envelope.Message, "unsupported file format") {
		t.Errorf("message = %q, want the underlying extraction error", envelope.Message)
	}
}

func TestUploadSessionLimit(t *testing.T) {
	docs := &fakeDocStore{addErr: store.ErrTooManyUploads}
	router := newUploadRouter(docs, 1<<20)

	body, contentType := multipartUpload(t, "notes.txt", []byte("text"), "s1")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUploadMissingFile(t *testing.T) {
	docs := &fakeDocStore{}
	router := newUploadRouter(docs, 1<<20)

	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
