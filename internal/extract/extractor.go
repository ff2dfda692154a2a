// Package extract turns uploaded file bytes into page-aware text.
package extract

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"propchat/internal/model"
	"propchat/internal/pkg/filesig"
	"propchat/internal/platform/logger"
)

// Result is the normalized extraction payload shared by all format paths.
type Result struct {
	Text      string
	PageTexts []model.PageText
	PageCount int
	Filename  string
}

// Extractor extracts page-level text from raw file bytes. contentType is the
// client-declared MIME type and may be empty.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte, filename, contentType string) (*Result, error)
}

// Service routes uploads to the cheapest capable path: plain text is paged
// locally, PDFs go through the local PDF reader, and image/DOCX formats are
// sent to the remote OCR collaborator.
type Service struct {
	ocr      *OCRClient // nil when no remote extractor is configured
	pageSize int
	maxPages int
	log      *logger.Logger
}

func NewService(ocr *OCRClient, pageSize, maxPages int, log *logger.Logger) *Service {
	if pageSize <= 0 {
		pageSize = 2000
	}
	if maxPages <= 0 {
		maxPages = 15
	}
	return &Service{ocr: ocr, pageSize: pageSize, maxPages: maxPages, log: log}
}

func (s *Service) ExtractText(ctx context.Context, data []byte, filename, contentType string) (*Result, error) {
	format := filesig.Detect(data, declaredAsText(filename, contentType))

	switch format {
	case filesig.FormatText:
		return s.extractPlainText(data, filename)
	case filesig.FormatPDF:
		return s.extractPDF(data, filename)
	case filesig.FormatJPEG, filesig.FormatPNG, filesig.FormatTIFF, filesig.FormatBMP, filesig.FormatDOCX:
		if s.ocr == nil {
			return nil, fmt.Errorf("no OCR service configured for %s uploads", format)
		}
		result, err := s.ocr.Extract(ctx, data, filename)
		if err != nil {
			return nil, err
		}
		s.capPages(result)
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported file format for %q", filename)
	}
}

// extractPlainText splits UTF-8 text into fixed-size pseudo pages so that
// plain text uploads carry the same page-level citations as PDFs.
func (s *Service) extractPlainText(data []byte, filename string) (*Result, error) {
	text := string(data)

	var pages []model.PageText
	runes := []rune(text)
	pageNum := 1
	for i := 0; i < len(runes); i += s.pageSize {
		if pageNum > s.maxPages {
			s.log.Warn("plain text upload truncated at page cap",
				"filename", filename, "max_pages", s.maxPages)
			break
		}
		end := i + s.pageSize
		if end > len(runes) {
			end = len(runes)
		}
		pages = append(pages, model.PageText{
			PageNumber: pageNum,
			Text:       string(runes[i:end]),
		})
		pageNum++
	}

	return &Result{
		Text:      strings.TrimSpace(text),
		PageTexts: pages,
		PageCount: len(pages),
		Filename:  filename,
	}, nil
}

func (s *Service) capPages(result *Result) {
	if len(result.PageTexts) <= s.maxPages {
		return
	}
	s.log.Warn("extraction truncated at page cap",
		"filename", result.Filename, "max_pages", s.maxPages)
	result.PageTexts = result.PageTexts[:s.maxPages]
	result.PageCount = len(result.PageTexts)
}

// declaredAsText accepts either a text/plain content type or a .txt filename,
// since clients do not reliably send both.
func declaredAsText(filename, contentType string) bool {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType == "text/plain" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".txt")
}
