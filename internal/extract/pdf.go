package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"propchat/internal/model"
)

// extractPDF reads text page by page so citations can point at real PDF
// pages. Pages beyond the cap are dropped.
func (s *Service) extractPDF(data []byte, filename string) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf failed: %w", err)
	}

	numPages := reader.NumPage()
	var pages []model.PageText
	var full strings.Builder

	for i := 1; i <= numPages; i++ {
		if i > s.maxPages {
			s.log.Warn("pdf extraction truncated at page cap",
				"filename", filename, "max_pages", s.maxPages, "total_pages", numPages)
			break
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			s.log.Warn("pdf page text extraction failed",
				"filename", filename, "page", i, "error", err)
			continue
		}
		pages = append(pages, model.PageText{PageNumber: i, Text: text})
		full.WriteString(text)
		full.WriteString("\n")
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf %q contains no extractable text", filename)
	}

	return &Result{
		Text:      strings.TrimSpace(full.String()),
		PageTexts: pages,
		PageCount: len(pages),
		Filename:  filename,
	}, nil
}
