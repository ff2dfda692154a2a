package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"propchat/internal/model"
	"propchat/internal/pkg/retry"
)

// OCRClient calls the remote document analysis collaborator used for image
// and DOCX uploads.
type OCRClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	retryPol   retry.Policy
}

func NewOCRClient(endpoint, apiKey string, requestTimeout time.Duration, retryPol retry.Policy) *OCRClient {
	if requestTimeout <= 0 {
		requestTimeout = 60 * time.Second
	}
	return &OCRClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
		retryPol:   retryPol,
	}
}

type ocrResponse struct {
	Success   bool   `json:"success"`
	Text      string `json:"text"`
	PageTexts []struct {
		PageNumber int    `json:"page_number"`
		Text       string `json:"text"`
	} `json:"page_texts"`
	PageCount int    `json:"page_count"`
	Error     string `json:"error,omitempty"`
}

// Extract submits file bytes for analysis and returns per-page text.
func (c *OCRClient) Extract(ctx context.Context, data []byte, filename string) (*Result, error) {
	reqBody := map[string]interface{}{
		"filename":      filename,
		"base64_source": base64.StdEncoding.EncodeToString(data),
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request failed: %w", err)
	}

	var parsed ocrResponse
	err = retry.Do(ctx, c.retryPol, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/analyze", bytes.NewReader(bodyBytes))
		if err != nil {
			return retry.Permanent(fmt.Errorf("build ocr request failed: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ocr request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read ocr response failed: %w", err)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("ocr response status %d: %s", resp.StatusCode, string(raw))
		}
		if resp.StatusCode >= 300 {
			return retry.Permanent(fmt.Errorf("ocr response status %d: %s", resp.StatusCode, string(raw)))
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return retry.Permanent(fmt.Errorf("parse ocr response failed: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Success {
		if parsed.Error == "" {
			parsed.Error = "unknown extraction error"
		}
		return nil, errors.New(parsed.Error)
	}

	pages := make([]model.PageText, 0, len(parsed.PageTexts))
	for _, p := range parsed.PageTexts {
		pages = append(pages, model.PageText{PageNumber: p.PageNumber, Text: p.Text})
	}

	return &Result{
		Text:      strings.TrimSpace(parsed.Text),
		PageTexts: pages,
		PageCount: parsed.PageCount,
		Filename:  filename,
	}, nil
}
