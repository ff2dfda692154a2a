package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"propchat/internal/pkg/retry"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// StatusError carries the HTTP status of a failed API call so callers can
// distinguish transient from permanent failures.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api response status %d: %s", e.Code, e.Body)
}

// Transient reports whether the status is worth retrying: rate limits,
// timeouts, and server-side errors.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests ||
		e.Code == http.StatusRequestTimeout ||
		e.Code >= 500
}

// transportError marks a network-level failure. The request may never have
// reached the service, so these always qualify for retry.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

// OpenAICompatibleClient talks to any chat-completions/embeddings API that
// follows the OpenAI wire shape.
type OpenAICompatibleClient struct {
	httpClient *http.Client
	retryPol   retry.Policy
}

func NewOpenAICompatibleClient(requestTimeout time.Duration, retryPol retry.Policy) *OpenAICompatibleClient {
	if requestTimeout <= 0 {
		requestTimeout = 90 * time.Second
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: requestTimeout},
		retryPol:   retryPol,
	}
}

// Complete returns the completion for the ordered message list. Transient
// failures are retried with exponential backoff before the error escalates.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	reqBody := map[string]interface{}{
		"model":    cfg.Model,
		"messages": messages,
		"stream":   false,
	}
	if cfg.Temperature > 0 {
		reqBody["temperature"] = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		reqBody["max_tokens"] = cfg.MaxTokens
	}

	var content string
	err := retry.Do(ctx, c.retryPol, func() error {
		raw, err := c.post(ctx, cfg.BaseURL, "/chat/completions", cfg.APIKey, reqBody)
		if err != nil {
			return classify(err)
		}

		var parsed struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return retry.Permanent(fmt.Errorf("parse llm json failed: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return retry.Permanent(errors.New("empty llm choices"))
		}
		content = parsed.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm completion failed: %w", err)
	}
	return content, nil
}

func (c *OpenAICompatibleClient) post(ctx context.Context, baseURL, path, apiKey string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request failed: %w", err)
	}

	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// classify maps client errors onto the retry taxonomy: network failures and
// transient statuses retry, everything else is permanent.
func classify(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Transient() {
			return err
		}
		return retry.Permanent(err)
	}
	var netErr *transportError
	if errors.As(err, &netErr) {
		return err
	}
	// Marshal/build failures carry neither a status nor a transport cause.
	return retry.Permanent(err)
}
