// Package searchindex is a REST client for the hybrid document index. The
// service follows the Azure AI Search wire shape: lexical and vector queries
// are combined in a single request and results come back rank-ordered.
package searchindex

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

type Config struct {
	Endpoint    string
	APIKey      string
	IndexName   string
	IndexerName string
	VectorField string
	APIVersion  string
}

// Document is one raw index hit, before any per-document capping or metadata
// shaping happens in the retriever.
type Document struct {
	ChunkID     string `json:"chunk_id"`
	ParentID    string `json:"parent_id"`
	Content     string `json:"content"`
	Title       string `json:"title"`
	Filepath    string `json:"filepath"`
	BlobName    string `json:"metadata_storage_name"`
	ChunkNumber *int   `json:"chunk_number"`
	PageNumber  int    `json:"page_number"`
}

// IndexerStatus summarizes the index ingestion pipeline's last run.
type IndexerStatus struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	LastResult struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"errorMessage,omitempty"`
	} `json:"lastResult"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("search response status %d: %s", e.code, e.body)
}

func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests ||
		e.code == http.StatusRequestTimeout ||
		e.code >= 500
}

// transportError marks a network-level failure, which always qualifies for
// retry since the request may never have reached the service.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "search request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type Client struct {
	cfg        Config
	httpClient *http.Client
	retryPol   retry.Policy
}

func NewClient(cfg Config, requestTimeout time.Duration, retryPol retry.Policy) *Client {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		retryPol:   retryPol,
	}
}

// Hybrid runs a combined lexical+vector query. The request overfetches 5x
// the caller's target so that the caller's per-document capping can still
// fill its result budget; the vector leg fans out 8x.
func (c *Client) Hybrid(ctx context.Context, query string, vector []float32, top int) ([]Document, error) {
	if len(vector) == 0 {
		return nil, errors.New("hybrid search requires a query vector")
	}
	body := map[string]interface{}{
		"search": query,
		"top":    top * 5,
		"vectorQueries": []map[string]interface{}{
			{
				"kind":   "vector",
				"vector": vector,
				"k":      top * 8,
				"fields": c.cfg.VectorField,
			},
		},
	}
	return c.search(ctx, body)
}

// Keyword runs a lexical-only query with a 3x overfetch. This is the degraded
// path used when the hybrid query cannot be served.
func (c *Client) Keyword(ctx context.Context, query string, top int) ([]Document, error) {
	body := map[string]interface{}{
		"search": query,
		"top":    top * 3,
	}
	return c.search(ctx, body)
}

func (c *Client) search(ctx context.Context, body map[string]interface{}) ([]Document, error) {
	path := fmt.Sprintf("/indexes/%s/docs/search", c.cfg.IndexName)

	var docs []Document
	err := retry.Do(ctx, c.retryPol, func() error {
		raw, err := c.do(ctx, http.MethodPost, path, body)
		if err != nil {
			return classifySearchErr(err)
		}

		var parsed struct {
			Value []Document `json:"value"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return retry.Permanent(fmt.Errorf("parse search response failed: %w", err))
		}
		docs = parsed.Value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	return docs, nil
}

// Status returns the indexer's current state.
func (c *Client) Status(ctx context.Context) (*IndexerStatus, error) {
	path := fmt.Sprintf("/indexers/%s/status", c.cfg.IndexerName)
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("get indexer status failed: %w", err)
	}

	var status IndexerStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("parse indexer status failed: %w", err)
	}
	if status.Name == "" {
		status.Name = c.cfg.IndexerName
	}
	return &status, nil
}

// RunIndexer triggers an indexer run.
func (c *Client) RunIndexer(ctx context.Context) error {
	path := fmt.Sprintf("/indexers/%s/run", c.cfg.IndexerName)
	if _, err := c.do(ctx, http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("run indexer failed: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal search request failed: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	url := strings.TrimRight(c.cfg.Endpoint, "/") + path + "?api-version=" + c.cfg.APIVersion
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: string(raw)}
	}
	return raw, nil
}

func classifySearchErr(err error) error {
	var se *statusError
	if errors.As(err, &se) {
		if se.transient() {
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
