package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"propchat/internal/pkg/retry"
)

// EmbeddingConfig holds API settings for text embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Dimensions int
}

// Inputs beyond this length are truncated before the request to stay inside
// provider token limits.
const maxEmbeddingInputChars = 32000

// Embed returns the embedding vector for the given text.
func (c *OpenAICompatibleClient) Embed(ctx context.Context, cfg EmbeddingConfig, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("embedding input is empty")
	}
	if len(text) > maxEmbeddingInputChars {
		text = text[:maxEmbeddingInputChars]
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": text,
	}
	if cfg.Dimensions > 0 {
		reqBody["dimensions"] = cfg.Dimensions
	}

	vectors, err := c.embed(ctx, cfg, reqBody)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding in response")
	}
	return vectors[0], nil
}

// EmbedBatch returns embeddings for multiple texts in input order.
func (c *OpenAICompatibleClient) EmbedBatch(ctx context.Context, cfg EmbeddingConfig, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, 0, len(texts))
	for _, t := range texts {
		s := strings.TrimSpace(t)
		if s == "" {
			continue
		}
		if len(s) > maxEmbeddingInputChars {
			s = s[:maxEmbeddingInputChars]
		}
		trimmed = append(trimmed, s)
	}
	if len(trimmed) == 0 {
		return nil, errors.New("no non-empty texts for embedding")
	}

	reqBody := map[string]interface{}{
		"model": cfg.Model,
		"input": trimmed,
	}
	if cfg.Dimensions > 0 {
		reqBody["dimensions"] = cfg.Dimensions
	}
	return c.embed(ctx, cfg, reqBody)
}

func (c *OpenAICompatibleClient) embed(ctx context.Context, cfg EmbeddingConfig, reqBody map[string]interface{}) ([][]float32, error) {
	var vectors [][]float32
	err := retry.Do(ctx, c.retryPol, func() error {
		raw, err := c.post(ctx, cfg.BaseURL, "/embeddings", cfg.APIKey, reqBody)
		if err != nil {
			return classify(err)
		}

		var parsed struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return retry.Permanent(fmt.Errorf("parse embedding json failed: %w", err))
		}
		vectors = make([][]float32, len(parsed.Data))
		for i := range parsed.Data {
			vectors[i] = parsed.Data[i].Embedding
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	return vectors, nil
}
