// Package embedding provides best-effort text embeddings for dedup
// comparisons via an Ollama-compatible HTTP API. Failures and absence of
// a provider degrade dedup precision only; they never block the caller.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider generates a vector representation of text. Implementations
// must return an error (never block past their timeout) when the
// backing service is unavailable.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// DefaultTimeout bounds a single embedding call. The engine treats a
// timeout as "provider unavailable" and falls back to text dedup.
const DefaultTimeout = 5 * time.Second

// Client talks to an Ollama-compatible embeddings endpoint.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates an embedding client. Empty arguments select the
// local Ollama default and the nomic-embed-text model.
func NewClient(baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Client{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed generates an embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("embedding: empty text")
	}

	body, err := json.Marshal(embedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding: status %d: %s", resp.StatusCode, msg)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("embedding: decode response: %w", err)
	}
	if len(result.Embedding) == 0 {
		return nil, fmt.Errorf("embedding: empty embedding returned")
	}
	return result.Embedding, nil
}
