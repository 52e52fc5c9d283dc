// Package faceapi provides clients for the external face model services:
// embedding generation and pairwise comparison. A local cosine comparer
// covers deployments without a comparison service.
package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrEmbeddingFailed is returned when the embedding service cannot produce
// an embedding for a frame.
var ErrEmbeddingFailed = errors.New("embedding generation failed")

// EmbeddingClient calls the embedding service.
type EmbeddingClient struct {
	url    string
	client *http.Client
}

// NewEmbeddingClient returns a client for the embedding endpoint.
func NewEmbeddingClient(url string, timeout time.Duration) *EmbeddingClient {
	return &EmbeddingClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Image string `json:"image"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Generate requests an embedding for a base64-encoded image.
func (c *EmbeddingClient) Generate(ctx context.Context, imageBase64 string) ([]float64, error) {
	payload, err := json.Marshal(embeddingRequest{Image: imageBase64})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: service returned an empty embedding", ErrEmbeddingFailed)
	}

	return out.Embedding, nil
}
