package faceapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Comparison is one pairwise comparison verdict. Match applies the
// service's own similarity threshold; Similarity is the raw score.
type Comparison struct {
	Match      bool    `json:"match"`
	Similarity float64 `json:"similarity"`
}

// Comparer decides whether two embeddings belong to the same face.
type Comparer interface {
	Compare(ctx context.Context, a, b []float64) (Comparison, error)
}

// HTTPComparer calls the external comparison service.
type HTTPComparer struct {
	url    string
	client *http.Client
}

// NewHTTPComparer returns a client for the comparison endpoint.
func NewHTTPComparer(url string, timeout time.Duration) *HTTPComparer {
	return &HTTPComparer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type compareRequest struct {
	Embedding1 []float64 `json:"embedding1"`
	Embedding2 []float64 `json:"embedding2"`
}

func (c *HTTPComparer) Compare(ctx context.Context, a, b []float64) (Comparison, error) {
	payload, err := json.Marshal(compareRequest{Embedding1: a, Embedding2: b})
	if err != nil {
		return Comparison{}, fmt.Errorf("encoding compare request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Comparison{}, fmt.Errorf("building compare request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Comparison{}, fmt.Errorf("compare request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Comparison{}, fmt.Errorf("compare service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var out Comparison
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Comparison{}, fmt.Errorf("decoding compare response: %w", err)
	}

	return out, nil
}

// LocalComparer computes cosine similarity in-process and applies the
// configured threshold. It mirrors the comparison service's contract for
// deployments that run without one.
type LocalComparer struct {
	MinSimilarity float64
}

func (c LocalComparer) Compare(_ context.Context, a, b []float64) (Comparison, error) {
	sim := CosineSimilarity(a, b)
	return Comparison{Match: sim >= c.MinSimilarity, Similarity: sim}, nil
}

// CosineSimilarity returns the cosine similarity of two vectors, clamped
// to [-1, 1]. Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	normA := floats.Norm(a, 2)
	normB := floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := floats.Dot(a, b) / (normA * normB)
	if sim > 1 {
		sim = 1
	}
	if sim < -1 {
		sim = -1
	}
	return sim
}
