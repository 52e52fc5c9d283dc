// Package hrapi is the client for the HR platform backend: the embedding
// gallery, user lookup, attendance recording, and login.
package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CheckKind is the attendance direction on the wire.
type CheckKind string

const (
	CheckIn  CheckKind = "in"
	CheckOut CheckKind = "out"
)

// Person is one enrolled identity from the gallery endpoint. An empty
// Embedding means enrollment is incomplete, not an error.
type Person struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Embedding []float64 `json:"embedding"`
}

// Record is one attendance submission.
type Record struct {
	Email string    `json:"email"`
	Type  CheckKind `json:"type"`
	Photo string    `json:"photo"`
	Lat   float64   `json:"lat"`
	Lng   float64   `json:"lng"`
}

// ErrRecordingFailed is returned when the attendance service rejects or
// cannot store a record.
var ErrRecordingFailed = errors.New("failed to record attendance")

// Client talks to the HR backend. A bearer token, when set, is attached to
// every request.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient returns a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// SetToken sets the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.client.Do(req)
}

// FetchGallery returns every enrolled identity with its cached embedding.
func (c *Client) FetchGallery(ctx context.Context) ([]Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/cache", nil)
	if err != nil {
		return nil, fmt.Errorf("building gallery request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching gallery: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gallery endpoint returned status %d", resp.StatusCode)
	}

	var people []Person
	if err := json.NewDecoder(resp.Body).Decode(&people); err != nil {
		return nil, fmt.Errorf("decoding gallery: %w", err)
	}

	return people, nil
}

// LookupUser fetches the user record for an email. A missing user is not
// an error; the first element of an empty result is simply absent.
func (c *Client) LookupUser(ctx context.Context, email string) (*Person, error) {
	u := c.baseURL + "/api/auth/users?email=" + url.QueryEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building user lookup: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user endpoint returned status %d", resp.StatusCode)
	}

	var people []Person
	if err := json.NewDecoder(resp.Body).Decode(&people); err != nil {
		return nil, fmt.Errorf("decoding user lookup: %w", err)
	}
	if len(people) == 0 {
		return nil, nil
	}

	return &people[0], nil
}

// RecordAttendance submits one check-in/check-out record. The record is
// submitted exactly once; retries are the caller's decision (there are
// none in this pipeline).
func (c *Client) RecordAttendance(ctx context.Context, record Record) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: encoding record: %v", ErrRecordingFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/attendance/check-in-out", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRecordingFailed, resp.StatusCode, bytes.TrimSpace(body))
	}

	return nil
}

// Login authenticates against the HR backend and returns the issued token.
// The token is also set on the client for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	if out.Token == "" {
		return "", errors.New("login response contained no token")
	}

	c.token = out.Token
	return out.Token, nil
}
