// Package stateclient talks to a remote match-state API over HTTP.
package stateclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/courtside/internal/model"
)

// StatusError is returned when the remote answers with a non-2xx status.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// StatusCode returns the HTTP status the remote answered with.
func (e *StatusError) StatusCode() int { return e.Code }

// StatusMessage returns the error message from the response body.
func (e *StatusError) StatusMessage() string { return e.Message }

// Client fetches and patches match state. It implements realtime.StateSource.
type Client struct {
	baseURL string
	token   string
	httpC   *http.Client
}

// New creates a Client for the API rooted at baseURL (e.g. http://host/api/v1).
// token may be empty for read-only use.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpC = h
	return c
}

// FetchState handles GET /matches/{id}/state.
func (c *Client) FetchState(ctx context.Context, matchID string) (*model.MatchState, error) {
	var st model.MatchState
	if err := c.do(ctx, http.MethodGet, statePath(matchID), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// PatchState handles PATCH /matches/{id}/state.
func (c *Client) PatchState(ctx context.Context, matchID string, patch model.StatePatch) (*model.MatchState, error) {
	var st model.MatchState
	if err := c.do(ctx, http.MethodPatch, statePath(matchID), patch, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func statePath(matchID string) string {
	return "/matches/" + url.PathEscape(matchID) + "/state"
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpC.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}

	log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("State API call")
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from a response body, falling back to
// the raw body or the status line.
func errorMessage(body []byte, status string) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return s
	}
	return status
}
