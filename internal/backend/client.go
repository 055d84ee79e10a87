// Package backend is the client for the storefront REST API used by the
// design studio.
package backend

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
)

const (
	defaultRetries = 2
	defaultBackoff = 300 * time.Millisecond
	maxErrorBody   = 4 << 10
)

// APIError is a failed API call: an HTTP status >= 400 or a
// {success:false} envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// Temporary reports whether the call may succeed if retried.
func (e *APIError) Temporary() bool {
	switch e.Status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// TokenFunc returns the bearer token for a request, or "" for none.
type TokenFunc func() string

// Client talks JSON to the backend. Responses wrapped in a
// {success, data, message} envelope are unwrapped; plain JSON passes through.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenFunc
	retries int
	backoff time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithToken(fn TokenFunc) Option {
	return func(cl *Client) { cl.token = fn }
}

// WithRetry sets how many times transient failures are retried and the
// base delay, doubled on every attempt.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.retries = retries
		cl.backoff = backoff
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// request is a fully buffered request so it can be replayed on retry.
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path}, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: "application/json"}, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	for attempt := 0; ; attempt++ {
		err := c.once(ctx, r, out)
		if err == nil {
			return nil
		}
		if attempt >= c.retries || !retryable(ctx, err) {
			return err
		}
		delay := c.backoff << attempt
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s %s: %w", r.method, r.path, ctx.Err())
		}
	}
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	var perm *permanentError
	return !errors.As(err, &perm)
}

func (c *Client) once(ctx context.Context, r request, out any) error {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return &permanentError{fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", r.method, r.path, err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	return decodeResponse(resp.StatusCode, data, out)
}

func decodeResponse(status int, data []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err == nil && env.Success != nil {
		if !*env.Success {
			return &APIError{Status: status, Message: env.Message}
		}
		data = env.Data
	}
	if out == nil || len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &permanentError{fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func errorMessage(data []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	if len(data) > maxErrorBody {
		data = data[:maxErrorBody]
	}
	return strings.TrimSpace(string(data))
}
