// Package apiclient is a JSON client for the backend API. It attaches the
// session's bearer token, reports 401 responses to an unauthorized hook and
// turns error responses into errors carrying the server's message.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrUnauthorized is returned for 401 responses.
var ErrUnauthorized = errors.New("unauthorized")

// Doer sends HTTP requests. *http.Client and the HTTP plugin satisfy it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is a non-2xx response other than 401.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Client talks to one API base URL.
type Client struct {
	baseURL        string
	doer           Doer
	token          func() string
	onUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the access token source. An empty token sends no
// Authorization header.
func WithToken(token func() string) Option {
	return func(c *Client) { c.token = token }
}

// WithBearer is WithToken for a fixed token.
func WithBearer(token string) Option {
	return WithToken(func() string { return token })
}

// WithUnauthorized sets the hook called on 401 responses.
func WithUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// New creates a client for baseURL.
func New(baseURL string, doer Doer, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    doer,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the client's base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) Post(ctx context.Context, endpoint string, data, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, data, out)
}

func (c *Client) Put(ctx context.Context, endpoint string, data, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, data, out)
}

func (c *Client) Patch(ctx context.Context, endpoint string, data, out any) error {
	return c.Do(ctx, http.MethodPatch, endpoint, data, out)
}

func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, out)
}

// Do sends a request to baseURL+endpoint. A non-nil data is JSON-encoded as
// the body. The response is decoded into out only when it is JSON; other
// successful responses leave out untouched.
func (c *Client) Do(ctx context.Context, method, endpoint string, data, out any) error {
	var body io.Reader
	if data != nil {
		buf, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out == nil || !strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
