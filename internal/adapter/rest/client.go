// Package rest implements the domain ports over the restaurant JSON/HTTP
// microservices.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"restoadmin/internal/domain"

	"github.com/google/uuid"
)

const maxResponseBytes = 4 << 20

// Client is a JSON client for one collaborator service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the service at baseURL. When hc is nil,
// http.DefaultClient is used.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type callOptions struct {
	header      http.Header
	fieldErrors bool
}

// Option customises a single call.
type Option func(*callOptions)

// WithBearer authenticates the call with an access token.
func WithBearer(token string) Option {
	return func(o *callOptions) {
		if token != "" {
			o.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithHeader sets an extra request header.
func WithHeader(key, value string) Option {
	return func(o *callOptions) { o.header.Set(key, value) }
}

// WithFieldErrors makes per-field validation messages part of the error
// message when nothing more specific is present.
func WithFieldErrors() Option {
	return func(o *callOptions) { o.fieldErrors = true }
}

// Do sends a request with body encoded as JSON and decodes the response into
// out. A nil body sends no payload, a nil out discards the response.
// Failures are *domain.TransportError when no response arrived and
// *domain.APIError for statuses of 400 and above.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any, opts ...Option) error {
	o := callOptions{header: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	op := method + " " + path

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, vs := range o.header {
		req.Header[k] = vs
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.TransportError{Op: op, Err: err}
	}

	if resp.StatusCode >= 400 {
		return &domain.APIError{
			Status:  resp.StatusCode,
			Message: domain.ExtractMessage(data, o.fieldErrors),
			Body:    data,
		}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(unwrapBody(data), out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// unwrapBody returns the inner object of responses shaped {"body": {...}}.
func unwrapBody(data []byte) []byte {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return data
	}
	inner, ok := env["body"]
	if !ok {
		return data
	}
	inner = bytes.TrimSpace(inner)
	if len(inner) == 0 || inner[0] != '{' {
		return data
	}
	return inner
}
