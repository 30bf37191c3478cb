// Package api is a typed client for the remote flashcard API: auth,
// collections and PDF-based card generation.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	pathLogin             = "/api/auth/login"
	pathRegister          = "/api/auth/register"
	pathProfile           = "/api/auth/profile"
	pathLogout            = "/api/auth/logout"
	pathCollections       = "/api/flashcards/collections"
	pathPublicCollections = "/api/flashcards/collections/public"
	pathGenerate          = "/api/flashcards/generate"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 64 << 10

// Client talks to the remote API over HTTP. Methods never retry.
type Client struct {
	baseURL string
	http    *http.Client
	// upload is used for PDF generation, which runs far longer than the
	// other calls.
	upload *http.Client
	log    *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithUploadClient sets the HTTP client used for generation requests.
func WithUploadClient(c *http.Client) Option {
	return func(cl *Client) { cl.upload = c }
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// New constructs a Client for baseURL using httpClient for requests.
func New(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.upload == nil {
		c.upload = httpClient
	}
	return c
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// newRequest builds a request with the standard headers set.
func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// doJSON sends in (if non-nil) as a JSON body and decodes the response into
// out (if non-nil).
func (c *Client) doJSON(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(c.http, req, out)
}

// send executes req and decodes a successful JSON response into out.
func (c *Client) send(hc *http.Client, req *http.Request, out any) error {
	op := req.Method + " " + req.URL.Path
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("op", op),
			zap.String("request_id", req.Header.Get("X-Request-ID")),
			zap.Error(err))
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := newStatusError(resp.StatusCode, data)
		c.log.Info("request rejected",
			zap.String("op", op),
			zap.String("request_id", req.Header.Get("X-Request-ID")),
			zap.Int("status", resp.StatusCode),
			zap.String("message", se.Message))
		return fmt.Errorf("%s: %w", op, se)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: invalid response: %w: %w", op, ErrTransient, err)
	}
	return nil
}
