// Package remote is the HTTP client for the order-management REST API.
// Every request carries the bearer credential, and failures are mapped to
// the package sentinels so callers can tell "offline" from "refused".
package remote

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

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/ordersync/internal/logging"
)

// Credentials supplies the bearer token. An empty token means the user is
// not signed in.
type Credentials interface {
	Token() string
}

const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	creds   Credentials
	log     logging.Logger

	retries uint64
	backoff time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithLogger(l logging.Logger) Option    { return func(c *Client) { c.log = l } }

// WithRetry sets how many times idempotent GETs are retried after an
// ErrUnavailable failure, starting at backoff and doubling.
func WithRetry(retries uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.backoff = backoff
	}
}

func New(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		creds:   creds,
		log:     logging.Discard(),
		retries: 2,
		backoff: 200 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// HasCredential reports whether a bearer token is currently available.
func (c *Client) HasCredential() bool {
	return c.creds != nil && c.creds.Token() != ""
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	header      http.Header
	anonymous   bool
}

type response struct {
	body        []byte
	contentType string
}

func (c *Client) send(ctx context.Context, r request) (response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bytes.NewReader(r.body))
	if err != nil {
		return response{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range r.header {
		req.Header[k] = v
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if !r.anonymous {
		if !c.HasCredential() {
			return response{}, ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+c.creds.Token())
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug(ctx, "request failed", "method", r.method, "path", r.path, "error", err)
		return response{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	c.log.Debug(ctx, "request done", "method", r.method, "path", r.path, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return response{}, mapStatus(resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return response{}, fmt.Errorf("%w: failed to read body: %w", ErrUnavailable, err)
	}
	return response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}

// get issues an idempotent GET, retrying transient failures.
func (c *Client) get(ctx context.Context, path string, anonymous bool) (response, error) {
	var out response
	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		resp, err := c.send(ctx, request{method: http.MethodGet, path: path, anonymous: anonymous})
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.get(ctx, path, false)
	if err != nil {
		return err
	}
	return decodeJSON(resp.body, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in any, header http.Header, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp, err := c.send(ctx, request{method: method, path: path, body: body, contentType: "application/json", header: header})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeJSON(resp.body, out)
}

func decodeJSON(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Ping checks that the API answers. It needs no credential.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.send(ctx, request{method: http.MethodGet, path: "/health", anonymous: true})
	return err
}
