// Package remote implements storage.Storage against the hosted store's HTTP API.
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

	"github.com/redskie/bamaco/internal/api/apierr"
)

// ErrUnavailable marks network failures and 5xx responses
var ErrUnavailable = errors.New("remote store unavailable")

// Config holds remote client settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Retries is how often an idempotent read is retried after a network
	// error or 5xx response
	Retries uint64
	// RetryBase is the first backoff interval; it doubles on each retry
	RetryBase time.Duration
}

// DefaultConfig returns sensible defaults for the remote client
func DefaultConfig() Config {
	return Config{
		Timeout:   30 * time.Second,
		Retries:   3,
		RetryBase: 100 * time.Millisecond,
	}
}

// StatusError is a non-2xx response that maps to no store error
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap lets server-side failures match ErrUnavailable
func (e *StatusError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return ErrUnavailable
	}
	return nil
}

// Client is an HTTP client for the API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cfg        Config
}

// NewClient creates a new API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = DefaultConfig().RetryBase
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg: cfg,
	}
}

// do performs one HTTP request. A nil result discards the body.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	url := c.baseURL + "/api/v1" + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	// Check for error responses
	if resp.StatusCode >= 400 {
		var errResp apierr.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Code != "" {
			if sentinel := apierr.Sentinel(errResp.Error.Code); sentinel != nil {
				return sentinel
			}
			return &StatusError{Status: resp.StatusCode, Code: errResp.Error.Code, Message: errResp.Error.Message}
		}
		return &StatusError{Status: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	// Parse successful response
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// get performs a GET request, retrying transient failures
func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.idempotent(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, result)
	})
}

// head performs a HEAD request, retrying transient failures
func (c *Client) head(ctx context.Context, path string) error {
	return c.idempotent(ctx, func(ctx context.Context) error {
		return c.do(ctx, http.MethodHead, path, nil, nil)
	})
}

func (c *Client) idempotent(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.cfg.Retries, retry.NewExponential(c.cfg.RetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// post performs a POST request
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// put performs a PUT request
func (c *Client) put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// patch performs a PATCH request
func (c *Client) patch(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// delete performs a DELETE request
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Health checks that the server answers
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &status); err != nil {
		return err
	}
	if status.Status != "ok" {
		return fmt.Errorf("%w: health status %q", ErrUnavailable, status.Status)
	}
	return nil
}
