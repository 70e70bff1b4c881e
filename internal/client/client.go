// Package client talks to the ForgePilot agent backend over HTTP: the
// health probe, message dispatch and bundle download.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iammorganparry/forgepilot/internal/model"
)

// DownloadPath is fixed regardless of the configured API prefix
const DownloadPath = "/api/forgepilot/download"

// maxErrorBody caps how much of a failed response ends up in errors and logs
const maxErrorBody = 512

// Client is a ForgePilot backend API client
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request diagnostics
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for baseURL. prefix is the path holding /health and
// /message, normally "/api". A zero timeout leaves the transport default.
func New(baseURL, prefix string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     prefix,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend host the client targets
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string) string {
	return c.baseURL + c.prefix + path
}

// Health fetches the health document. The HTTP status is ignored on
// purpose: a 503 carrying {"ok": false} is a degraded backend, not an
// unreachable one. Only transport and JSON failures are errors.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/health"), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	body, _, err := c.do(req)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: health body is not JSON", ErrParse)
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return nil, fmt.Errorf("%w: health body is null", ErrParse)
	}

	// Any other JSON document is readable; one that is not an object simply
	// has no ok field.
	var health HealthResponse
	if err := decodeObject(body, &health); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &health, nil
}

// Probe runs the health check and maps it onto a connectivity status.
// It never fails; any error is reported as offline.
func (c *Client) Probe(ctx context.Context) model.Status {
	health, err := c.Health(ctx)
	status := StatusFromHealth(health, err)
	c.logger.Debug("health probe", "status", status, "error", err)
	return status
}

// StatusFromHealth maps a health result onto a connectivity status
func StatusFromHealth(health *HealthResponse, err error) model.Status {
	if err != nil || health == nil {
		return model.StatusOffline
	}
	if health.OK.Truthy() {
		return model.StatusOnline
	}
	return model.StatusDegraded
}

// SendMessage posts one utterance. An empty sessionID is sent as null.
func (c *Client) SendMessage(ctx context.Context, input, sessionID string) (*MessageResponse, error) {
	payload := MessageRequest{Input: input}
	if sessionID != "" {
		payload.SessionID = &sessionID
	}

	req, err := c.newJSONRequest(ctx, c.url("/message"), payload)
	if err != nil {
		return nil, err
	}

	body, code, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, &StatusError{Code: code, Body: excerpt(body)}
	}

	if !isObject(body) {
		return nil, fmt.Errorf("%w: message body is not a JSON object: %s", ErrParse, excerpt(body))
	}

	var resp MessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &resp, nil
}

// Download asks the backend to package manifest as a zip archive and
// returns the archive bytes
func (c *Client) Download(ctx context.Context, manifest model.Manifest, projectName string) ([]byte, error) {
	payload := DownloadRequest{Manifest: manifest, ProjectName: projectName}
	req, err := c.newJSONRequest(ctx, c.baseURL+DownloadPath, payload)
	if err != nil {
		return nil, err
	}

	body, code, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if code < 200 || code > 299 {
		return nil, &StatusError{Code: code, Body: excerpt(body)}
	}
	return body, nil
}

func (c *Client) newJSONRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes req and reads the full body. Any failure before a complete
// body is read is a transport error.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "method", req.Method, "url", req.URL.String(), "error", err)
		return nil, 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response: %w", ErrTransport, err)
	}

	c.logger.Debug("backend request",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, resp.StatusCode, nil
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody-3] + "..."
	}
	return s
}

// Classify names the failure class of err for logs
func Classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrParse):
		return "parse"
	default:
		return "unknown"
	}
}
