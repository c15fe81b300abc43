// Package anthropic is a minimal client for the Anthropic Messages API.
// The API key is always the caller's pass-through credential, never a
// server-owned secret, and the endpoint URL is configurable so tests can
// point it at a fake.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultVersion is sent as the anthropic-version header when the
	// configuration leaves it empty.
	DefaultVersion = "2023-06-01"

	extractTimeout = 60 * time.Second
	verifyTimeout  = 45 * time.Second
)

// Sentinel errors; the HTTP layer maps these onto status codes.
var (
	ErrInvalidKey = errors.New("invalid api key")
	ErrUpstream   = errors.New("upstream llm error")
)

// Config holds client settings.
type Config struct {
	APIURL  string
	Model   string
	Version string
	Logger  *slog.Logger
}

// Client talks to one Messages endpoint with one model.
type Client struct {
	apiURL  string
	model   string
	version string
	logger  *slog.Logger

	// llmClient carries extraction and verification calls; per-call
	// deadlines come from the context.
	llmClient *http.Client
	// pingClient is used only for key validation: connect 5s, total 10s.
	pingClient *http.Client
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiURL:    cfg.APIURL,
		model:     cfg.Model,
		version:   cfg.Version,
		logger:    logger.With("component", "anthropic"),
		llmClient: &http.Client{Timeout: extractTimeout},
		pingClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// ValidateKey makes a one-token ping and reports whether the credential is
// usable. 401/403 map to ErrInvalidKey, everything else non-2xx to
// ErrUpstream.
func (c *Client) ValidateKey(ctx context.Context, apiKey string) error {
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []message{{Role: "user", Content: "Ping"}},
	}
	status, _, err := c.post(ctx, c.pingClient, apiKey, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	switch {
	case status/100 == 2:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrInvalidKey
	default:
		return fmt.Errorf("%w: status %d", ErrUpstream, status)
	}
}

// complete performs one Messages call and returns the first text block.
func (c *Client) complete(ctx context.Context, apiKey, system, user string, maxTokens int) (string, error) {
	payload := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	}
	status, body, err := c.post(ctx, c.llmClient, apiKey, payload)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrInvalidKey, status)
	}
	if status/100 != 2 {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			return "", &statusError{status: status, msg: errResp.Error.Message}
		}
		return "", &statusError{status: status, msg: string(body)}
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", nil
}

func (c *Client) post(ctx context.Context, client *http.Client, apiKey string, payload any) (int, []byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", c.version)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// statusError carries the upstream HTTP status so retry logic can decide
// whether another attempt is worthwhile.
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("anthropic error (status %d): %s", e.status, e.msg)
}

// Unwrap lets callers classify any upstream status failure with errors.Is.
func (e *statusError) Unwrap() error {
	return ErrUpstream
}

// retryable reports whether the failed call may succeed on retry.
func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	// Auth failures are permanent.
	if errors.Is(err, ErrInvalidKey) {
		return false
	}
	// Network-level failures are worth retrying.
	return true
}

// Messages API wire types.

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
