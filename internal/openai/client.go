// Package openai is a small client for the OpenAI-compatible embeddings, completions, chat
// and edits endpoints.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/metrics"
	"github.com/hyperjump/sommelier/internal/resilience"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrRequest is matched by every failed call to the API.
var ErrRequest = errors.New("ai request failed")

// StatusError is a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai api returned %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrRequest) match.
func (e *StatusError) Is(target error) bool { return target == ErrRequest }

// Config holds API client settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker resilience.BreakerConfig
}

// Client talks to the AI API. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      resilience.RetryConfig
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets a logger for retries and failures.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// NewClient creates a client for cfg.BaseURL.
func NewClient(cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("ai api base url cannot be empty")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		retry:      cfg.Retry,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = resilience.NewBreaker("openai", cfg.Breaker, c.logger)
	return c, nil
}

// Embed returns the embedding of text under model.
func (c *Client) Embed(ctx context.Context, text, model string) ([]float64, error) {
	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", embeddingRequest{Model: model, Input: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding for model %s", embedding.ErrUpstream, model)
	}
	return resp.Data[0].Embedding, nil
}

// Complete runs a text completion.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp CompletionResponse
	if err := c.post(ctx, "/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Chat runs a chat completion.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.post(ctx, "/chat/completions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Edit runs an instruction-guided edit.
func (c *Client) Edit(ctx context.Context, req EditRequest) (*EditResponse, error) {
	var resp EditResponse
	if err := c.post(ctx, "/edits", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// post sends body as JSON and decodes the 2xx response into out. Network errors, 429 and
// 5xx are retried; the whole call runs behind the circuit breaker.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	retry := c.retry
	retry.RetryIf = retryable
	retry.OnRetry = func(err error, wait time.Duration) {
		c.logger.Warn("ai request failed, retrying", zap.String("path", path), zap.Duration("wait", wait), zap.Error(err))
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, resilience.Retry(ctx, retry, func() error {
			return c.do(ctx, path, payload, out)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s: %w", ErrRequest, path, err)
		}
		if errors.Is(err, ErrRequest) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", ErrRequest, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(path, 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	metrics.RecordUpstream(path, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}
