package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roast-backend/internal/llm"
	"roast-backend/internal/shared/telemetry"
)

// DefaultEndpoint is the OpenAI-compatible chat completions gateway.
const DefaultEndpoint = "https://ai.gateway.lovable.dev/v1/chat/completions"

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 4 << 20

// Client implements llm.Client against any OpenAI-compatible chat completions
// endpoint over plain HTTP.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	timeout    time.Duration
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout overrides llm.DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient constructs a gateway client.
func NewClient(apiKey, model, endpoint string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: AI_API_KEY is empty", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: LLM_MODEL is empty", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		endpoint:   endpoint,
		timeout:    llm.DefaultTimeout,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	TopK        *int          `json:"top_k,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// Complete issues one POST and returns the completion text.
func (c *Client) Complete(ctx context.Context, input llm.CompletionInput) (string, error) {
	ctx, cancel := llm.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(c.buildRequest(input))
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", llm.ErrNetwork, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", llm.ContextError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", llm.ContextError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		telemetry.Error("llm.upstream_error", map[string]any{
			"provider": "gateway",
			"model":    c.model,
			"status":   resp.StatusCode,
			"body":     truncate(string(body), 500),
		})
		return "", llm.StatusError(resp.StatusCode, string(body))
	}

	text, ok := CompletionText(body)
	if !ok {
		return "", fmt.Errorf("%w: missing completion text", llm.ErrUpstream)
	}
	telemetry.Info("llm.response", map[string]any{
		"provider":    "gateway",
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"chars":       len(text),
	})
	return text, nil
}

func (c *Client) buildRequest(input llm.CompletionInput) chatRequest {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: input.SystemPrompt},
			{Role: "user", Content: input.UserPrompt},
		},
	}
	if input.Temperature > 0 {
		v := input.Temperature
		req.Temperature = &v
	}
	if input.TopP > 0 {
		v := input.TopP
		req.TopP = &v
	}
	if input.TopK > 0 {
		v := input.TopK
		req.TopK = &v
	}
	if input.MaxOutputTokens > 0 {
		v := input.MaxOutputTokens
		req.MaxTokens = &v
	}
	return req
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
