package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"roast-backend/internal/llm"
	"roast-backend/internal/shared/telemetry"
)

// Client implements llm.Client with the official OpenAI SDK.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
}

// NewClient builds an SDK client. baseURL may point at any compatible server.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: AI_API_KEY is empty", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: LLM_MODEL is empty", llm.ErrNotConfigured)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends one chat completion.
func (c *Client) Complete(ctx context.Context, input llm.CompletionInput) (string, error) {
	ctx, cancel := llm.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(input.SystemPrompt),
			openai.UserMessage(input.UserPrompt),
		},
	}
	if input.Temperature > 0 {
		params.Temperature = openai.Float(input.Temperature)
	}
	if input.TopP > 0 {
		params.TopP = openai.Float(input.TopP)
	}
	if input.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(input.MaxOutputTokens))
	}

	start := time.Now()
	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: missing completion text", llm.ErrUpstream)
	}
	text := completion.Choices[0].Message.Content
	telemetry.Info("llm.response", map[string]any{
		"provider":          "openai",
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     completion.Usage.PromptTokens,
		"completion_tokens": completion.Usage.CompletionTokens,
	})
	return text, nil
}

func classify(ctx context.Context, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return llm.StatusError(apiErr.StatusCode, apiErr.Message)
	}
	return llm.ContextError(ctx, err)
}
