package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"roast-backend/internal/llm"
	"roast-backend/internal/shared/telemetry"
)

const defaultMaxTokens = 2048

// Client implements llm.Client with the Anthropic Messages API.
type Client struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
}

// NewClient builds an SDK client; baseURL is optional.
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
		client:  anthropic.NewClient(opts...),
		model:   model,
		timeout: timeout,
	}, nil
}

// Complete sends one message and concatenates the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, input llm.CompletionInput) (string, error) {
	ctx, cancel := llm.WithTimeout(ctx, c.timeout)
	defer cancel()

	maxTokens := int64(input.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(input.UserPrompt)),
		},
	}
	if strings.TrimSpace(input.SystemPrompt) != "" {
		params.System = []anthropic.TextBlockParam{{Text: input.SystemPrompt}}
	}
	// The API rejects temperature and top_p together on newer models.
	if input.Temperature > 0 {
		params.Temperature = anthropic.Float(input.Temperature)
	} else if input.TopP > 0 {
		params.TopP = anthropic.Float(input.TopP)
	}
	if input.TopK > 0 {
		params.TopK = anthropic.Int(int64(input.TopK))
	}

	start := time.Now()
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(ctx, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: missing completion text", llm.ErrUpstream)
	}
	telemetry.Info("llm.response", map[string]any{
		"provider":      "anthropic",
		"model":         c.model,
		"duration_ms":   time.Since(start).Milliseconds(),
		"input_tokens":  msg.Usage.InputTokens,
		"output_tokens": msg.Usage.OutputTokens,
	})
	return text, nil
}

func classify(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return llm.StatusError(apiErr.StatusCode, "")
	}
	return llm.ContextError(ctx, err)
}
