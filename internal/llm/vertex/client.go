package vertex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"roast-backend/internal/llm"
	"roast-backend/internal/shared/telemetry"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// generator is the slice of *genai.GenerativeModel the client needs.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client with Gemini on Vertex AI.
type Client struct {
	base    *genai.Client
	model   string
	timeout time.Duration
	newGen  func(input llm.CompletionInput) generator
}

// NewClient resolves application default credentials and opens a Vertex client.
func NewClient(ctx context.Context, project, region, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(project) == "" || strings.TrimSpace(region) == "" {
		return nil, fmt.Errorf("%w: VERTEX_PROJECT and VERTEX_REGION are required", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: LLM_MODEL is empty", llm.ErrNotConfigured)
	}
	creds, err := google.FindDefaultCredentials(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("%w: vertex credentials: %v", llm.ErrNotConfigured, err)
	}
	base, err := genai.NewClient(ctx, project, region, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	c := &Client{base: base, model: strings.TrimPrefix(model, "google/"), timeout: timeout}
	c.newGen = c.configure
	return c, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func (c *Client) configure(input llm.CompletionInput) generator {
	model := c.base.GenerativeModel(c.model)
	if strings.TrimSpace(input.SystemPrompt) != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(input.SystemPrompt)},
		}
	}
	if input.Temperature > 0 {
		model.SetTemperature(float32(input.Temperature))
	}
	if input.TopP > 0 {
		model.SetTopP(float32(input.TopP))
	}
	if input.TopK > 0 {
		model.SetTopK(int32(input.TopK))
	}
	if input.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(int32(input.MaxOutputTokens))
	}
	return model
}

// Complete runs one GenerateContent call.
func (c *Client) Complete(ctx context.Context, input llm.CompletionInput) (string, error) {
	ctx, cancel := llm.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.newGen(input).GenerateContent(ctx, genai.Text(input.UserPrompt))
	if err != nil {
		return "", classify(ctx, err)
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: missing completion text", llm.ErrUpstream)
	}
	fields := map[string]any{
		"provider":    "vertex",
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
	}
	telemetry.Info("llm.response", fields)
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return llm.ContextError(ctx, err)
	}
	st, ok := status.FromError(err)
	if !ok {
		return llm.ContextError(ctx, err)
	}
	switch st.Code() {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, st.Message())
	case codes.InvalidArgument, codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", llm.ErrBadRequest, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", llm.ErrTimeout, st.Message())
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", llm.ErrNetwork, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", llm.ErrUpstream, st.Code(), st.Message())
	}
}
