package provider

import (
	"context"
	"fmt"
	"strings"

	"roast-backend/internal/llm"
	"roast-backend/internal/llm/anthropic"
	"roast-backend/internal/llm/gateway"
	"roast-backend/internal/llm/openai"
	"roast-backend/internal/llm/vertex"
	"roast-backend/internal/shared/config"
)

// New builds the critique client selected by LLM_PROVIDER. A missing
// credential yields llm.ErrNotConfigured so callers can start without one
// and fail per request instead.
func New(ctx context.Context, cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	name, ok := config.ParseProvider(cfg.LLMProvider)
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", llm.ErrNotConfigured, cfg.LLMProvider)
	}
	switch name {
	case "vertex":
		var c *vertex.Client
		c, err = vertex.NewClient(ctx, cfg.VertexProject, cfg.VertexRegion, cfg.LLMModel, cfg.CritiqueTimeout)
		client = c
	case "openai":
		var c *openai.Client
		c, err = openai.NewClient(cfg.AIAPIKey, cfg.LLMModel, sdkBaseURL(cfg.LLMEndpoint), cfg.CritiqueTimeout)
		client = c
	case "anthropic":
		var c *anthropic.Client
		c, err = anthropic.NewClient(cfg.AIAPIKey, cfg.LLMModel, sdkBaseURL(cfg.LLMEndpoint), cfg.CritiqueTimeout)
		client = c
	default:
		var c *gateway.Client
		c, err = gateway.NewClient(cfg.AIAPIKey, cfg.LLMModel, cfg.LLMEndpoint, gateway.WithTimeout(cfg.CritiqueTimeout))
		client = c
	}
	if err != nil {
		// Never hand back a typed nil inside the interface.
		return nil, err
	}
	return client, nil
}

// sdkBaseURL turns a full chat-completions endpoint into an SDK base URL.
// The gateway default means "use the vendor's own API".
func sdkBaseURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || endpoint == gateway.DefaultEndpoint {
		return ""
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/chat/completions")
	endpoint = strings.TrimSuffix(endpoint, "/v1/messages")
	return endpoint
}
