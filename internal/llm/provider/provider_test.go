package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"roast-backend/internal/llm"
	"roast-backend/internal/llm/anthropic"
	"roast-backend/internal/llm/gateway"
	"roast-backend/internal/llm/openai"
	"roast-backend/internal/shared/config"
)

func TestNewSelectsProvider(t *testing.T) {
	base := config.Config{
		AIAPIKey:        "key",
		LLMModel:        "some-model",
		LLMEndpoint:     gateway.DefaultEndpoint,
		CritiqueTimeout: time.Second,
	}

	tests := []struct {
		provider string
		check    func(llm.Client) bool
	}{
		{provider: "gateway", check: func(c llm.Client) bool { _, ok := c.(*gateway.Client); return ok }},
		{provider: "openai", check: func(c llm.Client) bool { _, ok := c.(*openai.Client); return ok }},
		{provider: "anthropic", check: func(c llm.Client) bool { _, ok := c.(*anthropic.Client); return ok }},
		{provider: " OpenAI ", check: func(c llm.Client) bool { _, ok := c.(*openai.Client); return ok }},
		{provider: "Claude", check: func(c llm.Client) bool { _, ok := c.(*anthropic.Client); return ok }},
		{provider: "", check: func(c llm.Client) bool { _, ok := c.(*gateway.Client); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := base
			cfg.LLMProvider = tt.provider
			client, err := New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if !tt.check(client) {
				t.Fatalf("unexpected client type %T", client)
			}
		})
	}
}

func TestNewWithoutKeyIsNotConfigured(t *testing.T) {
	for _, provider := range []string{"gateway", "openai", "anthropic"} {
		_, err := New(context.Background(), config.Config{LLMProvider: provider, LLMModel: "m"})
		if !errors.Is(err, llm.ErrNotConfigured) {
			t.Fatalf("%s: expected ErrNotConfigured, got %v", provider, err)
		}
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.Config{LLMProvider: "opnai", AIAPIKey: "key", LLMModel: "m"})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestVertexRequiresProject(t *testing.T) {
	_, err := New(context.Background(), config.Config{LLMProvider: "vertex", LLMModel: "gemini-2.5-flash"})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSDKBaseURL(t *testing.T) {
	tests := map[string]string{
		"":                                          "",
		gateway.DefaultEndpoint:                     "",
		"http://localhost:4000/v1/chat/completions": "http://localhost:4000/v1",
		"https://proxy.example.com/v1/":             "https://proxy.example.com/v1",
	}
	for in, want := range tests {
		if got := sdkBaseURL(in); got != want {
			t.Fatalf("sdkBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
