package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"roast-backend/internal/llm"
)

const messageBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-3-5-haiku-latest",
  "content": [{"type": "text", "text": "{\"roasts\":"}, {"type": "text", "text": "[]}"}],
  "stop_reason": "end_turn",
  "usage": {"input_tokens": 12, "output_tokens": 4}
}`

func TestCompleteJoinsTextBlocks(t *testing.T) {
	var gotBody map[string]any
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messageBody))
	}))
	defer server.Close()

	client, err := NewClient("test-key", "claude-3-5-haiku-latest", server.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	text, err := client.Complete(context.Background(), llm.CompletionInput{
		SystemPrompt: "sys",
		UserPrompt:   "user",
		Temperature:  0.7,
		TopP:         0.9,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"roasts":[]}` {
		t.Fatalf("unexpected text %q", text)
	}
	if gotPath != "/v1/messages" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if _, ok := gotBody["top_p"]; ok {
		t.Fatalf("expected top_p omitted when temperature is set")
	}
	if gotBody["max_tokens"] != float64(defaultMaxTokens) {
		t.Fatalf("expected default max_tokens, got %v", gotBody["max_tokens"])
	}
}

func TestCompleteClassifiesErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{status: http.StatusTooManyRequests, want: llm.ErrRateLimited},
		{status: http.StatusBadRequest, want: llm.ErrBadRequest},
		{status: http.StatusInternalServerError, want: llm.ErrUpstream},
	}
	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"nope"}}`))
		}))
		client, err := NewClient("test-key", "claude-3-5-haiku-latest", server.URL, time.Second)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = client.Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
		server.Close()
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
	}
}
