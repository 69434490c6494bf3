package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"roast-backend/internal/llm"
)

func newTestClient(t *testing.T, url string, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient("test-key", "google/gemini-2.5-flash", url, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCompleteSendsChatRequest(t *testing.T) {
	var mu sync.Mutex
	var gotBody map[string]any
	var gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		gotBody = payload
		gotAuth = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"roasts\":[]}"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	text, err := client.Complete(context.Background(), llm.CompletionInput{
		SystemPrompt:    "be brutal",
		UserPrompt:      "Roast this resume content:\n\nhello",
		Temperature:     0.9,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if text != `{"roasts":[]}` {
		t.Fatalf("unexpected text %q", text)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["model"] != "google/gemini-2.5-flash" {
		t.Fatalf("unexpected model %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", gotBody["messages"])
	}
	first, _ := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be brutal" {
		t.Fatalf("unexpected system message %v", first)
	}
	for _, key := range []string{"temperature", "top_p", "top_k", "max_tokens"} {
		if _, ok := gotBody[key]; !ok {
			t.Fatalf("expected %s in request", key)
		}
	}
}

func TestCompleteOmitsZeroSamplingParams(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	if _, err := newTestClient(t, server.URL).Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	for _, key := range []string{"temperature", "top_p", "top_k", "max_tokens"} {
		if _, ok := gotBody[key]; ok {
			t.Fatalf("expected %s omitted", key)
		}
	}
}

func TestCompleteClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, want: llm.ErrRateLimited},
		{name: "bad request", status: http.StatusBadRequest, want: llm.ErrBadRequest},
		{name: "payment required", status: http.StatusPaymentRequired, want: llm.ErrQuotaExceeded},
		{name: "server error", status: http.StatusInternalServerError, want: llm.ErrUpstream},
		{name: "unauthorized key", status: http.StatusUnauthorized, want: llm.ErrUpstream},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, want: llm.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if calls != 1 {
				t.Fatalf("expected exactly one upstream call, got %d", calls)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithTimeout(50*time.Millisecond))
	_, err := client.Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
	if !errors.Is(err, llm.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestCompleteNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
	if !errors.Is(err, llm.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestCompleteMissingText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
	if !errors.Is(err, llm.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(" ", "m", ""); !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteBlankContent(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "empty content is not a failure", body: `{"choices":[{"message":{"content":""}}]}`},
		{name: "no known path", body: `{"choices":[]}`, wantErr: llm.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			text, err := newTestClient(t, server.URL).Complete(context.Background(), llm.CompletionInput{UserPrompt: "x"})
			if tt.wantErr == nil {
				if err != nil || text != "" {
					t.Fatalf("expected empty text and no error, got %q %v", text, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
