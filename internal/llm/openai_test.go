package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/provenly/signalguard/internal/config"
)

func TestOpenAIProvider_CompleteStructured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			t.Error("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "{\"judgments\": []}"}}]
		}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" {
		t.Errorf("name = %q", p.Name())
	}

	raw, err := p.CompleteStructured(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "judge this"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"judgments": []}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err = p.CompleteStructured(context.Background(), Request{}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(config.LLMConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}
