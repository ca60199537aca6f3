package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/provenly/signalguard/internal/config"
)

func anthropicTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("anthropic-version header missing")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestAnthropicProvider_CompleteStructured(t *testing.T) {
	server := anthropicTestServer(t, http.StatusOK, `{
		"content": [{"type": "text", "text": "{\"claims\": [], \"company\": {\"canonical_name\": \"Acme\"}}"}],
		"stop_reason": "end_turn"
	}`)
	defer server.Close()

	p, err := NewAnthropicProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := p.CompleteStructured(context.Background(), Request{
		System:   "system prompt",
		Messages: []Message{{Role: "user", Content: "verify this"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		Company struct {
			CanonicalName string `json:"canonical_name"`
		} `json:"company"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatal(err)
	}
	if out.Company.CanonicalName != "Acme" {
		t.Errorf("canonical_name = %q", out.Company.CanonicalName)
	}
}

func TestAnthropicProvider_FencedResponse(t *testing.T) {
	server := anthropicTestServer(t, http.StatusOK, `{
		"content": [{"type": "text", "text": "`+"```json\\n{\\\"ok\\\": true}\\n```"+`"}]
	}`)
	defer server.Close()

	p, err := NewAnthropicProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	raw, err := p.CompleteStructured(context.Background(), Request{})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"ok": true}` {
		t.Errorf("raw = %s", raw)
	}
}

func TestAnthropicProvider_APIError(t *testing.T) {
	server := anthropicTestServer(t, http.StatusTooManyRequests, `{"error": {"type": "rate_limit_error"}}`)
	defer server.Close()

	p, err := NewAnthropicProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.CompleteStructured(context.Background(), Request{})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("err = %v", err)
	}
}

func TestAnthropicProvider_EmptyContent(t *testing.T) {
	server := anthropicTestServer(t, http.StatusOK, `{"content": []}`)
	defer server.Close()

	p, err := NewAnthropicProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	if _, err = p.CompleteStructured(context.Background(), Request{}); err == nil {
		t.Error("expected error for empty content")
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(config.LLMConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestAnthropicProvider_SchemaInSystemPrompt(t *testing.T) {
	var gotSystem string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			System string `json:"system"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotSystem = req.System
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "{}"}]}`))
	}))
	defer server.Close()

	p, err := NewAnthropicProvider(config.LLMConfig{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatal(err)
	}

	_, err = p.CompleteStructured(context.Background(), Request{
		System:     "base",
		Schema:     json.RawMessage(`{"type": "object"}`),
		SchemaName: "claim_extraction",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotSystem, "base") || !strings.Contains(gotSystem, "claim_extraction") {
		t.Errorf("system prompt = %q", gotSystem)
	}
}
