package llm

import (
	"testing"

	"github.com/provenly/signalguard/internal/config"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantNil  bool
		wantErr  bool
	}{
		{"openai", config.LLMConfig{Provider: "openai", APIKey: "k"}, "openai", false, false},
		{"anthropic", config.LLMConfig{Provider: "anthropic", APIKey: "k"}, "anthropic", false, false},
		{"claude alias", config.LLMConfig{Provider: "claude", APIKey: "k"}, "anthropic", false, false},
		{"case insensitive", config.LLMConfig{Provider: "OpenAI", APIKey: "k"}, "openai", false, false},
		{"empty degrades", config.LLMConfig{}, "", true, false},
		{"unknown", config.LLMConfig{Provider: "llama"}, "", false, true},
		{"openai missing key", config.LLMConfig{Provider: "openai"}, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantNil {
				if p != nil {
					t.Errorf("expected nil provider, got %v", p)
				}
				return
			}
			if p.Name() != tt.wantName {
				t.Errorf("name = %q, want %q", p.Name(), tt.wantName)
			}
		})
	}
}
