package llm

import (
	"fmt"
	"strings"

	"github.com/provenly/signalguard/internal/config"
)

// NewProvider creates a structured-completion provider from config.
// An empty provider name returns (nil, nil): the pipeline then degrades
// to synthetic claims instead of failing.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, anthropic)", cfg.Provider)
	}
}
