package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Provider is the structured-completion interface consumed by claim
// extraction and verification. Implementations must return a single JSON
// object conforming to the request schema.
type Provider interface {
	// Name returns the provider name
	Name() string

	// CompleteStructured sends the prompt and returns the raw JSON object.
	CompleteStructured(ctx context.Context, req Request) (json.RawMessage, error)
}

// Message is one turn of the prompt.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// Request describes one structured-completion call.
type Request struct {
	System      string
	Messages    []Message
	Schema      json.RawMessage // JSON schema the response must satisfy
	SchemaName  string
	MaxTokens   int
	Temperature float32
}

// retrySleepFunc is the sleep between retries (injectable for tests).
var retrySleepFunc = time.Sleep

// CompleteInto calls the provider with bounded retries and unmarshals the
// response into out. Retries are stage-local; the final error is returned
// after the budget is exhausted.
func CompleteInto(ctx context.Context, p Provider, req Request, retries int, out any) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			retrySleepFunc(time.Duration(attempt) * time.Second)
		}

		raw, err := p.CompleteStructured(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			lastErr = fmt.Errorf("decode structured response: %w", err)
			continue
		}
		return nil
	}
	return fmt.Errorf("structured completion failed after %d attempts: %w", retries+1, lastErr)
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// extractJSONObject returns the outermost {...} of a text, for providers
// that occasionally preface JSON with prose.
func extractJSONObject(s string) (json.RawMessage, error) {
	s = stripFences(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	raw := json.RawMessage(s[start : end+1])
	if !json.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	return raw, nil
}
