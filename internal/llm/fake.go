package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// DisableRetrySleep turns retry backoff into a no-op and returns a
// restore function. For tests.
func DisableRetrySleep() func() {
	orig := retrySleepFunc
	retrySleepFunc = func(time.Duration) {}
	return func() { retrySleepFunc = orig }
}

// ScriptedProvider is a deterministic Provider for tests: it replays a
// fixed sequence of responses (or errors) in call order.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	calls     int
}

// ScriptedResponse is one scripted reply.
type ScriptedResponse struct {
	JSON string
	Err  error
}

// NewScriptedProvider creates a scripted provider from the given replies.
func NewScriptedProvider(responses ...ScriptedResponse) *ScriptedProvider {
	return &ScriptedProvider{responses: responses}
}

// Name returns the provider name.
func (p *ScriptedProvider) Name() string { return "scripted" }

// Calls returns how many completions were requested.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// CompleteStructured replays the next scripted response. Once the script
// is exhausted the last entry repeats.
func (p *ScriptedProvider) CompleteStructured(_ context.Context, _ Request) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.responses) == 0 {
		return nil, fmt.Errorf("scripted provider has no responses")
	}

	idx := p.calls
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	p.calls++

	r := p.responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return json.RawMessage(r.JSON), nil
}
