package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/provenly/signalguard/internal/config"
)

// Result is one keyword-search hit.
type Result struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Provider is the abstract keyword-search service.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// HTTPProvider talks to a search-proxy endpoint that accepts
// {"q": ..., "max_results": ...} and returns {"results": [...]}.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a search provider from config. Returns nil when
// no endpoint is configured so callers can skip the search stage.
func NewHTTPProvider(cfg config.SearchConfig) *HTTPProvider {
	if cfg.Endpoint == "" {
		return nil
	}
	return &HTTPProvider{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type searchRequest struct {
	Query      string `json:"q"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []Result `json:"results"`
}

// Search runs one query and returns at most maxResults hits.
func (p *HTTPProvider) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 3
	}

	body, err := json.Marshal(searchRequest{Query: query, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out searchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}
	return out.Results, nil
}
