package scrape

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

// Document is the scraped representation of a page.
type Document struct {
	Markdown string            `json:"markdown"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Provider is the abstract scrape service used as a fallback when plain
// fetching yields too little evidence.
type Provider interface {
	Scrape(ctx context.Context, url string) (*Document, error)
}

// HTTPProvider talks to a scrape endpoint that accepts {"url": ...} and
// returns {"success": bool, "data": {"markdown": ..., "metadata": ...}}.
type HTTPProvider struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPProvider creates a scrape provider from config, or nil when no
// endpoint is configured.
func NewHTTPProvider(cfg config.ScrapeConfig) *HTTPProvider {
	if cfg.Endpoint == "" {
		return nil
	}
	return &HTTPProvider{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Success bool     `json:"success"`
	Data    Document `json:"data"`
	Error   string   `json:"error,omitempty"`
}

// Scrape fetches a rendered page through the scrape service.
func (p *HTTPProvider) Scrape(ctx context.Context, url string) (*Document, error) {
	body, err := json.Marshal(scrapeRequest{URL: url})
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
		return nil, fmt.Errorf("scrape request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out scrapeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("scrape failed: %s", out.Error)
	}
	return &out.Data, nil
}
