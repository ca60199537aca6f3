package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/provenly/signalguard/internal/config"
)

const fetchMaxRetries = 3

// fetchSleepFunc is the sleep between retries (injectable for tests).
var fetchSleepFunc = time.Sleep

// Fetcher performs plain HTTP GETs with a custom User-Agent, per-request
// timeout, per-domain rate limiting, and optional robots.txt compliance.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *DomainLimiter
	robots     *RobotsChecker
}

// Result is a fetched page with its extracted title and visible text.
type Result struct {
	HTML        string
	Title       string
	Text        string
	FinalURL    string
	StatusCode  int
	PublishedAt *time.Time // from Last-Modified when present
}

// NewFetcher creates a fetcher from HTTP config.
func NewFetcher(cfg config.HTTPConfig) *Fetcher {
	f := &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBodyBytes,
		limiter:   NewDomainLimiter(cfg.RatePerDomain, cfg.RateBurst),
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(cfg.UserAgent, cfg.Timeout)
	}
	return f
}

// Fetch retrieves a page once. A non-2xx status is an error.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	if f.robots != nil {
		if allowed, _ := f.robots.CanFetch(ctx, rawURL); !allowed {
			return nil, fmt.Errorf("disallowed by robots.txt: %s", rawURL)
		}
	}
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	result := &Result{
		HTML:       string(body),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}
	result.Title, result.Text = ExtractTitleAndText(result.HTML)

	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if t, err := time.Parse(time.RFC1123, lastModified); err == nil {
			result.PublishedAt = &t
		}
	}
	return result, nil
}

// FetchWithRetry retries transient failures (5xx, 429, connection resets)
// with linear backoff; permanent failures return immediately.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*Result, error) {
	var lastErr error
	for attempt := 1; attempt <= fetchMaxRetries; attempt++ {
		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableFetchError(err) {
			return nil, err
		}
		if attempt < fetchMaxRetries {
			fetchSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
	}
	return nil, lastErr
}

// Probe performs a lightweight existence check (HEAD falling back to GET
// on 405) and reports whether the URL responds with a non-error status.
func (f *Fetcher) Probe(ctx context.Context, rawURL string) bool {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusMethodNotAllowed {
		getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return false
		}
		getReq.Header.Set("User-Agent", f.userAgent)
		getResp, err := f.httpClient.Do(getReq)
		if err != nil {
			return false
		}
		defer func() { _ = getResp.Body.Close() }()
		return getResp.StatusCode >= 200 && getResp.StatusCode < 400
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// isRetryableFetchError classifies fetch errors as transient or permanent.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	for _, status := range []string{"500", "502", "503", "504", "429"} {
		if strings.Contains(msg, "unexpected status: "+status) {
			return true
		}
	}
	if strings.HasPrefix(msg, "fetch: ") {
		// Network-level failures (refused, reset, timeout) are transient
		return true
	}
	return false
}
