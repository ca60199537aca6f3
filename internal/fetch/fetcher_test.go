package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/provenly/signalguard/internal/config"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Timeout:       5 * time.Second,
		UserAgent:     "SignalGuardTest/1.0",
		MaxBodyBytes:  1 << 20,
		RatePerDomain: 100,
		RateBurst:     100,
		RespectRobots: false,
	}
}

func TestFetch_ExtractsTitleAndText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "SignalGuardTest/1.0" {
			t.Errorf("unexpected user agent: %q", ua)
		}
		w.Header().Set("Last-Modified", time.Now().Add(-48*time.Hour).UTC().Format(time.RFC1123))
		_, _ = w.Write([]byte(`<html><head><title>Acme Raises $50M</title><script>x()</script></head>
<body><p>Acme Robotics announced a $50M Series B.</p></body></html>`))
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	result, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if result.Title != "Acme Raises $50M" {
		t.Errorf("title = %q", result.Title)
	}
	if result.Text == "" || result.StatusCode != 200 {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.PublishedAt == nil {
		t.Error("expected PublishedAt from Last-Modified")
	}
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetchWithRetry_RecoversFromTransientError(t *testing.T) {
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<html><head><title>ok</title></head><body>ok</body></html>"))
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	result, err := f.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry: %v", err)
	}
	if result.Title != "ok" {
		t.Errorf("title = %q", result.Title)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchWithRetry_PermanentErrorNoRetry(t *testing.T) {
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	if _, err := f.FetchWithRetry(context.Background(), server.URL); err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 attempt for permanent failure, got %d", got)
	}
}

func TestProbe(t *testing.T) {
	var sawHead, sawGet atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			sawHead.Store(true)
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			sawGet.Store(true)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	if !f.Probe(context.Background(), server.URL) {
		t.Error("expected probe to succeed via GET fallback")
	}
	if !sawHead.Load() || !sawGet.Load() {
		t.Error("expected HEAD then GET fallback")
	}
}

func TestProbe_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig())
	if f.Probe(context.Background(), server.URL) {
		t.Error("expected probe to fail on 404")
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	f := NewFetcher(testHTTPConfig())
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := f.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if !isRetryableFetchError(err) {
		t.Errorf("429 should be retryable: %v", err)
	}
}
