package cache

import (
	"testing"
	"time"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/model"
)

func testCacheConfig(dir string) config.CacheConfig {
	return config.CacheConfig{
		Enabled:       true,
		Dir:           dir,
		URLTTL:        time.Hour,
		ClaimTTL:      time.Hour,
		SweepInterval: time.Hour,
	}
}

func TestVerificationCache_PageRoundTrip(t *testing.T) {
	vc := NewVerificationCache(testCacheConfig(""))
	defer vc.Stop()

	url := "https://example.com/story?utm_source=rss"
	if _, found := vc.GetPage(url); found {
		t.Fatal("expected miss on empty cache")
	}

	page := CachedPage{URL: url, Title: "Story", Text: "body text", FetchedAt: time.Now()}
	if err := vc.SetPage(url, page); err != nil {
		t.Fatalf("SetPage: %v", err)
	}

	// Tracking-param variant hits the same entry
	got, found := vc.GetPage("https://example.com/story")
	if !found {
		t.Fatal("expected hit for normalized URL variant")
	}
	if got.Title != "Story" || got.Text != "body text" {
		t.Errorf("unexpected page: %+v", got)
	}

	stats := vc.Stats()
	if stats.URLHits != 1 || stats.URLMisses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %+v", stats)
	}
}

func TestVerificationCache_DiskLayerSurvives(t *testing.T) {
	dir := t.TempDir()

	vc := NewVerificationCache(testCacheConfig(dir))
	if err := vc.SetPage("https://example.com/a", CachedPage{URL: "https://example.com/a", Text: "x"}); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	vc.Stop()

	// A fresh cache over the same dir sees the entry via the disk layer
	vc2 := NewVerificationCache(testCacheConfig(dir))
	defer vc2.Stop()
	if _, found := vc2.GetPage("https://example.com/a"); !found {
		t.Error("expected disk layer to survive restart")
	}
}

func TestVerificationCache_VerificationRoundTrip(t *testing.T) {
	vc := NewVerificationCache(testCacheConfig(""))
	defer vc.Stop()

	claim := model.Claim{
		ID:        "01ARZ",
		Type:      model.ClaimFundingRaised,
		Statement: "Acme raised $50M",
		Entities:  map[string]string{"company": "Acme"},
	}
	cv := model.ClaimVerification{
		ClaimID:    claim.ID,
		Claim:      claim,
		Status:     model.StatusVerified,
		Confidence: 0.9,
	}

	if _, found := vc.GetVerification("Acme", claim); found {
		t.Fatal("expected miss before write")
	}
	if err := vc.SetVerification("Acme", cv); err != nil {
		t.Fatalf("SetVerification: %v", err)
	}

	got, found := vc.GetVerification("ACME", claim)
	if !found {
		t.Fatal("expected hit with normalized company")
	}
	if got.Status != model.StatusVerified || got.Confidence != 0.9 {
		t.Errorf("unexpected verification: %+v", got)
	}
}

func TestVerificationCache_Expiry(t *testing.T) {
	cfg := testCacheConfig("")
	cfg.URLTTL = 10 * time.Millisecond
	vc := NewVerificationCache(cfg)
	defer vc.Stop()

	if err := vc.SetPage("https://example.com/x", CachedPage{URL: "https://example.com/x"}); err != nil {
		t.Fatalf("SetPage: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	if _, found := vc.GetPage("https://example.com/x"); found {
		t.Error("expected expired entry to miss")
	}
}

func TestVerificationCache_SweepCountsRemovals(t *testing.T) {
	cfg := testCacheConfig("")
	cfg.URLTTL = 10 * time.Millisecond
	vc := NewVerificationCache(cfg)
	defer vc.Stop()

	for _, u := range []string{"https://a.example.com", "https://b.example.com"} {
		if err := vc.SetPage(u, CachedPage{URL: u}); err != nil {
			t.Fatalf("SetPage: %v", err)
		}
	}
	time.Sleep(30 * time.Millisecond)

	if removed := vc.Sweep(); removed != 2 {
		t.Errorf("expected 2 removals, got %d", removed)
	}
	if vc.Stats().SweptTotal != 2 {
		t.Errorf("expected swept total 2, got %d", vc.Stats().SweptTotal)
	}
}

func TestMemoryCache_SweepOnlyExpired(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Hour)
	_ = c.Set("keep", []byte("v"), time.Hour)
	_ = c.Set("drop", []byte("v"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if removed := c.Sweep(); removed != 1 {
		t.Errorf("expected 1 removal, got %d", removed)
	}
	if _, found := c.Get("keep"); !found {
		t.Error("expected unexpired entry to survive sweep")
	}
}

func TestDiskCache_LazyEviction(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, found := c.Get("k"); found {
		t.Error("expected expired disk entry to miss")
	}
	// The expired file is gone, so sweep has nothing left to do
	if removed := c.Sweep(); removed != 0 {
		t.Errorf("expected 0 removals after lazy eviction, got %d", removed)
	}
}
