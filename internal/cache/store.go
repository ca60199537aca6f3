package cache

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/model"
)

// sweeper is implemented by stores that support proactive expiry.
type sweeper interface {
	Sweep() int
}

// CachedPage is the value stored in the URL cache for a fetched document.
type CachedPage struct {
	URL         string     `json:"url"`
	Title       string     `json:"title,omitempty"`
	Text        string     `json:"text"`
	HTML        string     `json:"html,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`
}

// Stats reports cumulative hit/miss counters for metadata reporting.
type Stats struct {
	URLHits     int64 `json:"url_hits"`
	URLMisses   int64 `json:"url_misses"`
	ClaimHits   int64 `json:"claim_hits"`
	ClaimMisses int64 `json:"claim_misses"`
	SweptTotal  int64 `json:"swept_total"`
}

// VerificationCache owns the two independent TTL stores of the pipeline:
// fetched URL content (24h, memory+disk) and prior claim verdicts (8h,
// memory only). Safe for use from concurrent pipeline invocations.
type VerificationCache struct {
	urls     Cache
	claims   Cache
	urlTTL   time.Duration
	claimTTL time.Duration

	urlHits     atomic.Int64
	urlMisses   atomic.Int64
	claimHits   atomic.Int64
	claimMisses atomic.Int64
	sweptTotal  atomic.Int64

	sweepInterval time.Duration
	stopOnce      sync.Once
	stop          chan struct{}
	done          chan struct{}
}

// NewVerificationCache builds the cache pair from config. An empty disk
// dir keeps the URL cache memory-only.
func NewVerificationCache(cfg config.CacheConfig) *VerificationCache {
	var urls Cache
	if cfg.Dir != "" {
		urls = NewLayeredCache(cfg.URLTTL, cfg.Dir, cfg.URLTTL)
	} else {
		urls = NewMemoryCache(cfg.URLTTL, 10*time.Minute)
	}

	c := &VerificationCache{
		urls:          urls,
		claims:        NewMemoryCache(cfg.ClaimTTL, 10*time.Minute),
		urlTTL:        cfg.URLTTL,
		claimTTL:      cfg.ClaimTTL,
		sweepInterval: cfg.SweepInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// GetPage returns the cached fetch result for a URL, if fresh.
func (c *VerificationCache) GetPage(rawURL string) (*CachedPage, bool) {
	data, found := c.urls.Get(URLKey(rawURL))
	if !found {
		c.urlMisses.Add(1)
		return nil, false
	}

	var page CachedPage
	if err := json.Unmarshal(data, &page); err != nil {
		c.urlMisses.Add(1)
		return nil, false
	}
	c.urlHits.Add(1)
	return &page, true
}

// SetPage stores a fetch result under the normalized URL key.
func (c *VerificationCache) SetPage(rawURL string, page CachedPage) error {
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.urls.Set(URLKey(rawURL), data, c.urlTTL)
}

// GetVerification returns a prior verdict for company+claim, if fresh.
func (c *VerificationCache) GetVerification(company string, claim model.Claim) (*model.ClaimVerification, bool) {
	data, found := c.claims.Get(ClaimKey(company, claim))
	if !found {
		c.claimMisses.Add(1)
		return nil, false
	}

	var cv model.ClaimVerification
	if err := json.Unmarshal(data, &cv); err != nil {
		c.claimMisses.Add(1)
		return nil, false
	}
	c.claimHits.Add(1)
	return &cv, true
}

// SetVerification stores a verdict under the company+claimHash key.
func (c *VerificationCache) SetVerification(company string, cv model.ClaimVerification) error {
	data, err := json.Marshal(cv)
	if err != nil {
		return err
	}
	return c.claims.Set(ClaimKey(company, cv.Claim), data, c.claimTTL)
}

// Stats returns a snapshot of the cumulative counters.
func (c *VerificationCache) Stats() Stats {
	return Stats{
		URLHits:     c.urlHits.Load(),
		URLMisses:   c.urlMisses.Load(),
		ClaimHits:   c.claimHits.Load(),
		ClaimMisses: c.claimMisses.Load(),
		SweptTotal:  c.sweptTotal.Load(),
	}
}

// Sweep removes expired entries from both stores and returns the count.
func (c *VerificationCache) Sweep() int {
	removed := 0
	if s, ok := c.urls.(sweeper); ok {
		removed += s.Sweep()
	}
	if s, ok := c.claims.(sweeper); ok {
		removed += s.Sweep()
	}
	c.sweptTotal.Add(int64(removed))
	return removed
}

// Stop terminates the background sweep. Idempotent.
func (c *VerificationCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

func (c *VerificationCache) sweepLoop() {
	defer close(c.done)

	interval := c.sweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
