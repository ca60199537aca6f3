package collect

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/provenly/signalguard/internal/cache"
	"github.com/provenly/signalguard/internal/fetch"
	"github.com/provenly/signalguard/internal/model"
	"github.com/provenly/signalguard/internal/scrape"
	"github.com/provenly/signalguard/internal/search"
)

const (
	defaultMaxExternal  = 3
	maxOutboundLinks    = 3
	maxSnippetLen       = 1000
	minEvidenceForSkip  = 3 // below this the scrape fallback kicks in
	officialProbeBudget = 4 // concurrent official-page probes
)

// officialPaths are the guessed company pages probed when the domain is
// known.
var officialPaths = []string{"/press", "/news", "/newsroom", "/about", "/about-us", "/careers", "/jobs"}

// Collector gathers a deduplicated evidence set for one signal. Any
// single source failure yields no evidence for that source; the stage
// itself cannot fail.
type Collector struct {
	fetcher *fetch.Fetcher
	search  search.Provider // nil disables keyword search
	scraper scrape.Provider // nil disables the scrape fallback
	cache   *cache.VerificationCache
}

// Input describes one collection run.
type Input struct {
	Company        string
	Domain         string
	SignalType     string
	ArticleURL     string
	ArticleTitle   string
	ArticleContent string // optional; skips the seed fetch when present
	MaxExternal    int    // max third-party search results (default 3)
}

// Result is the collected evidence plus external-call counters and the
// non-fatal error list.
type Result struct {
	Evidence    []model.Evidence
	FetchCalls  int
	SearchCalls int
	Errors      []string
}

// NewCollector creates an evidence collector. search and scraper may be
// nil.
func NewCollector(fetcher *fetch.Fetcher, searchProvider search.Provider, scraper scrape.Provider, vc *cache.VerificationCache) *Collector {
	return &Collector{fetcher: fetcher, search: searchProvider, scraper: scraper, cache: vc}
}

// gatherState accumulates evidence across the concurrent sources.
type gatherState struct {
	mu          sync.Mutex
	evidence    []model.Evidence
	seenHashes  map[string]bool
	errors      []string
	fetchCalls  int
	searchCalls int
}

func (g *gatherState) add(e model.Evidence) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seenHashes[e.ContentHash] {
		return false
	}
	g.seenHashes[e.ContentHash] = true
	g.evidence = append(g.evidence, e)
	return true
}

func (g *gatherState) fail(source string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errors = append(g.errors, fmt.Sprintf("%s: %v", source, err))
}

func (g *gatherState) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.evidence)
}

// Collect runs all evidence sources for a signal.
func (c *Collector) Collect(ctx context.Context, in Input) *Result {
	if in.MaxExternal <= 0 {
		in.MaxExternal = defaultMaxExternal
	}

	state := &gatherState{seenHashes: make(map[string]bool)}

	// (a) seed article
	seedHTML := c.collectSeed(ctx, in, state)

	var wg sync.WaitGroup

	// (b) outbound links from the seed article
	if seedHTML != "" {
		links := c.selectOutboundLinks(seedHTML, in.ArticleURL)
		sem := make(chan struct{}, maxOutboundLinks)
		for _, link := range links {
			wg.Add(1)
			go func(link fetch.Link) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				c.collectURL(ctx, link.URL, in.Domain, model.SourceOther, state)
			}(link)
		}
	}

	// (c) guessed official company pages
	if in.Domain != "" {
		sem := make(chan struct{}, officialProbeBudget)
		for _, path := range officialPaths {
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()
				c.collectOfficialPage(ctx, in.Domain, path, state)
			}(path)
		}
	}

	// (d) external keyword search, independent of the fetch fan-out
	if c.search != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.collectSearch(ctx, search.QueryFor(in.SignalType, in.Company), in, state)

			// (e) extra job-board query for hiring signals
			if in.SignalType == "hiring" && in.Domain != "" {
				c.collectSearch(ctx, search.JobsQuery(in.Company, in.Domain), in, state)
			}
		}()
	}

	wg.Wait()

	// (f) scrape fallback when plain fetching came up short
	if state.count() < minEvidenceForSkip && c.scraper != nil && in.ArticleURL != "" {
		c.collectScrape(ctx, in, state)
	}

	return &Result{
		Evidence:    state.evidence,
		FetchCalls:  state.fetchCalls,
		SearchCalls: state.searchCalls,
		Errors:      state.errors,
	}
}

// collectSeed ingests the seed article, fetching it unless content was
// provided. Returns the seed HTML for link expansion ("" on failure).
func (c *Collector) collectSeed(ctx context.Context, in Input, state *gatherState) string {
	if in.ArticleContent != "" {
		state.add(c.newEvidence(in.ArticleURL, in.ArticleTitle, in.ArticleContent, model.SourceRSSArticle, nil))
		return ""
	}
	if in.ArticleURL == "" {
		return ""
	}

	page := c.getPage(ctx, in.ArticleURL, state)
	if page == nil {
		return ""
	}

	title := page.Title
	if title == "" {
		title = in.ArticleTitle
	}
	state.add(c.newEvidence(in.ArticleURL, title, page.Text, model.SourceRSSArticle, page.PublishedAt))
	return page.HTML
}

// selectOutboundLinks filters the seed's anchors down to the external,
// non-social links worth expanding.
func (c *Collector) selectOutboundLinks(seedHTML, seedURL string) []fetch.Link {
	var selected []fetch.Link
	for _, link := range fetch.ExtractLinks(seedHTML, seedURL) {
		if link.SameHost || IsSocialDomain(link.Host) {
			continue
		}
		selected = append(selected, link)
		if len(selected) >= maxOutboundLinks {
			break
		}
	}
	return selected
}

// collectURL fetches one URL and adds it as evidence; fallbackType is
// used when classification yields "other".
func (c *Collector) collectURL(ctx context.Context, rawURL, companyDomain string, fallbackType model.SourceType, state *gatherState) {
	page := c.getPage(ctx, rawURL, state)
	if page == nil || page.Text == "" {
		return
	}

	sourceType := ClassifySource(rawURL, companyDomain)
	if sourceType == model.SourceOther && fallbackType != model.SourceOther {
		sourceType = fallbackType
	}
	state.add(c.newEvidence(rawURL, page.Title, page.Text, sourceType, page.PublishedAt))
}

// collectOfficialPage probes one guessed official path and fetches it if
// it responds.
func (c *Collector) collectOfficialPage(ctx context.Context, domain, path string, state *gatherState) {
	pageURL := "https://" + strings.TrimPrefix(strings.ToLower(domain), "https://") + path
	if _, err := url.Parse(pageURL); err != nil {
		return
	}

	if !c.fetcher.Probe(ctx, pageURL) {
		return
	}
	c.collectURL(ctx, pageURL, domain, model.SourceOther, state)
}

// collectSearch runs one keyword query and ingests the top results
// without fetching them.
func (c *Collector) collectSearch(ctx context.Context, query string, in Input, state *gatherState) {
	state.mu.Lock()
	state.searchCalls++
	state.mu.Unlock()

	results, err := c.search.Search(ctx, query, in.MaxExternal)
	if err != nil {
		state.fail("search", err)
		return
	}
	for _, r := range results {
		if r.URL == "" || r.URL == in.ArticleURL {
			continue
		}
		state.add(c.newEvidence(r.URL, r.Title, r.Snippet, ClassifySource(r.URL, in.Domain), nil))
	}
}

// collectScrape runs the scrape-provider fallback on the seed URL.
func (c *Collector) collectScrape(ctx context.Context, in Input, state *gatherState) {
	doc, err := c.scraper.Scrape(ctx, in.ArticleURL)
	if err != nil {
		state.fail("scrape", err)
		return
	}
	title := doc.Metadata["title"]
	if title == "" {
		title = in.ArticleTitle
	}
	state.add(c.newEvidence(in.ArticleURL, title, doc.Markdown, model.SourceRSSArticle, nil))
}

// getPage fetches a URL through the URL cache. Failures are swallowed
// into the non-fatal error list.
func (c *Collector) getPage(ctx context.Context, rawURL string, state *gatherState) *cache.CachedPage {
	if c.cache != nil {
		if page, found := c.cache.GetPage(rawURL); found {
			return page
		}
	}

	state.mu.Lock()
	state.fetchCalls++
	state.mu.Unlock()

	result, err := c.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		state.fail(rawURL, err)
		return nil
	}

	page := &cache.CachedPage{
		URL:         result.FinalURL,
		Title:       result.Title,
		Text:        result.Text,
		HTML:        result.HTML,
		PublishedAt: result.PublishedAt,
		FetchedAt:   time.Now().UTC(),
	}
	if c.cache != nil {
		if err := c.cache.SetPage(rawURL, *page); err != nil {
			state.fail(rawURL, fmt.Errorf("cache write: %w", err))
		}
	}
	return page
}

// truncate cuts s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// newEvidence builds an immutable Evidence record with its dedup hash.
func (c *Collector) newEvidence(rawURL, title, text string, sourceType model.SourceType, publishedAt *time.Time) model.Evidence {
	snippet := truncate(strings.TrimSpace(text), maxSnippetLen)

	return model.Evidence{
		ID:           ulid.Make().String(),
		URL:          rawURL,
		CanonicalURL: cache.NormalizeURL(rawURL),
		Title:        title,
		Snippet:      snippet,
		FullText:     text,
		SourceType:   sourceType,
		Publisher:    PublisherFor(rawURL),
		PublishedAt:  publishedAt,
		FetchedAt:    time.Now().UTC(),
		ContentHash:  cache.HashContent(title + " " + text),
		IsOfficial:   sourceType.IsOfficial(),
	}
}
