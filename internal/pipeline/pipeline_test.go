package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/provenly/signalguard/internal/cache"
	"github.com/provenly/signalguard/internal/collect"
	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/extract"
	"github.com/provenly/signalguard/internal/fetch"
	"github.com/provenly/signalguard/internal/llm"
	"github.com/provenly/signalguard/internal/metrics"
	"github.com/provenly/signalguard/internal/model"
	"github.com/provenly/signalguard/internal/score"
	"github.com/provenly/signalguard/internal/search"
	"github.com/provenly/signalguard/internal/verify"
)

func testFetcher() *fetch.Fetcher {
	return fetch.NewFetcher(config.HTTPConfig{
		Timeout:       2 * time.Second,
		UserAgent:     "SignalGuardTest/1.0",
		MaxBodyBytes:  1 << 20,
		RatePerDomain: 100,
		RateBurst:     100,
	})
}

type fakeSearch struct {
	results []search.Result
}

func (f *fakeSearch) Search(context.Context, string, int) ([]search.Result, error) {
	return f.results, nil
}

// judgingProvider answers the extraction call with a fixed response and
// every judgment call by taking the given stance on each evidence item
// listed in the prompt.
type judgingProvider struct {
	mu         sync.Mutex
	calls      int
	extraction string
	stance     string // "supports" or "contradicts"
}

func (p *judgingProvider) Name() string { return "judging" }

func (p *judgingProvider) CompleteStructured(_ context.Context, req llm.Request) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if req.SchemaName == "claim_extraction" {
		return json.RawMessage(p.extraction), nil
	}

	var judgments []map[string]any
	for _, line := range strings.Split(req.Messages[0].Content, "\n") {
		id, ok := strings.CutPrefix(line, "id: ")
		if !ok {
			continue
		}
		j := map[string]any{
			"evidence_id":     id,
			"relevant":        true,
			"supports":        p.stance == "supports",
			"contradicts":     p.stance == "contradicts",
			"relevance_score": 0.9,
		}
		if p.stance == "contradicts" {
			j["contradiction_type"] = "denial"
		}
		judgments = append(judgments, j)
	}
	return json.Marshal(map[string]any{"judgments": judgments, "reasoning": "scripted stance"})
}

func newTestPipeline(t *testing.T, cfg *config.Config, provider llm.Provider, searcher search.Provider, vc *cache.VerificationCache) *Pipeline {
	t.Helper()
	verifier, err := verify.NewVerifier(provider, cfg)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return New(cfg, Components{
		Collector:  collect.NewCollector(testFetcher(), searcher, nil, vc),
		Extractor:  extract.NewExtractor(provider, cfg.Gates),
		Verifier:   verifier,
		Calculator: score.NewCalculator(cfg),
		Cache:      vc,
	})
}

func testSignal() model.VerifySignalInput {
	return model.VerifySignalInput{
		Company: "Acme Robotics",
		Domain:  "",
		RawSignal: model.RawSignal{
			Type:    "funding",
			Details: "Acme Robotics raised a $50M Series B",
		},
		RSSItem: model.RSSItem{
			Title:      "Acme Robotics raises $50M",
			Link:       "https://news.example.com/acme",
			Content:    "Acme Robotics today announced a $50M Series B led by Example Capital.",
			SourceName: "TechNews",
		},
	}
}

func TestVerifySignal_NoEvidenceDiscards(t *testing.T) {
	cfg := config.Default()
	p := newTestPipeline(t, cfg, nil, nil, nil)

	input := testSignal()
	input.RSSItem.Link = ""
	input.RSSItem.Content = ""

	result := p.VerifySignal(context.Background(), input)
	if result.OverallStatus != model.OverallDiscard {
		t.Errorf("status = %s", result.OverallStatus)
	}
	if result.StatusReason != "No evidence could be collected" {
		t.Errorf("reason = %q", result.StatusReason)
	}
	if result.Company.CanonicalName != "Acme Robotics" {
		t.Errorf("company echo = %+v", result.Company)
	}
	if _, ok := result.Metadata.StageTimingsMS[StageEvidenceCollection]; !ok {
		t.Error("expected evidence collection timing recorded")
	}
}

func TestVerifySignal_NoClaimsDiscards(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptedResponse{JSON: `{
		"claims": [],
		"company": {"canonical_name": "Acme Robotics"}
	}`})

	p := newTestPipeline(t, config.Default(), provider, nil, nil)
	result := p.VerifySignal(context.Background(), testSignal())

	if result.OverallStatus != model.OverallDiscard {
		t.Errorf("status = %s", result.OverallStatus)
	}
	if result.StatusReason != "No verifiable claims could be extracted" {
		t.Errorf("reason = %q", result.StatusReason)
	}
}

func TestVerifySignal_PanicRecovered(t *testing.T) {
	// A nil collector panics inside the first stage; the orchestrator
	// must convert that into a discard result.
	p := New(config.Default(), Components{})

	result := p.VerifySignal(context.Background(), testSignal())
	if result == nil {
		t.Fatal("expected result, got nil")
	}
	if result.OverallStatus != model.OverallDiscard {
		t.Errorf("status = %s", result.OverallStatus)
	}
	if !strings.Contains(result.StatusReason, "Verification failed") {
		t.Errorf("reason = %q", result.StatusReason)
	}
}

func TestVerifySignal_EndToEndProducesCompleteResult(t *testing.T) {
	defer llm.DisableRetrySleep()()

	// Call order: extraction first, then one judgment per claim. The
	// judgment is unparseable, so the claim must degrade to unknown while
	// the pipeline still assembles a full result.
	provider := llm.NewScriptedProvider(
		llm.ScriptedResponse{JSON: `{
			"claims": [{"type": "funding_raised",
				"statement": "Acme Robotics raised $50M in Series B funding",
				"entities": {"company": "Acme Robotics", "amount": "$50M"}}],
			"company": {"canonical_name": "Acme Robotics", "domain": "acme.com", "domain_confidence": 0.9}
		}`},
		llm.ScriptedResponse{JSON: "JUDGMENT_PLACEHOLDER"},
	)

	vc := cache.NewVerificationCache(config.CacheConfig{
		URLTTL: time.Hour, ClaimTTL: time.Hour, SweepInterval: time.Hour,
	})
	defer vc.Stop()

	p := newTestPipeline(t, config.Default(), provider, nil, vc)
	result := p.VerifySignal(context.Background(), testSignal())

	if result.OverallStatus != model.OverallDiscard {
		t.Errorf("status = %s", result.OverallStatus)
	}
	if len(result.Claims) != 1 || len(result.ClaimVerifications) != 1 {
		t.Fatalf("claims=%d verifications=%d", len(result.Claims), len(result.ClaimVerifications))
	}
	if result.ClaimVerifications[0].Status != model.StatusUnknown {
		t.Errorf("claim status = %s", result.ClaimVerifications[0].Status)
	}
	if result.Company.Domain != "acme.com" {
		t.Errorf("company = %+v", result.Company)
	}
	if len(result.AllEvidence) != 1 {
		t.Errorf("evidence = %d", len(result.AllEvidence))
	}
}

func TestVerifySignal_CacheWriteBackSkipsUnknown(t *testing.T) {
	defer llm.DisableRetrySleep()()

	provider := llm.NewScriptedProvider(
		llm.ScriptedResponse{JSON: `{
			"claims": [{"type": "funding_raised", "statement": "Acme raised $50M",
				"entities": {"company": "Acme"}}],
			"company": {"canonical_name": "Acme Robotics"}
		}`},
		llm.ScriptedResponse{JSON: `not json`},
	)

	vc := cache.NewVerificationCache(config.CacheConfig{
		URLTTL: time.Hour, ClaimTTL: time.Hour, SweepInterval: time.Hour,
	})
	defer vc.Stop()

	p := newTestPipeline(t, config.Default(), provider, nil, vc)
	result := p.VerifySignal(context.Background(), testSignal())

	// Unknown verdicts are never cached
	claim := result.Claims[0]
	if _, found := vc.GetVerification("Acme Robotics", claim); found {
		t.Error("unknown verdict must not be written to the claim cache")
	}
}

func TestVerifySignal_StageTimingsComplete(t *testing.T) {
	provider := llm.NewScriptedProvider(llm.ScriptedResponse{JSON: `{
		"claims": [],
		"company": {"canonical_name": "Acme Robotics"}
	}`})
	p := newTestPipeline(t, config.Default(), provider, nil, nil)

	result := p.VerifySignal(context.Background(), testSignal())
	for _, stage := range []string{StageEvidenceCollection, StageClaimExtraction} {
		if _, ok := result.Metadata.StageTimingsMS[stage]; !ok {
			t.Errorf("missing timing for %s", stage)
		}
	}
	if result.VerifiedAt.IsZero() {
		t.Error("VerifiedAt not set")
	}
}

func TestVerifySignal_FundingCorroboratedAcrossSources(t *testing.T) {
	provider := &judgingProvider{
		stance: "supports",
		extraction: `{
			"claims": [{"type": "funding_raised",
				"statement": "Acme Robotics raised $50M in Series B funding",
				"entities": {"company": "Acme Robotics", "amount": "$50M"}}],
			"company": {"canonical_name": "Acme Robotics", "domain": "acme.invalid", "domain_confidence": 0.95}
		}`,
	}
	searcher := &fakeSearch{results: []search.Result{
		{URL: "https://acme.invalid/press/series-b", Title: "Acme announces Series B",
			Snippet: "Acme Robotics announced a $50M Series B round today."},
		{URL: "https://crunchbase.com/organization/acme-robotics", Title: "Acme Robotics profile",
			Snippet: "Acme Robotics, total funding $50M."},
	}}

	input := testSignal()
	input.Domain = "acme.invalid"

	p := newTestPipeline(t, config.Default(), provider, searcher, nil)
	result := p.VerifySignal(context.Background(), input)

	// article + official press + data-provider profile
	if len(result.AllEvidence) != 3 {
		t.Fatalf("evidence = %d: %+v", len(result.AllEvidence), result.AllEvidence)
	}
	if result.OverallStatus != model.OverallVerified {
		t.Errorf("status = %s (%s)", result.OverallStatus, result.StatusReason)
	}
	if result.OverallConfidence <= 0.7 {
		t.Errorf("confidence = %v, want > 0.7", result.OverallConfidence)
	}
	if result.ConfidenceBand != model.BandHigh {
		t.Errorf("band = %s", result.ConfidenceBand)
	}
	cv := result.ClaimVerifications[0]
	if cv.Status != model.StatusVerified || len(cv.GatesFailed) != 0 {
		t.Errorf("claim status=%s gatesFailed=%v", cv.Status, cv.GatesFailed)
	}
	if len(result.TopSupporting) != 3 {
		t.Errorf("top supporting = %d", len(result.TopSupporting))
	}
}

func TestVerifySignal_OfficialDenialDiscards(t *testing.T) {
	provider := &judgingProvider{
		stance: "contradicts",
		extraction: `{
			"claims": [{"type": "funding_raised",
				"statement": "Acme Robotics raised $50M in Series B funding",
				"entities": {"company": "Acme Robotics", "amount": "$50M"}}],
			"company": {"canonical_name": "Acme Robotics", "domain": "acme.invalid", "domain_confidence": 0.95}
		}`,
	}
	searcher := &fakeSearch{results: []search.Result{
		{URL: "https://acme.invalid/press/statement", Title: "Statement on funding rumors",
			Snippet: "Acme Robotics has not raised a new round and denies the reports."},
	}}

	input := testSignal()
	input.Domain = "acme.invalid"

	p := newTestPipeline(t, config.Default(), provider, searcher, nil)
	result := p.VerifySignal(context.Background(), input)

	if result.OverallStatus != model.OverallDiscard {
		t.Errorf("status = %s", result.OverallStatus)
	}
	if result.OverallConfidence > 0.3 {
		t.Errorf("confidence = %v, want <= 0.3", result.OverallConfidence)
	}
	cv := result.ClaimVerifications[0]
	if cv.Status != model.StatusContradicted {
		t.Errorf("claim status = %s", cv.Status)
	}
	if len(result.TopContradicting) == 0 {
		t.Error("expected contradicting references in result")
	}
	if !strings.Contains(result.StatusReason, "contradicted") {
		t.Errorf("reason = %q", result.StatusReason)
	}
}

func TestVerifySignal_CacheMetricsRecorded(t *testing.T) {
	provider := &judgingProvider{
		stance: "supports",
		extraction: `{
			"claims": [{"type": "funding_raised",
				"statement": "Acme Robotics raised $50M in Series B funding",
				"entities": {"company": "Acme Robotics", "amount": "$50M"}}],
			"company": {"canonical_name": "Acme Robotics"}
		}`,
	}

	vc := cache.NewVerificationCache(config.CacheConfig{
		URLTTL: time.Hour, ClaimTTL: time.Hour, SweepInterval: time.Hour,
	})
	defer vc.Stop()

	cfg := config.Default()
	verifier, err := verify.NewVerifier(provider, cfg)
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New(prometheus.NewRegistry())
	p := New(cfg, Components{
		Collector:  collect.NewCollector(testFetcher(), nil, nil, vc),
		Extractor:  extract.NewExtractor(provider, cfg.Gates),
		Verifier:   verifier,
		Calculator: score.NewCalculator(cfg),
		Cache:      vc,
		Metrics:    m,
	})

	// First run misses the claim cache and writes the settled verdict
	// back; the second run hits it.
	p.VerifySignal(context.Background(), testSignal())
	p.VerifySignal(context.Background(), testSignal())

	if got := testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("claim")); got < 1 {
		t.Errorf("claim cache misses = %v, want >= 1", got)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("claim")); got < 1 {
		t.Errorf("claim cache hits = %v, want >= 1", got)
	}
}

func TestTruncate_RuneSafe(t *testing.T) {
	s := strings.Repeat("a", 4) + "é"
	got := truncate(s, 5)
	if !utf8.ValidString(got) {
		t.Errorf("truncate split a rune: %q", got)
	}
	if got != "aaaa" {
		t.Errorf("truncate = %q", got)
	}
	if truncate("short", 10) != "short" {
		t.Error("strings within the limit must pass through")
	}
}
