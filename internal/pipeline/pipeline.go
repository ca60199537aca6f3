package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/provenly/signalguard/internal/cache"
	"github.com/provenly/signalguard/internal/collect"
	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/extract"
	"github.com/provenly/signalguard/internal/fetch"
	"github.com/provenly/signalguard/internal/llm"
	"github.com/provenly/signalguard/internal/logging"
	"github.com/provenly/signalguard/internal/metrics"
	"github.com/provenly/signalguard/internal/model"
	"github.com/provenly/signalguard/internal/score"
	"github.com/provenly/signalguard/internal/scrape"
	"github.com/provenly/signalguard/internal/search"
	"github.com/provenly/signalguard/internal/verify"
)

// Stage names recorded in metadata timings and metrics.
const (
	StageEvidenceCollection    = "evidence_collection"
	StageClaimExtraction       = "claim_extraction"
	StageCacheCheck            = "cache_check"
	StageClaimVerification     = "claim_verification"
	StageConfidenceCalculation = "confidence_calculation"
	StageResultAssembly        = "result_assembly"
)

const topEvidenceN = 3

// Components are the pipeline's injected collaborators. Cache, Logger
// and Metrics may be nil.
type Components struct {
	Collector  *collect.Collector
	Extractor  *extract.Extractor
	Verifier   *verify.Verifier
	Calculator *score.Calculator
	Cache      *cache.VerificationCache
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// Pipeline runs the full verification state machine for one signal at a
// time. Safe for concurrent invocations; only the caches are shared.
type Pipeline struct {
	cfg *config.Config
	c   Components
}

// New assembles a pipeline from pre-built components.
func New(cfg *config.Config, c Components) *Pipeline {
	if c.Logger == nil {
		c.Logger = logging.Discard()
	}
	return &Pipeline{cfg: cfg, c: c}
}

// NewFromConfig wires every component from config. reg may be nil to
// skip metrics registration.
func NewFromConfig(cfg *config.Config, logger *log.Logger, reg prometheus.Registerer) (*Pipeline, error) {
	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	verifier, err := verify.NewVerifier(provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}

	var vc *cache.VerificationCache
	if cfg.Cache.Enabled {
		vc = cache.NewVerificationCache(cfg.Cache)
	}

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	// Keep absent providers as nil interfaces so the collector skips
	// their stages instead of calling through a typed nil.
	var searchProvider search.Provider
	if sp := search.NewHTTPProvider(cfg.Search); sp != nil {
		searchProvider = sp
	}
	var scrapeProvider scrape.Provider
	if sp := scrape.NewHTTPProvider(cfg.Scrape); sp != nil {
		scrapeProvider = sp
	}

	fetcher := fetch.NewFetcher(cfg.HTTP)
	return New(cfg, Components{
		Collector:  collect.NewCollector(fetcher, searchProvider, scrapeProvider, vc),
		Extractor:  extract.NewExtractor(provider, cfg.Gates),
		Verifier:   verifier,
		Calculator: score.NewCalculator(cfg),
		Cache:      vc,
		Logger:     logger,
		Metrics:    m,
	}), nil
}

// Close releases pipeline-owned background resources.
func (p *Pipeline) Close() {
	if p.c.Cache != nil {
		p.c.Cache.Stop()
	}
}

// VerifySignal runs the five-stage verification for one signal. It
// always returns a well-formed result; panics anywhere in the pipeline
// are converted into a discard result.
func (p *Pipeline) VerifySignal(ctx context.Context, input model.VerifySignalInput) (result *model.VerificationResult) {
	md := model.Metadata{StageTimingsMS: make(map[string]int64)}
	var statsBefore cache.Stats
	if p.c.Cache != nil {
		statsBefore = p.c.Cache.Stats()
	}

	defer func() {
		if r := recover(); r != nil {
			p.c.Logger.Error("pipeline panic", "company", input.Company, "panic", r)
			result = p.discard(input, md, fmt.Sprintf("Verification failed: %v", r))
		}
	}()

	logger := p.c.Logger.With("company", input.Company, "signal_type", input.RawSignal.Type)
	logger.Info("verification started")

	// Stage 1: evidence collection
	var collected *collect.Result
	p.timeStage(&md, StageEvidenceCollection, func() {
		collected = p.c.Collector.Collect(ctx, collect.Input{
			Company:        input.Company,
			Domain:         input.Domain,
			SignalType:     input.RawSignal.Type,
			ArticleURL:     input.RSSItem.Link,
			ArticleTitle:   input.RSSItem.Title,
			ArticleContent: input.RSSItem.Content,
			MaxExternal:    p.cfg.Search.MaxResults,
		})
	})
	md.FetchCalls = collected.FetchCalls
	md.SearchCalls = collected.SearchCalls
	md.NonFatalErrors = append(md.NonFatalErrors, collected.Errors...)
	logger.Info("evidence collected", "count", len(collected.Evidence), "fetches", collected.FetchCalls)

	if p.c.Metrics != nil {
		p.c.Metrics.EvidenceCollected.Observe(float64(len(collected.Evidence)))
		p.c.Metrics.FetchCallsTotal.Add(float64(collected.FetchCalls))
		p.c.Metrics.SearchCallsTotal.Add(float64(collected.SearchCalls))
	}
	if len(collected.Evidence) == 0 {
		return p.discard(input, md, "No evidence could be collected")
	}

	// Stage 2: claim extraction
	var extracted *extract.Output
	p.timeStage(&md, StageClaimExtraction, func() {
		extracted = p.c.Extractor.Extract(ctx, extract.Input{
			Company:        input.Company,
			Domain:         input.Domain,
			SignalType:     input.RawSignal.Type,
			SignalDetails:  input.RawSignal.Details,
			ArticleTitle:   input.RSSItem.Title,
			ArticleSnippet: articleSnippet(input, collected.Evidence),
			SourceName:     input.RSSItem.SourceName,
		})
	})
	md.LLMCalls += extracted.LLMCalls
	logger.Info("claims extracted", "count", len(extracted.Claims), "canonical_name", extracted.Company.CanonicalName)

	if p.c.Metrics != nil {
		p.c.Metrics.ClaimsExtracted.Observe(float64(len(extracted.Claims)))
	}
	if len(extracted.Claims) == 0 {
		return p.discard(input, md, "No verifiable claims could be extracted")
	}

	// Stage 3: cache check. Best-effort lookahead for observability;
	// never short-circuits verification.
	p.timeStage(&md, StageCacheCheck, func() {
		if p.c.Cache == nil {
			return
		}
		for _, claim := range extracted.Claims {
			if _, found := p.c.Cache.GetVerification(extracted.Company.CanonicalName, claim); found {
				md.CachedVerifications++
			}
		}
	})

	// Stage 4: claim verification, strictly sequential
	var verifications []model.ClaimVerification
	p.timeStage(&md, StageClaimVerification, func() {
		var calls int
		verifications, calls = p.c.Verifier.VerifyClaims(ctx, extracted.Claims, collected.Evidence)
		md.LLMCalls += calls
	})
	logger.Info("claims verified", "count", len(verifications))

	// Stage 5: confidence calculation
	var outcome score.Outcome
	p.timeStage(&md, StageConfidenceCalculation, func() {
		outcome = p.c.Calculator.Overall(verifications, collected.Evidence)
	})
	explanation := score.Explain(outcome, verifications, collected.Evidence)
	logger.Info("confidence calculated",
		"status", outcome.Status, "confidence", outcome.Confidence, "summary", explanation.Summary)

	// Write back settled verdicts before assembling the result.
	if p.c.Cache != nil {
		for _, cv := range verifications {
			if cv.Status == model.StatusUnknown {
				continue
			}
			if err := p.c.Cache.SetVerification(extracted.Company.CanonicalName, cv); err != nil {
				md.NonFatalErrors = append(md.NonFatalErrors, fmt.Sprintf("claim cache write: %v", err))
			}
		}
	}

	p.timeStage(&md, StageResultAssembly, func() {
		if p.c.Cache != nil {
			statsAfter := p.c.Cache.Stats()
			md.CacheHits = (statsAfter.URLHits - statsBefore.URLHits) + (statsAfter.ClaimHits - statsBefore.ClaimHits)
			md.CacheMisses = (statsAfter.URLMisses - statsBefore.URLMisses) + (statsAfter.ClaimMisses - statsBefore.ClaimMisses)

			if p.c.Metrics != nil {
				p.c.Metrics.CacheHitsTotal.WithLabelValues("url").Add(float64(statsAfter.URLHits - statsBefore.URLHits))
				p.c.Metrics.CacheHitsTotal.WithLabelValues("claim").Add(float64(statsAfter.ClaimHits - statsBefore.ClaimHits))
				p.c.Metrics.CacheMissesTotal.WithLabelValues("url").Add(float64(statsAfter.URLMisses - statsBefore.URLMisses))
				p.c.Metrics.CacheMissesTotal.WithLabelValues("claim").Add(float64(statsAfter.ClaimMisses - statsBefore.ClaimMisses))
			}
		}

		topSupporting, topContradicting := topEvidence(verifications)
		result = &model.VerificationResult{
			Input:              input,
			Company:            extracted.Company,
			Claims:             extracted.Claims,
			ClaimVerifications: verifications,
			OverallStatus:      outcome.Status,
			OverallConfidence:  outcome.Confidence,
			ConfidenceBand:     outcome.Band,
			StatusReason:       outcome.Reason,
			TopSupporting:      topSupporting,
			TopContradicting:   topContradicting,
			AllEvidence:        collected.Evidence,
			Metadata:           md,
			VerifiedAt:         time.Now().UTC(),
		}
	})

	p.observeResult(result)
	logger.Info("verification finished", "status", result.OverallStatus, "confidence", result.OverallConfidence)
	return result
}

// discard builds the short-circuit result with the given reason.
func (p *Pipeline) discard(input model.VerifySignalInput, md model.Metadata, reason string) *model.VerificationResult {
	result := &model.VerificationResult{
		Input: input,
		Company: model.CompanyIdentity{
			CanonicalName:  input.Company,
			Domain:         input.Domain,
			IdentifiedFrom: "input",
		},
		OverallStatus:     model.OverallDiscard,
		OverallConfidence: 0,
		ConfidenceBand:    model.BandUnknown,
		StatusReason:      reason,
		Metadata:          md,
		VerifiedAt:        time.Now().UTC(),
	}
	p.observeResult(result)
	return result
}

func (p *Pipeline) observeResult(result *model.VerificationResult) {
	if p.c.Metrics == nil || result == nil {
		return
	}
	p.c.Metrics.VerificationsTotal.WithLabelValues(string(result.OverallStatus)).Inc()
	p.c.Metrics.OverallConfidence.Observe(result.OverallConfidence)
	p.c.Metrics.LLMCallsTotal.Add(float64(result.Metadata.LLMCalls))
}

func (p *Pipeline) timeStage(md *model.Metadata, stage string, fn func()) {
	start := time.Now()
	fn()
	elapsed := time.Since(start)
	md.StageTimingsMS[stage] = elapsed.Milliseconds()
	if p.c.Metrics != nil {
		p.c.Metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	}
}

// articleSnippet picks the best available article text for extraction.
func articleSnippet(input model.VerifySignalInput, evidence []model.Evidence) string {
	if input.RSSItem.Content != "" {
		return truncate(input.RSSItem.Content, 2000)
	}
	for _, ev := range evidence {
		if ev.SourceType == model.SourceRSSArticle && ev.Snippet != "" {
			return ev.Snippet
		}
	}
	return input.RSSItem.ContentSnippet
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

// topEvidence returns the highest-relevance supporting and contradicting
// references across all claims.
func topEvidence(verifications []model.ClaimVerification) ([]model.SupportingEvidence, []model.ContradictingEvidence) {
	var supporting []model.SupportingEvidence
	var contradicting []model.ContradictingEvidence
	for _, cv := range verifications {
		supporting = append(supporting, cv.SupportingEvidence...)
		contradicting = append(contradicting, cv.ContradictingEvidence...)
	}

	sort.SliceStable(supporting, func(i, j int) bool {
		return supporting[i].RelevanceScore > supporting[j].RelevanceScore
	})
	sort.SliceStable(contradicting, func(i, j int) bool {
		return contradicting[i].RelevanceScore > contradicting[j].RelevanceScore
	})

	if len(supporting) > topEvidenceN {
		supporting = supporting[:topEvidenceN]
	}
	if len(contradicting) > topEvidenceN {
		contradicting = contradicting[:topEvidenceN]
	}
	return supporting, contradicting
}
