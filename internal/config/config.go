package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provenly/signalguard/internal/model"
)

// Config is the versioned weights document plus runtime settings.
// Loaded once at process start and treated as immutable afterward.
type Config struct {
	Version int `yaml:"version"`

	HTTP       HTTPConfig       `yaml:"http"`
	Cache      CacheConfig      `yaml:"cache"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
	Scrape     ScrapeConfig     `yaml:"scrape"`
	Weights    Weights          `yaml:"weights"`
	Gates      GatesConfig      `yaml:"gates"`
	Thresholds ConfidenceThresholds `yaml:"confidence_thresholds"`
}

// HTTPConfig controls outbound fetching.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	RatePerDomain float64       `yaml:"rate_per_domain"` // requests/sec
	RateBurst     int           `yaml:"rate_burst"`
	RespectRobots bool          `yaml:"respect_robots"`
}

// CacheConfig controls the two TTL stores.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Dir           string        `yaml:"dir"` // disk layer for fetched URL content
	URLTTL        time.Duration `yaml:"url_ttl"`
	ClaimTTL      time.Duration `yaml:"claim_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LLMConfig selects and configures the structured-completion provider.
type LLMConfig struct {
	Provider   string `yaml:"provider"` // openai, anthropic, ""
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxRetries int    `yaml:"max_retries"`
	MaxTokens  int    `yaml:"max_tokens"`
}

// SearchConfig configures the optional keyword-search provider.
type SearchConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	MaxResults int    `yaml:"max_results"`
}

// ScrapeConfig configures the optional scrape provider.
type ScrapeConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
}

// Weights is the evidence reliability model.
type Weights struct {
	SourceTypes       map[string]float64 `yaml:"source_types"`
	DefaultSourceType float64            `yaml:"default_source_type"`

	// Publishers maps URL domains to trust multipliers. An explicit 0
	// short-circuits the whole evidence item to weight 0.
	Publishers map[string]float64 `yaml:"publishers"`

	Recency     RecencyDecay       `yaml:"recency_decay"`
	Specificity SpecificityFactors `yaml:"specificity_factors"`
	Duplication DuplicationPenalty `yaml:"duplication_penalty"`
}

// RecencyDecay is exponential half-life down-weighting by publication age.
type RecencyDecay struct {
	HalfLifeDays float64 `yaml:"half_life_days"`
	MinWeight    float64 `yaml:"min_weight"`
}

// SpecificityFactors are fixed bonuses for concrete detail in a snippet.
type SpecificityFactors struct {
	ExactNumber float64 `yaml:"exact_number"`
	NamedPerson float64 `yaml:"named_person"`
	WrittenDate float64 `yaml:"written_date"`
	QuotedText  float64 `yaml:"quoted_text"`
}

// DuplicationPenalty scales with the count of near-duplicate evidence.
type DuplicationPenalty struct {
	PerDuplicate float64 `yaml:"per_duplicate"`
	Max          float64 `yaml:"max"`
}

// GatesConfig holds the per-claim-type hard gate table.
type GatesConfig struct {
	// LenientUnknown restores the legacy behavior where an unrecognized
	// gate name passes by default. Off by default: unknown gates fail.
	LenientUnknown bool `yaml:"lenient_unknown"`

	// HardGates maps claim type to its ordered gate-name list.
	HardGates map[string][]string `yaml:"hard_gates"`
}

// RequirementsFor returns the gate list for a claim type, falling back to
// the "other" entry when the type has no row of its own.
func (g GatesConfig) RequirementsFor(t model.ClaimType) []string {
	if gates, ok := g.HardGates[string(t)]; ok {
		return gates
	}
	return g.HardGates[string(model.ClaimOther)]
}

// ConfidenceThresholds separate the three dispositions.
type ConfidenceThresholds struct {
	Verified  float64 `yaml:"verified"`
	Watchlist float64 `yaml:"watchlist"`
	Discard   float64 `yaml:"discard"`
}

// Gate names referenced by the default hard-gate table.
const (
	GateOfficialOr2Reputable  = "official_announcement_or_2_reputable_sources"
	GateAmountConsistent      = "amount_consistent_across_sources"
	GateCareersPageOrListings = "official_careers_page_or_job_listings"
	GateRegulatoryNotice      = "sec_filing_or_regulatory_notice"
	GateMultipleIndependent   = "multiple_independent_sources"
	GateOfficialPresent       = "official_source_present"
	GateNamedExecutive        = "named_executive_source"
)

// Default returns the built-in weights document.
func Default() *Config {
	return &Config{
		Version: 1,
		HTTP: HTTPConfig{
			Timeout:       10 * time.Second,
			UserAgent:     "SignalGuard/0.2 (+https://github.com/provenly/signalguard)",
			MaxBodyBytes:  2_000_000,
			RatePerDomain: 2,
			RateBurst:     4,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:       true,
			Dir:           defaultCacheDir(),
			URLTTL:        24 * time.Hour,
			ClaimTTL:      8 * time.Hour,
			SweepInterval: time.Hour,
		},
		LLM: LLMConfig{
			Provider:   "openai",
			Timeout:    30,
			MaxRetries: 2,
			MaxTokens:  2000,
		},
		Search: SearchConfig{MaxResults: 3},
		Weights: Weights{
			SourceTypes: map[string]float64{
				string(model.SourceCompanyPress):    1.0,
				string(model.SourceCompanyNewsroom): 1.0,
				string(model.SourceSECFiling):       1.0,
				string(model.SourceRegistry):        0.95,
				string(model.SourceCompanyCareers):  0.9,
				string(model.SourceCompanyAbout):    0.85,
				string(model.SourceThirdPartyNews):  0.8,
				string(model.SourceCrunchbase):      0.75,
				string(model.SourcePitchbook):       0.75,
				string(model.SourceJobsBoard):       0.7,
				string(model.SourceSocialOfficial):  0.65,
				string(model.SourceRSSArticle):      0.6,
				string(model.SourceOther):           0.4,
			},
			DefaultSourceType: 0.4,
			Publishers: map[string]float64{
				"reuters.com":       1.2,
				"bloomberg.com":     1.2,
				"ft.com":            1.15,
				"wsj.com":           1.15,
				"techcrunch.com":    1.1,
				"businesswire.com":  1.05,
				"prnewswire.com":    1.0,
				"sec.gov":           1.2,
				"crunchbase.com":    1.0,
				"linkedin.com":      0,
				"facebook.com":      0,
				"x.com":             0,
				"twitter.com":       0,
			},
			Recency: RecencyDecay{HalfLifeDays: 30, MinWeight: 0.3},
			Specificity: SpecificityFactors{
				ExactNumber: 0.15,
				NamedPerson: 0.1,
				WrittenDate: 0.1,
				QuotedText:  0.1,
			},
			Duplication: DuplicationPenalty{PerDuplicate: 0.15, Max: 0.5},
		},
		Gates: GatesConfig{
			HardGates: map[string][]string{
				string(model.ClaimFundingRaised):         {GateOfficialOr2Reputable, GateAmountConsistent},
				string(model.ClaimAcquisitionAnnounced):  {GateOfficialOr2Reputable, GateMultipleIndependent},
				string(model.ClaimMergerAnnounced):       {GateOfficialOr2Reputable, GateMultipleIndependent},
				string(model.ClaimIPOAnnounced):          {GateRegulatoryNotice, GateOfficialOr2Reputable},
				string(model.ClaimHiringInitiative):      {GateCareersPageOrListings},
				string(model.ClaimLayoffsAnnounced):      {GateMultipleIndependent},
				string(model.ClaimExecutiveChange):       {GateNamedExecutive},
				string(model.ClaimPartnershipAnnounced):  {GateOfficialOr2Reputable},
				string(model.ClaimProductLaunch):         {GateOfficialPresent},
				string(model.ClaimExpansionAnnounced):    {GateMultipleIndependent},
				string(model.ClaimOfficeMove):            {GateOfficialPresent},
				string(model.ClaimContractAwarded):       {GateOfficialOr2Reputable},
				string(model.ClaimCertificationObtained): {GateOfficialPresent},
				string(model.ClaimAwardReceived):         {GateOfficialPresent},
				string(model.ClaimBankruptcyFiled):       {GateRegulatoryNotice},
				string(model.ClaimRebrandAnnounced):      {GateOfficialPresent},
				string(model.ClaimRevenueMilestone):      {GateOfficialOr2Reputable, GateAmountConsistent},
				string(model.ClaimOther):                 {GateOfficialOr2Reputable},
			},
		},
		Thresholds: ConfidenceThresholds{Verified: 0.75, Watchlist: 0.45, Discard: 0.2},
	}
}

// Load reads a YAML weights document and validates it. Missing sections
// keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate fails fast on schema violations so a bad weights document
// stops the process at startup, not at first use.
func (c *Config) Validate() error {
	t := c.Thresholds
	for name, v := range map[string]float64{"verified": t.Verified, "watchlist": t.Watchlist, "discard": t.Discard} {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s out of range [0,1]: %v", name, v)
		}
	}
	if t.Verified <= t.Watchlist || t.Watchlist <= t.Discard {
		return fmt.Errorf("thresholds must be ordered verified > watchlist > discard, got %v > %v > %v",
			t.Verified, t.Watchlist, t.Discard)
	}

	for st, w := range c.Weights.SourceTypes {
		if w < 0 || w > 1 {
			return fmt.Errorf("source type weight %s out of range [0,1]: %v", st, w)
		}
	}
	for pub, w := range c.Weights.Publishers {
		if w < 0 || w > 2 {
			return fmt.Errorf("publisher weight %s out of range [0,2]: %v", pub, w)
		}
	}
	if c.Weights.Recency.HalfLifeDays <= 0 {
		return fmt.Errorf("recency half-life must be positive, got %v", c.Weights.Recency.HalfLifeDays)
	}
	if mw := c.Weights.Recency.MinWeight; mw < 0 || mw > 1 {
		return fmt.Errorf("recency min weight out of range [0,1]: %v", mw)
	}
	if d := c.Weights.Duplication; d.Max < 0 || d.Max > 1 || d.PerDuplicate < 0 {
		return fmt.Errorf("duplication penalty out of range: per_duplicate=%v max=%v", d.PerDuplicate, d.Max)
	}

	for claimType := range c.Gates.HardGates {
		if !model.ValidClaimType(claimType) {
			return fmt.Errorf("hard_gates references unknown claim type %q", claimType)
		}
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http timeout must be positive, got %v", c.HTTP.Timeout)
	}
	return nil
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".signalguard/cache"
	}
	return home + "/.signalguard/cache"
}
