package model

import "time"

// VerificationStatus is the per-claim adjudication outcome
type VerificationStatus string

const (
	StatusVerified             VerificationStatus = "verified"
	StatusPartiallyVerified    VerificationStatus = "partially_verified"
	StatusContradicted         VerificationStatus = "contradicted"
	StatusInsufficientEvidence VerificationStatus = "insufficient_evidence"
	StatusUnknown              VerificationStatus = "unknown"
)

// OverallStatus is the final disposition of a signal
type OverallStatus string

const (
	OverallVerified  OverallStatus = "verified"
	OverallWatchlist OverallStatus = "watchlist"
	OverallDiscard   OverallStatus = "discard"
)

// ConfidenceBand is a coarse bucket derived from the numeric confidence
type ConfidenceBand string

const (
	BandHigh    ConfidenceBand = "high"    // >= 0.8
	BandMedium  ConfidenceBand = "medium"  // >= 0.5
	BandLow     ConfidenceBand = "low"     // >= 0.2
	BandUnknown ConfidenceBand = "unknown"
)

// BandFor maps a confidence value to its band.
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence >= 0.8:
		return BandHigh
	case confidence >= 0.5:
		return BandMedium
	case confidence >= 0.2:
		return BandLow
	default:
		return BandUnknown
	}
}

// ContradictionType classifies how a piece of evidence contradicts a claim
type ContradictionType string

const (
	ContradictionDifferentAmount ContradictionType = "different_amount"
	ContradictionDifferentDate   ContradictionType = "different_date"
	ContradictionEntityMismatch  ContradictionType = "entity_mismatch"
	ContradictionDenial          ContradictionType = "denial"
	ContradictionRetraction      ContradictionType = "retraction"
)

// SupportingEvidence is an evidence reference with the verifier's
// relevance judgment attached.
type SupportingEvidence struct {
	EvidenceID     string     `json:"evidence_id"`
	URL            string     `json:"url"`
	Snippet        string     `json:"snippet,omitempty"`
	RelevanceScore float64    `json:"relevance_score"`
	SourceType     SourceType `json:"source_type"`
}

// ContradictingEvidence is an evidence reference that disputes a claim.
type ContradictingEvidence struct {
	EvidenceID        string            `json:"evidence_id"`
	URL               string            `json:"url"`
	Snippet           string            `json:"snippet,omitempty"`
	RelevanceScore    float64           `json:"relevance_score"`
	SourceType        SourceType        `json:"source_type"`
	ContradictionType ContradictionType `json:"contradiction_type"`
}

// ClaimVerification is the immutable adjudication record for one claim.
type ClaimVerification struct {
	ClaimID               string                  `json:"claim_id"`
	Claim                 Claim                   `json:"claim"`
	Status                VerificationStatus      `json:"status"`
	Confidence            float64                 `json:"confidence"` // always in [0,1]
	SupportingEvidence    []SupportingEvidence    `json:"supporting_evidence"`
	ContradictingEvidence []ContradictingEvidence `json:"contradicting_evidence"`
	GatesPassed           []string                `json:"gates_passed"`
	GatesFailed           []string                `json:"gates_failed"`
	Reasoning             string                  `json:"reasoning,omitempty"`
}

// CompanyIdentity is the resolved canonical identity of the company a
// signal concerns.
type CompanyIdentity struct {
	CanonicalName    string   `json:"canonical_name"`
	Domain           string   `json:"domain,omitempty"`
	DomainConfidence float64  `json:"domain_confidence"`
	Aliases          []string `json:"aliases,omitempty"`
	IdentifiedFrom   string   `json:"identified_from"`
}

// Metadata carries observability counters for one verification run.
type Metadata struct {
	StageTimingsMS      map[string]int64 `json:"stage_timings_ms"`
	LLMCalls            int              `json:"llm_calls"`
	SearchCalls         int              `json:"search_calls"`
	FetchCalls          int              `json:"fetch_calls"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	CachedVerifications int              `json:"cached_verifications"`
	NonFatalErrors      []string         `json:"non_fatal_errors,omitempty"`
}

// VerificationResult is the aggregate root returned for every signal.
// It is always well-formed; the pipeline never surfaces an error instead.
type VerificationResult struct {
	Input              VerifySignalInput       `json:"input"`
	Company            CompanyIdentity         `json:"company"`
	Claims             []Claim                 `json:"claims"`
	ClaimVerifications []ClaimVerification     `json:"claim_verifications"`
	OverallStatus      OverallStatus           `json:"overall_status"`
	OverallConfidence  float64                 `json:"overall_confidence"`
	ConfidenceBand     ConfidenceBand          `json:"confidence_band"`
	StatusReason       string                  `json:"status_reason"`
	TopSupporting      []SupportingEvidence    `json:"top_supporting,omitempty"`
	TopContradicting   []ContradictingEvidence `json:"top_contradicting,omitempty"`
	AllEvidence        []Evidence              `json:"all_evidence"`
	Metadata           Metadata                `json:"metadata"`
	VerifiedAt         time.Time               `json:"verified_at"`
}
