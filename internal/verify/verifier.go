package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/llm"
	"github.com/provenly/signalguard/internal/model"
)

const (
	verifyMaxRetries = 2
	maxJudgeSnippet  = 600
)

// Verifier adjudicates claims against collected evidence. One
// structured-completion call per claim judges relevance and stance;
// hard gates are evaluated deterministically from source types.
type Verifier struct {
	provider           llm.Provider
	lenientGates       bool
	watchlistThreshold float64
}

// NewVerifier builds a verifier and validates the gate table up front.
// Unknown gate names are fatal unless gates.lenient_unknown is set.
func NewVerifier(provider llm.Provider, cfg *config.Config) (*Verifier, error) {
	if !cfg.Gates.LenientUnknown {
		if err := ValidateGateTable(cfg.Gates); err != nil {
			return nil, err
		}
	}
	return &Verifier{
		provider:           provider,
		lenientGates:       cfg.Gates.LenientUnknown,
		watchlistThreshold: cfg.Thresholds.Watchlist,
	}, nil
}

// judgmentSchema is the per-claim evidence adjudication schema.
var judgmentSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "judgments": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "evidence_id": {"type": "string"},
          "relevant": {"type": "boolean"},
          "supports": {"type": "boolean"},
          "contradicts": {"type": "boolean"},
          "relevance_score": {"type": "number", "minimum": 0, "maximum": 1},
          "snippet": {"type": "string"},
          "contradiction_type": {"type": "string"}
        },
        "required": ["evidence_id", "relevant", "supports", "contradicts", "relevance_score"]
      }
    },
    "reasoning": {"type": "string"}
  },
  "required": ["judgments"]
}`)

type evidenceJudgment struct {
	EvidenceID        string  `json:"evidence_id"`
	Relevant          bool    `json:"relevant"`
	Supports          bool    `json:"supports"`
	Contradicts       bool    `json:"contradicts"`
	RelevanceScore    float64 `json:"relevance_score"`
	Snippet           string  `json:"snippet"`
	ContradictionType string  `json:"contradiction_type"`
}

type judgmentResponse struct {
	Judgments []evidenceJudgment `json:"judgments"`
	Reasoning string             `json:"reasoning"`
}

// VerifyClaims adjudicates each claim strictly in order. Sequential on
// purpose: one in-flight completion call bounds the provider rate.
func (v *Verifier) VerifyClaims(ctx context.Context, claims []model.Claim, evidence []model.Evidence) ([]model.ClaimVerification, int) {
	byID := make(map[string]model.Evidence, len(evidence))
	for _, ev := range evidence {
		byID[ev.ID] = ev
	}

	verifications := make([]model.ClaimVerification, 0, len(claims))
	llmCalls := 0
	for _, claim := range claims {
		cv, calls := v.verifyClaim(ctx, claim, evidence, byID)
		llmCalls += calls
		verifications = append(verifications, cv)
	}
	return verifications, llmCalls
}

func (v *Verifier) verifyClaim(ctx context.Context, claim model.Claim, evidence []model.Evidence, byID map[string]model.Evidence) (model.ClaimVerification, int) {
	if v.provider == nil || len(evidence) == 0 {
		return v.failedVerification(claim, "LLM analysis failed"), 0
	}

	req := llm.Request{
		System:     judgmentSystemPrompt,
		Messages:   []llm.Message{{Role: "user", Content: buildJudgmentPrompt(claim, evidence)}},
		Schema:     judgmentSchema,
		SchemaName: "claim_judgment",
	}

	var resp judgmentResponse
	if err := llm.CompleteInto(ctx, v.provider, req, verifyMaxRetries, &resp); err != nil {
		return v.failedVerification(claim, "LLM analysis failed"), 1
	}

	supporting, contradicting := splitJudgments(resp.Judgments, byID)
	gatesPassed, gatesFailed := v.evaluateGates(claim, supporting, contradicting, byID)

	status := decideStatus(supporting, contradicting, gatesFailed)
	confidence := claimConfidence(supporting, contradicting, len(gatesPassed), len(gatesFailed), v.watchlistThreshold)

	return model.ClaimVerification{
		ClaimID:               claim.ID,
		Claim:                 claim,
		Status:                status,
		Confidence:            confidence,
		SupportingEvidence:    supporting,
		ContradictingEvidence: contradicting,
		GatesPassed:           gatesPassed,
		GatesFailed:           gatesFailed,
		Reasoning:             resp.Reasoning,
	}, 1
}

// failedVerification is the deterministic outcome when adjudication is
// impossible: unknown, zero confidence, every gate failed.
func (v *Verifier) failedVerification(claim model.Claim, reason string) model.ClaimVerification {
	return model.ClaimVerification{
		ClaimID:     claim.ID,
		Claim:       claim,
		Status:      model.StatusUnknown,
		Confidence:  0,
		GatesFailed: append([]string(nil), claim.VerificationRequirements...),
		Reasoning:   reason,
	}
}

func splitJudgments(judgments []evidenceJudgment, byID map[string]model.Evidence) ([]model.SupportingEvidence, []model.ContradictingEvidence) {
	var supporting []model.SupportingEvidence
	var contradicting []model.ContradictingEvidence

	for _, j := range judgments {
		ev, ok := byID[j.EvidenceID]
		if !ok || !j.Relevant {
			continue
		}

		snippet := j.Snippet
		if snippet == "" {
			snippet = ev.Snippet
		}
		score := clamp01(j.RelevanceScore)

		switch {
		case j.Contradicts:
			contradicting = append(contradicting, model.ContradictingEvidence{
				EvidenceID:        ev.ID,
				URL:               ev.URL,
				Snippet:           snippet,
				RelevanceScore:    score,
				SourceType:        ev.SourceType,
				ContradictionType: contradictionTypeOf(j.ContradictionType),
			})
		case j.Supports:
			supporting = append(supporting, model.SupportingEvidence{
				EvidenceID:     ev.ID,
				URL:            ev.URL,
				Snippet:        snippet,
				RelevanceScore: score,
				SourceType:     ev.SourceType,
			})
		}
	}
	return supporting, contradicting
}

func (v *Verifier) evaluateGates(claim model.Claim, supporting []model.SupportingEvidence, contradicting []model.ContradictingEvidence, byID map[string]model.Evidence) (passed, failed []string) {
	in := GateInput{
		Claim:         claim,
		Supporting:    supporting,
		Contradicting: contradicting,
		Evidence:      byID,
	}

	for _, name := range claim.VerificationRequirements {
		gate, ok := gateRegistry[name]
		if !ok {
			if v.lenientGates {
				passed = append(passed, name)
			} else {
				failed = append(failed, name)
			}
			continue
		}
		if gate(in) {
			passed = append(passed, name)
		} else {
			failed = append(failed, name)
		}
	}
	return passed, failed
}

// decideStatus applies the fixed priority ladder over judged evidence
// and gate outcomes.
func decideStatus(supporting []model.SupportingEvidence, contradicting []model.ContradictingEvidence, gatesFailed []string) model.VerificationStatus {
	nSup, nCon := len(supporting), len(contradicting)

	switch {
	case nCon > 0 && nSup == 0:
		return model.StatusContradicted
	case len(gatesFailed) > 0 && nSup > 0:
		return model.StatusPartiallyVerified
	case len(gatesFailed) > 0:
		return model.StatusInsufficientEvidence
	case nSup >= 2 && nCon == 0:
		return model.StatusVerified
	case nSup == 1 && nCon == 0:
		return model.StatusPartiallyVerified
	case nSup > 0 && nCon > 0:
		if supportScore(supporting) > 2*contradictionScore(contradicting) {
			return model.StatusPartiallyVerified
		}
		return model.StatusContradicted
	default:
		return model.StatusUnknown
	}
}

// claimConfidence combines judged stance strength with gate coverage.
func claimConfidence(supporting []model.SupportingEvidence, contradicting []model.ContradictingEvidence, gatesPassed, gatesFailed int, watchlistThreshold float64) float64 {
	confidence := supportScore(supporting) - contradictionScore(contradicting)*0.5

	totalGates := gatesPassed + gatesFailed
	if totalGates > 0 {
		confidence *= 0.7 + 0.3*float64(gatesPassed)/float64(totalGates)
	}

	switch {
	case len(supporting) >= 3:
		confidence *= 1.1
	case len(supporting) == 1:
		confidence *= 0.85
	}

	if gatesFailed > 0 && confidence > watchlistThreshold {
		confidence = watchlistThreshold
	}
	return clamp01(confidence)
}

// supportScore is the mean relevance of the supporting evidence.
func supportScore(supporting []model.SupportingEvidence) float64 {
	if len(supporting) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range supporting {
		sum += s.RelevanceScore
	}
	return sum / float64(len(supporting))
}

func contradictionScore(contradicting []model.ContradictingEvidence) float64 {
	if len(contradicting) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range contradicting {
		sum += c.RelevanceScore
	}
	return sum / float64(len(contradicting))
}

func contradictionTypeOf(raw string) model.ContradictionType {
	switch t := model.ContradictionType(strings.ToLower(strings.TrimSpace(raw))); t {
	case model.ContradictionDifferentAmount, model.ContradictionDifferentDate,
		model.ContradictionEntityMismatch, model.ContradictionDenial,
		model.ContradictionRetraction:
		return t
	default:
		return model.ContradictionEntityMismatch
	}
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

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

const judgmentSystemPrompt = `You judge whether evidence documents support or contradict a business claim.
For every evidence item, report whether it is relevant to the claim, whether it supports
or contradicts it, a relevance score in [0,1], the key snippet, and, when contradicting,
the contradiction type (different_amount, different_date, entity_mismatch, denial, retraction).
Judge only what the text states; never infer support from absence of contradiction.`

func buildJudgmentPrompt(claim model.Claim, evidence []model.Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Claim (%s): %s\n", claim.Type, claim.Statement)
	if len(claim.Entities) > 0 {
		b.WriteString("Entities:\n")
		for k, v := range claim.Entities {
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}

	b.WriteString("\nEvidence:\n")
	for _, ev := range evidence {
		snippet := truncate(ev.Snippet, maxJudgeSnippet)
		fmt.Fprintf(&b, "---\nid: %s\nurl: %s\nsource_type: %s\ntitle: %s\ntext: %s\n",
			ev.ID, ev.URL, ev.SourceType, ev.Title, snippet)
	}
	return b.String()
}
