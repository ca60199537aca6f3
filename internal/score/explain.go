package score

import (
	"fmt"
	"strings"

	"github.com/provenly/signalguard/internal/model"
)

// Explanation is a human-readable account of the verdict for logs and
// review tooling. It never feeds back into the verdict itself.
type Explanation struct {
	Summary         string   `json:"summary"`
	PositiveFactors []string `json:"positive_factors,omitempty"`
	NegativeFactors []string `json:"negative_factors,omitempty"`
}

// Explain names the factors that drove an outcome.
func Explain(outcome Outcome, verifications []model.ClaimVerification, evidence []model.Evidence) Explanation {
	var positive, negative []string

	officialCount := 0
	publishers := make(map[string]bool)
	for _, ev := range evidence {
		if ev.IsOfficial {
			officialCount++
		}
		if ev.Publisher != "" {
			publishers[ev.Publisher] = true
		}
	}
	if officialCount > 0 {
		positive = append(positive, fmt.Sprintf("%d official source(s) in evidence", officialCount))
	}
	if len(publishers) >= 2 {
		positive = append(positive, fmt.Sprintf("evidence spans %d distinct publishers", len(publishers)))
	}

	supporting, contradicting := 0, 0
	for _, cv := range verifications {
		supporting += len(cv.SupportingEvidence)
		contradicting += len(cv.ContradictingEvidence)
		for _, gate := range cv.GatesFailed {
			negative = append(negative, fmt.Sprintf("claim %s failed gate %s", cv.Claim.Type, gate))
		}
		if cv.Status == model.StatusContradicted {
			negative = append(negative, fmt.Sprintf("claim %s is contradicted", cv.Claim.Type))
		}
	}
	if supporting > 0 {
		positive = append(positive, fmt.Sprintf("%d supporting evidence reference(s)", supporting))
	}
	if contradicting > 0 {
		negative = append(negative, fmt.Sprintf("%d contradicting evidence reference(s)", contradicting))
	}
	if len(evidence) == 0 {
		negative = append(negative, "no evidence collected")
	}

	summary := fmt.Sprintf("%s at confidence %.2f (%s band): %s",
		strings.ReplaceAll(string(outcome.Status), "_", " "), outcome.Confidence, outcome.Band, outcome.Reason)

	return Explanation{
		Summary:         summary,
		PositiveFactors: positive,
		NegativeFactors: negative,
	}
}
