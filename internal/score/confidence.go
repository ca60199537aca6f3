package score

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/model"
)

const (
	evidenceLogisticMid = 0.5
	evidenceLogisticK   = 6
	overallLogisticMid  = 0.5
	overallLogisticK    = 8

	officialContradictionWeight = 1.5
	contradictedConfidenceCap   = 0.3
)

// Calculator turns judged claims and weighted evidence into an overall
// confidence and final disposition. Stateless beyond its config.
type Calculator struct {
	weights    config.Weights
	thresholds config.ConfidenceThresholds
	now        func() time.Time
}

// Outcome is the calculator's verdict for one signal.
type Outcome struct {
	Confidence   float64
	Band         model.ConfidenceBand
	Status       model.OverallStatus
	Reason       string
	GateFailures int
}

// NewCalculator creates a confidence calculator from the weights document.
func NewCalculator(cfg *config.Config) *Calculator {
	return &Calculator{weights: cfg.Weights, thresholds: cfg.Thresholds, now: time.Now}
}

// EvidenceWeight scores one evidence item's reliability in [0,1].
// A publisher explicitly weighted 0 short-circuits the whole item.
func (c *Calculator) EvidenceWeight(ev model.Evidence, duplicates int) float64 {
	publisherWeight := 1.0
	if w, ok := c.publisherWeight(ev.Publisher); ok {
		if w == 0 {
			return 0
		}
		publisherWeight = w
	}

	sourceWeight, ok := c.weights.SourceTypes[string(ev.SourceType)]
	if !ok {
		sourceWeight = c.weights.DefaultSourceType
	}

	raw := sourceWeight * publisherWeight * c.recencyWeight(ev.PublishedAt) *
		(1 + c.specificityBonus(ev.Snippet)) * (1 - c.duplicationPenalty(duplicates))
	return logistic(raw, evidenceLogisticMid, evidenceLogisticK)
}

// publisherWeight resolves the configured weight for a publisher host.
// Hosts are matched on registrable-suffix after lowercasing and www.
// stripping, so subdomains inherit their parent's weight; the longest
// matching suffix wins.
func (c *Calculator) publisherWeight(publisher string) (float64, bool) {
	host := strings.TrimPrefix(strings.ToLower(publisher), "www.")

	var best string
	var weight float64
	var found bool
	for domain, w := range c.weights.Publishers {
		if host != domain && !strings.HasSuffix(host, "."+domain) {
			continue
		}
		if len(domain) > len(best) {
			best, weight, found = domain, w, true
		}
	}
	return weight, found
}

// WeighEvidence scores every item, keyed by evidence ID, counting
// content-hash duplicates across the whole set.
func (c *Calculator) WeighEvidence(evidence []model.Evidence) map[string]float64 {
	hashCounts := make(map[string]int, len(evidence))
	for _, ev := range evidence {
		hashCounts[ev.ContentHash]++
	}

	weights := make(map[string]float64, len(evidence))
	for _, ev := range evidence {
		weights[ev.ID] = c.EvidenceWeight(ev, hashCounts[ev.ContentHash]-1)
	}
	return weights
}

// Overall aggregates weighted support and contradiction across all claim
// verifications into the final confidence and status.
func (c *Calculator) Overall(verifications []model.ClaimVerification, evidence []model.Evidence) Outcome {
	if len(verifications) == 0 || len(evidence) == 0 {
		return Outcome{
			Status: model.OverallDiscard,
			Band:   model.BandUnknown,
			Reason: "Insufficient evidence or claims to verify",
		}
	}

	weights := c.WeighEvidence(evidence)

	var support, contradiction float64
	var gatesFailed, gatesTotal int
	var anyContradicted bool
	allInconclusive := true

	for _, cv := range verifications {
		for _, s := range cv.SupportingEvidence {
			support += s.RelevanceScore * weights[s.EvidenceID]
		}
		for _, con := range cv.ContradictingEvidence {
			w := weights[con.EvidenceID]
			if con.SourceType.IsOfficial() {
				w *= officialContradictionWeight
			}
			contradiction += w
		}
		gatesFailed += len(cv.GatesFailed)
		gatesTotal += len(cv.GatesFailed) + len(cv.GatesPassed)

		if cv.Status == model.StatusContradicted {
			anyContradicted = true
		}
		if cv.Status != model.StatusInsufficientEvidence && cv.Status != model.StatusUnknown {
			allInconclusive = false
		}
	}

	n := float64(len(verifications))
	support /= n
	contradiction /= n

	gatePenalty := 0.0
	if gatesTotal > 0 {
		gatePenalty = float64(gatesFailed) / float64(gatesTotal)
	}

	raw := support - contradiction*0.7 - gatePenalty*0.3
	confidence := logistic(raw, overallLogisticMid, overallLogisticK)

	if gatesFailed > 0 {
		confidence = math.Min(confidence, c.thresholds.Watchlist+0.1)
	}
	if anyContradicted {
		confidence = math.Min(confidence, contradictedConfidenceCap)
	}

	status, reason := c.decide(confidence, gatesFailed, anyContradicted, allInconclusive)
	return Outcome{
		Confidence:   confidence,
		Band:         model.BandFor(confidence),
		Status:       status,
		Reason:       reason,
		GateFailures: gatesFailed,
	}
}

func (c *Calculator) decide(confidence float64, gatesFailed int, anyContradicted, allInconclusive bool) (model.OverallStatus, string) {
	switch {
	case anyContradicted:
		return model.OverallDiscard, "At least one claim is contradicted by the evidence"
	case allInconclusive:
		return model.OverallDiscard, "No claim could be substantiated by the collected evidence"
	case confidence >= c.thresholds.Verified && gatesFailed == 0:
		return model.OverallVerified, fmt.Sprintf("Confidence %.2f with all hard gates passed", confidence)
	case confidence >= c.thresholds.Watchlist:
		return model.OverallWatchlist, fmt.Sprintf("Confidence %.2f; needs further corroboration", confidence)
	default:
		return model.OverallDiscard, fmt.Sprintf("Confidence %.2f below watchlist threshold", confidence)
	}
}

// recencyWeight is exponential half-life decay by publication age,
// floored at the configured minimum. Undated evidence gets a neutral
// weight rather than the floor.
func (c *Calculator) recencyWeight(publishedAt *time.Time) float64 {
	if publishedAt == nil {
		return 0.8
	}
	days := c.now().Sub(*publishedAt).Hours() / 24
	if days <= 0 {
		return 1
	}
	w := math.Pow(0.5, days/c.weights.Recency.HalfLifeDays)
	return math.Max(w, c.weights.Recency.MinWeight)
}

var (
	exactNumberRe = regexp.MustCompile(`[$€£]\s?\d[\d,.]*|\b\d[\d,]*(?:\.\d+)?\s?(?:million|billion|M|B|%)`)
	namedPersonRe = regexp.MustCompile(`\b[A-Z][a-z]+ [A-Z][a-z]+\b`)
	writtenDateRe = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2}(?:st|nd|rd|th)?,?\s+\d{4}\b`)
	quotedTextRe  = regexp.MustCompile(`["“][^"”]{10,}["”]`)
)

// specificityBonus sums fixed increments for concrete detail in the
// snippet.
func (c *Calculator) specificityBonus(snippet string) float64 {
	f := c.weights.Specificity
	bonus := 0.0
	if exactNumberRe.MatchString(snippet) {
		bonus += f.ExactNumber
	}
	if namedPersonRe.MatchString(snippet) {
		bonus += f.NamedPerson
	}
	if writtenDateRe.MatchString(snippet) {
		bonus += f.WrittenDate
	}
	if quotedTextRe.MatchString(snippet) {
		bonus += f.QuotedText
	}
	return bonus
}

func (c *Calculator) duplicationPenalty(duplicates int) float64 {
	if duplicates <= 0 {
		return 0
	}
	return math.Min(float64(duplicates)*c.weights.Duplication.PerDuplicate, c.weights.Duplication.Max)
}

func logistic(x, mid, steepness float64) float64 {
	return 1 / (1 + math.Exp(-steepness*(x-mid)))
}
