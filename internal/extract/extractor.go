package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/llm"
	"github.com/provenly/signalguard/internal/model"
)

const extractMaxRetries = 2

// Extractor turns a raw signal plus article text into typed claims via
// one structured-completion call, with a deterministic fallback.
type Extractor struct {
	provider llm.Provider // nil forces the synthetic fallback
	gates    config.GatesConfig
}

// Input carries everything the extraction prompt needs.
type Input struct {
	Company        string
	Domain         string
	SignalType     string
	SignalDetails  string
	ArticleTitle   string
	ArticleSnippet string
	SourceName     string
}

// Output is the extracted claim set and the resolved company identity.
type Output struct {
	Claims   []model.Claim
	Company  model.CompanyIdentity
	LLMCalls int
}

// NewExtractor creates a claim extractor.
func NewExtractor(provider llm.Provider, gates config.GatesConfig) *Extractor {
	return &Extractor{provider: provider, gates: gates}
}

// extractionSchema is the JSON schema handed to the completion provider.
var extractionSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "claims": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "type": {"type": "string"},
          "statement": {"type": "string"},
          "entities": {"type": "object", "additionalProperties": {"type": "string"}},
          "explicitness": {"type": "number", "minimum": 0, "maximum": 1}
        },
        "required": ["type", "statement"]
      }
    },
    "company": {
      "type": "object",
      "properties": {
        "canonical_name": {"type": "string"},
        "domain": {"type": "string"},
        "domain_confidence": {"type": "number"},
        "aliases": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["canonical_name"]
    }
  },
  "required": ["claims", "company"]
}`)

type extractedClaim struct {
	Type         string            `json:"type"`
	Statement    string            `json:"statement"`
	Entities     map[string]string `json:"entities"`
	Explicitness float64           `json:"explicitness"`
}

type companyResolution struct {
	CanonicalName    string   `json:"canonical_name"`
	Domain           string   `json:"domain"`
	DomainConfidence float64  `json:"domain_confidence"`
	Aliases          []string `json:"aliases"`
}

type extractionResponse struct {
	Claims  []extractedClaim  `json:"claims"`
	Company companyResolution `json:"company"`
}

// Extract issues one structured call (with bounded retries) and degrades
// to a single synthetic claim when the provider is unavailable or keeps
// failing, so the pipeline can still proceed.
func (e *Extractor) Extract(ctx context.Context, in Input) *Output {
	if e.provider == nil {
		return e.fallback(in, 0)
	}

	req := llm.Request{
		System:     extractionSystemPrompt,
		Messages:   []llm.Message{{Role: "user", Content: buildExtractionPrompt(in)}},
		Schema:     extractionSchema,
		SchemaName: "claim_extraction",
	}

	var resp extractionResponse
	if err := llm.CompleteInto(ctx, e.provider, req, extractMaxRetries, &resp); err != nil {
		return e.fallback(in, extractMaxRetries+1)
	}

	out := &Output{
		Company:  e.companyIdentity(resp.Company, in),
		LLMCalls: 1, // retries are provider-internal attempts of the same call
	}

	for _, ec := range resp.Claims {
		statement := strings.TrimSpace(ec.Statement)
		if statement == "" {
			continue
		}

		claimType := model.ClaimType(ec.Type)
		if !model.ValidClaimType(ec.Type) {
			claimType = model.ClaimOther
		}

		out.Claims = append(out.Claims, model.Claim{
			ID:                       ulid.Make().String(),
			Type:                     claimType,
			Statement:                statement,
			Entities:                 cleanEntities(ec.Entities),
			VerificationRequirements: e.gates.RequirementsFor(claimType),
			ExtractedFrom:            "llm:" + e.provider.Name(),
		})
	}

	out.Claims = MergeSimilarClaims(out.Claims)
	return out
}

// fallback builds one synthetic claim directly from the raw signal.
func (e *Extractor) fallback(in Input, attempts int) *Output {
	claimType := ClaimTypeForSignal(in.SignalType)

	statement := strings.TrimSpace(in.SignalDetails)
	if statement == "" {
		statement = fmt.Sprintf("%s: %s", in.Company, in.ArticleTitle)
	}

	return &Output{
		Claims: []model.Claim{{
			ID:                       ulid.Make().String(),
			Type:                     claimType,
			Statement:                statement,
			Entities:                 map[string]string{model.EntityCompany: in.Company},
			VerificationRequirements: e.gates.RequirementsFor(claimType),
			ExtractedFrom:            "synthetic:raw_signal",
		}},
		Company: model.CompanyIdentity{
			CanonicalName:  in.Company,
			Domain:         in.Domain,
			IdentifiedFrom: "input",
		},
		LLMCalls: attempts,
	}
}

// companyIdentity applies the high-confidence-only rule for resolved
// domains: a low-confidence domain guess is discarded in favor of the
// input domain.
func (e *Extractor) companyIdentity(r companyResolution, in Input) model.CompanyIdentity {
	identity := model.CompanyIdentity{
		CanonicalName:    strings.TrimSpace(r.CanonicalName),
		Aliases:          r.Aliases,
		DomainConfidence: r.DomainConfidence,
		IdentifiedFrom:   "llm",
	}
	if identity.CanonicalName == "" {
		identity.CanonicalName = in.Company
		identity.IdentifiedFrom = "input"
	}

	if r.Domain != "" && r.DomainConfidence >= 0.8 {
		identity.Domain = strings.ToLower(strings.TrimSpace(r.Domain))
	} else {
		identity.Domain = in.Domain
		identity.DomainConfidence = 0
	}
	return identity
}

// signalClaimTypes is the fixed signalType → claimType map used by the
// synthetic fallback.
var signalClaimTypes = map[string]model.ClaimType{
	"funding":        model.ClaimFundingRaised,
	"acquisition":    model.ClaimAcquisitionAnnounced,
	"merger":         model.ClaimMergerAnnounced,
	"ipo":            model.ClaimIPOAnnounced,
	"hiring":         model.ClaimHiringInitiative,
	"layoffs":        model.ClaimLayoffsAnnounced,
	"leadership":     model.ClaimExecutiveChange,
	"partnership":    model.ClaimPartnershipAnnounced,
	"product_launch": model.ClaimProductLaunch,
	"expansion":      model.ClaimExpansionAnnounced,
	"contract":       model.ClaimContractAwarded,
	"award":          model.ClaimAwardReceived,
}

// ClaimTypeForSignal maps a raw signal type to its claim type.
func ClaimTypeForSignal(signalType string) model.ClaimType {
	if t, ok := signalClaimTypes[strings.ToLower(strings.TrimSpace(signalType))]; ok {
		return t
	}
	return model.ClaimOther
}

func cleanEntities(entities map[string]string) map[string]string {
	if len(entities) == 0 {
		return nil
	}
	cleaned := make(map[string]string, len(entities))
	for k, v := range entities {
		if v = strings.TrimSpace(v); v != "" {
			cleaned[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

const extractionSystemPrompt = `You extract verifiable business-event claims from news signals.
For each distinct checkable assertion, emit a claim with its type, a precise statement,
the entities it names (company, amount, date, person, partner, location), and an
explicitness score. Resolve the company's canonical name; report a domain only when
you are highly confident it belongs to that exact company.`

func buildExtractionPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", in.Company)
	if in.Domain != "" {
		fmt.Fprintf(&b, "Known domain: %s\n", in.Domain)
	}
	fmt.Fprintf(&b, "Signal type: %s\nSignal details: %s\n", in.SignalType, in.SignalDetails)
	fmt.Fprintf(&b, "Article title: %s\nArticle source: %s\n", in.ArticleTitle, in.SourceName)
	if in.ArticleSnippet != "" {
		fmt.Fprintf(&b, "Article text:\n%s\n", in.ArticleSnippet)
	}
	fmt.Fprintf(&b, "\nValid claim types: %s\n", claimTypeList())
	return b.String()
}

func claimTypeList() string {
	types := model.AllClaimTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
