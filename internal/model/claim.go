package model

// ClaimType categorizes the business event a claim asserts
type ClaimType string

const (
	ClaimFundingRaised         ClaimType = "funding_raised"
	ClaimAcquisitionAnnounced  ClaimType = "acquisition_announced"
	ClaimMergerAnnounced       ClaimType = "merger_announced"
	ClaimIPOAnnounced          ClaimType = "ipo_announced"
	ClaimHiringInitiative      ClaimType = "hiring_initiative"
	ClaimLayoffsAnnounced      ClaimType = "layoffs_announced"
	ClaimExecutiveChange       ClaimType = "executive_change"
	ClaimPartnershipAnnounced  ClaimType = "partnership_announced"
	ClaimProductLaunch         ClaimType = "product_launch"
	ClaimExpansionAnnounced    ClaimType = "expansion_announced"
	ClaimOfficeMove            ClaimType = "office_move"
	ClaimContractAwarded       ClaimType = "contract_awarded"
	ClaimCertificationObtained ClaimType = "certification_obtained"
	ClaimAwardReceived         ClaimType = "award_received"
	ClaimBankruptcyFiled       ClaimType = "bankruptcy_filed"
	ClaimRebrandAnnounced      ClaimType = "rebrand_announced"
	ClaimRevenueMilestone      ClaimType = "revenue_milestone"
	ClaimOther                 ClaimType = "other"
)

// AllClaimTypes returns every valid claim type in canonical order.
func AllClaimTypes() []ClaimType {
	return []ClaimType{
		ClaimFundingRaised, ClaimAcquisitionAnnounced, ClaimMergerAnnounced,
		ClaimIPOAnnounced, ClaimHiringInitiative, ClaimLayoffsAnnounced,
		ClaimExecutiveChange, ClaimPartnershipAnnounced, ClaimProductLaunch,
		ClaimExpansionAnnounced, ClaimOfficeMove, ClaimContractAwarded,
		ClaimCertificationObtained, ClaimAwardReceived, ClaimBankruptcyFiled,
		ClaimRebrandAnnounced, ClaimRevenueMilestone, ClaimOther,
	}
}

// ValidClaimType reports whether s names a known claim type.
func ValidClaimType(s string) bool {
	for _, t := range AllClaimTypes() {
		if string(t) == s {
			return true
		}
	}
	return false
}

// Entity keys used in Claim.Entities. The map is sparse: only keys the
// extractor could populate are present.
const (
	EntityCompany  = "company"
	EntityAmount   = "amount"
	EntityDate     = "date"
	EntityPerson   = "person"
	EntityPartner  = "partner"
	EntityLocation = "location"
)

// Claim is a specific, checkable assertion extracted from a signal's
// source text.
type Claim struct {
	ID        string            `json:"id"`
	Type      ClaimType         `json:"type"`
	Statement string            `json:"statement"`
	Entities  map[string]string `json:"entities,omitempty"`

	// VerificationRequirements lists the hard gate names this claim must
	// clear, looked up from the static per-type table in the weights config.
	VerificationRequirements []string `json:"verification_requirements"`

	// ExtractedFrom records provenance ("llm:<model>" or "synthetic:raw_signal").
	ExtractedFrom string `json:"extracted_from"`
}

// EntityCount returns the number of populated entity fields.
func (c Claim) EntityCount() int {
	n := 0
	for _, v := range c.Entities {
		if v != "" {
			n++
		}
	}
	return n
}
