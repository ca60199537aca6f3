package verify

import (
	"fmt"
	"sort"

	"github.com/provenly/signalguard/internal/config"
	"github.com/provenly/signalguard/internal/model"
)

// GateInput is the judged evidence a gate rules on. Evidence is keyed
// by evidence ID for source lookups beyond what the references carry.
type GateInput struct {
	Claim         model.Claim
	Supporting    []model.SupportingEvidence
	Contradicting []model.ContradictingEvidence
	Evidence      map[string]model.Evidence
}

// GateFunc evaluates one hard gate purely from evidence source types.
type GateFunc func(GateInput) bool

// gateRegistry maps gate names to their deterministic evaluators.
var gateRegistry = map[string]GateFunc{
	config.GateOfficialOr2Reputable:  gateOfficialOr2Reputable,
	config.GateAmountConsistent:      gateAmountConsistent,
	config.GateCareersPageOrListings: gateCareersPageOrListings,
	config.GateRegulatoryNotice:      gateRegulatoryNotice,
	config.GateMultipleIndependent:   gateMultipleIndependent,
	config.GateOfficialPresent:       gateOfficialPresent,
	config.GateNamedExecutive:        gateNamedExecutive,
}

// KnownGates returns the sorted names of all registered gates.
func KnownGates() []string {
	names := make([]string, 0, len(gateRegistry))
	for name := range gateRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateGateTable rejects gate tables referencing unregistered gate
// names, so a typo in the weights document fails at startup instead of
// silently failing every claim at runtime.
func ValidateGateTable(gates config.GatesConfig) error {
	for claimType, names := range gates.HardGates {
		for _, name := range names {
			if _, ok := gateRegistry[name]; !ok {
				return fmt.Errorf("hard_gates[%s] references unknown gate %q", claimType, name)
			}
		}
	}
	return nil
}

func gateOfficialOr2Reputable(in GateInput) bool {
	reputable := 0
	for _, s := range in.Supporting {
		if s.SourceType.IsOfficial() {
			return true
		}
		if s.SourceType.IsReputable() {
			reputable++
		}
	}
	return reputable >= 2
}

// gateAmountConsistent fails only on an explicit different-amount
// contradiction.
func gateAmountConsistent(in GateInput) bool {
	for _, c := range in.Contradicting {
		if c.ContradictionType == model.ContradictionDifferentAmount {
			return false
		}
	}
	return true
}

func gateCareersPageOrListings(in GateInput) bool {
	for _, s := range in.Supporting {
		if s.SourceType == model.SourceCompanyCareers || s.SourceType == model.SourceJobsBoard {
			return true
		}
	}
	return false
}

func gateRegulatoryNotice(in GateInput) bool {
	for _, s := range in.Supporting {
		if s.SourceType == model.SourceSECFiling || s.SourceType == model.SourceRegistry {
			return true
		}
	}
	return false
}

func gateMultipleIndependent(in GateInput) bool {
	publishers := make(map[string]bool)
	for _, s := range in.Supporting {
		publisher := ""
		if ev, ok := in.Evidence[s.EvidenceID]; ok {
			publisher = ev.Publisher
		}
		if publisher == "" {
			publisher = s.URL
		}
		if publisher != "" {
			publishers[publisher] = true
		}
	}
	return len(publishers) >= 2
}

func gateOfficialPresent(in GateInput) bool {
	for _, s := range in.Supporting {
		if s.SourceType.IsOfficial() {
			return true
		}
	}
	return false
}

// gateNamedExecutive requires the claim to name a person and have at
// least one supporting source.
func gateNamedExecutive(in GateInput) bool {
	if in.Claim.Entities[model.EntityPerson] == "" {
		return false
	}
	return len(in.Supporting) > 0
}
