package extract

import (
	"github.com/provenly/signalguard/internal/model"
)

// MergeSimilarClaims collapses claims of the same type into one claim
// per type, keeping the statement of the most entity-rich member and
// folding in entity values the base is missing. Order of first
// appearance per type is preserved.
func MergeSimilarClaims(claims []model.Claim) []model.Claim {
	if len(claims) <= 1 {
		return claims
	}

	byType := make(map[model.ClaimType]int)
	var merged []model.Claim

	for _, claim := range claims {
		idx, seen := byType[claim.Type]
		if !seen {
			byType[claim.Type] = len(merged)
			merged = append(merged, claim)
			continue
		}

		base := &merged[idx]
		if claim.EntityCount() > base.EntityCount() {
			// The richer claim becomes the base statement; keep the
			// original ID so cached verdicts stay addressable.
			richer := claim
			richer.ID = base.ID
			richer.Entities = mergeEntities(richer.Entities, base.Entities)
			*base = richer
			continue
		}
		base.Entities = mergeEntities(base.Entities, claim.Entities)
	}

	return merged
}

// mergeEntities fills gaps in primary from secondary without
// overwriting existing values.
func mergeEntities(primary, secondary map[string]string) map[string]string {
	if len(secondary) == 0 {
		return primary
	}
	if primary == nil {
		primary = make(map[string]string, len(secondary))
	}
	for k, v := range secondary {
		if _, ok := primary[k]; !ok && v != "" {
			primary[k] = v
		}
	}
	return primary
}
