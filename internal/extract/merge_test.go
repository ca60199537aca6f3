package extract

import (
	"testing"

	"github.com/provenly/signalguard/internal/model"
)

func TestMergeSimilarClaims_DistinctTypesUntouched(t *testing.T) {
	claims := []model.Claim{
		{ID: "a", Type: model.ClaimFundingRaised, Statement: "raised $50M"},
		{ID: "b", Type: model.ClaimHiringInitiative, Statement: "hiring 200"},
	}

	merged := MergeSimilarClaims(claims)
	if len(merged) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(merged))
	}
	if merged[0].ID != "a" || merged[1].ID != "b" {
		t.Errorf("order not preserved: %+v", merged)
	}
}

func TestMergeSimilarClaims_RicherClaimWins(t *testing.T) {
	claims := []model.Claim{
		{ID: "a", Type: model.ClaimFundingRaised, Statement: "Acme raised money",
			Entities: map[string]string{"company": "Acme"}},
		{ID: "b", Type: model.ClaimFundingRaised, Statement: "Acme raised $50M on June 1, 2026",
			Entities: map[string]string{"company": "Acme", "amount": "$50M", "date": "2026-06-01"}},
	}

	merged := MergeSimilarClaims(claims)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged claim, got %d", len(merged))
	}

	got := merged[0]
	if got.Statement != "Acme raised $50M on June 1, 2026" {
		t.Errorf("expected richer statement, got %q", got.Statement)
	}
	if got.ID != "a" {
		t.Errorf("merged claim keeps first ID, got %q", got.ID)
	}
	if got.Entities["amount"] != "$50M" {
		t.Errorf("entities = %v", got.Entities)
	}
}

func TestMergeSimilarClaims_FoldsMissingEntities(t *testing.T) {
	claims := []model.Claim{
		{ID: "a", Type: model.ClaimFundingRaised, Statement: "Acme raised $50M",
			Entities: map[string]string{"company": "Acme", "amount": "$50M"}},
		{ID: "b", Type: model.ClaimFundingRaised, Statement: "round closed in June",
			Entities: map[string]string{"date": "June 2026", "amount": "$55M"}},
	}

	merged := MergeSimilarClaims(claims)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged claim, got %d", len(merged))
	}

	got := merged[0]
	if got.Entities["date"] != "June 2026" {
		t.Errorf("missing entity not folded: %v", got.Entities)
	}
	if got.Entities["amount"] != "$50M" {
		t.Errorf("existing entity must not be overwritten: %v", got.Entities)
	}
}

func TestMergeSimilarClaims_SmallInputs(t *testing.T) {
	if got := MergeSimilarClaims(nil); got != nil {
		t.Errorf("nil input: %v", got)
	}
	one := []model.Claim{{ID: "a", Type: model.ClaimOther}}
	if got := MergeSimilarClaims(one); len(got) != 1 {
		t.Errorf("single input: %v", got)
	}
}
