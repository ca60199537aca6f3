package cache

import (
	"testing"

	"github.com/provenly/signalguard/internal/model"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tracking params",
			in:   "https://example.com/a?utm_source=x&utm_medium=y&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "strips fbclid and fragment",
			in:   "https://Example.com/a?fbclid=abc#section",
			want: "https://example.com/a",
		},
		{
			name: "lowercases host and drops trailing slash",
			in:   "HTTPS://News.Example.COM/story/",
			want: "https://news.example.com/story",
		},
		{
			name: "keeps real query params",
			in:   "https://example.com/search?q=acme",
			want: "https://example.com/search?q=acme",
		},
		{
			name: "unparseable falls back to lowercase trim",
			in:   "  NOT A URL  ",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestURLKey_SameForTrackedVariants(t *testing.T) {
	a := URLKey("https://example.com/story?utm_source=rss")
	b := URLKey("https://example.com/story")
	if a != b {
		t.Errorf("expected identical keys, got %q and %q", a, b)
	}
}

func TestHashClaim_WordingInvariant(t *testing.T) {
	a := model.Claim{
		Type:      model.ClaimFundingRaised,
		Statement: "Acme raised $50M in Series B funding",
		Entities:  map[string]string{"company": "Acme", "amount": "$50M"},
	}
	b := model.Claim{
		Type:      model.ClaimFundingRaised,
		Statement: "  ACME raised $50M   in series b FUNDING ",
		Entities:  map[string]string{"amount": " $50M ", "company": " acme"},
	}
	if HashClaim(a) != HashClaim(b) {
		t.Error("expected normalized claims to share a hash")
	}

	c := a
	c.Type = model.ClaimAcquisitionAnnounced
	if HashClaim(a) == HashClaim(c) {
		t.Error("expected different types to produce different hashes")
	}
}

func TestHashClaim_EmptyEntitiesIgnored(t *testing.T) {
	a := model.Claim{Type: model.ClaimHiringInitiative, Statement: "Acme is hiring"}
	b := model.Claim{
		Type:      model.ClaimHiringInitiative,
		Statement: "Acme is hiring",
		Entities:  map[string]string{"amount": ""},
	}
	if HashClaim(a) != HashClaim(b) {
		t.Error("expected empty entity values to be ignored")
	}
}

func TestClaimKey_NormalizesCompany(t *testing.T) {
	claim := model.Claim{Type: model.ClaimOther, Statement: "x"}
	if ClaimKey("Acme  Robotics", claim) != ClaimKey("acme robotics", claim) {
		t.Error("expected company normalization in claim key")
	}
}

func TestHashContent_PrefixCollision(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	a := string(long) + " tail one"
	b := string(long) + " completely different tail"
	if HashContent(a) != HashContent(b) {
		t.Error("expected texts sharing a 500-char prefix to collide")
	}

	if HashContent("short one") == HashContent("short two") {
		t.Error("expected distinct short texts to differ")
	}
}
