package model

import "time"

// SourceType classifies where a piece of evidence came from
type SourceType string

const (
	SourceRSSArticle      SourceType = "rss_article"      // The seed article itself
	SourceCompanyPress    SourceType = "company_press"    // Company press page
	SourceCompanyNewsroom SourceType = "company_newsroom" // Company newsroom
	SourceCompanyCareers  SourceType = "company_careers"  // Company careers page
	SourceCompanyAbout    SourceType = "company_about"    // Company about page
	SourceThirdPartyNews  SourceType = "third_party_news" // Independent news outlet
	SourceSECFiling       SourceType = "sec_filing"       // Regulatory filing
	SourceJobsBoard       SourceType = "jobs_board"       // External job board listing
	SourceCrunchbase      SourceType = "crunchbase"       // Crunchbase profile
	SourcePitchbook       SourceType = "pitchbook"        // PitchBook profile
	SourceRegistry        SourceType = "registry"         // Company registry record
	SourceSocialOfficial  SourceType = "social_official"  // Verified company social account
	SourceOther           SourceType = "other"            // Unclassified
)

// IsOfficial reports whether the source type is controlled by the company
// itself or by a regulator, i.e. an authoritative first-party statement.
func (t SourceType) IsOfficial() bool {
	switch t {
	case SourceCompanyPress, SourceCompanyNewsroom, SourceCompanyCareers,
		SourceCompanyAbout, SourceSECFiling, SourceRegistry, SourceSocialOfficial:
		return true
	}
	return false
}

// IsReputable reports whether the source type counts toward the
// "2 reputable sources" side of hard gates.
func (t SourceType) IsReputable() bool {
	switch t {
	case SourceThirdPartyNews, SourceSECFiling, SourceCrunchbase,
		SourcePitchbook, SourceRegistry:
		return true
	}
	return t.IsOfficial()
}

// Evidence is a fetched document or snippet that may support or contradict
// a claim. Created once by the collector and never mutated afterward.
type Evidence struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	CanonicalURL     string     `json:"canonical_url"`
	Title            string     `json:"title,omitempty"`
	Snippet          string     `json:"snippet"` // capped at 1000 chars
	FullText         string     `json:"full_text,omitempty"`
	SourceType       SourceType `json:"source_type"`
	Publisher        string     `json:"publisher,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	FetchedAt        time.Time  `json:"fetched_at"`
	ContentHash      string     `json:"content_hash"` // dedup key, never empty
	ReliabilityScore float64    `json:"reliability_score,omitempty"`
	IsOfficial       bool       `json:"is_official"`
}
