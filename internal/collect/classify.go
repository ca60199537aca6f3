package collect

import (
	"net/url"
	"strings"

	"github.com/provenly/signalguard/internal/model"
)

var jobBoardDomains = []string{
	"linkedin.com/jobs", "greenhouse.io", "lever.co", "indeed.com",
	"glassdoor.com", "myworkdayjobs.com", "wellfound.com", "otta.com",
}

var socialDomains = []string{
	"twitter.com", "x.com", "facebook.com", "instagram.com",
	"tiktok.com", "youtube.com", "reddit.com", "medium.com",
}

var registryDomains = []string{
	"opencorporates.com", "companieshouse.gov.uk", "find-and-update.company-information.service.gov.uk",
	"northdata.com",
}

var newsPublisherDomains = []string{
	"reuters.com", "bloomberg.com", "ft.com", "wsj.com", "cnbc.com",
	"techcrunch.com", "businessinsider.com", "theverge.com", "axios.com",
	"forbes.com", "fortune.com", "theinformation.com", "venturebeat.com",
	"prnewswire.com", "businesswire.com", "globenewswire.com",
}

// ClassifySource assigns a source type to a URL using domain and path
// heuristics. companyDomain may be empty when the company's site is
// unknown.
func ClassifySource(rawURL, companyDomain string) model.SourceType {
	parsed, err := url.Parse(strings.ToLower(rawURL))
	if err != nil || parsed.Host == "" {
		return model.SourceOther
	}

	host := strings.TrimPrefix(parsed.Host, "www.")
	path := parsed.Path
	hostAndPath := host + path

	if companyDomain != "" && hostMatches(host, strings.ToLower(companyDomain)) {
		switch {
		case strings.Contains(path, "/press") || strings.Contains(path, "/media") || strings.Contains(path, "/pr/"):
			return model.SourceCompanyPress
		case strings.Contains(path, "/newsroom") || strings.Contains(path, "/news"):
			return model.SourceCompanyNewsroom
		case strings.Contains(path, "/careers") || strings.Contains(path, "/jobs"):
			return model.SourceCompanyCareers
		case strings.Contains(path, "/about"):
			return model.SourceCompanyAbout
		default:
			// Unmatched page on the company's own domain
			return model.SourceCompanyAbout
		}
	}

	switch {
	case hostMatches(host, "sec.gov"):
		return model.SourceSECFiling
	case hostMatches(host, "crunchbase.com"):
		return model.SourceCrunchbase
	case hostMatches(host, "pitchbook.com"):
		return model.SourcePitchbook
	}

	for _, d := range registryDomains {
		if hostMatches(host, d) {
			return model.SourceRegistry
		}
	}
	for _, d := range jobBoardDomains {
		if strings.Contains(hostAndPath, d) {
			return model.SourceJobsBoard
		}
	}
	if hostMatches(host, "linkedin.com") {
		// Non-jobs LinkedIn pages are treated as official social presence
		return model.SourceSocialOfficial
	}
	for _, d := range newsPublisherDomains {
		if hostMatches(host, d) {
			return model.SourceThirdPartyNews
		}
	}

	return model.SourceOther
}

// IsSocialDomain reports whether a host belongs to the social-network
// set filtered out of outbound-link expansion.
func IsSocialDomain(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, d := range socialDomains {
		if hostMatches(host, d) {
			return true
		}
	}
	return hostMatches(host, "linkedin.com")
}

// hostMatches reports whether host equals domain or is a subdomain of it.
func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// PublisherFor extracts the publisher label (registrable host) of a URL.
func PublisherFor(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
}
