package search

import "fmt"

// QueryFor builds the one templated keyword query the collector runs for
// a signal type.
func QueryFor(signalType, company string) string {
	switch signalType {
	case "funding":
		return fmt.Sprintf("%q funding OR raised OR series", company)
	case "acquisition":
		return fmt.Sprintf("%q acquisition OR acquires OR merger", company)
	case "hiring":
		return fmt.Sprintf("%q hiring OR jobs OR careers OR recruiting", company)
	case "partnership":
		return fmt.Sprintf("%q partnership OR partners OR collaboration", company)
	case "product_launch":
		return fmt.Sprintf("%q launches OR announces OR unveils", company)
	case "expansion":
		return fmt.Sprintf("%q expansion OR expands OR opens", company)
	case "leadership":
		return fmt.Sprintf("%q appoints OR names OR CEO OR executive", company)
	default:
		return fmt.Sprintf("%q announcement OR news", company)
	}
}

// JobsQuery builds the extra job-board-scoped query used for hiring
// signals when the company domain is known.
func JobsQuery(company, domain string) string {
	return fmt.Sprintf("%q jobs site:linkedin.com/jobs OR site:greenhouse.io OR site:lever.co OR site:%s", company, domain)
}
