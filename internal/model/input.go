package model

// RawSignal is the unverified business event mention extracted upstream
// from a feed item.
type RawSignal struct {
	Type           string  `json:"type"` // funding, acquisition, hiring, ...
	Details        string  `json:"details"`
	RelevanceScore float64 `json:"relevance_score,omitempty"`
}

// RSSItem carries the feed item the signal was extracted from.
type RSSItem struct {
	Title          string `json:"title"`
	Link           string `json:"link"`
	Content        string `json:"content,omitempty"`
	ContentSnippet string `json:"content_snippet,omitempty"`
	PubDate        string `json:"pub_date,omitempty"`
	SourceName     string `json:"source_name,omitempty"`
}

// VerifySignalInput is the module's input contract.
type VerifySignalInput struct {
	Company   string    `json:"company"`
	Domain    string    `json:"domain,omitempty"`
	RawSignal RawSignal `json:"raw_signal"`
	RSSItem   RSSItem   `json:"rss_item"`
}
