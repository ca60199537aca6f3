package fetch

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Link is one outbound anchor extracted from a page.
type Link struct {
	URL      string
	Host     string
	Text     string
	SameHost bool
}

// ExtractTitleAndText parses HTML and returns the <title> content and the
// visible body text, skipping script/style/nav chrome.
func ExtractTitleAndText(htmlContent string) (title, text string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", ""
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "svg":
				return
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				buf.WriteString(t)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, strings.TrimSpace(buf.String())
}

// ExtractLinks parses HTML and returns deduplicated outbound links
// resolved against the source URL.
func ExtractLinks(htmlContent, sourceURL string) []Link {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil
	}
	base, err := url.Parse(sourceURL)
	if err != nil {
		return nil
	}

	var links []Link
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href, text string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = strings.TrimSpace(attr.Val)
				}
			}
			if n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
				text = strings.TrimSpace(n.FirstChild.Data)
			}

			if resolved := resolveURL(base, href); resolved != "" && !seen[resolved] {
				seen[resolved] = true
				parsed, _ := url.Parse(resolved)
				host := ""
				if parsed != nil {
					host = parsed.Host
				}
				links = append(links, Link{
					URL:      resolved,
					Host:     host,
					Text:     text,
					SameHost: host == base.Host,
				})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return links
}

// resolveURL resolves href against base, dropping anchors, javascript:,
// mailto:, and non-http schemes.
func resolveURL(base *url.URL, href string) string {
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
