package fetch

import "testing"

func TestExtractTitleAndText(t *testing.T) {
	page := `<html><head><title>Press Release</title><style>p{}</style></head>
<body><noscript>enable js</noscript><p>Acme announced</p><script>track()</script><p>a new round.</p></body></html>`

	title, text := ExtractTitleAndText(page)
	if title != "Press Release" {
		t.Errorf("title = %q", title)
	}
	if text != "Acme announced a new round." {
		t.Errorf("text = %q", text)
	}
}

func TestExtractLinks(t *testing.T) {
	page := `<html><body>
<a href="/about">About</a>
<a href="https://other.example.org/story">Story</a>
<a href="https://other.example.org/story">Dup</a>
<a href="#top">Top</a>
<a href="mailto:x@example.com">Mail</a>
<a href="javascript:void(0)">JS</a>
<a href="ftp://example.com/file">FTP</a>
</body></html>`

	links := ExtractLinks(page, "https://example.com/news/item")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d: %+v", len(links), links)
	}

	if links[0].URL != "https://example.com/about" || !links[0].SameHost {
		t.Errorf("unexpected first link: %+v", links[0])
	}
	if links[1].URL != "https://other.example.org/story" || links[1].SameHost {
		t.Errorf("unexpected second link: %+v", links[1])
	}
	if links[1].Host != "other.example.org" {
		t.Errorf("host = %q", links[1].Host)
	}
}
