package scrape

import (
	"fmt"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Go Concurrency Patterns</title></head>
<body>
<h1>Concurrency</h1>
<h2>Goroutines</h2>
<p>Goroutines are lightweight threads.</p>
<p>Channels connect them.</p>
<h3>Select</h3>
<a href="/pipelines">Pipelines</a>
<a href="https://go.dev/blog">Blog</a>
</body>
</html>`

func TestExtractPage(t *testing.T) {
	page, err := ExtractPage("https://go.dev/talks", samplePage)
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if page.Title != "Go Concurrency Patterns" {
		t.Fatalf("unexpected title %q", page.Title)
	}
	if page.Content != "Goroutines are lightweight threads. Channels connect them." {
		t.Fatalf("unexpected content %q", page.Content)
	}
	if len(page.Headings) != 3 {
		t.Fatalf("expected 3 headings, got %v", page.Headings)
	}
	if len(page.Links) != 2 {
		t.Fatalf("expected 2 links, got %v", page.Links)
	}
	if page.URL != "https://go.dev/talks" {
		t.Fatalf("unexpected url %q", page.URL)
	}
}

func TestExtractPageResolvesRelativeLinks(t *testing.T) {
	page, err := ExtractPage("https://go.dev/talks/2012/", samplePage)
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}

	if page.Links[0] != "https://go.dev/pipelines" {
		t.Fatalf("expected root-relative href resolved against page url, got %q", page.Links[0])
	}
	if page.Links[1] != "https://go.dev/blog" {
		t.Fatalf("expected absolute href kept as-is, got %q", page.Links[1])
	}
}

func TestExtractPageTitleFallbacks(t *testing.T) {
	page, err := ExtractPage("http://x", "<html><body><h1>Heading Title</h1><p>text</p></body></html>")
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if page.Title != "Heading Title" {
		t.Fatalf("expected h1 fallback, got %q", page.Title)
	}

	page, err = ExtractPage("http://x", "<html><body><p>text only</p></body></html>")
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if page.Title != "Untitled" {
		t.Fatalf("expected Untitled fallback, got %q", page.Title)
	}
}

func TestExtractPageCapsLinks(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, `<a href="/page%d">p</a>`, i)
	}
	sb.WriteString("</body></html>")

	page, err := ExtractPage("http://x", sb.String())
	if err != nil {
		t.Fatalf("failed to extract: %v", err)
	}
	if len(page.Links) != maxLinks {
		t.Fatalf("expected %d links, got %d", maxLinks, len(page.Links))
	}
}

func TestDocumentIDDeterministic(t *testing.T) {
	a := DocumentID("https://example.com/page")
	b := DocumentID("https://example.com/page")
	c := DocumentID("https://example.com/other")

	if a != b {
		t.Fatalf("ids differ for same url: %s vs %s", a, b)
	}
	if a == c {
		t.Fatalf("ids collide for different urls: %s", a)
	}
	if !strings.HasPrefix(a, "scraped_") {
		t.Fatalf("unexpected id format %q", a)
	}
}
