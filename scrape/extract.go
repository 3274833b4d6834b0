package scrape

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// maxLinks caps how many outbound links a page contributes.
const maxLinks = 20

// Page is the extracted content of a scraped URL.
type Page struct {
	URL      string
	Title    string
	Content  string
	Headings []string
	Links    []string
}

// ExtractPage parses an HTML document and pulls out the title, body
// text, headings, and outbound links. The title falls back to the
// first h1 and then to "Untitled"; the content is the joined text of
// all paragraph elements.
func ExtractPage(pageURL, rawHTML string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	var (
		title      string
		firstH1    string
		paragraphs []string
		headings   []string
		links      []string
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" {
					title = strings.TrimSpace(nodeText(n))
				}
			case "h1", "h2", "h3":
				text := strings.TrimSpace(nodeText(n))
				if text != "" {
					headings = append(headings, text)
					if n.Data == "h1" && firstH1 == "" {
						firstH1 = text
					}
				}
			case "p":
				text := strings.TrimSpace(nodeText(n))
				if text != "" {
					paragraphs = append(paragraphs, text)
				}
			case "a":
				if len(links) < maxLinks {
					for _, attr := range n.Attr {
						if attr.Key == "href" && attr.Val != "" {
							if link := resolveLink(base, attr.Val); link != "" {
								links = append(links, link)
							}
							break
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if title == "" {
		title = firstH1
	}
	if title == "" {
		title = "Untitled"
	}

	return &Page{
		URL:      pageURL,
		Title:    title,
		Content:  strings.Join(paragraphs, " "),
		Headings: headings,
		Links:    links,
	}, nil
}

// resolveLink makes href absolute against the page URL. Unparsable
// hrefs are dropped; without a base the href is kept as written.
func resolveLink(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
