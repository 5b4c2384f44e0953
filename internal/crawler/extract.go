package crawler

import (
	"encoding/json"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// extractSignal walks a parsed document and fills a PageSignal with the
// structural facts the scoring engine consumes. pageURL is the final URL
// after redirects; base is the crawl's start URL, used to classify links
// as internal or external.
func extractSignal(root *html.Node, pageURL *url.URL, base *url.URL) model.PageSignal {
	signal := model.PageSignal{
		URL:         pageURL.String(),
		OGTags:      map[string]string{},
		IsIndexable: true,
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if signal.Title == "" {
					signal.Title = textContent(n)
				}
			case "meta":
				extractMeta(n, &signal)
			case "h1":
				if signal.H1 == "" {
					signal.H1 = textContent(n)
				}
			case "h2":
				signal.H2s = append(signal.H2s, textContent(n))
			case "img":
				signal.ImageCount++
				if strings.TrimSpace(attr(n, "alt")) == "" {
					signal.ImagesWithoutAlt++
				}
			case "a":
				if href := attr(n, "href"); href != "" {
					classifyPageLink(href, pageURL, base, &signal)
				}
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") {
					if href := attr(n, "href"); href != "" {
						if resolved, err := pageURL.Parse(href); err == nil {
							signal.CanonicalURL = resolved.String()
						}
					}
				}
			case "script":
				if strings.EqualFold(attr(n, "type"), "application/ld+json") {
					var data any
					if err := json.Unmarshal([]byte(textContent(n)), &data); err == nil {
						signal.StructuredData = append(signal.StructuredData, data)
					}
				}
			case "body":
				signal.WordCount = countWords(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return signal
}

func extractMeta(n *html.Node, signal *model.PageSignal) {
	name := strings.ToLower(attr(n, "name"))
	property := attr(n, "property")
	content := strings.TrimSpace(attr(n, "content"))

	switch {
	case name == "description" || strings.EqualFold(property, "description"):
		if signal.MetaDescription == "" {
			signal.MetaDescription = content
		}
	case name == "viewport":
		signal.HasViewportMeta = true
	case name == "robots":
		if strings.Contains(strings.ToLower(content), "noindex") {
			signal.IsIndexable = false
		}
	case strings.HasPrefix(strings.ToLower(property), "og:"):
		if content != "" {
			signal.OGTags[strings.ToLower(property)] = content
		}
	}
}

// classifyPageLink resolves an href against the page URL and tallies it.
// Internal means same origin as the crawl's start URL, scheme included, so
// an http:// link on an https:// site counts as external. Internal links
// additionally record their path+query for the frontier.
func classifyPageLink(href string, pageURL, base *url.URL, signal *model.PageSignal) {
	resolved, err := pageURL.Parse(href)
	if err != nil {
		return
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return
	}

	if strings.EqualFold(resolved.Scheme, base.Scheme) && strings.EqualFold(resolved.Host, base.Host) {
		signal.InternalLinks++
		path := resolved.Path
		if path == "" {
			path = "/"
		}
		if resolved.RawQuery != "" {
			path += "?" + resolved.RawQuery
		}
		signal.InternalLinkURLs = append(signal.InternalLinkURLs, path)
	} else {
		signal.ExternalLinks++
	}
}

// countWords counts whitespace-separated words in the visible text of a
// subtree, skipping script and style blocks.
func countWords(n *html.Node) int {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return len(strings.Fields(sb.String()))
}

// textContent returns the trimmed concatenation of all text nodes under n.
func textContent(n *html.Node) string {
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
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
