package crawler

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestClassifyPageLink_SchemeIsPartOfOrigin(t *testing.T) {
	doc := `<html><body>
<a href="/relative">internal</a>
<a href="https://example.com/pricing">internal absolute</a>
<a href="http://example.com/legacy">cross-scheme</a>
<a href="https://other.example/partner">other host</a>
</body></html>`

	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	base := mustParseURL(t, "https://example.com")
	signal := extractSignal(root, mustParseURL(t, "https://example.com/"), base)

	if signal.InternalLinks != 2 {
		t.Errorf("InternalLinks = %d, want 2", signal.InternalLinks)
	}
	// The http:// spelling of the same host is a different origin.
	if signal.ExternalLinks != 2 {
		t.Errorf("ExternalLinks = %d, want 2", signal.ExternalLinks)
	}

	want := []string{"/relative", "/pricing"}
	if len(signal.InternalLinkURLs) != len(want) {
		t.Fatalf("InternalLinkURLs = %v, want %v", signal.InternalLinkURLs, want)
	}
	for i, path := range want {
		if signal.InternalLinkURLs[i] != path {
			t.Errorf("InternalLinkURLs[%d] = %q, want %q", i, signal.InternalLinkURLs[i], path)
		}
	}
}
