package crawler

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters dropped during normalization so that
// the same page reached via different campaign links dedupes to one key.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
}

// NormalizeURL canonicalizes an absolute URL into a de-duplication key.
// The fragment is dropped, tracking parameters are removed (other query
// parameters keep their order), and a single trailing slash is stripped
// unless the path is the root. The result is a key, never a navigation
// target. Malformed input is returned unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	query := u.RawQuery
	if query != "" {
		parts := strings.Split(query, "&")
		kept := parts[:0]
		for _, part := range parts {
			key, _, _ := strings.Cut(part, "=")
			if !trackingParams[key] {
				kept = append(kept, part)
			}
		}
		query = strings.Join(kept, "&")
	}

	path := u.Path
	if path == "" {
		path = "/"
	} else if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	normalized := u.Scheme + "://" + u.Host + path
	if query != "" {
		normalized += "?" + query
	}
	return normalized
}
