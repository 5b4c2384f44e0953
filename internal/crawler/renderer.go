package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// Renderer renders a page at a URL and returns its extracted signal.
// The base URL is the crawl's start URL, used for link classification.
type Renderer interface {
	Render(ctx context.Context, pageURL string, base *url.URL) (*model.PageSignal, error)
}

const (
	maxRedirects    = 5
	maxResponseBody = 10 << 20
	userAgent       = "RankPilot SEO Crawler/1.0 (+https://geekatyourspot.com/rankpilot)"
)

var (
	errTooManyRedirects = errors.New("too many redirects")
	errBlockedRedirect  = errors.New("redirect to non-http(s) scheme blocked")
)

// HTTPRenderer implements Renderer over plain HTTP fetches. Redirects are
// walked manually so every intermediate hop lands in the redirect chain.
type HTTPRenderer struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPRenderer returns a renderer with the given per-page timeout whose
// transport blocks connections to private/reserved IP ranges.
func NewHTTPRenderer(timeout time.Duration) *HTTPRenderer {
	return newHTTPRenderer(timeout, &http.Transport{
		DialContext:         safeDialer().DialContext,
		MaxConnsPerHost:     10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	})
}

func newHTTPRenderer(timeout time.Duration, transport http.RoundTripper) *HTTPRenderer {
	return &HTTPRenderer{
		timeout: timeout,
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Render fetches the page, following up to maxRedirects hops, parses the
// final body, and returns the PageSignal with the HTTP status and the
// chain of intermediate redirect URLs attached.
func (r *HTTPRenderer) Render(ctx context.Context, pageURL string, base *url.URL) (*model.PageSignal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, chain, err := r.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("unsupported content type %q", ct)
	}

	root, err := html.Parse(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	signal := extractSignal(root, resp.Request.URL, base)
	signal.HTTPStatus = resp.StatusCode
	signal.RedirectChain = chain
	return &signal, nil
}

// fetch issues GETs hop by hop, recording each 3xx response URL, and
// returns the final response. A 3xx without a Location header is final.
func (r *HTTPRenderer) fetch(ctx context.Context, pageURL string) (*http.Response, []string, error) {
	var chain []string
	current := pageURL

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "text/html")

		resp, err := r.client.Do(req)
		if err != nil {
			return nil, nil, err
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return resp, chain, nil
		}

		location := resp.Header.Get("Location")
		if location == "" {
			return resp, chain, nil
		}
		_ = resp.Body.Close()

		if len(chain) >= maxRedirects {
			return nil, nil, fmt.Errorf("%w: stopped after %d", errTooManyRedirects, maxRedirects)
		}

		next, err := resp.Request.URL.Parse(location)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redirect location %q: %w", location, err)
		}
		if next.Scheme != "http" && next.Scheme != "https" {
			return nil, nil, fmt.Errorf("%w: %s", errBlockedRedirect, next.Scheme)
		}

		chain = append(chain, current)
		current = next.String()
	}
}
