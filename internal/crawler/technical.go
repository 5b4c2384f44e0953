package crawler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

const probeTimeout = 10 * time.Second

// sitemapPaths are probed in order; the first HTTP-success path wins.
var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml"}

// TechnicalChecker runs the three site-level probes: robots.txt presence,
// sitemap presence, and SSL reachability. Each probe fails soft to a
// negative default, so Run never returns an error.
type TechnicalChecker struct {
	client *http.Client
	logger *slog.Logger
}

// NewTechnicalChecker returns a checker whose HTTP client blocks
// private/reserved addresses and never waits longer than the probe timeout.
func NewTechnicalChecker(logger *slog.Logger) *TechnicalChecker {
	return newTechnicalChecker(logger, &http.Transport{
		DialContext:         safeDialer().DialContext,
		MaxConnsPerHost:     4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	})
}

func newTechnicalChecker(logger *slog.Logger, transport http.RoundTripper) *TechnicalChecker {
	return &TechnicalChecker{
		logger: logger,
		client: &http.Client{
			Timeout:   probeTimeout,
			Transport: transport,
		},
	}
}

// Run executes the three probes concurrently and returns the union of
// their outcomes.
func (tc *TechnicalChecker) Run(ctx context.Context, base *url.URL) model.TechnicalCheckResult {
	var result model.TechnicalCheckResult

	var wg sync.WaitGroup
	wg.Go(func() {
		result.HasRobotsTxt, result.RobotsTxtContent = tc.checkRobotsTxt(ctx, base)
	})
	wg.Go(func() {
		result.HasSitemap, result.SitemapURL = tc.checkSitemap(ctx, base)
	})
	wg.Go(func() {
		result.SSLValid = tc.checkSSL(ctx, base)
	})
	wg.Wait()

	return result
}

func (tc *TechnicalChecker) checkRobotsTxt(ctx context.Context, base *url.URL) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	robotsURL := base.Scheme + "://" + base.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return false, ""
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.logger.Warn("robots.txt probe failed", "url", robotsURL, "error", err)
		return false, ""
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, ""
	}

	const maxRobotsBody = 512 << 10
	content, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		return true, ""
	}
	return true, string(content)
}

func (tc *TechnicalChecker) checkSitemap(ctx context.Context, base *url.URL) (bool, string) {
	for _, path := range sitemapPaths {
		sitemapURL := base.Scheme + "://" + base.Host + path
		ok := func() bool {
			ctx, cancel := context.WithTimeout(ctx, probeTimeout)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodHead, sitemapURL, nil)
			if err != nil {
				return false
			}
			resp, err := tc.client.Do(req)
			if err != nil {
				return false
			}
			defer func() { _ = resp.Body.Close() }()
			return resp.StatusCode >= 200 && resp.StatusCode < 300
		}()
		if ok {
			return true, sitemapURL
		}
	}
	return false, ""
}

// checkSSL HEADs the HTTPS origin. The site counts as valid when it
// answers at all with anything below a server error; connection-level
// failures mean invalid.
func (tc *TechnicalChecker) checkSSL(ctx context.Context, base *url.URL) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	httpsURL := "https://" + base.Host + base.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, httpsURL, nil)
	if err != nil {
		return false
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		tc.logger.Warn("ssl probe failed", "url", httpsURL, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode < 500
}
