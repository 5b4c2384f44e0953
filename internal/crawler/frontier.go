package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"github.com/geekatyourspot/rankpilot/internal/model"
	"github.com/geekatyourspot/rankpilot/internal/platform/errs"
)

const (
	defaultConcurrency = 3
	defaultMaxPages    = 50
)

// technicalChecker defines how the crawler runs the site-level probes.
type technicalChecker interface {
	Run(ctx context.Context, base *url.URL) model.TechnicalCheckResult
}

// Crawler drives breadth-first discovery of same-origin pages. The seen-set
// and frontier queue are owned exclusively by the driver goroutine; render
// workers only hand their results back to it.
type Crawler struct {
	renderer    Renderer
	checker     technicalChecker
	concurrency int
	logger      *slog.Logger
}

// NewCrawler returns a Crawler with the given render concurrency.
// A concurrency below 1 falls back to the default of 3.
func NewCrawler(renderer Renderer, checker technicalChecker, concurrency int, logger *slog.Logger) *Crawler {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Crawler{
		renderer:    renderer,
		checker:     checker,
		concurrency: concurrency,
		logger:      logger,
	}
}

type renderOutcome struct {
	signal *model.PageSignal
	err    error
}

// Crawl discovers up to maxPages pages reachable from siteURL, rendering
// them in fixed-size concurrent batches. Single-page failures are recorded
// and never abort the crawl; only an invalid start URL is fatal.
func (c *Crawler) Crawl(ctx context.Context, siteURL string, maxPages int) (*model.CrawlResult, error) {
	base, err := url.Parse(siteURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Invalid site URL. Please provide an absolute http(s) URL.",
			Cause:   err,
		}
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, &errs.AppError{
			Kind:    errs.InvalidInput,
			Message: "Only http and https URLs are supported.",
		}
	}
	if maxPages < 1 {
		maxPages = defaultMaxPages
	}

	seen := map[string]bool{NormalizeURL(siteURL): true}
	queue := []string{siteURL}
	var pages []model.PageSignal
	var crawlErrors []model.CrawlError

	c.logger.Info("starting crawl", "url", siteURL, "max_pages", maxPages)

	technical := c.checker.Run(ctx, base)

	for len(queue) > 0 && len(pages) < maxPages {
		// The queue may hold more URLs than the budget permits, since
		// enqueueing checks the page count before in-flight renders land.
		// Trimming each batch to the remaining budget keeps the completed
		// page count capped regardless.
		n := min(len(queue), c.concurrency, maxPages-len(pages))
		batch := queue[:n]
		queue = queue[n:]

		outcomes := c.renderBatch(ctx, batch, base)

		for i, outcome := range outcomes {
			if outcome.err != nil {
				crawlErrors = append(crawlErrors, model.CrawlError{
					URL:   batch[i],
					Error: outcome.err.Error(),
				})
				continue
			}

			pages = append(pages, *outcome.signal)

			for _, linkPath := range outcome.signal.InternalLinkURLs {
				ref, err := url.Parse(linkPath)
				if err != nil {
					continue
				}
				full := base.ResolveReference(ref).String()
				normalized := NormalizeURL(full)
				if !seen[normalized] && len(pages)+len(queue) < maxPages {
					seen[normalized] = true
					queue = append(queue, full)
				}
			}
		}

		c.logger.Info("crawl progress",
			"pages_complete", len(pages),
			"queue_remaining", len(queue),
			"max_pages", maxPages,
		)
	}

	c.logger.Info("crawl complete", "total_pages", len(pages), "total_errors", len(crawlErrors))

	return &model.CrawlResult{
		Pages:           pages,
		TechnicalChecks: technical,
		Errors:          crawlErrors,
	}, nil
}

// renderBatch renders one batch concurrently. Outcomes are indexed by the
// batch's discovery order regardless of completion order.
func (c *Crawler) renderBatch(ctx context.Context, batch []string, base *url.URL) []renderOutcome {
	outcomes := make([]renderOutcome, len(batch))

	var wg sync.WaitGroup
	for i, pageURL := range batch {
		wg.Go(func() {
			signal, err := c.renderer.Render(ctx, pageURL, base)
			outcomes[i] = renderOutcome{signal: signal, err: err}
		})
	}
	wg.Wait()

	return outcomes
}
