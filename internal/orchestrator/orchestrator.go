// Package orchestrator ties the crawler, scoring engine, fix generator,
// and store together into the crawl lifecycle saga:
// PENDING -> RUNNING -> COMPLETE or FAILED, both terminal.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/geekatyourspot/rankpilot/internal/fixes"
	"github.com/geekatyourspot/rankpilot/internal/model"
	"github.com/geekatyourspot/rankpilot/internal/scoring"
	"github.com/geekatyourspot/rankpilot/internal/storage"
)

// Crawler runs the frontier-managed page discovery for one site.
type Crawler interface {
	Crawl(ctx context.Context, siteURL string, maxPages int) (*model.CrawlResult, error)
}

// Orchestrator executes crawls end to end and keeps the persisted status
// in sync at every step.
type Orchestrator struct {
	crawler Crawler
	fixGen  fixes.Generator
	store   storage.Storer
	logger  *slog.Logger
}

// New returns an Orchestrator over the given collaborators.
func New(crawler Crawler, fixGen fixes.Generator, store storage.Storer, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		crawler: crawler,
		fixGen:  fixGen,
		store:   store,
		logger:  logger,
	}
}

// ExecuteCrawl runs one crawl to a terminal state. Page-level failures are
// recorded and skipped; any failure outside the per-page boundary marks
// the crawl FAILED with the captured message, never leaving it RUNNING.
// The returned error mirrors what was persisted.
func (o *Orchestrator) ExecuteCrawl(ctx context.Context, crawlID, siteID, siteURL string, maxPages int) error {
	logger := o.logger.With("crawl_id", crawlID, "site_url", siteURL)

	if err := o.store.MarkCrawlRunning(ctx, crawlID, time.Now().UTC()); err != nil {
		logger.Error("failed to mark crawl running", "error", err)
		return err
	}

	result, err := o.crawler.Crawl(ctx, siteURL, maxPages)
	if err != nil {
		return o.failCrawl(ctx, logger, crawlID, err)
	}

	// Pages are processed sequentially on purpose: fix generation calls an
	// external API and concurrency here would multiply its load.
	var pageScores []model.PageScore
	for _, signal := range result.Pages {
		score := scoring.ScorePage(signal)
		pageScores = append(pageScores, score)

		fixList := o.fixGen.GenerateFixes(ctx, signal, score.Issues)

		page := model.CrawlPage{
			ID:       uuid.New().String(),
			CrawlID:  crawlID,
			Signal:   signal,
			SEOScore: score.Overall,
			Issues:   score.Issues,
			Fixes:    fixList,
		}
		if err := o.store.CreateCrawlPage(ctx, &page); err != nil {
			return o.failCrawl(ctx, logger, crawlID, err)
		}
		if err := o.store.IncrementCrawlPageCount(ctx, crawlID); err != nil {
			return o.failCrawl(ctx, logger, crawlID, err)
		}
	}

	overallScore := scoring.SiteScore(pageScores)

	previousScore, err := o.store.LatestCompletedScore(ctx, siteID, crawlID)
	if err != nil {
		return o.failCrawl(ctx, logger, crawlID, err)
	}

	if err := o.store.MarkCrawlComplete(ctx, crawlID, len(result.Pages), overallScore, previousScore, time.Now().UTC()); err != nil {
		return o.failCrawl(ctx, logger, crawlID, err)
	}

	logger.Info("crawl orchestration complete",
		"pages", len(result.Pages),
		"page_errors", len(result.Errors),
		"overall_score", overallScore,
	)
	return nil
}

func (o *Orchestrator) failCrawl(ctx context.Context, logger *slog.Logger, crawlID string, cause error) error {
	logger.Error("crawl orchestration failed", "error", cause)

	if err := o.store.MarkCrawlFailed(ctx, crawlID, cause.Error(), time.Now().UTC()); err != nil {
		logger.Error("failed to persist FAILED status", "error", err)
	}
	return cause
}
