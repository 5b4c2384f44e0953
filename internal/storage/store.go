// Package storage defines the persistence contract the orchestrator and
// API depend on. Operations are simple keyed reads and updates; each call
// is atomic on its own, nothing spans calls.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storer is the persistence capability for sites, crawls, pages, and
// analytics snapshots.
type Storer interface {
	CreateSite(ctx context.Context, site *model.Site) error
	GetSite(ctx context.Context, id string) (*model.Site, error)
	ListSites(ctx context.Context) ([]model.Site, error)

	CreateCrawl(ctx context.Context, crawl *model.Crawl) error
	GetCrawl(ctx context.Context, id string) (*model.Crawl, error)
	MarkCrawlRunning(ctx context.Context, id string, startedAt time.Time) error
	MarkCrawlComplete(ctx context.Context, id string, pageCount, overallScore int, previousScore *int, completedAt time.Time) error
	MarkCrawlFailed(ctx context.Context, id, message string, completedAt time.Time) error
	IncrementCrawlPageCount(ctx context.Context, id string) error
	// LatestCompletedScore returns the overall score of the most recent
	// COMPLETE crawl for the site, excluding the given crawl. A nil score
	// with nil error means no such crawl exists.
	LatestCompletedScore(ctx context.Context, siteID, excludeCrawlID string) (*int, error)

	CreateCrawlPage(ctx context.Context, page *model.CrawlPage) error
	ListCrawlPages(ctx context.Context, crawlID string) ([]model.CrawlPage, error)
	GetCrawlPage(ctx context.Context, crawlID, pageID string) (*model.CrawlPage, error)

	// ReplaceSnapshot removes any existing snapshot with the same label for
	// the site before storing the new one.
	ReplaceSnapshot(ctx context.Context, snapshot *model.Snapshot) error
	GetLatestSnapshot(ctx context.Context, siteID string, label model.SnapshotLabel) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, siteID string) ([]model.Snapshot, error)

	Close() error
}
