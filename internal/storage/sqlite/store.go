// Package sqlite implements storage.Storer on a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/geekatyourspot/rankpilot/internal/model"
	"github.com/geekatyourspot/rankpilot/internal/storage"
)

// Store implements storage.Storer for SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database file, enables WAL mode, and runs the
// schema migration.
func New(ctx context.Context, dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dataSourceName))
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS sites (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS crawls (
	id             TEXT PRIMARY KEY,
	site_id        TEXT NOT NULL,
	status         TEXT NOT NULL,
	page_count     INTEGER NOT NULL DEFAULT 0,
	overall_score  INTEGER,
	previous_score INTEGER,
	error_message  TEXT,
	started_at     TEXT,
	completed_at   TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY(site_id) REFERENCES sites(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_crawls_site_status ON crawls (site_id, status, completed_at DESC);

CREATE TABLE IF NOT EXISTS crawl_pages (
	id        TEXT PRIMARY KEY,
	crawl_id  TEXT NOT NULL,
	url       TEXT NOT NULL,
	seo_score INTEGER NOT NULL,
	signal    TEXT NOT NULL,
	issues    TEXT NOT NULL,
	fixes     TEXT NOT NULL,
	FOREIGN KEY(crawl_id) REFERENCES crawls(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_crawl_pages_crawl_id ON crawl_pages (crawl_id);

CREATE TABLE IF NOT EXISTS analytics_snapshots (
	id         TEXT PRIMARY KEY,
	site_id    TEXT NOT NULL,
	crawl_id   TEXT,
	label      TEXT NOT NULL,
	date_range TEXT,
	rows       TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	FOREIGN KEY(site_id) REFERENCES sites(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_snapshots_site_label ON analytics_snapshots (site_id, label, created_at DESC);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// CreateSite stores a new site.
func (s *Store) CreateSite(ctx context.Context, site *model.Site) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (id, url, name, created_at) VALUES (?, ?, ?, ?)`,
		site.ID, site.URL, site.Name, site.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert site: %w", err)
	}
	return nil
}

// GetSite fetches one site by ID.
func (s *Store) GetSite(ctx context.Context, id string) (*model.Site, error) {
	var site model.Site
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, name, created_at FROM sites WHERE id = ?`, id).
		Scan(&site.ID, &site.URL, &site.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	site.CreatedAt = parseTime(createdAt)
	return &site, nil
}

// ListSites returns all sites, newest first.
func (s *Store) ListSites(ctx context.Context) ([]model.Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, name, created_at FROM sites ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var site model.Site
		var createdAt string
		if err := rows.Scan(&site.ID, &site.URL, &site.Name, &createdAt); err != nil {
			return nil, err
		}
		site.CreatedAt = parseTime(createdAt)
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// CreateCrawl stores a new crawl record, normally in PENDING state.
func (s *Store) CreateCrawl(ctx context.Context, crawl *model.Crawl) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawls (id, site_id, status, page_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		crawl.ID, crawl.SiteID, string(crawl.Status), crawl.PageCount, crawl.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert crawl: %w", err)
	}
	return nil
}

// GetCrawl fetches one crawl by ID.
func (s *Store) GetCrawl(ctx context.Context, id string) (*model.Crawl, error) {
	var crawl model.Crawl
	var status, createdAt string
	var overallScore, previousScore sql.NullInt64
	var errorMessage, startedAt, completedAt sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, status, page_count, overall_score, previous_score,
		        error_message, started_at, completed_at, created_at
		 FROM crawls WHERE id = ?`, id).
		Scan(&crawl.ID, &crawl.SiteID, &status, &crawl.PageCount, &overallScore,
			&previousScore, &errorMessage, &startedAt, &completedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}

	crawl.Status = model.CrawlStatus(status)
	crawl.CreatedAt = parseTime(createdAt)
	crawl.ErrorMessage = errorMessage.String
	if overallScore.Valid {
		v := int(overallScore.Int64)
		crawl.OverallScore = &v
	}
	if previousScore.Valid {
		v := int(previousScore.Int64)
		crawl.PreviousScore = &v
	}
	if startedAt.Valid {
		t := parseTime(startedAt.String)
		crawl.StartedAt = &t
	}
	if completedAt.Valid {
		t := parseTime(completedAt.String)
		crawl.CompletedAt = &t
	}
	return &crawl, nil
}

// MarkCrawlRunning transitions a crawl to RUNNING and records its start time.
func (s *Store) MarkCrawlRunning(ctx context.Context, id string, startedAt time.Time) error {
	return s.updateCrawl(ctx, id,
		`UPDATE crawls SET status = ?, started_at = ? WHERE id = ?`,
		string(model.CrawlRunning), startedAt.Format(time.RFC3339Nano), id)
}

// MarkCrawlComplete transitions a crawl to its terminal COMPLETE state.
func (s *Store) MarkCrawlComplete(ctx context.Context, id string, pageCount, overallScore int, previousScore *int, completedAt time.Time) error {
	var prev sql.NullInt64
	if previousScore != nil {
		prev = sql.NullInt64{Int64: int64(*previousScore), Valid: true}
	}
	return s.updateCrawl(ctx, id,
		`UPDATE crawls SET status = ?, page_count = ?, overall_score = ?, previous_score = ?, completed_at = ? WHERE id = ?`,
		string(model.CrawlComplete), pageCount, overallScore, prev, completedAt.Format(time.RFC3339Nano), id)
}

// MarkCrawlFailed transitions a crawl to its terminal FAILED state with the
// captured error message.
func (s *Store) MarkCrawlFailed(ctx context.Context, id, message string, completedAt time.Time) error {
	return s.updateCrawl(ctx, id,
		`UPDATE crawls SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		string(model.CrawlFailed), message, completedAt.Format(time.RFC3339Nano), id)
}

// IncrementCrawlPageCount bumps the running page count so pollers can see
// progress mid-crawl.
func (s *Store) IncrementCrawlPageCount(ctx context.Context, id string) error {
	return s.updateCrawl(ctx, id,
		`UPDATE crawls SET page_count = page_count + 1 WHERE id = ?`, id)
}

func (s *Store) updateCrawl(ctx context.Context, id, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update crawl: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("crawl %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// LatestCompletedScore looks up the most recent other COMPLETE crawl's
// overall score for the site.
func (s *Store) LatestCompletedScore(ctx context.Context, siteID, excludeCrawlID string) (*int, error) {
	var score sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT overall_score FROM crawls
		 WHERE site_id = ? AND status = ? AND id <> ?
		 ORDER BY completed_at DESC LIMIT 1`,
		siteID, string(model.CrawlComplete), excludeCrawlID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous score: %w", err)
	}
	if !score.Valid {
		return nil, nil
	}
	v := int(score.Int64)
	return &v, nil
}

// CreateCrawlPage stores one page's signal, issues, and fixes as JSON.
func (s *Store) CreateCrawlPage(ctx context.Context, page *model.CrawlPage) error {
	signal, err := json.Marshal(page.Signal)
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	issues, err := json.Marshal(emptySlice(page.Issues))
	if err != nil {
		return fmt.Errorf("failed to marshal issues: %w", err)
	}
	fixes, err := json.Marshal(emptySlice(page.Fixes))
	if err != nil {
		return fmt.Errorf("failed to marshal fixes: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO crawl_pages (id, crawl_id, url, seo_score, signal, issues, fixes)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		page.ID, page.CrawlID, page.Signal.URL, page.SEOScore, string(signal), string(issues), string(fixes))
	if err != nil {
		return fmt.Errorf("failed to insert crawl page: %w", err)
	}
	return nil
}

// ListCrawlPages returns all pages of a crawl in insertion order.
func (s *Store) ListCrawlPages(ctx context.Context, crawlID string) ([]model.CrawlPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, crawl_id, seo_score, signal, issues, fixes
		 FROM crawl_pages WHERE crawl_id = ? ORDER BY rowid`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawl pages: %w", err)
	}
	defer rows.Close()

	var pages []model.CrawlPage
	for rows.Next() {
		page, err := scanCrawlPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// GetCrawlPage fetches one page, scoped to its crawl.
func (s *Store) GetCrawlPage(ctx context.Context, crawlID, pageID string) (*model.CrawlPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, crawl_id, seo_score, signal, issues, fixes
		 FROM crawl_pages WHERE id = ? AND crawl_id = ?`, pageID, crawlID)
	page, err := scanCrawlPage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl page: %w", err)
	}
	return page, nil
}

func scanCrawlPage(scan func(...any) error) (*model.CrawlPage, error) {
	var page model.CrawlPage
	var signal, issues, fixes string
	if err := scan(&page.ID, &page.CrawlID, &page.SEOScore, &signal, &issues, &fixes); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(signal), &page.Signal); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signal: %w", err)
	}
	if err := json.Unmarshal([]byte(issues), &page.Issues); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issues: %w", err)
	}
	if err := json.Unmarshal([]byte(fixes), &page.Fixes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal fixes: %w", err)
	}
	return &page, nil
}

// ReplaceSnapshot deletes any snapshot carrying the same label for the
// site, then stores the new one.
func (s *Store) ReplaceSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	rows, err := json.Marshal(snapshot.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM analytics_snapshots WHERE site_id = ? AND label = ?`,
		snapshot.SiteID, string(snapshot.Label)); err != nil {
		return fmt.Errorf("failed to delete previous snapshot: %w", err)
	}

	var crawlID sql.NullString
	if snapshot.CrawlID != "" {
		crawlID = sql.NullString{String: snapshot.CrawlID, Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (id, site_id, crawl_id, label, date_range, rows, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.SiteID, crawlID, string(snapshot.Label), snapshot.DateRange,
		string(rows), snapshot.RowCount, snapshot.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return tx.Commit()
}

// GetLatestSnapshot returns the newest snapshot with the given label,
// including its rows.
func (s *Store) GetLatestSnapshot(ctx context.Context, siteID string, label model.SnapshotLabel) (*model.Snapshot, error) {
	var snapshot model.Snapshot
	var labelStr, createdAt, rowsJSON string
	var crawlID, dateRange sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, site_id, crawl_id, label, date_range, rows, row_count, created_at
		 FROM analytics_snapshots WHERE site_id = ? AND label = ?
		 ORDER BY created_at DESC LIMIT 1`, siteID, string(label)).
		Scan(&snapshot.ID, &snapshot.SiteID, &crawlID, &labelStr, &dateRange,
			&rowsJSON, &snapshot.RowCount, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snapshot.Label = model.SnapshotLabel(labelStr)
	snapshot.CrawlID = crawlID.String
	snapshot.DateRange = dateRange.String
	snapshot.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(rowsJSON), &snapshot.Rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot rows: %w", err)
	}
	return &snapshot, nil
}

// ListSnapshots returns snapshot metadata for a site, newest first. Rows
// are omitted; fetch a single snapshot for its data.
func (s *Store) ListSnapshots(ctx context.Context, siteID string) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, site_id, crawl_id, label, date_range, row_count, created_at
		 FROM analytics_snapshots WHERE site_id = ? ORDER BY created_at DESC`, siteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []model.Snapshot
	for rows.Next() {
		var snapshot model.Snapshot
		var label, createdAt string
		var crawlID, dateRange sql.NullString
		if err := rows.Scan(&snapshot.ID, &snapshot.SiteID, &crawlID, &label,
			&dateRange, &snapshot.RowCount, &createdAt); err != nil {
			return nil, err
		}
		snapshot.Label = model.SnapshotLabel(label)
		snapshot.CrawlID = crawlID.String
		snapshot.DateRange = dateRange.String
		snapshot.CreatedAt = parseTime(createdAt)
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// emptySlice keeps JSON columns as [] instead of null for nil slices.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
