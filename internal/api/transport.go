// Package api exposes the crawl-and-score pipeline over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geekatyourspot/rankpilot/internal/analytics"
	"github.com/geekatyourspot/rankpilot/internal/model"
	"github.com/geekatyourspot/rankpilot/internal/orchestrator"
	"github.com/geekatyourspot/rankpilot/internal/platform/errs"
	"github.com/geekatyourspot/rankpilot/internal/storage"
)

const (
	maxRequestBody = 1 << 20
	maxUploadBody  = 2 << 20
)

var (
	errURLRequired  = errors.New("the \"url\" field is required")
	errInvalidLabel = errors.New("label must be \"BEFORE\" or \"AFTER\"")
)

// Transport handles HTTP requests for sites, crawls, and analytics.
type Transport struct {
	store        storage.Storer
	orchestrator *orchestrator.Orchestrator
	maxPages     int
	logger       *slog.Logger
}

// NewTransport creates an HTTP transport backed by the given store and
// orchestrator. maxPages caps the per-crawl page budget.
func NewTransport(store storage.Storer, orch *orchestrator.Orchestrator, maxPages int, logger *slog.Logger) *Transport {
	return &Transport{
		store:        store,
		orchestrator: orch,
		maxPages:     maxPages,
		logger:       logger,
	}
}

// RegisterRoutes attaches the transport's handlers to the given mux.
func (t *Transport) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", t.handleHealth)

	mux.HandleFunc("POST /api/sites", t.handleCreateSite)
	mux.HandleFunc("GET /api/sites", t.handleListSites)
	mux.HandleFunc("GET /api/sites/{siteID}", t.handleGetSite)

	mux.HandleFunc("POST /api/sites/{siteID}/crawls", t.handleStartCrawl)
	mux.HandleFunc("GET /api/crawls/{crawlID}", t.handleGetCrawl)
	mux.HandleFunc("GET /api/crawls/{crawlID}/pages", t.handleListCrawlPages)
	mux.HandleFunc("GET /api/crawls/{crawlID}/pages/{pageID}", t.handleGetCrawlPage)

	mux.HandleFunc("POST /api/sites/{siteID}/analytics", t.handleUploadSnapshot)
	mux.HandleFunc("GET /api/sites/{siteID}/analytics", t.handleListSnapshots)
	mux.HandleFunc("GET /api/sites/{siteID}/analytics/comparison", t.handleComparison)
}

func (t *Transport) handleHealth(w http.ResponseWriter, _ *http.Request) {
	t.renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createSiteRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

func (r createSiteRequest) validate() error {
	if r.URL == "" {
		return errURLRequired
	}
	u, err := url.Parse(r.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("the \"url\" field must be an absolute http(s) URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("only http and https URLs are supported")
	}
	return nil
}

func (t *Transport) handleCreateSite(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req createSiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.renderError(w, http.StatusBadRequest, "Invalid request body. Please send a JSON object with a \"url\" field.")
		return
	}
	if err := req.validate(); err != nil {
		t.renderError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := req.Name
	if name == "" {
		if u, err := url.Parse(req.URL); err == nil {
			name = u.Host
		}
	}

	site := model.Site{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.CreateSite(r.Context(), &site); err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.renderJSON(w, http.StatusCreated, site)
}

func (t *Transport) handleListSites(w http.ResponseWriter, r *http.Request) {
	sites, err := t.store.ListSites(r.Context())
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, sites)
}

func (t *Transport) handleGetSite(w http.ResponseWriter, r *http.Request) {
	site, err := t.store.GetSite(r.Context(), r.PathValue("siteID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, site)
}

type startCrawlRequest struct {
	MaxPages int `json:"max_pages"`
}

func (t *Transport) handleStartCrawl(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	site, err := t.store.GetSite(r.Context(), r.PathValue("siteID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	var req startCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		t.renderError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	maxPages := req.MaxPages
	if maxPages < 1 || maxPages > t.maxPages {
		maxPages = t.maxPages
	}

	crawl := model.Crawl{
		ID:        uuid.New().String(),
		SiteID:    site.ID,
		Status:    model.CrawlPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.CreateCrawl(r.Context(), &crawl); err != nil {
		t.handleServiceError(w, err)
		return
	}

	// The crawl runs detached from the request; clients poll its status.
	go func() {
		_ = t.orchestrator.ExecuteCrawl(context.Background(), crawl.ID, site.ID, site.URL, maxPages)
	}()

	t.renderJSON(w, http.StatusAccepted, crawl)
}

func (t *Transport) handleGetCrawl(w http.ResponseWriter, r *http.Request) {
	crawl, err := t.store.GetCrawl(r.Context(), r.PathValue("crawlID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, crawl)
}

func (t *Transport) handleListCrawlPages(w http.ResponseWriter, r *http.Request) {
	crawlID := r.PathValue("crawlID")
	if _, err := t.store.GetCrawl(r.Context(), crawlID); err != nil {
		t.handleServiceError(w, err)
		return
	}

	pages, err := t.store.ListCrawlPages(r.Context(), crawlID)
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, map[string]any{
		"pages": pages,
		"total": len(pages),
	})
}

func (t *Transport) handleGetCrawlPage(w http.ResponseWriter, r *http.Request) {
	page, err := t.store.GetCrawlPage(r.Context(), r.PathValue("crawlID"), r.PathValue("pageID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, page)
}

func (t *Transport) handleUploadSnapshot(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	site, err := t.store.GetSite(r.Context(), r.PathValue("siteID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		t.renderError(w, http.StatusBadRequest, "Expected a multipart form with a \"file\" part and a \"label\" field.")
		return
	}

	label := model.SnapshotLabel(strings.ToUpper(r.FormValue("label")))
	if label != model.SnapshotBefore && label != model.SnapshotAfter {
		t.renderError(w, http.StatusBadRequest, errInvalidLabel.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		t.renderError(w, http.StatusBadRequest, "CSV file is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		t.renderError(w, http.StatusBadRequest, "Failed to read uploaded file.")
		return
	}

	parsed, err := analytics.Parse(string(content))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}

	snapshot := model.Snapshot{
		ID:        uuid.New().String(),
		SiteID:    site.ID,
		CrawlID:   r.FormValue("crawl_id"),
		Label:     label,
		DateRange: parsed.DateRange,
		Rows:      parsed.Rows,
		RowCount:  parsed.RowCount,
		CreatedAt: time.Now().UTC(),
	}
	if err := t.store.ReplaceSnapshot(r.Context(), &snapshot); err != nil {
		t.handleServiceError(w, err)
		return
	}

	t.logger.Info("analytics snapshot uploaded",
		"snapshot_id", snapshot.ID,
		"site_id", site.ID,
		"label", string(label),
		"row_count", parsed.RowCount,
	)

	// Rows are omitted from the response; fetch the comparison for data.
	snapshot.Rows = nil
	t.renderJSON(w, http.StatusCreated, snapshot)
}

func (t *Transport) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if _, err := t.store.GetSite(r.Context(), r.PathValue("siteID")); err != nil {
		t.handleServiceError(w, err)
		return
	}

	snapshots, err := t.store.ListSnapshots(r.Context(), r.PathValue("siteID"))
	if err != nil {
		t.handleServiceError(w, err)
		return
	}
	t.renderJSON(w, http.StatusOK, snapshots)
}

func (t *Transport) handleComparison(w http.ResponseWriter, r *http.Request) {
	siteID := r.PathValue("siteID")
	if _, err := t.store.GetSite(r.Context(), siteID); err != nil {
		t.handleServiceError(w, err)
		return
	}

	before, err := t.store.GetLatestSnapshot(r.Context(), siteID, model.SnapshotBefore)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.handleServiceError(w, err)
		return
	}
	after, err := t.store.GetLatestSnapshot(r.Context(), siteID, model.SnapshotAfter)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		t.handleServiceError(w, err)
		return
	}
	if before == nil || after == nil {
		t.renderError(w, http.StatusBadRequest, "Both BEFORE and AFTER snapshots are required for comparison")
		return
	}

	rows := analytics.Compare(before.Rows, after.Rows)

	t.renderJSON(w, http.StatusOK, map[string]any{
		"before": snapshotMeta(before),
		"after":  snapshotMeta(after),
		"rows":   rows,
	})
}

func snapshotMeta(s *model.Snapshot) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"label":      s.Label,
		"date_range": s.DateRange,
		"row_count":  s.RowCount,
		"created_at": s.CreatedAt,
	}
}

func (t *Transport) handleServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		t.renderError(w, http.StatusNotFound, "The requested record was not found.")
		return
	}

	var appErr *errs.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case errs.InvalidInput:
			status = http.StatusBadRequest
		case errs.NotFound:
			status = http.StatusNotFound
		case errs.Unreachable:
			status = http.StatusBadGateway
		case errs.Timeout:
			status = http.StatusGatewayTimeout
		case errs.ParsingFailed:
			status = http.StatusUnprocessableEntity
		case errs.Unknown:
			// 500 Internal Server Error
		}
		t.renderError(w, status, appErr.Message)
		return
	}

	t.logger.Error("unhandled service error", "error", err)
	t.renderError(w, http.StatusInternalServerError, "An unexpected error occurred.")
}

func (t *Transport) renderJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		t.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"Internal Server Error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (t *Transport) renderError(w http.ResponseWriter, status int, message string) {
	t.renderJSON(w, status, model.ErrorResponse{
		Error:      http.StatusText(status),
		StatusCode: status,
		Message:    message,
	})
}
