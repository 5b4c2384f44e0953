package model

import "time"

// Severity ranks how badly an issue hurts a page. The ordering is
// critical < warning < info for ranking purposes.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Category identifies which scoring dimension an issue belongs to.
type Category string

const (
	CategoryTitle           Category = "title"
	CategoryMetaDescription Category = "meta_description"
	CategoryHeadings        Category = "headings"
	CategoryContent         Category = "content"
	CategoryImages          Category = "images"
	CategoryLinks           Category = "links"
	CategoryMobile          Category = "mobile"
	CategoryTechnical       Category = "technical"
)

// PageSignal holds the structural facts extracted from one rendered page.
// Counts are non-negative and ImagesWithoutAlt never exceeds ImageCount.
type PageSignal struct {
	URL              string            `json:"url"`
	HTTPStatus       int               `json:"http_status"`
	Title            string            `json:"title"`
	MetaDescription  string            `json:"meta_description"`
	H1               string            `json:"h1"`
	H2s              []string          `json:"h2s"`
	WordCount        int               `json:"word_count"`
	ImageCount       int               `json:"image_count"`
	ImagesWithoutAlt int               `json:"images_without_alt"`
	InternalLinks    int               `json:"internal_links"`
	ExternalLinks    int               `json:"external_links"`
	CanonicalURL     string            `json:"canonical_url"`
	OGTags           map[string]string `json:"og_tags"`
	StructuredData   []any             `json:"structured_data"`
	HasViewportMeta  bool              `json:"has_viewport_meta"`
	IsIndexable      bool              `json:"is_indexable"`
	RedirectChain    []string          `json:"redirect_chain"`
	InternalLinkURLs []string          `json:"internal_link_urls"`
}

// Issue is a single SEO defect detected by the scoring engine.
// Impact is 1-10, higher meaning a larger effect on ranking.
type Issue struct {
	Category     Category `json:"category"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	CurrentValue string   `json:"current_value,omitempty"`
	Impact       int      `json:"impact"`
}

// ScoreBreakdown holds the per-category scores, each 0-100.
type ScoreBreakdown struct {
	Title           int `json:"title"`
	MetaDescription int `json:"meta_description"`
	Headings        int `json:"headings"`
	Content         int `json:"content"`
	Images          int `json:"images"`
	Links           int `json:"links"`
	Mobile          int `json:"mobile"`
	Technical       int `json:"technical"`
}

// PageScore is the scoring engine's verdict on one PageSignal.
type PageScore struct {
	Overall   int            `json:"overall"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Issues    []Issue        `json:"issues"`
}

// Fix is an AI-authored remediation for one issue. The core treats
// fixes as an opaque pass-through list from the generator.
type Fix struct {
	Issue          string `json:"issue"`
	CurrentState   string `json:"current_state"`
	Recommendation string `json:"recommendation"`
	AIGeneratedFix string `json:"ai_generated_fix"`
	Priority       string `json:"priority"` // high, medium, low
}

// TechnicalCheckResult is the union of the three site-level probes.
// SSLExpiresAt is kept for response shape parity but never populated.
type TechnicalCheckResult struct {
	HasRobotsTxt     bool   `json:"has_robots_txt"`
	RobotsTxtContent string `json:"robots_txt_content,omitempty"`
	HasSitemap       bool   `json:"has_sitemap"`
	SitemapURL       string `json:"sitemap_url,omitempty"`
	SSLValid         bool   `json:"ssl_valid"`
	SSLExpiresAt     string `json:"ssl_expires_at,omitempty"`
}

// CrawlError records a single page that could not be rendered.
type CrawlError struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CrawlResult is the frontier manager's output for one crawl execution.
type CrawlResult struct {
	Pages           []PageSignal         `json:"pages"`
	TechnicalChecks TechnicalCheckResult `json:"technical_checks"`
	Errors          []CrawlError         `json:"errors"`
}

// CrawlStatus is the persisted lifecycle state of a crawl.
type CrawlStatus string

const (
	CrawlPending  CrawlStatus = "PENDING"
	CrawlRunning  CrawlStatus = "RUNNING"
	CrawlComplete CrawlStatus = "COMPLETE"
	CrawlFailed   CrawlStatus = "FAILED"
)

// Site is a registered website to audit.
type Site struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Crawl is the persisted record of one crawl execution.
type Crawl struct {
	ID            string      `json:"id"`
	SiteID        string      `json:"site_id"`
	Status        CrawlStatus `json:"status"`
	PageCount     int         `json:"page_count"`
	OverallScore  *int        `json:"overall_score"`
	PreviousScore *int        `json:"previous_score"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	StartedAt     *time.Time  `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at"`
	CreatedAt     time.Time   `json:"created_at"`
}

// CrawlPage is the persisted per-page record: signal, score, and fixes.
type CrawlPage struct {
	ID       string     `json:"id"`
	CrawlID  string     `json:"crawl_id"`
	Signal   PageSignal `json:"signal"`
	SEOScore int        `json:"seo_score"`
	Issues   []Issue    `json:"issues"`
	Fixes    []Fix      `json:"fixes"`
}

// SnapshotLabel marks an analytics snapshot as taken before or after
// remediation.
type SnapshotLabel string

const (
	SnapshotBefore SnapshotLabel = "BEFORE"
	SnapshotAfter  SnapshotLabel = "AFTER"
)

// AnalyticsRow is one parsed row of a traffic analytics export.
// All numeric fields are >= 0.
type AnalyticsRow struct {
	Path              string  `json:"path"`
	Views             int     `json:"views"`
	ActiveUsers       int     `json:"active_users"`
	AvgEngagementTime float64 `json:"avg_engagement_time"`
	EventCount        int     `json:"event_count"`
	KeyEvents         int     `json:"key_events"`
	TotalRevenue      float64 `json:"total_revenue"`
}

// Snapshot is a stored set of analytics rows for a site over a date range.
type Snapshot struct {
	ID        string         `json:"id"`
	SiteID    string         `json:"site_id"`
	CrawlID   string         `json:"crawl_id,omitempty"`
	Label     SnapshotLabel  `json:"label"`
	DateRange string         `json:"date_range,omitempty"`
	Rows      []AnalyticsRow `json:"rows,omitempty"`
	RowCount  int            `json:"row_count"`
	CreatedAt time.Time      `json:"created_at"`
}

// ComparisonRow is the per-path delta between a BEFORE and AFTER snapshot.
type ComparisonRow struct {
	Path             string  `json:"path"`
	BeforeViews      int     `json:"before_views"`
	AfterViews       int     `json:"after_views"`
	ViewsChange      int     `json:"views_change"`
	ViewsChangePct   float64 `json:"views_change_pct"`
	BeforeUsers      int     `json:"before_users"`
	AfterUsers       int     `json:"after_users"`
	UsersChange      int     `json:"users_change"`
	BeforeEngagement float64 `json:"before_engagement"`
	AfterEngagement  float64 `json:"after_engagement"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
}
