package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse URL %q: %v", raw, err)
	}
	return u
}

func TestTechnicalChecker_RobotsAndSitemap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			_, _ = w.Write([]byte("User-agent: *\nDisallow:"))
		case "/sitemap.xml":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	checker := newTechnicalChecker(discardLogger(), http.DefaultTransport)
	result := checker.Run(context.Background(), mustParseURL(t, srv.URL))

	if !result.HasRobotsTxt {
		t.Error("HasRobotsTxt = false, want true")
	}
	if result.RobotsTxtContent != "User-agent: *\nDisallow:" {
		t.Errorf("RobotsTxtContent = %q", result.RobotsTxtContent)
	}
	if !result.HasSitemap {
		t.Error("HasSitemap = false, want true")
	}
	if result.SitemapURL != srv.URL+"/sitemap.xml" {
		t.Errorf("SitemapURL = %q, want %q", result.SitemapURL, srv.URL+"/sitemap.xml")
	}
}

func TestTechnicalChecker_SitemapFallbackPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sitemap_index.xml" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	checker := newTechnicalChecker(discardLogger(), http.DefaultTransport)
	result := checker.Run(context.Background(), mustParseURL(t, srv.URL))

	if !result.HasSitemap {
		t.Fatal("HasSitemap = false, want true")
	}
	if result.SitemapURL != srv.URL+"/sitemap_index.xml" {
		t.Errorf("SitemapURL = %q", result.SitemapURL)
	}
}

func TestTechnicalChecker_AllNegativeDefaults(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	checker := newTechnicalChecker(discardLogger(), http.DefaultTransport)
	result := checker.Run(context.Background(), mustParseURL(t, srv.URL))

	if result.HasRobotsTxt {
		t.Error("HasRobotsTxt = true, want false")
	}
	if result.HasSitemap {
		t.Error("HasSitemap = true, want false")
	}
	// Plain HTTP server: the HTTPS probe fails at the connection level.
	if result.SSLValid {
		t.Error("SSLValid = true, want false")
	}
	if result.SSLExpiresAt != "" {
		t.Errorf("SSLExpiresAt = %q, want empty", result.SSLExpiresAt)
	}
}

func TestTechnicalChecker_SSLValid(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Client errors still count as reachable.
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	checker := newTechnicalChecker(discardLogger(), srv.Client().Transport)
	result := checker.Run(context.Background(), mustParseURL(t, srv.URL))

	if !result.SSLValid {
		t.Error("SSLValid = false, want true")
	}
}

func TestTechnicalChecker_SSLServerError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	checker := newTechnicalChecker(discardLogger(), srv.Client().Transport)
	result := checker.Run(context.Background(), mustParseURL(t, srv.URL))

	if result.SSLValid {
		t.Error("SSLValid = true, want false for 5xx")
	}
}
