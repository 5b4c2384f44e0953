package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testTimeout = 5 * time.Second

func newTestRenderer() *HTTPRenderer {
	return newHTTPRenderer(testTimeout, http.DefaultTransport)
}

func TestRender_ExtractsSignal(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<title>Fresh Roasted Coffee Beans Delivered Weekly | BeanBox</title>
<meta name="description" content="Order small-batch coffee online.">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta property="og:title" content="BeanBox">
<meta property="og:type" content="website">
<link rel="canonical" href="%s/">
<script type="application/ld+json">{"@type":"Organization","name":"BeanBox"}</script>
<script type="application/ld+json">not json</script>
</head>
<body>
<h1>Coffee, delivered</h1>
<h2>How it works</h2>
<h2>Pricing</h2>
<p>Some words about coffee beans and roasting and delivery schedules.</p>
<img src="/a.png" alt="roaster">
<img src="/b.png">
<img src="/c.png" alt="   ">
<a href="/shop">Shop</a>
<a href="/about?ref=nav">About</a>
<a href="https://twitter.com/beanbox">Twitter</a>
<a href="mailto:hi@beanbox.example">Mail</a>
</body>
</html>`, srvURL)
	}))
	defer srv.Close()
	srvURL = srv.URL

	base := mustParseURL(t, srv.URL)
	signal, err := newTestRenderer().Render(context.Background(), srv.URL+"/", base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signal.HTTPStatus != 200 {
		t.Errorf("HTTPStatus = %d, want 200", signal.HTTPStatus)
	}
	if signal.Title != "Fresh Roasted Coffee Beans Delivered Weekly | BeanBox" {
		t.Errorf("Title = %q", signal.Title)
	}
	if signal.MetaDescription != "Order small-batch coffee online." {
		t.Errorf("MetaDescription = %q", signal.MetaDescription)
	}
	if signal.H1 != "Coffee, delivered" {
		t.Errorf("H1 = %q", signal.H1)
	}
	if len(signal.H2s) != 2 || signal.H2s[0] != "How it works" || signal.H2s[1] != "Pricing" {
		t.Errorf("H2s = %v", signal.H2s)
	}
	if signal.ImageCount != 3 {
		t.Errorf("ImageCount = %d, want 3", signal.ImageCount)
	}
	// Both the absent alt and the whitespace-only alt count as missing.
	if signal.ImagesWithoutAlt != 2 {
		t.Errorf("ImagesWithoutAlt = %d, want 2", signal.ImagesWithoutAlt)
	}
	if signal.InternalLinks != 2 {
		t.Errorf("InternalLinks = %d, want 2", signal.InternalLinks)
	}
	if signal.ExternalLinks != 1 {
		t.Errorf("ExternalLinks = %d, want 1 (mailto skipped)", signal.ExternalLinks)
	}
	wantPaths := []string{"/shop", "/about?ref=nav"}
	if len(signal.InternalLinkURLs) != len(wantPaths) {
		t.Fatalf("InternalLinkURLs = %v", signal.InternalLinkURLs)
	}
	for i, want := range wantPaths {
		if signal.InternalLinkURLs[i] != want {
			t.Errorf("InternalLinkURLs[%d] = %q, want %q", i, signal.InternalLinkURLs[i], want)
		}
	}
	if signal.CanonicalURL != srv.URL+"/" {
		t.Errorf("CanonicalURL = %q", signal.CanonicalURL)
	}
	if signal.OGTags["og:title"] != "BeanBox" || signal.OGTags["og:type"] != "website" {
		t.Errorf("OGTags = %v", signal.OGTags)
	}
	if len(signal.StructuredData) != 1 {
		t.Errorf("StructuredData entries = %d, want 1 (invalid JSON skipped)", len(signal.StructuredData))
	}
	if !signal.HasViewportMeta {
		t.Error("HasViewportMeta = false, want true")
	}
	if !signal.IsIndexable {
		t.Error("IsIndexable = false, want true")
	}
	if signal.WordCount == 0 {
		t.Error("WordCount = 0, want > 0")
	}
	if len(signal.RedirectChain) != 0 {
		t.Errorf("RedirectChain = %v, want empty", signal.RedirectChain)
	}
}

func TestRender_NoindexPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Hidden</title><meta name="robots" content="noindex, nofollow"></head><body></body></html>`))
	}))
	defer srv.Close()

	signal, err := newTestRenderer().Render(context.Background(), srv.URL, mustParseURL(t, srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.IsIndexable {
		t.Error("IsIndexable = true, want false for noindex page")
	}
}

func TestRender_RecordsRedirectChain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/interim", http.StatusMovedPermanently)
		case "/interim":
			http.Redirect(w, r, "/final", http.StatusFound)
		case "/final":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<html><head><title>Landed</title></head><body><p>here</p></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	signal, err := newTestRenderer().Render(context.Background(), srv.URL+"/old", mustParseURL(t, srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if signal.HTTPStatus != 200 {
		t.Errorf("HTTPStatus = %d, want 200", signal.HTTPStatus)
	}
	if signal.Title != "Landed" {
		t.Errorf("Title = %q, want %q", signal.Title, "Landed")
	}
	want := []string{srv.URL + "/old", srv.URL + "/interim"}
	if len(signal.RedirectChain) != 2 || signal.RedirectChain[0] != want[0] || signal.RedirectChain[1] != want[1] {
		t.Errorf("RedirectChain = %v, want %v", signal.RedirectChain, want)
	}
	if signal.URL != srv.URL+"/final" {
		t.Errorf("URL = %q, want final URL", signal.URL)
	}
}

func TestRender_TooManyRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	_, err := newTestRenderer().Render(context.Background(), srv.URL+"/loop", mustParseURL(t, srv.URL))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "too many redirects") {
		t.Errorf("error = %v, want too many redirects", err)
	}
}

func TestRender_ErrorStatusStillExtracted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<html><head><title>Not Found</title></head><body></body></html>`))
	}))
	defer srv.Close()

	signal, err := newTestRenderer().Render(context.Background(), srv.URL, mustParseURL(t, srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if signal.HTTPStatus != 404 {
		t.Errorf("HTTPStatus = %d, want 404", signal.HTTPStatus)
	}
	if signal.Title != "Not Found" {
		t.Errorf("Title = %q", signal.Title)
	}
}

func TestRender_NonHTMLContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	_, err := newTestRenderer().Render(context.Background(), srv.URL, mustParseURL(t, srv.URL))
	if err == nil {
		t.Fatal("expected error for non-HTML content, got nil")
	}
}
