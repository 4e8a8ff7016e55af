package database_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nao1215/docingest/internal/crawler"
	"github.com/nao1215/docingest/internal/database"
	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/policy"
)

var _ crawler.Store = (*database.CrawlDB)(nil)

// TestCrawlIntoSQLite runs a real crawl against the SQLite store.
func TestCrawlIntoSQLite(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"/docs/":        `<html><head><title>Home</title></head><body><main><h1>Home</h1><p>Welcome.</p><a href="guide">Guide</a> <a href="https://github.com/example">Source</a></main></body></html>`,
		"/docs/guide":   `<html><head><title>Guide</title></head><body><main><h1>Guide</h1><p>Steps.</p><a href="/docs/">Home</a></main></body></html>`,
		"/docs/unused/": `<html><body><main><p>Not linked.</p></main></body></html>`,
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	guard := policy.NewGuard(policy.WithAllowPrivate(true))
	fetcher, err := fetch.New(fetch.WithGuard(guard))
	if err != nil {
		t.Fatalf("fetch.New() error: %v", err)
	}
	spider := crawler.NewSpider(fetcher, db,
		crawler.WithGuard(guard),
		crawler.WithDelay(0),
		crawler.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	ctx := context.Background()
	result, err := spider.Crawl(ctx, "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}
	if result.PagesFetched != 2 {
		t.Errorf("expected 2 pages, got %d", result.PagesFetched)
	}

	stored, err := db.ListPages(ctx, "kb")
	if err != nil {
		t.Fatalf("ListPages() error: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 stored pages, got %d", len(stored))
	}

	home, err := db.GetPageByPath(ctx, "kb", "docs")
	if err != nil {
		t.Fatalf("GetPageByPath() error: %v", err)
	}
	links, err := db.ListLinks(ctx, home.ID)
	if err != nil {
		t.Fatalf("ListLinks() error: %v", err)
	}
	if len(links) != 2 {
		t.Errorf("expected 2 links on the home page, got %+v", links)
	}

	job, err := db.GetJob(ctx, result.JobID)
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if job.Status != model.JobCompleted || job.PagesFetched != 2 {
		t.Errorf("unexpected persisted job %+v", job)
	}
}
