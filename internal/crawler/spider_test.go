package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/docingest/internal/fetch"
	"github.com/nao1215/docingest/internal/model"
	"github.com/nao1215/docingest/internal/policy"
)

// memStore is an in-memory Store. It enforces the same uniqueness rules as
// the database: (kb, url) and (kb, stable path).
type memStore struct {
	mu      sync.Mutex
	seq     int
	pages   map[string]*model.PageRecord // kb + url
	links   map[string][]model.LinkRecord
	jobs    map[string]model.CrawlJob
	history []model.JobStatus
}

func newMemStore() *memStore {
	return &memStore{
		pages: make(map[string]*model.PageRecord),
		links: make(map[string][]model.LinkRecord),
		jobs:  make(map[string]model.CrawlJob),
	}
}

func (m *memStore) UpsertPage(_ context.Context, page *model.PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pages {
		if p.KBID == page.KBID && p.StablePath == page.StablePath && p.URL != page.URL {
			return fmt.Errorf("stable path %q already used by %s", page.StablePath, p.URL)
		}
	}
	key := page.KBID + "|" + page.URL
	if existing, ok := m.pages[key]; ok {
		page.ID = existing.ID
	} else {
		m.seq++
		page.ID = fmt.Sprintf("page-%d", m.seq)
	}
	stored := *page
	m.pages[key] = &stored
	return nil
}

func (m *memStore) GetPageByPath(_ context.Context, kbID, path string) (*model.PageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if p.KBID == kbID && p.StablePath == path {
			out := *p
			return &out, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memStore) ListPages(_ context.Context, kbID string) ([]model.PageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PageRecord, 0)
	for _, p := range m.pages {
		if p.KBID == kbID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out, nil
}

func (m *memStore) InsertLink(_ context.Context, link model.LinkRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link.FromPageID] = append(m.links[link.FromPageID], link)
	return nil
}

func (m *memStore) DeleteLinks(_ context.Context, fromPageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, fromPageID)
	return nil
}

func (m *memStore) ListLinks(_ context.Context, fromPageID string) ([]model.LinkRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.LinkRecord(nil), m.links[fromPageID]...), nil
}

func (m *memStore) InsertJob(_ context.Context, job *model.CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	m.history = append(m.history, job.Status)
	return nil
}

func (m *memStore) UpdateJob(_ context.Context, job *model.CrawlJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return errors.New("unknown job")
	}
	m.jobs[job.ID] = *job
	m.history = append(m.history, job.Status)
	return nil
}

func (m *memStore) pageCount(kbID string) int {
	pages, _ := m.ListPages(context.Background(), kbID)
	return len(pages)
}

// docSite serves static documentation pages and counts requests per path.
type docSite struct {
	mu    sync.Mutex
	pages map[string]string
	hits  map[string]int
	slow  map[string]time.Duration
	etags bool
}

func newDocSite(t *testing.T, pages map[string]string) (*httptest.Server, *docSite) {
	t.Helper()
	site := &docSite{pages: pages, hits: make(map[string]int), slow: make(map[string]time.Duration)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		body, ok := site.pages[r.URL.Path]
		etags := site.etags
		delay := site.slow[r.URL.Path]
		site.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		if etags {
			tag := `"` + model.ContentHash(body)[:16] + `"`
			w.Header().Set("ETag", tag)
			if r.Header.Get("If-None-Match") == tag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, site
}

func (s *docSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *docSite) totalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// docPage renders a minimal documentation page linking to hrefs.
func docPage(title string, hrefs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><main><h1>%s</h1><p>Content of %s.</p><ul>", title, title, title)
	for _, h := range hrefs {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, h, h)
	}
	b.WriteString("</ul></main></body></html>")
	return b.String()
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestSpider builds a spider that may reach the loopback test server.
func newTestSpider(t *testing.T, store Store, opts ...SpiderOption) *Spider {
	t.Helper()
	guard := policy.NewGuard(policy.WithAllowPrivate(true))
	fetcher, err := fetch.New(fetch.WithGuard(guard))
	if err != nil {
		t.Fatalf("fetch.New() error: %v", err)
	}
	base := []SpiderOption{
		WithGuard(guard),
		WithDelay(0),
		WithLogger(discardLogger),
	}
	return NewSpider(fetcher, store, append(base, opts...)...)
}

func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("fetches each page once", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":      docPage("Home", "a", "b", "/docs/"),
			"/docs/a":     docPage("A", "b", "/docs/", "#top"),
			"/docs/b":     docPage("B", "a", "/docs/a"),
			"/robots.txt": "",
		})
		store := newMemStore()
		spider := newTestSpider(t, store, WithConcurrency(4))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.Status != model.JobCompleted {
			t.Errorf("expected completed, got %s", result.Status)
		}
		if result.PagesFetched != 3 {
			t.Errorf("expected 3 pages, got %d", result.PagesFetched)
		}
		for _, path := range []string{"/docs/", "/docs/a", "/docs/b"} {
			if got := site.hitCount(path); got != 1 {
				t.Errorf("expected %s to be fetched once, got %d", path, got)
			}
		}
		if store.pageCount("kb") != 3 {
			t.Errorf("expected 3 stored pages, got %d", store.pageCount("kb"))
		}
		if len(result.PerPage) != 3 {
			t.Errorf("expected 3 page outcomes, got %d", len(result.PerPage))
		}
	})

	t.Run("respects max depth", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":  docPage("Home", "a"),
			"/docs/a": docPage("A", "b"),
			"/docs/b": docPage("B", "c"),
			"/docs/c": docPage("C"),
		})
		store := newMemStore()
		spider := newTestSpider(t, store, WithMaxDepth(2))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.PagesFetched != 3 {
			t.Errorf("expected 3 pages, got %d", result.PagesFetched)
		}
		if site.hitCount("/docs/c") != 0 {
			t.Error("page beyond max depth was fetched")
		}

		pages, _ := store.ListPages(context.Background(), "kb")
		for _, p := range pages {
			if p.Depth > 2 {
				t.Errorf("page %s stored at depth %d", p.URL, p.Depth)
			}
		}
	})

	t.Run("depth zero fetches only the seed", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":  docPage("Home", "a"),
			"/docs/a": docPage("A"),
		})
		spider := newTestSpider(t, newMemStore(), WithMaxDepth(0))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.PagesFetched != 1 || site.hitCount("/docs/a") != 0 {
			t.Errorf("expected only the seed, got %d pages", result.PagesFetched)
		}
	})

	t.Run("page cap is spent breadth first", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":   docPage("Home", "a", "b"),
			"/docs/a":  docPage("A", "a2"),
			"/docs/a2": docPage("A2", "a3"),
			"/docs/a3": docPage("A3"),
			"/docs/b":  docPage("B", "b2"),
			"/docs/b2": docPage("B2"),
		})
		site.slow["/docs/b"] = 500 * time.Millisecond

		store := newMemStore()
		spider := newTestSpider(t, store, WithMaxDepth(3), WithMaxPages(5), WithConcurrency(2))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.PagesFetched != 5 {
			t.Errorf("expected 5 pages, got %d", result.PagesFetched)
		}
		if site.hitCount("/docs/b2") != 1 {
			t.Error("depth 2 page /docs/b2 was not fetched")
		}
		if site.hitCount("/docs/a3") != 0 {
			t.Error("depth 3 page /docs/a3 was fetched before the depth 2 level was complete")
		}

		pages, _ := store.ListPages(context.Background(), "kb")
		for _, p := range pages {
			if p.Depth > 2 {
				t.Errorf("page %s stored at depth %d", p.URL, p.Depth)
			}
		}
	})

	t.Run("never exceeds max pages", func(t *testing.T) {
		t.Parallel()

		pages := map[string]string{}
		links := make([]string, 0, 20)
		for i := range 20 {
			p := fmt.Sprintf("p%d", i)
			links = append(links, p)
			pages["/docs/"+p] = docPage(p)
		}
		pages["/docs/"] = docPage("Home", links...)
		srv, site := newDocSite(t, pages)

		store := newMemStore()
		spider := newTestSpider(t, store, WithMaxPages(5), WithConcurrency(4))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.PagesFetched != 5 {
			t.Errorf("expected exactly 5 pages, got %d", result.PagesFetched)
		}
		if got := store.pageCount("kb"); got != 5 {
			t.Errorf("expected 5 stored pages, got %d", got)
		}
		if got := site.totalHits(); got != 5 {
			t.Errorf("expected 5 requests, got %d", got)
		}
	})

	t.Run("stays within scope", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":       docPage("Home", "guide", "/blog/post", "https://example.org/docs/x"),
			"/docs/guide":  docPage("Guide"),
			"/blog/post":   docPage("Post"),
			"/docs/ignore": docPage("Ignore"),
		})
		spider := newTestSpider(t, newMemStore())

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if site.hitCount("/blog/post") != 0 {
			t.Error("out-of-scope page was fetched")
		}
		if result.PagesFetched != 2 {
			t.Errorf("expected 2 pages, got %d", result.PagesFetched)
		}
		if result.PagesSkipped != 1 {
			t.Errorf("expected 1 skipped page, got %d", result.PagesSkipped)
		}
	})

	t.Run("exclude patterns", func(t *testing.T) {
		t.Parallel()

		srv, site := newDocSite(t, map[string]string{
			"/docs/":        docPage("Home", "guide", "api/ref"),
			"/docs/guide":   docPage("Guide"),
			"/docs/api/ref": docPage("Ref"),
		})
		spider := newTestSpider(t, newMemStore(), WithExcludePatterns([]string{"/docs/api/*"}))

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if site.hitCount("/docs/api/ref") != 0 {
			t.Error("excluded page was fetched")
		}
		if result.PagesFetched != 2 {
			t.Errorf("expected 2 pages, got %d", result.PagesFetched)
		}
	})

	t.Run("records per-URL errors without failing", func(t *testing.T) {
		t.Parallel()

		srv, _ := newDocSite(t, map[string]string{
			"/docs/": docPage("Home", "missing"),
		})
		spider := newTestSpider(t, newMemStore())

		result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
		if err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}
		if result.Status != model.JobCompleted {
			t.Errorf("expected completed, got %s", result.Status)
		}
		if len(result.Errors) != 1 {
			t.Fatalf("expected 1 error, got %d", len(result.Errors))
		}
		if result.Errors[0].Kind != model.ErrorKindNetwork {
			t.Errorf("expected network error, got %s", result.Errors[0].Kind)
		}
		if !strings.HasSuffix(result.Errors[0].URL, "/docs/missing") {
			t.Errorf("unexpected error URL %q", result.Errors[0].URL)
		}
		if result.Errors[0].Status != http.StatusNotFound || !result.Errors[0].Gone() {
			t.Errorf("expected a gone error with status 404, got %+v", result.Errors[0])
		}
		if result.FailedURLs()[result.Errors[0].URL] {
			t.Error("a page answering 404 must not be listed as failed")
		}
	})

	t.Run("stable path collisions get a suffix", func(t *testing.T) {
		t.Parallel()

		srv, _ := newDocSite(t, map[string]string{
			"/docs/":           docPage("Home", "guide", "guide.html"),
			"/docs/guide":      docPage("Guide"),
			"/docs/guide.html": docPage("Guide HTML"),
		})
		store := newMemStore()
		spider := newTestSpider(t, store, WithConcurrency(1))

		if _, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/"); err != nil {
			t.Fatalf("Crawl() error: %v", err)
		}

		pages, _ := store.ListPages(context.Background(), "kb")
		if len(pages) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(pages))
		}
		paths := map[string]bool{}
		suffixed := 0
		for _, p := range pages {
			if paths[p.StablePath] {
				t.Errorf("duplicate stable path %q", p.StablePath)
			}
			paths[p.StablePath] = true
			if strings.HasPrefix(p.StablePath, "docs/guide-") {
				suffixed++
			}
		}
		if !paths["docs/guide"] || suffixed != 1 {
			t.Errorf("expected docs/guide and one suffixed path, got %v", paths)
		}
	})

	t.Run("invalid seed fails the job", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		spider := newTestSpider(t, store)

		result, err := spider.Crawl(context.Background(), "kb", "not a url")
		if !errors.Is(err, ErrInvalidSeed) {
			t.Fatalf("expected ErrInvalidSeed, got %v", err)
		}
		if result.Status != model.JobFailed {
			t.Errorf("expected failed, got %s", result.Status)
		}
		stored := store.jobs[result.JobID]
		if stored.Status != model.JobFailed || stored.FinishedAt == nil {
			t.Errorf("expected persisted failed job, got %+v", stored)
		}
	})

	t.Run("invalid pattern fails the job", func(t *testing.T) {
		t.Parallel()

		spider := newTestSpider(t, newMemStore(), WithIncludePatterns([]string{""}))
		result, err := spider.Crawl(context.Background(), "kb", "https://docs.example.com/")
		if !errors.Is(err, policy.ErrInvalidPattern) {
			t.Fatalf("expected ErrInvalidPattern, got %v", err)
		}
		if result.Status != model.JobFailed {
			t.Errorf("expected failed, got %s", result.Status)
		}
	})

	t.Run("no store", func(t *testing.T) {
		t.Parallel()

		spider := newTestSpider(t, nil)
		if _, err := spider.Crawl(context.Background(), "kb", "https://docs.example.com/"); !errors.Is(err, ErrNoStore) {
			t.Errorf("expected ErrNoStore, got %v", err)
		}
	})
}

func TestSpiderSSRF(t *testing.T) {
	t.Parallel()

	srv, site := newDocSite(t, map[string]string{
		"/docs/": docPage("Home"),
	})

	// The default guard blocks loopback addresses.
	fetcher, err := fetch.New()
	if err != nil {
		t.Fatalf("fetch.New() error: %v", err)
	}
	spider := NewSpider(fetcher, newMemStore(), WithDelay(0), WithLogger(discardLogger))

	result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}
	if site.totalHits() != 0 {
		t.Errorf("expected no request to a blocked address, got %d", site.totalHits())
	}
	if result.PagesFetched != 0 {
		t.Errorf("expected no pages, got %d", result.PagesFetched)
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != model.ErrorKindValidation {
		t.Errorf("expected one validation error, got %+v", result.Errors)
	}
}

func TestSpiderCrawlEntries(t *testing.T) {
	t.Parallel()

	srv, site := newDocSite(t, map[string]string{
		"/docs/intro":    docPage("Intro", "/docs/other"),
		"/docs/install":  docPage("Install", "/docs/other"),
		"/reference/cli": docPage("CLI"),
		"/docs/other":    docPage("Other"),
	})
	store := newMemStore()
	spider := newTestSpider(t, store)

	entries := []model.IndexEntry{
		{Name: "Intro", URL: srv.URL + "/docs/intro"},
		{Name: "Install", URL: srv.URL + "/docs/install"},
		{Name: "CLI", URL: srv.URL + "/reference/cli"},
	}
	result, err := spider.CrawlEntries(context.Background(), "kb", srv.URL, entries)
	if err != nil {
		t.Fatalf("CrawlEntries() error: %v", err)
	}
	if result.PagesFetched != 3 {
		t.Errorf("expected 3 pages, got %d", result.PagesFetched)
	}
	if site.hitCount("/docs/other") != 0 {
		t.Error("links of index entries must not be followed")
	}

	// Links are still recorded.
	page, err := store.GetPageByPath(context.Background(), "kb", "docs/intro")
	if err != nil {
		t.Fatalf("GetPageByPath() error: %v", err)
	}
	links, _ := store.ListLinks(context.Background(), page.ID)
	if len(links) != 1 || links[0].Kind != model.LinkInternal {
		t.Errorf("expected one internal link, got %+v", links)
	}
}

func TestSpiderResume(t *testing.T) {
	t.Parallel()

	pages := map[string]string{}
	links := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		p := fmt.Sprintf("p%d", i)
		links = append(links, p)
		pages["/docs/"+p] = docPage(p)
	}
	pages["/docs/"] = docPage("Home", links...)
	srv, site := newDocSite(t, pages)
	store := newMemStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	first := newTestSpider(t, store,
		WithConcurrency(1),
		WithMaxDepth(1),
		WithProgress(func(p model.Progress) {
			if p.PagesFetched >= 4 {
				cancel()
			}
		}),
	)

	result, err := first.Crawl(ctx, "kb", srv.URL+"/docs/")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Status != model.JobInterrupted {
		t.Errorf("expected interrupted, got %s", result.Status)
	}
	if result.PagesFetched != 4 {
		t.Fatalf("expected 4 pages before the interrupt, got %d", result.PagesFetched)
	}
	if got := store.pageCount("kb"); got != 4 {
		t.Fatalf("expected 4 stored pages, got %d", got)
	}

	second := newTestSpider(t, store, WithConcurrency(2), WithMaxDepth(1), WithResume(true))
	result, err = second.Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("resumed Crawl() error: %v", err)
	}
	if result.Status != model.JobCompleted {
		t.Errorf("expected completed, got %s", result.Status)
	}
	if result.PagesFetched != 6 {
		t.Errorf("expected 6 remaining pages, got %d", result.PagesFetched)
	}
	if got := store.pageCount("kb"); got != 10 {
		t.Errorf("expected 10 stored pages in total, got %d", got)
	}
	for path := range pages {
		if got := site.hitCount(path); got != 1 {
			t.Errorf("expected %s to be fetched once across both runs, got %d", path, got)
		}
	}
}

func TestSpiderConditionalFetch(t *testing.T) {
	t.Parallel()

	srv, site := newDocSite(t, map[string]string{
		"/docs/":  docPage("Home", "a"),
		"/docs/a": docPage("A"),
	})
	site.etags = true
	store := newMemStore()

	first, err := newTestSpider(t, store).Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	second, err := newTestSpider(t, store, WithConditionalFetch(true)).Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("conditional Crawl() error: %v", err)
	}
	if second.PagesFetched != 2 {
		t.Fatalf("expected 2 pages, got %d", second.PagesFetched)
	}
	for i, p := range second.PerPage {
		if !p.NotModified {
			t.Errorf("expected %s to be not modified", p.URL)
		}
		if p.ContentHash != first.PerPage[i].ContentHash {
			t.Errorf("expected stored hash to be reused for %s", p.URL)
		}
	}
	if site.hitCount("/docs/a") != 2 {
		t.Errorf("expected /docs/a to be requested twice, got %d", site.hitCount("/docs/a"))
	}
}

type denyRobots struct {
	prefix string
}

func (d denyRobots) Allowed(_ context.Context, rawURL string) bool {
	return !strings.Contains(rawURL, d.prefix)
}

func TestSpiderRobots(t *testing.T) {
	t.Parallel()

	srv, site := newDocSite(t, map[string]string{
		"/docs/":               docPage("Home", "public", "private/secret"),
		"/docs/public":         docPage("Public"),
		"/docs/private/secret": docPage("Secret"),
	})
	spider := newTestSpider(t, newMemStore(), WithRobots(denyRobots{prefix: "/docs/private/"}))

	result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}
	if site.hitCount("/docs/private/secret") != 0 {
		t.Error("disallowed page was fetched")
	}
	if result.PagesSkipped != 1 {
		t.Errorf("expected 1 skipped page, got %d", result.PagesSkipped)
	}
	if result.PagesFetched != 2 {
		t.Errorf("expected 2 pages, got %d", result.PagesFetched)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []model.PageEvent
}

func (r *recordingSink) PageStored(_ context.Context, event model.PageEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

type recordingObserver struct {
	mu       sync.Mutex
	statuses []model.JobStatus
}

func (r *recordingObserver) JobChanged(_ context.Context, job *model.CrawlJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, job.Status)
	return errors.New("observer errors are only logged")
}

func TestSpiderSinksAndObservers(t *testing.T) {
	t.Parallel()

	srv, _ := newDocSite(t, map[string]string{
		"/docs/":  docPage("Home", "a"),
		"/docs/a": docPage("A"),
	})
	sink := &recordingSink{}
	observer := &recordingObserver{}
	store := newMemStore()
	spider := newTestSpider(t, store, WithSinks(sink), WithObservers(observer))

	result, err := spider.Crawl(context.Background(), "kb", srv.URL+"/docs/")
	if err != nil {
		t.Fatalf("Crawl() error: %v", err)
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 page events, got %d", len(sink.events))
	}
	for _, e := range sink.events {
		if e.JobID != result.JobID || e.PageID == "" || e.ContentHTML == "" {
			t.Errorf("incomplete page event %+v", e)
		}
	}

	want := []model.JobStatus{model.JobPending, model.JobRunning, model.JobCompleted}
	if fmt.Sprint(observer.statuses) != fmt.Sprint(want) {
		t.Errorf("expected observer statuses %v, got %v", want, observer.statuses)
	}
	if fmt.Sprint(store.history) != fmt.Sprint(want) {
		t.Errorf("expected persisted statuses %v, got %v", want, store.history)
	}

	stored := store.jobs[result.JobID]
	if stored.PagesFetched != 2 || stored.ConfigSnapshot == "" {
		t.Errorf("expected final counters and snapshot on the job, got %+v", stored)
	}
}
